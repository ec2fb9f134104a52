package tts

// VoiceOption describes one selectable narration voice preset.
type VoiceOption struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Language    string `json:"language"`
	Description string `json:"description,omitempty"`
}

var voiceCatalog = []VoiceOption{
	{
		ID:          "en-US-Studio-O",
		Name:        "Studio O (US English)",
		Language:    "en-US",
		Description: "Warm female studio voice, default for news narration.",
	},
	{
		ID:          "en-US-Studio-M",
		Name:        "Studio M (US English)",
		Language:    "en-US",
		Description: "Deep male studio voice.",
	},
	{
		ID:          "en-GB-News-K",
		Name:        "News K (British English)",
		Language:    "en-GB",
		Description: "Neutral British broadcast voice.",
	},
	{
		ID:          "en-AU-News-E",
		Name:        "News E (Australian English)",
		Language:    "en-AU",
		Description: "Australian broadcast voice.",
	},
}

// Voices returns the selectable voice presets.
func Voices() []VoiceOption {
	out := make([]VoiceOption, len(voiceCatalog))
	copy(out, voiceCatalog)
	return out
}

// LookupVoice finds a catalog entry by id.
func LookupVoice(id string) (VoiceOption, bool) {
	for _, voice := range voiceCatalog {
		if voice.ID == id {
			return voice, true
		}
	}
	return VoiceOption{}, false
}
