package tts

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestSynthesizeWritesAudioFile checks the happy path and frame layout.
func TestSynthesizeWritesAudioFile(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "podcast_job-1.mp3")

	written, err := NewLocalSynthesizer().Synthesize(context.Background(), Request{
		Text:         strings.Repeat("word ", 300),
		OutputPath:   outPath,
		Voice:        "en-US-Studio-O",
		SpeakingRate: 0.95,
	})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if written != outPath {
		t.Fatalf("written path = %q, want %q", written, outPath)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("output file is empty")
	}
	if !bytes.HasPrefix(data, mp3FrameHeader) {
		t.Fatalf("output does not start with an MP3 frame header: % x", data[:4])
	}
	if len(data)%mp3FrameBytes != 0 {
		t.Fatalf("output length %d is not a whole number of frames", len(data))
	}
}

// TestSynthesizeLongerTextProducesMoreAudio ties length to narration time.
func TestSynthesizeLongerTextProducesMoreAudio(t *testing.T) {
	dir := t.TempDir()
	synth := NewLocalSynthesizer()

	shortPath := filepath.Join(dir, "short.mp3")
	longPath := filepath.Join(dir, "long.mp3")
	if _, err := synth.Synthesize(context.Background(), Request{
		Text: strings.Repeat("word ", 50), OutputPath: shortPath, Voice: "v", SpeakingRate: 1.0,
	}); err != nil {
		t.Fatalf("short Synthesize() error = %v", err)
	}
	if _, err := synth.Synthesize(context.Background(), Request{
		Text: strings.Repeat("word ", 500), OutputPath: longPath, Voice: "v", SpeakingRate: 1.0,
	}); err != nil {
		t.Fatalf("long Synthesize() error = %v", err)
	}

	shortInfo, _ := os.Stat(shortPath)
	longInfo, _ := os.Stat(longPath)
	if longInfo.Size() <= shortInfo.Size() {
		t.Fatalf("long output (%d) not larger than short (%d)", longInfo.Size(), shortInfo.Size())
	}
}

// TestSynthesizeErrorCases covers empty text, bad rate, and bad path.
func TestSynthesizeErrorCases(t *testing.T) {
	synth := NewLocalSynthesizer()
	dir := t.TempDir()

	cases := map[string]Request{
		"empty text": {Text: "  ", OutputPath: filepath.Join(dir, "a.mp3"), Voice: "v", SpeakingRate: 1.0},
		"zero rate":  {Text: "hello", OutputPath: filepath.Join(dir, "b.mp3"), Voice: "v", SpeakingRate: 0},
		"bad path":   {Text: "hello", OutputPath: filepath.Join(dir, "missing", "c.mp3"), Voice: "v", SpeakingRate: 1.0},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := synth.Synthesize(context.Background(), req)
			var synthErr *SynthesisError
			if !errors.As(err, &synthErr) {
				t.Fatalf("Synthesize() error = %v, want *SynthesisError", err)
			}
			if synthErr.Voice != "v" {
				t.Fatalf("SynthesisError.Voice = %q", synthErr.Voice)
			}
		})
	}
}

// TestVoiceCatalogLookup checks catalog contents and lookup behavior.
func TestVoiceCatalogLookup(t *testing.T) {
	voices := Voices()
	if len(voices) == 0 {
		t.Fatal("voice catalog is empty")
	}

	voice, ok := LookupVoice("en-US-Studio-O")
	if !ok {
		t.Fatal("default voice missing from catalog")
	}
	if voice.Language != "en-US" {
		t.Fatalf("voice language = %q", voice.Language)
	}

	if _, ok := LookupVoice("nope"); ok {
		t.Fatal("unknown voice id should not resolve")
	}

	voices[0].ID = "mutated"
	if fresh := Voices(); fresh[0].ID == "mutated" {
		t.Fatal("Voices() must return a copy")
	}
}
