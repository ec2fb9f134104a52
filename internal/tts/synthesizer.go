// Package tts converts narration text into an audio file. The
// synthesizer is the final external collaborator of the production
// pipeline; a network TTS backend satisfying Synthesizer is a drop-in.
package tts

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// SynthesisError wraps any failure while producing audio.
type SynthesisError struct {
	Voice string
	Err   error
}

// Error formats the synthesis failure with its voice id.
func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesize audio with voice %q: %v", e.Voice, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// Request describes one synthesis invocation.
type Request struct {
	Text         string
	OutputPath   string
	Voice        string
	SpeakingRate float64
}

// Synthesizer writes spoken audio for a script and returns the written path.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (string, error)
}

// LocalSynthesizer renders a placeholder MP3 whose length tracks the
// script's narration time. It keeps the service fully runnable without
// a speech backend.
type LocalSynthesizer struct{}

// NewLocalSynthesizer creates the offline synthesizer.
func NewLocalSynthesizer() *LocalSynthesizer {
	return &LocalSynthesizer{}
}

// mp3FrameHeader is an MPEG-1 Layer III header: 128 kbps, 44.1 kHz, mono.
var mp3FrameHeader = []byte{0xFF, 0xFB, 0x90, 0xC0}

const (
	mp3FrameBytes   = 417
	mp3FrameSeconds = 1152.0 / 44100.0
	wordsPerSecond  = 2.5
)

// Synthesize writes silent MP3 frames covering the narration duration.
func (s *LocalSynthesizer) Synthesize(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &SynthesisError{Voice: req.Voice, Err: err}
	}
	if strings.TrimSpace(req.Text) == "" {
		return "", &SynthesisError{Voice: req.Voice, Err: fmt.Errorf("empty script text")}
	}
	if req.SpeakingRate <= 0 {
		return "", &SynthesisError{Voice: req.Voice, Err: fmt.Errorf("speaking rate must be positive, got %v", req.SpeakingRate)}
	}

	words := len(strings.Fields(req.Text))
	seconds := float64(words) / (wordsPerSecond * req.SpeakingRate)
	frames := int(seconds/mp3FrameSeconds) + 1

	f, err := os.Create(req.OutputPath)
	if err != nil {
		return "", &SynthesisError{Voice: req.Voice, Err: fmt.Errorf("create output file: %w", err)}
	}

	frame := make([]byte, mp3FrameBytes)
	copy(frame, mp3FrameHeader)
	for i := 0; i < frames; i++ {
		if _, err := f.Write(frame); err != nil {
			f.Close()
			return "", &SynthesisError{Voice: req.Voice, Err: fmt.Errorf("write audio frame: %w", err)}
		}
	}

	if err := f.Close(); err != nil {
		return "", &SynthesisError{Voice: req.Voice, Err: err}
	}
	return req.OutputPath, nil
}
