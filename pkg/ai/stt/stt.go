// Package stt provides the speech-to-text boundary. A provider turns one
// finished recording into a transcript, optionally with a confidence score.
package stt

import (
	"context"
	"time"

	"github.com/chriscow/interview-agents-go/pkg/audio"
)

// TranscribeOptions contains per-call transcription parameters.
type TranscribeOptions struct {
	Language string // ISO-639-1, e.g. "pt"
	Prompt   string // optional vocabulary hint
}

// Transcript is the result of transcribing one recording.
type Transcript struct {
	Text       string
	Language   string
	Confidence *float64 // nil when the provider does not report one
	Duration   time.Duration
}

// ConfidenceOr returns the confidence, or def when none was reported.
func (t Transcript) ConfidenceOr(def float64) float64 {
	if t.Confidence == nil {
		return def
	}
	return *t.Confidence
}

// STTCapabilities describes the capabilities of an STT provider.
type STTCapabilities struct {
	ReportsConfidence  bool
	SupportedLanguages []string
	SampleRates        []int
}

// STT is the main interface for speech-to-text providers.
type STT interface {
	// Transcribe converts a finished recording to text.
	Transcribe(ctx context.Context, rec *audio.Recording, opts TranscribeOptions) (Transcript, error)

	// Capabilities returns the provider's capabilities.
	Capabilities() STTCapabilities
}
