// Package vad provides voice activity detection over PCM frames. The recorder
// uses it for the optional silence auto-stop policy.
package vad

import (
	"context"
	"time"

	"github.com/chriscow/interview-agents-go/pkg/audio"
)

// VADEventType represents the type of VAD event.
type VADEventType int

const (
	VADEventSpeechStart VADEventType = iota
	VADEventSpeechEnd
	VADEventError
)

func (t VADEventType) String() string {
	switch t {
	case VADEventSpeechStart:
		return "speech_start"
	case VADEventSpeechEnd:
		return "speech_end"
	case VADEventError:
		return "error"
	default:
		return "unknown"
	}
}

// VADEvent represents a voice activity detection event.
type VADEvent struct {
	Type      VADEventType
	Timestamp time.Time
	Error     error
}

// VADCapabilities describes the capabilities of a VAD provider.
type VADCapabilities struct {
	SampleRates        []int
	MinSpeechDuration  time.Duration
	MinSilenceDuration time.Duration
	Sensitivity        float32 // 0.0 to 1.0
}

// VAD is the main interface for voice activity detection providers.
type VAD interface {
	// Detect processes audio frames and returns VAD events.
	// The returned channel will be closed when the input channel is closed or context is cancelled.
	Detect(ctx context.Context, frames <-chan audio.Frame) (<-chan VADEvent, error)

	// Capabilities returns the provider's capabilities.
	Capabilities() VADCapabilities
}
