// Package fake provides a scripted STT provider for tests and dry runs.
package fake

import (
	"context"
	"sync"
	"time"

	"github.com/chriscow/interview-agents-go/pkg/ai/stt"
	"github.com/chriscow/interview-agents-go/pkg/audio"
)

// DefaultTranscript is used when no transcript is provided.
const DefaultTranscript = "Liderei uma equipe de cinco pessoas durante uma migração difícil e entregamos o projeto no prazo combinado."

// Response is one scripted transcription result.
type Response struct {
	Text       string
	Confidence *float64
	Err        error
	Delay      time.Duration
}

// FakeSTT returns scripted responses in order. The last response repeats once
// the script is exhausted.
type FakeSTT struct {
	mu        sync.Mutex
	responses []Response
	calls     int
	lastBytes int
}

// NewFakeSTT creates a fake STT that answers with the given transcripts.
func NewFakeSTT(transcripts ...string) *FakeSTT {
	if len(transcripts) == 0 {
		transcripts = []string{DefaultTranscript}
	}
	responses := make([]Response, len(transcripts))
	for i, t := range transcripts {
		responses[i] = Response{Text: t}
	}
	return &FakeSTT{responses: responses}
}

// NewScriptedSTT creates a fake STT from full responses.
func NewScriptedSTT(responses ...Response) *FakeSTT {
	if len(responses) == 0 {
		responses = []Response{{Text: DefaultTranscript}}
	}
	return &FakeSTT{responses: responses}
}

// Confidence is a helper for building scripted responses.
func Confidence(v float64) *float64 {
	return &v
}

// Transcribe returns the next scripted response.
func (f *FakeSTT) Transcribe(ctx context.Context, rec *audio.Recording, opts stt.TranscribeOptions) (stt.Transcript, error) {
	f.mu.Lock()
	idx := f.calls
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	resp := f.responses[idx]
	f.calls++
	f.lastBytes = rec.Len()
	f.mu.Unlock()

	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-ctx.Done():
			return stt.Transcript{}, ctx.Err()
		}
	}
	if resp.Err != nil {
		return stt.Transcript{}, resp.Err
	}

	return stt.Transcript{
		Text:       resp.Text,
		Language:   opts.Language,
		Confidence: resp.Confidence,
		Duration:   rec.Duration(),
	}, nil
}

// Calls returns how many transcriptions were requested.
func (f *FakeSTT) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// LastRecordingBytes returns the size of the most recent recording.
func (f *FakeSTT) LastRecordingBytes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastBytes
}

// Capabilities returns the fake STT capabilities.
func (f *FakeSTT) Capabilities() stt.STTCapabilities {
	return stt.STTCapabilities{
		ReportsConfidence:  true,
		SupportedLanguages: []string{"pt", "en"},
		SampleRates:        []int{16000, 48000},
	}
}
