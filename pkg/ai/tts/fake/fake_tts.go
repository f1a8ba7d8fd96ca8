// Package fake provides a TTS provider that synthesizes a quiet tone whose
// length tracks the input text.
package fake

import (
	"context"
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/chriscow/interview-agents-go/pkg/ai/tts"
)

const sampleRate = 16000

// FakeTTS is a fake TTS implementation for testing.
type FakeTTS struct {
	// PerChar is the audio length generated per input rune.
	PerChar time.Duration
	// Err, when set, is returned by every call.
	Err error

	mu       sync.Mutex
	requests []tts.SynthesizeRequest
}

// NewFakeTTS creates a new fake TTS provider.
func NewFakeTTS() *FakeTTS {
	return &FakeTTS{PerChar: time.Millisecond}
}

// Synthesize generates a sine tone for the given text.
func (f *FakeTTS) Synthesize(ctx context.Context, req tts.SynthesizeRequest) (tts.Audio, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return tts.Audio{}, err
	}
	if f.Err != nil {
		return tts.Audio{}, f.Err
	}

	duration := time.Duration(len([]rune(req.Text))) * f.PerChar
	samples := int(duration * sampleRate / time.Second)
	data := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		s := math.Sin(2*math.Pi*440*float64(i)/sampleRate) * 0.3
		binary.LittleEndian.PutUint16(data[i*2:], uint16(int16(s*32767)))
	}

	return tts.Audio{
		Data:        data,
		Format:      tts.FormatPCM16,
		SampleRate:  sampleRate,
		NumChannels: 1,
		Text:        req.Text,
	}, nil
}

// Requests returns a copy of every request received so far.
func (f *FakeTTS) Requests() []tts.SynthesizeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]tts.SynthesizeRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// Capabilities returns the fake TTS capabilities.
func (f *FakeTTS) Capabilities() tts.TTSCapabilities {
	return tts.TTSCapabilities{
		Formats:              []tts.Format{tts.FormatPCM16},
		SupportedLanguages:   []string{"pt", "en"},
		SupportedVoices:      []string{"fake"},
		SupportsSpeedControl: false,
	}
}
