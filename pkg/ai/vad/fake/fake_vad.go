// Package fake provides a seeded, deterministic VAD for tests.
package fake

import (
	"context"
	"math/rand"
	"time"

	"github.com/chriscow/interview-agents-go/pkg/ai/vad"
	"github.com/chriscow/interview-agents-go/pkg/audio"
)

const (
	// DefaultSpeechProbability is the default probability of speech detection per frame
	DefaultSpeechProbability = 0.3
	// HysteresisFrames is the number of frames to wait before switching speech state
	HysteresisFrames = 5
	// DefaultSeed is the deterministic seed for reproducible testing
	DefaultSeed = 42
)

// FakeVAD flips between speech and silence at random, using a fixed seed so
// runs are reproducible.
type FakeVAD struct {
	speechProbability float32
	rng               *rand.Rand
}

// NewFakeVAD creates a new fake VAD provider.
// speechProbability controls how often speech is detected (0.0 to 1.0).
func NewFakeVAD(speechProbability float32) *FakeVAD {
	return NewFakeVADWithSeed(speechProbability, DefaultSeed)
}

// NewFakeVADWithSeed creates a new fake VAD provider with a custom seed.
func NewFakeVADWithSeed(speechProbability float32, seed int64) *FakeVAD {
	if speechProbability <= 0 {
		speechProbability = DefaultSpeechProbability
	}
	return &FakeVAD{
		speechProbability: speechProbability,
		rng:               rand.New(rand.NewSource(seed)),
	}
}

// Detect processes audio frames and generates fake VAD events.
func (f *FakeVAD) Detect(ctx context.Context, frames <-chan audio.Frame) (<-chan vad.VADEvent, error) {
	output := make(chan vad.VADEvent, 10)

	go func() {
		defer close(output)

		send := func(t vad.VADEventType) bool {
			select {
			case output <- vad.VADEvent{Type: t, Timestamp: time.Now()}:
				return true
			case <-ctx.Done():
				return false
			}
		}

		var isSpeaking bool
		frameCount := 0
		for {
			select {
			case _, ok := <-frames:
				if !ok {
					if isSpeaking {
						send(vad.VADEventSpeechEnd)
					}
					return
				}
				frameCount++

				hasActivity := f.rng.Float32() < f.speechProbability
				if frameCount%HysteresisFrames != 0 {
					continue
				}
				if !isSpeaking && hasActivity {
					isSpeaking = true
					if !send(vad.VADEventSpeechStart) {
						return
					}
				} else if isSpeaking && !hasActivity {
					isSpeaking = false
					if !send(vad.VADEventSpeechEnd) {
						return
					}
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return output, nil
}

// Capabilities returns the fake VAD capabilities.
func (f *FakeVAD) Capabilities() vad.VADCapabilities {
	return vad.VADCapabilities{
		SampleRates:        []int{16000, 48000},
		MinSpeechDuration:  HysteresisFrames * 10 * time.Millisecond,
		MinSilenceDuration: HysteresisFrames * 10 * time.Millisecond,
		Sensitivity:        f.speechProbability,
	}
}
