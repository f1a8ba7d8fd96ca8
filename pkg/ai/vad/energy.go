package vad

import (
	"context"
	"encoding/binary"
	"math"
	"time"

	"github.com/chriscow/interview-agents-go/pkg/audio"
)

// Energy detector defaults.
const (
	DefaultEnergyThreshold = 0.02
	DefaultSpeechFrames    = 3  // voiced frames before speech start
	DefaultSilenceFrames   = 10 // silent frames before speech end
)

// EnergyConfig configures an EnergyVAD. Zero values select the defaults.
type EnergyConfig struct {
	Threshold     float32 // normalized RMS, 0.0 to 1.0
	SpeechFrames  int
	SilenceFrames int
}

// EnergyVAD is a dependency-free detector that thresholds the RMS energy of
// each 10 ms frame, with hysteresis on both edges.
type EnergyVAD struct {
	threshold     float32
	speechFrames  int
	silenceFrames int
}

// NewEnergyVAD creates an EnergyVAD.
func NewEnergyVAD(cfg EnergyConfig) *EnergyVAD {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultEnergyThreshold
	}
	if cfg.SpeechFrames <= 0 {
		cfg.SpeechFrames = DefaultSpeechFrames
	}
	if cfg.SilenceFrames <= 0 {
		cfg.SilenceFrames = DefaultSilenceFrames
	}
	return &EnergyVAD{
		threshold:     cfg.Threshold,
		speechFrames:  cfg.SpeechFrames,
		silenceFrames: cfg.SilenceFrames,
	}
}

// Detect implements the VAD interface.
func (e *EnergyVAD) Detect(ctx context.Context, frames <-chan audio.Frame) (<-chan VADEvent, error) {
	events := make(chan VADEvent, 10)

	go func() {
		defer close(events)

		emit := func(t VADEventType) bool {
			select {
			case events <- VADEvent{Type: t, Timestamp: time.Now()}:
				return true
			case <-ctx.Done():
				return false
			}
		}

		var isSpeaking bool
		consecutiveSilence := 0
		consecutiveSpeech := 0

		for {
			select {
			case <-ctx.Done():
				return
			case frame, ok := <-frames:
				if !ok {
					if isSpeaking {
						emit(VADEventSpeechEnd)
					}
					return
				}

				if RMSEnergy(frame.Data) > e.threshold {
					consecutiveSpeech++
					consecutiveSilence = 0
					if !isSpeaking && consecutiveSpeech >= e.speechFrames {
						isSpeaking = true
						if !emit(VADEventSpeechStart) {
							return
						}
					}
				} else {
					consecutiveSilence++
					consecutiveSpeech = 0
					if isSpeaking && consecutiveSilence >= e.silenceFrames {
						isSpeaking = false
						if !emit(VADEventSpeechEnd) {
							return
						}
					}
				}
			}
		}
	}()

	return events, nil
}

// Capabilities returns the VAD capabilities.
func (e *EnergyVAD) Capabilities() VADCapabilities {
	return VADCapabilities{
		SampleRates:        []int{8000, 16000, 48000},
		MinSpeechDuration:  time.Duration(e.speechFrames) * 10 * time.Millisecond,
		MinSilenceDuration: time.Duration(e.silenceFrames) * 10 * time.Millisecond,
		Sensitivity:        e.threshold,
	}
}

// RMSEnergy computes the RMS energy of 16-bit little-endian PCM, normalized
// to the 0-1 range.
func RMSEnergy(data []byte) float32 {
	samples := len(data) / 2
	if samples == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < samples; i++ {
		sample := float64(int16(binary.LittleEndian.Uint16(data[i*2 : i*2+2])))
		sum += sample * sample
	}
	return float32(math.Sqrt(sum/float64(samples)) / 32768.0)
}
