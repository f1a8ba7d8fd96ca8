// Package tts provides the text-to-speech boundary.
package tts

import (
	"context"
	"time"
)

// Format identifies the encoding of synthesized audio.
type Format string

const (
	FormatMP3   Format = "mp3"
	FormatPCM16 Format = "pcm16" // raw 16-bit little-endian PCM
	FormatWAV   Format = "wav"
)

// SynthesizeRequest contains parameters for text-to-speech synthesis.
type SynthesizeRequest struct {
	Text     string
	Voice    string
	Language string
	Speed    float32
}

// Audio is a complete synthesized utterance ready for playback.
type Audio struct {
	Data        []byte
	Format      Format
	SampleRate  int // required for FormatPCM16
	NumChannels int // required for FormatPCM16
	Text        string
}

// Duration returns the playback length of PCM audio. Encoded formats return
// zero; players decode them to find out.
func (a Audio) Duration() time.Duration {
	if a.Format != FormatPCM16 || a.SampleRate <= 0 || a.NumChannels <= 0 {
		return 0
	}
	samples := len(a.Data) / (2 * a.NumChannels)
	return time.Duration(samples) * time.Second / time.Duration(a.SampleRate)
}

// TTSCapabilities describes the capabilities of a TTS provider.
type TTSCapabilities struct {
	Formats              []Format
	SupportedLanguages   []string
	SupportedVoices      []string
	SupportsSpeedControl bool
}

// TTS is the main interface for text-to-speech providers.
type TTS interface {
	// Synthesize converts text to a single playable utterance.
	Synthesize(ctx context.Context, req SynthesizeRequest) (Audio, error)

	// Capabilities returns the provider's capabilities.
	Capabilities() TTSCapabilities
}
