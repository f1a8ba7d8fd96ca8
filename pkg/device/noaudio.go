//go:build !portaudio

package device

import (
	"errors"
	"log/slog"

	"github.com/chriscow/interview-agents-go/pkg/voice"
)

// Available reports whether this build has native audio.
const Available = false

var errNoNativeAudio = errors.New("built without the portaudio tag")

// NewMicrophone reports that no capture device is available in this build.
func NewMicrophone(*slog.Logger) (voice.Microphone, error) {
	return nil, voice.NewDeviceError(voice.ErrDeviceNotFound, "portaudio", errNoNativeAudio)
}

// NewPlayer reports that no output device is available in this build.
func NewPlayer(*slog.Logger) (voice.Player, error) {
	return nil, errNoNativeAudio
}
