// Package bridge hosts interview sessions for remote clients over a
// websocket. The client owns the microphone and the speaker: it streams
// 16 kHz mono PCM as binary messages and plays the audio the server sends.
// Everything else is JSON text messages.
package bridge

import (
	"fmt"

	"github.com/chriscow/interview-agents-go/pkg/voice"
)

// Client to server signal types.
const (
	SignalStart        = "start"         // data: topics, jobContext
	SignalDone         = "done"          // the user finished answering
	SignalEnd          = "end"           // end the session
	SignalMicReady     = "mic_ready"     // reply to open_mic
	SignalMicError     = "mic_error"     // reply to open_mic; data: kind
	SignalPlaybackDone = "playback_done" // data: id
	SignalPing         = "ping"
)

// Server to client command types.
const (
	CommandEvent    = "event"     // data: an interview event
	CommandPlay     = "play"      // data: PlayData
	CommandStop     = "stop"      // interrupt playback
	CommandOpenMic  = "open_mic"  // start streaming microphone audio
	CommandCloseMic = "close_mic" // stop streaming
	CommandPong     = "pong"
	CommandError    = "error" // data: message; protocol errors only
)

// Microphone failure kinds a client can report in mic_error.
const (
	MicPermissionDenied = "permission_denied"
	MicNotFound         = "not_found"
	MicInUse            = "in_use"
)

// Signal is a message from the client.
type Signal struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// Command is a message to the client.
type Command struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// PlayData carries one utterance. Audio is base64 in JSON.
type PlayData struct {
	ID          string `json:"id"`
	Format      string `json:"format"`
	Audio       []byte `json:"audio"`
	SampleRate  int    `json:"sampleRate,omitempty"`
	NumChannels int    `json:"numChannels,omitempty"`
	Text        string `json:"text,omitempty"`
}

func (s *Signal) str(key string) string {
	v, _ := s.Data[key].(string)
	return v
}

// strings returns a string list field; JSON arrays decode as []any.
func (s *Signal) strings(key string) []string {
	raw, _ := s.Data[key].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if str, ok := v.(string); ok {
			out = append(out, str)
		}
	}
	return out
}

// micError maps a reported kind to a device error.
func micError(kind string) error {
	switch kind {
	case MicPermissionDenied:
		return voice.NewDeviceError(voice.ErrPermissionDenied, "remote", nil)
	case MicInUse:
		return voice.NewDeviceError(voice.ErrDeviceInUse, "remote", nil)
	case MicNotFound, "":
		return voice.NewDeviceError(voice.ErrDeviceNotFound, "remote", nil)
	}
	return voice.NewDeviceError(voice.ErrDeviceNotFound, "remote", fmt.Errorf("unknown kind %q", kind))
}
