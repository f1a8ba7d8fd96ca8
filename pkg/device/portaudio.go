//go:build portaudio

package device

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	beepwav "github.com/faiface/beep/wav"
	"github.com/gordonklaus/portaudio"

	"github.com/chriscow/interview-agents-go/pkg/ai/tts"
	"github.com/chriscow/interview-agents-go/pkg/audio"
	"github.com/chriscow/interview-agents-go/pkg/audio/wav"
	"github.com/chriscow/interview-agents-go/pkg/voice"
)

// Available reports whether this build has native audio.
const Available = true

// Microphone captures 16 kHz mono from the default input device.
type Microphone struct {
	logger *slog.Logger

	mu     sync.Mutex
	stream *portaudio.Stream
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewMicrophone returns the default input device. Nothing is opened until
// Open.
func NewMicrophone(logger *slog.Logger) (voice.Microphone, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return &Microphone{logger: logger.With(slog.String("component", "portaudio"))}, nil
}

// Open initializes PortAudio and starts the input stream.
func (m *Microphone) Open(ctx context.Context) (<-chan audio.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stream != nil {
		return nil, voice.NewDeviceError(voice.ErrDeviceInUse, "portaudio", nil)
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, deviceError(err)
	}
	dev, err := portaudio.DefaultInputDevice()
	if err != nil {
		portaudio.Terminate()
		return nil, deviceError(err)
	}

	samples := audio.DefaultSampleRate / 100
	buf := make([]int16, samples*audio.DefaultNumChannels)
	stream, err := portaudio.OpenDefaultStream(audio.DefaultNumChannels, 0, float64(audio.DefaultSampleRate), samples, buf)
	if err != nil {
		portaudio.Terminate()
		return nil, deviceError(err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, deviceError(err)
	}

	m.logger.Info("microphone opened", slog.String("device", dev.Name))
	m.stream = stream
	m.done = make(chan struct{})
	frames := make(chan audio.Frame, 16)

	m.wg.Add(1)
	go m.read(stream, buf, frames, m.done)
	return frames, nil
}

func (m *Microphone) read(stream *portaudio.Stream, buf []int16, out chan<- audio.Frame, done <-chan struct{}) {
	defer m.wg.Done()
	defer close(out)
	for {
		select {
		case <-done:
			return
		default:
		}
		if err := stream.Read(); err != nil {
			if errors.Is(err, portaudio.InputOverflowed) {
				continue
			}
			m.logger.Warn("microphone read failed", slog.Any("error", err))
			return
		}
		data := make([]byte, len(buf)*2)
		for i, s := range buf {
			binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
		}
		f := audio.Frame{
			Data:              data,
			SampleRate:        audio.DefaultSampleRate,
			SamplesPerChannel: audio.DefaultSampleRate / 100,
			NumChannels:       audio.DefaultNumChannels,
		}
		select {
		case out <- f:
		case <-done:
			return
		}
	}
}

// Close stops the stream and releases PortAudio.
func (m *Microphone) Close() error {
	m.mu.Lock()
	stream, done := m.stream, m.done
	m.stream, m.done = nil, nil
	m.mu.Unlock()
	if stream == nil {
		return nil
	}

	close(done)
	err := stream.Stop()
	m.wg.Wait()
	if cerr := stream.Close(); err == nil {
		err = cerr
	}
	if terr := portaudio.Terminate(); err == nil {
		err = terr
	}
	return err
}

// deviceError maps PortAudio failures onto the microphone error kinds.
func deviceError(err error) error {
	kind := voice.ErrDeviceNotFound
	switch {
	case errors.Is(err, portaudio.DeviceUnavailable):
		kind = voice.ErrDeviceInUse
	case strings.Contains(strings.ToLower(err.Error()), "permission"),
		strings.Contains(strings.ToLower(err.Error()), "not permitted"):
		kind = voice.ErrPermissionDenied
	}
	return voice.NewDeviceError(kind, "portaudio", err)
}

// Speaker plays synthesized audio on the default output device through the
// beep speaker.
type Speaker struct {
	logger *slog.Logger

	mu         sync.Mutex
	sampleRate beep.SampleRate
	done       chan struct{}
}

// NewPlayer returns a speaker player.
func NewPlayer(logger *slog.Logger) (voice.Player, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return &Speaker{logger: logger.With(slog.String("component", "speaker"))}, nil
}

// Play decodes a and blocks until it has been played, Stop is called or ctx
// is done.
func (s *Speaker) Play(ctx context.Context, a tts.Audio) error {
	streamer, format, err := decode(a)
	if err != nil {
		return err
	}
	defer streamer.Close()

	s.mu.Lock()
	if s.sampleRate == 0 {
		if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("initialize speaker: %w", err)
		}
		s.sampleRate = format.SampleRate
	}
	var src beep.Streamer = streamer
	if format.SampleRate != s.sampleRate {
		src = beep.Resample(4, format.SampleRate, s.sampleRate, streamer)
	}
	done := make(chan struct{})
	s.done = done
	s.mu.Unlock()

	finished := make(chan struct{})
	speaker.Play(beep.Seq(src, beep.Callback(func() { close(finished) })))

	select {
	case <-finished:
		return nil
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}

// Stop clears the speaker queue.
func (s *Speaker) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sampleRate != 0 {
		speaker.Clear()
	}
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
	return nil
}

func decode(a tts.Audio) (beep.StreamSeekCloser, beep.Format, error) {
	switch a.Format {
	case tts.FormatMP3:
		return mp3.Decode(io.NopCloser(bytes.NewReader(a.Data)))
	case tts.FormatWAV:
		return beepwav.Decode(bytes.NewReader(a.Data))
	case tts.FormatPCM16:
		var buf bytes.Buffer
		if err := wav.Encode(&buf, a.Data, a.SampleRate, a.NumChannels); err != nil {
			return nil, beep.Format{}, err
		}
		return beepwav.Decode(&buf)
	}
	return nil, beep.Format{}, fmt.Errorf("unsupported audio format %q", a.Format)
}
