// Package device provides the microphones and players the CLI wires into the
// interview controller. The PortAudio microphone and the speaker player need
// cgo and are built with the "portaudio" tag; the headless variants work
// everywhere.
package device

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	gomp3 "github.com/hajimehoshi/go-mp3"

	"github.com/chriscow/interview-agents-go/pkg/ai/tts"
	"github.com/chriscow/interview-agents-go/pkg/audio"
	"github.com/chriscow/interview-agents-go/pkg/audio/wav"
	"github.com/chriscow/interview-agents-go/pkg/voice"
)

// Duration returns how long a takes to play. MP3 and WAV payloads are
// decoded to find out.
func Duration(a tts.Audio) (time.Duration, error) {
	switch a.Format {
	case tts.FormatPCM16:
		return a.Duration(), nil
	case tts.FormatMP3:
		return mp3Duration(a.Data)
	case tts.FormatWAV:
		r, err := wav.NewStreamReader(bytes.NewReader(a.Data))
		if err != nil {
			return 0, err
		}
		h := r.Header()
		bytesPerSec := int64(h.SampleRate) * int64(h.NumChannels) * int64(h.BitsPerSample/8)
		if bytesPerSec == 0 {
			return 0, fmt.Errorf("invalid WAV header")
		}
		return time.Duration(int64(h.DataSize) * int64(time.Second) / bytesPerSec), nil
	}
	return 0, fmt.Errorf("unsupported audio format %q", a.Format)
}

// DecodeMP3 decodes data to 16-bit little-endian stereo PCM, the only
// layout go-mp3 produces, and returns it with its sample rate.
func DecodeMP3(data []byte) ([]byte, int, error) {
	d, err := gomp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("decode mp3: %w", err)
	}
	if d.SampleRate() <= 0 {
		return nil, 0, fmt.Errorf("decode mp3: invalid sample rate")
	}
	pcm, err := io.ReadAll(d)
	if err != nil {
		return nil, 0, fmt.Errorf("decode mp3: %w", err)
	}
	return pcm, d.SampleRate(), nil
}

func mp3Duration(data []byte) (time.Duration, error) {
	d, err := gomp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("decode mp3: %w", err)
	}
	if d.SampleRate() <= 0 {
		return 0, fmt.Errorf("decode mp3: invalid sample rate")
	}
	length := d.Length()
	if length < 0 {
		n, err := io.Copy(io.Discard, d)
		if err != nil {
			return 0, fmt.Errorf("decode mp3: %w", err)
		}
		length = n
	}
	samples := length / 4
	return time.Duration(samples) * time.Second / time.Duration(d.SampleRate()), nil
}

// HeadlessPlayer plays nothing. It waits as long as the audio would take to
// play, scaled by Scale, so turn-taking timing stays realistic without an
// output device.
type HeadlessPlayer struct {
	// Scale multiplies playback time. Zero returns immediately.
	Scale float64
	// Output, when set, receives the text of each utterance.
	Output io.Writer
	Logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// Play waits for the scaled playback time, Stop or ctx.
func (p *HeadlessPlayer) Play(ctx context.Context, a tts.Audio) error {
	d, err := Duration(a)
	if err != nil {
		return err
	}
	if p.Output != nil && a.Text != "" {
		fmt.Fprintf(p.Output, "Tio Tor: %s\n", a.Text)
	}
	if p.Logger != nil {
		p.Logger.Debug("headless playback", slog.Duration("duration", d), slog.Int("bytes", len(a.Data)))
	}

	wait := time.Duration(float64(d) * p.Scale)
	if wait <= 0 {
		return ctx.Err()
	}

	ctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()
	defer cancel()

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop interrupts the current Play.
func (p *HeadlessPlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	return nil
}

// FileMicrophone replays a 16-bit PCM WAV file as live input, paced at real
// time and looped until Close. The file must match the recorder format.
type FileMicrophone struct {
	Path        string
	SampleRate  int // zero means audio.DefaultSampleRate
	NumChannels int // zero means audio.DefaultNumChannels
	// Pace is the delay between frames. Zero means one frame duration.
	Pace time.Duration

	mu   sync.Mutex
	done chan struct{}
}

// Open loads the file and starts streaming frames.
func (m *FileMicrophone) Open(ctx context.Context) (<-chan audio.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r, err := wav.NewReader(m.Path)
	if err != nil {
		return nil, voice.NewDeviceError(voice.ErrDeviceNotFound, m.Path, err)
	}
	defer r.Close()

	rate, channels := m.SampleRate, m.NumChannels
	if rate == 0 {
		rate = audio.DefaultSampleRate
	}
	if channels == 0 {
		channels = audio.DefaultNumChannels
	}
	h := r.Header()
	if int(h.SampleRate) != rate || int(h.NumChannels) != channels || h.BitsPerSample != 16 {
		return nil, voice.NewDeviceError(voice.ErrDeviceNotFound, m.Path,
			fmt.Errorf("want %dHz %d-channel 16-bit, file is %dHz %d-channel %d-bit",
				rate, channels, h.SampleRate, h.NumChannels, h.BitsPerSample))
	}

	frames, err := r.ReadFrames()
	if err != nil {
		return nil, voice.NewDeviceError(voice.ErrDeviceNotFound, m.Path, err)
	}
	if len(frames) == 0 {
		return nil, voice.NewDeviceError(voice.ErrDeviceNotFound, m.Path, fmt.Errorf("file has no audio"))
	}

	pace := m.Pace
	if pace <= 0 {
		pace = frames[0].Duration()
	}

	m.mu.Lock()
	if m.done != nil {
		m.mu.Unlock()
		return nil, voice.NewDeviceError(voice.ErrDeviceInUse, m.Path, nil)
	}
	done := make(chan struct{})
	m.done = done
	m.mu.Unlock()

	out := make(chan audio.Frame, 8)
	go func() {
		defer close(out)
		ticker := time.NewTicker(pace)
		defer ticker.Stop()
		for i := 0; ; i = (i + 1) % len(frames) {
			select {
			case <-done:
				return
			case <-ticker.C:
			}
			select {
			case out <- frames[i]:
			case <-done:
				return
			}
		}
	}()
	return out, nil
}

// Close stops streaming and closes the frame channel.
func (m *FileMicrophone) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done != nil {
		close(m.done)
		m.done = nil
	}
	return nil
}
