// Package fake provides in-memory microphone and player implementations for
// tests and headless runs.
package fake

import (
	"context"
	"encoding/binary"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chriscow/interview-agents-go/pkg/ai/tts"
	"github.com/chriscow/interview-agents-go/pkg/audio"
)

// Microphone emits synthetic 16 kHz mono frames at a fixed interval.
type Microphone struct {
	// OpenErr, when set, is returned by Open.
	OpenErr error
	// Interval between frames. Zero means 10ms.
	Interval time.Duration
	// Amplitude of the square wave written into every frame.
	Amplitude int16
	// Silent makes the device open successfully but never produce frames.
	Silent bool

	mu     sync.Mutex
	opens  int
	closes int
	done   chan struct{}
}

// Open starts the frame generator.
func (m *Microphone) Open(ctx context.Context) (<-chan audio.Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.OpenErr != nil {
		return nil, m.OpenErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.opens++

	interval := m.Interval
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	done := make(chan struct{})
	m.done = done
	frames := make(chan audio.Frame, 8)

	go func() {
		defer close(frames)
		if m.Silent {
			<-done
			return
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		chunker := audio.NewChunker(audio.DefaultSampleRate, audio.DefaultNumChannels)
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				for _, f := range chunker.Write(square(m.Amplitude)) {
					select {
					case frames <- f:
					case <-done:
						return
					}
				}
			}
		}
	}()
	return frames, nil
}

// Close stops the generator.
func (m *Microphone) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes++
	if m.done != nil {
		close(m.done)
		m.done = nil
	}
	return nil
}

// Opens returns how many times Open succeeded.
func (m *Microphone) Opens() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens
}

// Closes returns how many times Close was called.
func (m *Microphone) Closes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}

func square(amplitude int16) []byte {
	n := audio.FrameSize(audio.DefaultSampleRate, audio.DefaultNumChannels)
	data := make([]byte, n)
	for i := 0; i < n/2; i++ {
		v := amplitude
		if (i/20)%2 == 1 {
			v = -amplitude
		}
		binary.LittleEndian.PutUint16(data[i*2:], uint16(v))
	}
	return data
}

// Player records what it was asked to play and how many plays overlapped.
type Player struct {
	// Delay overrides the playback time. Zero uses the audio duration.
	Delay time.Duration
	// Err, when set, is returned by every Play after the delay.
	Err error
	// OnPlay is called at the start of every play.
	OnPlay func(text string)
	// OnStop is called by every Stop before it returns.
	OnStop func()

	mu      sync.Mutex
	played  []string
	stops   int
	active  atomic.Int32
	overlap atomic.Int32
}

// Play waits for the audio duration, or Delay, or ctx.
func (p *Player) Play(ctx context.Context, a tts.Audio) error {
	if p.active.Add(1) > 1 {
		p.overlap.Add(1)
	}
	defer p.active.Add(-1)

	p.mu.Lock()
	p.played = append(p.played, a.Text)
	onPlay := p.OnPlay
	p.mu.Unlock()
	if onPlay != nil {
		onPlay(a.Text)
	}

	d := p.Delay
	if d <= 0 {
		d = a.Duration()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return ctx.Err()
	}
	return p.Err
}

// Stop counts stop requests.
func (p *Player) Stop() error {
	p.mu.Lock()
	p.stops++
	onStop := p.OnStop
	p.mu.Unlock()
	if onStop != nil {
		onStop()
	}
	return nil
}

// Played returns the texts played so far, in order.
func (p *Player) Played() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.played))
	copy(out, p.played)
	return out
}

// Stops returns how many times Stop was called.
func (p *Player) Stops() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stops
}

// Overlaps returns how many plays started while another was running.
func (p *Player) Overlaps() int {
	return int(p.overlap.Load())
}
