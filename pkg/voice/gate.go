// Package voice holds the half-duplex audio path of an interview: the speech
// queue, the microphone recorder and the transcription boundary.
package voice

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chriscow/interview-agents-go/pkg/ai/tts"
)

// Player plays synthesized audio on some output device.
type Player interface {
	// Play blocks until the audio has finished playing or ctx is done.
	Play(ctx context.Context, audio tts.Audio) error
	// Stop interrupts any playback in progress.
	Stop() error
}

// GateOptions configures an AudioGate.
type GateOptions struct {
	Voice    string
	Language string
	Speed    float32

	// SynthesisTimeout bounds each call to the TTS provider.
	SynthesisTimeout time.Duration
	// QueueSize is the number of requests that may wait behind the active one.
	QueueSize int

	Logger *slog.Logger
}

// AudioGate serializes every spoken utterance through one FIFO queue. A single
// worker synthesizes and plays requests strictly one at a time, holding the
// shared Floor for the whole request.
type AudioGate struct {
	tts    tts.TTS
	player Player
	floor  *Floor
	opts   GateOptions
	logger *slog.Logger

	queue     chan *speakRequest
	closed    chan struct{}
	closeOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc

	speaking atomic.Bool

	mu      sync.Mutex
	pending int
	idle    chan struct{} // closed while pending == 0
}

type speakRequest struct {
	ctx  context.Context
	text string
	done chan error
}

// NewAudioGate creates a gate and starts its worker. floor may be shared with
// a Recorder; a nil floor gets a private one.
func NewAudioGate(t tts.TTS, player Player, floor *Floor, opts GateOptions) *AudioGate {
	if floor == nil {
		floor = NewFloor()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 16
	}
	if opts.SynthesisTimeout <= 0 {
		opts.SynthesisTimeout = 15 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	idle := make(chan struct{})
	close(idle)

	g := &AudioGate{
		tts:    t,
		player: player,
		floor:  floor,
		opts:   opts,
		logger: logger.With(slog.String("component", "audio_gate")),
		queue:  make(chan *speakRequest, opts.QueueSize),
		closed: make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
		idle:   idle,
	}
	go g.run()
	return g
}

// Speak queues text and blocks until it has been played. Synthesis and
// playback failures are logged and swallowed so the caller can continue; an
// error is returned only if ctx is done or the gate is closed first.
func (g *AudioGate) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if g.isClosed() {
		return ErrGateClosed
	}

	req := &speakRequest{ctx: ctx, text: text, done: make(chan error, 1)}
	g.addPending()

	select {
	case g.queue <- req:
	case <-ctx.Done():
		g.donePending()
		return ctx.Err()
	case <-g.closed:
		g.donePending()
		return ErrGateClosed
	}

	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-g.closed:
		return ErrGateClosed
	}
}

// IsSpeaking reports whether an utterance is being synthesized or played.
func (g *AudioGate) IsSpeaking() bool {
	return g.speaking.Load()
}

// WaitUntilIdle blocks until nothing is queued or playing. A closed gate is
// idle.
func (g *AudioGate) WaitUntilIdle(ctx context.Context) error {
	for {
		g.mu.Lock()
		if g.pending == 0 {
			g.mu.Unlock()
			return nil
		}
		idle := g.idle
		g.mu.Unlock()

		select {
		case <-idle:
		case <-g.closed:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close abandons the queue, interrupts playback and forces the gate idle.
// Close is idempotent.
func (g *AudioGate) Close() {
	g.closeOnce.Do(func() {
		close(g.closed)
		g.cancel()
		g.speaking.Store(false)
		if err := g.player.Stop(); err != nil {
			g.logger.Debug("failed to stop player", slog.String("error", err.Error()))
		}

		g.mu.Lock()
		g.pending = 0
		select {
		case <-g.idle:
		default:
			close(g.idle)
		}
		g.mu.Unlock()
	})
}

func (g *AudioGate) isClosed() bool {
	select {
	case <-g.closed:
		return true
	default:
		return false
	}
}

func (g *AudioGate) addPending() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == 0 {
		g.idle = make(chan struct{})
	}
	g.pending++
}

func (g *AudioGate) donePending() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == 0 {
		return
	}
	g.pending--
	if g.pending == 0 {
		close(g.idle)
	}
}

func (g *AudioGate) run() {
	for {
		select {
		case <-g.closed:
			g.drain()
			return
		case req := <-g.queue:
			if g.isClosed() {
				req.done <- ErrGateClosed
				g.drain()
				return
			}
			req.done <- g.process(req)
			g.donePending()
		}
	}
}

func (g *AudioGate) drain() {
	for {
		select {
		case req := <-g.queue:
			req.done <- ErrGateClosed
		default:
			return
		}
	}
}

func (g *AudioGate) process(req *speakRequest) error {
	if err := req.ctx.Err(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(req.ctx)
	defer cancel()
	stop := context.AfterFunc(g.ctx, cancel)
	defer stop()

	if err := g.floor.Acquire(ctx); err != nil {
		return g.abandoned(err)
	}
	g.speaking.Store(true)
	defer func() {
		g.speaking.Store(false)
		g.floor.Release()
	}()

	synthCtx, synthCancel := context.WithTimeout(ctx, g.opts.SynthesisTimeout)
	audio, err := g.tts.Synthesize(synthCtx, tts.SynthesizeRequest{
		Text:     req.text,
		Voice:    g.opts.Voice,
		Language: g.opts.Language,
		Speed:    g.opts.Speed,
	})
	synthCancel()
	if err != nil {
		if ctx.Err() != nil {
			return g.abandoned(ctx.Err())
		}
		g.logger.Warn("speech synthesis failed, continuing without audio",
			slog.String("error", err.Error()),
			slog.Int("chars", len(req.text)))
		return nil
	}

	start := time.Now()
	if err := g.player.Play(ctx, audio); err != nil {
		if ctx.Err() != nil {
			return g.abandoned(ctx.Err())
		}
		g.logger.Warn("playback failed, continuing",
			slog.String("error", err.Error()))
		return nil
	}

	g.logger.Debug("utterance played",
		slog.Int("chars", len(req.text)),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

func (g *AudioGate) abandoned(err error) error {
	if g.isClosed() {
		return ErrGateClosed
	}
	return err
}
