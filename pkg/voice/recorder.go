package voice

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chriscow/interview-agents-go/pkg/ai/vad"
	"github.com/chriscow/interview-agents-go/pkg/audio"
)

// Microphone is a capture device. Open is called once per interview and the
// returned channel stays live until Close.
type Microphone interface {
	// Open acquires the device. Failures should be *DeviceError values.
	Open(ctx context.Context) (<-chan audio.Frame, error)
	// Close releases the device and closes the frame channel.
	Close() error
}

// StopReason tells why a recording ended.
type StopReason string

const (
	StopExplicit    StopReason = "stopped"
	StopMaxDuration StopReason = "max_duration"
	StopSilence     StopReason = "silence"
	StopDeviceEnded StopReason = "device_ended"
	StopCancelled   StopReason = "cancelled"
	StopClosed      StopReason = "closed"
)

// RecorderOptions configures a Recorder.
type RecorderOptions struct {
	SampleRate  int
	NumChannels int

	// MaxDuration stops a recording that was never stopped explicitly.
	MaxDuration time.Duration

	// VAD enables the silence policy: once speech has been heard, a recording
	// stops after SilenceTimeout of continuous silence. Nil disables it.
	VAD            vad.VAD
	SilenceTimeout time.Duration

	Logger *slog.Logger
}

// Recorder owns the microphone for one interview and runs at most one
// recording at a time. Frames that arrive outside a recording are dropped.
type Recorder struct {
	mic    Microphone
	floor  *Floor
	opts   RecorderOptions
	logger *slog.Logger

	acquireMu sync.Mutex

	mu       sync.Mutex
	acquired bool
	closed   bool
	active   *take

	recording atomic.Bool
	closeCh   chan struct{}
}

// take is one recording in progress.
type take struct {
	mu     sync.Mutex
	rec    *audio.Recording
	live   bool
	vadIn  chan audio.Frame
	stop   chan struct{}
	once   sync.Once
	reason StopReason
}

func (t *take) finish(reason StopReason) {
	t.once.Do(func() {
		t.reason = reason
		close(t.stop)
	})
}

func (t *take) append(f audio.Frame) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.live {
		return
	}
	t.rec.Append(f)
	if t.vadIn != nil {
		select {
		case t.vadIn <- f:
		default:
		}
	}
}

func (t *take) end() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.live = false
	if t.vadIn != nil {
		close(t.vadIn)
		t.vadIn = nil
	}
}

// NewRecorder creates a recorder. floor may be shared with an AudioGate; a nil
// floor gets a private one.
func NewRecorder(mic Microphone, floor *Floor, opts RecorderOptions) *Recorder {
	if floor == nil {
		floor = NewFloor()
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = audio.DefaultSampleRate
	}
	if opts.NumChannels <= 0 {
		opts.NumChannels = audio.DefaultNumChannels
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 5 * time.Minute
	}
	if opts.SilenceTimeout <= 0 {
		opts.SilenceTimeout = 4500 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Recorder{
		mic:     mic,
		floor:   floor,
		opts:    opts,
		logger:  logger.With(slog.String("component", "recorder")),
		closeCh: make(chan struct{}),
	}
}

// Acquire opens the microphone if it is not open yet. It is safe to call
// repeatedly; only the first successful call touches the device.
func (r *Recorder) Acquire(ctx context.Context) error {
	r.acquireMu.Lock()
	defer r.acquireMu.Unlock()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRecorderClosed
	}
	if r.acquired {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	frames, err := r.mic.Open(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = r.mic.Close()
		return ErrRecorderClosed
	}
	r.acquired = true
	r.mu.Unlock()

	r.logger.Debug("microphone acquired")
	go r.pump(frames)
	return nil
}

func (r *Recorder) pump(frames <-chan audio.Frame) {
	for {
		select {
		case f, ok := <-frames:
			if !ok {
				r.mu.Lock()
				t := r.active
				r.mu.Unlock()
				if t != nil {
					t.finish(StopDeviceEnded)
				}
				return
			}
			r.mu.Lock()
			t := r.active
			r.mu.Unlock()
			if t != nil {
				t.append(f)
			}
		case <-r.closeCh:
			return
		}
	}
}

// StartRecording captures audio until Stop, MaxDuration, the silence policy,
// ctx cancellation or Close, and returns what was captured. The returned
// recording may be empty.
func (r *Recorder) StartRecording(ctx context.Context) (*audio.Recording, error) {
	if err := r.Acquire(ctx); err != nil {
		return nil, err
	}

	t := &take{
		rec:  audio.NewRecording(r.opts.SampleRate, r.opts.NumChannels),
		stop: make(chan struct{}),
	}

	r.mu.Lock()
	switch {
	case r.closed:
		r.mu.Unlock()
		return nil, ErrRecorderClosed
	case r.active != nil:
		r.mu.Unlock()
		return nil, ErrRecordingActive
	}
	r.active = t
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		if r.active == t {
			r.active = nil
		}
		r.mu.Unlock()
	}()

	if err := r.floor.Acquire(ctx); err != nil {
		return nil, err
	}
	defer r.floor.Release()

	vadCtx, vadCancel := context.WithCancel(ctx)
	defer vadCancel()
	var silence <-chan struct{}
	if r.opts.VAD != nil {
		silence = r.watchSilence(vadCtx, t)
	}

	t.mu.Lock()
	t.rec.StartedAt = time.Now()
	t.live = true
	t.mu.Unlock()
	r.recording.Store(true)

	timer := time.NewTimer(r.opts.MaxDuration)
	defer timer.Stop()

	select {
	case <-t.stop:
	case <-silence:
		t.finish(StopSilence)
	case <-timer.C:
		t.finish(StopMaxDuration)
	case <-ctx.Done():
		t.finish(StopCancelled)
	case <-r.closeCh:
		t.finish(StopClosed)
	}

	r.recording.Store(false)
	t.end()

	r.logger.Debug("recording finished",
		slog.String("reason", string(t.reason)),
		slog.Int("bytes", t.rec.Len()),
		slog.Duration("duration", t.rec.Duration()))

	switch t.reason {
	case StopCancelled:
		return t.rec, ctx.Err()
	case StopClosed:
		return t.rec, ErrRecorderClosed
	}
	return t.rec, nil
}

// watchSilence runs the VAD over the take and returns a channel that closes
// once speech has been followed by SilenceTimeout of silence.
func (r *Recorder) watchSilence(ctx context.Context, t *take) <-chan struct{} {
	in := make(chan audio.Frame, 64)
	events, err := r.opts.VAD.Detect(ctx, in)
	if err != nil {
		r.logger.Warn("silence detection unavailable", slog.String("error", err.Error()))
		return nil
	}
	t.mu.Lock()
	t.vadIn = in
	t.mu.Unlock()

	fired := make(chan struct{})

	go func() {
		var timer *time.Timer
		var timeout <-chan time.Time
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					events = nil
					if timeout == nil {
						return
					}
					continue
				}
				switch ev.Type {
				case vad.VADEventSpeechStart:
					if timer != nil {
						timer.Stop()
					}
					timeout = nil
				case vad.VADEventSpeechEnd:
					timer = time.NewTimer(r.opts.SilenceTimeout)
					timeout = timer.C
				}
			case <-timeout:
				close(fired)
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return fired
}

// Stop ends the active recording. It is a no-op when nothing is recording.
func (r *Recorder) Stop() {
	r.mu.Lock()
	t := r.active
	r.mu.Unlock()
	if t == nil || !r.recording.Load() {
		return
	}
	t.finish(StopExplicit)
}

// IsRecording reports whether a recording is capturing audio.
func (r *Recorder) IsRecording() bool {
	return r.recording.Load()
}

// Close stops any recording and releases the microphone. Close is idempotent.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	acquired := r.acquired
	t := r.active
	r.mu.Unlock()

	close(r.closeCh)
	r.recording.Store(false)
	if t != nil {
		t.finish(StopClosed)
	}
	if acquired {
		return r.mic.Close()
	}
	return nil
}
