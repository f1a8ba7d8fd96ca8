// Package interview runs a spoken mock interview: it asks generated
// questions, records and transcribes the answers, scores them and decides
// whether a topic deserves a follow-up question.
package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chriscow/interview-agents-go/pkg/ai"
	"github.com/chriscow/interview-agents-go/pkg/ai/coach"
	"github.com/chriscow/interview-agents-go/pkg/ai/stt"
	"github.com/chriscow/interview-agents-go/pkg/ai/tts"
	"github.com/chriscow/interview-agents-go/pkg/ai/vad"
	"github.com/chriscow/interview-agents-go/pkg/audio"
	"github.com/chriscow/interview-agents-go/pkg/voice"
)

var (
	ErrNoTopics     = errors.New("at least one topic is required")
	ErrNoJobContext = errors.New("job context is required")

	// errEnded unwinds the loop of a session that was ended or superseded.
	errEnded = errors.New("session ended")
	// errAbandoned means a question got no usable answer within the
	// attempt budget.
	errAbandoned = errors.New("question abandoned")
)

// Config holds the collaborators of a Controller.
type Config struct {
	TTS        tts.TTS
	Player     voice.Player
	STT        stt.STT
	Microphone voice.Microphone
	Coach      coach.Coach

	// VAD drives the silence auto-stop when Settings.AutoStopOnSilence is set.
	VAD vad.VAD
	// Guard rejects questions in the wrong language. Nil uses EnglishWordGuard.
	Guard LanguageGuard
	// Intents detects repeat and clarify requests. Nil uses the defaults.
	Intents *voice.IntentMatcher
	// Fallbacks replace failed coach calls. Nil uses coach.DefaultFallbacks.
	Fallbacks *coach.Fallbacks

	Settings Settings
	Logger   *slog.Logger
}

// Controller drives interview sessions, one at a time. StartSession runs the
// loop on the caller's goroutine; EndSession and UserDone may be called from
// any goroutine.
type Controller struct {
	cfg       Config
	settings  Settings
	fallbacks coach.Fallbacks
	planner   *Planner
	logger    *slog.Logger
	metrics   *Metrics

	version atomic.Uint64
	state   atomic.Int32

	mu      sync.Mutex
	active  *run
	waiting bool

	// emitMu orders delivery checks against ending a run. It is never held
	// while onUpdate runs.
	emitMu sync.Mutex
	// startMu serializes the hand-over between a superseded run and its
	// successor, so the microphone is released before it is opened again.
	startMu sync.Mutex
}

// run is the per-session state of the loop.
type run struct {
	v        uint64
	ctx      context.Context
	cancel   context.CancelFunc
	session  *Session
	gate     *voice.AudioGate
	recorder *voice.Recorder
	stt      *voice.Transcriber
	onUpdate func(Event)
	logger   *slog.Logger
}

// New creates a Controller.
func New(cfg Config) (*Controller, error) {
	if cfg.TTS == nil {
		return nil, fmt.Errorf("TTS is required")
	}
	if cfg.Player == nil {
		return nil, fmt.Errorf("player is required")
	}
	if cfg.STT == nil {
		return nil, fmt.Errorf("STT is required")
	}
	if cfg.Microphone == nil {
		return nil, fmt.Errorf("microphone is required")
	}
	if cfg.Coach == nil {
		return nil, fmt.Errorf("coach is required")
	}

	settings := cfg.Settings.withDefaults()
	fallbacks := coach.DefaultFallbacks
	if cfg.Fallbacks != nil {
		fallbacks = *cfg.Fallbacks
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Controller{
		cfg:       cfg,
		settings:  settings,
		fallbacks: fallbacks,
		logger:    logger.With(slog.String("component", "interview")),
		metrics:   newMetrics(),
	}
	c.planner = NewPlanner(cfg.Coach, PlannerOptions{
		MaxAttempts: settings.MaxGenerationAttempts,
		CallTimeout: settings.LLMTimeout,
		Guard:       cfg.Guard,
		Logger:      logger,
	})
	return c, nil
}

// Metrics returns the controller metrics.
func (c *Controller) Metrics() *Metrics {
	return c.metrics
}

// StartSession runs a complete interview over topics and returns when it
// ends. Events are delivered to onUpdate on the calling goroutine, one at a
// time. onUpdate may call EndSession and the query methods.
//
// Any live session is ended first. The returned error is nil when the
// interview completed or was ended with EndSession.
func (c *Controller) StartSession(ctx context.Context, topics []string, jobContext string, onUpdate func(Event)) (err error) {
	labels := cleanTopics(topics)
	jobContext = strings.TrimSpace(jobContext)
	switch {
	case len(labels) == 0:
		deliver(onUpdate, Event{Type: EventError, Message: c.settings.Messages.NoTopics})
		return ErrNoTopics
	case jobContext == "":
		deliver(onUpdate, Event{Type: EventError, Message: c.settings.Messages.NoJobContext})
		return ErrNoJobContext
	}

	r := c.begin(ctx, labels, jobContext, onUpdate)
	defer c.endRun(r)
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("interview loop panicked",
				slog.Any("panic", p),
				slog.String("stack", string(debug.Stack())))
			err = fmt.Errorf("interview loop panicked: %v", p)
			c.fail(r, err)
		}
	}()

	err = c.loop(r)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errEnded):
		return ctx.Err()
	default:
		r.logger.Error("interview failed", slog.String("error", err.Error()))
		c.fail(r, err)
		return err
	}
}

// EndSession ends the live session, if any. It cancels in-flight work,
// silences the gate and releases the microphone. Once it returns, no further
// event of the ended session is delivered; a callback already running may
// finish. EndSession is idempotent and may be called from onUpdate.
func (c *Controller) EndSession() {
	c.endRun(nil)
}

// endRun ends target, or whatever is live when target is nil. A finished run
// never ends its successor.
func (c *Controller) endRun(target *run) {
	c.emitMu.Lock()
	c.mu.Lock()
	r := c.active
	if r == nil || (target != nil && target != r) {
		c.mu.Unlock()
		c.emitMu.Unlock()
		return
	}
	c.detach(r)
	c.mu.Unlock()
	c.emitMu.Unlock()

	c.release(r)
}

// detach makes r no longer live. The caller holds emitMu and mu, so no
// delivery check passes for r afterwards.
func (c *Controller) detach(r *run) {
	c.active = nil
	c.waiting = false
	c.version.Add(1)
	r.session.Phase = PhaseEnded
	r.onUpdate = nil
	old := State(c.state.Load())
	if old != StateError && old != StateComplete {
		c.state.Store(int32(StateComplete))
		c.metrics.transition(old, StateComplete)
	}
}

// release cancels the work of a detached run and frees its devices.
func (c *Controller) release(r *run) {
	r.cancel()
	r.gate.Close()
	if err := r.recorder.Close(); err != nil {
		r.logger.Warn("failed to release microphone", slog.String("error", err.Error()))
	}

	r.logger.Info("interview session ended",
		slog.Int("answered", r.session.History.Len()),
		slog.Duration("elapsed", time.Since(r.session.StartedAt)))
}

// UserDone stops the answer being recorded. It does nothing unless the
// controller is waiting for the user and a recording is running.
func (c *Controller) UserDone() {
	c.mu.Lock()
	r := c.active
	waiting := c.waiting
	c.mu.Unlock()

	if r == nil || !waiting || !r.recorder.IsRecording() {
		c.logger.Debug("ignoring user done", slog.Bool("waiting", waiting))
		return
	}
	r.recorder.Stop()
}

// IsSessionActive reports whether a session is live.
func (c *Controller) IsSessionActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

// IsRecording reports whether an answer is being recorded.
func (c *Controller) IsRecording() bool {
	c.mu.Lock()
	r := c.active
	c.mu.Unlock()
	return r != nil && r.recorder.IsRecording()
}

// IsTTSSpeaking reports whether the system is speaking.
func (c *Controller) IsTTSSpeaking() bool {
	c.mu.Lock()
	r := c.active
	c.mu.Unlock()
	return r != nil && r.gate.IsSpeaking()
}

// IsWaitingForUserDone reports whether the controller is waiting for the
// user to finish an answer.
func (c *Controller) IsWaitingForUserDone() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waiting
}

// State returns the current controller state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Session returns a snapshot of the live session.
func (c *Controller) Session() (SessionInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return SessionInfo{}, false
	}
	s := c.active.session
	info := SessionInfo{
		ID:         s.ID,
		StartedAt:  s.StartedAt,
		Phase:      s.Phase.String(),
		Version:    s.Version,
		JobContext: s.JobContext,
		Exchanges:  s.History.All(),
	}
	for _, t := range s.Topics {
		info.Topics = append(info.Topics, t.Label)
	}
	return info, true
}

// begin installs a new run, ending the live one in the same critical section
// so concurrent starts cannot orphan each other.
func (c *Controller) begin(parent context.Context, labels []string, jobContext string, onUpdate func(Event)) *run {
	c.startMu.Lock()
	defer c.startMu.Unlock()

	c.emitMu.Lock()
	c.mu.Lock()
	prev := c.active
	if prev != nil {
		c.detach(prev)
	}
	r := c.install(parent, labels, jobContext, onUpdate)
	c.mu.Unlock()
	c.emitMu.Unlock()

	if prev != nil {
		prev.logger.Info("interview session superseded", slog.String("by", r.session.ID))
		c.release(prev)
	}
	return r
}

// install creates the run for a new session and makes it live. The caller
// holds mu.
func (c *Controller) install(parent context.Context, labels []string, jobContext string, onUpdate func(Event)) *run {
	v := c.version.Add(1)
	ctx, cancel := context.WithCancel(parent)
	s := newSession(v, labels, c.settings.MaxQuestionsPerTopic)
	s.JobContext = jobContext
	logger := c.logger.With(slog.String("session_id", s.ID))

	floor := voice.NewFloor()
	var detector vad.VAD
	if c.settings.AutoStopOnSilence {
		detector = c.cfg.VAD
	}

	r := &run{
		v:       v,
		ctx:     ctx,
		cancel:  cancel,
		session: s,
		gate: voice.NewAudioGate(c.cfg.TTS, c.cfg.Player, floor, voice.GateOptions{
			Voice:            c.settings.Voice,
			Language:         c.settings.Language,
			Speed:            c.settings.Speed,
			SynthesisTimeout: c.settings.TTSTimeout,
			Logger:           logger,
		}),
		recorder: voice.NewRecorder(c.cfg.Microphone, floor, voice.RecorderOptions{
			MaxDuration:    c.settings.MaxRecording,
			VAD:            detector,
			SilenceTimeout: c.settings.SilenceTimeout,
			Logger:         logger,
		}),
		stt: voice.NewTranscriber(c.cfg.STT, voice.TranscriberOptions{
			Language: c.settings.Language,
			Timeout:  c.settings.STTTimeout,
			Intents:  c.cfg.Intents,
			Logger:   logger,
		}),
		onUpdate: onUpdate,
		logger:   logger,
	}
	c.active = r
	c.waiting = false
	old := State(c.state.Swap(int32(StateInitializing)))
	c.metrics.transition(old, StateInitializing)
	c.metrics.SessionsStarted.Add(1)

	logger.Info("interview session started",
		slog.Int("topics", len(labels)),
		slog.Uint64("version", v))
	return r
}

func (c *Controller) loop(r *run) error {
	c.setPhase(r, PhaseWarming)
	c.setState(r, StateWarming)
	c.emit(r, Event{Type: EventSessionWarming, Message: c.settings.Messages.Warming})

	if err := c.warmUp(r); err != nil {
		return err
	}

	c.setPhase(r, PhaseRunning)
	for _, topic := range r.session.Topics {
		if err := c.runTopic(r, topic); err != nil {
			return err
		}
	}
	return c.finish(r)
}

// warmUp acquires the microphone, sanitizes the job context and speaks the
// introduction.
func (c *Controller) warmUp(r *run) error {
	ctx, cancel := context.WithTimeout(r.ctx, c.settings.InitTimeout)
	err := r.recorder.Acquire(ctx)
	timedOut := errors.Is(ctx.Err(), context.DeadlineExceeded)
	cancel()
	if !c.live(r) {
		return errEnded
	}
	if err != nil {
		if timedOut {
			err = errors.Join(ai.ErrTimeout, err)
		}
		return fmt.Errorf("acquire microphone: %w", err)
	}

	if err := c.sleep(r, c.settings.WarmupDelay); err != nil {
		return err
	}

	raw := r.session.JobContext
	llmCtx, cancel := context.WithTimeout(r.ctx, c.settings.LLMTimeout)
	clean, err := c.cfg.Coach.SanitizeContext(llmCtx, raw)
	cancel()
	if !c.live(r) {
		return errEnded
	}
	if err != nil || strings.TrimSpace(clean) == "" {
		r.logger.Warn("using raw job context", slog.Any("error", err))
		clean = c.fallbacks.Context(raw)
	}
	c.mu.Lock()
	r.session.JobContext = clean
	c.mu.Unlock()

	c.setPhase(r, PhaseIntroduction)
	c.setState(r, StateIntroduction)
	c.emit(r, Event{Type: EventSessionStarted})
	return c.speak(r, c.settings.Messages.Intro)
}

// runTopic asks the first question of a topic and, when the policy calls
// for it, a follow-up.
func (c *Controller) runTopic(r *run, topic *Topic) error {
	log := r.logger.With(slog.String("topic", topic.Label))
	if topic.Full() {
		log.Debug("topic already has its questions")
		return nil
	}

	question, err := c.planner.NextQuestion(r.ctx, topic, r.session.JobContext)
	if !c.live(r) {
		return errEnded
	}
	if err != nil {
		log.Info("skipping topic", slog.String("reason", err.Error()))
		return nil
	}

	ex, err := c.ask(r, topic, question)
	if errors.Is(err, errAbandoned) {
		log.Info("skipping topic without an answer")
		return nil
	}
	if err != nil {
		return err
	}

	d := c.planner.DecideFollowUp(FollowUpInput{Score: ex.Score, Answer: ex.Answer, Feedback: ex.ShortFeedback})
	if !d.Triggered() || topic.Full() {
		return nil
	}

	followUp, err := c.planner.NextQuestion(r.ctx, topic, r.session.JobContext)
	if !c.live(r) {
		return errEnded
	}
	if err != nil {
		log.Info("no distinct follow-up question", slog.String("reason", err.Error()))
		return nil
	}
	if _, err := c.ask(r, topic, followUp); err != nil && !errors.Is(err, errAbandoned) {
		return err
	}
	return nil
}

// ask runs one question until it has an evaluated answer. Empty or
// unintelligible answers are retried up to MaxAnswerAttempts; repeat and
// clarify requests re-speak the question up to MaxIntentTurns.
func (c *Controller) ask(r *run, topic *Topic, question string) (Exchange, error) {
	number := r.session.History.Len() + 1
	progress := fmt.Sprintf("%d/%d", topic.Count()+1, c.settings.MaxQuestionsPerTopic)
	c.metrics.QuestionsAsked.Add(1)

	attempts, intentTurns := 0, 0
	announce := true
	prompt := question
	for {
		if announce {
			attempts++
			c.setState(r, StateAsking)
			c.emit(r, Event{
				Type:           EventNewQuestion,
				Question:       question,
				QuestionNumber: number,
				Topic:          topic.Label,
				TopicProgress:  progress,
			})
		}
		announce = false

		if err := c.speak(r, prompt); err != nil {
			return Exchange{}, err
		}
		rec, err := c.listen(r)
		if err != nil {
			return Exchange{}, err
		}

		if rec.Empty() {
			if !c.retry(r, attempts, c.settings.Messages.NoAudio) {
				return Exchange{}, errAbandoned
			}
			announce, prompt = true, question
			continue
		}

		c.setState(r, StateProcessing)
		c.emit(r, Event{Type: EventProcessing})
		res := r.stt.Transcribe(r.ctx, rec)
		if !c.live(r) {
			return Exchange{}, errEnded
		}

		switch {
		case (res.Outcome == voice.OutcomeRepeat || res.Outcome == voice.OutcomeClarify) && intentTurns < c.settings.MaxIntentTurns:
			intentTurns++
			r.logger.Info("answer was a request about the question", slog.String("intent", res.Outcome.String()))
			prompt = question
			if res.Outcome == voice.OutcomeClarify {
				prompt = fmt.Sprintf(c.settings.Messages.Clarify, question)
			}
			continue
		case res.Outcome.Retry():
			r.logger.Info("answer not usable", slog.String("outcome", res.Outcome.String()), slog.Any("error", res.Err))
			if !c.retry(r, attempts, c.settings.Messages.Unclear) {
				return Exchange{}, errAbandoned
			}
			announce, prompt = true, question
			continue
		}

		return c.evaluate(r, topic, question, res.Text, number)
	}
}

// retry emits retry_needed and reports whether another attempt is allowed.
func (c *Controller) retry(r *run, attempts int, message string) bool {
	c.metrics.Retries.Add(1)
	c.emit(r, Event{Type: EventRetryNeeded, Message: message})
	return attempts < c.settings.MaxAnswerAttempts
}

// listen waits for the gate to go quiet and records one answer.
func (c *Controller) listen(r *run) (*audio.Recording, error) {
	if err := r.gate.WaitUntilIdle(r.ctx); err != nil || !c.live(r) {
		return nil, errEnded
	}

	c.setState(r, StateListening)
	c.emit(r, Event{Type: EventListening})
	c.setWaiting(r, true)
	rec, err := r.recorder.StartRecording(r.ctx)
	c.setWaiting(r, false)
	if !c.live(r) {
		return nil, errEnded
	}
	if err != nil {
		return nil, fmt.Errorf("record answer: %w", err)
	}
	return rec, nil
}

func (c *Controller) evaluate(r *run, topic *Topic, question, answer string, number int) (Exchange, error) {
	ctx, cancel := context.WithTimeout(r.ctx, c.settings.LLMTimeout)
	ev, err := c.cfg.Coach.EvaluateAnswer(ctx, question, answer)
	cancel()
	if !c.live(r) {
		return Exchange{}, errEnded
	}
	if err != nil {
		r.logger.Warn("using fallback evaluation", slog.String("error", err.Error()))
		ev = c.fallbacks.Evaluation()
	}
	if strings.TrimSpace(ev.ShortFeedback) == "" {
		ev.ShortFeedback = c.fallbacks.Feedback
	}
	ev.Score = max(0, min(100, ev.Score))

	topic.commit(question)
	ex := Exchange{
		Topic:         topic.Label,
		Question:      question,
		Answer:        answer,
		Score:         ev.Score,
		Strengths:     ev.Strengths,
		Fixes:         ev.Fixes,
		ShortFeedback: ev.ShortFeedback,
		At:            time.Now(),
	}
	r.session.History.append(ex)

	c.emit(r, Event{
		Type:           EventAnswerEvaluated,
		Question:       question,
		Answer:         answer,
		Feedback:       ev.ShortFeedback,
		Score:          ev.Score,
		QuestionNumber: number,
	})

	c.setState(r, StateFeedback)
	if err := c.speak(r, coach.Truncate(ev.ShortFeedback, coach.MaxFeedbackChars)); err != nil {
		return Exchange{}, err
	}
	return ex, nil
}

// finish requests the summary and emits session_end.
func (c *Controller) finish(r *run) error {
	total := r.session.History.Len()
	end := Event{Type: EventSessionEnd, TotalQuestions: total}

	if total > 0 {
		ctx, cancel := context.WithTimeout(r.ctx, c.settings.LLMTimeout)
		summary, err := c.cfg.Coach.GenerateSummary(ctx, r.session.History.coachItems())
		cancel()
		if !c.live(r) {
			return errEnded
		}
		if err != nil || strings.TrimSpace(summary) == "" {
			r.logger.Warn("using fallback summary", slog.Any("error", err))
			summary = c.fallbacks.Summary
		}
		end.FinalSummary = coach.Truncate(strings.TrimSpace(summary), coach.MaxSummaryChars)
	}

	c.setState(r, StateComplete)
	c.emit(r, end)
	c.metrics.SessionsCompleted.Add(1)
	return nil
}

// fail reports err to the observer as a terminal error event.
func (c *Controller) fail(r *run, err error) {
	c.setState(r, StateError)
	c.emit(r, Event{Type: EventError, Message: c.userMessage(err)})
}

func (c *Controller) userMessage(err error) string {
	m := c.settings.Messages
	switch {
	case errors.Is(err, voice.ErrPermissionDenied):
		return m.PermissionDenied
	case errors.Is(err, voice.ErrDeviceNotFound):
		return m.DeviceNotFound
	case errors.Is(err, voice.ErrDeviceInUse):
		return m.DeviceInUse
	case errors.Is(err, ai.ErrTimeout):
		return m.InitTimeout
	default:
		return m.Unexpected
	}
}

// speak plays text and waits until the gate is idle.
func (c *Controller) speak(r *run, text string) error {
	err := r.gate.Speak(r.ctx, text)
	if !c.live(r) {
		return errEnded
	}
	if err != nil {
		return fmt.Errorf("speak: %w", err)
	}
	if err := r.gate.WaitUntilIdle(r.ctx); err != nil || !c.live(r) {
		return errEnded
	}
	return nil
}

func (c *Controller) sleep(r *run, d time.Duration) error {
	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-r.ctx.Done():
		}
	}
	if !c.live(r) {
		return errEnded
	}
	return nil
}

// live reports whether r is still the current session.
func (c *Controller) live(r *run) bool {
	return c.version.Load() == r.v && r.ctx.Err() == nil
}

// emit delivers ev if r is still live. The check and the read of onUpdate
// happen under emitMu; the callback runs without it so it can end the
// session.
func (c *Controller) emit(r *run, ev Event) {
	c.emitMu.Lock()
	if !c.live(r) {
		c.emitMu.Unlock()
		return
	}
	onUpdate := r.onUpdate
	c.emitMu.Unlock()
	deliver(onUpdate, ev)
}

func deliver(onUpdate func(Event), ev Event) {
	if onUpdate != nil {
		onUpdate(ev)
	}
}

func (c *Controller) setState(r *run, s State) {
	c.mu.Lock()
	if c.version.Load() != r.v {
		c.mu.Unlock()
		return
	}
	old := State(c.state.Swap(int32(s)))
	c.mu.Unlock()

	if old != s {
		c.metrics.transition(old, s)
		r.logger.Debug("state transition",
			slog.String("from", old.String()),
			slog.String("to", s.String()))
	}
}

func (c *Controller) setPhase(r *run, p Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.version.Load() == r.v {
		r.session.Phase = p
	}
}

func (c *Controller) setWaiting(r *run, waiting bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.version.Load() == r.v {
		c.waiting = waiting
	}
}

func cleanTopics(topics []string) []string {
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
