package interview

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/chriscow/interview-agents-go/pkg/ai/coach"
	coachfake "github.com/chriscow/interview-agents-go/pkg/ai/coach/fake"
	sttfake "github.com/chriscow/interview-agents-go/pkg/ai/stt/fake"
	ttsfake "github.com/chriscow/interview-agents-go/pkg/ai/tts/fake"
	"github.com/chriscow/interview-agents-go/pkg/audio"
	"github.com/chriscow/interview-agents-go/pkg/voice"
	voicefake "github.com/chriscow/interview-agents-go/pkg/voice/fake"
)

const (
	leadershipQ = "Descreva um desafio de liderança."
	conflictQ   = "Como você lida com conflitos na equipe?"
	jobContext  = "Vaga de PM em fintech"
)

// events collects what a session delivers, in order.
type events struct {
	mu   sync.Mutex
	list []Event
	hook func(Event)
}

func (e *events) add(ev Event) {
	e.mu.Lock()
	e.list = append(e.list, ev)
	hook := e.hook
	e.mu.Unlock()
	if hook != nil {
		hook(ev)
	}
}

func (e *events) all() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Event(nil), e.list...)
}

func (e *events) types() []EventType {
	var out []EventType
	for _, ev := range e.all() {
		out = append(out, ev.Type)
	}
	return out
}

func (e *events) of(t EventType) []Event {
	var out []Event
	for _, ev := range e.all() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

type harness struct {
	coach  *coachfake.Coach
	stt    *sttfake.FakeSTT
	tts    *ttsfake.FakeTTS
	mic    voice.Microphone
	player *voicefake.Player
	cfg    Config
}

func newHarness() *harness {
	h := &harness{
		coach: &coachfake.Coach{
			Questions:   []string{leadershipQ, conflictQ},
			Evaluations: []coach.Evaluation{{Score: 85, ShortFeedback: "Ótima resposta, bem estruturada."}},
			Summary:     "## Resumo\nBoa comunicação.",
		},
		stt:    sttfake.NewFakeSTT(),
		tts:    ttsfake.NewFakeTTS(),
		mic:    &voicefake.Microphone{Interval: 2 * time.Millisecond, Amplitude: 800},
		player: &voicefake.Player{Delay: time.Millisecond},
	}
	h.cfg = Config{
		Settings: Settings{
			InitTimeout:  time.Second,
			WarmupDelay:  0,
			MaxRecording: 30 * time.Millisecond,
		},
	}
	return h
}

func (h *harness) controller(t *testing.T) *Controller {
	t.Helper()
	cfg := h.cfg
	cfg.TTS = h.tts
	cfg.Player = h.player
	cfg.STT = h.stt
	cfg.Microphone = h.mic
	cfg.Coach = h.coach
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func runSession(t *testing.T, c *Controller, topics []string, ev *events) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- c.StartSession(context.Background(), topics, jobContext, ev.add) }()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish")
		return nil
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	is := is.New(t)

	_, err := New(Config{})
	is.True(err != nil)

	h := newHarness()
	cfg := Config{TTS: h.tts, Player: h.player, STT: h.stt, Microphone: h.mic}
	_, err = New(cfg)
	is.Equal(err.Error(), "coach is required")
}

func TestScenarioHighScoreNoFollowUp(t *testing.T) {
	is := is.New(t)

	h := newHarness()
	c := h.controller(t)
	ev := &events{}

	err := runSession(t, c, []string{"Liderança"}, ev)
	is.NoErr(err)

	is.Equal(ev.types(), []EventType{
		EventSessionWarming,
		EventSessionStarted,
		EventNewQuestion,
		EventListening,
		EventProcessing,
		EventAnswerEvaluated,
		EventSessionEnd,
	})

	all := ev.all()
	q := all[2]
	is.Equal(q.Question, leadershipQ)
	is.Equal(q.QuestionNumber, 1)
	is.Equal(q.Topic, "Liderança")
	is.Equal(q.TopicProgress, "1/2")

	a := all[5]
	is.Equal(a.QuestionNumber, 1)
	is.Equal(a.Score, 85)
	is.Equal(a.Answer, sttfake.DefaultTranscript)

	end := all[6]
	is.Equal(end.TotalQuestions, 1)
	is.Equal(end.FinalSummary, "## Resumo\nBoa comunicação.")

	is.True(!c.IsSessionActive())
	is.Equal(c.State(), StateComplete)
	is.Equal(h.mic.(*voicefake.Microphone).Closes(), 1)

	played := h.player.Played()
	is.Equal(played[0], DefaultMessages.Intro)
	is.Equal(played[1], leadershipQ)
	is.Equal(played[2], "Ótima resposta, bem estruturada.")
}

func TestScenarioLowScoreAsksFollowUp(t *testing.T) {
	is := is.New(t)

	h := newHarness()
	h.coach.Evaluations = []coach.Evaluation{{Score: 50, ShortFeedback: "Resposta razoável."}}
	c := h.controller(t)
	ev := &events{}

	is.NoErr(runSession(t, c, []string{"Liderança"}, ev))

	questions := ev.of(EventNewQuestion)
	is.Equal(len(questions), 2)
	is.Equal(questions[0].QuestionNumber, 1)
	is.Equal(questions[1].QuestionNumber, 2)
	is.Equal(questions[1].Question, conflictQ)
	is.Equal(questions[1].Topic, "Liderança")
	is.Equal(questions[1].TopicProgress, "2/2")

	ends := ev.of(EventSessionEnd)
	is.Equal(len(ends), 1)
	is.Equal(ends[0].TotalQuestions, 2)

	types := ev.types()
	is.Equal(types[len(types)-1], EventSessionEnd)
}

func TestAtMostTwoQuestionsPerTopicWithoutDuplicates(t *testing.T) {
	is := is.New(t)

	h := newHarness()
	n := 0
	h.coach.QuestionFunc = func(req coach.QuestionRequest) (coach.QuestionResult, error) {
		n++
		if n%2 == 0 {
			// Offer a duplicate every other call.
			if len(req.Asked) > 0 {
				return coach.QuestionResult{Question: strings.ToUpper(req.Asked[0]) + "?"}, nil
			}
		}
		return coach.QuestionResult{Question: req.Topic + " pergunta " + string(rune('A'+n))}, nil
	}
	h.coach.Evaluations = []coach.Evaluation{{Score: 10, ShortFeedback: "Detalhe mais."}}
	c := h.controller(t)
	ev := &events{}

	topics := []string{"Liderança", "Conflitos", "Métricas"}
	is.NoErr(runSession(t, c, topics, ev))

	perTopic := map[string]int{}
	seen := map[string]bool{}
	for _, q := range ev.of(EventNewQuestion) {
		perTopic[q.Topic]++
		norm := Normalize(q.Question)
		is.True(!seen[norm]) // duplicate question asked
		seen[norm] = true
	}
	for _, topic := range topics {
		is.Equal(perTopic[topic], 2)
	}
	is.Equal(ev.of(EventSessionEnd)[0].TotalQuestions, 6)
}

func TestDuplicateGenerationSkipsTopic(t *testing.T) {
	is := is.New(t)

	h := newHarness()
	h.coach.Questions = []string{leadershipQ}
	h.coach.Evaluations = []coach.Evaluation{{Score: 40, ShortFeedback: "Pode melhorar."}}
	c := h.controller(t)
	ev := &events{}

	is.NoErr(runSession(t, c, []string{"Liderança", "Conflitos"}, ev))

	// Leadership gets one question; its follow-up is a duplicate three times.
	// Conflicts gets the same text once, then duplicates again.
	questions := ev.of(EventNewQuestion)
	is.Equal(len(questions), 2)
	is.Equal(questions[0].Topic, "Liderança")
	is.Equal(questions[1].Topic, "Conflitos")
	is.Equal(ev.of(EventSessionEnd)[0].TotalQuestions, 2)
}

func TestTopicSkippedWhenGenerationFails(t *testing.T) {
	is := is.New(t)

	h := newHarness()
	boom := errors.New("model unavailable")
	h.coach.QuestionErrs = []error{boom, boom, boom}
	c := h.controller(t)
	ev := &events{}

	is.NoErr(runSession(t, c, []string{"Liderança", "Conflitos"}, ev))

	questions := ev.of(EventNewQuestion)
	is.Equal(len(questions), 1)
	is.Equal(questions[0].Topic, "Conflitos")
}

func TestRecordingAndSpeechNeverOverlap(t *testing.T) {
	is := is.New(t)

	h := newHarness()
	h.coach.Evaluations = []coach.Evaluation{{Score: 50, ShortFeedback: "Explique melhor."}}
	var c *Controller
	var mu sync.Mutex
	violations := 0
	h.player.OnPlay = func(string) {
		if c.IsRecording() {
			mu.Lock()
			violations++
			mu.Unlock()
		}
	}
	c = h.controller(t)
	ev := &events{hook: func(e Event) {
		if e.Type == EventListening && c.IsTTSSpeaking() {
			mu.Lock()
			violations++
			mu.Unlock()
		}
	}}

	is.NoErr(runSession(t, c, []string{"Liderança", "Conflitos"}, ev))

	mu.Lock()
	defer mu.Unlock()
	is.Equal(violations, 0)
	is.Equal(h.player.Overlaps(), 0)
}

func TestEndSessionStopsEvents(t *testing.T) {
	is := is.New(t)

	h := newHarness()
	h.cfg.Settings.MaxRecording = time.Minute
	c := h.controller(t)

	ended := make(chan int, 1)
	ev := &events{}
	ev.hook = func(e Event) {
		if e.Type == EventListening {
			go func() {
				for !c.IsRecording() {
					time.Sleep(time.Millisecond)
				}
				c.EndSession()
				ended <- len(ev.all())
			}()
		}
	}

	err := runSession(t, c, []string{"Liderança", "Conflitos"}, ev)
	is.NoErr(err)

	count := <-ended
	time.Sleep(20 * time.Millisecond)
	is.Equal(len(ev.all()), count) // events delivered after EndSession
	is.Equal(ev.types()[count-1], EventListening)
	is.Equal(len(ev.of(EventSessionEnd)), 0)
	is.True(!c.IsSessionActive())
	is.True(!c.IsRecording())
	is.True(!c.IsWaitingForUserDone())
	is.Equal(h.mic.(*voicefake.Microphone).Closes(), 1)
	is.Equal(h.coach.EvaluationCount(), 0)
}

func TestEndSessionIsIdempotent(t *testing.T) {
	is := is.New(t)

	h := newHarness()
	c := h.controller(t)

	c.EndSession()
	c.EndSession()
	is.True(!c.IsSessionActive())

	is.NoErr(runSession(t, c, []string{"Liderança"}, &events{}))
	c.EndSession()
	c.EndSession()
	is.True(!c.IsSessionActive())
	is.Equal(h.mic.(*voicefake.Microphone).Closes(), 1)
}

func TestContextCancellationEndsSession(t *testing.T) {
	is := is.New(t)

	h := newHarness()
	h.cfg.Settings.MaxRecording = time.Minute
	c := h.controller(t)

	ctx, cancel := context.WithCancel(context.Background())
	ev := &events{hook: func(e Event) {
		if e.Type == EventListening {
			go func() {
				time.Sleep(10 * time.Millisecond)
				cancel()
			}()
		}
	}}

	err := c.StartSession(ctx, []string{"Liderança"}, jobContext, ev.add)
	is.True(errors.Is(err, context.Canceled))
	is.True(!c.IsSessionActive())
	is.Equal(len(ev.of(EventSessionEnd)), 0)
}

func TestUserDoneStopsRecording(t *testing.T) {
	is := is.New(t)

	h := newHarness()
	h.cfg.Settings.MaxRecording = time.Minute
	c := h.controller(t)

	c.UserDone() // no session, no-op

	ev := &events{}
	ev.hook = func(e Event) {
		if e.Type == EventListening {
			go func() {
				for !c.IsRecording() {
					time.Sleep(time.Millisecond)
				}
				if !c.IsWaitingForUserDone() {
					t.Error("expected controller to wait for the user")
				}
				time.Sleep(10 * time.Millisecond)
				c.UserDone()
			}()
		}
	}

	is.NoErr(runSession(t, c, []string{"Liderança"}, ev))
	is.Equal(ev.of(EventAnswerEvaluated)[0].Score, 85)
	is.True(h.stt.LastRecordingBytes() > 0)
}

func TestEmptyRecordingRetriesThenSkipsTopic(t *testing.T) {
	is := is.New(t)

	h := newHarness()
	h.mic = &voicefake.Microphone{Silent: true}
	c := h.controller(t)
	ev := &events{}

	is.NoErr(runSession(t, c, []string{"Liderança"}, ev))

	retries := ev.of(EventRetryNeeded)
	is.Equal(len(retries), 3)
	is.Equal(retries[0].Message, DefaultMessages.NoAudio)
	is.Equal(len(ev.of(EventNewQuestion)), 3)
	for _, q := range ev.of(EventNewQuestion) {
		is.Equal(q.QuestionNumber, 1)
	}
	is.Equal(h.stt.Calls(), 0)

	end := ev.of(EventSessionEnd)[0]
	is.Equal(end.TotalQuestions, 0)
	is.Equal(end.FinalSummary, "")
	is.Equal(len(h.coach.Summaries()), 0)
}

func TestUnclearTranscriptIsRetried(t *testing.T) {
	is := is.New(t)

	h := newHarness()
	h.stt = sttfake.NewScriptedSTT(
		sttfake.Response{Text: "Thanks for watching!"},
		sttfake.Response{Text: sttfake.DefaultTranscript, Confidence: sttfake.Confidence(0.2)},
		sttfake.Response{Text: sttfake.DefaultTranscript, Confidence: sttfake.Confidence(0.9)},
	)
	c := h.controller(t)
	ev := &events{}

	is.NoErr(runSession(t, c, []string{"Liderança"}, ev))

	retries := ev.of(EventRetryNeeded)
	is.Equal(len(retries), 2)
	is.Equal(retries[0].Message, DefaultMessages.Unclear)
	is.Equal(len(ev.of(EventAnswerEvaluated)), 1)
	is.Equal(ev.of(EventSessionEnd)[0].TotalQuestions, 1)
}

func TestRepeatAndClarifyIntents(t *testing.T) {
	is := is.New(t)

	h := newHarness()
	h.stt = sttfake.NewFakeSTT("Pode repetir a pergunta?", "Não entendi a pergunta", sttfake.DefaultTranscript)
	c := h.controller(t)
	ev := &events{}

	is.NoErr(runSession(t, c, []string{"Liderança"}, ev))

	is.Equal(len(ev.of(EventNewQuestion)), 1)
	is.Equal(len(ev.of(EventRetryNeeded)), 0)
	is.Equal(len(ev.of(EventListening)), 3)
	is.Equal(ev.of(EventSessionEnd)[0].TotalQuestions, 1)

	played := h.player.Played()
	is.Equal(played[1], leadershipQ)
	is.Equal(played[2], leadershipQ)
	is.True(strings.HasPrefix(played[3], "Vou reformular: "+leadershipQ))
}

func TestCoachFailuresUseFallbacks(t *testing.T) {
	is := is.New(t)

	h := newHarness()
	boom := errors.New("model unavailable")
	h.coach.SanitizeErr = boom
	h.coach.EvaluateErr = boom
	h.coach.SummaryErr = boom
	c := h.controller(t)
	ev := &events{}

	is.NoErr(runSession(t, c, []string{"Liderança"}, ev))

	a := ev.of(EventAnswerEvaluated)[0]
	is.Equal(a.Score, coach.DefaultFallbacks.Score)
	is.Equal(a.Feedback, coach.DefaultFallbacks.Feedback)

	end := ev.of(EventSessionEnd)[0]
	is.Equal(end.FinalSummary, coach.DefaultFallbacks.Summary)
	is.Equal(h.coach.QuestionCalls()[0].Context, jobContext)
}

func TestDeviceErrorEndsSession(t *testing.T) {
	tests := []struct {
		kind    error
		message string
	}{
		{voice.ErrPermissionDenied, DefaultMessages.PermissionDenied},
		{voice.ErrDeviceNotFound, DefaultMessages.DeviceNotFound},
		{voice.ErrDeviceInUse, DefaultMessages.DeviceInUse},
	}
	for _, tt := range tests {
		t.Run(tt.kind.Error(), func(t *testing.T) {
			is := is.New(t)

			h := newHarness()
			h.mic = &voicefake.Microphone{OpenErr: voice.NewDeviceError(tt.kind, "test", nil)}
			c := h.controller(t)
			ev := &events{}

			err := runSession(t, c, []string{"Liderança"}, ev)
			is.True(errors.Is(err, tt.kind))
			is.Equal(ev.types(), []EventType{EventSessionWarming, EventError})
			is.Equal(ev.of(EventError)[0].Message, tt.message)
			is.Equal(c.State(), StateError)
			is.True(!c.IsSessionActive())
		})
	}
}

// stuckMicrophone never finishes opening.
type stuckMicrophone struct{}

func (stuckMicrophone) Open(ctx context.Context) (<-chan audio.Frame, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (stuckMicrophone) Close() error { return nil }

func TestInitTimeoutIsTerminal(t *testing.T) {
	is := is.New(t)

	h := newHarness()
	h.mic = stuckMicrophone{}
	h.cfg.Settings.InitTimeout = 20 * time.Millisecond
	c := h.controller(t)
	ev := &events{}

	err := runSession(t, c, []string{"Liderança"}, ev)
	is.True(err != nil)
	is.Equal(ev.types(), []EventType{EventSessionWarming, EventError})
	is.Equal(ev.of(EventError)[0].Message, DefaultMessages.InitTimeout)
	is.Equal(c.State(), StateError)
}

func TestPanicIsRecovered(t *testing.T) {
	is := is.New(t)

	h := newHarness()
	h.coach.EvaluateFunc = func(string, string) (coach.Evaluation, error) {
		panic("evaluator exploded")
	}
	c := h.controller(t)
	ev := &events{}

	err := runSession(t, c, []string{"Liderança"}, ev)
	is.True(err != nil)
	errs := ev.of(EventError)
	is.Equal(len(errs), 1)
	is.Equal(errs[0].Message, DefaultMessages.Unexpected)
	is.True(!c.IsSessionActive())
	is.Equal(h.mic.(*voicefake.Microphone).Closes(), 1)
}

func TestStartSessionValidatesInput(t *testing.T) {
	is := is.New(t)

	c := newHarness().controller(t)

	ev := &events{}
	err := c.StartSession(context.Background(), []string{" ", ""}, jobContext, ev.add)
	is.True(errors.Is(err, ErrNoTopics))
	is.Equal(ev.types(), []EventType{EventError})

	ev = &events{}
	err = c.StartSession(context.Background(), []string{"Liderança"}, "  ", ev.add)
	is.True(errors.Is(err, ErrNoJobContext))
	is.Equal(ev.of(EventError)[0].Message, DefaultMessages.NoJobContext)
}

func TestStartSessionSupersedesLiveSession(t *testing.T) {
	is := is.New(t)

	h := newHarness()
	h.cfg.Settings.MaxRecording = time.Minute
	c := h.controller(t)

	first := &events{}
	listening := make(chan struct{}, 1)
	first.hook = func(e Event) {
		if e.Type == EventListening {
			listening <- struct{}{}
		}
	}
	firstDone := make(chan error, 1)
	go func() { firstDone <- c.StartSession(context.Background(), []string{"Liderança"}, jobContext, first.add) }()
	<-listening

	second := &events{}
	c2done := make(chan error, 1)
	go func() { c2done <- c.StartSession(context.Background(), []string{"Conflitos"}, jobContext, second.add) }()

	is.NoErr(<-firstDone)
	firstCount := len(first.all())
	// Recordings last a minute here, so end the second session by hand.
	for !c.IsRecording() {
		time.Sleep(time.Millisecond)
	}
	c.EndSession()
	is.NoErr(<-c2done)

	is.Equal(len(first.all()), firstCount)
	is.Equal(len(first.of(EventSessionEnd)), 0)
	is.Equal(second.types()[0], EventSessionWarming)
	is.Equal(second.of(EventNewQuestion)[0].Topic, "Conflitos")
}

func TestConcurrentStartsLeaveNoOrphan(t *testing.T) {
	is := is.New(t)

	h := newHarness()
	h.cfg.Settings.MaxRecording = time.Minute
	mic := h.mic.(*voicefake.Microphone)

	// The first Stop belongs to the teardown of the first session; hold it
	// so a third start arrives during the hand-over.
	inStop := make(chan struct{})
	releaseStop := make(chan struct{})
	var stopOnce sync.Once
	h.player.OnStop = func() {
		held := false
		stopOnce.Do(func() { held = true })
		if held {
			close(inStop)
			<-releaseStop
		}
	}
	c := h.controller(t)

	start := func(topic string, ev *events) chan error {
		done := make(chan error, 1)
		go func() { done <- c.StartSession(context.Background(), []string{topic}, jobContext, ev.add) }()
		return done
	}

	listening := make(chan struct{}, 1)
	first := &events{hook: func(e Event) {
		if e.Type == EventListening {
			listening <- struct{}{}
		}
	}}
	firstDone := start("Liderança", first)
	<-listening

	secondDone := start("Conflitos", &events{})
	<-inStop
	third := &events{}
	thirdDone := start("Negociação", third)
	time.Sleep(20 * time.Millisecond)
	close(releaseStop)

	is.NoErr(<-firstDone)
	is.NoErr(<-secondDone)

	deadline := time.Now().Add(5 * time.Second)
	for len(third.of(EventListening)) == 0 || !c.IsRecording() {
		if time.Now().After(deadline) {
			t.Fatal("last session never started listening")
		}
		time.Sleep(time.Millisecond)
	}
	info, ok := c.Session()
	is.True(ok)
	is.Equal(info.Topics, []string{"Negociação"})

	c.EndSession()
	is.NoErr(<-thirdDone)

	is.True(!c.IsSessionActive())
	is.Equal(mic.Opens(), mic.Closes()) // every run released its microphone
}

func TestEndSessionFromCallback(t *testing.T) {
	is := is.New(t)

	h := newHarness()
	c := h.controller(t)

	ev := &events{}
	ev.hook = func(e Event) {
		if e.Type == EventAnswerEvaluated {
			c.EndSession()
		}
	}

	err := runSession(t, c, []string{"Liderança", "Conflitos"}, ev)
	is.NoErr(err)

	types := ev.types()
	is.Equal(types[len(types)-1], EventAnswerEvaluated)
	is.Equal(len(ev.of(EventAnswerEvaluated)), 1)
	is.Equal(len(ev.of(EventSessionEnd)), 0)
	is.True(!c.IsSessionActive())
	is.Equal(h.mic.(*voicefake.Microphone).Closes(), 1)
	is.Equal(len(h.coach.Summaries()), 0)
}

func TestSessionSnapshotAndMetrics(t *testing.T) {
	is := is.New(t)

	h := newHarness()
	c := h.controller(t)

	_, ok := c.Session()
	is.True(!ok)

	var snapshot SessionInfo
	ev := &events{hook: func(e Event) {
		if e.Type == EventListening {
			snapshot, _ = c.Session()
		}
	}}
	is.NoErr(runSession(t, c, []string{"Liderança"}, ev))

	is.True(snapshot.ID != "")
	is.Equal(snapshot.Topics, []string{"Liderança"})
	is.Equal(snapshot.Phase, PhaseRunning.String())
	is.Equal(snapshot.JobContext, jobContext)

	m := c.Metrics()
	is.Equal(m.SessionsStarted.Value(), int64(1))
	is.Equal(m.SessionsCompleted.Value(), int64(1))
	is.Equal(m.QuestionsAsked.Value(), int64(1))
	is.True(m.StateTransitions.Get("Listening_to_Processing") != nil)
}

func TestEventJSON(t *testing.T) {
	is := is.New(t)

	b, err := json.Marshal(Event{Type: EventAnswerEvaluated, Question: "q", Answer: "a", Feedback: "f", Score: 0, QuestionNumber: 1})
	is.NoErr(err)
	is.Equal(string(b), `{"answer":"a","feedback":"f","question":"q","questionNumber":1,"score":0,"type":"answer_evaluated"}`)

	b, err = json.Marshal(Event{Type: EventSessionEnd, TotalQuestions: 0})
	is.NoErr(err)
	is.Equal(string(b), `{"totalQuestions":0,"type":"session_end"}`)

	b, err = json.Marshal(Event{Type: EventListening, Question: "ignored"})
	is.NoErr(err)
	is.Equal(string(b), `{"type":"listening"}`)

	var back Event
	is.NoErr(json.Unmarshal([]byte(`{"type":"new_question","question":"q","questionNumber":2,"topic":"t","topicProgress":"2/2"}`), &back))
	is.Equal(back, Event{Type: EventNewQuestion, Question: "q", QuestionNumber: 2, Topic: "t", TopicProgress: "2/2"})
}
