package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/spf13/cobra"

	"github.com/chriscow/interview-agents-go/internal/config"
	"github.com/chriscow/interview-agents-go/pkg/ai/coach"
	"github.com/chriscow/interview-agents-go/pkg/ai/stt"
	sttfake "github.com/chriscow/interview-agents-go/pkg/ai/stt/fake"
	"github.com/chriscow/interview-agents-go/pkg/audio"
	"github.com/chriscow/interview-agents-go/pkg/device"
	"github.com/chriscow/interview-agents-go/pkg/interview"
	voicefake "github.com/chriscow/interview-agents-go/pkg/voice/fake"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fakeConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Providers.STT = config.ProviderConfig{Name: "fake"}
	cfg.Providers.TTS = config.ProviderConfig{Name: "fake"}
	cfg.Providers.LLM = config.ProviderConfig{Name: "fake"}
	cfg.Providers.VAD = config.ProviderConfig{Name: "fake"}
	cfg.Interview.WarmupDelay = 0
	cfg.Interview.MaxRecording = 30 * time.Millisecond
	return cfg
}

func TestSimulatedInterview(t *testing.T) {
	is := is.New(t)

	out := &syncBuffer{}
	mic := &voicefake.Microphone{Interval: 2 * time.Millisecond, Amplitude: 1200}
	player := &device.HeadlessPlayer{Output: out}

	ctrl, err := buildController(fakeConfig(), mic, player, scriptedCoach(90), discardLogger())
	is.NoErr(err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = runSession(ctx, ctrl, []string{"Liderança", "Negociação"}, "Analista de dados na Acme", out)
	is.NoErr(err)

	text := out.String()
	is.True(strings.Contains(text, "Pergunta 1: Conte sobre uma experiência sua com liderança."))
	is.True(strings.Contains(text, "Pergunta 2: Conte sobre uma experiência sua com negociação."))
	is.True(strings.Contains(text, "Nota: 90"))
	is.True(strings.Contains(text, "Fim da simulação: 2 perguntas respondidas."))
	is.True(strings.Contains(text, "Tio Tor: "+interview.DefaultMessages.Intro))
	is.Equal(ctrl.State(), interview.StateComplete)
}

func TestRunSessionReportsErrors(t *testing.T) {
	is := is.New(t)

	ctrl, err := buildController(fakeConfig(), &voicefake.Microphone{}, &device.HeadlessPlayer{}, scriptedCoach(80), discardLogger())
	is.NoErr(err)

	var out bytes.Buffer
	err = runSession(context.Background(), ctrl, nil, "Analista na Acme", &out)
	is.True(err != nil)
	is.True(strings.Contains(out.String(), "Erro: "))
}

func TestBuildControllerUnknownProvider(t *testing.T) {
	is := is.New(t)

	cfg := fakeConfig()
	cfg.Providers.STT.Name = "nope"
	_, err := buildController(cfg, &voicefake.Microphone{}, &device.HeadlessPlayer{}, scriptedCoach(80), discardLogger())
	is.True(err != nil)
	is.True(strings.Contains(err.Error(), `no stt plugin named "nope"`))
}

func TestBuildControllerUsesConfiguredCoach(t *testing.T) {
	is := is.New(t)

	cfg := fakeConfig()
	cfg.Providers.LLM = config.ProviderConfig{Name: "fake", Options: map[string]any{
		"responses": []any{`{"contexto":"Analista na Acme"}`},
	}}
	ctrl, err := buildController(cfg, &voicefake.Microphone{}, &device.HeadlessPlayer{}, nil, discardLogger())
	is.NoErr(err)
	is.True(ctrl != nil)
}

func TestScriptedCoach(t *testing.T) {
	is := is.New(t)

	c := scriptedCoach(70)
	ctx := context.Background()

	first, err := c.GenerateQuestion(ctx, coach.QuestionRequest{Topic: "Liderança"})
	is.NoErr(err)
	is.Equal(first.Question, "Conte sobre uma experiência sua com liderança.")

	second, err := c.GenerateQuestion(ctx, coach.QuestionRequest{Topic: "Liderança", Asked: []string{first.Question}})
	is.NoErr(err)
	is.True(second.Question != first.Question)

	eval, err := c.EvaluateAnswer(ctx, first.Question, "resposta")
	is.NoErr(err)
	is.Equal(eval.Score, 70)
}

func TestSessionInput(t *testing.T) {
	is := is.New(t)

	newCmd := func() *cobra.Command {
		cmd := &cobra.Command{Use: "x"}
		addSessionFlags(cmd)
		return cmd
	}
	cfg := config.DefaultConfig()
	cfg.Interview.JobContext = "Gerente na Acme"

	topics, job := sessionInput(newCmd(), cfg)
	is.Equal(topics, cfg.Interview.Topics)
	is.Equal(job, "Gerente na Acme")

	cmd := newCmd()
	is.NoErr(cmd.ParseFlags([]string{"--topic", "Vendas", "--topic", "Ética", "--job", "Vendedor na Beta"}))
	topics, job = sessionInput(cmd, cfg)
	is.Equal(topics, []string{"Vendas", "Ética"})
	is.Equal(job, "Vendedor na Beta")
}

func TestPrintEvent(t *testing.T) {
	tests := []struct {
		ev   interview.Event
		want string
	}{
		{interview.Event{Type: interview.EventNewQuestion, Topic: "Liderança", TopicProgress: "1/2", QuestionNumber: 3, Question: "Q?"}, "[Liderança 1/2] Pergunta 3: Q?"},
		{interview.Event{Type: interview.EventRetryNeeded, Message: "Não entendi"}, "! Não entendi"},
		{interview.Event{Type: interview.EventAnswerEvaluated, Answer: "A", Score: 72, Feedback: "Bom"}, "Nota: 72 - Bom"},
		{interview.Event{Type: interview.EventSessionEnd, TotalQuestions: 4, FinalSummary: "Resumo"}, "4 perguntas respondidas"},
		{interview.Event{Type: interview.EventError, Message: "falhou"}, "Erro: falhou"},
	}
	for _, tt := range tests {
		t.Run(string(tt.ev.Type), func(t *testing.T) {
			var buf bytes.Buffer
			printEvent(&buf, tt.ev)
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("printEvent() = %q, want it to contain %q", buf.String(), tt.want)
			}
		})
	}
}

func TestSavingSTTWritesAnswers(t *testing.T) {
	is := is.New(t)

	dir := t.TempDir()
	s := &savingSTT{STT: sttfake.NewFakeSTT("olá"), dir: dir, logger: discardLogger()}

	rec := audio.NewRecording(audio.DefaultSampleRate, audio.DefaultNumChannels)
	rec.Append(audio.Frame{Data: make([]byte, 320), SampleRate: audio.DefaultSampleRate, NumChannels: audio.DefaultNumChannels})

	got, err := s.Transcribe(context.Background(), rec, stt.TranscribeOptions{})
	is.NoErr(err)
	is.Equal(got.Text, "olá")

	files, err := filepath.Glob(filepath.Join(dir, "answer-*.wav"))
	is.NoErr(err)
	is.Equal(len(files), 1)
	info, err := os.Stat(files[0])
	is.NoErr(err)
	is.True(info.Size() > 44)

	_, err = s.Transcribe(context.Background(), audio.NewRecording(audio.DefaultSampleRate, audio.DefaultNumChannels), stt.TranscribeOptions{})
	is.NoErr(err)
	files, _ = filepath.Glob(filepath.Join(dir, "answer-*.wav"))
	is.Equal(len(files), 1)
}
