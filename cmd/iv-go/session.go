package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chriscow/interview-agents-go/internal/config"
	"github.com/chriscow/interview-agents-go/pkg/ai/coach"
	coachfake "github.com/chriscow/interview-agents-go/pkg/ai/coach/fake"
	"github.com/chriscow/interview-agents-go/pkg/ai/stt"
	"github.com/chriscow/interview-agents-go/pkg/audio"
	"github.com/chriscow/interview-agents-go/pkg/audio/wav"
	"github.com/chriscow/interview-agents-go/pkg/device"
	"github.com/chriscow/interview-agents-go/pkg/interview"
	"github.com/chriscow/interview-agents-go/pkg/plugin"
	"github.com/chriscow/interview-agents-go/pkg/version"
	"github.com/chriscow/interview-agents-go/pkg/voice"
	voicefake "github.com/chriscow/interview-agents-go/pkg/voice/fake"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an interview on this machine",
	Long: `Run an interview with the configured providers. Press Enter when you
finish an answer; Ctrl+C ends the session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := setupLogger()
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		topics, jobContext := sessionInput(cmd, cfg)

		headless, _ := cmd.Flags().GetBool("headless")
		if input, _ := cmd.Flags().GetString("input"); input != "" {
			cfg.Audio.InputFile = input
			headless = true
		}
		if headless {
			cfg.Audio.Backend = config.BackendHeadless
		}
		if dir, _ := cmd.Flags().GetString("save-answers"); dir != "" {
			cfg.Audio.SaveAnswers = dir
		}

		mic, player, err := openDevices(cfg, logger)
		if err != nil {
			return err
		}

		ctrl, err := buildController(cfg, mic, player, nil, logger)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		logger.Info("Starting interview", append(version.LogAttrs(),
			slog.Any("topics", topics),
			slog.String("audio", cfg.Audio.Backend))...)

		go watchEnter(ctx, os.Stdin, ctrl)
		return runSession(ctx, ctrl, topics, jobContext, os.Stdout)
	},
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a complete interview offline with fake providers",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := setupLogger()
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		topics, jobContext := sessionInput(cmd, cfg)
		scale, _ := cmd.Flags().GetFloat64("playback-scale")
		score, _ := cmd.Flags().GetInt("score")

		cfg.Providers.STT = config.ProviderConfig{Name: "fake"}
		cfg.Providers.TTS = config.ProviderConfig{Name: "fake"}
		cfg.Providers.VAD = config.ProviderConfig{Name: "fake"}
		cfg.Interview.WarmupDelay = 0
		if cfg.Interview.MaxRecording > time.Second {
			cfg.Interview.MaxRecording = 200 * time.Millisecond
		}

		mic := &voicefake.Microphone{Amplitude: 1200}
		player := &device.HeadlessPlayer{Scale: scale, Output: os.Stdout, Logger: logger}

		ctrl, err := buildController(cfg, mic, player, scriptedCoach(score), logger)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return runSession(ctx, ctrl, topics, jobContext, os.Stdout)
	},
}

func addSessionFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("topic", nil, "Interview topic (repeatable; default from config)")
	cmd.Flags().String("job", "", "Company and role of the job (default from config)")
}

func sessionInput(cmd *cobra.Command, cfg *config.Config) ([]string, string) {
	topics, _ := cmd.Flags().GetStringSlice("topic")
	if len(topics) == 0 {
		topics = cfg.Interview.Topics
	}
	job, _ := cmd.Flags().GetString("job")
	if job == "" {
		job = cfg.Interview.JobContext
	}
	return topics, job
}

// openDevices picks the microphone and player for the configured backend.
func openDevices(cfg *config.Config, logger *slog.Logger) (voice.Microphone, voice.Player, error) {
	if cfg.Audio.Backend == config.BackendHeadless {
		player := &device.HeadlessPlayer{Scale: cfg.Audio.PlaybackScale, Output: os.Stdout, Logger: logger}
		if cfg.Audio.InputFile == "" {
			return nil, nil, fmt.Errorf("headless audio needs an input WAV file (--input or audio.input_file)")
		}
		return &device.FileMicrophone{Path: cfg.Audio.InputFile}, player, nil
	}

	if !device.Available {
		return nil, nil, fmt.Errorf("this binary was built without native audio; rebuild with -tags portaudio or use --headless")
	}
	mic, err := device.NewMicrophone(logger)
	if err != nil {
		return nil, nil, err
	}
	player, err := device.NewPlayer(logger)
	if err != nil {
		return nil, nil, err
	}
	return mic, player, nil
}

// buildController assembles providers from the plugin registry. A nil
// interviewer builds the language-model coach from the configured LLM.
func buildController(cfg *config.Config, mic voice.Microphone, player voice.Player, interviewer coach.Coach, logger *slog.Logger) (*interview.Controller, error) {
	reg := plugin.Default()
	p := cfg.Providers

	transcriber, err := reg.NewSTT(p.STT.Name, cfg.ProviderOptions(p.STT))
	if err != nil {
		return nil, err
	}
	if cfg.Audio.SaveAnswers != "" {
		if err := os.MkdirAll(cfg.Audio.SaveAnswers, 0o755); err != nil {
			return nil, fmt.Errorf("create answers directory: %w", err)
		}
		transcriber = &savingSTT{STT: transcriber, dir: cfg.Audio.SaveAnswers, logger: logger}
	}

	speech, err := reg.NewTTS(p.TTS.Name, cfg.ProviderOptions(p.TTS))
	if err != nil {
		return nil, err
	}

	settings := cfg.Settings()
	ctrlCfg := interview.Config{
		TTS:        speech,
		Player:     player,
		STT:        transcriber,
		Microphone: mic,
		Coach:      interviewer,
		Settings:   settings,
		Logger:     logger,
	}

	if settings.AutoStopOnSilence && p.VAD.Name != "" {
		detector, err := reg.NewVAD(p.VAD.Name, cfg.ProviderOptions(p.VAD))
		if err != nil {
			return nil, err
		}
		ctrlCfg.VAD = detector
	}

	if ctrlCfg.Coach == nil {
		model, err := reg.NewLLM(p.LLM.Name, cfg.ProviderOptions(p.LLM))
		if err != nil {
			return nil, err
		}
		ctrlCfg.Coach, err = coach.New(coach.Config{LLM: model, Temperature: 0.3, Logger: logger})
		if err != nil {
			return nil, err
		}
	}

	return interview.New(ctrlCfg)
}

// scriptedCoach asks two questions per topic and gives every answer score.
func scriptedCoach(score int) *coachfake.Coach {
	return &coachfake.Coach{
		QuestionFunc: func(req coach.QuestionRequest) (coach.QuestionResult, error) {
			if len(req.Asked) == 0 {
				return coach.QuestionResult{Question: fmt.Sprintf("Conte sobre uma experiência sua com %s.", strings.ToLower(req.Topic))}, nil
			}
			return coach.QuestionResult{Question: fmt.Sprintf("Que resultado concreto você alcançou em %s?", strings.ToLower(req.Topic))}, nil
		},
		Evaluations: []coach.Evaluation{{
			Score:         score,
			Strengths:     []string{"Exemplo concreto"},
			Fixes:         []string{"Quantifique o impacto"},
			ShortFeedback: "Boa resposta! Tente quantificar o resultado.",
		}},
		Summary: "Você se comunicou com clareza. Continue praticando exemplos com números.",
	}
}

// runSession prints events to w until the session ends.
func runSession(ctx context.Context, ctrl *interview.Controller, topics []string, jobContext string, w io.Writer) error {
	var failed atomic.Bool
	err := ctrl.StartSession(ctx, topics, jobContext, func(ev interview.Event) {
		if ev.Type == interview.EventError {
			failed.Store(true)
		}
		printEvent(w, ev)
	})
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(w, "Sessão encerrada.")
		return nil
	}
	if err == nil && failed.Load() {
		return fmt.Errorf("session ended with an error")
	}
	return err
}

func printEvent(w io.Writer, ev interview.Event) {
	switch ev.Type {
	case interview.EventSessionWarming:
		fmt.Fprintln(w, ev.Message)
	case interview.EventNewQuestion:
		fmt.Fprintf(w, "\n[%s %s] Pergunta %d: %s\n", ev.Topic, ev.TopicProgress, ev.QuestionNumber, ev.Question)
	case interview.EventListening:
		fmt.Fprintln(w, "Ouvindo... (Enter para terminar a resposta)")
	case interview.EventProcessing:
		fmt.Fprintln(w, "Processando...")
	case interview.EventRetryNeeded:
		fmt.Fprintf(w, "! %s\n", ev.Message)
	case interview.EventAnswerEvaluated:
		fmt.Fprintf(w, "Resposta: %s\nNota: %d - %s\n", ev.Answer, ev.Score, ev.Feedback)
	case interview.EventSessionEnd:
		fmt.Fprintf(w, "\nFim da simulação: %d perguntas respondidas.\n", ev.TotalQuestions)
		if ev.FinalSummary != "" {
			fmt.Fprintf(w, "\n%s\n", ev.FinalSummary)
		}
	case interview.EventError:
		fmt.Fprintf(w, "Erro: %s\n", ev.Message)
	}
}

// watchEnter calls UserDone for every line read from r while the controller
// waits for an answer.
func watchEnter(ctx context.Context, r io.Reader, ctrl *interview.Controller) {
	buf := make([]byte, 256)
	for ctx.Err() == nil {
		n, err := r.Read(buf)
		if err != nil {
			return
		}
		if strings.ContainsRune(string(buf[:n]), '\n') && ctrl.IsWaitingForUserDone() {
			ctrl.UserDone()
		}
	}
}

// savingSTT writes every recording to dir before transcribing it.
type savingSTT struct {
	stt.STT
	dir    string
	logger *slog.Logger
	n      atomic.Int64
}

func (s *savingSTT) Transcribe(ctx context.Context, rec *audio.Recording, opts stt.TranscribeOptions) (stt.Transcript, error) {
	if !rec.Empty() {
		name := filepath.Join(s.dir, fmt.Sprintf("answer-%s-%02d.wav", rec.StartedAt.Format("20060102-150405"), s.n.Add(1)))
		if err := wav.WriteFile(name, rec); err != nil {
			s.logger.Warn("could not save answer", slog.String("file", name), slog.String("error", err.Error()))
		} else {
			s.logger.Debug("saved answer", slog.String("file", name))
		}
	}
	return s.STT.Transcribe(ctx, rec, opts)
}
