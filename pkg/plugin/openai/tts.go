package openai

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/chriscow/interview-agents-go/pkg/ai"
	"github.com/chriscow/interview-agents-go/pkg/ai/tts"
)

// speechSampleRate is the rate of the mp3 the speech endpoint returns.
const speechSampleRate = 24000

// SpeechTTS implements tts.TTS with the speech endpoint. Every utterance is
// returned as one mp3.
type SpeechTTS struct {
	client *openai.Client
	model  string
	voice  string
	speed  float64
	logger *slog.Logger
}

// NewSpeechTTS creates a speech provider.
func NewSpeechTTS(cfg Config) (*SpeechTTS, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	t := &SpeechTTS{
		client: client,
		model:  cfg.Model,
		voice:  cfg.Voice,
		speed:  cfg.Speed,
		logger: slog.Default().With(slog.String("component", "openai_tts")),
	}
	if t.model == "" {
		t.model = DefaultTTSModel
	}
	if t.voice == "" {
		t.voice = DefaultVoice
	}
	if t.speed <= 0 {
		t.speed = DefaultSpeed
	}
	return t, nil
}

// Synthesize converts req.Text to mp3. Voice and speed in the request
// override the configured ones.
func (t *SpeechTTS) Synthesize(ctx context.Context, req tts.SynthesizeRequest) (tts.Audio, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return tts.Audio{}, ai.NewFatalError(ai.ErrSynthesisFailed, "text is empty")
	}

	voice := t.voice
	if req.Voice != "" {
		voice = req.Voice
	}
	speed := t.speed
	if req.Speed > 0 {
		speed = float64(req.Speed)
	}

	start := time.Now()
	resp, err := t.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(t.model),
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          speed,
	})
	if err != nil {
		return tts.Audio{}, classify(err, ai.ErrSynthesisFailed, "speech request failed")
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return tts.Audio{}, classify(err, ai.ErrSynthesisFailed, "read speech response")
	}
	if len(data) == 0 {
		return tts.Audio{}, ai.NewRecoverableError(ai.ErrSynthesisFailed, "speech response was empty")
	}

	t.logger.Debug("speech synthesized",
		slog.String("voice", voice),
		slog.Int("bytes", len(data)),
		slog.Duration("elapsed", time.Since(start)))

	return tts.Audio{
		Data:        data,
		Format:      tts.FormatMP3,
		SampleRate:  speechSampleRate,
		NumChannels: 1,
		Text:        text,
	}, nil
}

// Capabilities returns the speech endpoint's capabilities.
func (t *SpeechTTS) Capabilities() tts.TTSCapabilities {
	return tts.TTSCapabilities{
		Formats:              []tts.Format{tts.FormatMP3},
		SupportedLanguages:   []string{"pt", "en", "es", "fr", "de", "it"},
		SupportedVoices:      []string{"alloy", "ash", "coral", "echo", "fable", "nova", "onyx", "sage", "shimmer"},
		SupportsSpeedControl: true,
	}
}
