package openai

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/chriscow/interview-agents-go/pkg/ai"
	"github.com/chriscow/interview-agents-go/pkg/ai/stt"
	"github.com/chriscow/interview-agents-go/pkg/audio"
	"github.com/chriscow/interview-agents-go/pkg/audio/wav"
)

// WhisperSTT implements stt.STT with the Whisper transcription endpoint.
// Each recording is uploaded as a WAV file.
type WhisperSTT struct {
	client   *openai.Client
	model    string
	language string
	logger   *slog.Logger
}

// NewWhisperSTT creates a Whisper provider.
func NewWhisperSTT(cfg Config) (*WhisperSTT, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	model := cfg.Model
	if model == "" {
		model = DefaultSTTModel
	}
	language := cfg.Language
	if language == "" {
		language = DefaultLanguage
	}
	return &WhisperSTT{
		client:   client,
		model:    model,
		language: language,
		logger:   slog.Default().With(slog.String("component", "openai_stt")),
	}, nil
}

// Transcribe uploads rec and returns its transcript. An empty recording
// yields an empty transcript without calling the API.
func (w *WhisperSTT) Transcribe(ctx context.Context, rec *audio.Recording, opts stt.TranscribeOptions) (stt.Transcript, error) {
	if rec.Empty() {
		return stt.Transcript{}, nil
	}

	data, err := wav.EncodeRecording(rec)
	if err != nil {
		return stt.Transcript{}, ai.NewFatalError(ai.ErrTranscriptionFailed, "encode recording: "+err.Error())
	}

	language := opts.Language
	if language == "" {
		language = w.language
	}

	start := time.Now()
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: "answer.wav",
		Reader:   bytes.NewReader(data),
		Language: language,
		Prompt:   opts.Prompt,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return stt.Transcript{}, classify(err, ai.ErrTranscriptionFailed, "whisper transcription failed")
	}

	transcript := stt.Transcript{
		Text:     strings.TrimSpace(resp.Text),
		Language: resp.Language,
		Duration: rec.Duration(),
	}
	if transcript.Language == "" {
		transcript.Language = language
	}
	if len(resp.Segments) > 0 {
		var noSpeech float64
		for _, seg := range resp.Segments {
			noSpeech += seg.NoSpeechProb
		}
		confidence := 1 - noSpeech/float64(len(resp.Segments))
		transcript.Confidence = &confidence
	}

	w.logger.Debug("transcription finished",
		slog.Int("chars", len(transcript.Text)),
		slog.Duration("audio", transcript.Duration),
		slog.Duration("elapsed", time.Since(start)))
	return transcript, nil
}

// Capabilities returns Whisper's capabilities.
func (w *WhisperSTT) Capabilities() stt.STTCapabilities {
	return stt.STTCapabilities{
		ReportsConfidence:  true,
		SupportedLanguages: []string{"pt", "en", "es", "fr", "de", "it"},
		SampleRates:        []int{16000, 24000, 44100, 48000},
	}
}
