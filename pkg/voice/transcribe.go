package voice

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/chriscow/interview-agents-go/pkg/ai"
	"github.com/chriscow/interview-agents-go/pkg/ai/stt"
	"github.com/chriscow/interview-agents-go/pkg/audio"
)

// Outcome classifies a transcription attempt.
type Outcome int

const (
	OutcomeAnswer Outcome = iota
	OutcomeEmpty
	OutcomeLowConfidence
	OutcomeArtifact
	OutcomeTimeout
	OutcomeFailed
	OutcomeRepeat
	OutcomeClarify
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAnswer:
		return "answer"
	case OutcomeEmpty:
		return "empty"
	case OutcomeLowConfidence:
		return "low_confidence"
	case OutcomeArtifact:
		return "artifact"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeFailed:
		return "failed"
	case OutcomeRepeat:
		return "repeat"
	case OutcomeClarify:
		return "clarify"
	default:
		return "unknown"
	}
}

// Retry reports whether the outcome means the answer must be captured again.
func (o Outcome) Retry() bool {
	switch o {
	case OutcomeEmpty, OutcomeLowConfidence, OutcomeArtifact, OutcomeTimeout, OutcomeFailed:
		return true
	}
	return false
}

// DefaultArtifactPhrases are phrases speech models tend to hallucinate on
// silence or noise.
var DefaultArtifactPhrases = []string{
	"thanks for watching",
	"thank you for watching",
	"obrigado por assistir",
	"obrigada por assistir",
	"legendas pela comunidade amara.org",
	"inscreva-se no canal",
}

// TranscriberOptions configures a Transcriber.
type TranscriberOptions struct {
	Language        string
	Timeout         time.Duration
	MinConfidence   float64
	MinChars        int
	ArtifactPhrases []string
	Intents         *IntentMatcher
	Logger          *slog.Logger
}

// Result is a classified transcription.
type Result struct {
	Text       string
	Confidence *float64
	Outcome    Outcome
	Err        error
}

// Transcriber wraps an STT provider with a timeout and classifies what comes
// back: empty, low confidence, artifact, intent, or a real answer.
type Transcriber struct {
	stt    stt.STT
	opts   TranscriberOptions
	logger *slog.Logger
}

// NewTranscriber creates a Transcriber.
func NewTranscriber(provider stt.STT, opts TranscriberOptions) *Transcriber {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.MinConfidence <= 0 {
		opts.MinConfidence = 0.5
	}
	if opts.MinChars <= 0 {
		opts.MinChars = 5
	}
	if opts.ArtifactPhrases == nil {
		opts.ArtifactPhrases = DefaultArtifactPhrases
	}
	if opts.Intents == nil {
		opts.Intents = DefaultIntentMatcher()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Transcriber{
		stt:    provider,
		opts:   opts,
		logger: logger.With(slog.String("component", "transcriber")),
	}
}

// Transcribe converts rec to text and classifies the result. It never
// returns an error; failures are reported through Result.Outcome and Err.
func (t *Transcriber) Transcribe(ctx context.Context, rec *audio.Recording) Result {
	if rec.Empty() {
		return Result{Outcome: OutcomeEmpty}
	}

	callCtx, cancel := context.WithTimeout(ctx, t.opts.Timeout)
	defer cancel()

	start := time.Now()
	tr, err := t.stt.Transcribe(callCtx, rec, stt.TranscribeOptions{Language: t.opts.Language})
	if err != nil {
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			t.logger.Warn("transcription timed out", slog.Duration("timeout", t.opts.Timeout))
			return Result{Outcome: OutcomeTimeout, Err: errors.Join(ai.ErrTimeout, err)}
		}
		t.logger.Warn("transcription failed", slog.String("error", err.Error()))
		return Result{Outcome: OutcomeFailed, Err: err}
	}

	text := strings.TrimSpace(tr.Text)
	res := Result{Text: text, Confidence: tr.Confidence}
	res.Outcome = t.classify(text, tr.Confidence)

	t.logger.Debug("transcribed answer",
		slog.String("outcome", res.Outcome.String()),
		slog.Int("chars", len(text)),
		slog.Duration("elapsed", time.Since(start)))
	return res
}

func (t *Transcriber) classify(text string, confidence *float64) Outcome {
	if text == "" {
		return OutcomeEmpty
	}
	if confidence != nil && *confidence < t.opts.MinConfidence {
		return OutcomeLowConfidence
	}
	switch t.opts.Intents.Match(text) {
	case IntentRepeat:
		return OutcomeRepeat
	case IntentClarify:
		return OutcomeClarify
	}
	if t.IsArtifact(text) {
		return OutcomeArtifact
	}
	return OutcomeAnswer
}

// IsArtifact reports whether text looks like a transcription artifact rather
// than speech: too short, or a known spurious phrase.
func (t *Transcriber) IsArtifact(text string) bool {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < t.opts.MinChars {
		return true
	}
	lower := strings.ToLower(text)
	for _, p := range t.opts.ArtifactPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
