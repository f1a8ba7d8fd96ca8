package coach

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/chriscow/interview-agents-go/pkg/ai"
	"github.com/chriscow/interview-agents-go/pkg/ai/llm"
)

// ParseError reports a model reply that could not be decoded.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparseable evaluation reply: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Config configures an LLMCoach.
type Config struct {
	LLM         llm.LLM
	Temperature float32
	Retry       ai.RetryConfig
	Fallbacks   Fallbacks
	Logger      *slog.Logger
}

// LLMCoach implements Coach on top of a chat-completion provider.
type LLMCoach struct {
	llm       llm.LLM
	temp      float32
	retry     ai.RetryConfig
	fallbacks Fallbacks
	logger    *slog.Logger
}

// New creates an LLMCoach.
func New(cfg Config) (*LLMCoach, error) {
	if cfg.LLM == nil {
		return nil, fmt.Errorf("LLM is required")
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.3
	}
	if cfg.Retry == (ai.RetryConfig{}) {
		cfg.Retry = ai.DefaultRetryConfig
	}
	if cfg.Fallbacks.Feedback == "" {
		cfg.Fallbacks = DefaultFallbacks
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMCoach{
		llm:       cfg.LLM,
		temp:      cfg.Temperature,
		retry:     cfg.Retry,
		fallbacks: cfg.Fallbacks,
		logger:    logger.With(slog.String("component", "coach")),
	}, nil
}

func (c *LLMCoach) request(system, user string, maxTokens int) llm.ChatRequest {
	return llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: user},
		},
		MaxTokens:   maxTokens,
		Temperature: c.temp,
	}
}

func (c *LLMCoach) chat(ctx context.Context, system, user string, maxTokens int, format llm.ResponseFormat) (string, error) {
	req := c.request(system, user, maxTokens)
	req.ResponseFormat = format
	return c.send(ctx, req)
}

// send performs req with retries. The reply is the arguments of the
// function call when the model made one, the message text otherwise.
func (c *LLMCoach) send(ctx context.Context, req llm.ChatRequest) (string, error) {
	var reply string
	err := ai.Retry(ctx, c.retry, c.logger, func(ctx context.Context) error {
		resp, err := c.llm.Chat(ctx, req)
		if err != nil {
			return err
		}
		if resp.FunctionCall != nil && resp.FunctionCall.Name == evaluationFunction.Name {
			reply = strings.TrimSpace(resp.FunctionCall.Arguments)
		} else {
			reply = strings.TrimSpace(resp.Message.Content)
		}
		return nil
	})
	return reply, err
}

// SanitizeContext condenses raw into a neutral summary of at most
// MaxContextChars runes.
func (c *LLMCoach) SanitizeContext(ctx context.Context, raw string) (string, error) {
	reply, err := c.chat(ctx, sanitizePrompt, Truncate(raw, 4000), 100, llm.ResponseFormatText)
	if err != nil {
		return "", fmt.Errorf("sanitize context: %w", err)
	}
	reply = Truncate(trimQuotes(reply), MaxContextChars)
	if reply == "" {
		return "", fmt.Errorf("sanitize context: %w", ai.ErrEmptyResponse)
	}
	return reply, nil
}

// GenerateQuestion asks for one short question about req.Topic. An empty
// reply means the topic is done.
func (c *LLMCoach) GenerateQuestion(ctx context.Context, req QuestionRequest) (QuestionResult, error) {
	asked := Truncate(strings.Join(req.Asked, ", "), MaxAskedChars)
	reply, err := c.chat(ctx, questionPrompt(req.Topic), questionInput(req.Topic, asked, req.Context), 50, llm.ResponseFormatText)
	if err != nil {
		return QuestionResult{}, fmt.Errorf("generate question: %w", err)
	}

	q := CleanQuestion(reply)
	if q == "" {
		return QuestionResult{Done: true}, nil
	}
	return QuestionResult{Question: q}, nil
}

// EvaluateAnswer scores answer against question. Providers that support
// function calling must answer through evaluationFunction; others use JSON
// mode. Missing fields in the reply are filled from the fallbacks; an
// undecodable reply is a *ParseError.
func (c *LLMCoach) EvaluateAnswer(ctx context.Context, question, answer string) (Evaluation, error) {
	input, err := json.Marshal(map[string]string{
		"question": Truncate(question, 200),
		"answer":   Truncate(answer, MaxAnswerChars),
	})
	if err != nil {
		return Evaluation{}, fmt.Errorf("evaluate answer: %w", err)
	}

	req := c.request(evaluatePrompt, string(input), 250)
	if c.llm.Capabilities().SupportsFunctions {
		req.Functions = []llm.FunctionDefinition{evaluationFunction}
		req.ForceFunction = evaluationFunction.Name
	} else {
		req.ResponseFormat = llm.ResponseFormatJSON
	}
	reply, err := c.send(ctx, req)
	if err != nil {
		return Evaluation{}, fmt.Errorf("evaluate answer: %w", err)
	}
	return ParseEvaluation(reply, c.fallbacks)
}

// GenerateSummary writes the closing markdown summary for history.
func (c *LLMCoach) GenerateSummary(ctx context.Context, history []HistoryItem) (string, error) {
	if len(history) == 0 {
		return "", fmt.Errorf("generate summary: empty history")
	}
	input, err := json.Marshal(history)
	if err != nil {
		return "", fmt.Errorf("generate summary: %w", err)
	}

	reply, err := c.chat(ctx, summaryPrompt, Truncate(string(input), 3000), 200, llm.ResponseFormatText)
	if err != nil {
		return "", fmt.Errorf("generate summary: %w", err)
	}
	if reply == "" {
		return "", fmt.Errorf("generate summary: %w", ai.ErrEmptyResponse)
	}
	return Truncate(reply, MaxSummaryChars), nil
}

type evaluationReply struct {
	Score     *float64 `json:"score"`
	Strengths []string `json:"strengths"`
	Fixes     []string `json:"fixes"`
	TTS       string   `json:"tts"`
}

// ParseEvaluation decodes an evaluation reply. It tolerates code fences and
// prose around the JSON object.
func ParseEvaluation(reply string, fb Fallbacks) (Evaluation, error) {
	raw := extractObject(reply)
	var out evaluationReply
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return Evaluation{}, &ParseError{Raw: reply, Err: err}
	}

	ev := fb.Evaluation()
	if out.Score != nil && !math.IsNaN(*out.Score) {
		ev.Score = clampScore(*out.Score)
	}
	if s := nonEmpty(out.Strengths); len(s) > 0 {
		ev.Strengths = s
	}
	if f := nonEmpty(out.Fixes); len(f) > 0 {
		ev.Fixes = f
	}
	if tts := strings.TrimSpace(out.TTS); tts != "" {
		ev.ShortFeedback = Truncate(tts, MaxFeedbackChars)
	}
	return ev, nil
}

func extractObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}

func clampScore(v float64) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return int(math.Round(v))
}

func nonEmpty(items []string) []string {
	var out []string
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
		if len(out) == MaxListItems {
			break
		}
	}
	return out
}

// CleanQuestion reduces a model reply to one question: first non-empty line,
// without list markers or quotes, at most MaxQuestionWords words.
func CleanQuestion(reply string) string {
	var line string
	for _, l := range strings.Split(reply, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			line = l
			break
		}
	}
	line = strings.TrimLeft(line, "-*•0123456789. )")
	line = trimQuotes(strings.TrimSpace(line))
	if isDoneMarker(line) {
		return ""
	}

	words := strings.Fields(line)
	if len(words) > MaxQuestionWords {
		line = strings.TrimRight(strings.Join(words[:MaxQuestionWords], " "), ",;:") + "?"
	}
	return line
}

func isDoneMarker(s string) bool {
	switch strings.ToLower(strings.Trim(s, "[]().! ")) {
	case "", "done", "fim", "concluído", "concluido":
		return true
	}
	return false
}

func trimQuotes(s string) string {
	return strings.TrimSpace(strings.Trim(s, "\"'“”«»`"))
}
