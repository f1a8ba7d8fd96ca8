// Package coach is the language-model boundary of an interview: it condenses
// the job context, writes questions, scores answers and summarizes the
// session. Every operation has a scripted fallback so callers can degrade
// instead of failing.
package coach

import (
	"context"
	"strings"
	"unicode/utf8"
)

// Output limits shared by the prompts and the response post-processing.
const (
	MaxContextChars  = 280
	MaxQuestionWords = 14
	MaxFeedbackChars = 120
	MaxSummaryChars  = 600
	MaxAskedChars    = 200
	MaxAnswerChars   = 1000
	MaxListItems     = 2
)

// QuestionRequest asks for one question about Topic.
type QuestionRequest struct {
	Topic   string
	Asked   []string // questions already asked for this topic
	Context string   // sanitized job context
}

// QuestionResult is a generated question, or Done when the model has nothing
// more to ask about the topic.
type QuestionResult struct {
	Question string
	Done     bool
}

// Evaluation is the scored feedback for one answer.
type Evaluation struct {
	Score         int // 0-100
	Strengths     []string
	Fixes         []string
	ShortFeedback string // spoken to the candidate
}

// HistoryItem is one answered question, as sent to GenerateSummary.
type HistoryItem struct {
	Topic     string   `json:"topico"`
	Question  string   `json:"pergunta"`
	Answer    string   `json:"resposta"`
	Score     int      `json:"pontuacao"`
	Strengths []string `json:"pontos_fortes"`
	Fixes     []string `json:"melhorias"`
}

// Coach is the language-model service consumed by the interview controller.
type Coach interface {
	SanitizeContext(ctx context.Context, raw string) (string, error)
	GenerateQuestion(ctx context.Context, req QuestionRequest) (QuestionResult, error)
	EvaluateAnswer(ctx context.Context, question, answer string) (Evaluation, error)
	GenerateSummary(ctx context.Context, history []HistoryItem) (string, error)
}

// Fallbacks are the scripted values used when a Coach call fails.
type Fallbacks struct {
	Feedback  string
	Score     int
	Strengths []string
	Fixes     []string
	Summary   string
}

// DefaultFallbacks mirror the coach's tone in Brazilian Portuguese.
var DefaultFallbacks = Fallbacks{
	Feedback:  "Boa resposta! Continue praticando para ganhar mais confiança.",
	Score:     75,
	Strengths: []string{"Clear communication"},
	Fixes:     []string{"Practice more examples"},
	Summary:   "Excelente simulação! Continue praticando para aprimorar suas habilidades de entrevista.",
}

// Evaluation returns the fallback evaluation.
func (f Fallbacks) Evaluation() Evaluation {
	return Evaluation{
		Score:         f.Score,
		Strengths:     append([]string(nil), f.Strengths...),
		Fixes:         append([]string(nil), f.Fixes...),
		ShortFeedback: f.Feedback,
	}
}

// Context returns the fallback for a failed sanitization: the raw context,
// trimmed and truncated.
func (f Fallbacks) Context(raw string) string {
	return Truncate(strings.TrimSpace(raw), MaxContextChars)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n]))
}
