// Package fake provides a scripted Coach for controller tests and dry runs.
package fake

import (
	"context"
	"sync"

	"github.com/chriscow/interview-agents-go/pkg/ai/coach"
)

// Coach answers from scripts. Questions and Evaluations are consumed in
// order, and the last entry repeats once a script runs out. An empty question
// string means Done. The *Func fields, when set, take precedence.
type Coach struct {
	Questions   []string
	Evaluations []coach.Evaluation
	Summary     string

	SanitizeErr  error
	QuestionErrs []error // consumed before Questions
	EvaluateErr  error
	SummaryErr   error

	QuestionFunc func(req coach.QuestionRequest) (coach.QuestionResult, error)
	EvaluateFunc func(question, answer string) (coach.Evaluation, error)

	mu            sync.Mutex
	questionCalls []coach.QuestionRequest
	evaluations   int
	summaries     [][]coach.HistoryItem
}

// SanitizeContext echoes raw unless SanitizeErr is set.
func (c *Coach) SanitizeContext(ctx context.Context, raw string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if c.SanitizeErr != nil {
		return "", c.SanitizeErr
	}
	return coach.Truncate(raw, coach.MaxContextChars), nil
}

// GenerateQuestion returns the next scripted question.
func (c *Coach) GenerateQuestion(ctx context.Context, req coach.QuestionRequest) (coach.QuestionResult, error) {
	if err := ctx.Err(); err != nil {
		return coach.QuestionResult{}, err
	}

	c.mu.Lock()
	n := len(c.questionCalls)
	c.questionCalls = append(c.questionCalls, req)
	if len(c.QuestionErrs) > 0 {
		err := c.QuestionErrs[0]
		c.QuestionErrs = c.QuestionErrs[1:]
		c.mu.Unlock()
		return coach.QuestionResult{}, err
	}
	fn := c.QuestionFunc
	c.mu.Unlock()

	if fn != nil {
		return fn(req)
	}
	if len(c.Questions) == 0 {
		return coach.QuestionResult{Done: true}, nil
	}
	q := c.Questions[min(n, len(c.Questions)-1)]
	if q == "" {
		return coach.QuestionResult{Done: true}, nil
	}
	return coach.QuestionResult{Question: q}, nil
}

// EvaluateAnswer returns the next scripted evaluation.
func (c *Coach) EvaluateAnswer(ctx context.Context, question, answer string) (coach.Evaluation, error) {
	if err := ctx.Err(); err != nil {
		return coach.Evaluation{}, err
	}

	c.mu.Lock()
	n := c.evaluations
	c.evaluations++
	fn := c.EvaluateFunc
	c.mu.Unlock()

	if fn != nil {
		return fn(question, answer)
	}
	if c.EvaluateErr != nil {
		return coach.Evaluation{}, c.EvaluateErr
	}
	if len(c.Evaluations) == 0 {
		return coach.Evaluation{Score: 80, ShortFeedback: "Boa resposta."}, nil
	}
	return c.Evaluations[min(n, len(c.Evaluations)-1)], nil
}

// GenerateSummary returns Summary unless SummaryErr is set.
func (c *Coach) GenerateSummary(ctx context.Context, history []coach.HistoryItem) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c.mu.Lock()
	c.summaries = append(c.summaries, append([]coach.HistoryItem(nil), history...))
	c.mu.Unlock()

	if c.SummaryErr != nil {
		return "", c.SummaryErr
	}
	return c.Summary, nil
}

// QuestionCalls returns every question request received.
func (c *Coach) QuestionCalls() []coach.QuestionRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]coach.QuestionRequest(nil), c.questionCalls...)
}

// EvaluationCount returns how many answers were evaluated.
func (c *Coach) EvaluationCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evaluations
}

// Summaries returns the histories passed to GenerateSummary.
func (c *Coach) Summaries() [][]coach.HistoryItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]coach.HistoryItem(nil), c.summaries...)
}
