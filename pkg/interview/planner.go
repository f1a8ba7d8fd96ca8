package interview

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/chriscow/interview-agents-go/pkg/ai/coach"
)

// ErrTopicExhausted means no acceptable question could be produced for a
// topic, either because the coach said it was done or because every attempt
// was rejected.
var ErrTopicExhausted = errors.New("topic exhausted")

// Normalize lowercases s, turns every rune that is not a letter, digit,
// underscore or space into a space and collapses runs of whitespace.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range strings.ToLower(s) {
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// LanguageGuard rejects generated questions that are not in the interview
// language.
type LanguageGuard interface {
	Reject(question string) bool
}

// LanguageGuardFunc adapts a function to LanguageGuard.
type LanguageGuardFunc func(question string) bool

func (f LanguageGuardFunc) Reject(question string) bool { return f(question) }

var englishWords = regexp.MustCompile(`(?i)\b(the|you|your|what|how|when|why|describe|tell|give|example|please)\b`)

// EnglishWordGuard rejects questions containing common English words.
type EnglishWordGuard struct{}

func (EnglishWordGuard) Reject(question string) bool {
	return englishWords.MatchString(question)
}

// PlannerOptions configures a Planner.
type PlannerOptions struct {
	MaxAttempts int
	// CallTimeout bounds each GenerateQuestion call. Zero means no bound.
	CallTimeout time.Duration
	Guard       LanguageGuard
	Logger      *slog.Logger
}

// Planner produces questions for topics and decides on follow-ups.
type Planner struct {
	coach  coach.Coach
	opts   PlannerOptions
	logger *slog.Logger
}

// NewPlanner creates a Planner. A nil Guard uses EnglishWordGuard.
func NewPlanner(c coach.Coach, opts PlannerOptions) *Planner {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.Guard == nil {
		opts.Guard = EnglishWordGuard{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{
		coach:  c,
		opts:   opts,
		logger: logger.With(slog.String("component", "planner")),
	}
}

// NextQuestion asks the coach for a question about topic that passes the
// language guard and was not asked before. Every failed call, empty reply,
// guarded or duplicate question counts as an attempt. It returns
// ErrTopicExhausted when the coach is done or the attempts run out, and the
// context error if ctx ends first.
func (p *Planner) NextQuestion(ctx context.Context, topic *Topic, jobContext string) (string, error) {
	for attempt := 1; attempt <= p.opts.MaxAttempts; attempt++ {
		res, err := p.generate(ctx, topic, jobContext)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		log := p.logger.With(slog.String("topic", topic.Label), slog.Int("attempt", attempt))
		switch {
		case err != nil:
			log.Warn("question generation failed", slog.String("error", err.Error()))
		case res.Done:
			log.Debug("coach has no more questions")
			return "", ErrTopicExhausted
		case strings.TrimSpace(res.Question) == "":
			log.Warn("coach returned an empty question")
		case p.opts.Guard.Reject(res.Question):
			log.Info("regenerating question in the wrong language", slog.String("question", res.Question))
		case topic.Has(res.Question):
			log.Info("regenerating duplicate question", slog.String("question", res.Question))
		default:
			return strings.TrimSpace(res.Question), nil
		}
	}
	return "", ErrTopicExhausted
}

func (p *Planner) generate(ctx context.Context, topic *Topic, jobContext string) (coach.QuestionResult, error) {
	if p.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.CallTimeout)
		defer cancel()
	}
	return p.coach.GenerateQuestion(ctx, coach.QuestionRequest{
		Topic:   topic.Label,
		Asked:   topic.Asked(),
		Context: jobContext,
	})
}

// Follow-up thresholds.
const (
	FollowUpScoreThreshold = 70
	FollowUpMinWords       = 12
)

var elaborationMarkers = regexp.MustCompile(`(?i)aprofund|explique|detalhe|mais exemplos`)

// FollowUpInput is what the follow-up policy looks at.
type FollowUpInput struct {
	Score    int
	Answer   string
	Feedback string
}

// FollowUpDecision holds the three independent follow-up conditions.
type FollowUpDecision struct {
	LowScore         bool
	ShortAnswer      bool
	NeedsElaboration bool
}

// Triggered reports whether any condition holds.
func (d FollowUpDecision) Triggered() bool {
	return d.LowScore || d.ShortAnswer || d.NeedsElaboration
}

// DecideFollowUp applies the follow-up policy.
func DecideFollowUp(in FollowUpInput) FollowUpDecision {
	return FollowUpDecision{
		LowScore:         in.Score < FollowUpScoreThreshold,
		ShortAnswer:      len(strings.Fields(in.Answer)) < FollowUpMinWords,
		NeedsElaboration: elaborationMarkers.MatchString(in.Feedback),
	}
}

// DecideFollowUp applies the follow-up policy. It is a method so callers can
// hold one planner for the whole question flow.
func (p *Planner) DecideFollowUp(in FollowUpInput) FollowUpDecision {
	d := DecideFollowUp(in)
	p.logger.Debug("follow-up decision",
		slog.Bool("low_score", d.LowScore),
		slog.Bool("short_answer", d.ShortAnswer),
		slog.Bool("needs_elaboration", d.NeedsElaboration))
	return d
}
