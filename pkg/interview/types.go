package interview

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chriscow/interview-agents-go/pkg/ai/coach"
)

// Phase is the coarse lifecycle of a Session.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseWarming
	PhaseIntroduction
	PhaseRunning
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseWarming:
		return "warming"
	case PhaseIntroduction:
		return "introduction"
	case PhaseRunning:
		return "running"
	case PhaseEnded:
		return "ended"
	default:
		return fmt.Sprintf("Unknown(%d)", int32(p))
	}
}

// State is the fine-grained controller state reported to observers.
type State int32

const (
	StateInitializing State = iota
	StateWarming
	StateIntroduction
	StateAsking
	StateListening
	StateProcessing
	StateFeedback
	StateComplete
	StateError
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "Initializing"
	case StateWarming:
		return "Warming"
	case StateIntroduction:
		return "Introduction"
	case StateAsking:
		return "Asking"
	case StateListening:
		return "Listening"
	case StateProcessing:
		return "Processing"
	case StateFeedback:
		return "Feedback"
	case StateComplete:
		return "Complete"
	case StateError:
		return "Error"
	default:
		return fmt.Sprintf("Unknown(%d)", int32(s))
	}
}

// Topic is one interview subject and the questions already committed for it.
type Topic struct {
	Label string

	max   int
	asked []string // normalized
}

func newTopic(label string, max int) *Topic {
	return &Topic{Label: label, max: max}
}

// Count returns how many questions were committed for the topic.
func (t *Topic) Count() int { return len(t.asked) }

// Full reports whether the topic has reached its question budget.
func (t *Topic) Full() bool { return len(t.asked) >= t.max }

// Asked returns a copy of the normalized questions committed so far.
func (t *Topic) Asked() []string {
	return append([]string(nil), t.asked...)
}

// Has reports whether a question with the same normalized form was asked.
func (t *Topic) Has(question string) bool {
	n := Normalize(question)
	for _, a := range t.asked {
		if a == n {
			return true
		}
	}
	return false
}

func (t *Topic) commit(question string) {
	t.asked = append(t.asked, Normalize(question))
}

// Exchange is one answered question. It is never modified after it is
// appended to a History.
type Exchange struct {
	Topic         string    `json:"topic"`
	Question      string    `json:"question"`
	Answer        string    `json:"answer"`
	Score         int       `json:"score"`
	Strengths     []string  `json:"strengths,omitempty"`
	Fixes         []string  `json:"fixes,omitempty"`
	ShortFeedback string    `json:"shortFeedback"`
	At            time.Time `json:"at"`
}

// History is the ordered list of exchanges of a session.
type History struct {
	mu    sync.RWMutex
	items []Exchange
}

func (h *History) append(e Exchange) {
	e.Strengths = append([]string(nil), e.Strengths...)
	e.Fixes = append([]string(nil), e.Fixes...)
	h.mu.Lock()
	h.items = append(h.items, e)
	h.mu.Unlock()
}

// All returns a copy of every exchange in order.
func (h *History) All() []Exchange {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Exchange(nil), h.items...)
}

// Len returns the number of exchanges.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.items)
}

// coachItems converts the history to what the summary prompt expects.
func (h *History) coachItems() []coach.HistoryItem {
	all := h.All()
	out := make([]coach.HistoryItem, len(all))
	for i, e := range all {
		out[i] = coach.HistoryItem{
			Topic:     e.Topic,
			Question:  e.Question,
			Answer:    e.Answer,
			Score:     e.Score,
			Strengths: e.Strengths,
			Fixes:     e.Fixes,
		}
	}
	return out
}

// Session is the state of one interview run. It is owned by the Controller.
type Session struct {
	ID         string
	StartedAt  time.Time
	Phase      Phase
	Version    uint64
	Topics     []*Topic
	JobContext string
	History    *History
}

func newSession(version uint64, labels []string, maxPerTopic int) *Session {
	topics := make([]*Topic, len(labels))
	for i, l := range labels {
		topics[i] = newTopic(l, maxPerTopic)
	}
	return &Session{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Phase:     PhaseWarming,
		Version:   version,
		Topics:    topics,
		History:   &History{},
	}
}

// SessionInfo is a read-only snapshot of a Session.
type SessionInfo struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"startedAt"`
	Phase      string     `json:"phase"`
	Version    uint64     `json:"version"`
	Topics     []string   `json:"topics"`
	JobContext string     `json:"jobContext"`
	Exchanges  []Exchange `json:"exchanges"`
}
