package interview

import (
	"expvar"
	"fmt"
)

// Metrics tracks controller activity.
type Metrics struct {
	SessionsStarted   *expvar.Int
	SessionsCompleted *expvar.Int
	QuestionsAsked    *expvar.Int
	Retries           *expvar.Int
	StateTransitions  *expvar.Map
}

func newMetrics() *Metrics {
	// Not registered globally so several controllers can coexist in tests.
	transitions := &expvar.Map{}
	transitions.Init()
	return &Metrics{
		SessionsStarted:   &expvar.Int{},
		SessionsCompleted: &expvar.Int{},
		QuestionsAsked:    &expvar.Int{},
		Retries:           &expvar.Int{},
		StateTransitions:  transitions,
	}
}

func (m *Metrics) transition(from, to State) {
	m.StateTransitions.Add(fmt.Sprintf("%s_to_%s", from, to), 1)
}

// Map exposes the metrics as one expvar value, suitable for
// expvar.Publish("interview", m.Map()).
func (m *Metrics) Map() *expvar.Map {
	out := &expvar.Map{}
	out.Init()
	out.Set("sessions_started", m.SessionsStarted)
	out.Set("sessions_completed", m.SessionsCompleted)
	out.Set("questions_asked", m.QuestionsAsked)
	out.Set("retries", m.Retries)
	out.Set("state_transitions", m.StateTransitions)
	return out
}
