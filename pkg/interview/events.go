package interview

import (
	"encoding/json"
	"fmt"
)

// EventType names an outbound controller event.
type EventType string

const (
	EventSessionWarming  EventType = "session_warming"
	EventSessionStarted  EventType = "session_started"
	EventNewQuestion     EventType = "new_question"
	EventListening       EventType = "listening"
	EventProcessing      EventType = "processing"
	EventRetryNeeded     EventType = "retry_needed"
	EventAnswerEvaluated EventType = "answer_evaluated"
	EventSessionEnd      EventType = "session_end"
	EventError           EventType = "error"
)

// Event is one update pushed to the session observer. Only the fields that
// belong to Type are meaningful.
type Event struct {
	Type EventType

	Message string // retry_needed, error, session_warming

	Question       string // new_question, answer_evaluated
	QuestionNumber int    // new_question, answer_evaluated
	Topic          string // new_question
	TopicProgress  string // new_question, "n/max"

	Answer   string // answer_evaluated
	Feedback string // answer_evaluated
	Score    int    // answer_evaluated

	TotalQuestions int    // session_end
	FinalSummary   string // session_end, empty when nothing was answered
}

func (e Event) String() string {
	switch e.Type {
	case EventNewQuestion:
		return fmt.Sprintf("%s(#%d %s %q)", e.Type, e.QuestionNumber, e.TopicProgress, e.Question)
	case EventAnswerEvaluated:
		return fmt.Sprintf("%s(#%d score=%d)", e.Type, e.QuestionNumber, e.Score)
	case EventSessionEnd:
		return fmt.Sprintf("%s(totalQuestions=%d)", e.Type, e.TotalQuestions)
	case EventRetryNeeded, EventError:
		return fmt.Sprintf("%s(%s)", e.Type, e.Message)
	default:
		return string(e.Type)
	}
}

// MarshalJSON writes the event with the payload fields of its type only.
func (e Event) MarshalJSON() ([]byte, error) {
	m := map[string]any{"type": e.Type}
	switch e.Type {
	case EventNewQuestion:
		m["question"] = e.Question
		m["questionNumber"] = e.QuestionNumber
		m["topic"] = e.Topic
		m["topicProgress"] = e.TopicProgress
	case EventAnswerEvaluated:
		m["question"] = e.Question
		m["answer"] = e.Answer
		m["feedback"] = e.Feedback
		m["score"] = e.Score
		m["questionNumber"] = e.QuestionNumber
	case EventSessionEnd:
		m["totalQuestions"] = e.TotalQuestions
		if e.FinalSummary != "" {
			m["finalSummary"] = e.FinalSummary
		}
	case EventRetryNeeded, EventError, EventSessionWarming:
		if e.Message != "" {
			m["message"] = e.Message
		}
	}
	return json.Marshal(m)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type           EventType `json:"type"`
		Message        string    `json:"message"`
		Question       string    `json:"question"`
		QuestionNumber int       `json:"questionNumber"`
		Topic          string    `json:"topic"`
		TopicProgress  string    `json:"topicProgress"`
		Answer         string    `json:"answer"`
		Feedback       string    `json:"feedback"`
		Score          int       `json:"score"`
		TotalQuestions int       `json:"totalQuestions"`
		FinalSummary   string    `json:"finalSummary"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Event(raw)
	return nil
}
