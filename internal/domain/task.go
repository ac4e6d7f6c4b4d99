package domain

import "time"

// Task associates a provider-issued task id with the user and prompt that
// started it. Tasks live only in server memory for the duration of one
// generation request; a process restart loses in-flight associations.
type Task struct {
	ID        string
	UserID    string
	Prompt    string
	CreatedAt time.Time
}

// OutcomeState enumerates the observable states of a generation task.
type OutcomeState string

const (
	OutcomePending   OutcomeState = "pending"
	OutcomeSucceeded OutcomeState = "succeeded"
	OutcomeFailed    OutcomeState = "failed"
)

// Terminal reports whether no further state change is expected.
func (s OutcomeState) Terminal() bool {
	return s == OutcomeSucceeded || s == OutcomeFailed
}

// GenerationOutcome is the tagged result of a status query. ImageURLs is set
// only for succeeded outcomes, Message only for failed ones.
type GenerationOutcome struct {
	State     OutcomeState
	ImageURLs []string
	Message   string
}
