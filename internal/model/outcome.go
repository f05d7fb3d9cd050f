package model

import "strings"

type OutcomeStatus string

const (
	OutcomeSent     OutcomeStatus = "sent"
	OutcomeNotFound OutcomeStatus = "not_found"
	OutcomeFailed   OutcomeStatus = "failed"
)

func (s OutcomeStatus) String() string { return string(s) }

func (s OutcomeStatus) Valid() bool {
	return s == OutcomeSent || s == OutcomeNotFound || s == OutcomeFailed
}

// ParseOutcomeStatus normalizes input; returns (value, true) if valid.
func ParseOutcomeStatus(s string) (OutcomeStatus, bool) {
	st := OutcomeStatus(strings.ToLower(strings.TrimSpace(s)))
	return st, st.Valid()
}

// Outcome is the result of a single recipient's attempt.
type Outcome struct {
	Status OutcomeStatus `json:"status"`
	Reason string        `json:"reason,omitempty"` // only for failed
}

func Sent() Outcome     { return Outcome{Status: OutcomeSent} }
func NotFound() Outcome { return Outcome{Status: OutcomeNotFound} }

func Failed(reason string) Outcome {
	return Outcome{Status: OutcomeFailed, Reason: reason}
}

func (o Outcome) String() string {
	if o.Status == OutcomeFailed && o.Reason != "" {
		return o.Status.String() + "(" + o.Reason + ")"
	}
	return o.Status.String()
}
