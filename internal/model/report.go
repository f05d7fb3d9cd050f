package model

import "time"

// Entry pairs a recipient with its outcome. Seq is the 1-based position in the input.
type Entry struct {
	Seq       int       `json:"seq"`
	Recipient Recipient `json:"recipient"`
	Outcome   Outcome   `json:"outcome"`
	At        time.Time `json:"at"`
}

// SendReport is the ordered result of one run.
type SendReport struct {
	RunID      string    `json:"run_id"`
	Message    string    `json:"message"`
	Total      int       `json:"total"` // recipients handed to the run
	Entries    []Entry   `json:"entries"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Cancelled  bool      `json:"cancelled"`
}

func NewSendReport(runID, message string, total int) *SendReport {
	return &SendReport{
		RunID:   runID,
		Message: message,
		Total:   total,
		Entries: make([]Entry, 0, total),
	}
}

// Record appends an outcome; Seq follows insertion order.
func (r *SendReport) Record(rc Recipient, o Outcome, at time.Time) Entry {
	e := Entry{Seq: len(r.Entries) + 1, Recipient: rc, Outcome: o, At: at}
	r.Entries = append(r.Entries, e)
	return e
}

func (r *SendReport) count(s OutcomeStatus) int {
	n := 0
	for _, e := range r.Entries {
		if e.Outcome.Status == s {
			n++
		}
	}
	return n
}

func (r *SendReport) Sent() int     { return r.count(OutcomeSent) }
func (r *SendReport) NotFound() int { return r.count(OutcomeNotFound) }
func (r *SendReport) Failed() int   { return r.count(OutcomeFailed) }

// Skipped is the number of recipients never attempted because the run was cancelled.
func (r *SendReport) Skipped() int { return r.Total - len(r.Entries) }

// Unsuccessful returns every entry that is not sent, in input order.
func (r *SendReport) Unsuccessful() []Entry {
	var out []Entry
	for _, e := range r.Entries {
		if e.Outcome.Status != OutcomeSent {
			out = append(out, e)
		}
	}
	return out
}
