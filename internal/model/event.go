package model

import "time"

// OutcomeEvent is the payload published to Kafka for every recorded outcome.
type OutcomeEvent struct {
	RunID     string        `json:"run_id"`
	Seq       int           `json:"seq"`
	Total     int           `json:"total"`
	Recipient string        `json:"recipient"`
	Status    OutcomeStatus `json:"status"`
	Reason    string        `json:"reason,omitempty"`
	At        time.Time     `json:"at"`
}

func NewOutcomeEvent(runID string, total int, e Entry) OutcomeEvent {
	return OutcomeEvent{
		RunID:     runID,
		Seq:       e.Seq,
		Total:     total,
		Recipient: e.Recipient.String(),
		Status:    e.Outcome.Status,
		Reason:    e.Outcome.Reason,
		At:        e.At,
	}
}

// OutcomeRow is the archived shape of an entry (MySQL run_entries, ClickHouse outcomes).
type OutcomeRow struct {
	RunID     string    `db:"run_id"`
	Seq       int       `db:"seq"`
	Recipient string    `db:"recipient"`
	Status    string    `db:"status"`
	Reason    string    `db:"reason"`
	CreatedAt time.Time `db:"created_at"`
}

func NewOutcomeRow(runID string, e Entry) OutcomeRow {
	return OutcomeRow{
		RunID:     runID,
		Seq:       e.Seq,
		Recipient: e.Recipient.String(),
		Status:    e.Outcome.Status.String(),
		Reason:    e.Outcome.Reason,
		CreatedAt: e.At,
	}
}

// Run is the archived header of a finished report.
type Run struct {
	ID         string    `db:"id"`
	Message    string    `db:"message"`
	Total      int       `db:"total"`
	Sent       int       `db:"sent"`
	NotFound   int       `db:"not_found"`
	Failed     int       `db:"failed"`
	Cancelled  bool      `db:"cancelled"`
	StartedAt  time.Time `db:"started_at"`
	FinishedAt time.Time `db:"finished_at"`
}

func NewRun(r *SendReport) Run {
	return Run{
		ID:         r.RunID,
		Message:    r.Message,
		Total:      r.Total,
		Sent:       r.Sent(),
		NotFound:   r.NotFound(),
		Failed:     r.Failed(),
		Cancelled:  r.Cancelled,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}
