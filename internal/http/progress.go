package http

import (
	"context"
	"sync"
	"time"

	"github.com/jmehdipour/wa-bulk-sender/internal/model"
)

type failureView struct {
	Seq       int                 `json:"seq"`
	Recipient string              `json:"recipient"`
	Status    model.OutcomeStatus `json:"status"`
	Reason    string              `json:"reason,omitempty"`
}

// ProgressView is the JSON body of GET /v1/progress.
type ProgressView struct {
	RunID     string        `json:"run_id"`
	Running   bool          `json:"running"`
	Cancelled bool          `json:"cancelled"`
	Total     int           `json:"total"`
	Processed int           `json:"processed"`
	Sent      int           `json:"sent"`
	NotFound  int           `json:"not_found"`
	Failed    int           `json:"failed"`
	StartedAt time.Time     `json:"started_at,omitempty"`
	Last      string        `json:"last_recipient,omitempty"`
	Failures  []failureView `json:"failures"`
}

// Progress mirrors the current run for the status endpoint. It is a
// worker.Observer; the send loop owns the report, Progress keeps a copy.
type Progress struct {
	mu   sync.RWMutex
	view ProgressView
}

func NewProgress() *Progress {
	return &Progress{view: ProgressView{Failures: []failureView{}}}
}

func (p *Progress) OnStart(_ context.Context, r *model.SendReport) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.view = ProgressView{
		RunID:     r.RunID,
		Running:   true,
		Total:     r.Total,
		StartedAt: r.StartedAt,
		Failures:  []failureView{},
	}
}

func (p *Progress) OnOutcome(_ context.Context, _ *model.SendReport, e model.Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.view.Processed++
	p.view.Last = e.Recipient.String()
	switch e.Outcome.Status {
	case model.OutcomeSent:
		p.view.Sent++
		return
	case model.OutcomeNotFound:
		p.view.NotFound++
	default:
		p.view.Failed++
	}
	p.view.Failures = append(p.view.Failures, failureView{
		Seq:       e.Seq,
		Recipient: e.Recipient.String(),
		Status:    e.Outcome.Status,
		Reason:    e.Outcome.Reason,
	})
}

func (p *Progress) OnFinish(_ context.Context, r *model.SendReport) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.view.Running = false
	p.view.Cancelled = r.Cancelled
}

// Snapshot returns a copy safe to serialize outside the lock.
func (p *Progress) Snapshot() ProgressView {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v := p.view
	v.Failures = append([]failureView(nil), p.view.Failures...)
	return v
}
