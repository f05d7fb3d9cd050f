package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jmehdipour/wa-bulk-sender/internal/driver"
	"github.com/jmehdipour/wa-bulk-sender/internal/metrics"
	"github.com/jmehdipour/wa-bulk-sender/internal/model"
	"github.com/jmehdipour/wa-bulk-sender/internal/pacing"
	"go.uber.org/zap"
)

// Observer is told about run progress. Implementations must not block for
// long; the run waits for them.
type Observer interface {
	OnStart(ctx context.Context, report *model.SendReport)
	OnOutcome(ctx context.Context, report *model.SendReport, e model.Entry)
	OnFinish(ctx context.Context, report *model.SendReport)
}

// Sender:
// - walks recipients strictly one at a time,
// - opens each conversation and sends the message through the driver,
// - records exactly one outcome per recipient (no retries),
// - pauses a random delay between recipients.
type Sender struct {
	// Dependencies
	Driver    driver.UIDriver
	Jitter    *pacing.Jitter
	Sleeper   pacing.Sleeper
	Cooldown  *pacing.Cooldown // optional
	Observers []Observer
	Log       *zap.Logger

	// Behavior
	Delay model.DelayRange
	Now   func() time.Time
}

// NewSender builds a sender with wall-clock pacing.
func NewSender(d driver.UIDriver, delay model.DelayRange, log *zap.Logger) *Sender {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sender{
		Driver:  d,
		Jitter:  pacing.NewRandomJitter(),
		Sleeper: pacing.WallClock,
		Log:     log,
		Delay:   delay,
		Now:     time.Now,
	}
}

// Run processes recipients in order and returns the report. Cancelling ctx
// stops the run before the next recipient; the recipient in flight is
// finished first. The only error is an invalid delay range, reported before
// any driver call.
func (s *Sender) Run(ctx context.Context, runID string, recipients []model.Recipient, message string) (*model.SendReport, error) {
	if err := s.Delay.Validate(); err != nil {
		return nil, err
	}
	if s.Jitter == nil {
		s.Jitter = pacing.NewRandomJitter()
	}
	if s.Sleeper == nil {
		s.Sleeper = pacing.WallClock
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	if s.Log == nil {
		s.Log = zap.NewNop()
	}

	total := len(recipients)
	report := model.NewSendReport(runID, message, total)
	report.StartedAt = s.Now()

	log := s.Log.With(zap.String("run_id", runID))
	metrics.RecipientsPending.Set(float64(total))

	for _, o := range s.Observers {
		o.OnStart(ctx, report)
	}

	// driver calls are not interrupted midway
	callCtx := context.WithoutCancel(ctx)

	for i, r := range recipients {
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}

		log.Info(fmt.Sprintf("[%d/%d] processing", i+1, total), zap.String("recipient", r.String()))

		started := s.Now()
		out := s.attempt(callCtx, r, message)
		e := report.Record(r, out, s.Now())

		metrics.OutcomesTotal.WithLabelValues(out.Status.String()).Inc()
		metrics.AttemptSeconds.WithLabelValues(out.Status.String()).Observe(e.At.Sub(started).Seconds())
		metrics.RecipientsPending.Set(float64(total - i - 1))

		s.logOutcome(log, e)
		s.track(out)

		for _, o := range s.Observers {
			o.OnOutcome(ctx, report, e)
		}

		if i == total-1 {
			break
		}
		if err := s.wait(ctx, log); err != nil {
			report.Cancelled = true
			break
		}
	}

	report.FinishedAt = s.Now()
	if report.Cancelled {
		log.Warn("run cancelled",
			zap.Int("processed", len(report.Entries)),
			zap.Int("skipped", report.Skipped()))
	}

	for _, o := range s.Observers {
		o.OnFinish(ctx, report)
	}

	return report, nil
}

// attempt never lets a driver failure (error or panic) escape.
func (s *Sender) attempt(ctx context.Context, r model.Recipient, message string) (out model.Outcome) {
	defer func() {
		if p := recover(); p != nil {
			out = model.Failed(fmt.Sprintf("driver panic: %v", p))
		}
	}()

	found, err := s.Driver.Open(ctx, r)
	if err != nil {
		return model.Failed(err.Error())
	}
	if !found {
		return model.NotFound()
	}

	if err := s.Driver.Send(ctx, message); err != nil {
		return model.Failed(err.Error())
	}
	return model.Sent()
}

func (s *Sender) track(out model.Outcome) {
	if s.Cooldown == nil {
		return
	}
	if out.Status == model.OutcomeSent {
		s.Cooldown.OnSuccess()
		return
	}
	s.Cooldown.OnFailure()
}

// wait sleeps the cooldown (if owed) and then a random delay.
func (s *Sender) wait(ctx context.Context, log *zap.Logger) error {
	if s.Cooldown != nil {
		if d, ok := s.Cooldown.Take(); ok {
			metrics.CooldownsTotal.Inc()
			log.Warn("too many unsuccessful sends in a row, cooling down", zap.Duration("pause", d))
			if err := s.Sleeper.Sleep(ctx, d); err != nil {
				return err
			}
		}
	}

	d := s.Jitter.Draw(s.Delay)
	metrics.SendDelaySeconds.Observe(d.Seconds())
	log.Info(fmt.Sprintf("waiting %.1f seconds before next message", d.Seconds()))

	return s.Sleeper.Sleep(ctx, d)
}

func (s *Sender) logOutcome(log *zap.Logger, e model.Entry) {
	fields := []zap.Field{
		zap.Int("seq", e.Seq),
		zap.String("recipient", e.Recipient.String()),
	}
	switch e.Outcome.Status {
	case model.OutcomeSent:
		log.Info("message sent", fields...)
	case model.OutcomeNotFound:
		log.Warn("contact not found", fields...)
	default:
		log.Warn("send failed", append(fields, zap.String("reason", e.Outcome.Reason))...)
	}
}
