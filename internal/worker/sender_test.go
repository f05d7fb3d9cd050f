package worker_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/jmehdipour/wa-bulk-sender/internal/mocks"
	"github.com/jmehdipour/wa-bulk-sender/internal/model"
	"github.com/jmehdipour/wa-bulk-sender/internal/pacing"
	"github.com/jmehdipour/wa-bulk-sender/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingSleeper never waits; it records requested durations.
type recordingSleeper struct {
	mu    sync.Mutex
	slept []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.slept = append(s.slept, d)
	s.mu.Unlock()
	return ctx.Err()
}

func newSender(d *mocks.UIDriver, delay model.DelayRange) (*worker.Sender, *recordingSleeper) {
	sl := &recordingSleeper{}
	s := worker.NewSender(d, delay, zap.NewNop())
	s.Jitter = pacing.NewJitter(rand.NewPCG(42, 42))
	s.Sleeper = sl
	return s, sl
}

func statuses(r *model.SendReport) []model.Outcome {
	out := make([]model.Outcome, 0, len(r.Entries))
	for _, e := range r.Entries {
		out = append(out, e.Outcome)
	}
	return out
}

func TestSender_Run(t *testing.T) {
	ctx := context.Background()
	delay := model.DelayRange{Min: 2 * time.Second, Max: 5 * time.Second}
	recipients := []model.Recipient{"A", "B", "C"}

	t.Run("all sent", func(t *testing.T) {
		d := &mocks.UIDriver{}
		for _, r := range recipients {
			d.On("Open", mock.Anything, r).Return(true, nil).Once()
		}
		d.On("Send", mock.Anything, "hello").Return(nil).Times(3)

		s, sl := newSender(d, delay)
		report, err := s.Run(ctx, "run-1", recipients, "hello")

		require.NoError(t, err)
		assert.Equal(t, []model.Outcome{model.Sent(), model.Sent(), model.Sent()}, statuses(report))
		assert.Equal(t, 3, report.Sent())
		assert.False(t, report.Cancelled)
		assert.Equal(t, "run-1", report.RunID)
		assert.Len(t, sl.slept, 2, "no delay after the last recipient")
		d.AssertExpectations(t)
	})

	t.Run("not found does not stop the run", func(t *testing.T) {
		d := &mocks.UIDriver{}
		d.On("Open", mock.Anything, model.Recipient("A")).Return(true, nil).Once()
		d.On("Open", mock.Anything, model.Recipient("B")).Return(false, nil).Once()
		d.On("Open", mock.Anything, model.Recipient("C")).Return(true, nil).Once()
		d.On("Send", mock.Anything, "hello").Return(nil).Twice()

		s, _ := newSender(d, delay)
		report, err := s.Run(ctx, "run", recipients, "hello")

		require.NoError(t, err)
		assert.Equal(t, []model.Outcome{model.Sent(), model.NotFound(), model.Sent()}, statuses(report))
		assert.Equal(t, 1, report.NotFound())
		d.AssertExpectations(t)
	})

	t.Run("send failure is recorded with reason", func(t *testing.T) {
		d := &mocks.UIDriver{}
		for _, r := range recipients {
			d.On("Open", mock.Anything, r).Return(true, nil).Once()
		}
		d.On("Send", mock.Anything, "hello").Return(nil).Once()
		d.On("Send", mock.Anything, "hello").Return(errors.New("timeout")).Once()
		d.On("Send", mock.Anything, "hello").Return(nil).Once()

		s, _ := newSender(d, delay)
		report, err := s.Run(ctx, "run", recipients, "hello")

		require.NoError(t, err)
		assert.Equal(t, []model.Outcome{model.Sent(), model.Failed("timeout"), model.Sent()}, statuses(report))
		assert.Equal(t, 2, report.Sent())
		assert.Equal(t, 1, report.Failed())
		d.AssertExpectations(t)
	})

	t.Run("open error is a failure", func(t *testing.T) {
		d := &mocks.UIDriver{}
		d.On("Open", mock.Anything, model.Recipient("A")).Return(false, errors.New("search box: timeout")).Once()

		s, _ := newSender(d, delay)
		report, err := s.Run(ctx, "run", []model.Recipient{"A"}, "hello")

		require.NoError(t, err)
		assert.Equal(t, []model.Outcome{model.Failed("search box: timeout")}, statuses(report))
		d.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("driver panic becomes a failure", func(t *testing.T) {
		d := &mocks.UIDriver{}
		d.On("Open", mock.Anything, model.Recipient("A")).Run(func(mock.Arguments) { panic("tab crashed") }).Return(false, nil)
		d.On("Open", mock.Anything, model.Recipient("B")).Return(true, nil).Once()
		d.On("Send", mock.Anything, "hello").Return(nil).Once()

		s, _ := newSender(d, delay)
		report, err := s.Run(ctx, "run", []model.Recipient{"A", "B"}, "hello")

		require.NoError(t, err)
		assert.Equal(t, []model.Outcome{model.Failed("driver panic: tab crashed"), model.Sent()}, statuses(report))
	})

	t.Run("empty list never touches the driver", func(t *testing.T) {
		d := &mocks.UIDriver{}

		s, sl := newSender(d, delay)
		report, err := s.Run(ctx, "run", nil, "hello")

		require.NoError(t, err)
		assert.Empty(t, report.Entries)
		assert.Zero(t, report.Sent())
		assert.Zero(t, report.Failed())
		assert.Empty(t, sl.slept)
		d.AssertNotCalled(t, "Open", mock.Anything, mock.Anything)
		d.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("duplicates are processed independently", func(t *testing.T) {
		d := &mocks.UIDriver{}
		d.On("Open", mock.Anything, model.Recipient("A")).Return(true, nil).Twice()
		d.On("Send", mock.Anything, "hello").Return(nil).Once()
		d.On("Send", mock.Anything, "hello").Return(errors.New("unexpected state")).Once()

		s, _ := newSender(d, delay)
		report, err := s.Run(ctx, "run", []model.Recipient{"A", "A"}, "hello")

		require.NoError(t, err)
		require.Len(t, report.Entries, 2)
		assert.Equal(t, []model.Outcome{model.Sent(), model.Failed("unexpected state")}, statuses(report))
		d.AssertExpectations(t)
	})

	t.Run("delays stay within range", func(t *testing.T) {
		d := &mocks.UIDriver{}
		d.On("Open", mock.Anything, mock.Anything).Return(true, nil)
		d.On("Send", mock.Anything, "hello").Return(nil)

		many := make([]model.Recipient, 50)
		for i := range many {
			many[i] = model.Recipient("+1")
		}

		s, sl := newSender(d, delay)
		_, err := s.Run(ctx, "run", many, "hello")

		require.NoError(t, err)
		require.Len(t, sl.slept, 49)
		for _, got := range sl.slept {
			assert.True(t, delay.Contains(got), "delay %s outside %v", got, delay)
		}
	})

	t.Run("invalid delay range is rejected before any send", func(t *testing.T) {
		d := &mocks.UIDriver{}

		s, _ := newSender(d, model.DelayRange{Min: 5 * time.Second, Max: time.Second})
		report, err := s.Run(ctx, "run", recipients, "hello")

		assert.ErrorIs(t, err, model.ErrInvalidDelayRange)
		assert.Nil(t, report)
		d.AssertNotCalled(t, "Open", mock.Anything, mock.Anything)
	})
}

func TestSender_Cancellation(t *testing.T) {
	t.Run("cancel after 2 of 5 keeps 2 entries", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		d := &mocks.UIDriver{}
		d.On("Open", mock.Anything, model.Recipient("1")).Return(true, nil).Once()
		d.On("Open", mock.Anything, model.Recipient("2")).Return(true, nil).Once()
		d.On("Send", mock.Anything, "hi").Return(nil).Once()
		d.On("Send", mock.Anything, "hi").Run(func(mock.Arguments) { cancel() }).Return(nil).Once()

		s, _ := newSender(d, model.DelayRange{Min: time.Second, Max: time.Second})
		report, err := s.Run(ctx, "run", []model.Recipient{"1", "2", "3", "4", "5"}, "hi")

		require.NoError(t, err)
		assert.Len(t, report.Entries, 2)
		assert.True(t, report.Cancelled)
		assert.Equal(t, 3, report.Skipped())
		for _, r := range []model.Recipient{"3", "4", "5"} {
			d.AssertNotCalled(t, "Open", mock.Anything, r)
		}
		d.AssertExpectations(t)
	})

	t.Run("in-flight call sees an uncancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		d := &mocks.UIDriver{}
		d.On("Open", mock.Anything, model.Recipient("1")).Run(func(args mock.Arguments) {
			cancel()
			callCtx := args.Get(0).(context.Context)
			assert.NoError(t, callCtx.Err())
		}).Return(true, nil).Once()
		d.On("Send", mock.Anything, "hi").Return(nil).Once()

		s, _ := newSender(d, model.DelayRange{})
		report, err := s.Run(ctx, "run", []model.Recipient{"1", "2"}, "hi")

		require.NoError(t, err)
		assert.Equal(t, []model.Outcome{model.Sent()}, statuses(report))
		assert.True(t, report.Cancelled)
	})

	t.Run("already cancelled context processes nothing", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		d := &mocks.UIDriver{}
		s, _ := newSender(d, model.DelayRange{})
		report, err := s.Run(ctx, "run", []model.Recipient{"1"}, "hi")

		require.NoError(t, err)
		assert.Empty(t, report.Entries)
		assert.True(t, report.Cancelled)
	})
}

func TestSender_Cooldown(t *testing.T) {
	d := &mocks.UIDriver{}
	d.On("Open", mock.Anything, model.Recipient("A")).Return(false, nil).Once()
	d.On("Open", mock.Anything, model.Recipient("B")).Return(false, nil).Once()
	d.On("Open", mock.Anything, model.Recipient("C")).Return(true, nil).Once()
	d.On("Send", mock.Anything, "hi").Return(nil).Once()

	s, sl := newSender(d, model.DelayRange{Min: time.Second, Max: time.Second})
	s.Cooldown = pacing.NewCooldown(2, time.Minute)

	report, err := s.Run(context.Background(), "run", []model.Recipient{"A", "B", "C"}, "hi")

	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent())
	assert.Equal(t, []time.Duration{time.Second, time.Minute, time.Second}, sl.slept)
}

func TestSender_Observers(t *testing.T) {
	d := &mocks.UIDriver{}
	d.On("Open", mock.Anything, mock.Anything).Return(true, nil)
	d.On("Send", mock.Anything, "hi").Return(nil)

	obs := &mocks.Observer{}
	obs.On("OnStart", mock.Anything, mock.AnythingOfType("*model.SendReport")).Once()
	obs.On("OnOutcome", mock.Anything, mock.AnythingOfType("*model.SendReport"),
		mock.MatchedBy(func(e model.Entry) bool { return e.Outcome.Status == model.OutcomeSent })).Twice()
	obs.On("OnFinish", mock.Anything, mock.MatchedBy(func(r *model.SendReport) bool {
		return len(r.Entries) == 2 && !r.FinishedAt.IsZero()
	})).Once()

	s, _ := newSender(d, model.DelayRange{})
	s.Observers = []worker.Observer{obs}

	_, err := s.Run(context.Background(), "run", []model.Recipient{"A", "B"}, "hi")

	require.NoError(t, err)
	obs.AssertExpectations(t)
}
