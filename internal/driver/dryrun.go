package driver

import (
	"context"
	"sync"

	"github.com/jmehdipour/wa-bulk-sender/internal/model"
	"go.uber.org/zap"
)

// DryRun logs every call instead of touching a browser. Every Open succeeds.
type DryRun struct {
	log *zap.Logger

	mu     sync.Mutex
	opened model.Recipient
	closed bool
}

func NewDryRun(log *zap.Logger) *DryRun {
	return &DryRun{log: log}
}

func (d *DryRun) Authenticate(ctx context.Context) error {
	d.log.Info("dry-run: skipping login")
	return ctx.Err()
}

func (d *DryRun) Open(_ context.Context, r model.Recipient) (bool, error) {
	d.mu.Lock()
	d.opened = r
	d.mu.Unlock()

	d.log.Info("dry-run: open conversation", zap.String("recipient", r.String()))
	return true, nil
}

func (d *DryRun) Send(_ context.Context, message string) error {
	d.mu.Lock()
	r := d.opened
	d.mu.Unlock()

	d.log.Info("dry-run: send",
		zap.String("recipient", r.String()),
		zap.Int("chars", len([]rune(message))))
	return nil
}

func (d *DryRun) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		d.log.Info("dry-run: closed")
	}
	return nil
}
