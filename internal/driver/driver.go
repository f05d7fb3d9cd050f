// Package driver defines the capability the send loop needs from a messaging UI.
package driver

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmehdipour/wa-bulk-sender/internal/model"
)

// ErrInit wraps any failure to start or log in; no send is attempted after it.
var ErrInit = errors.New("driver initialization failed")

// UIDriver is an exclusively owned UI session. Calls are never concurrent.
type UIDriver interface {
	// Authenticate blocks until the operator has logged in out of band.
	Authenticate(ctx context.Context) error
	// Open locates the recipient's conversation; false means not found.
	Open(ctx context.Context, r model.Recipient) (bool, error)
	// Send delivers message into the conversation opened last.
	Send(ctx context.Context, message string) error
	// Close releases the browser. Safe to call more than once.
	Close() error
}

// Factory starts a new session.
type Factory func(ctx context.Context) (UIDriver, error)

// Use starts a session, authenticates it, runs fn and always closes the
// session afterwards, whatever fn returns (or panics with).
func Use(ctx context.Context, start Factory, fn func(UIDriver) error) (err error) {
	d, err := start(ctx)
	if err != nil {
		return fmt.Errorf("%w: start: %v", ErrInit, err)
	}
	defer func() {
		if cerr := d.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close driver: %w", cerr)
		}
	}()

	if err := d.Authenticate(ctx); err != nil {
		return fmt.Errorf("%w: authenticate: %v", ErrInit, err)
	}

	return fn(d)
}
