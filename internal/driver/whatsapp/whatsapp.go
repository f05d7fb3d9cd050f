// Package whatsapp drives WhatsApp Web through Chrome DevTools (chromedp).
//
// Selectors and waits mirror what the web client needs today and live in
// config; when the page changes, the config changes, not this code.
package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/jmehdipour/wa-bulk-sender/internal/config"
	"github.com/jmehdipour/wa-bulk-sender/internal/model"
	"github.com/jmehdipour/wa-bulk-sender/internal/pacing"
	"go.uber.org/zap"
)

// ErrTimeout is wrapped into any step that ran out of its wait budget.
var ErrTimeout = errors.New("timeout")

type Options struct {
	URL          string
	Headless     bool
	ProfileDir   string
	LoginTimeout time.Duration
	WaitTimeout  time.Duration
	SearchBox    string
	Composer     []string
	Typing       model.DelayRange

	Jitter  *pacing.Jitter
	Sleeper pacing.Sleeper
	Log     *zap.Logger
}

func OptionsFromConfig(wa config.WhatsAppConfig, p config.PacingConfig) Options {
	return Options{
		URL:          wa.URL,
		Headless:     wa.Headless,
		ProfileDir:   wa.ProfileDir,
		LoginTimeout: wa.LoginTimeout,
		WaitTimeout:  wa.WaitTimeout,
		SearchBox:    wa.Selectors.SearchBox,
		Composer:     wa.Selectors.Composer,
		Typing:       model.DelayRange{Min: p.TypingMin, Max: p.TypingMax},
	}
}

// Driver owns one Chrome instance with a single WhatsApp Web tab.
type Driver struct {
	opts Options
	log  *zap.Logger

	tab         context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc

	opened    model.Recipient
	closeOnce sync.Once
	closeErr  error
}

// New launches Chrome. The browser is detached from ctx cancellation so an
// in-flight step can finish; only Close tears it down.
func New(ctx context.Context, opts Options) (*Driver, error) {
	if opts.SearchBox == "" || len(opts.Composer) == 0 {
		return nil, errors.New("whatsapp: selectors not configured")
	}
	if opts.Jitter == nil {
		opts.Jitter = pacing.NewRandomJitter()
	}
	if opts.Sleeper == nil {
		opts.Sleeper = pacing.WallClock
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.WindowSize(1280, 900),
	)
	if opts.ProfileDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(opts.ProfileDir))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	tab, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(opts.Log.Sugar().Debugf),
		chromedp.WithErrorf(opts.Log.Sugar().Warnf),
	)

	// an empty Run starts the browser
	if err := chromedp.Run(tab); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	opts.Log.Info("chrome started", zap.Bool("headless", opts.Headless), zap.String("profile", opts.ProfileDir))

	return &Driver{
		opts:        opts,
		log:         opts.Log,
		tab:         tab,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
	}, nil
}

// step derives a bounded context from the tab that also ends when ctx does.
func (d *Driver) step(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	c, cancel := context.WithTimeout(d.tab, timeout)
	stop := context.AfterFunc(ctx, cancel)

	return c, func() {
		stop()
		cancel()
	}
}

func (d *Driver) pause(ctx context.Context, dur time.Duration) error {
	return d.opts.Sleeper.Sleep(ctx, dur)
}

// Authenticate opens the web client and waits until the chat list (search
// box) is visible, which only happens after the QR code was scanned.
func (d *Driver) Authenticate(ctx context.Context) error {
	c, done := d.step(ctx, d.opts.LoginTimeout)
	defer done()

	d.log.Info("waiting for login, scan the QR code with your phone",
		zap.String("url", d.opts.URL),
		zap.Duration("timeout", d.opts.LoginTimeout))

	err := chromedp.Run(c,
		chromedp.Navigate(d.opts.URL),
		chromedp.WaitVisible(d.opts.SearchBox, chromedp.BySearch),
	)
	if err != nil {
		return stepErr(c, "login", err)
	}

	d.log.Info("logged in")
	return d.pause(c, settleLogin)
}

// Close shuts the browser down.
func (d *Driver) Close() error {
	d.closeOnce.Do(func() {
		d.closeErr = chromedp.Cancel(d.tab)
		d.tabCancel()
		d.allocCancel()
		if d.closeErr != nil && errors.Is(d.closeErr, context.Canceled) {
			d.closeErr = nil
		}
		d.log.Info("chrome closed")
	})
	return d.closeErr
}

func stepErr(c context.Context, step string, err error) error {
	if errors.Is(c.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", step, ErrTimeout)
	}
	return fmt.Errorf("%s: %w", step, err)
}
