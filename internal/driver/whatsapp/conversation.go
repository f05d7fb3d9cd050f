package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/jmehdipour/wa-bulk-sender/internal/model"
	"go.uber.org/zap"
)

// fixed settling waits between UI steps
const (
	settleLogin   = 2 * time.Second
	settleClick   = 500 * time.Millisecond
	settleClear   = 300 * time.Millisecond
	settleResults = 1500 * time.Millisecond
	settleOpen    = 2 * time.Second
	settleTyped   = 500 * time.Millisecond
	settleSent    = time.Second
	composerPoll  = 250 * time.Millisecond
)

var errNoConversation = errors.New("no conversation open")

const clearJS = `(() => {
  const el = document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
  if (!el) return false;
  el.focus();
  document.execCommand('selectAll', false, null);
  document.execCommand('delete', false, null);
  return true;
})()`

func clearEditable(xpath string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		var ok bool
		return chromedp.Evaluate(fmt.Sprintf(clearJS, strconv.Quote(xpath)), &ok).Do(ctx)
	})
}

// Open searches for r and presses Enter on the first hit. The conversation
// counts as found when a message composer shows up.
func (d *Driver) Open(ctx context.Context, r model.Recipient) (bool, error) {
	d.opened = ""

	c, done := d.step(ctx, d.opts.WaitTimeout)
	defer done()

	sb := d.opts.SearchBox
	if err := chromedp.Run(c,
		chromedp.WaitVisible(sb, chromedp.BySearch),
		chromedp.Click(sb, chromedp.BySearch),
	); err != nil {
		return false, stepErr(c, "search box", err)
	}

	if err := d.pause(c, settleClick); err != nil {
		return false, stepErr(c, "search box", err)
	}
	if err := chromedp.Run(c, clearEditable(sb)); err != nil {
		return false, stepErr(c, "clear search", err)
	}
	if err := d.pause(c, settleClear); err != nil {
		return false, stepErr(c, "clear search", err)
	}
	if err := d.typeText(c, r.String()); err != nil {
		return false, stepErr(c, "type recipient", err)
	}
	if err := d.pause(c, settleResults); err != nil {
		return false, stepErr(c, "search results", err)
	}
	if err := chromedp.Run(c, chromedp.KeyEvent(kb.Enter)); err != nil {
		return false, stepErr(c, "select result", err)
	}
	if err := d.pause(c, settleOpen); err != nil {
		return false, stepErr(c, "open chat", err)
	}

	sel, err := d.composer(c)
	if err != nil {
		return false, stepErr(c, "composer lookup", err)
	}
	if sel == "" {
		d.resetSearch(c)
		return false, nil
	}

	d.opened = r
	return true, nil
}

// Send types message into the open conversation and presses Enter.
func (d *Driver) Send(ctx context.Context, message string) error {
	if d.opened == "" {
		return errNoConversation
	}
	defer func() { d.opened = "" }()

	c, done := d.step(ctx, d.opts.WaitTimeout)
	defer done()

	sel, err := d.waitComposer(c)
	if err != nil {
		return stepErr(c, "composer", err)
	}

	if err := chromedp.Run(c, chromedp.Click(sel, chromedp.BySearch)); err != nil {
		return stepErr(c, "focus composer", err)
	}
	if err := d.pause(c, settleClear); err != nil {
		return stepErr(c, "focus composer", err)
	}
	if err := d.typeText(c, message); err != nil {
		return stepErr(c, "type message", err)
	}
	if err := d.pause(c, settleTyped); err != nil {
		return stepErr(c, "type message", err)
	}
	if err := chromedp.Run(c, chromedp.KeyEvent(kb.Enter)); err != nil {
		return stepErr(c, "submit", err)
	}

	d.log.Debug("message submitted", zap.String("recipient", d.opened.String()))
	return d.pause(c, settleSent)
}

// composer returns the first configured composer selector present on the page, or "".
func (d *Driver) composer(ctx context.Context) (string, error) {
	for _, sel := range d.opts.Composer {
		var nodes []*cdp.Node
		if err := chromedp.Run(ctx, chromedp.Nodes(sel, &nodes, chromedp.BySearch, chromedp.AtLeast(0))); err != nil {
			return "", err
		}
		if len(nodes) > 0 {
			return sel, nil
		}
	}
	return "", nil
}

func (d *Driver) waitComposer(ctx context.Context) (string, error) {
	for {
		sel, err := d.composer(ctx)
		if err != nil {
			return "", err
		}
		if sel != "" {
			return sel, nil
		}
		if err := d.pause(ctx, composerPoll); err != nil {
			return "", err
		}
	}
}

// resetSearch is best effort; failures only get logged.
func (d *Driver) resetSearch(ctx context.Context) {
	err := chromedp.Run(ctx,
		clearEditable(d.opts.SearchBox),
		chromedp.KeyEvent(kb.Escape),
	)
	if err != nil {
		d.log.Debug("reset search failed", zap.Error(err))
	}
}
