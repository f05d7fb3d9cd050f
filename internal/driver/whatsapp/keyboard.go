package whatsapp

import (
	"context"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

type keystroke struct {
	key   string
	shift bool
}

// keystrokes splits text into single key presses. Line breaks become
// Shift+Enter so they don't submit the message; CR is dropped.
func keystrokes(text string) []keystroke {
	out := make([]keystroke, 0, len(text))
	for _, r := range text {
		switch r {
		case '\r':
			continue
		case '\n':
			out = append(out, keystroke{key: kb.Enter, shift: true})
		default:
			out = append(out, keystroke{key: string(r)})
		}
	}
	return out
}

func (k keystroke) action() chromedp.Action {
	if k.shift {
		return chromedp.KeyEvent(k.key, chromedp.KeyModifiers(input.ModifierShift))
	}
	return chromedp.KeyEvent(k.key)
}

// typeText sends text to the focused element one key at a time with a
// random pause drawn from the typing range after every key.
func (d *Driver) typeText(ctx context.Context, text string) error {
	for _, k := range keystrokes(text) {
		if err := chromedp.Run(ctx, k.action()); err != nil {
			return err
		}
		if err := d.pause(ctx, d.opts.Jitter.Draw(d.opts.Typing)); err != nil {
			return err
		}
	}
	return nil
}
