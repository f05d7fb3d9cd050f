// Package report renders a finished SendReport for people and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jmehdipour/wa-bulk-sender/internal/model"
)

const rule = "=================================================="

// WriteSummary prints counts and every recipient that did not get the message.
func WriteSummary(w io.Writer, r *model.SendReport) error {
	var b strings.Builder

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "SUMMARY (run %s)\n", r.RunID)
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Sent:      %d\n", r.Sent())
	fmt.Fprintf(&b, "Not found: %d\n", r.NotFound())
	fmt.Fprintf(&b, "Failed:    %d\n", r.Failed())
	if r.Cancelled {
		fmt.Fprintf(&b, "Skipped:   %d (run cancelled)\n", r.Skipped())
	}
	if !r.StartedAt.IsZero() && !r.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "Duration:  %s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Second))
	}

	if bad := r.Unsuccessful(); len(bad) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Not delivered:")
		for _, e := range bad {
			switch e.Outcome.Status {
			case model.OutcomeNotFound:
				fmt.Fprintf(&b, "  - %s: not found\n", e.Recipient)
			default:
				fmt.Fprintf(&b, "  - %s: %s\n", e.Recipient, e.Outcome.Reason)
			}
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteJSON encodes the report with derived counts.
func WriteJSON(w io.Writer, r *model.SendReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonReport{
		SendReport: r,
		Counts: counts{
			Sent:     r.Sent(),
			NotFound: r.NotFound(),
			Failed:   r.Failed(),
			Skipped:  r.Skipped(),
		},
	})
}

// SaveJSON writes the report to path; "-" means stdout.
func SaveJSON(path string, r *model.SendReport) error {
	if path == "-" {
		return WriteJSON(os.Stdout, r)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	if err := WriteJSON(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("write report file: %w", err)
	}
	return f.Close()
}

type counts struct {
	Sent     int `json:"sent"`
	NotFound int `json:"not_found"`
	Failed   int `json:"failed"`
	Skipped  int `json:"skipped"`
}

type jsonReport struct {
	*model.SendReport
	Counts counts `json:"counts"`
}
