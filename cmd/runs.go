package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/jmehdipour/wa-bulk-sender/internal/config"
	"github.com/jmehdipour/wa-bulk-sender/internal/db"
	"github.com/jmehdipour/wa-bulk-sender/internal/model"
	"github.com/jmehdipour/wa-bulk-sender/internal/repository"
	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	var (
		runID     string
		status    string
		recipient string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List archived outcomes from ClickHouse",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(cmd)
			if err != nil {
				return err
			}
			if !cfg.ClickHouse.Enabled {
				return fmt.Errorf("%w: clickhouse is not enabled", config.ErrInvalid)
			}

			f := repository.OutcomeFilter{RunID: runID, Recipient: recipient, Limit: limit}
			if status != "" {
				st, ok := model.ParseOutcomeStatus(status)
				if !ok {
					return fmt.Errorf("%w: unknown status %q", config.ErrInvalid, status)
				}
				f.Status = st
			}

			chDB, err := db.OpenClickHouse(cfg.ClickHouse)
			if err != nil {
				return fmt.Errorf("open clickhouse: %w", err)
			}
			defer chDB.Close()

			rows, err := repository.NewCHOutcomesRepository(chDB).List(cmd.Context(), f)
			if err != nil {
				return fmt.Errorf("list outcomes: %w", err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tSEQ\tRECIPIENT\tSTATUS\tREASON\tAT")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n",
					r.RunID, r.Seq, r.Recipient, r.Status, r.Reason, r.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return tw.Flush()
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&runID, "run", "", "only this run ID")
	fl.StringVar(&status, "status", "", "only this status (sent, not_found, failed)")
	fl.StringVar(&recipient, "recipient", "", "only this recipient")
	fl.IntVar(&limit, "limit", 50, "max rows (1-1000)")

	return cmd
}
