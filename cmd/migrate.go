package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmehdipour/wa-bulk-sender/internal/db"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the run archive tables (MySQL) and the outcomes table (ClickHouse)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(cmd)
			if err != nil {
				return err
			}
			if !cfg.MySQL.Enabled && !cfg.ClickHouse.Enabled {
				return errors.New("nothing to migrate: enable mysql and/or clickhouse in config")
			}

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if cfg.MySQL.Enabled {
				sqlDB, err := db.OpenMySQL(cfg.MySQL)
				if err != nil {
					return fmt.Errorf("open mysql: %w", err)
				}
				defer sqlDB.Close()

				if err := applyFile(ctx, sqlDB, filepath.Join(dir, "001_init.sql")); err != nil {
					return err
				}
				fmt.Fprintln(out, ">> mysql migration complete")
			}

			if cfg.ClickHouse.Enabled {
				chDB, err := db.OpenClickHouse(cfg.ClickHouse)
				if err != nil {
					return fmt.Errorf("open clickhouse: %w", err)
				}
				defer chDB.Close()

				if err := applyFile(ctx, chDB, filepath.Join(dir, "clickhouse", "001_outcomes.sql")); err != nil {
					return err
				}
				fmt.Fprintln(out, ">> clickhouse migration complete")
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "migrations", "directory holding the SQL migration files")
	return cmd
}

func applyFile(ctx context.Context, conn *sqlx.DB, path string) error {
	sqlBytes, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read migration file %s: %w", path, err)
	}

	for _, stmt := range splitStatements(string(sqlBytes)) {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec migration %s: %w", path, err)
		}
	}
	return nil
}

// splitStatements cuts a migration file on ";" and drops comment-only chunks.
// Statements must not contain literal semicolons.
func splitStatements(src string) []string {
	var out []string
	for _, chunk := range strings.Split(src, ";") {
		var lines []string
		for _, line := range strings.Split(chunk, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "--") {
				continue
			}
			lines = append(lines, line)
		}
		stmt := strings.TrimSpace(strings.Join(lines, "\n"))
		if stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
