package repository

import (
	"context"
	"fmt"

	"github.com/jmehdipour/wa-bulk-sender/internal/model"
	"github.com/jmoiron/sqlx"
)

// RunsRepository archives finished reports in MySQL (runs + run_entries).
type RunsRepository interface {
	Save(ctx context.Context, report *model.SendReport) error
	InsertRun(ctx context.Context, tx *sqlx.Tx, run model.Run) error
	InsertEntries(ctx context.Context, tx *sqlx.Tx, rows []model.OutcomeRow) error
}

type RunsRepositoryImpl struct {
	db *sqlx.DB
}

func NewRunsRepository(db *sqlx.DB) *RunsRepositoryImpl {
	return &RunsRepositoryImpl{db: db}
}

// withTx runs fn in the provided tx, or starts a new transaction when tx is nil.
func (r *RunsRepositoryImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}
	t, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = t.Rollback() }()
	if err := fn(t); err != nil {
		return err
	}
	return t.Commit()
}

// Save writes the run header and all its entries in one transaction.
func (r *RunsRepositoryImpl) Save(ctx context.Context, report *model.SendReport) error {
	rows := make([]model.OutcomeRow, 0, len(report.Entries))
	for _, e := range report.Entries {
		rows = append(rows, model.NewOutcomeRow(report.RunID, e))
	}

	return r.withTx(ctx, nil, func(tx *sqlx.Tx) error {
		if err := r.InsertRun(ctx, tx, model.NewRun(report)); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		if err := r.InsertEntries(ctx, tx, rows); err != nil {
			return fmt.Errorf("insert entries: %w", err)
		}
		return nil
	})
}

// InsertRun is idempotent on id so a retried archive does not fail.
func (r *RunsRepositoryImpl) InsertRun(ctx context.Context, tx *sqlx.Tx, run model.Run) error {
	const q = `
		INSERT INTO runs
		    (id, message, total, sent, not_found, failed, cancelled, started_at, finished_at)
		VALUES
		    (:id, :message, :total, :sent, :not_found, :failed, :cancelled, :started_at, :finished_at)
		ON DUPLICATE KEY UPDATE id = id
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, q, run)
		return err
	})
}

// InsertEntries batch-inserts rows with a single statement.
func (r *RunsRepositoryImpl) InsertEntries(ctx context.Context, tx *sqlx.Tx, rows []model.OutcomeRow) error {
	if len(rows) == 0 {
		return nil
	}
	const q = `
		INSERT IGNORE INTO run_entries
		    (run_id, seq, recipient, status, reason, created_at)
		VALUES
		    (:run_id, :seq, :recipient, :status, :reason, :created_at)
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, q, rows)
		return err
	})
}
