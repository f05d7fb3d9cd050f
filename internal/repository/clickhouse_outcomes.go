package repository

import (
	"context"
	"fmt"

	"github.com/jmehdipour/wa-bulk-sender/internal/model"
	"github.com/jmoiron/sqlx"
)

// OutcomeFilter narrows a ClickHouse listing; zero values mean "any".
type OutcomeFilter struct {
	RunID     string
	Recipient string
	Status    model.OutcomeStatus
	Limit     int
	Offset    int
}

// CHOutcomesRepository stores every outcome in ClickHouse for reporting.
type CHOutcomesRepository interface {
	InsertBatch(ctx context.Context, rows []model.OutcomeRow) error
	List(ctx context.Context, f OutcomeFilter) ([]model.OutcomeRow, error)
}

type chOutcomesRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewCHOutcomesRepository(ch *sqlx.DB) CHOutcomesRepository {
	return &chOutcomesRepository{ch: ch}
}

// InsertBatch uses the prepare-in-tx form, which clickhouse-go sends as one block.
func (r *chOutcomesRepository) InsertBatch(ctx context.Context, rows []model.OutcomeRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.ch.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO wabulk.outcomes (run_id, seq, recipient, status, reason, created_at)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.RunID, row.Seq, row.Recipient, row.Status, row.Reason, row.CreatedAt); err != nil {
			return fmt.Errorf("append row seq=%d: %w", row.Seq, err)
		}
	}

	return tx.Commit()
}

func (r *chOutcomesRepository) List(ctx context.Context, f OutcomeFilter) ([]model.OutcomeRow, error) {
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	q := `
		SELECT run_id, seq, recipient, status, reason, created_at
		FROM wabulk.outcomes
		WHERE 1 = 1
	`
	var args []any

	if f.RunID != "" {
		q += " AND run_id = ?"
		args = append(args, f.RunID)
	}
	if f.Status != "" {
		q += " AND status = ?"
		args = append(args, f.Status.String())
	}
	if f.Recipient != "" {
		q += " AND recipient = ?"
		args = append(args, f.Recipient)
	}

	q += " ORDER BY created_at DESC, seq DESC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, f.Offset)

	var rows []model.OutcomeRow
	if err := r.ch.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
