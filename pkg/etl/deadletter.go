package etl

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/logwatch/pkg/db"
	"github.com/codeready-toolchain/logwatch/pkg/models"
)

// DeadLetterSink persists rows that failed normalization along with the
// reason, so a later pass (or an operator) can inspect and replay them.
type DeadLetterSink struct {
	dbtx db.DBTX
}

func NewDeadLetterSink(dbtx db.DBTX) *DeadLetterSink {
	return &DeadLetterSink{dbtx: dbtx}
}

// Record writes one dead-lettered row.
func (d *DeadLetterSink) Record(ctx context.Context, table, originalJSON, reason string) error {
	_, err := d.dbtx.Exec(ctx,
		`INSERT INTO etl_dead_letters (id, source_table, original_json, reason, occurred_ts) VALUES ($1,$2,$3,$4,now())`,
		uuid.NewString(), table, originalJSON, reason)
	return err
}

// List returns the most recent dead-lettered rows, optionally filtered by
// source table, the data behind GET /api/etl/deadletters?source_table=&limit=.
func (d *DeadLetterSink) List(ctx context.Context, sourceTable string, limit int) ([]models.DeadLetter, error) {
	if limit <= 0 {
		limit = 100
	}

	sql := `SELECT id, source_table, original_json, reason, occurred_ts FROM etl_dead_letters WHERE 1=1`
	args := []any{}
	if sourceTable != "" {
		args = append(args, sourceTable)
		sql += fmt.Sprintf(" AND source_table=$%d", len(args))
	}
	args = append(args, limit)
	sql += fmt.Sprintf(" ORDER BY occurred_ts DESC LIMIT $%d", len(args))

	rows, err := d.dbtx.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("listing dead letters: %w", err)
	}
	defer rows.Close()

	var out []models.DeadLetter
	for rows.Next() {
		var dl models.DeadLetter
		if err := rows.Scan(&dl.ID, &dl.SourceTable, &dl.OriginalJSON, &dl.Reason, &dl.OccurredTS); err != nil {
			return nil, fmt.Errorf("scanning dead letter row: %w", err)
		}
		out = append(out, dl)
	}
	return out, rows.Err()
}
