package etl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/codeready-toolchain/logwatch/pkg/db"
	"github.com/codeready-toolchain/logwatch/pkg/models"
)

// JobStateStore tracks idempotent progress per (source_table, window), the
// way nightowl's runbook.Store wraps one table behind a small Go type
// instead of hand-writing SQL at every call site.
type JobStateStore struct {
	dbtx db.DBTX
}

func NewJobStateStore(dbtx db.DBTX) *JobStateStore {
	return &JobStateStore{dbtx: dbtx}
}

// Claim attempts to start work on (table, windowStart, windowEnd). Re-runs
// are net-zero (spec §4.4 step 5): unclaimed → start it; done → ErrAlreadyDone;
// failed → retry with attempt+1, unless attempt already hit maxAttempts.
var ErrAlreadyDone = errors.New("etl: window already done")
var ErrMaxAttemptsExceeded = errors.New("etl: window exceeded max attempts")

func (s *JobStateStore) Claim(ctx context.Context, table string, windowStart, windowEnd time.Time, maxAttempts int) (attempt int, err error) {
	var existing models.JobStateRecord
	var state string
	row := s.dbtx.QueryRow(ctx, `SELECT state, attempt FROM etl_job_state WHERE source_table=$1 AND window_start=$2`, table, windowStart)
	scanErr := row.Scan(&state, &existing.Attempt)

	switch {
	case errors.Is(scanErr, pgx.ErrNoRows):
		_, err = s.dbtx.Exec(ctx, `INSERT INTO etl_job_state (source_table, window_start, window_end, state, attempt, started_ts) VALUES ($1,$2,$3,'running',1,now())`,
			table, windowStart, windowEnd)
		return 1, err
	case scanErr != nil:
		return 0, fmt.Errorf("checking job state: %w", scanErr)
	case state == string(models.JobStateDone):
		return existing.Attempt, ErrAlreadyDone
	case state == string(models.JobStateRunning):
		return existing.Attempt, fmt.Errorf("etl: window %s/%s already running", table, windowStart)
	default: // failed
		if existing.Attempt >= maxAttempts {
			return existing.Attempt, ErrMaxAttemptsExceeded
		}
		next := existing.Attempt + 1
		_, err = s.dbtx.Exec(ctx, `UPDATE etl_job_state SET state='running', attempt=$3, started_ts=now(), finished_ts=NULL WHERE source_table=$1 AND window_start=$2`,
			table, windowStart, next)
		return next, err
	}
}

// Finish records the terminal outcome of a claimed window.
func (s *JobStateStore) Finish(ctx context.Context, table string, windowStart time.Time, state models.JobState, rowsIn, rowsOut int) error {
	_, err := s.dbtx.Exec(ctx,
		`UPDATE etl_job_state SET state=$3, rows_in=$4, rows_out=$5, finished_ts=now() WHERE source_table=$1 AND window_start=$2`,
		table, windowStart, string(state), rowsIn, rowsOut)
	return err
}

// List returns the most recent job-state rows, optionally filtered by
// source table and/or state, the data behind the ETL visibility endpoint
// (GET /api/etl/jobs?source_table=&state=).
func (s *JobStateStore) List(ctx context.Context, sourceTable, state string, limit int) ([]models.JobStateRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	sql := `SELECT source_table, window_start, window_end, rows_in, rows_out, state, attempt, started_ts, finished_ts
	        FROM etl_job_state WHERE 1=1`
	args := []any{}
	if sourceTable != "" {
		args = append(args, sourceTable)
		sql += fmt.Sprintf(" AND source_table=$%d", len(args))
	}
	if state != "" {
		args = append(args, state)
		sql += fmt.Sprintf(" AND state=$%d", len(args))
	}
	args = append(args, limit)
	sql += fmt.Sprintf(" ORDER BY started_ts DESC LIMIT $%d", len(args))

	rows, err := s.dbtx.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("listing job state: %w", err)
	}
	defer rows.Close()

	var out []models.JobStateRecord
	for rows.Next() {
		var rec models.JobStateRecord
		var state string
		if err := rows.Scan(&rec.SourceTable, &rec.WindowStart, &rec.WindowEnd, &rec.RowsIn, &rec.RowsOut, &state, &rec.Attempt, &rec.StartedTS, &rec.FinishedTS); err != nil {
			return nil, fmt.Errorf("scanning job state row: %w", err)
		}
		rec.State = models.JobState(state)
		out = append(out, rec)
	}
	return out, rows.Err()
}
