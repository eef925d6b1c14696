package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/codeready-toolchain/logwatch/pkg/apperrors"
	"github.com/codeready-toolchain/logwatch/pkg/models"
)

// AppendCheckpoint writes cp as the next entry in runID's append-only
// checkpoint log (spec §4.7: "checkpoint before every state transition").
// Seq is assigned by the caller (the orchestrator owns ordering); the
// UNIQUE(run_id, seq) constraint turns a racing double-write into a clear
// DataIntegrity error instead of silent duplication.
func (s *Store) AppendCheckpoint(ctx context.Context, cp models.Checkpoint) (*models.Checkpoint, error) {
	if cp.SessionID == "" || cp.RunID == "" {
		return nil, apperrors.New(apperrors.KindUsage, "", "session_id and run_id are required")
	}

	lock := s.sessionLock(cp.SessionID)
	lock.Lock()
	defer lock.Unlock()

	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.CreatedTS.IsZero() {
		cp.CreatedTS = time.Now().UTC()
	}

	_, err := s.dbtx.Exec(ctx,
		`INSERT INTO checkpoints (id, session_id, run_id, seq, node_id, state_blob, created_ts, parent_id, terminal, term_status)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		cp.ID, cp.SessionID, cp.RunID, cp.Seq, cp.NodeID, cp.StateBlob, cp.CreatedTS, cp.ParentID, cp.Terminal, nullIfEmpty(cp.TermStatus))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, apperrors.Wrap(apperrors.KindDataIntegrity, "", fmt.Errorf("checkpoint seq %d already written for run %s: %w", cp.Seq, cp.RunID, err))
		}
		return nil, fmt.Errorf("appending checkpoint: %w", err)
	}
	return &cp, nil
}

// LatestCheckpoint returns the highest-seq checkpoint for runID, the entry
// point for resuming or inspecting a run.
func (s *Store) LatestCheckpoint(ctx context.Context, runID string) (*models.Checkpoint, error) {
	row := s.dbtx.QueryRow(ctx,
		`SELECT id, session_id, run_id, seq, node_id, state_blob, created_ts, parent_id, terminal, term_status
		 FROM checkpoints WHERE run_id = $1 ORDER BY seq DESC LIMIT 1`, runID)

	var cp models.Checkpoint
	var termStatus *string
	if err := row.Scan(&cp.ID, &cp.SessionID, &cp.RunID, &cp.Seq, &cp.NodeID, &cp.StateBlob, &cp.CreatedTS, &cp.ParentID, &cp.Terminal, &termStatus); err != nil {
		return nil, fmt.Errorf("scanning latest checkpoint for run %s: %w", runID, err)
	}
	if termStatus != nil {
		cp.TermStatus = *termStatus
	}
	return &cp, nil
}

// ListCheckpoints returns every checkpoint for runID in seq order.
func (s *Store) ListCheckpoints(ctx context.Context, runID string) ([]models.Checkpoint, error) {
	rows, err := s.dbtx.Query(ctx,
		`SELECT id, session_id, run_id, seq, node_id, state_blob, created_ts, parent_id, terminal, term_status
		 FROM checkpoints WHERE run_id = $1 ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing checkpoints: %w", err)
	}
	defer rows.Close()

	var out []models.Checkpoint
	for rows.Next() {
		var cp models.Checkpoint
		var termStatus *string
		if err := rows.Scan(&cp.ID, &cp.SessionID, &cp.RunID, &cp.Seq, &cp.NodeID, &cp.StateBlob, &cp.CreatedTS, &cp.ParentID, &cp.Terminal, &termStatus); err != nil {
			return nil, fmt.Errorf("scanning checkpoint row: %w", err)
		}
		if termStatus != nil {
			cp.TermStatus = *termStatus
		}
		out = append(out, cp)
	}
	return out, rows.Err()
}
