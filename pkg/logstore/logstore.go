// Package logstore executes planned queries against the canonical log
// view, scanning rows into models.CanonicalLogRow with the same hand-rolled
// Scan-per-column style nightowl's runbook.Store uses instead of a
// generated mapper.
package logstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/codeready-toolchain/logwatch/pkg/apperrors"
	"github.com/codeready-toolchain/logwatch/pkg/contract"
	"github.com/codeready-toolchain/logwatch/pkg/costguard"
	"github.com/codeready-toolchain/logwatch/pkg/db"
	"github.com/codeready-toolchain/logwatch/pkg/models"
	"github.com/codeready-toolchain/logwatch/pkg/planner"
)

// Store executes planner.Query values and scans their rows.
type Store struct {
	dbtx  db.DBTX
	guard *costguard.Guard
}

// New builds a Store backed by dbtx, enforcing guard on every query.
func New(dbtx db.DBTX, guard *costguard.Guard) *Store {
	return &Store{dbtx: dbtx, guard: guard}
}

// List runs a build_list() query, returning matching rows newest-first.
func (s *Store) List(ctx context.Context, p *planner.Planner, req planner.LogQueryRequest) ([]models.CanonicalLogRow, error) {
	q, err := p.BuildList(req)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Check(ctx, q, req.TimeWindowHours > 0, req.Limit); err != nil {
		return nil, err
	}

	rows, err := s.dbtx.Query(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "", fmt.Errorf("executing list query: %w", err))
	}
	defer rows.Close()

	return scanRows(rows)
}

// AggregateRow is one GROUP BY bucket from build_aggregate().
type AggregateRow struct {
	Key   string
	Count int64
}

// Aggregate runs a build_aggregate(group_by) query.
func (s *Store) Aggregate(ctx context.Context, p *planner.Planner, req planner.LogQueryRequest) ([]AggregateRow, error) {
	q, err := p.BuildAggregate(req)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Check(ctx, q, req.TimeWindowHours > 0, req.Limit); err != nil {
		return nil, err
	}

	rows, err := s.dbtx.Query(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "", fmt.Errorf("executing aggregate query: %w", err))
	}
	defer rows.Close()

	var out []AggregateRow
	for rows.Next() {
		var ar AggregateRow
		if err := rows.Scan(&ar.Key, &ar.Count); err != nil {
			return nil, fmt.Errorf("scanning aggregate row: %w", err)
		}
		out = append(out, ar)
	}
	return out, rows.Err()
}

// TraceLookup returns every row for a trace_id, ordered event_ts ascending
// (spec §4.6: trace_lookup(trace_id) → rows[] ordered by event_ts asc).
func (s *Store) TraceLookup(ctx context.Context, traceID string) ([]models.CanonicalLogRow, error) {
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1 ORDER BY event_ts ASC",
		colList(), contract.ViewName, contract.ColTraceID)

	rows, err := s.dbtx.Query(ctx, sql, traceID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "", fmt.Errorf("executing trace lookup: %w", err))
	}
	defer rows.Close()

	return scanRows(rows)
}

func colList() string {
	out := ""
	for i, c := range contract.SelectColumns {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}

// scanRows reads every row into a CanonicalLogRow, following the column
// order of contract.SelectColumns exactly.
func scanRows(rows pgx.Rows) ([]models.CanonicalLogRow, error) {
	var out []models.CanonicalLogRow
	for rows.Next() {
		var r models.CanonicalLogRow
		err := rows.Scan(
			&r.LogID, &r.EventTS, &r.IngestTS, &r.Severity, &r.SeverityLevel,
			&r.ServiceName, &r.LogType, &r.ResourceType, &r.SourceTable, &r.SourceDataset,
			&r.Message, &r.TextPayload, &r.JSONPayload, &r.ProtoPayload,
			&r.HTTPMethod, &r.HTTPURL, &r.HTTPStatus, &r.HTTPLatencyMs,
			&r.TraceID, &r.SpanID, &r.ParentSpanID, &r.TraceSampled,
			&r.Envelope.SchemaVersion, &r.Envelope.Environment,
			&r.Envelope.Actor.UserID, &r.Envelope.Actor.TenantID, &r.Envelope.Actor.IP, &r.Envelope.Actor.UserAgent,
			&r.Envelope.Correlation.RequestID, &r.Envelope.Correlation.SessionID, &r.Envelope.Correlation.ConversationID,
			&r.Envelope.Privacy.PIIRisk, &r.Envelope.Privacy.RedactionState, &r.Envelope.Privacy.RetentionClass,
			&r.Envelope.Labels,
			&r.IsError, &r.IsAudit, &r.IsRequest, &r.HasTrace,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning canonical log row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
