package etl

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/codeready-toolchain/logwatch/pkg/db"
)

// PostgresSourceReader reads raw upstream log rows staged into Postgres by
// an external ingestion pipeline (e.g. a log-sink export job) before the
// normalizer maps them into the canonical contract. Every staged table is
// expected to carry the same minimal shape regardless of its original
// vendor format: (insert_id, ts, text_payload, json_payload), with
// per-table quirks handled entirely inside the mapping registry
// (pkg/etl/mappings.go), never here.
type PostgresSourceReader struct {
	dbtx db.DBTX
}

// NewPostgresSourceReader builds a SourceReader backed by dbtx.
func NewPostgresSourceReader(dbtx db.DBTX) *PostgresSourceReader {
	return &PostgresSourceReader{dbtx: dbtx}
}

// ReadWindow reads every staged row from table in [start, end), ordered by
// (ts, insert_id) for stable, idempotent re-runs.
func (p *PostgresSourceReader) ReadWindow(ctx context.Context, table string, start, end time.Time) ([]SourceRow, error) {
	sql := fmt.Sprintf(
		`SELECT insert_id, ts, text_payload, json_payload FROM %s WHERE ts >= $1 AND ts < $2 ORDER BY ts, insert_id`,
		pq(table))

	rows, err := p.dbtx.Query(ctx, sql, start, end)
	if err != nil {
		return nil, fmt.Errorf("reading staged window for %s: %w", table, err)
	}
	defer rows.Close()

	var out []SourceRow
	for rows.Next() {
		var r SourceRow
		var textPayload, jsonPayload *string
		if err := rows.Scan(&r.InsertID, &r.Timestamp, &textPayload, &jsonPayload); err != nil {
			return nil, fmt.Errorf("scanning staged row from %s: %w", table, err)
		}
		r.Table = table
		if textPayload != nil {
			r.RawText = *textPayload
		}
		if jsonPayload != nil {
			r.RawJSON = *jsonPayload
			var fields map[string]any
			if err := json.Unmarshal([]byte(*jsonPayload), &fields); err == nil {
				r.Fields = fields
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// pq quotes an identifier naming one of the four compile-time-registered
// source tables (pkg/etl/mappings.go's Registry) — never caller-supplied
// input, so a plain quote is sufficient here.
func pq(table string) string {
	return `"` + table + `"`
}
