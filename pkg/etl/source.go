// Package etl implements the ETL normalizer (C4): it reads raw rows from
// heterogeneous upstream log tables, maps each to the canonical contract
// (pkg/contract, pkg/models), and writes them in idempotent batches. The
// mapping registry below follows the teacher's config-registry idiom
// (pkg/config's former sub-agent registry: a compile-time slice keyed by
// name, looked up once at startup) rather than reflection or runtime
// schema discovery.
package etl

import (
	"context"
	"time"
)

// SourceRow is one raw record read from an upstream log table, before any
// normalization. Fields carries whatever the source already decoded into a
// map (JSON sources); RawText carries the source's own text payload when it
// has one.
type SourceRow struct {
	Table     string
	InsertID  string
	Timestamp time.Time
	RawText   string
	RawJSON   string
	Fields    map[string]any
}

// SourceReader reads every row from one source table in a half-open
// [start, end) window, ordered by (timestamp, insert id) — the stable
// ordering the ETL run depends on for idempotent re-runs (spec §4.4).
type SourceReader interface {
	ReadWindow(ctx context.Context, table string, start, end time.Time) ([]SourceRow, error)
}
