package etl

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/logwatch/pkg/models"
)

// ErrorIndexer embeds and clusters ERROR/CRITICAL rows after they are
// durably written, matching embedding.ClusterWriter's signature without
// importing pkg/embedding here (kept optional: a nil indexer just skips
// indexing, so the normalizer is testable without a live embedding
// backend).
type ErrorIndexer interface {
	Index(ctx context.Context, row models.CanonicalLogRow) error
}

// Normalizer runs one unit of ETL work end to end: read a window, map each
// row, derive its envelope, batch-write, and track job state — mirroring
// the teacher's worker-loop shape (pkg/queue/worker.go) of claim → do work
// → report outcome.
type Normalizer struct {
	source            SourceReader
	jobs              *JobStateStore
	deadLetters       *DeadLetterSink
	writer            *BatchWriter
	indexer           ErrorIndexer
	batchSize         int
	yieldEvery        int
	maxAttempts       int
	errorThresholdPct float64
	logger            *slog.Logger
}

// Option configures a Normalizer at construction.
type Option func(*Normalizer)

func WithBatchSize(n int) Option        { return func(nz *Normalizer) { nz.batchSize = n } }
func WithYieldEvery(n int) Option       { return func(nz *Normalizer) { nz.yieldEvery = n } }
func WithMaxAttempts(n int) Option      { return func(nz *Normalizer) { nz.maxAttempts = n } }
func WithErrorThreshold(pct float64) Option { return func(nz *Normalizer) { nz.errorThresholdPct = pct } }
func WithLogger(l *slog.Logger) Option  { return func(nz *Normalizer) { nz.logger = l } }
func WithErrorIndexer(idx ErrorIndexer) Option { return func(nz *Normalizer) { nz.indexer = idx } }

// NewNormalizer builds a Normalizer with sane defaults, overridden by opts.
func NewNormalizer(source SourceReader, jobs *JobStateStore, deadLetters *DeadLetterSink, writer *BatchWriter, opts ...Option) *Normalizer {
	nz := &Normalizer{
		source:            source,
		jobs:              jobs,
		deadLetters:       deadLetters,
		writer:            writer,
		batchSize:         1000,
		yieldEvery:        1000,
		maxAttempts:       3,
		errorThresholdPct: 5,
		logger:            slog.Default(),
	}
	for _, o := range opts {
		o(nz)
	}
	return nz
}

// RunResult summarizes one completed unit of work.
type RunResult struct {
	RowsIn       int
	RowsOut      int
	DeadLettered int
	Aborted      bool
}

// RunWindow processes the rows in [windowStart, windowEnd) from table,
// claiming the (table, windowStart) job-state record first so concurrent
// or repeated invocations are idempotent (spec §4.4 step 5).
func (nz *Normalizer) RunWindow(ctx context.Context, table string, windowStart, windowEnd time.Time) (RunResult, error) {
	mapping, ok := Lookup(table)
	if !ok {
		return RunResult{}, fmt.Errorf("etl: no source mapping registered for table %q", table)
	}

	attempt, err := nz.jobs.Claim(ctx, table, windowStart, windowEnd, nz.maxAttempts)
	if err != nil {
		return RunResult{}, err
	}
	nz.logger.Info("etl window claimed", "table", table, "window_start", windowStart, "attempt", attempt)

	rows, err := nz.source.ReadWindow(ctx, table, windowStart, windowEnd)
	if err != nil {
		_ = nz.jobs.Finish(ctx, table, windowStart, models.JobStateFailed, 0, 0)
		return RunResult{}, fmt.Errorf("reading source window: %w", err)
	}

	result := RunResult{RowsIn: len(rows)}
	var batch []models.CanonicalLogRow
	errorCount := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := nz.writer.WriteBatch(ctx, batch)
		result.RowsOut += n
		if err == nil {
			nz.indexErrors(ctx, batch)
		}
		batch = batch[:0]
		return err
	}

	for i, raw := range rows {
		normalized, mapErr := mapping.Map(raw)
		if mapErr != nil {
			errorCount++
			result.DeadLettered++
			payload, _ := json.Marshal(raw)
			if dlErr := nz.deadLetters.Record(ctx, table, string(payload), mapErr.Error()); dlErr != nil {
				nz.logger.Error("failed to record dead letter", "error", dlErr)
			}
		} else {
			DeriveEnvelope(&normalized)
			batch = append(batch, normalized)
		}

		if len(rows) > 0 && float64(errorCount)/float64(len(rows))*100 > nz.errorThresholdPct {
			result.Aborted = true
			if flushErr := flush(); flushErr != nil {
				nz.logger.Error("final flush before abort failed", "error", flushErr)
			}
			_ = nz.jobs.Finish(ctx, table, windowStart, models.JobStateFailed, result.RowsIn, result.RowsOut)
			return result, fmt.Errorf("etl: error rate exceeded threshold (%0.1f%% > %0.1f%%), aborting window %s/%s",
				float64(errorCount)/float64(len(rows))*100, nz.errorThresholdPct, table, windowStart)
		}

		if len(batch) >= nz.batchSize {
			if err := flush(); err != nil {
				_ = nz.jobs.Finish(ctx, table, windowStart, models.JobStateFailed, result.RowsIn, result.RowsOut)
				return result, err
			}
		}

		if (i+1)%nz.yieldEvery == 0 {
			select {
			case <-ctx.Done():
				_ = nz.jobs.Finish(ctx, table, windowStart, models.JobStateFailed, result.RowsIn, result.RowsOut)
				return result, ctx.Err()
			default:
			}
		}
	}

	if err := flush(); err != nil {
		_ = nz.jobs.Finish(ctx, table, windowStart, models.JobStateFailed, result.RowsIn, result.RowsOut)
		return result, err
	}

	if err := nz.jobs.Finish(ctx, table, windowStart, models.JobStateDone, result.RowsIn, result.RowsOut); err != nil {
		return result, fmt.Errorf("marking window done: %w", err)
	}

	return result, nil
}

// indexErrors best-effort embeds and clusters the ERROR/CRITICAL rows in a
// just-written batch. A failure here never fails the window: the rows are
// already durably written, so a failed row is logged and skipped (nothing
// re-embeds it later) rather than failing the window.
func (nz *Normalizer) indexErrors(ctx context.Context, batch []models.CanonicalLogRow) {
	if nz.indexer == nil {
		return
	}
	for _, row := range batch {
		if row.Severity.Level() < models.SeverityError.Level() {
			continue
		}
		if err := nz.indexer.Index(ctx, row); err != nil {
			nz.logger.Error("error indexing failed", "log_id", row.LogID, "error", err)
		}
	}
}
