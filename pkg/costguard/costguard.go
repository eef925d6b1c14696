// Package costguard implements the cost guard (C3): it dry-runs a planned
// query through an Estimator and rejects anything over the configured byte
// ceiling before it ever reaches Postgres, the way a production gateway
// budgets expensive reads instead of discovering them after the fact.
package costguard

import (
	"context"
	"fmt"
	"strings"

	"github.com/codeready-toolchain/logwatch/pkg/apperrors"
	"github.com/codeready-toolchain/logwatch/pkg/planner"
)

// Estimator reports the estimated bytes a Query would scan, without
// executing it. The production implementation drives Postgres EXPLAIN;
// tests use a FakeEstimator.
type Estimator interface {
	EstimateBytes(ctx context.Context, q planner.Query) (int64, error)
}

// Guard enforces MAX_BYTES_SCANNED before a query reaches the store.
type Guard struct {
	estimator Estimator
	maxBytes  int64
}

// New builds a Guard backed by estimator, rejecting anything estimated over
// maxBytes.
func New(estimator Estimator, maxBytes int64) *Guard {
	return &Guard{estimator: estimator, maxBytes: maxBytes}
}

// Check dry-runs q and returns a BudgetExceeded apperrors.Error if it would
// scan more than maxBytes. If the estimator itself is unreachable, Check
// falls back to the conservative policy from spec §4.3: reject unless the
// query already carries a time filter and its declared limit is <= 100.
func (g *Guard) Check(ctx context.Context, q planner.Query, hasTimeFilter bool, limit int) error {
	estimated, err := g.estimator.EstimateBytes(ctx, q)
	if err != nil {
		if hasTimeFilter && limit <= 100 {
			return nil
		}
		return apperrors.Wrap(apperrors.KindUnavailable, "", fmt.Errorf("cost estimator unreachable and query fails conservative fallback: %w", err))
	}

	if estimated > g.maxBytes {
		return apperrors.New(apperrors.KindBudgetExceeded, "",
			fmt.Sprintf("estimated_bytes=%d exceeds ceiling=%d", estimated, g.maxBytes))
	}
	return nil
}

// EstimateOnly runs the estimator without enforcing the ceiling, for the
// dry_run tool (spec §4.6: dry_run(LogQueryRequest) → {estimated_bytes}).
func (g *Guard) EstimateOnly(ctx context.Context, q planner.Query) (int64, error) {
	return g.estimator.EstimateBytes(ctx, q)
}

// ExplainEstimator estimates bytes scanned using Postgres's EXPLAIN (FORMAT
// JSON), reading the planner's row-count * average-row-width estimate —
// the same signal pg_stat/auto_explain based cost dashboards use.
type ExplainEstimator struct {
	db QueryRower
}

// QueryRower is the subset of db.DBTX an estimator needs.
type QueryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// Row mirrors pgx.Row's Scan signature so this package does not need to
// import pgx directly.
type Row interface {
	Scan(dest ...any) error
}

// NewExplainEstimator builds an estimator that runs EXPLAIN against db.
func NewExplainEstimator(db QueryRower) *ExplainEstimator {
	return &ExplainEstimator{db: db}
}

// EstimateBytes runs `EXPLAIN (FORMAT JSON) <query>` and multiplies the
// planner's estimated row count by its estimated average row width.
func (e *ExplainEstimator) EstimateBytes(ctx context.Context, q planner.Query) (int64, error) {
	explainSQL := "EXPLAIN (FORMAT JSON) " + q.SQL
	if strings.TrimSpace(explainSQL) == "" {
		return 0, fmt.Errorf("empty query")
	}

	var planJSON string
	if err := e.db.QueryRow(ctx, explainSQL, q.Args...).Scan(&planJSON); err != nil {
		return 0, fmt.Errorf("running EXPLAIN: %w", err)
	}

	rows, width, err := parseExplainPlan(planJSON)
	if err != nil {
		return 0, err
	}
	return rows * int64(width), nil
}

// FakeEstimator is a deterministic stand-in for tests and for environments
// without a live Postgres connection.
type FakeEstimator struct {
	Bytes int64
	Err   error
}

func (f *FakeEstimator) EstimateBytes(ctx context.Context, q planner.Query) (int64, error) {
	return f.Bytes, f.Err
}
