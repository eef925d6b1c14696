// Package planner implements the query planner (C2): it turns a validated
// LogQueryRequest into a parameterized {sql_template, parameter_map} pair
// against the canonical contract (pkg/contract), the way nightowl's
// runbook.Store builds positional-parameter SQL by hand rather than through
// an ORM or ad hoc string interpolation.
package planner

import (
	"fmt"
	"strings"

	"github.com/codeready-toolchain/logwatch/pkg/apperrors"
	"github.com/codeready-toolchain/logwatch/pkg/contract"
	"github.com/codeready-toolchain/logwatch/pkg/models"
)

// LogQueryRequest is the validated input to both build shapes (spec §4.2).
type LogQueryRequest struct {
	TimeWindowHours int
	Limit           int
	Severity        models.Severity // optional; zero value means unset
	Service         string          // optional
	Search          string          // optional
	TraceID         string          // optional; bypasses Service/Severity when set
	GroupBy         contract.GroupByField // only used by BuildAggregate
}

// Query is the planner's output: a SQL template using positional
// placeholders and the matching argument slice in the same order. Never a
// fully-interpolated string — callers pass Args straight to pgx.
type Query struct {
	SQL  string
	Args []any
}

// Planner builds Query values from a LogQueryRequest, enforcing the limits
// and partition-filter requirements a caller cannot opt out of.
type Planner struct {
	defaultLimit           int
	maxLimit               int
	defaultTimeWindowHours int
	maxTimeWindowHours     int
	requirePartitionFilter bool
}

// New builds a Planner from the gateway's configured bounds.
func New(defaultLimit, maxLimit, defaultTimeWindowHours, maxTimeWindowHours int, requirePartitionFilter bool) *Planner {
	return &Planner{
		defaultLimit:           defaultLimit,
		maxLimit:               maxLimit,
		defaultTimeWindowHours: defaultTimeWindowHours,
		maxTimeWindowHours:     maxTimeWindowHours,
		requirePartitionFilter: requirePartitionFilter,
	}
}

// normalize applies defaults and validates bounds shared by both build
// shapes, returning a typed usage error (never a runtime fallback) on
// violation.
func (p *Planner) normalize(req LogQueryRequest) (LogQueryRequest, error) {
	if req.Limit == 0 {
		req.Limit = p.defaultLimit
	}
	if req.Limit < 1 || req.Limit > p.maxLimit {
		return req, apperrors.New(apperrors.KindUsage, "", fmt.Sprintf("limit must be in [1, %d]", p.maxLimit))
	}

	if req.TimeWindowHours == 0 {
		req.TimeWindowHours = p.defaultTimeWindowHours
	}
	if req.TimeWindowHours < 1 || req.TimeWindowHours > p.maxTimeWindowHours {
		return req, apperrors.New(apperrors.KindUsage, "", fmt.Sprintf("time_window_hours must be in [1, %d]", p.maxTimeWindowHours))
	}

	if req.Severity != "" && !req.Severity.Valid() {
		return req, apperrors.New(apperrors.KindUsage, "", fmt.Sprintf("invalid severity %q", req.Severity))
	}

	return req, nil
}

// bypassesFilters reports whether trace_id reconstruction mode is active,
// which ignores service/severity (spec §4.2: "trace_id queries bypass
// service/severity filters").
func (req LogQueryRequest) bypassesFilters() bool {
	return req.TraceID != ""
}

// clauseBuilder accumulates WHERE clauses and positional args in lockstep,
// grounded in nightowl's buildFilterClauses pattern (internal store code):
// never format user input into the SQL string itself.
type clauseBuilder struct {
	clauses []string
	args    []any
}

func (b *clauseBuilder) add(clause string, arg any) {
	b.args = append(b.args, arg)
	b.clauses = append(b.clauses, fmt.Sprintf(clause, len(b.args)))
}

// addSearch appends a single substring argument referenced twice, once for
// message and once for text_payload — the same parameter position used in
// both halves of the OR.
func (b *clauseBuilder) addSearch(substr string) {
	b.args = append(b.args, "%"+substr+"%")
	pos := len(b.args)
	b.clauses = append(b.clauses, fmt.Sprintf("(message ILIKE $%d OR text_payload ILIKE $%d)", pos, pos))
}

func (b *clauseBuilder) where() string {
	if len(b.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.clauses, " AND ")
}

// BuildList builds the `SELECT ... LIMIT n` shape (spec §4.2 build_list()).
func (p *Planner) BuildList(req LogQueryRequest) (Query, error) {
	req, err := p.normalize(req)
	if err != nil {
		return Query{}, err
	}

	b := &clauseBuilder{}

	if p.requirePartitionFilter || !req.bypassesFilters() {
		b.add("event_ts >= now() - ($%d::text || ' hours')::interval", req.TimeWindowHours)
	}

	if req.bypassesFilters() {
		b.add(contract.ColTraceID+" = $%d", req.TraceID)
	} else {
		if req.Severity != "" {
			b.add(contract.ColSeverityLvl+" >= $%d", req.Severity.Level())
		}
		if req.Service != "" {
			b.add(contract.ColServiceName+" = $%d", req.Service)
		}
		if req.Search != "" {
			b.addSearch(req.Search)
		}
	}

	sql := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY event_ts DESC LIMIT %d",
		strings.Join(contract.SelectColumns, ", "), contract.ViewName, b.where(), req.Limit)

	return Query{SQL: sql, Args: b.args}, nil
}

// BuildAggregate builds the `GROUP BY group_by ORDER BY count DESC` shape
// (spec §4.2 build_aggregate(group_by)).
func (p *Planner) BuildAggregate(req LogQueryRequest) (Query, error) {
	if !contract.ValidGroupBy(req.GroupBy) {
		return Query{}, apperrors.New(apperrors.KindUsage, "", fmt.Sprintf("unknown group_by %q", req.GroupBy))
	}

	req, err := p.normalize(req)
	if err != nil {
		return Query{}, err
	}

	b := &clauseBuilder{}
	if p.requirePartitionFilter || !req.bypassesFilters() {
		b.add("event_ts >= now() - ($%d::text || ' hours')::interval", req.TimeWindowHours)
	}

	if req.bypassesFilters() {
		b.add(contract.ColTraceID+" = $%d", req.TraceID)
	} else {
		if req.Severity != "" {
			b.add(contract.ColSeverityLvl+" >= $%d", req.Severity.Level())
		}
		if req.Service != "" {
			b.add(contract.ColServiceName+" = $%d", req.Service)
		}
		if req.Search != "" {
			b.addSearch(req.Search)
		}
	}

	col := string(req.GroupBy)
	sql := fmt.Sprintf("SELECT %s, COUNT(*) AS count FROM %s%s GROUP BY %s ORDER BY count DESC LIMIT %d",
		col, contract.ViewName, b.where(), col, req.Limit)

	return Query{SQL: sql, Args: b.args}, nil
}
