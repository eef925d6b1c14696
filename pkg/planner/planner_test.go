package planner

import (
	"strings"
	"testing"

	"github.com/codeready-toolchain/logwatch/pkg/apperrors"
	"github.com/codeready-toolchain/logwatch/pkg/contract"
	"github.com/codeready-toolchain/logwatch/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPlanner() *Planner {
	return New(100, 1000, 24, 720, true)
}

func TestBuildList_AlwaysHasTimeRangeAndLimit(t *testing.T) {
	p := newTestPlanner()
	q, err := p.BuildList(LogQueryRequest{})
	require.NoError(t, err)
	assert.Contains(t, q.SQL, "event_ts >=")
	assert.Contains(t, q.SQL, "LIMIT 100")
}

func TestBuildList_RejectsLimitOutOfRange(t *testing.T) {
	p := newTestPlanner()
	_, err := p.BuildList(LogQueryRequest{Limit: 5000})
	require.Error(t, err)
	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.KindUsage, appErr.Kind)
}

func TestBuildList_RejectsTimeWindowOutOfRange(t *testing.T) {
	p := newTestPlanner()
	_, err := p.BuildList(LogQueryRequest{TimeWindowHours: 10000})
	require.Error(t, err)
	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.KindUsage, appErr.Kind)
}

func TestBuildList_RejectsInvalidSeverity(t *testing.T) {
	p := newTestPlanner()
	_, err := p.BuildList(LogQueryRequest{Severity: models.Severity("BOGUS")})
	require.Error(t, err)
	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.KindUsage, appErr.Kind)
}

func TestBuildList_TraceIDBypassesServiceAndSeverity(t *testing.T) {
	p := newTestPlanner()
	q, err := p.BuildList(LogQueryRequest{
		TraceID:  "abc123",
		Service:  "checkout",
		Severity: models.SeverityError,
	})
	require.NoError(t, err)
	assert.Contains(t, q.SQL, contract.ColTraceID+" = $")
	assert.NotContains(t, q.SQL, contract.ColServiceName+" = $")
	assert.NotContains(t, q.SQL, contract.ColSeverityLvl+" >= $")
}

func TestBuildList_NeverInterpolatesSearchIntoSQL(t *testing.T) {
	p := newTestPlanner()
	q, err := p.BuildList(LogQueryRequest{Search: "nullpointerexception"})
	require.NoError(t, err)
	assert.False(t, strings.Contains(q.SQL, "nullpointerexception"))
	assert.Contains(t, q.Args, "%nullpointerexception%")
}

func TestBuildAggregate_RejectsUnknownGroupBy(t *testing.T) {
	p := newTestPlanner()
	_, err := p.BuildAggregate(LogQueryRequest{GroupBy: contract.GroupByField("bogus")})
	require.Error(t, err)
	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.KindUsage, appErr.Kind)
}

func TestBuildAggregate_OrdersByCountDesc(t *testing.T) {
	p := newTestPlanner()
	q, err := p.BuildAggregate(LogQueryRequest{GroupBy: contract.GroupBySeverity})
	require.NoError(t, err)
	assert.Contains(t, q.SQL, "GROUP BY severity")
	assert.Contains(t, q.SQL, "ORDER BY count DESC")
}
