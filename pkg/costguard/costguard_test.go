package costguard

import (
	"context"
	"errors"
	"testing"

	"github.com/codeready-toolchain/logwatch/pkg/apperrors"
	"github.com/codeready-toolchain/logwatch/pkg/planner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck_AllowsUnderCeiling(t *testing.T) {
	g := New(&FakeEstimator{Bytes: 1024}, 1<<30)
	err := g.Check(context.Background(), planner.Query{SQL: "SELECT 1"}, true, 100)
	require.NoError(t, err)
}

func TestCheck_RejectsOverCeiling(t *testing.T) {
	g := New(&FakeEstimator{Bytes: 2 << 30}, 1<<30)
	err := g.Check(context.Background(), planner.Query{SQL: "SELECT 1"}, true, 100)
	require.Error(t, err)
	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.KindBudgetExceeded, appErr.Kind)
}

func TestCheck_ConservativeFallbackAllowsSafeQuery(t *testing.T) {
	g := New(&FakeEstimator{Err: errors.New("connection refused")}, 1<<30)
	err := g.Check(context.Background(), planner.Query{SQL: "SELECT 1"}, true, 50)
	require.NoError(t, err)
}

func TestCheck_ConservativeFallbackRejectsUnsafeQuery(t *testing.T) {
	g := New(&FakeEstimator{Err: errors.New("connection refused")}, 1<<30)

	err := g.Check(context.Background(), planner.Query{SQL: "SELECT 1"}, false, 50)
	require.Error(t, err)

	err = g.Check(context.Background(), planner.Query{SQL: "SELECT 1"}, true, 500)
	require.Error(t, err)
}
