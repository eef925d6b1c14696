package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/logwatch/pkg/apperrors"
	"github.com/codeready-toolchain/logwatch/pkg/models"
)

func TestCreateSession_RejectsEmptyUserID(t *testing.T) {
	s := New(nil)
	_, err := s.CreateSession(context.Background(), "", "title")
	require.Error(t, err)
	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.KindUsage, appErr.Kind)
}

func TestAppendMessage_RejectsEmptySessionID(t *testing.T) {
	s := New(nil)
	_, err := s.AppendMessage(context.Background(), models.Message{Role: models.RoleUser, Content: "hi"})
	require.Error(t, err)
	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.KindUsage, appErr.Kind)
}

func TestAppendCheckpoint_RejectsMissingIdentifiers(t *testing.T) {
	s := New(nil)
	_, err := s.AppendCheckpoint(context.Background(), models.Checkpoint{NodeID: "plan"})
	require.Error(t, err)
	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.KindUsage, appErr.Kind)
}

func TestSessionLock_ReturnsSameMutexForSameSession(t *testing.T) {
	s := New(nil)
	a := s.sessionLock("sess-1")
	b := s.sessionLock("sess-1")
	assert.Same(t, a, b)

	c := s.sessionLock("sess-2")
	assert.NotSame(t, a, c)
}

func TestNullHelpers(t *testing.T) {
	assert.Nil(t, nullIfEmpty(""))
	assert.Equal(t, "x", nullIfEmpty("x"))
	assert.Nil(t, nullIfZero(0))
	assert.Equal(t, 5, nullIfZero(5))
	assert.Nil(t, nullIfZeroF(0))
	assert.Equal(t, 1.5, nullIfZeroF(1.5))
	assert.Nil(t, nullIfZero64(int64(0)))
	assert.Equal(t, int64(7), nullIfZero64(int64(7)))
}
