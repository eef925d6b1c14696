package stream

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/logwatch/pkg/orchestrator"
)

func TestEmit_AssignsMonotonicSequenceNumbers(t *testing.T) {
	s := New("run-1", time.Minute, time.Minute)
	require.NoError(t, s.Emit(context.Background(), orchestrator.Event{Type: "token", Token: "a"}))
	require.NoError(t, s.Emit(context.Background(), orchestrator.Event{Type: "token", Token: "b"}))

	f1 := <-s.buf
	f2 := <-s.buf
	assert.Equal(t, 1, f1.Seq)
	assert.Equal(t, 2, f2.Seq)
}

func TestServeHTTP_WritesSSEFrames(t *testing.T) {
	s := New("run-2", time.Minute, time.Minute)
	rec := httptest.NewRecorder()
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		_ = s.Emit(context.Background(), orchestrator.Event{Type: "token", Token: "hi"})
		s.Close()
	}()

	done := make(chan struct{})
	go func() {
		_ = s.ServeHTTP(ctx, rec)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ServeHTTP did not return after stream closed")
	}
	cancel()

	body := rec.Body.String()
	assert.Contains(t, body, "event: token")
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
}

func TestManager_CancelInvokesRegisteredCancelFunc(t *testing.T) {
	m := NewManager()
	canceled := false
	_, cancel := context.WithCancel(context.Background())
	wrappedCancel := func() {
		canceled = true
		cancel()
	}
	m.Register("run-3", New("run-3", time.Minute, time.Minute), wrappedCancel)

	require.NoError(t, m.Cancel("run-3"))
	assert.True(t, canceled)
}

func TestManager_GetReturnsFalseForUnknownRun(t *testing.T) {
	m := NewManager()
	_, ok := m.Get("nope")
	assert.False(t, ok)
}
