package orchestrator

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/logwatch/pkg/llm"
	"github.com/codeready-toolchain/logwatch/pkg/redaction"
	"github.com/codeready-toolchain/logwatch/pkg/store"
	"github.com/codeready-toolchain/logwatch/pkg/tools"
)

// fakeDBTX satisfies db.DBTX well enough to exercise the orchestrator's own
// write path (AppendMessage/AppendCheckpoint, both Exec-only) without a
// live Postgres connection.
type fakeDBTX struct{}

func (fakeDBTX) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (fakeDBTX) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not used by the orchestrator's own write path")
}
func (fakeDBTX) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not used by the orchestrator's own write path")
}

func newTestOrchestrator(llmClient Client, reg *tools.Registry) *Orchestrator {
	st := store.New(fakeDBTX{})
	return New(llmClient, reg, st, redaction.New(false), Config{TokenBudgetMax: 10000, ToolFanoutMax: 4, MaxToolCallsPerTurn: 6})
}

func TestRun_NoToolCallsGoesStraightToDone(t *testing.T) {
	reg := tools.New(redaction.New(false), nil)
	fake := &llm.FakeClient{Response: "hello there"}
	o := newTestOrchestrator(fake, reg)

	result, err := o.Run(context.Background(), NewRunID(), "sess-1", "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, StateDone, result.FinalState)
	assert.Contains(t, result.FinalMessage, "hello")
}

func TestRun_ExecutesToolCallThenCompletes(t *testing.T) {
	reg := tools.New(redaction.New(false), nil)
	reg.Register("echo", func(ctx context.Context, args json.RawMessage) (tools.Result, error) {
		return tools.Result{Content: "tool output"}, nil
	})

	callRound := 0
	fake := &toolThenDoneClient{}
	o := newTestOrchestrator(fake, reg)

	result, err := o.Run(context.Background(), NewRunID(), "sess-2", "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, StateDone, result.FinalState)
	_ = callRound
}

// toolThenDoneClient requests one tool call on its first Generate call,
// then returns a plain answer on the second — exercising the act -> observe
// -> act loop exactly once.
type toolThenDoneClient struct {
	calls int
}

func (c *toolThenDoneClient) Generate(ctx context.Context, req llm.Request) (<-chan llm.Chunk, error) {
	out := make(chan llm.Chunk, 4)
	c.calls++
	go func() {
		defer close(out)
		if c.calls == 1 {
			out <- llm.Chunk{ToolCalls: []llm.ToolCall{{ID: "c1", Name: "echo", Arguments: "{}"}}, Done: true}
			return
		}
		out <- llm.Chunk{Token: "done"}
		out <- llm.Chunk{Done: true}
	}()
	return out, nil
}

func TestRun_RespectsMaxToolCallsPerTurn(t *testing.T) {
	reg := tools.New(redaction.New(false), nil)
	reg.Register("echo", func(ctx context.Context, args json.RawMessage) (tools.Result, error) {
		return tools.Result{Content: "ok"}, nil
	})

	fake := &alwaysToolCallClient{}
	st := store.New(fakeDBTX{})
	o := New(fake, reg, st, redaction.New(false), Config{TokenBudgetMax: 10000, ToolFanoutMax: 4, MaxToolCallsPerTurn: 2})

	_, err := o.Run(context.Background(), NewRunID(), "sess-3", "hi", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxToolCallsExceeded)
}

type alwaysToolCallClient struct{}

func (alwaysToolCallClient) Generate(ctx context.Context, req llm.Request) (<-chan llm.Chunk, error) {
	out := make(chan llm.Chunk, 2)
	go func() {
		defer close(out)
		out <- llm.Chunk{ToolCalls: []llm.ToolCall{
			{ID: "c1", Name: "echo", Arguments: "{}"},
			{ID: "c2", Name: "echo", Arguments: "{}"},
			{ID: "c3", Name: "echo", Arguments: "{}"},
		}, Done: true}
	}()
	return out, nil
}
