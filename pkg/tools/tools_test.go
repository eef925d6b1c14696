package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/codeready-toolchain/logwatch/pkg/redaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute_UnknownToolReturnsErrorResult_NotGoError(t *testing.T) {
	reg := New(redaction.New(false), nil)
	result, err := reg.Execute(context.Background(), "sess-1", Call{ID: "c1", Name: "nope"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestExecute_RedactsToolOutput(t *testing.T) {
	reg := New(redaction.New(true), nil)
	reg.Register("echo", func(ctx context.Context, args json.RawMessage) (Result, error) {
		return Result{Content: "token: Bearer sk-secret123"}, nil
	})

	result, err := reg.Execute(context.Background(), "sess-1", Call{ID: "c1", Name: "echo"})
	require.NoError(t, err)
	assert.NotContains(t, result.Content, "sk-secret123")
}

func TestNames_ListsRegisteredTools(t *testing.T) {
	reg := New(redaction.New(false), nil)
	reg.Register("a", nil)
	reg.Register("b", nil)
	assert.ElementsMatch(t, []string{"a", "b"}, reg.Names())
}

func TestDescribe_ResolvesCatalogMetadataByName(t *testing.T) {
	reg := New(redaction.New(false), nil)
	reg.Register("log_search", nil)
	reg.Register("unlisted", nil)

	descs := reg.Describe()
	require.Len(t, descs, 2)
	assert.Equal(t, "log_search", descs[0].Name)
	assert.NotEmpty(t, descs[0].Description)
	assert.NotEmpty(t, descs[0].Parameters)
	assert.Equal(t, "unlisted", descs[1].Name)
	assert.Empty(t, descs[1].Description)
}
