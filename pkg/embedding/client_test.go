package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeClient_DeterministicForSameText(t *testing.T) {
	c := &FakeClient{Dim: 16}
	v1, err := c.Embed(context.Background(), "connection refused")
	require.NoError(t, err)
	v2, err := c.Embed(context.Background(), "connection refused")
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	assert.Len(t, v1, 16)
}

func TestFakeClient_DiffersForDifferentText(t *testing.T) {
	c := &FakeClient{Dim: 16}
	v1, _ := c.Embed(context.Background(), "connection refused")
	v2, _ := c.Embed(context.Background(), "disk quota exceeded")
	assert.NotEqual(t, v1, v2)
}
