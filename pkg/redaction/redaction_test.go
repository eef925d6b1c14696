package redaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApply_RedactsBearerToken(t *testing.T) {
	r := New(true)
	out, rules := r.Apply("Authorization: Bearer sk-abc123xyz")
	assert.Contains(t, out, "[REDACTED]")
	assert.NotContains(t, out, "sk-abc123xyz")
	assert.Contains(t, rules, "bearer_token")
}

func TestApply_RedactsEmail(t *testing.T) {
	r := New(true)
	out, rules := r.Apply("contact alice@example.com for details")
	assert.Contains(t, out, "[REDACTED-EMAIL]")
	assert.Contains(t, rules, "email")
}

func TestApply_DisabledIsNoop(t *testing.T) {
	r := New(false)
	out, rules := r.Apply("Authorization: Bearer sk-abc123xyz")
	assert.Equal(t, "Authorization: Bearer sk-abc123xyz", out)
	assert.Nil(t, rules)
}

func TestApply_NoMatchReturnsOriginal(t *testing.T) {
	r := New(true)
	out, rules := r.Apply("request completed successfully")
	assert.Equal(t, "request completed successfully", out)
	assert.Empty(t, rules)
}
