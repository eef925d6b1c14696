// Package llm is the orchestrator's reasoner client: a streaming chat
// completion call against the configured LLM_PROVIDER, adapted from the
// teacher's gRPC LLMClient (pkg/agent/llm_client.go/llm_grpc.go) onto a
// plain HTTP streaming transport, since this gateway has no sidecar LLM
// service or generated proto bindings of its own.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Role mirrors the teacher's ConversationMessage role constants.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one turn of the conversation sent to the model.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
}

// ToolDefinition describes one callable tool, the JSON-Schema shape most
// chat-completion APIs expect.
type ToolDefinition struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	ParametersSchema string `json:"parameters_schema"`
}

// ToolCall is the model's request to invoke a tool.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Request is one turn of reasoning: the running conversation plus the
// tools available this turn.
type Request struct {
	Model    string
	Messages []Message
	Tools    []ToolDefinition
}

// Chunk is one piece of a streamed response: either a token, a completed
// tool call, or a terminal error.
type Chunk struct {
	Token     string
	ToolCalls []ToolCall
	Done      bool
	Err       error
}

// Client is the orchestrator's reasoner.
type Client interface {
	Generate(ctx context.Context, req Request) (<-chan Chunk, error)
}

// HTTPClient streams newline-delimited JSON chunks from endpoint (unlike
// the embedding package's HTTPClient, which reads a single JSON response).
type HTTPClient struct {
	endpoint string
	hc       *http.Client
}

func NewHTTPClient(endpoint string, hc *http.Client) *HTTPClient {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &HTTPClient{endpoint: endpoint, hc: hc}
}

type wireChunk struct {
	Token     string     `json:"token"`
	ToolCalls []ToolCall `json:"tool_calls"`
	Done      bool       `json:"done"`
	Error     string     `json:"error"`
}

// Generate POSTs req and streams back newline-delimited JSON chunks.
func (c *HTTPClient) Generate(ctx context.Context, req Request) (<-chan Chunk, error) {
	body, err := json.Marshal(map[string]any{"model": req.Model, "messages": req.Messages, "tools": req.Tools})
	if err != nil {
		return nil, fmt.Errorf("encoding llm request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building llm request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling llm endpoint: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("llm endpoint returned status %d", resp.StatusCode)
	}

	out := make(chan Chunk, 16)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			var wc wireChunk
			if err := json.Unmarshal([]byte(line), &wc); err != nil {
				sendChunk(ctx, out, Chunk{Err: fmt.Errorf("decoding llm chunk: %w", err)})
				return
			}
			if wc.Error != "" {
				sendChunk(ctx, out, Chunk{Err: fmt.Errorf("llm error: %s", wc.Error)})
				return
			}
			if !sendChunk(ctx, out, Chunk{Token: wc.Token, ToolCalls: wc.ToolCalls, Done: wc.Done}) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			sendChunk(ctx, out, Chunk{Err: fmt.Errorf("reading llm stream: %w", err)})
		}
	}()
	return out, nil
}

func sendChunk(ctx context.Context, out chan<- Chunk, c Chunk) bool {
	select {
	case out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

// FakeClient is a deterministic stand-in for tests: it emits one
// tool-call-free response, split into word tokens, optionally followed by
// a fixed tool call.
type FakeClient struct {
	Response  string
	ToolCalls []ToolCall
}

func (f *FakeClient) Generate(ctx context.Context, req Request) (<-chan Chunk, error) {
	out := make(chan Chunk, 32)
	go func() {
		defer close(out)
		words := strings.Fields(f.Response)
		for _, w := range words {
			if !sendChunk(ctx, out, Chunk{Token: w + " "}) {
				return
			}
		}
		sendChunk(ctx, out, Chunk{ToolCalls: f.ToolCalls, Done: true})
	}()
	return out, nil
}
