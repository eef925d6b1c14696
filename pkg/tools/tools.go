// Package tools implements the tool runtime (C6): a closed registry of
// five tools the agent orchestrator can call, wrapping each one in the
// teacher's normalize → validate → execute → mask → telemetry pipeline
// (pkg/mcp/executor.go's ToolExecutor.Execute), with no reflection —
// dispatch is a plain name → handler map (spec §9 redesign flag honored).
package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/codeready-toolchain/logwatch/pkg/redaction"
)

// Call is one invocation request from the orchestrator.
type Call struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// Result is the outcome of one tool call. An ordinary failure (bad input,
// unknown tool, not-found) is structured data (IsError=true) returned with a
// nil error; Execute returns a Go error only when a handler reports an
// exceptional condition (see Handler), and then with an empty Result
// (mirrors the teacher's agent.ToolResult convention).
type Result struct {
	CallID  string
	Name    string
	Content string
	IsError bool
}

// Handler implements one tool's logic. It may return a Go error only for
// truly exceptional conditions (e.g. a context cancellation) — ordinary
// failures (bad input, not-found) are reported via Result.IsError.
type Handler func(ctx context.Context, args json.RawMessage) (Result, error)

// Telemetry records ToolInvocation rows; implemented by pkg/store.
type Telemetry interface {
	RecordToolInvocation(ctx context.Context, sessionID, toolName, input string) (invocationID string, err error)
	CompleteToolInvocation(ctx context.Context, invocationID, output string, isError bool, duration time.Duration) error
}

// Registry is the closed name → Handler map. Adding a sixth tool means
// adding one Register call at construction, never touching Execute.
type Registry struct {
	handlers  map[string]Handler
	order     []string
	redactor  *redaction.Redactor
	telemetry Telemetry
}

// New builds an empty Registry. Callers Register each of the five tools
// (pkg/tools/catalog.go) before first use.
func New(redactor *redaction.Redactor, telemetry Telemetry) *Registry {
	return &Registry{handlers: make(map[string]Handler), redactor: redactor, telemetry: telemetry}
}

// Register binds name to handler. Re-registering a name overwrites its
// handler but is not added to order twice — used only at startup wiring,
// never at request time.
func (r *Registry) Register(name string, h Handler) {
	if _, exists := r.handlers[name]; !exists {
		r.order = append(r.order, name)
	}
	r.handlers[name] = h
}

// Names lists every registered tool name in registration order. (The GET
// /api/tools endpoint uses Describe, not Names.)
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Execute runs call.Name's handler: validates it's registered, executes it,
// redacts its output, and records telemetry — mirroring ToolExecutor's
// normalize → validate → execute → mask → telemetry pipeline.
func (r *Registry) Execute(ctx context.Context, sessionID string, call Call) (Result, error) {
	start := time.Now()

	var invocationID string
	if r.telemetry != nil {
		id, err := r.telemetry.RecordToolInvocation(ctx, sessionID, call.Name, string(call.Arguments))
		if err == nil {
			invocationID = id
		}
	}

	handler, ok := r.handlers[call.Name]
	if !ok {
		result := Result{CallID: call.ID, Name: call.Name, Content: "unknown tool: " + call.Name, IsError: true}
		r.recordCompletion(ctx, invocationID, result, start)
		return result, nil
	}

	result, err := handler(ctx, call.Arguments)
	if err != nil {
		return Result{}, err // exceptional: propagate (e.g. context cancellation)
	}
	result.CallID = call.ID
	result.Name = call.Name

	if r.redactor != nil {
		result.Content, _ = r.redactor.Apply(result.Content)
	}

	r.recordCompletion(ctx, invocationID, result, start)
	return result, nil
}

func (r *Registry) recordCompletion(ctx context.Context, invocationID string, result Result, start time.Time) {
	if r.telemetry == nil || invocationID == "" {
		return
	}
	_ = r.telemetry.CompleteToolInvocation(ctx, invocationID, result.Content, result.IsError, time.Since(start))
}
