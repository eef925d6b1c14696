// Package orchestrator implements the agent run loop (C7): a bounded
// plan/act/observe/summarize state machine that checkpoints before every
// transition, enforces the per-run token budget, and fans tool calls out
// bounded by an errgroup limit — the same concurrency shape as the
// teacher's SubAgentRunner (pkg/agent/orchestrator/runner.go), with
// "sub-agent" replaced by "tool call" and ent-backed services replaced by
// pkg/store.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/codeready-toolchain/logwatch/pkg/apperrors"
	"github.com/codeready-toolchain/logwatch/pkg/llm"
	"github.com/codeready-toolchain/logwatch/pkg/models"
	"github.com/codeready-toolchain/logwatch/pkg/redaction"
	"github.com/codeready-toolchain/logwatch/pkg/store"
	"github.com/codeready-toolchain/logwatch/pkg/tools"
)

// State is one node of the run's state machine (spec §4.7).
type State string

const (
	StatePlan      State = "plan"
	StateAct       State = "act"
	StateObserve   State = "observe"
	StateSummarize State = "summarize"
	StateDone      State = "done"
	StateFailed    State = "failed"
)

var ErrMaxToolCallsExceeded = errors.New("orchestrator: max tool calls per turn exceeded")

// Emitter receives stream events as the run progresses; pkg/stream
// implements it to turn state transitions into SSE frames.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// Event is one occurrence worth streaming to a live client.
type Event struct {
	Type       string
	Token      string
	ToolCall   *tools.Call
	ToolName   string
	Result     *tools.Result
	Budget     *models.TokenBudget
	Checkpoint *models.Checkpoint
	Err        string
}

// Config bundles the tunables SPEC_FULL.md §6 exposes for a run.
type Config struct {
	TokenBudgetMax      int
	ToolFanoutMax       int
	MaxToolCallsPerTurn int
	RunTimeout          time.Duration
	ToolTimeout         time.Duration
	Model               string
}

// Orchestrator drives one session's agent run.
type Orchestrator struct {
	llmClient Client
	registry  *tools.Registry
	store     *store.Store
	redactor  *redaction.Redactor
	cfg       Config
}

// Client is the subset of llm.Client the orchestrator depends on (allows
// tests to substitute a FakeClient without importing net/http types).
type Client interface {
	Generate(ctx context.Context, req llm.Request) (<-chan llm.Chunk, error)
}

func New(llmClient Client, registry *tools.Registry, st *store.Store, redactor *redaction.Redactor, cfg Config) *Orchestrator {
	if cfg.ToolFanoutMax <= 0 {
		cfg.ToolFanoutMax = 4
	}
	if cfg.MaxToolCallsPerTurn <= 0 {
		cfg.MaxToolCallsPerTurn = 6
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 300 * time.Second
	}
	if cfg.ToolTimeout <= 0 {
		cfg.ToolTimeout = 30 * time.Second
	}
	return &Orchestrator{llmClient: llmClient, registry: registry, store: st, redactor: redactor, cfg: cfg}
}

// run is the mutable state threaded through one Run call.
type run struct {
	runID     string
	sessionID string
	seq       int
	state     State
	budget    models.TokenBudget
	messages  []llm.Message
}

// Result is the terminal outcome of a Run call.
type Result struct {
	RunID        string
	FinalState   State
	FinalMessage string
	Budget       models.TokenBudget
}

// NewRunID generates a run identifier the caller can register with
// pkg/stream before the run starts, since a subscriber may attach to
// GET /api/sessions/:id/stream before Run itself has produced its first
// checkpoint.
func NewRunID() string {
	return uuid.NewString()
}

// Run drives sessionID through plan -> act -> observe (looping) ->
// summarize -> done/failed, checkpointing before every transition and
// streaming progress through emitter. runID is generated by the caller
// (NewRunID) so it can be registered with a stream.Manager before Run
// starts.
func (o *Orchestrator) Run(ctx context.Context, runID, sessionID, userMessage string, emitter Emitter) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.RunTimeout)
	defer cancel()

	r := &run{
		runID:     runID,
		sessionID: sessionID,
		state:     StatePlan,
		budget:    models.TokenBudget{BudgetMax: o.cfg.TokenBudgetMax, BudgetRemaining: o.cfg.TokenBudgetMax},
		messages:  []llm.Message{{Role: llm.RoleUser, Content: userMessage}},
	}

	if _, err := o.store.AppendMessage(ctx, models.Message{SessionID: sessionID, Role: models.RoleUser, Content: userMessage}); err != nil {
		return Result{}, fmt.Errorf("recording user message: %w", err)
	}

	toolCallsThisTurn := 0
	for {
		select {
		case <-ctx.Done():
			o.checkpoint(ctx, r, StateFailed, true, "cancelled")
			return Result{RunID: r.runID, FinalState: StateFailed, Budget: r.budget}, ctx.Err()
		default:
		}

		o.checkpoint(ctx, r, r.state, false, "")

		switch r.state {
		case StatePlan:
			r.state = StateAct

		case StateAct:
			toolCalls, finalText, err := o.reason(ctx, r, emitter)
			if err != nil {
				o.emit(ctx, emitter, Event{Type: "error", Err: err.Error()})
				o.checkpoint(ctx, r, StateFailed, true, err.Error())
				return Result{RunID: r.runID, FinalState: StateFailed, Budget: r.budget}, err
			}
			if len(toolCalls) == 0 {
				r.messages = append(r.messages, llm.Message{Role: llm.RoleAssistant, Content: finalText})
				if r.budget.ShouldSummarize {
					r.state = StateSummarize
				} else {
					r.state = StateDone
				}
				continue
			}

			toolCallsThisTurn += len(toolCalls)
			if toolCallsThisTurn > o.cfg.MaxToolCallsPerTurn {
				err := ErrMaxToolCallsExceeded
				o.checkpoint(ctx, r, StateFailed, true, err.Error())
				return Result{RunID: r.runID, FinalState: StateFailed, Budget: r.budget}, err
			}
			if err := o.dispatchToolCalls(ctx, r, toolCalls, emitter); err != nil {
				o.checkpoint(ctx, r, StateFailed, true, err.Error())
				return Result{RunID: r.runID, FinalState: StateFailed, Budget: r.budget}, err
			}
			r.state = StateObserve

		case StateObserve:
			if r.budget.Exhausted() {
				r.state = StateFailed
				continue
			}
			r.state = StateAct

		case StateSummarize:
			summary, err := o.summarize(ctx, r)
			if err != nil {
				o.checkpoint(ctx, r, StateFailed, true, err.Error())
				return Result{RunID: r.runID, FinalState: StateFailed, Budget: r.budget}, err
			}
			r.messages = []llm.Message{{Role: llm.RoleSystem, Content: summary}}
			r.state = StateDone

		case StateDone:
			final := lastAssistantContent(r.messages)
			if _, err := o.store.AppendMessage(ctx, models.Message{
				SessionID: sessionID, Role: models.RoleAssistant, Content: final,
				Metadata: models.MessageMetadata{Tokens: r.budget.TotalTokens},
			}); err != nil {
				return Result{}, fmt.Errorf("recording assistant message: %w", err)
			}
			o.checkpoint(ctx, r, StateDone, true, "done")
			o.emit(ctx, emitter, Event{Type: "done", Budget: &r.budget})
			return Result{RunID: r.runID, FinalState: StateDone, FinalMessage: final, Budget: r.budget}, nil

		case StateFailed:
			o.checkpoint(ctx, r, StateFailed, true, "failed")
			return Result{RunID: r.runID, FinalState: StateFailed, Budget: r.budget}, apperrors.New(apperrors.KindInternal, r.runID, "run failed")
		}
	}
}

func lastAssistantContent(msgs []llm.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == llm.RoleAssistant || msgs[i].Role == llm.RoleSystem {
			return msgs[i].Content
		}
	}
	return ""
}

// reason drives one plan/act turn through the LLM, redacting tokens before
// they are streamed and collecting any tool calls the model requested.
func (o *Orchestrator) reason(ctx context.Context, r *run, emitter Emitter) ([]llm.ToolCall, string, error) {
	chunks, err := o.llmClient.Generate(ctx, llm.Request{Model: o.cfg.Model, Messages: r.messages, Tools: toolDefinitions(o.registry)})
	if err != nil {
		return nil, "", fmt.Errorf("generating: %w", err)
	}

	var text string
	var toolCalls []llm.ToolCall
	promptTokens := estimateTokens(r.messages)
	for chunk := range chunks {
		if chunk.Err != nil {
			return nil, "", chunk.Err
		}
		if chunk.Token != "" {
			token := chunk.Token
			if o.redactor != nil {
				token, _ = o.redactor.Apply(token)
			}
			text += token
			o.emit(ctx, emitter, Event{Type: "token", Token: token})
		}
		if len(chunk.ToolCalls) > 0 {
			toolCalls = append(toolCalls, chunk.ToolCalls...)
		}
	}

	completionTokens := estimateTokenCount(text)
	r.budget.Add(promptTokens, completionTokens)
	o.emit(ctx, emitter, Event{Type: "token_budget", Budget: &r.budget})
	return toolCalls, text, nil
}

// dispatchToolCalls runs calls concurrently, bounded to cfg.ToolFanoutMax
// in-flight at a time via errgroup.SetLimit, and appends each result as a
// tool message in call order.
func (o *Orchestrator) dispatchToolCalls(ctx context.Context, r *run, calls []llm.ToolCall, emitter Emitter) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.ToolFanoutMax)

	results := make([]llm.Message, len(calls))
	for i, c := range calls {
		i, call := i, c
		g.Go(func() error {
			toolCtx, cancel := context.WithTimeout(gctx, o.cfg.ToolTimeout)
			defer cancel()

			o.emit(ctx, emitter, Event{Type: "tool_call_start", ToolName: call.Name})
			result, err := o.registry.Execute(toolCtx, r.sessionID, tools.Call{ID: call.ID, Name: call.Name, Arguments: json.RawMessage(call.Arguments)})
			if err != nil {
				return err
			}
			o.emit(ctx, emitter, Event{Type: "tool_call_end", ToolName: call.Name, Result: &result})
			results[i] = llm.Message{Role: llm.RoleTool, Content: result.Content, ToolCallID: call.ID, ToolName: call.Name}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	r.messages = append(r.messages, results...)
	return nil
}

// summarize asks the model to compress the running conversation once the
// budget crosses the 0.8*budget_max threshold (spec §4.7).
func (o *Orchestrator) summarize(ctx context.Context, r *run) (string, error) {
	req := llm.Request{
		Model: o.cfg.Model,
		Messages: append(append([]llm.Message{}, r.messages...),
			llm.Message{Role: llm.RoleUser, Content: "Summarize the conversation so far, preserving all findings and open questions."}),
	}
	chunks, err := o.llmClient.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("summarizing: %w", err)
	}
	var summary string
	for chunk := range chunks {
		if chunk.Err != nil {
			return "", chunk.Err
		}
		summary += chunk.Token
	}
	r.budget.Add(0, estimateTokenCount(summary))
	return summary, nil
}

func (o *Orchestrator) checkpoint(ctx context.Context, r *run, state State, terminal bool, termStatus string) {
	r.seq++
	blob, _ := json.Marshal(r.budget)
	_, _ = o.store.AppendCheckpoint(ctx, models.Checkpoint{
		SessionID: r.sessionID, RunID: r.runID, Seq: r.seq, NodeID: string(state),
		StateBlob: blob, Terminal: terminal, TermStatus: termStatus,
	})
	r.state = state
}

func (o *Orchestrator) emit(ctx context.Context, emitter Emitter, e Event) {
	if emitter == nil {
		return
	}
	_ = emitter.Emit(ctx, e)
}

func toolDefinitions(reg *tools.Registry) []llm.ToolDefinition {
	descs := reg.Describe()
	defs := make([]llm.ToolDefinition, 0, len(descs))
	for _, d := range descs {
		schema, _ := json.Marshal(d.Parameters)
		defs = append(defs, llm.ToolDefinition{Name: d.Name, Description: d.Description, ParametersSchema: string(schema)})
	}
	return defs
}

// estimateTokens/estimateTokenCount use the common chars/4 heuristic the
// teacher's token-accounting code falls back to when the provider doesn't
// return usage metadata; good enough for budget bookkeeping, not billing.
func estimateTokens(msgs []llm.Message) int {
	total := 0
	for _, m := range msgs {
		total += estimateTokenCount(m.Content)
	}
	return total
}

func estimateTokenCount(s string) int {
	return (len(s) + 3) / 4
}
