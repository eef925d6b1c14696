package models

import "time"

// SessionStatus is the lifecycle state of a chat session.
type SessionStatus string

const (
	SessionStatusActive   SessionStatus = "active"
	SessionStatusArchived SessionStatus = "archived"
)

// SessionMetadata is the free-form rollup tracked alongside a Session.
type SessionMetadata struct {
	TotalMessages int      `json:"total_messages"`
	TotalCost     float64  `json:"total_cost"`
	Tags          []string `json:"tags,omitempty"`
}

// Session is a conversation between a user and the agent orchestrator.
// Created by C7 at first turn; mutated only by the owning orchestrator
// run (single-writer-per-session, spec §4.9/§5).
type Session struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Title     string          `json:"title,omitempty"`
	CreatedTS time.Time       `json:"created_ts"`
	UpdatedTS time.Time       `json:"updated_ts"`
	Status    SessionStatus   `json:"status"`
	Metadata  SessionMetadata `json:"metadata"`
}

// Role is who authored a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// MessageMetadata carries per-message accounting used by the token budget
// and timeline views.
type MessageMetadata struct {
	Tokens     int      `json:"tokens,omitempty"`
	ToolCalls  []string `json:"tool_calls,omitempty"`
	CostImpact float64  `json:"cost_impact,omitempty"`
	LatencyMs  int64    `json:"latency_ms,omitempty"`
}

// Message is one turn in a Session, append-only, ordered by monotonic TS.
type Message struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Role      Role            `json:"role"`
	Content   string          `json:"content"`
	TS        time.Time       `json:"ts"`
	Metadata  MessageMetadata `json:"metadata"`
}

// Checkpoint is a durable snapshot of orchestrator state at a state-machine
// node boundary. Checkpoints form a tree per run; writes are append-only —
// the orchestrator never mutates an existing checkpoint.
type Checkpoint struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	RunID      string    `json:"run_id"`
	Seq        int       `json:"seq"`
	NodeID     string    `json:"node_id"`
	StateBlob  []byte    `json:"state_blob"`
	CreatedTS  time.Time `json:"created_ts"`
	ParentID   *string   `json:"parent_id,omitempty"`
	Terminal   bool      `json:"terminal"`
	TermStatus string    `json:"term_status,omitempty"` // "done", "failed", "cancelled" or the ending error's text when Terminal
}

// ToolInvocationStatus is the lifecycle of a single tool call.
type ToolInvocationStatus string

const (
	ToolInvocationRunning   ToolInvocationStatus = "running"
	ToolInvocationCompleted ToolInvocationStatus = "completed"
	ToolInvocationError     ToolInvocationStatus = "error"
)

// ToolInvocation is telemetry for a single tool call, written exclusively by
// the tool runtime (C6).
type ToolInvocation struct {
	ID          string               `json:"id"`
	SessionID   string               `json:"session_id"`
	ToolName    string               `json:"tool_name"`
	Input       string               `json:"input"`
	Output      string               `json:"output,omitempty"`
	Status      ToolInvocationStatus `json:"status"`
	StartedTS   time.Time            `json:"started_ts"`
	CompletedTS *time.Time           `json:"completed_ts,omitempty"`
	DurationMs  *int64               `json:"duration_ms,omitempty"`
	Tokens      *int                 `json:"tokens,omitempty"`
	CostUSD     *float64             `json:"cost_usd,omitempty"`
}

// TokenBudget is the per-run token accounting maintained by the orchestrator.
type TokenBudget struct {
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	BudgetMax        int    `json:"budget_max"`
	BudgetRemaining  int    `json:"budget_remaining"`
	Model            string `json:"model,omitempty"`
	ShouldSummarize  bool   `json:"should_summarize"`
}

// Add accumulates usage from one LLM call and recomputes derived fields.
func (b *TokenBudget) Add(prompt, completion int) {
	b.PromptTokens += prompt
	b.CompletionTokens += completion
	b.TotalTokens = b.PromptTokens + b.CompletionTokens
	b.BudgetRemaining = b.BudgetMax - b.TotalTokens
	b.ShouldSummarize = float64(b.TotalTokens) >= 0.8*float64(b.BudgetMax)
}

// Exhausted reports whether, even after summarization, the run is still over
// the hard 0.9*budget_max ceiling (spec §4.7).
func (b *TokenBudget) Exhausted() bool {
	return float64(b.TotalTokens) >= 0.9*float64(b.BudgetMax)
}

// ErrorEmbedding is a vector point for one ERROR/CRITICAL row, created by
// C5 and evicted by TTL.
type ErrorEmbedding struct {
	ID       string    `json:"id"`
	Vector   []float32 `json:"vector"`
	Text     string    `json:"text"`
	Severity Severity  `json:"severity"`
	Service  string    `json:"service,omitempty"`
	TS       time.Time `json:"ts"`
	SourceID string    `json:"source_id"`
	TTLTS    time.Time `json:"ttl_ts"`
}

// ErrorCluster groups semantically similar error embeddings.
type ErrorCluster struct {
	ID                     string    `json:"id"`
	Centroid               []float32 `json:"centroid"`
	MemberIDs              []string  `json:"member_ids"`
	FirstSeen              time.Time `json:"first_seen"`
	LastSeen               time.Time `json:"last_seen"`
	Count                  int       `json:"count"`
	RepresentativeMessage  string    `json:"representative_message"`
	Service                string    `json:"service,omitempty"`
	Severity               Severity  `json:"severity,omitempty"`
}

// JobState is the ETL's idempotency/progress state for one unit of work,
// keyed by (source_table, window_start).
type JobState string

const (
	JobStateRunning JobState = "running"
	JobStateDone    JobState = "done"
	JobStateFailed  JobState = "failed"
)

// JobStateRecord tracks one (source_table, window) unit of ETL work.
type JobStateRecord struct {
	SourceTable string     `json:"source_table"`
	WindowStart time.Time  `json:"window_start"`
	WindowEnd   time.Time  `json:"window_end"`
	RowsIn      int        `json:"rows_in"`
	RowsOut     int        `json:"rows_out"`
	State       JobState   `json:"state"`
	Attempt     int        `json:"attempt"`
	StartedTS   time.Time  `json:"started_ts"`
	FinishedTS  *time.Time `json:"finished_ts,omitempty"`
}

// DeadLetter is a row that failed normalization, kept with its original
// payload and the reason it was rejected.
type DeadLetter struct {
	ID           string    `json:"id"`
	SourceTable  string    `json:"source_table"`
	OriginalJSON string    `json:"original_json"`
	Reason       string    `json:"reason"`
	OccurredTS   time.Time `json:"occurred_ts"`
}
