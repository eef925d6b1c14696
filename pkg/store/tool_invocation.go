package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/logwatch/pkg/models"
)

// RecordToolInvocation starts a tool_invocations row in the running state
// and returns its id, implementing the tools.Telemetry interface so
// pkg/tools.Registry can record invocation telemetry without importing
// this package's concrete type.
func (s *Store) RecordToolInvocation(ctx context.Context, sessionID, toolName, input string) (string, error) {
	inv := models.ToolInvocation{
		SessionID: sessionID,
		ToolName:  toolName,
		Input:     input,
		Status:    models.ToolInvocationRunning,
		StartedTS: time.Now().UTC(),
	}
	inv.ID = uuid.NewString()

	_, err := s.dbtx.Exec(ctx,
		`INSERT INTO tool_invocations (id, session_id, tool_name, input, status, started_ts)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		inv.ID, inv.SessionID, inv.ToolName, inv.Input, string(inv.Status), inv.StartedTS)
	if err != nil {
		return "", fmt.Errorf("recording tool invocation start: %w", err)
	}
	return inv.ID, nil
}

// CompleteToolInvocation closes out a previously-started invocation with
// its output, final status, and the handler's measured duration.
func (s *Store) CompleteToolInvocation(ctx context.Context, invocationID, output string, isError bool, duration time.Duration) error {
	status := models.ToolInvocationCompleted
	if isError {
		status = models.ToolInvocationError
	}
	completed := time.Now().UTC()
	durationMs := duration.Milliseconds()

	_, err := s.dbtx.Exec(ctx,
		`UPDATE tool_invocations SET output = $2, status = $3, completed_ts = $4, duration_ms = $5 WHERE id = $1`,
		invocationID, output, string(status), completed, durationMs)
	if err != nil {
		return fmt.Errorf("completing tool invocation %s: %w", invocationID, err)
	}
	return nil
}

// ListToolInvocations returns every tool call recorded for sessionID,
// ordered by start time.
func (s *Store) ListToolInvocations(ctx context.Context, sessionID string) ([]models.ToolInvocation, error) {
	rows, err := s.dbtx.Query(ctx,
		`SELECT id, session_id, tool_name, input, output, status, started_ts, completed_ts, duration_ms, tokens, cost_usd
		 FROM tool_invocations WHERE session_id = $1 ORDER BY started_ts ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing tool invocations: %w", err)
	}
	defer rows.Close()

	var out []models.ToolInvocation
	for rows.Next() {
		var inv models.ToolInvocation
		var output *string
		if err := rows.Scan(&inv.ID, &inv.SessionID, &inv.ToolName, &inv.Input, &output, &inv.Status,
			&inv.StartedTS, &inv.CompletedTS, &inv.DurationMs, &inv.Tokens, &inv.CostUSD); err != nil {
			return nil, fmt.Errorf("scanning tool invocation row: %w", err)
		}
		if output != nil {
			inv.Output = *output
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}
