package api

import (
	"github.com/codeready-toolchain/logwatch/pkg/models"
	"github.com/codeready-toolchain/logwatch/pkg/tools"
)

// ChatResponse is returned by POST /api/chat: the run has been accepted
// and is streaming via GET /api/sessions/:id/stream.
type ChatResponse struct {
	SessionID string `json:"session_id"`
	RunID     string `json:"run_id"`
	Status    string `json:"status"`
}

// CancelResponse is returned by POST /api/chat/:run_id/cancel.
type CancelResponse struct {
	RunID   string `json:"run_id"`
	Message string `json:"message"`
}

// LogListResponse is returned by GET /api/logs.
type LogListResponse struct {
	Rows          []models.CanonicalLogRow `json:"rows"`
	ReturnedCount int                      `json:"returned_count"`
}

// LogAggregateResponse is returned by GET /api/logs/aggregate.
type LogAggregateResponse struct {
	Buckets []AggregateBucket `json:"buckets"`
}

// AggregateBucket is one group-by result row.
type AggregateBucket struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// ToolsResponse is returned by GET /api/tools.
type ToolsResponse struct {
	Tools []tools.Description `json:"tools"`
}

// ETLJobsResponse is returned by GET /api/etl/jobs.
type ETLJobsResponse struct {
	Jobs []models.JobStateRecord `json:"jobs"`
}

// ETLDeadLettersResponse is returned by GET /api/etl/deadletters.
type ETLDeadLettersResponse struct {
	DeadLetters []models.DeadLetter `json:"dead_letters"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string                 `json:"status"`
	Version string                 `json:"version"`
	Checks  map[string]HealthCheck `json:"checks"`
}

// HealthCheck represents the status of a single health check component.
type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
