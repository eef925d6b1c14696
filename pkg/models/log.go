// Package models defines the data model shared by every reader and writer
// in the gateway: the canonical log row, session/message/checkpoint triple,
// tool telemetry, token budget, and error embeddings.
package models

import "time"

// Severity is the canonical log severity, ordered DEFAULT < ... < EMERGENCY.
// The numeric level is a strict function of the string value (Level below),
// never inferred from source-table-specific vocabularies after normalization.
type Severity string

const (
	SeverityDefault   Severity = "DEFAULT"
	SeverityDebug     Severity = "DEBUG"
	SeverityInfo      Severity = "INFO"
	SeverityNotice    Severity = "NOTICE"
	SeverityWarning   Severity = "WARNING"
	SeverityError     Severity = "ERROR"
	SeverityCritical  Severity = "CRITICAL"
	SeverityAlert     Severity = "ALERT"
	SeverityEmergency Severity = "EMERGENCY"
)

// severityLevels assigns each severity its numeric level. Declared once so
// that "severity_level is a strict function of severity" (invariant #3) has
// a single source of truth.
var severityLevels = map[Severity]int{
	SeverityDefault:   0,
	SeverityDebug:     100,
	SeverityInfo:      200,
	SeverityNotice:    300,
	SeverityWarning:   400,
	SeverityError:     500,
	SeverityCritical:  600,
	SeverityAlert:     700,
	SeverityEmergency: 800,
}

// Level returns the numeric severity level, or -1 if s is not a recognized
// severity (callers should treat -1 as a validation failure, not a value).
func (s Severity) Level() int {
	lvl, ok := severityLevels[s]
	if !ok {
		return -1
	}
	return lvl
}

// Valid reports whether s is one of the nine canonical severities.
func (s Severity) Valid() bool {
	_, ok := severityLevels[s]
	return ok
}

// AllSeverities lists every severity in ascending level order. The planner
// does not use it: its severity filter compares severity_level directly.
func AllSeverities() []Severity {
	return []Severity{
		SeverityDefault, SeverityDebug, SeverityInfo, SeverityNotice,
		SeverityWarning, SeverityError, SeverityCritical, SeverityAlert,
		SeverityEmergency,
	}
}

// AtOrAbove returns every severity whose level is >= min's level, in
// ascending order, describing a "severity >= ERROR" style filter without
// re-deriving the enum ordering.
func AtOrAbove(min Severity) []Severity {
	var out []Severity
	minLevel := min.Level()
	for _, s := range AllSeverities() {
		if s.Level() >= minLevel {
			out = append(out, s)
		}
	}
	return out
}

// PIIRisk classifies the sensitivity of a row's payload, assigned by the ETL
// normalizer's privacy classifier.
type PIIRisk string

const (
	PIIRiskNone     PIIRisk = "none"
	PIIRiskLow      PIIRisk = "low"
	PIIRiskModerate PIIRisk = "moderate"
	PIIRiskHigh     PIIRisk = "high"
)

// RetentionClass marks rows that need audit-grade retention handling.
type RetentionClass string

const (
	RetentionClassStandard RetentionClass = "standard"
	RetentionClassAudit    RetentionClass = "audit"
)

// Actor carries the identity attached to a log event, when known.
type Actor struct {
	UserID    string `json:"user_id,omitempty"`
	TenantID  string `json:"tenant_id,omitempty"`
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// Correlation carries cross-system request/session/conversation identifiers.
type Correlation struct {
	RequestID      string `json:"request_id,omitempty"`
	SessionID      string `json:"session_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// Privacy carries the ETL's classification of a row's sensitivity.
type Privacy struct {
	PIIRisk        PIIRisk        `json:"pii_risk"`
	RedactionState string         `json:"redaction_state,omitempty"`
	RetentionClass RetentionClass `json:"retention_class"`
}

// Versioning records which schema/mapping version produced a row.
type Versioning struct {
	MapperVersion string `json:"mapper_version,omitempty"`
}

// Envelope is the nested cross-cutting metadata attached to every canonical
// row: tracing is carried on the row itself (trace_id/span_id), everything
// else that isn't core log data lives here.
type Envelope struct {
	SchemaVersion string      `json:"schema_version"`
	Environment   string      `json:"environment,omitempty"`
	Actor         Actor       `json:"actor"`
	Correlation   Correlation `json:"correlation"`
	Privacy       Privacy     `json:"privacy"`
	Versioning    Versioning  `json:"versioning"`
	Labels        []string    `json:"labels,omitempty"`
}

// CanonicalLogRow is the single unified log shape every reader in the
// gateway consumes. Created exclusively by the ETL normalizer (C4);
// immutable thereafter — logs are append-only.
type CanonicalLogRow struct {
	LogID    string    `json:"log_id"`
	EventTS  time.Time `json:"event_ts"`
	IngestTS time.Time `json:"ingest_ts"`

	Severity      Severity `json:"severity"`
	SeverityLevel int      `json:"severity_level"`

	ServiceName    string `json:"service_name,omitempty"`
	LogType        string `json:"log_type,omitempty"`
	ResourceType   string `json:"resource_type,omitempty"`
	SourceTable    string `json:"source_table"`
	SourceDataset  string `json:"source_dataset,omitempty"`

	Message      string `json:"message,omitempty"`
	TextPayload  string `json:"text_payload,omitempty"`
	JSONPayload  string `json:"json_payload,omitempty"`
	ProtoPayload string `json:"proto_payload,omitempty"`

	HTTPMethod     string `json:"http_method,omitempty"`
	HTTPURL        string `json:"http_url,omitempty"`
	HTTPStatus     int    `json:"http_status,omitempty"`
	HTTPLatencyMs  int64  `json:"http_latency_ms,omitempty"`

	TraceID      string `json:"trace_id,omitempty"`
	SpanID       string `json:"span_id,omitempty"`
	ParentSpanID string `json:"parent_span_id,omitempty"`
	TraceSampled bool   `json:"trace_sampled,omitempty"`

	Envelope Envelope `json:"envelope"`

	IsError   bool `json:"is_error"`
	IsAudit   bool `json:"is_audit"`
	IsRequest bool `json:"is_request"`
	HasTrace  bool `json:"has_trace"`
}

// DisplayMessage picks the best human-readable field to show/search against,
// preferring message, then falling back to the raw text payload. Used by the
// planner's "search" filter (spec §4.2: matches message/display_message).
func (r CanonicalLogRow) DisplayMessage() string {
	if r.Message != "" {
		return r.Message
	}
	return r.TextPayload
}
