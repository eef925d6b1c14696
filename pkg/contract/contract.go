// Package contract declares the canonical log-row contract: the single
// schema every reader (planner, ETL, tool runtime) is allowed to reference.
// It is static and versioned — additive changes bump Minor, removals or
// type changes bump Major and require a new logical view (SPEC_FULL §4.1).
//
// Nothing in this package touches a source table. Source-table specifics
// live in pkg/etl/mappings; this package only names the contract they map
// into.
package contract

// Version is the canonical view's semantic version. The gateway only ever
// builds queries and mappings against the latest (V2) shape — whether any
// legacy caller still depends on V1 is an open question the spec leaves
// unresolved (see DESIGN.md).
const Version = "2.0.0"

// ViewName is the logical column-store view every planner query targets.
// The planner and tool runtime must never reference a source table by name.
const ViewName = "canonical_log_rows_v2"

// GroupByField is a closed enum of columns the query planner is allowed to
// GROUP BY. Any value outside this set is a usage error (UnknownGroupBy).
type GroupByField string

const (
	GroupBySeverity     GroupByField = "severity"
	GroupByServiceName  GroupByField = "service_name"
	GroupBySourceTable  GroupByField = "source_table"
	GroupByResourceType GroupByField = "resource_type"
)

// ValidGroupBy reports whether f is one of the four allowed grouping
// columns (spec §4.2).
func ValidGroupBy(f GroupByField) bool {
	switch f {
	case GroupBySeverity, GroupByServiceName, GroupBySourceTable, GroupByResourceType:
		return true
	default:
		return false
	}
}

// Column names as they appear in the canonical view. Declared as constants
// rather than struct-tag reflection so the planner's clause builder never
// needs to discover schema at request time (DESIGN NOTES §9).
const (
	ColLogID        = "log_id"
	ColEventTS      = "event_ts"
	ColIngestTS     = "ingest_ts"
	ColSeverity     = "severity"
	ColSeverityLvl  = "severity_level"
	ColServiceName  = "service_name"
	ColLogType      = "log_type"
	ColResourceType = "resource_type"
	ColSourceTable  = "source_table"
	ColMessage      = "message"
	ColTraceID      = "trace_id"
	ColSpanID       = "span_id"
	ColIsError      = "is_error"
)

// SelectColumns is the fixed projection used by list and trace-lookup
// queries (aggregate queries select only the group column and a count). It
// is exhaustive enough to reconstruct a models.CanonicalLogRow, and is never
// built dynamically.
var SelectColumns = []string{
	ColLogID, ColEventTS, ColIngestTS, ColSeverity, ColSeverityLvl,
	ColServiceName, "log_type", "resource_type", ColSourceTable, "source_dataset",
	"message", "text_payload", "json_payload", "proto_payload",
	"http_method", "http_url", "http_status", "http_latency_ms",
	ColTraceID, ColSpanID, "parent_span_id", "trace_sampled",
	"envelope_schema_version", "envelope_environment",
	"envelope_actor_user_id", "envelope_actor_tenant_id", "envelope_actor_ip", "envelope_actor_user_agent",
	"envelope_correlation_request_id", "envelope_correlation_session_id", "envelope_correlation_conversation_id",
	"envelope_pii_risk", "envelope_redaction_state", "envelope_retention_class",
	"envelope_labels",
	ColIsError, "is_audit", "is_request", "has_trace",
}
