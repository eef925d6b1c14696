package etl

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/codeready-toolchain/logwatch/pkg/models"
)

// MapFunc normalizes one raw SourceRow into a CanonicalLogRow. Mappings
// never return a partially-filled row on error — they return a non-nil
// error, which the normalizer routes to the dead-letter sink.
type MapFunc func(row SourceRow) (models.CanonicalLogRow, error)

// SourceMapping binds a source table name to the MapFunc that understands
// its shape. Adding a fifth upstream table means adding one entry here,
// never touching the registry's lookup logic (spec §9 redesign note).
type SourceMapping struct {
	Table string
	Map   MapFunc
}

// Registry is the compile-time list of every known source table mapping.
// Four representative heterogeneous shapes are covered, per SPEC_FULL §4.4:
// plain text payload, JSON-struct payload, vendor JSON with its own
// severity vocabulary, and an already-partially-normalized audit log.
var Registry = []SourceMapping{
	{Table: "appengine_app_logs", Map: mapPlainTextPayload},
	{Table: "run_googleapis_com_stdout", Map: mapJSONStructPayload},
	{Table: "vendor_datadog_events", Map: mapVendorJSONPayload},
	{Table: "cloudaudit_googleapis_com_activity", Map: mapAuditLog},
}

// Lookup returns the mapping registered for table, or false if none exists.
func Lookup(table string) (SourceMapping, bool) {
	for _, m := range Registry {
		if m.Table == table {
			return m, true
		}
	}
	return SourceMapping{}, false
}

// synthesizeTrace deterministically derives trace_id/span_id from
// (service, minute-truncated timestamp, insert_id) when the source doesn't
// carry its own trace context (spec §4.4 step 2).
func synthesizeTrace(service string, ts time.Time, insertID string) (traceID, spanID string) {
	minuteBucket := ts.Truncate(time.Minute).Unix()
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", service, minuteBucket, insertID)))
	hexStr := hex.EncodeToString(h[:])
	return hexStr[:32], hexStr[32:48]
}

// normalizeSeverity upper-cases sev and falls back to DEFAULT when it
// isn't one of the nine canonical severities.
func normalizeSeverity(sev string) models.Severity {
	s := models.Severity(strings.ToUpper(strings.TrimSpace(sev)))
	if !s.Valid() {
		return models.SeverityDefault
	}
	return s
}

func stringField(fields map[string]any, key string) string {
	if v, ok := fields[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// mapPlainTextPayload handles sources whose only payload is an unstructured
// text line (e.g. App Engine stdout/stderr capture). service_name falls
// back to the source table name when no resource label is present.
func mapPlainTextPayload(row SourceRow) (models.CanonicalLogRow, error) {
	if row.RawText == "" {
		return models.CanonicalLogRow{}, fmt.Errorf("appengine_app_logs: empty text payload for insert_id=%s", row.InsertID)
	}

	service := stringField(row.Fields, "module_id")
	if service == "" {
		service = row.Table
	}
	traceID, spanID := synthesizeTrace(service, row.Timestamp, row.InsertID)

	return models.CanonicalLogRow{
		LogID:         row.Table + ":" + row.InsertID,
		EventTS:       row.Timestamp,
		Severity:      normalizeSeverity(stringField(row.Fields, "severity")),
		ServiceName:   service,
		LogType:       "application",
		SourceTable:   row.Table,
		TextPayload:   row.RawText,
		TraceID:       traceID,
		SpanID:        spanID,
		Envelope:      models.Envelope{SchemaVersion: "2.0.0"},
	}, nil
}

// mapJSONStructPayload handles sources that already emit a structured JSON
// payload (Cloud Run / GKE stdout parsed as JSON), carrying its own
// severity and usually its own trace context.
func mapJSONStructPayload(row SourceRow) (models.CanonicalLogRow, error) {
	if row.Fields == nil {
		return models.CanonicalLogRow{}, fmt.Errorf("run_googleapis_com_stdout: missing JSON fields for insert_id=%s", row.InsertID)
	}

	service := stringField(row.Fields, "service_name")
	if service == "" {
		service = stringField(row.Fields, "serviceName")
	}
	traceID := stringField(row.Fields, "trace")
	spanID := stringField(row.Fields, "spanId")
	if traceID == "" {
		traceID, spanID = synthesizeTrace(service, row.Timestamp, row.InsertID)
	}

	return models.CanonicalLogRow{
		LogID:        row.Table + ":" + row.InsertID,
		EventTS:      row.Timestamp,
		Severity:     normalizeSeverity(stringField(row.Fields, "severity")),
		ServiceName:  service,
		LogType:      "application",
		SourceTable:  row.Table,
		Message:      stringField(row.Fields, "message"),
		JSONPayload:  row.RawJSON,
		TraceID:      traceID,
		SpanID:       spanID,
		TraceSampled: stringField(row.Fields, "traceSampled") == "true",
		HasTrace:     traceID != "",
		Envelope:     models.Envelope{SchemaVersion: "2.0.0"},
	}, nil
}

// vendorSeverityMap translates a third-party vendor's own severity
// vocabulary into the canonical Severity enum (spec §4.4 step 2).
var vendorSeverityMap = map[string]models.Severity{
	"success": models.SeverityInfo,
	"info":    models.SeverityInfo,
	"warning": models.SeverityWarning,
	"error":   models.SeverityError,
	"critical": models.SeverityCritical,
}

// mapVendorJSONPayload handles a third-party vendor feed (modeled on
// Datadog-style event ingestion) that carries its own severity vocabulary,
// which must be translated rather than upper-cased.
func mapVendorJSONPayload(row SourceRow) (models.CanonicalLogRow, error) {
	alertType := stringField(row.Fields, "alert_type")
	sev, ok := vendorSeverityMap[strings.ToLower(alertType)]
	if !ok {
		sev = models.SeverityDefault
	}

	service := stringField(row.Fields, "host")
	traceID, spanID := synthesizeTrace(service, row.Timestamp, row.InsertID)

	return models.CanonicalLogRow{
		LogID:       row.Table + ":" + row.InsertID,
		EventTS:     row.Timestamp,
		Severity:    sev,
		ServiceName: service,
		LogType:     "application",
		SourceTable: row.Table,
		Message:     stringField(row.Fields, "title") + ": " + stringField(row.Fields, "text"),
		JSONPayload: row.RawJSON,
		TraceID:     traceID,
		SpanID:      spanID,
		Envelope:    models.Envelope{SchemaVersion: "2.0.0"},
	}, nil
}

// mapAuditLog handles a source shape that's already partially normalized
// (Cloud Audit Logs): it carries its own severity and actor identity, and
// every row is flagged is_audit for the retention classifier.
func mapAuditLog(row SourceRow) (models.CanonicalLogRow, error) {
	methodName := stringField(row.Fields, "methodName")
	if methodName == "" {
		return models.CanonicalLogRow{}, fmt.Errorf("cloudaudit_googleapis_com_activity: missing methodName for insert_id=%s", row.InsertID)
	}

	service := stringField(row.Fields, "serviceName")
	traceID := stringField(row.Fields, "trace")
	if traceID == "" {
		traceID, _ = synthesizeTrace(service, row.Timestamp, row.InsertID)
	}

	return models.CanonicalLogRow{
		LogID:       row.Table + ":" + row.InsertID,
		EventTS:     row.Timestamp,
		Severity:    normalizeSeverity(stringField(row.Fields, "severity")),
		ServiceName: service,
		LogType:     "audit",
		SourceTable: row.Table,
		Message:     methodName,
		JSONPayload: row.RawJSON,
		TraceID:     traceID,
		IsAudit:     true,
		Envelope: models.Envelope{
			SchemaVersion: "2.0.0",
			Actor:         models.Actor{UserID: stringField(row.Fields, "principalEmail")},
			Privacy:       models.Privacy{RetentionClass: models.RetentionClassAudit},
		},
	}, nil
}
