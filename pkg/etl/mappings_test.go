package etl

import (
	"testing"
	"time"

	"github.com/codeready-toolchain/logwatch/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapPlainTextPayload_RejectsEmptyPayload(t *testing.T) {
	_, err := mapPlainTextPayload(SourceRow{Table: "appengine_app_logs", InsertID: "1"})
	require.Error(t, err)
}

func TestMapPlainTextPayload_SynthesizesTrace(t *testing.T) {
	row := SourceRow{
		Table:     "appengine_app_logs",
		InsertID:  "abc",
		Timestamp: time.Date(2026, 1, 1, 12, 0, 30, 0, time.UTC),
		RawText:   "request completed",
		Fields:    map[string]any{"module_id": "checkout", "severity": "warning"},
	}
	out, err := mapPlainTextPayload(row)
	require.NoError(t, err)
	assert.Equal(t, models.SeverityWarning, out.Severity)
	assert.Equal(t, "checkout", out.ServiceName)
	assert.NotEmpty(t, out.TraceID)
	assert.NotEmpty(t, out.SpanID)
}

func TestMapVendorJSONPayload_TranslatesVendorVocabulary(t *testing.T) {
	row := SourceRow{
		Table:     "vendor_datadog_events",
		InsertID:  "xyz",
		Timestamp: time.Now(),
		Fields:    map[string]any{"alert_type": "error", "host": "api-1", "title": "spike", "text": "p99 latency"},
	}
	out, err := mapVendorJSONPayload(row)
	require.NoError(t, err)
	assert.Equal(t, models.SeverityError, out.Severity)
}

func TestMapAuditLog_RequiresMethodName(t *testing.T) {
	_, err := mapAuditLog(SourceRow{Table: "cloudaudit_googleapis_com_activity", Fields: map[string]any{}})
	require.Error(t, err)
}

func TestMapAuditLog_SetsAuditFlagsAndActor(t *testing.T) {
	row := SourceRow{
		Table:     "cloudaudit_googleapis_com_activity",
		InsertID:  "1",
		Timestamp: time.Now(),
		Fields: map[string]any{
			"methodName":     "storage.objects.delete",
			"serviceName":    "storage.googleapis.com",
			"severity":       "notice",
			"principalEmail": "alice@example.com",
		},
	}
	out, err := mapAuditLog(row)
	require.NoError(t, err)
	assert.True(t, out.IsAudit)
	assert.Equal(t, "alice@example.com", out.Envelope.Actor.UserID)
	assert.Equal(t, models.RetentionClassAudit, out.Envelope.Privacy.RetentionClass)
}

func TestClassifyPIIRisk(t *testing.T) {
	assert.Equal(t, models.PIIRiskHigh, ClassifyPIIRisk("Authorization: Bearer sk-abc123", ""))
	assert.Equal(t, models.PIIRiskModerate, ClassifyPIIRisk("contact alice@example.com", ""))
	assert.Equal(t, models.PIIRiskLow, ClassifyPIIRisk("user_id=42", ""))
	assert.Equal(t, models.PIIRiskNone, ClassifyPIIRisk("request completed ok", ""))
}

func TestDeriveEnvelope_SetsSeverityLevelAndIsError(t *testing.T) {
	row := models.CanonicalLogRow{Severity: models.SeverityCritical}
	DeriveEnvelope(&row)
	assert.Equal(t, 600, row.SeverityLevel)
	assert.True(t, row.IsError)
}
