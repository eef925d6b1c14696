package etl

import (
	"regexp"

	"github.com/codeready-toolchain/logwatch/pkg/models"
)

// PII classification patterns, checked high to low so the first (most
// sensitive) match wins (spec §4.4 step 3).
var (
	highRiskPattern     = regexp.MustCompile(`(?i)(bearer\s+[a-z0-9._-]+|secret|api[_-]?key|password\s*[:=])`)
	moderateRiskPattern = regexp.MustCompile(`(?i)([a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}|\+?\d{3}[-.\s]?\d{3}[-.\s]?\d{4}|\b\d{1,3}(\.\d{1,3}){3}\b)`)
	lowRiskPattern      = regexp.MustCompile(`(?i)(user[_-]?id|account[_-]?id)\s*[:=]`)
)

// ClassifyPIIRisk inspects message and jsonPayload and returns the highest
// risk tier any pattern matches.
func ClassifyPIIRisk(message, jsonPayload string) models.PIIRisk {
	combined := message + " " + jsonPayload
	switch {
	case highRiskPattern.MatchString(combined):
		return models.PIIRiskHigh
	case moderateRiskPattern.MatchString(combined):
		return models.PIIRiskModerate
	case lowRiskPattern.MatchString(combined):
		return models.PIIRiskLow
	default:
		return models.PIIRiskNone
	}
}

// DeriveEnvelope fills in the cross-cutting envelope fields a mapping
// doesn't set directly: PII risk classification and retention class (spec
// §4.4 step 3). Mapping-specific fields (actor, audit retention class) are
// left untouched if already set.
func DeriveEnvelope(row *models.CanonicalLogRow) {
	row.Envelope.Privacy.PIIRisk = ClassifyPIIRisk(row.Message, row.JSONPayload)
	if row.Envelope.Privacy.RetentionClass == "" {
		if row.IsAudit {
			row.Envelope.Privacy.RetentionClass = models.RetentionClassAudit
		} else {
			row.Envelope.Privacy.RetentionClass = models.RetentionClassStandard
		}
	}
	row.SeverityLevel = row.Severity.Level()
	row.IsError = row.Severity.Level() >= models.SeverityError.Level()
	row.HasTrace = row.HasTrace || row.TraceID != ""
}
