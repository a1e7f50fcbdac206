package domain

import "strings"

// StructuredRecord is the loosely typed field map returned by the
// structured extraction service. Keys are disease-specific.
type StructuredRecord map[string]any

const (
	RecordKeyDisease   = "disease"
	RecordKeyError     = "error"
	RecordKeyRiskLevel = "risk_level"
	RecordKeyReason    = "reason"
)

// NewErrorRecord builds the degraded record emitted when the extraction
// service could not produce usable data.
func NewErrorRecord(disease DiseaseID, message, reason string) StructuredRecord {
	return StructuredRecord{
		RecordKeyDisease:   disease.String(),
		RecordKeyError:     message,
		RecordKeyRiskLevel: string(RiskError),
		RecordKeyReason:    reason,
	}
}

// IsError reports whether the record carries an error marker instead of data.
func (r StructuredRecord) IsError() bool {
	if r == nil {
		return false
	}
	if level, ok := r[RecordKeyRiskLevel].(string); ok && RiskLevel(level) == RiskError {
		return true
	}
	msg, ok := r[RecordKeyError].(string)
	return ok && strings.TrimSpace(msg) != ""
}

func (r StructuredRecord) ErrorMessage() string {
	msg, _ := r[RecordKeyError].(string)
	return msg
}

func (r StructuredRecord) Reason() string {
	reason, _ := r[RecordKeyReason].(string)
	return reason
}

// Clone returns a shallow copy safe to mutate at the top level.
func (r StructuredRecord) Clone() StructuredRecord {
	out := make(StructuredRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
