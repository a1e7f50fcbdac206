package domain

import "time"

// AnalysisRecord is the audit entry kept for each upload analysis. It never
// holds the document body or extracted text.
type AnalysisRecord struct {
	ID        string        `json:"id"`
	RequestID string        `json:"request_id,omitempty"`
	DiseaseID DiseaseID     `json:"disease_id"`
	Filename  string        `json:"filename"`
	Method    string        `json:"method,omitempty"`
	TextChars int           `json:"text_chars"`
	RiskLevel RiskLevel     `json:"risk_level"`
	Reason    string        `json:"reason"`
	Outcome   *Outcome      `json:"outcome,omitempty"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
	CreatedAt time.Time     `json:"created_at"`
}

// Analysis is the result handed back to callers of the pipeline.
type Analysis struct {
	ID      string      `json:"id"`
	Verdict RiskVerdict `json:"verdict"`
	Outcome *Outcome    `json:"outcome,omitempty"`
	Method  string      `json:"method,omitempty"`
}

type AnalysisFilter struct {
	DiseaseID DiseaseID
	Limit     int
}
