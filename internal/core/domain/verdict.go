package domain

type RiskLevel string

const (
	RiskLow             RiskLevel = "Low"
	RiskMedium          RiskLevel = "Medium"
	RiskHigh            RiskLevel = "High"
	RiskCannotDetermine RiskLevel = "Cannot Determine"
	RiskError           RiskLevel = "Error"
)

// RiskVerdict is the user-facing result of an analysis.
type RiskVerdict struct {
	RiskLevel RiskLevel `json:"risk_level"`
	Reason    string    `json:"reason"`
}

func ErrorVerdict(reason string) RiskVerdict {
	return RiskVerdict{RiskLevel: RiskError, Reason: reason}
}
