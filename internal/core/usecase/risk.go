package usecase

import (
	"math"

	"github.com/kirillkom/medical-report-analyzer/internal/core/catalog"
	"github.com/kirillkom/medical-report-analyzer/internal/core/domain"
)

// ClassifyRisk maps a prediction outcome to the disease's risk verdict.
// It is pure: the same input always yields the same verdict.
func ClassifyRisk(outcome domain.Outcome, diseaseID domain.DiseaseID) domain.RiskVerdict {
	spec, ok := catalog.Lookup(diseaseID)
	if !ok {
		return catalog.UndeterminedVerdict
	}
	policy := spec.Risk

	switch policy.Kind {
	case catalog.RiskClassTable:
		class, ok := outcomeClass(outcome)
		if !ok {
			return policy.Otherwise
		}
		if verdict, ok := policy.Classes[class]; ok {
			return verdict
		}
		return policy.Otherwise
	case catalog.RiskThresholds:
		switch outcome.Kind {
		case domain.OutcomeProbability:
			p := outcome.Probability
			if math.IsNaN(p) || p < 0 || p > 1 {
				return policy.Unexpected
			}
			switch {
			case p < policy.LowBelow:
				return policy.Low
			case p < policy.MediumBelow:
				return policy.Medium
			default:
				return policy.High
			}
		case domain.OutcomeClass:
			switch outcome.Class {
			case 0:
				return policy.Low
			case 1:
				return policy.High
			default:
				return policy.Unexpected
			}
		}
	}
	return catalog.UndeterminedVerdict
}

// outcomeClass accepts integral probabilities as classes.
func outcomeClass(outcome domain.Outcome) (int, bool) {
	switch outcome.Kind {
	case domain.OutcomeClass:
		return outcome.Class, true
	case domain.OutcomeProbability:
		p := outcome.Probability
		if math.IsNaN(p) || math.IsInf(p, 0) || p != math.Trunc(p) {
			return 0, false
		}
		return int(p), true
	default:
		return 0, false
	}
}
