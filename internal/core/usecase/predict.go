package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/kirillkom/medical-report-analyzer/internal/core/catalog"
	"github.com/kirillkom/medical-report-analyzer/internal/core/domain"
	"github.com/kirillkom/medical-report-analyzer/internal/core/ports"
)

var errFeatureCountMismatch = errors.New("feature count mismatch")

// Predict runs the disease classifier on a feature vector. Probabilistic
// diseases report P(positive) when the classifier exposes probabilities;
// everything else reports the discrete class.
func Predict(ctx context.Context, registry ports.ClassifierRegistry, vector domain.FeatureVector, diseaseID domain.DiseaseID) (domain.Outcome, error) {
	const op = "predict"

	if vector == nil {
		return domain.Outcome{}, domain.WrapError(domain.ErrFeatureBuild, op, errors.New("no feature vector"))
	}
	if registry == nil {
		return domain.Outcome{}, domain.WrapError(domain.ErrModelUnavailable, op, fmt.Errorf("no classifier registry for %s", diseaseID))
	}
	model, ok := registry.Classifier(diseaseID)
	if !ok || model == nil {
		return domain.Outcome{}, domain.WrapError(domain.ErrModelUnavailable, op, fmt.Errorf("no classifier for %s", diseaseID))
	}

	if sized, ok := model.(ports.InputSizer); ok {
		if want := sized.InputSize(); want > 0 && want != len(vector) {
			return domain.Outcome{}, domain.WrapError(domain.ErrFeatureBuild, op, fmt.Errorf("%w: generated %d, expected %d", errFeatureCountMismatch, len(vector), want))
		}
	}

	spec, known := catalog.Lookup(diseaseID)
	if known && spec.Output == catalog.Probabilistic {
		if probModel, ok := model.(ports.ProbabilisticClassifier); ok {
			probs, err := probModel.PredictProbability(ctx, vector)
			if err != nil {
				return domain.Outcome{}, wrapPredictionError(op, err)
			}
			p, err := positiveProbability(probs)
			if err != nil {
				return domain.Outcome{}, domain.WrapError(domain.ErrPredictionFormat, op, err)
			}
			return domain.ProbabilityOutcome(p), nil
		}
	}

	class, err := model.Predict(ctx, vector)
	if err != nil {
		return domain.Outcome{}, wrapPredictionError(op, err)
	}
	return domain.ClassOutcome(class), nil
}

// positiveProbability reads P(positive) from a [P(neg), P(pos)] pair or a
// single value.
func positiveProbability(probs []float64) (float64, error) {
	switch len(probs) {
	case 2:
		return probs[1], nil
	case 1:
		return probs[0], nil
	default:
		return 0, fmt.Errorf("cannot interpret probability output %v", probs)
	}
}

func wrapPredictionError(op string, err error) error {
	for _, kind := range []error{domain.ErrTemporary, domain.ErrPredictionFormat, domain.ErrModelUnavailable} {
		if domain.IsKind(err, kind) {
			return err
		}
	}
	return domain.WrapError(domain.ErrPredictionFailed, op, err)
}
