package usecase

import (
	"errors"
	"fmt"

	"github.com/kirillkom/medical-report-analyzer/internal/core/domain"
)

const (
	reasonInternal    = "An internal server error occurred during report analysis. Please check backend logs for details."
	reasonDegraded    = "AI analysis failed due to an issue with the structured extraction service. Please try again later."
	reasonTemporary   = "A required service is temporarily unavailable. Please try again later."
	reasonPredictFail = "Prediction failed due to an internal ML error. Check server logs for details."
)

// ErrorReason returns the user-facing reason for a pipeline failure.
func ErrorReason(err error, diseaseID domain.DiseaseID) string {
	switch {
	case err == nil:
		return ""
	case domain.IsKind(err, domain.ErrUnsupportedFormat), domain.IsKind(err, domain.ErrExtractionFailure):
		return "File processing error: " + rootMessage(err)
	case domain.IsKind(err, domain.ErrInvalidInput):
		return "Invalid input: " + rootMessage(err)
	case domain.IsKind(err, domain.ErrUnknownDisease):
		return fmt.Sprintf("Could not extract relevant features for %s from the report data. Please ensure the report contains the necessary information.", diseaseID)
	case errors.Is(err, errFeatureCountMismatch):
		return fmt.Sprintf("Internal error: Feature count mismatch for %s. Check the catalog feature definitions.", diseaseID)
	case domain.IsKind(err, domain.ErrFeatureBuild):
		return fmt.Sprintf("Could not extract relevant features for %s from the report data. Please ensure the report contains the necessary information.", diseaseID)
	case domain.IsKind(err, domain.ErrModelUnavailable):
		return fmt.Sprintf("ML model for %s is not loaded on the server. Please check backend logs for model loading errors.", diseaseID)
	case domain.IsKind(err, domain.ErrPredictionFormat):
		return fmt.Sprintf("ML model output format unexpected for %s. Could not interpret probabilities.", diseaseID)
	case domain.IsKind(err, domain.ErrTemporary):
		return reasonTemporary
	case domain.IsKind(err, domain.ErrPredictionFailed):
		return reasonPredictFail
	case domain.IsKind(err, domain.ErrServiceDegraded):
		return reasonDegraded
	default:
		return reasonInternal
	}
}

// rootMessage strips WrapError prefixes and returns the wrapped cause.
func rootMessage(err error) string {
	for {
		multi, ok := err.(interface{ Unwrap() []error })
		if !ok {
			return err.Error()
		}
		errs := multi.Unwrap()
		if len(errs) == 0 || errs[len(errs)-1] == nil {
			return err.Error()
		}
		err = errs[len(errs)-1]
	}
}
