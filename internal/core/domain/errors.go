package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrExtractionFailure = errors.New("text extraction failed")
	ErrServiceDegraded   = errors.New("structured extraction degraded")
	ErrUnknownDisease    = errors.New("unknown disease")
	ErrFeatureBuild      = errors.New("feature vector build failed")
	ErrModelUnavailable  = errors.New("classifier not loaded")
	ErrPredictionFormat  = errors.New("unrecognized classifier output")
	ErrPredictionFailed  = errors.New("classifier prediction failed")
	ErrAnalysisNotFound  = errors.New("analysis not found")
	ErrTemporary         = errors.New("temporary failure")
	ErrInternal          = errors.New("internal error")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
