// Package llm turns free report text into a structured record through a
// generative model, falling back to fixture records when no provider is
// configured.
package llm

import (
	"context"

	"github.com/kirillkom/medical-report-analyzer/internal/core/catalog"
	"github.com/kirillkom/medical-report-analyzer/internal/core/domain"
)

// Request is one structuring call. Spec is nil when the disease has no
// catalog entry and the generic prompt is used.
type Request struct {
	DiseaseID domain.DiseaseID
	Prompt    string
	Spec      *catalog.Spec
}

// Generator is a JSON-producing model provider.
type Generator interface {
	// Name is the human readable provider name used in error records.
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// Observer receives structuring outcomes, e.g. for metrics.
type Observer interface {
	ObserveStructuring(provider, outcome string)
}

const (
	OutcomeOK          = "ok"
	OutcomeFixture     = "fixture"
	OutcomeSanitized   = "sanitized"
	OutcomeCallFailed  = "call_failed"
	OutcomeInvalidJSON = "invalid_json"
)
