package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/medical-report-analyzer/internal/core/domain"
)

// DocumentStager copies an upload to a temporary file. The returned
// cleanup removes it and is safe to call more than once.
type DocumentStager interface {
	Stage(ctx context.Context, filename string, body io.Reader) (path string, cleanup func(), err error)
}

// TextExtractor recovers text from a staged document.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (domain.Extraction, error)
}

// StructuredExtractor turns report text into a disease-specific record.
// Provider failures are reported in-band as an error record.
type StructuredExtractor interface {
	Structure(ctx context.Context, text string, diseaseID domain.DiseaseID) (domain.StructuredRecord, error)
}

// Classifier is a pre-trained disease model.
type Classifier interface {
	Predict(ctx context.Context, features []float64) (int, error)
}

// ProbabilisticClassifier also exposes class probabilities.
type ProbabilisticClassifier interface {
	Classifier
	PredictProbability(ctx context.Context, features []float64) ([]float64, error)
}

// InputSizer is implemented by classifiers that know their input width.
type InputSizer interface {
	InputSize() int
}

// ClassifierRegistry resolves the classifier loaded for a disease.
type ClassifierRegistry interface {
	Classifier(diseaseID domain.DiseaseID) (Classifier, bool)
}

// AnalysisRecorder receives the audit record of each upload analysis.
type AnalysisRecorder interface {
	Record(ctx context.Context, record domain.AnalysisRecord) error
}

// AnalysisRepository persists and reads analysis records.
type AnalysisRepository interface {
	Save(ctx context.Context, record domain.AnalysisRecord) error
	GetByID(ctx context.Context, id string) (*domain.AnalysisRecord, error)
	List(ctx context.Context, filter domain.AnalysisFilter) ([]domain.AnalysisRecord, error)
}

// AnalysisQueue publishes and consumes analysis events.
type AnalysisQueue interface {
	PublishAnalysis(ctx context.Context, record domain.AnalysisRecord) error
	SubscribeAnalyses(ctx context.Context, handler func(context.Context, domain.AnalysisRecord) error) error
}

// SpreadsheetExporter renders analysis records as a workbook.
type SpreadsheetExporter interface {
	Export(records []domain.AnalysisRecord) ([]byte, error)
}

// PipelineMetrics observes pipeline stage timings and verdicts.
type PipelineMetrics interface {
	ObserveStage(stage string, duration time.Duration, err error)
	ObserveVerdict(diseaseID domain.DiseaseID, level domain.RiskLevel)
}
