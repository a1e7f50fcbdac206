package ports

import (
	"context"
	"io"

	"github.com/kirillkom/medical-report-analyzer/internal/core/domain"
)

// ReportAnalyzer is the inbound contract for the report-to-risk pipeline.
type ReportAnalyzer interface {
	Analyze(ctx context.Context, filename string, diseaseID domain.DiseaseID, body io.Reader) (domain.Analysis, error)
	AnalyzeText(ctx context.Context, diseaseID domain.DiseaseID, text string) (domain.Analysis, error)
	PredictFromRecord(ctx context.Context, diseaseID domain.DiseaseID, record domain.StructuredRecord) (domain.Analysis, error)
}

// AnalysisHistory is the inbound read model for past analyses.
type AnalysisHistory interface {
	List(ctx context.Context, filter domain.AnalysisFilter) ([]domain.AnalysisRecord, error)
	GetByID(ctx context.Context, id string) (*domain.AnalysisRecord, error)
	ExportXLSX(ctx context.Context, filter domain.AnalysisFilter) ([]byte, error)
}

// AnalysisIngestor persists analysis events consumed by the worker.
type AnalysisIngestor interface {
	Ingest(ctx context.Context, record domain.AnalysisRecord) error
}
