package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/medical-report-analyzer/internal/core/domain"
	"github.com/kirillkom/medical-report-analyzer/internal/core/ports"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
	maxExportRows       = 5000
)

type AnalysisHistoryUseCase struct {
	repo     ports.AnalysisRepository
	exporter ports.SpreadsheetExporter
}

func NewAnalysisHistoryUseCase(repo ports.AnalysisRepository, exporter ports.SpreadsheetExporter) *AnalysisHistoryUseCase {
	return &AnalysisHistoryUseCase{repo: repo, exporter: exporter}
}

func (uc *AnalysisHistoryUseCase) List(ctx context.Context, filter domain.AnalysisFilter) ([]domain.AnalysisRecord, error) {
	filter.Limit = clampLimit(filter.Limit, defaultHistoryLimit, maxHistoryLimit)
	records, err := uc.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	return records, nil
}

func (uc *AnalysisHistoryUseCase) GetByID(ctx context.Context, id string) (*domain.AnalysisRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get analysis", errors.New("analysis id is required"))
	}
	return uc.repo.GetByID(ctx, id)
}

func (uc *AnalysisHistoryUseCase) ExportXLSX(ctx context.Context, filter domain.AnalysisFilter) ([]byte, error) {
	filter.Limit = clampLimit(filter.Limit, maxExportRows, maxExportRows)
	records, err := uc.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list analyses for export: %w", err)
	}
	data, err := uc.exporter.Export(records)
	if err != nil {
		return nil, fmt.Errorf("export analyses: %w", err)
	}
	return data, nil
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// RecordAnalysisUseCase persists analysis events delivered by the queue.
type RecordAnalysisUseCase struct {
	repo ports.AnalysisRepository
}

func NewRecordAnalysisUseCase(repo ports.AnalysisRepository) *RecordAnalysisUseCase {
	return &RecordAnalysisUseCase{repo: repo}
}

func (uc *RecordAnalysisUseCase) Ingest(ctx context.Context, record domain.AnalysisRecord) error {
	if strings.TrimSpace(record.ID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "ingest analysis", errors.New("analysis id is required"))
	}
	if record.DiseaseID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "ingest analysis", errors.New("disease id is required"))
	}
	if err := uc.repo.Save(ctx, record); err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	return nil
}

// Record lets the use case act as a synchronous recorder when no queue is
// configured.
func (uc *RecordAnalysisUseCase) Record(ctx context.Context, record domain.AnalysisRecord) error {
	return uc.Ingest(ctx, record)
}

// QueueRecorder publishes analysis records for asynchronous persistence.
type QueueRecorder struct {
	queue ports.AnalysisQueue
}

func NewQueueRecorder(queue ports.AnalysisQueue) *QueueRecorder {
	return &QueueRecorder{queue: queue}
}

func (r *QueueRecorder) Record(ctx context.Context, record domain.AnalysisRecord) error {
	if err := r.queue.PublishAnalysis(ctx, record); err != nil {
		return fmt.Errorf("publish analysis event: %w", err)
	}
	return nil
}
