package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/medical-report-analyzer/internal/core/domain"
	"github.com/kirillkom/medical-report-analyzer/internal/core/ports"
)

const (
	stageStage     = "stage"
	stageExtract   = "extract"
	stageStructure = "structure"
	stageFeatures  = "features"
	stagePredict   = "predict"
)

type AnalyzeOptions struct {
	Recorder ports.AnalysisRecorder
	Metrics  ports.PipelineMetrics
	Logger   *slog.Logger
}

// AnalyzeReportUseCase runs upload -> text -> record -> features ->
// prediction -> verdict. Every request is a single sequential chain; the
// use case holds no per-request state.
type AnalyzeReportUseCase struct {
	stager     ports.DocumentStager
	extractor  ports.TextExtractor
	structurer ports.StructuredExtractor
	registry   ports.ClassifierRegistry

	recorder ports.AnalysisRecorder
	metrics  ports.PipelineMetrics
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

func NewAnalyzeReportUseCase(
	stager ports.DocumentStager,
	extractor ports.TextExtractor,
	structurer ports.StructuredExtractor,
	registry ports.ClassifierRegistry,
	opts AnalyzeOptions,
) *AnalyzeReportUseCase {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyzeReportUseCase{
		stager:     stager,
		extractor:  extractor,
		structurer: structurer,
		registry:   registry,
		recorder:   opts.Recorder,
		metrics:    opts.Metrics,
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

func (uc *AnalyzeReportUseCase) Analyze(
	ctx context.Context,
	filename string,
	diseaseID domain.DiseaseID,
	body io.Reader,
) (result domain.Analysis, err error) {
	start := uc.now()
	id := uc.newID()
	record := domain.AnalysisRecord{
		ID:        id,
		RequestID: domain.RequestIDFromContext(ctx),
		DiseaseID: diseaseID,
		Filename:  sanitizeFilename(filename),
		CreatedAt: start.UTC(),
	}

	defer func() {
		if p := recover(); p != nil {
			result, err = uc.recoverPanic(id, diseaseID, p)
		}
		record.Duration = uc.now().Sub(start)
		uc.finish(ctx, &record, result, err)
	}()

	if strings.TrimSpace(filename) == "" {
		return uc.fail(id, diseaseID, domain.WrapError(domain.ErrInvalidInput, "analyze report", errors.New("filename is required")))
	}
	if diseaseID == "" {
		return uc.fail(id, diseaseID, domain.WrapError(domain.ErrInvalidInput, "analyze report", errors.New("disease id is required")))
	}
	if _, ok := domain.DocumentKindFromName(filename); !ok {
		return uc.fail(id, diseaseID, domain.WrapError(
			domain.ErrUnsupportedFormat,
			"analyze report",
			fmt.Errorf("unsupported file type %q", strings.ToLower(filepath.Ext(filename))),
		))
	}

	path, cleanup, err := uc.stage(ctx, filename, body)
	if err != nil {
		return uc.fail(id, diseaseID, err)
	}
	defer cleanup()

	extraction, err := uc.extract(ctx, path)
	if err != nil {
		return uc.fail(id, diseaseID, err)
	}
	record.Method = extraction.Method
	record.TextChars = len(extraction.Text)

	result, err = uc.runPipeline(ctx, id, diseaseID, extraction.Text)
	result.Method = extraction.Method
	return result, err
}

// AnalyzeText runs the pipeline on text that was extracted elsewhere.
func (uc *AnalyzeReportUseCase) AnalyzeText(ctx context.Context, diseaseID domain.DiseaseID, text string) (result domain.Analysis, err error) {
	id := uc.newID()
	defer func() {
		if p := recover(); p != nil {
			result, err = uc.recoverPanic(id, diseaseID, p)
		}
	}()

	if strings.TrimSpace(text) == "" {
		return uc.fail(id, diseaseID, domain.WrapError(domain.ErrInvalidInput, "analyze text", errors.New("text is required")))
	}
	result, err = uc.runPipeline(ctx, id, diseaseID, text)
	result.Method = domain.ExtractionInline
	return result, err
}

// PredictFromRecord scores a caller-supplied record. Every feature field
// must be present.
func (uc *AnalyzeReportUseCase) PredictFromRecord(
	ctx context.Context,
	diseaseID domain.DiseaseID,
	record domain.StructuredRecord,
) (result domain.Analysis, err error) {
	id := uc.newID()
	defer func() {
		if p := recover(); p != nil {
			result, err = uc.recoverPanic(id, diseaseID, p)
		}
	}()

	startedAt := uc.now()
	vector, err := BuildFeatureVectorStrict(record, diseaseID)
	uc.observe(stageFeatures, startedAt, err)
	if err != nil {
		return uc.fail(id, diseaseID, err)
	}
	return uc.predictAndClassify(ctx, id, diseaseID, vector)
}

func (uc *AnalyzeReportUseCase) runPipeline(ctx context.Context, id string, diseaseID domain.DiseaseID, text string) (domain.Analysis, error) {
	structured, err := uc.structure(ctx, text, diseaseID)
	if err != nil {
		return uc.fail(id, diseaseID, err)
	}
	if structured.IsError() {
		reason := structured.Reason()
		if reason == "" {
			reason = reasonDegraded
		}
		err := domain.WrapError(domain.ErrServiceDegraded, "structure report", errors.New(structured.ErrorMessage()))
		return domain.Analysis{ID: id, Verdict: domain.ErrorVerdict(reason)}, err
	}

	startedAt := uc.now()
	vector, err := BuildFeatureVector(structured, diseaseID)
	uc.observe(stageFeatures, startedAt, err)
	if err != nil {
		return uc.fail(id, diseaseID, err)
	}
	return uc.predictAndClassify(ctx, id, diseaseID, vector)
}

func (uc *AnalyzeReportUseCase) predictAndClassify(ctx context.Context, id string, diseaseID domain.DiseaseID, vector domain.FeatureVector) (domain.Analysis, error) {
	startedAt := uc.now()
	outcome, err := Predict(ctx, uc.registry, vector, diseaseID)
	uc.observe(stagePredict, startedAt, err)
	if err != nil {
		return uc.fail(id, diseaseID, err)
	}

	verdict := ClassifyRisk(outcome, diseaseID)
	if uc.metrics != nil {
		uc.metrics.ObserveVerdict(diseaseID, verdict.RiskLevel)
	}
	return domain.Analysis{ID: id, Verdict: verdict, Outcome: &outcome}, nil
}

func (uc *AnalyzeReportUseCase) stage(ctx context.Context, filename string, body io.Reader) (string, func(), error) {
	startedAt := uc.now()
	path, cleanup, err := uc.stager.Stage(ctx, filename, body)
	uc.observe(stageStage, startedAt, err)
	if err != nil {
		return "", nil, domain.WrapError(domain.ErrInternal, "stage upload", err)
	}
	if cleanup == nil {
		cleanup = func() {}
	}
	return path, cleanup, nil
}

func (uc *AnalyzeReportUseCase) extract(ctx context.Context, path string) (domain.Extraction, error) {
	startedAt := uc.now()
	extraction, err := uc.extractor.Extract(ctx, path)
	uc.observe(stageExtract, startedAt, err)
	if err != nil {
		switch {
		case domain.IsKind(err, domain.ErrUnsupportedFormat),
			domain.IsKind(err, domain.ErrExtractionFailure),
			domain.IsKind(err, domain.ErrTemporary):
			return domain.Extraction{}, err
		case ctx.Err() != nil:
			return domain.Extraction{}, domain.WrapError(domain.ErrTemporary, "extract text", err)
		}
		return domain.Extraction{}, domain.WrapError(domain.ErrExtractionFailure, "extract text", err)
	}
	return extraction, nil
}

func (uc *AnalyzeReportUseCase) structure(ctx context.Context, text string, diseaseID domain.DiseaseID) (domain.StructuredRecord, error) {
	startedAt := uc.now()
	record, err := uc.structurer.Structure(ctx, text, diseaseID)
	uc.observe(stageStructure, startedAt, err)
	if err != nil {
		return nil, domain.WrapError(domain.ErrServiceDegraded, "structure report", err)
	}
	return record, nil
}

func (uc *AnalyzeReportUseCase) fail(id string, diseaseID domain.DiseaseID, err error) (domain.Analysis, error) {
	return domain.Analysis{ID: id, Verdict: domain.ErrorVerdict(ErrorReason(err, diseaseID))}, err
}

func (uc *AnalyzeReportUseCase) recoverPanic(id string, diseaseID domain.DiseaseID, p any) (domain.Analysis, error) {
	uc.logger.Error("analysis.panic",
		"analysis_id", id,
		"disease_id", diseaseID.String(),
		"panic", fmt.Sprint(p),
		"stack", string(debug.Stack()),
	)
	return uc.fail(id, diseaseID, domain.WrapError(domain.ErrInternal, "analyze report", fmt.Errorf("panic: %v", p)))
}

func (uc *AnalyzeReportUseCase) observe(stage string, startedAt time.Time, err error) {
	if uc.metrics == nil {
		return
	}
	uc.metrics.ObserveStage(stage, uc.now().Sub(startedAt), err)
}

func (uc *AnalyzeReportUseCase) finish(ctx context.Context, record *domain.AnalysisRecord, result domain.Analysis, err error) {
	record.RiskLevel = result.Verdict.RiskLevel
	record.Reason = result.Verdict.Reason
	record.Outcome = result.Outcome
	if err != nil {
		record.Error = err.Error()
	}

	attrs := []any{
		"analysis_id", record.ID,
		"disease_id", record.DiseaseID.String(),
		"method", record.Method,
		"text_chars", record.TextChars,
		"risk_level", string(record.RiskLevel),
		"duration_ms", float64(record.Duration.Microseconds()) / 1000.0,
	}
	if err != nil {
		uc.logger.Warn("analysis.failed", append(attrs, "error", err)...)
	} else {
		uc.logger.Info("analysis.completed", attrs...)
	}

	if uc.recorder == nil {
		return
	}
	// The request context may already be cancelled once the client is gone.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if recErr := uc.recorder.Record(recordCtx, *record); recErr != nil {
		uc.logger.Warn("analysis.record_failed", "analysis_id", record.ID, "error", recErr)
	}
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "document.bin"
	}
	return base
}
