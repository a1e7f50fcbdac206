package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/medical-report-analyzer/internal/core/domain"
)

type stagerFake struct {
	body     string
	cleanups int
	err      error
}

func (f *stagerFake) Stage(_ context.Context, filename string, body io.Reader) (string, func(), error) {
	if f.err != nil {
		return "", nil, f.err
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", nil, err
	}
	f.body = string(raw)
	return "/tmp/staged-" + filename, func() { f.cleanups++ }, nil
}

type extractorFake struct {
	extraction domain.Extraction
	err        error
	panicWith  any
	path       string
}

func (f *extractorFake) Extract(_ context.Context, path string) (domain.Extraction, error) {
	f.path = path
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	return f.extraction, f.err
}

type structurerFake struct {
	record domain.StructuredRecord
	err    error
	text   string
}

func (f *structurerFake) Structure(_ context.Context, text string, _ domain.DiseaseID) (domain.StructuredRecord, error) {
	f.text = text
	return f.record, f.err
}

type recorderFake struct {
	mu      sync.Mutex
	records []domain.AnalysisRecord
	err     error
}

func (f *recorderFake) Record(_ context.Context, record domain.AnalysisRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, record)
	return f.err
}

type metricsFake struct {
	stages   []string
	verdicts []domain.RiskLevel
}

func (f *metricsFake) ObserveStage(stage string, _ time.Duration, _ error) {
	f.stages = append(f.stages, stage)
}

func (f *metricsFake) ObserveVerdict(_ domain.DiseaseID, level domain.RiskLevel) {
	f.verdicts = append(f.verdicts, level)
}

type analyzeFixture struct {
	stager     *stagerFake
	extractor  *extractorFake
	structurer *structurerFake
	registry   registryFake
	recorder   *recorderFake
	metrics    *metricsFake
	uc         *AnalyzeReportUseCase
}

func newAnalyzeFixture() *analyzeFixture {
	f := &analyzeFixture{
		stager: &stagerFake{},
		extractor: &extractorFake{extraction: domain.Extraction{
			Text:   "Glucose: 120 mg/dL",
			Method: domain.ExtractionPDFText,
			Pages:  1,
		}},
		structurer: &structurerFake{record: domain.StructuredRecord{"disease": "diabetes", "glucose": 120.0}},
		registry: registryFake{
			domain.DiseaseDiabetes: &probabilityFake{probs: []float64{0.18, 0.82}, size: 8},
		},
		recorder: &recorderFake{},
		metrics:  &metricsFake{},
	}
	f.uc = NewAnalyzeReportUseCase(f.stager, f.extractor, f.structurer, f.registry, AnalyzeOptions{
		Recorder: f.recorder,
		Metrics:  f.metrics,
	})
	f.uc.newID = func() string { return "analysis-1" }
	return f
}

func TestAnalyzeHighRiskDiabetesReport(t *testing.T) {
	f := newAnalyzeFixture()

	result, err := f.uc.Analyze(context.Background(), "report.pdf", domain.DiseaseDiabetes, strings.NewReader("%PDF"))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if result.Verdict.RiskLevel != domain.RiskHigh {
		t.Fatalf("expected High, got %+v", result.Verdict)
	}
	if result.Outcome == nil || result.Outcome.Probability != 0.82 {
		t.Fatalf("expected probability outcome, got %+v", result.Outcome)
	}
	if result.Method != domain.ExtractionPDFText || result.ID != "analysis-1" {
		t.Fatalf("unexpected result metadata %+v", result)
	}
	if f.stager.body != "%PDF" || f.extractor.path != "/tmp/staged-report.pdf" {
		t.Fatalf("upload not staged before extraction: body=%q path=%q", f.stager.body, f.extractor.path)
	}
	if f.structurer.text != "Glucose: 120 mg/dL" {
		t.Fatalf("structurer got %q", f.structurer.text)
	}
	if f.stager.cleanups != 1 {
		t.Fatalf("expected staged file cleanup, got %d", f.stager.cleanups)
	}
	if len(f.recorder.records) != 1 {
		t.Fatalf("expected one audit record, got %d", len(f.recorder.records))
	}
	rec := f.recorder.records[0]
	if rec.RiskLevel != domain.RiskHigh || rec.Method != domain.ExtractionPDFText || rec.TextChars != 18 || rec.Error != "" {
		t.Fatalf("unexpected audit record %+v", rec)
	}
	if len(f.metrics.verdicts) != 1 || f.metrics.verdicts[0] != domain.RiskHigh {
		t.Fatalf("expected verdict metric, got %v", f.metrics.verdicts)
	}
}

func TestAnalyzeRejectsUnsupportedFormat(t *testing.T) {
	f := newAnalyzeFixture()

	result, err := f.uc.Analyze(context.Background(), "notes.txt", domain.DiseaseDiabetes, strings.NewReader("hello"))
	if !domain.IsKind(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format, got %v", err)
	}
	if result.Verdict.RiskLevel != domain.RiskError || !strings.HasPrefix(result.Verdict.Reason, "File processing error:") {
		t.Fatalf("unexpected verdict %+v", result.Verdict)
	}
	if f.stager.body != "" {
		t.Fatalf("unsupported upload must not be staged")
	}
	if len(f.recorder.records) != 1 || f.recorder.records[0].RiskLevel != domain.RiskError {
		t.Fatalf("expected failed analysis to be recorded, got %+v", f.recorder.records)
	}
}

func TestAnalyzeExtractionFailureCleansUp(t *testing.T) {
	f := newAnalyzeFixture()
	f.extractor.err = domain.WrapError(domain.ErrExtractionFailure, "extract pdf", errors.New("no text could be extracted"))

	result, err := f.uc.Analyze(context.Background(), "scan.png", domain.DiseaseDiabetes, strings.NewReader("png"))
	if !domain.IsKind(err, domain.ErrExtractionFailure) {
		t.Fatalf("expected extraction failure, got %v", err)
	}
	if result.Verdict.Reason != "File processing error: no text could be extracted" {
		t.Fatalf("unexpected reason %q", result.Verdict.Reason)
	}
	if f.stager.cleanups != 1 {
		t.Fatalf("expected cleanup after failure, got %d", f.stager.cleanups)
	}
}

func TestAnalyzeInterruptedExtractionIsTemporary(t *testing.T) {
	f := newAnalyzeFixture()
	f.extractor.err = errors.New("rasterize pdf: signal: killed")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.uc.Analyze(ctx, "scan.pdf", domain.DiseaseDiabetes, strings.NewReader("%PDF"))
	if domain.IsKind(err, domain.ErrExtractionFailure) {
		t.Fatalf("canceled request must not be reported as a document failure: %v", err)
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary failure, got %v", err)
	}
	if f.stager.cleanups != 1 {
		t.Fatalf("expected cleanup after failure, got %d", f.stager.cleanups)
	}
}

func TestAnalyzeSurfacesErrorRecord(t *testing.T) {
	f := newAnalyzeFixture()
	f.structurer.record = domain.NewErrorRecord(domain.DiseaseDiabetes, "Gemini API call failed: dial tcp: timeout", "AI analysis failed due to an issue with the Gemini API. Please check your API key and network.")
	model := f.registry[domain.DiseaseDiabetes].(*probabilityFake)

	result, err := f.uc.Analyze(context.Background(), "report.pdf", domain.DiseaseDiabetes, strings.NewReader("%PDF"))
	if !domain.IsKind(err, domain.ErrServiceDegraded) {
		t.Fatalf("expected degraded error, got %v", err)
	}
	if result.Verdict.RiskLevel != domain.RiskError || !strings.Contains(result.Verdict.Reason, "Gemini API") {
		t.Fatalf("unexpected verdict %+v", result.Verdict)
	}
	if model.probCalls != 0 {
		t.Fatalf("classifier must not run on an error record")
	}
}

func TestAnalyzeUnknownDisease(t *testing.T) {
	f := newAnalyzeFixture()
	f.structurer.record = domain.StructuredRecord{"disease": "flu"}

	result, err := f.uc.Analyze(context.Background(), "report.pdf", "flu", strings.NewReader("%PDF"))
	if !domain.IsKind(err, domain.ErrUnknownDisease) {
		t.Fatalf("expected unknown disease, got %v", err)
	}
	if !strings.HasPrefix(result.Verdict.Reason, "Could not extract relevant features for flu") {
		t.Fatalf("unexpected reason %q", result.Verdict.Reason)
	}
}

func TestAnalyzeMissingModel(t *testing.T) {
	f := newAnalyzeFixture()
	f.structurer.record = domain.StructuredRecord{"disease": "ckd"}

	result, err := f.uc.Analyze(context.Background(), "report.jpeg", domain.DiseaseCKD, strings.NewReader("jpg"))
	if !domain.IsKind(err, domain.ErrModelUnavailable) {
		t.Fatalf("expected model unavailable, got %v", err)
	}
	if !strings.HasPrefix(result.Verdict.Reason, "ML model for ckd is not loaded") {
		t.Fatalf("unexpected reason %q", result.Verdict.Reason)
	}
}

func TestAnalyzeRecoversFromPanic(t *testing.T) {
	f := newAnalyzeFixture()
	f.extractor.panicWith = "nil map"

	result, err := f.uc.Analyze(context.Background(), "report.pdf", domain.DiseaseDiabetes, strings.NewReader("%PDF"))
	if !domain.IsKind(err, domain.ErrInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
	if result.Verdict.RiskLevel != domain.RiskError || result.Verdict.Reason != reasonInternal {
		t.Fatalf("unexpected verdict %+v", result.Verdict)
	}
	if f.stager.cleanups != 1 {
		t.Fatalf("expected cleanup after panic, got %d", f.stager.cleanups)
	}
	if len(f.recorder.records) != 1 {
		t.Fatalf("expected panic to be recorded")
	}
}

func TestAnalyzeIgnoresRecorderFailure(t *testing.T) {
	f := newAnalyzeFixture()
	f.recorder.err = errors.New("queue down")

	result, err := f.uc.Analyze(context.Background(), "report.pdf", domain.DiseaseDiabetes, strings.NewReader("%PDF"))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if result.Verdict.RiskLevel != domain.RiskHigh {
		t.Fatalf("unexpected verdict %+v", result.Verdict)
	}
}

func TestAnalyzeRecordsRequestID(t *testing.T) {
	f := newAnalyzeFixture()
	ctx := domain.ContextWithRequestID(context.Background(), "req-9")

	if _, err := f.uc.Analyze(ctx, "report.pdf", domain.DiseaseDiabetes, strings.NewReader("%PDF")); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(f.recorder.records) != 1 || f.recorder.records[0].RequestID != "req-9" {
		t.Fatalf("expected request id on audit record, got %+v", f.recorder.records)
	}
}

func TestAnalyzeTextRequiresText(t *testing.T) {
	f := newAnalyzeFixture()

	_, err := f.uc.AnalyzeText(context.Background(), domain.DiseaseDiabetes, "   ")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestAnalyzeTextThyroid(t *testing.T) {
	f := newAnalyzeFixture()
	f.registry[domain.DiseaseThyroid] = &classOnlyFake{class: 2}
	f.structurer.record = domain.StructuredRecord{"disease": "thyroidDisease", "TSH": 0.01}

	result, err := f.uc.AnalyzeText(context.Background(), domain.DiseaseThyroid, "TSH 0.01")
	if err != nil {
		t.Fatalf("AnalyzeText() error = %v", err)
	}
	if result.Verdict.RiskLevel != domain.RiskHigh || !strings.Contains(result.Verdict.Reason, "Hyperthyroid") {
		t.Fatalf("unexpected verdict %+v", result.Verdict)
	}
	if result.Method != domain.ExtractionInline {
		t.Fatalf("expected inline method, got %q", result.Method)
	}
	if len(f.recorder.records) != 0 {
		t.Fatalf("text analysis must not write upload audit records")
	}
}

func TestPredictFromRecordStrict(t *testing.T) {
	f := newAnalyzeFixture()

	_, err := f.uc.PredictFromRecord(context.Background(), domain.DiseaseDiabetes, domain.StructuredRecord{"glucose": 120.0})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}

	record := domain.StructuredRecord{
		"pregnancies": 1.0, "glucose": 90.0, "blood_pressure": 70.0, "skin_thickness": 20.0,
		"insulin": 80.0, "bmi": 22.0, "diabetes_pedigree_function": 0.2, "age": 25.0,
	}
	f.registry[domain.DiseaseDiabetes] = &probabilityFake{probs: []float64{0.9, 0.1}}
	result, err := f.uc.PredictFromRecord(context.Background(), domain.DiseaseDiabetes, record)
	if err != nil {
		t.Fatalf("PredictFromRecord() error = %v", err)
	}
	if result.Verdict.RiskLevel != domain.RiskLow {
		t.Fatalf("expected Low, got %+v", result.Verdict)
	}
}
