package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kirillkom/medical-report-analyzer/internal/config"
	"github.com/kirillkom/medical-report-analyzer/internal/core/domain"
	"github.com/kirillkom/medical-report-analyzer/internal/core/usecase"
)

type analyzerFake struct {
	err      error
	analysis domain.Analysis

	gotFilename string
	gotDisease  domain.DiseaseID
	gotBody     string
	gotRecord   domain.StructuredRecord
}

func (f *analyzerFake) Analyze(_ context.Context, filename string, diseaseID domain.DiseaseID, body io.Reader) (domain.Analysis, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return domain.Analysis{}, err
	}
	f.gotFilename = filename
	f.gotDisease = diseaseID
	f.gotBody = string(raw)
	return f.result(diseaseID)
}

func (f *analyzerFake) AnalyzeText(_ context.Context, diseaseID domain.DiseaseID, _ string) (domain.Analysis, error) {
	return f.result(diseaseID)
}

func (f *analyzerFake) PredictFromRecord(_ context.Context, diseaseID domain.DiseaseID, record domain.StructuredRecord) (domain.Analysis, error) {
	f.gotDisease = diseaseID
	f.gotRecord = record
	return f.result(diseaseID)
}

func (f *analyzerFake) result(diseaseID domain.DiseaseID) (domain.Analysis, error) {
	if f.err != nil {
		return domain.Analysis{ID: "an-1", Verdict: domain.ErrorVerdict(usecase.ErrorReason(f.err, diseaseID))}, f.err
	}
	return f.analysis, nil
}

type historyFake struct {
	err       error
	records   []domain.AnalysisRecord
	gotFilter domain.AnalysisFilter
}

func (f *historyFake) List(_ context.Context, filter domain.AnalysisFilter) ([]domain.AnalysisRecord, error) {
	f.gotFilter = filter
	return f.records, f.err
}

func (f *historyFake) GetByID(_ context.Context, id string) (*domain.AnalysisRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.records {
		if f.records[i].ID == id {
			return &f.records[i], nil
		}
	}
	return nil, domain.WrapError(domain.ErrAnalysisNotFound, "get analysis", fmt.Errorf("id=%s", id))
}

func (f *historyFake) ExportXLSX(_ context.Context, filter domain.AnalysisFilter) ([]byte, error) {
	f.gotFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	return []byte("PK-xlsx"), nil
}

func TestMapErrorToHTTPStatus(t *testing.T) {
	cases := []struct {
		kind error
		want int
	}{
		{domain.ErrInvalidInput, http.StatusBadRequest},
		{domain.ErrUnsupportedFormat, http.StatusBadRequest},
		{domain.ErrExtractionFailure, http.StatusBadRequest},
		{domain.ErrUnknownDisease, http.StatusBadRequest},
		{domain.ErrAnalysisNotFound, http.StatusNotFound},
		{domain.ErrModelUnavailable, http.StatusServiceUnavailable},
		{domain.ErrTemporary, http.StatusServiceUnavailable},
		{domain.ErrServiceDegraded, http.StatusInternalServerError},
		{domain.ErrPredictionFormat, http.StatusInternalServerError},
		{domain.ErrInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		err := domain.WrapError(tc.kind, "op", errors.New("cause"))
		if got := mapErrorToHTTPStatus(err); got != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.kind, tc.want, got)
		}
	}
}

func TestPredictFromRecordMapsUnknownDiseaseTo400(t *testing.T) {
	err := domain.WrapError(domain.ErrFeatureBuild, "build features", fmt.Errorf("%w: %q", domain.ErrUnknownDisease, "flu"))
	handler := NewRouter(config.Config{}, &analyzerFake{err: err}, nil, nil, RouterOptions{}).Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/predict/flu", bytes.NewBufferString(`{"age": 40}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["risk_level"] != "Error" {
		t.Fatalf("unexpected risk_level: %+v", body)
	}
	want := "Could not extract relevant features for flu from the report data. Please ensure the report contains the necessary information."
	if body["reason"] != want {
		t.Fatalf("unexpected reason: %v", body["reason"])
	}
}

func TestPredictFromRecordModelUnavailableReturns503(t *testing.T) {
	err := domain.WrapError(domain.ErrModelUnavailable, "predict", errors.New("diabetes"))
	handler := NewRouter(config.Config{}, &analyzerFake{err: err}, nil, nil, RouterOptions{}).Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/predict/diabetes", bytes.NewBufferString(`{}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
}

func TestPredictFromRecordRejectsInvalidJSON(t *testing.T) {
	handler := NewRouter(config.Config{}, &analyzerFake{}, nil, nil, RouterOptions{}).Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/predict/diabetes", bytes.NewBufferString(`[1,2]`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestPredictFromRecordSuccess(t *testing.T) {
	outcome := domain.ProbabilityOutcome(0.2)
	fake := &analyzerFake{analysis: domain.Analysis{
		ID:      "an-7",
		Verdict: domain.RiskVerdict{RiskLevel: domain.RiskLow, Reason: "low"},
		Outcome: &outcome,
	}}
	handler := NewRouter(config.Config{}, fake, nil, nil, RouterOptions{}).Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/predict/diabetes", bytes.NewBufferString(`{"glucose": 120.5}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if fake.gotDisease != domain.DiseaseDiabetes {
		t.Fatalf("unexpected disease: %q", fake.gotDisease)
	}
	if n, ok := fake.gotRecord["glucose"].(json.Number); !ok || n.String() != "120.5" {
		t.Fatalf("expected glucose decoded as json.Number, got %#v", fake.gotRecord["glucose"])
	}
	var body map[string]any
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["analysis_id"] != "an-7" || body["risk_level"] != "Low" {
		t.Fatalf("unexpected response: %+v", body)
	}
}

func TestGetAnalysisReturns404ForNotFound(t *testing.T) {
	handler := NewRouter(config.Config{}, &analyzerFake{}, &historyFake{}, nil, RouterOptions{}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/analyses/missing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestHistoryRoutesReturn503WithoutStore(t *testing.T) {
	handler := NewRouter(config.Config{}, &analyzerFake{}, nil, nil, RouterOptions{}).Handler()

	for _, path := range []string{"/v1/analyses", "/v1/analyses/a-1", "/v1/analyses/export.xlsx"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		if res.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s: expected 503, got %d", path, res.Code)
		}
	}
}

func TestListAnalysesRejectsBadLimit(t *testing.T) {
	handler := NewRouter(config.Config{}, &analyzerFake{}, &historyFake{}, nil, RouterOptions{}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/analyses?limit=abc", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestListAnalysesStoreFailureReturns500(t *testing.T) {
	history := &historyFake{err: errors.New("connection refused")}
	handler := NewRouter(config.Config{}, &analyzerFake{}, history, nil, RouterOptions{}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/analyses", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.Code)
	}
}
