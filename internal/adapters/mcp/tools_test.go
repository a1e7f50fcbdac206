package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/medical-report-analyzer/internal/core/domain"
	"github.com/kirillkom/medical-report-analyzer/internal/core/usecase"
)

type analyzerFake struct {
	err        error
	gotText    string
	gotRecord  domain.StructuredRecord
	gotDisease domain.DiseaseID
}

func (f *analyzerFake) Analyze(context.Context, string, domain.DiseaseID, io.Reader) (domain.Analysis, error) {
	return domain.Analysis{}, errors.New("not used")
}

func (f *analyzerFake) AnalyzeText(_ context.Context, diseaseID domain.DiseaseID, text string) (domain.Analysis, error) {
	f.gotDisease = diseaseID
	f.gotText = text
	return f.result(diseaseID)
}

func (f *analyzerFake) PredictFromRecord(_ context.Context, diseaseID domain.DiseaseID, record domain.StructuredRecord) (domain.Analysis, error) {
	f.gotDisease = diseaseID
	f.gotRecord = record
	return f.result(diseaseID)
}

func (f *analyzerFake) result(diseaseID domain.DiseaseID) (domain.Analysis, error) {
	if f.err != nil {
		return domain.Analysis{Verdict: domain.ErrorVerdict(usecase.ErrorReason(f.err, diseaseID))}, f.err
	}
	return domain.Analysis{
		ID:      "an-1",
		Verdict: domain.RiskVerdict{RiskLevel: domain.RiskMedium, Reason: "moderate"},
	}, nil
}

type modelsFake []domain.DiseaseID

func (m modelsFake) Loaded() []domain.DiseaseID { return m }

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatalf("empty tool result")
	}
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	default:
		t.Fatalf("unexpected content type %T", res.Content[0])
		return ""
	}
}

func TestAnalyzeTextReturnsVerdict(t *testing.T) {
	fake := &analyzerFake{}
	tools := NewTools(fake, nil)

	res, err := tools.analyzeText(context.Background(), callRequest(toolAnalyzeText, map[string]any{
		"disease_id": "heartDisease",
		"text":       "Cholesterol 240 mg/dL",
	}))
	if err != nil {
		t.Fatalf("analyzeText() error = %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	var out verdictResult
	if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if out.RiskLevel != domain.RiskMedium || out.AnalysisID != "an-1" {
		t.Fatalf("unexpected result: %+v", out)
	}
	if fake.gotDisease != domain.DiseaseHeart || fake.gotText != "Cholesterol 240 mg/dL" {
		t.Fatalf("unexpected analyzer input: %q %q", fake.gotDisease, fake.gotText)
	}
}

func TestAnalyzeTextRequiresArguments(t *testing.T) {
	tools := NewTools(&analyzerFake{}, nil)

	res, err := tools.analyzeText(context.Background(), callRequest(toolAnalyzeText, map[string]any{
		"disease_id": "diabetes",
	}))
	if err != nil {
		t.Fatalf("analyzeText() error = %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected tool error for missing text")
	}
}

func TestPredictFromRecordSurfacesReason(t *testing.T) {
	fake := &analyzerFake{err: domain.WrapError(domain.ErrModelUnavailable, "predict", errors.New("ckd"))}
	tools := NewTools(fake, nil)

	res, err := tools.predictFromRecord(context.Background(), callRequest(toolPredictFromInput, map[string]any{
		"disease_id": "ckd",
		"record":     map[string]any{"age": 61.0},
	}))
	if err != nil {
		t.Fatalf("predictFromRecord() error = %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected tool error")
	}
	if text := resultText(t, res); !strings.Contains(text, "ML model for ckd is not loaded") {
		t.Fatalf("unexpected error text: %s", text)
	}
	if fake.gotRecord["age"] != 61.0 {
		t.Fatalf("record not forwarded: %+v", fake.gotRecord)
	}
}

func TestPredictFromRecordRejectsNonObject(t *testing.T) {
	tools := NewTools(&analyzerFake{}, nil)

	res, err := tools.predictFromRecord(context.Background(), callRequest(toolPredictFromInput, map[string]any{
		"disease_id": "ckd",
		"record":     "age=61",
	}))
	if err != nil {
		t.Fatalf("predictFromRecord() error = %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected tool error for non-object record")
	}
}

func TestListDiseases(t *testing.T) {
	tools := NewTools(&analyzerFake{}, modelsFake{domain.DiseaseCancer})

	res, err := tools.listDiseases(context.Background(), callRequest(toolListDiseases, nil))
	if err != nil {
		t.Fatalf("listDiseases() error = %v", err)
	}
	var out []diseaseInfo
	if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(out) != 7 {
		t.Fatalf("expected 7 diseases, got %d", len(out))
	}
	for _, d := range out {
		if d.ModelLoaded != (d.ID == domain.DiseaseCancer) {
			t.Fatalf("unexpected availability for %s", d.ID)
		}
	}
}

func TestNewServerRegistersTools(t *testing.T) {
	s := NewServer("medical-report-analyzer", "test", NewTools(&analyzerFake{}, nil))
	if s == nil {
		t.Fatalf("expected server")
	}
}
