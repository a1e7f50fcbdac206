// Package mcpadapter exposes the analysis pipeline as MCP tools.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/medical-report-analyzer/internal/core/catalog"
	"github.com/kirillkom/medical-report-analyzer/internal/core/domain"
	"github.com/kirillkom/medical-report-analyzer/internal/core/ports"
)

const (
	toolListDiseases     = "list_diseases"
	toolAnalyzeText      = "analyze_report_text"
	toolPredictFromInput = "predict_from_record"
)

// ModelAvailability reports which diseases have a classifier behind them.
type ModelAvailability interface {
	Loaded() []domain.DiseaseID
}

type Tools struct {
	analyzer ports.ReportAnalyzer
	models   ModelAvailability
}

func NewTools(analyzer ports.ReportAnalyzer, models ModelAvailability) *Tools {
	return &Tools{analyzer: analyzer, models: models}
}

// NewServer registers every tool on a fresh MCP server.
func NewServer(name, version string, tools *Tools) *server.MCPServer {
	s := server.NewMCPServer(name, version, server.WithToolCapabilities(false), server.WithRecovery())
	tools.Register(s)
	return s
}

func (t *Tools) Register(s *server.MCPServer) {
	s.AddTool(mcp.NewTool(toolListDiseases,
		mcp.WithDescription("List supported diseases, their feature fields and whether a model is loaded."),
	), t.listDiseases)

	s.AddTool(mcp.NewTool(toolAnalyzeText,
		mcp.WithDescription("Estimate disease risk from the plain text of a lab report."),
		mcp.WithString("disease_id", mcp.Required(), mcp.Enum(diseaseIDs()...), mcp.Description("Disease to assess.")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Report text, for example OCR output.")),
	), t.analyzeText)

	s.AddTool(mcp.NewTool(toolPredictFromInput,
		mcp.WithDescription("Estimate disease risk from structured report fields. Every feature field must be present."),
		mcp.WithString("disease_id", mcp.Required(), mcp.Enum(diseaseIDs()...), mcp.Description("Disease to assess.")),
		mcp.WithObject("record", mcp.Required(), mcp.Description("Field name to value map as listed by list_diseases.")),
	), t.predictFromRecord)
}

type diseaseInfo struct {
	ID          domain.DiseaseID `json:"id"`
	Title       string           `json:"title"`
	Features    []string         `json:"features"`
	ModelLoaded bool             `json:"model_loaded"`
}

type verdictResult struct {
	AnalysisID string           `json:"analysis_id,omitempty"`
	RiskLevel  domain.RiskLevel `json:"risk_level"`
	Reason     string           `json:"reason"`
	Outcome    *domain.Outcome  `json:"outcome,omitempty"`
}

func (t *Tools) listDiseases(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	loaded := map[domain.DiseaseID]bool{}
	if t.models != nil {
		for _, id := range t.models.Loaded() {
			loaded[id] = true
		}
	}
	specs := catalog.All()
	out := make([]diseaseInfo, 0, len(specs))
	for _, spec := range specs {
		out = append(out, diseaseInfo{
			ID:          spec.ID,
			Title:       spec.Title,
			Features:    spec.FeatureNames(),
			ModelLoaded: loaded[spec.ID],
		})
	}
	return jsonResult(out)
}

func (t *Tools) analyzeText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	diseaseID, err := request.RequireString("disease_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	analysis, err := t.analyzer.AnalyzeText(ctx, domain.ParseDiseaseID(diseaseID), text)
	return verdictOrError(analysis, err)
}

func (t *Tools) predictFromRecord(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	diseaseID, err := request.RequireString("disease_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, ok := request.GetArguments()["record"].(map[string]any)
	if !ok {
		return mcp.NewToolResultError("required argument \"record\" must be an object"), nil
	}

	analysis, err := t.analyzer.PredictFromRecord(ctx, domain.ParseDiseaseID(diseaseID), domain.StructuredRecord(raw))
	return verdictOrError(analysis, err)
}

// verdictOrError reports pipeline failures as tool errors so the calling
// model sees the user-facing reason instead of a protocol failure.
func verdictOrError(analysis domain.Analysis, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		reason := analysis.Verdict.Reason
		if reason == "" {
			reason = err.Error()
		}
		return mcp.NewToolResultError(fmt.Sprintf("%s: %s", domain.RiskError, reason)), nil
	}
	return jsonResult(verdictResult{
		AnalysisID: analysis.ID,
		RiskLevel:  analysis.Verdict.RiskLevel,
		Reason:     analysis.Verdict.Reason,
		Outcome:    analysis.Outcome,
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}

func diseaseIDs() []string {
	ids := catalog.IDs()
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
