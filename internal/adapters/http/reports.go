package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/kirillkom/medical-report-analyzer/internal/core/catalog"
	"github.com/kirillkom/medical-report-analyzer/internal/core/domain"
	"github.com/kirillkom/medical-report-analyzer/internal/core/usecase"
)

const maxMultipartMemory = 8 << 20

type analysisErrorResponse struct {
	Error     string           `json:"error"`
	RiskLevel domain.RiskLevel `json:"risk_level"`
	Reason    string           `json:"reason"`
}

type verdictResponse struct {
	AnalysisID string           `json:"analysis_id,omitempty"`
	RiskLevel  domain.RiskLevel `json:"risk_level"`
	Reason     string           `json:"reason"`
	Method     string           `json:"method,omitempty"`
	Outcome    *domain.Outcome  `json:"outcome,omitempty"`
}

type diseaseResponse struct {
	ID          domain.DiseaseID `json:"id"`
	Title       string           `json:"title"`
	Output      string           `json:"output"`
	Features    []string         `json:"features"`
	ModelLoaded bool             `json:"model_loaded"`
}

func writeAnalysisError(w http.ResponseWriter, status int, message, reason string) {
	writeJSON(w, status, analysisErrorResponse{
		Error:     message,
		RiskLevel: domain.RiskError,
		Reason:    reason,
	})
}

// uploadReport keeps the response shape the web client expects:
// risk_level and reason only.
func (rt *Router) uploadReport(w http.ResponseWriter, r *http.Request) {
	analysis, ok := rt.runUpload(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, verdictResponse{
		RiskLevel: analysis.Verdict.RiskLevel,
		Reason:    analysis.Verdict.Reason,
	})
}

func (rt *Router) analyzeReport(w http.ResponseWriter, r *http.Request) {
	analysis, ok := rt.runUpload(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, verdictResponse{
		AnalysisID: analysis.ID,
		RiskLevel:  analysis.Verdict.RiskLevel,
		Reason:     analysis.Verdict.Reason,
		Method:     analysis.Method,
		Outcome:    analysis.Outcome,
	})
}

// runUpload validates the form, runs the pipeline and writes the error
// response itself when anything fails.
func (rt *Router) runUpload(w http.ResponseWriter, r *http.Request) (domain.Analysis, bool) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeAnalysisError(w, http.StatusRequestEntityTooLarge, "Uploaded file is too large.", "The uploaded file exceeds the allowed size.")
		case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
			writeAnalysisError(w, http.StatusBadRequest, "No file part in the request.", "Please select a file to upload.")
		default:
			writeAnalysisError(w, http.StatusBadRequest, "Malformed multipart request.", "Please select a file to upload.")
		}
		return domain.Analysis{}, false
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		// A file input submitted without a selection arrives as a plain
		// form value rather than a file part.
		if _, present := r.MultipartForm.Value["file"]; present {
			writeAnalysisError(w, http.StatusBadRequest, "No selected file.", "No file selected for upload.")
		} else {
			writeAnalysisError(w, http.StatusBadRequest, "No file part in the request.", "Please select a file to upload.")
		}
		return domain.Analysis{}, false
	}
	defer file.Close()

	if strings.TrimSpace(header.Filename) == "" {
		writeAnalysisError(w, http.StatusBadRequest, "No selected file.", "No file selected for upload.")
		return domain.Analysis{}, false
	}

	diseaseID := domain.ParseDiseaseID(r.FormValue("disease_id"))
	if diseaseID == "" {
		writeAnalysisError(w, http.StatusBadRequest, "Disease ID not provided.", "Disease type not specified for report analysis.")
		return domain.Analysis{}, false
	}

	if rt.analyzer == nil {
		writeAnalysisError(w, http.StatusServiceUnavailable, "Report analysis is not configured.", "A required service is temporarily unavailable. Please try again later.")
		return domain.Analysis{}, false
	}

	ctx, cancel := rt.requestContext(r.Context())
	defer cancel()

	analysis, err := rt.analyzer.Analyze(ctx, header.Filename, diseaseID, file)
	if err != nil {
		rt.writePipelineError(w, analysis, diseaseID, err)
		return domain.Analysis{}, false
	}
	return analysis, true
}

func (rt *Router) predictFromRecord(w http.ResponseWriter, r *http.Request) {
	diseaseID := domain.ParseDiseaseID(r.PathValue("disease_id"))

	var record domain.StructuredRecord
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&record); err != nil || record == nil {
		writeAnalysisError(w, http.StatusBadRequest, "invalid json", "Request body must be a JSON object of report fields.")
		return
	}

	if rt.analyzer == nil {
		writeAnalysisError(w, http.StatusServiceUnavailable, "Prediction is not configured.", "A required service is temporarily unavailable. Please try again later.")
		return
	}

	ctx, cancel := rt.requestContext(r.Context())
	defer cancel()

	analysis, err := rt.analyzer.PredictFromRecord(ctx, diseaseID, record)
	if err != nil {
		rt.writePipelineError(w, analysis, diseaseID, err)
		return
	}
	writeJSON(w, http.StatusOK, verdictResponse{
		AnalysisID: analysis.ID,
		RiskLevel:  analysis.Verdict.RiskLevel,
		Reason:     analysis.Verdict.Reason,
		Outcome:    analysis.Outcome,
	})
}

func (rt *Router) listDiseases(w http.ResponseWriter, _ *http.Request) {
	loaded := map[domain.DiseaseID]bool{}
	if rt.models != nil {
		for _, id := range rt.models.Loaded() {
			loaded[id] = true
		}
	}

	specs := catalog.All()
	out := make([]diseaseResponse, 0, len(specs))
	for _, spec := range specs {
		output := domain.OutcomeProbability.String()
		if spec.Output == catalog.Discrete {
			output = domain.OutcomeClass.String()
		}
		out = append(out, diseaseResponse{
			ID:          spec.ID,
			Title:       spec.Title,
			Output:      output,
			Features:    spec.FeatureNames(),
			ModelLoaded: loaded[spec.ID],
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

func (rt *Router) writePipelineError(w http.ResponseWriter, analysis domain.Analysis, diseaseID domain.DiseaseID, err error) {
	status := mapErrorToHTTPStatus(err)
	reason := analysis.Verdict.Reason
	if reason == "" {
		reason = usecase.ErrorReason(err, diseaseID)
	}
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "Internal server error during report analysis: " + message
	}
	writeAnalysisError(w, status, message, reason)
}

func (rt *Router) requestContext(parent context.Context) (context.Context, context.CancelFunc) {
	if rt.cfg.RequestTimeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, rt.cfg.RequestTimeout)
}
