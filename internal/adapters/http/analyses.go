package httpadapter

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/kirillkom/medical-report-analyzer/internal/core/domain"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (rt *Router) listAnalyses(w http.ResponseWriter, r *http.Request) {
	if !rt.historyEnabled(w) {
		return
	}
	filter, ok := parseAnalysisFilter(w, r)
	if !ok {
		return
	}

	records, err := rt.history.List(r.Context(), filter)
	if err != nil {
		rt.writeError(w, r, "list analyses", err)
		return
	}
	if records == nil {
		records = []domain.AnalysisRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": records})
}

func (rt *Router) getAnalysis(w http.ResponseWriter, r *http.Request) {
	if !rt.historyEnabled(w) {
		return
	}
	record, err := rt.history.GetByID(r.Context(), r.PathValue("analysis_id"))
	if err != nil {
		rt.writeError(w, r, "get analysis", err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (rt *Router) exportAnalyses(w http.ResponseWriter, r *http.Request) {
	if !rt.historyEnabled(w) {
		return
	}
	filter, ok := parseAnalysisFilter(w, r)
	if !ok {
		return
	}

	data, err := rt.history.ExportXLSX(r.Context(), filter)
	if err != nil {
		rt.writeError(w, r, "export analyses", err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="analyses.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (rt *Router) historyEnabled(w http.ResponseWriter) bool {
	if rt.history != nil {
		return true
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "analysis history is not configured"})
	return false
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		rt.logger.Error("http.handler_failed",
			"request_id", domain.RequestIDFromContext(r.Context()),
			"op", op,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func parseAnalysisFilter(w http.ResponseWriter, r *http.Request) (domain.AnalysisFilter, bool) {
	query := r.URL.Query()
	filter := domain.AnalysisFilter{
		DiseaseID: domain.ParseDiseaseID(query.Get("disease_id")),
	}
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return domain.AnalysisFilter{}, false
		}
		filter.Limit = limit
	}
	return filter, true
}
