package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/kirillkom/medical-report-analyzer/internal/config"
	"github.com/kirillkom/medical-report-analyzer/internal/core/domain"
	"github.com/kirillkom/medical-report-analyzer/internal/core/ports"
	"github.com/kirillkom/medical-report-analyzer/internal/observability/metrics"
)

const apiService = "api"

// ModelAvailability reports which diseases have a classifier behind them.
type ModelAvailability interface {
	Loaded() []domain.DiseaseID
}

type RouterOptions struct {
	Metrics *metrics.HTTPServerMetrics
	Logger  *slog.Logger
}

type Router struct {
	cfg      config.Config
	analyzer ports.ReportAnalyzer
	// history is nil when no analysis store is configured.
	history ports.AnalysisHistory
	models  ModelAvailability
	metrics *metrics.HTTPServerMetrics
	logger  *slog.Logger
}

func NewRouter(
	cfg config.Config,
	analyzer ports.ReportAnalyzer,
	history ports.AnalysisHistory,
	models ModelAvailability,
	options RouterOptions,
) *Router {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		cfg:      cfg,
		analyzer: analyzer,
		history:  history,
		models:   models,
		metrics:  options.Metrics,
		logger:   logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /openapi.json", rt.openAPI)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	mux.HandleFunc("POST /predict/upload", rt.uploadReport)
	mux.HandleFunc("POST /v1/reports/analyze", rt.analyzeReport)
	mux.HandleFunc("POST /v1/predict/{disease_id}", rt.predictFromRecord)
	mux.HandleFunc("GET /v1/diseases", rt.listDiseases)

	mux.HandleFunc("GET /v1/analyses", rt.listAnalyses)
	mux.HandleFunc("GET /v1/analyses/export.xlsx", rt.exportAnalyses)
	mux.HandleFunc("GET /v1/analyses/{analysis_id}", rt.getAnalysis)

	var handler http.Handler = mux
	handler = bodyLimitMiddleware(handler, rt.bodyLimit())
	handler = backpressureMiddlewareWithHook(
		handler,
		rt.cfg.APIBackpressureMaxInFlight,
		rt.cfg.APIBackpressureWaitTimeout,
		rt.rejected("backpressure"),
	)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, rt.rejected("rate_limit"))
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(apiService, handler)
	}
	handler = recoverMiddleware(rt.logger, handler)
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

// bodyLimit leaves room for multipart framing around the file itself.
func (rt *Router) bodyLimit() int64 {
	if rt.cfg.MaxUploadBytes <= 0 {
		return 0
	}
	return rt.cfg.MaxUploadBytes + 1<<20
}

func (rt *Router) rejected(reason string) func() {
	if rt.metrics == nil {
		return nil
	}
	return func() { rt.metrics.RecordRejected(reason) }
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) openAPI(w http.ResponseWriter, _ *http.Request) {
	doc, err := OpenAPIDocument()
	if err != nil {
		rt.logger.Error("openapi.load_failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "openapi document unavailable"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
