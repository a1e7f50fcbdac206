package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/medical-report-analyzer/internal/config"
	"github.com/kirillkom/medical-report-analyzer/internal/core/ports"
	"github.com/kirillkom/medical-report-analyzer/internal/core/usecase"
	"github.com/kirillkom/medical-report-analyzer/internal/infrastructure/export"
	"github.com/kirillkom/medical-report-analyzer/internal/infrastructure/extractor/document"
	"github.com/kirillkom/medical-report-analyzer/internal/infrastructure/llm"
	"github.com/kirillkom/medical-report-analyzer/internal/infrastructure/llm/gemini"
	"github.com/kirillkom/medical-report-analyzer/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/medical-report-analyzer/internal/infrastructure/model"
	"github.com/kirillkom/medical-report-analyzer/internal/infrastructure/queue/nats"
	"github.com/kirillkom/medical-report-analyzer/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/medical-report-analyzer/internal/infrastructure/resilience"
	"github.com/kirillkom/medical-report-analyzer/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/medical-report-analyzer/internal/observability/metrics"
)

type Options struct {
	// Service names the binary in logs, metrics and the NATS connection.
	Service string
	Logger  *slog.Logger
	// RequireStore fails startup when Postgres is not configured.
	RequireStore bool
	// RequireQueue fails startup when NATS is not configured.
	RequireQueue bool
}

type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Metrics *metrics.HTTPServerMetrics

	// Queue and Repo are nil when their backing service is not configured.
	Queue *nats.Queue
	Repo  *postgres.AnalysisRepository

	Models    *model.Registry
	AnalyzeUC ports.ReportAnalyzer
	HistoryUC ports.AnalysisHistory
	RecordUC  ports.AnalysisIngestor

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, options Options) (*App, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	service := options.Service
	if service == "" {
		service = "api"
	}
	if options.RequireStore && cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("POSTGRES_DSN is required for %s", service)
	}
	if options.RequireQueue && cfg.NATSURL == "" {
		return nil, fmt.Errorf("NATS_URL is required for %s", service)
	}

	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	app := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.NewHTTPServerMetrics(service),
	}

	var db *sql.DB
	if cfg.PostgresDSN != "" {
		var err error
		db, err = postgres.OpenDB(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		closers = append(closers, func() { _ = db.Close() })

		repo := postgres.NewAnalysisRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			closeAll()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		app.Repo = repo
		app.HistoryUC = usecase.NewAnalysisHistoryUseCase(repo, export.NewXLSXExporter(logger))
		app.RecordUC = usecase.NewRecordAnalysisUseCase(repo)
	}

	if cfg.NATSURL != "" {
		queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			Name:               "medical-report-analyzer-" + service,
			ResilienceExecutor: newExecutor(5*time.Second, 2, logger),
			Logger:             logger,
		})
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		closers = append(closers, queue.Close)
		app.Queue = queue
	}

	stager, err := localfs.New(cfg.StoragePath, logger)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("init upload staging: %w", err)
	}

	structurer, err := newStructurer(cfg, app.Metrics, logger)
	if err != nil {
		closeAll()
		return nil, err
	}

	app.Models = model.Load(model.Config{
		Dir:       cfg.ModelDir,
		ServerURL: cfg.ModelServerURL,
		Timeout:   cfg.ModelTimeout,
	}, newExecutor(cfg.ModelTimeout, 2, logger), logger)

	extractor := document.NewExtractor(document.Config{
		Pdftoppm:       cfg.PdftoppmPath,
		Tesseract:      cfg.TesseractPath,
		TesseractLang:  cfg.TesseractLang,
		TessdataDir:    cfg.TessdataDir,
		DPI:            cfg.OCRDPI,
		MaxPages:       cfg.OCRMaxPages,
		AllowEmptyText: cfg.OCRAllowEmptyText,
	}, logger)

	app.AnalyzeUC = usecase.NewAnalyzeReportUseCase(stager, extractor, structurer, app.Models, usecase.AnalyzeOptions{
		Recorder: recorderFor(app),
		Metrics:  app.Metrics,
		Logger:   logger,
	})
	app.closeFn = closeAll

	logger.Info("bootstrap.ready",
		"llm_provider", cfg.EffectiveLLMProvider(),
		"models", app.Models.Available(),
		"history", app.Repo != nil,
		"queue", app.Queue != nil,
	)
	return app, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// recorderFor prefers the queue so the API never blocks on Postgres; the
// worker persists what the API publishes.
func recorderFor(app *App) ports.AnalysisRecorder {
	switch {
	case app.Queue != nil:
		return usecase.NewQueueRecorder(app.Queue)
	case app.Repo != nil:
		return usecase.NewRecordAnalysisUseCase(app.Repo)
	default:
		return nil
	}
}

func newStructurer(cfg config.Config, observer llm.Observer, logger *slog.Logger) (*llm.Structurer, error) {
	fixtures, err := llm.LoadFixtures(cfg.LLMFixturesPath)
	if err != nil {
		return nil, fmt.Errorf("load llm fixtures: %w", err)
	}

	var generator llm.Generator
	switch cfg.EffectiveLLMProvider() {
	case "gemini":
		generator = gemini.NewWithOptions(gemini.Config{
			BaseURL: cfg.GeminiBaseURL,
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			Timeout: cfg.LLMTimeout,
		}, gemini.Options{
			ResilienceExecutor: newExecutor(cfg.LLMTimeout, cfg.LLMRetryMaxAttempts, logger),
		})
	case "ollama":
		generator = ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaGenModel, ollama.Options{
			ResilienceExecutor: newExecutor(cfg.LLMTimeout, cfg.LLMRetryMaxAttempts, logger),
			Timeout:            cfg.LLMTimeout,
		})
	default:
		logger.Warn("llm.provider.fixture", "reason", "no structuring provider configured; serving canned records")
	}
	return llm.NewStructurer(generator, fixtures, observer, logger), nil
}

func newExecutor(attemptTimeout time.Duration, maxAttempts int, logger *slog.Logger) *resilience.Executor {
	cfg := resilience.DefaultConfig()
	cfg.AttemptTimeout = attemptTimeout
	cfg.RetryMaxAttempts = maxAttempts
	return resilience.NewExecutorWithLogger(cfg, logger)
}
