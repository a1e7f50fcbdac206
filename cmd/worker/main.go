package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kirillkom/medical-report-analyzer/internal/bootstrap"
	"github.com/kirillkom/medical-report-analyzer/internal/config"
	"github.com/kirillkom/medical-report-analyzer/internal/core/domain"
	"github.com/kirillkom/medical-report-analyzer/internal/observability/logging"
	"github.com/kirillkom/medical-report-analyzer/internal/observability/metrics"
)

const workerService = "worker"

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.NewJSONLogger(workerService, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Service:      workerService,
		Logger:       logger,
		RequireStore: true,
		RequireQueue: true,
	})
	if err != nil {
		logger.Error("bootstrap error", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(workerService)
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("worker metrics listening", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeAnalyses(ctx, func(handlerCtx context.Context, record domain.AnalysisRecord) error {
		workerMetrics.StartAnalysis()
		start := time.Now()
		if !record.CreatedAt.IsZero() {
			workerMetrics.ObserveQueueLag(workerService, start.Sub(record.CreatedAt))
		}

		ingestCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Second)
		defer cancel()
		err := app.RecordUC.Ingest(ingestCtx, record)
		workerMetrics.FinishAnalysis(workerService, time.Since(start), err)
		return err
	})
	if err != nil {
		logger.Error("worker subscribe error", "error", err)
		os.Exit(1)
	}
}
