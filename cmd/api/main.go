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

	httpadapter "github.com/kirillkom/medical-report-analyzer/internal/adapters/http"
	"github.com/kirillkom/medical-report-analyzer/internal/bootstrap"
	"github.com/kirillkom/medical-report-analyzer/internal/config"
	"github.com/kirillkom/medical-report-analyzer/internal/observability/logging"
)

func main() {
	// A missing .env is normal in containers.
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.NewJSONLogger("api", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Service: "api", Logger: logger})
	if err != nil {
		logger.Error("bootstrap error", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	router := httpadapter.NewRouter(cfg, app.AnalyzeUC, app.HistoryUC, app.Models, httpadapter.RouterOptions{
		Metrics: app.Metrics,
		Logger:  logger,
	}).Handler()

	// Uploads run OCR and an LLM call inside the request, so the write
	// timeout has to cover the whole pipeline.
	writeTimeout := cfg.RequestTimeout + 15*time.Second
	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("api listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown error", "error", err)
	}
}
