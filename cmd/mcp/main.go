package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/medical-report-analyzer/internal/adapters/mcp"
	"github.com/kirillkom/medical-report-analyzer/internal/bootstrap"
	"github.com/kirillkom/medical-report-analyzer/internal/config"
	"github.com/kirillkom/medical-report-analyzer/internal/observability/logging"
)

const version = "1.0.0"

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.NewJSONLoggerTo(os.Stderr, "mcp", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Service: "mcp", Logger: logger})
	if err != nil {
		logger.Error("bootstrap error", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	s := mcpadapter.NewServer("medical-report-analyzer", version, mcpadapter.NewTools(app.AnalyzeUC, app.Models))
	stdio := server.NewStdioServer(s)
	logger.Info("mcp server listening on stdio")
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		logger.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
