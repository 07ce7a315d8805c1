package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/kirillkom/disclosure-grounding/internal/adapters/mcp"
	"github.com/kirillkom/disclosure-grounding/internal/bootstrap"
	"github.com/kirillkom/disclosure-grounding/internal/config"
	"github.com/kirillkom/disclosure-grounding/internal/observability/logging"
)

const serviceVersion = "0.1.0"

func main() {
	cfg := config.Load()
	// Stdout carries the MCP protocol; route logs to stderr.
	slog.SetDefault(logging.NewStderrJSONLogger("disclosure-mcp", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	srv := mcpadapter.NewServer(serviceVersion, app.Drafter, app.Reviewer, app.Benchmarker)
	if err := srv.ServeStdio(); err != nil {
		log.Fatalf("mcp server error: %v", err)
	}
}
