package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/disclosure-grounding/internal/adapters/http"
	"github.com/kirillkom/disclosure-grounding/internal/bootstrap"
	"github.com/kirillkom/disclosure-grounding/internal/config"
	"github.com/kirillkom/disclosure-grounding/internal/observability/logging"
	"github.com/kirillkom/disclosure-grounding/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("disclosure-api", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	httpMetrics := metrics.NewHTTPServerMetrics("disclosure-api")
	router := httpadapter.NewRouter(
		app.Drafter,
		app.Reviewer,
		app.Benchmarker,
		app.Ledger,
		app.Exporter,
		httpadapter.Options{
			ServiceName:       "disclosure-api",
			RateLimitRPS:      cfg.APIRateLimitRPS,
			RateLimitBurst:    cfg.APIRateLimitBurst,
			MaxInFlight:       cfg.APIMaxInFlight,
			HTTPServerMetrics: httpMetrics,
		},
	).Handler()

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("api listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("api shutdown error: %v", err)
	}
}
