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

	"github.com/kirillkom/disclosure-grounding/internal/bootstrap"
	"github.com/kirillkom/disclosure-grounding/internal/config"
	"github.com/kirillkom/disclosure-grounding/internal/core/domain"
	"github.com/kirillkom/disclosure-grounding/internal/observability/logging"
	"github.com/kirillkom/disclosure-grounding/internal/observability/metrics"
)

const serviceName = "disclosure-worker"

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		log.Printf("worker metrics listening on :%s", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("worker metrics server error: %v", err)
		}
	}()

	go sweepStaleRuns(ctx, app, workerMetrics,
		time.Duration(cfg.StaleRunThresholdMin)*time.Minute,
		time.Duration(cfg.SweepIntervalMin)*time.Minute)

	log.Printf("worker subscribed to %s", cfg.NATSSubject)
	err = app.Queue.SubscribeRunClosed(ctx, func(_ context.Context, run domain.Run) error {
		slog.Info("run_closed",
			"run_id", run.RunID,
			"kind", string(run.Kind),
			"outcome", run.Outputs["outcome"],
			"evidence_count", len(run.EvidenceIDs),
		)
		workerMetrics.RecordRunEvent(serviceName, nil)
		return nil
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}

// sweepStaleRuns reports runs that stayed OPEN past the threshold. They
// are crash indicators and are surfaced for operators, never auto-closed.
func sweepStaleRuns(ctx context.Context, app *bootstrap.App, m *metrics.WorkerMetrics, threshold, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		start := time.Now()
		stale, err := app.Ledger.ListStaleOpenRuns(ctx, threshold)
		m.RecordSweep(serviceName, len(stale), time.Since(start), err)
		if err != nil {
			slog.Error("stale_sweep_failed", "error", err)
		} else {
			for _, run := range stale {
				slog.Warn("stale_open_run",
					"run_id", run.RunID,
					"kind", string(run.Kind),
					"started_at", run.StartedAt,
					"open_for", time.Since(run.StartedAt).String(),
				)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
