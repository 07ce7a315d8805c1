package nats

import (
	"context"
	"log/slog"
	"time"

	"github.com/kirillkom/disclosure-grounding/internal/core/ports"
)

// PublishingLedger decorates an audit ledger so every successful close
// also announces the run on the event subject. The ledger write is the
// record; a failed publish downgrades to a warning.
type PublishingLedger struct {
	ports.AuditLedger
	publisher ports.RunEventPublisher
}

func NewPublishingLedger(ledger ports.AuditLedger, publisher ports.RunEventPublisher) *PublishingLedger {
	return &PublishingLedger{AuditLedger: ledger, publisher: publisher}
}

func (l *PublishingLedger) EndRun(ctx context.Context, runID string, outputs map[string]string) error {
	if err := l.AuditLedger.EndRun(ctx, runID, outputs); err != nil {
		return err
	}

	// The run may close while the request context is being torn down.
	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	run, err := l.AuditLedger.GetRun(publishCtx, runID)
	if err != nil {
		slog.Warn("run_event_load_failed", "run_id", runID, "error", err)
		return nil
	}
	if err := l.publisher.PublishRunClosed(publishCtx, *run); err != nil {
		slog.Warn("run_event_publish_failed", "run_id", runID, "error", err)
	}
	return nil
}
