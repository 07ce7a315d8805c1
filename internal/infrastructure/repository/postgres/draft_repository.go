package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/disclosure-grounding/internal/core/domain"
)

// DraftRepository persists accepted drafts alongside the run that
// produced them.
type DraftRepository struct {
	db *sql.DB
}

func NewDraftRepository(db *sql.DB) *DraftRepository {
	return &DraftRepository{db: db}
}

func (r *DraftRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083102)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS drafts (
	draft_id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	paragraphs JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_drafts_run_id ON drafts(run_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *DraftRepository) SaveDraft(ctx context.Context, draft domain.Draft, runID string) (string, error) {
	paragraphsJSON, err := json.Marshal(draft.Paragraphs)
	if err != nil {
		return "", fmt.Errorf("marshal draft paragraphs: %w", err)
	}

	draftID := draft.DraftID
	if draftID == "" {
		draftID = uuid.NewString()
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO drafts (draft_id, run_id, paragraphs, created_at)
VALUES ($1,$2,$3,$4)
`, draftID, runID, paragraphsJSON, time.Now().UTC())
	if err != nil {
		return "", domain.WrapError(domain.ErrStorageUnavailable, "save draft", err)
	}
	return draftID, nil
}
