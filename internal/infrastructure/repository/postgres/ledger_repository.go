package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/disclosure-grounding/internal/core/domain"
)

// LedgerRepository is the durable audit ledger. Runs are append-only
// records: once closed a row never changes again, and evidence appends
// are a set union guarded by the primary key.
type LedgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *LedgerRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	status TEXT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	ended_at TIMESTAMPTZ,
	inputs JSONB NOT NULL DEFAULT '{}'::jsonb,
	outputs JSONB
);

CREATE TABLE IF NOT EXISTS run_evidence (
	run_id TEXT NOT NULL REFERENCES runs(run_id),
	chunk_id TEXT NOT NULL,
	PRIMARY KEY (run_id, chunk_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *LedgerRepository) StartRun(ctx context.Context, kind domain.RunKind, inputs map[string]string) (string, error) {
	if !domain.ValidRunKind(kind) {
		return "", domain.WrapError(domain.ErrInvalidArgument, "start run", fmt.Errorf("unknown run kind %q", kind))
	}
	inputsJSON, err := json.Marshal(domain.CopyStringMap(inputs))
	if err != nil {
		return "", fmt.Errorf("marshal run inputs: %w", err)
	}

	runID := uuid.NewString()
	_, err = r.db.ExecContext(ctx, `
INSERT INTO runs (run_id, kind, status, started_at, inputs)
VALUES ($1,$2,$3,$4,$5)
`, runID, string(kind), string(domain.RunOpen), time.Now().UTC(), inputsJSON)
	if err != nil {
		return "", domain.WrapError(domain.ErrStorageUnavailable, "start run", err)
	}
	return runID, nil
}

func (r *LedgerRepository) AppendEvidence(ctx context.Context, runID string, chunkIDs ...string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.WrapError(domain.ErrStorageUnavailable, "append evidence", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM runs WHERE run_id = $1 FOR UPDATE`, runID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.WrapError(domain.ErrRunNotFound, "append evidence", fmt.Errorf("run %s", runID))
		}
		return domain.WrapError(domain.ErrStorageUnavailable, "append evidence", err)
	}
	if domain.RunStatus(status) != domain.RunOpen {
		return domain.WrapError(domain.ErrInvalidState, "append evidence", fmt.Errorf("run %s is %s", runID, status))
	}

	for _, chunkID := range chunkIDs {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO run_evidence (run_id, chunk_id)
VALUES ($1,$2)
ON CONFLICT (run_id, chunk_id) DO NOTHING
`, runID, chunkID); err != nil {
			return domain.WrapError(domain.ErrStorageUnavailable, "append evidence", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.WrapError(domain.ErrStorageUnavailable, "append evidence", err)
	}
	return nil
}

// EndRun is the single OPEN->CLOSED transition. The status predicate in
// the UPDATE is the compare-and-set guard: a concurrent or repeated close
// matches zero rows and is reported as an invalid state, never a race.
func (r *LedgerRepository) EndRun(ctx context.Context, runID string, outputs map[string]string) error {
	outputsJSON, err := json.Marshal(domain.CopyStringMap(outputs))
	if err != nil {
		return fmt.Errorf("marshal run outputs: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
UPDATE runs
SET status = $2, ended_at = $3, outputs = $4
WHERE run_id = $1 AND status = $5
`, runID, string(domain.RunClosed), time.Now().UTC(), outputsJSON, string(domain.RunOpen))
	if err != nil {
		return domain.WrapError(domain.ErrStorageUnavailable, "end run", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return domain.WrapError(domain.ErrStorageUnavailable, "end run", err)
	}
	if rows == 1 {
		return nil
	}

	var status string
	err = r.db.QueryRowContext(ctx, `SELECT status FROM runs WHERE run_id = $1`, runID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Closing a run that was never opened is a state error, same
			// as a double close. Keep the not-found sentinel nested so
			// callers can still tell the two apart.
			return domain.WrapError(domain.ErrInvalidState, "end run", fmt.Errorf("%w: run %s", domain.ErrRunNotFound, runID))
		}
		return domain.WrapError(domain.ErrStorageUnavailable, "end run", err)
	}
	return domain.WrapError(domain.ErrInvalidState, "end run", fmt.Errorf("run %s is already %s", runID, status))
}

func (r *LedgerRepository) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT run_id, kind, status, started_at, ended_at, inputs, outputs
FROM runs
WHERE run_id = $1
`, runID)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrRunNotFound, "get run", fmt.Errorf("run %s", runID))
		}
		return nil, domain.WrapError(domain.ErrStorageUnavailable, "get run", err)
	}

	if err := r.loadEvidence(ctx, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *LedgerRepository) ListRuns(ctx context.Context, from, to time.Time) ([]domain.Run, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT run_id, kind, status, started_at, ended_at, inputs, outputs
FROM runs
WHERE started_at >= $1 AND started_at < $2
ORDER BY started_at DESC
`, from.UTC(), to.UTC())
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorageUnavailable, "list runs", err)
	}
	return r.collectRuns(ctx, rows, "list runs")
}

func (r *LedgerRepository) ListStaleOpenRuns(ctx context.Context, olderThan time.Duration) ([]domain.Run, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	rows, err := r.db.QueryContext(ctx, `
SELECT run_id, kind, status, started_at, ended_at, inputs, outputs
FROM runs
WHERE status = $1 AND started_at < $2
ORDER BY started_at ASC
`, string(domain.RunOpen), cutoff)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorageUnavailable, "list stale runs", err)
	}
	return r.collectRuns(ctx, rows, "list stale runs")
}

func (r *LedgerRepository) collectRuns(ctx context.Context, rows *sql.Rows, op string) ([]domain.Run, error) {
	defer rows.Close()

	out := make([]domain.Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, domain.WrapError(domain.ErrStorageUnavailable, op, err)
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrStorageUnavailable, op, err)
	}

	for i := range out {
		if err := r.loadEvidence(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *LedgerRepository) loadEvidence(ctx context.Context, run *domain.Run) error {
	rows, err := r.db.QueryContext(ctx, `
SELECT chunk_id FROM run_evidence
WHERE run_id = $1
ORDER BY chunk_id ASC
`, run.RunID)
	if err != nil {
		return domain.WrapError(domain.ErrStorageUnavailable, "load evidence", err)
	}
	defer rows.Close()

	run.EvidenceIDs = make([]string, 0)
	for rows.Next() {
		var chunkID string
		if err := rows.Scan(&chunkID); err != nil {
			return domain.WrapError(domain.ErrStorageUnavailable, "load evidence", err)
		}
		run.EvidenceIDs = append(run.EvidenceIDs, chunkID)
	}
	if err := rows.Err(); err != nil {
		return domain.WrapError(domain.ErrStorageUnavailable, "load evidence", err)
	}
	return nil
}

type runScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row runScanner) (domain.Run, error) {
	var run domain.Run
	var kind, status string
	var endedAt sql.NullTime
	var inputsRaw []byte
	var outputsRaw []byte

	err := row.Scan(&run.RunID, &kind, &status, &run.StartedAt, &endedAt, &inputsRaw, &outputsRaw)
	if err != nil {
		return domain.Run{}, err
	}

	run.Kind = domain.RunKind(kind)
	run.Status = domain.RunStatus(status)
	if endedAt.Valid {
		t := endedAt.Time
		run.EndedAt = &t
	}
	if err := json.Unmarshal(inputsRaw, &run.Inputs); err != nil {
		return domain.Run{}, fmt.Errorf("unmarshal run inputs: %w", err)
	}
	if len(outputsRaw) > 0 {
		if err := json.Unmarshal(outputsRaw, &run.Outputs); err != nil {
			return domain.Run{}, fmt.Errorf("unmarshal run outputs: %w", err)
		}
	}
	return run, nil
}
