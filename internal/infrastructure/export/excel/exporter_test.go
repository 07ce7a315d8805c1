package excel

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/disclosure-grounding/internal/core/domain"
)

func TestWriteRunLedgerRendersRows(t *testing.T) {
	started := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	ended := started.Add(4 * time.Second)
	runs := []domain.Run{
		{
			RunID:       "run-1",
			Kind:        domain.RunDraft,
			Status:      domain.RunClosed,
			StartedAt:   started,
			EndedAt:     &ended,
			Inputs:      map[string]string{"filing_version_id": "fv-1"},
			EvidenceIDs: []string{"c1", "c2"},
			Outputs:     map[string]string{"outcome": "completed"},
		},
		{
			RunID:     "run-2",
			Kind:      domain.RunReview,
			Status:    domain.RunOpen,
			StartedAt: started.Add(time.Minute),
			Inputs:    map[string]string{},
		},
	}

	var buf bytes.Buffer
	if err := NewExporter().WriteRunLedger(&buf, runs); err != nil {
		t.Fatalf("WriteRunLedger() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "run_id" || rows[0][8] != "outputs" {
		t.Fatalf("unexpected header row: %v", rows[0])
	}

	first := rows[1]
	if first[0] != "run-1" || first[1] != "DRAFT" || first[2] != "closed" {
		t.Fatalf("unexpected first row: %v", first)
	}
	if first[6] != "2" || first[7] != "c1 c2" {
		t.Fatalf("evidence columns wrong: %v", first)
	}

	second := rows[2]
	if second[0] != "run-2" {
		t.Fatalf("unexpected second row: %v", second)
	}
	if len(second) > 4 && second[4] != "" {
		t.Fatalf("open run must have empty ended_at: %v", second)
	}
}

func TestWriteRunLedgerEmptyWindow(t *testing.T) {
	var buf bytes.Buffer
	if err := NewExporter().WriteRunLedger(&buf, nil); err != nil {
		t.Fatalf("WriteRunLedger() error = %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected header only, got %d rows", len(rows))
	}
}
