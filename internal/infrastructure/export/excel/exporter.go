package excel

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/disclosure-grounding/internal/core/domain"
)

const sheetName = "Runs"

var headers = []string{
	"run_id", "kind", "status", "started_at", "ended_at",
	"inputs", "evidence_count", "evidence_ids", "outputs",
}

// Exporter renders a run ledger slice as a spreadsheet for compliance
// review. Evidence ids are joined inline so a row is self-contained.
type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

func (e *Exporter) WriteRunLedger(w io.Writer, runs []domain.Run) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for i, run := range runs {
		values, err := rowValues(run)
		if err != nil {
			return err
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return fmt.Errorf("row cell: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return fmt.Errorf("write run %s: %w", run.RunID, err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func rowValues(run domain.Run) ([]any, error) {
	inputs, err := json.Marshal(run.Inputs)
	if err != nil {
		return nil, fmt.Errorf("marshal inputs for run %s: %w", run.RunID, err)
	}

	outputs := ""
	if run.Outputs != nil {
		raw, err := json.Marshal(run.Outputs)
		if err != nil {
			return nil, fmt.Errorf("marshal outputs for run %s: %w", run.RunID, err)
		}
		outputs = string(raw)
	}

	endedAt := ""
	if run.EndedAt != nil {
		endedAt = run.EndedAt.UTC().Format(time.RFC3339)
	}

	return []any{
		run.RunID,
		string(run.Kind),
		string(run.Status),
		run.StartedAt.UTC().Format(time.RFC3339),
		endedAt,
		string(inputs),
		len(run.EvidenceIDs),
		strings.Join(run.EvidenceIDs, " "),
		outputs,
	}, nil
}
