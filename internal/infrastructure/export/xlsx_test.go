package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/medical-report-analyzer/internal/core/domain"
)

func TestExportWritesHeaderAndRows(t *testing.T) {
	outcome := domain.ProbabilityOutcome(0.8123)
	records := []domain.AnalysisRecord{
		{
			ID:        "a-1",
			DiseaseID: domain.DiseaseDiabetes,
			Filename:  "labs.pdf",
			Method:    domain.ExtractionPDFText,
			TextChars: 420,
			RiskLevel: domain.RiskHigh,
			Reason:    "high",
			Outcome:   &outcome,
			Duration:  1500 * time.Millisecond,
			CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:        "a-2",
			DiseaseID: domain.DiseaseThyroid,
			Filename:  "scan.png",
			RiskLevel: domain.RiskError,
			Error:     "extraction failed",
			CreatedAt: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		},
	}

	raw, err := NewXLSXExporter(nil).Export(records)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Analysis ID" || rows[0][6] != "Risk Level" {
		t.Fatalf("unexpected header %v", rows[0])
	}
	if rows[1][2] != "diabetes" || rows[1][6] != "High" || rows[1][7] != "probability=0.8123" || rows[1][10] != "1500" {
		t.Fatalf("unexpected first row %v", rows[1])
	}
	if rows[2][9] != "extraction failed" {
		t.Fatalf("unexpected second row %v", rows[2])
	}
}

func TestExportEmpty(t *testing.T) {
	raw, err := NewXLSXExporter(nil).Export(nil)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	if names := f.GetSheetList(); len(names) != 1 || names[0] != sheetName {
		t.Fatalf("unexpected sheets %v", names)
	}
}
