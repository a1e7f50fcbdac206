// Package export renders analysis history as an XLSX workbook.
package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/medical-report-analyzer/internal/core/domain"
)

const sheetName = "Analyses"

var headers = []string{
	"Analysis ID",
	"Created At (UTC)",
	"Disease",
	"File",
	"Extraction",
	"Text Chars",
	"Risk Level",
	"Model Output",
	"Reason",
	"Error",
	"Duration (ms)",
}

type XLSXExporter struct {
	logger *slog.Logger
}

func NewXLSXExporter(logger *slog.Logger) *XLSXExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXExporter{logger: logger}
}

func (e *XLSXExporter) Export(records []domain.AnalysisRecord) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()
	// Rename the default sheet instead of leaving an empty Sheet1.
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		_ = f.SetCellStyle(sheetName, "A1", last, style)
	}

	for idx, r := range records {
		row := idx + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheetName, cell, v)
		}
		write(1, r.ID)
		write(2, r.CreatedAt.UTC().Format(time.RFC3339))
		write(3, r.DiseaseID.String())
		write(4, r.Filename)
		write(5, r.Method)
		write(6, r.TextChars)
		write(7, string(r.RiskLevel))
		if r.Outcome != nil {
			write(8, r.Outcome.String())
		} else {
			write(8, "")
		}
		write(9, r.Reason)
		write(10, r.Error)
		write(11, r.Duration.Milliseconds())
	}

	_ = f.SetColWidth(sheetName, "A", "A", 38)
	_ = f.SetColWidth(sheetName, "B", "B", 22)
	_ = f.SetColWidth(sheetName, "C", "E", 18)
	_ = f.SetColWidth(sheetName, "G", "H", 18)
	_ = f.SetColWidth(sheetName, "I", "J", 60)
	_ = f.SetPanes(sheetName, &excelize.Panes{Freeze: true, Split: false, XSplit: 0, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	e.logger.Info("export.xlsx.ok",
		"rows", len(records),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
