package export

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/entity"
)

// XLSXExporter produces workbook bytes for finished extraction results: one
// summary sheet plus one sheet per extracted statement.
type XLSXExporter struct {
	logger *slog.Logger
}

// NewXLSXExporter builds an XLSXExporter.
func NewXLSXExporter(logger *slog.Logger) *XLSXExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXExporter{logger: logger}
}

// ExportResultXLSX returns an XLSX workbook (as bytes) for one extraction
// result.
func (e *XLSXExporter) ExportResultXLSX(result *entity.ExtractionResult, score float64, warnings []string) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const summary = "Summary"
	// The workbook opens with a default sheet; repurpose it as the summary.
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return nil, fmt.Errorf("rename summary sheet: %w", err)
	}

	writeCell := func(sheet string, col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}

	summaryRows := [][2]any{
		{"Filename", result.Filename},
		{"Document ID", result.DocumentID},
		{"Status", string(result.Status)},
		{"Statements", len(result.Statements)},
		{"Line items", entity.TotalLineItems(result.Statements)},
		{"Quality score", score},
		{"Processing time (s)", result.ProcessingTime},
		{"Errors", strings.Join(result.Errors, "; ")},
		{"Warnings", strings.Join(warnings, "; ")},
	}
	for i, kv := range summaryRows {
		writeCell(summary, 1, i+1, kv[0])
		writeCell(summary, 2, i+1, kv[1])
	}
	_ = f.SetColWidth(summary, "A", "A", 22)
	_ = f.SetColWidth(summary, "B", "B", 60)

	usedNames := map[string]int{}
	for _, stmt := range result.Statements {
		sheet := sheetName(stmt.StatementType, usedNames)
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", sheet, err)
		}

		years := statementYears(stmt)

		writeCell(sheet, 1, 1, "Company")
		writeCell(sheet, 2, 1, stmt.CompanyName)
		writeCell(sheet, 1, 2, "Currency")
		writeCell(sheet, 2, 2, stmt.Currency)
		writeCell(sheet, 1, 3, "Rounding")
		writeCell(sheet, 2, 3, stmt.Rounding)

		headerRow := 5
		writeCell(sheet, 1, headerRow, "Line Item")
		for i, y := range years {
			writeCell(sheet, i+2, headerRow, y)
		}
		writeCell(sheet, len(years)+2, headerRow, "Notes")

		row := headerRow + 1
		for _, li := range stmt.LineItems {
			writeCell(sheet, 1, row, li.Label)
			for i, y := range years {
				if v, ok := li.Values[y]; ok {
					writeCell(sheet, i+2, row, v)
				}
			}
			writeCell(sheet, len(years)+2, row, strings.Join(li.NoteReferences, ", "))
			row++
		}

		_ = f.SetColWidth(sheet, "A", "A", 44)
		lastYearCol, _ := excelize.ColumnNumberToName(len(years) + 1)
		_ = f.SetColWidth(sheet, "B", lastYearCol, 16)
	}

	activeIndex, _ := f.GetSheetIndex(summary)
	f.SetActiveSheet(activeIndex)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	e.logger.Info("export.xlsx.ok",
		"file", result.Filename,
		"statements", len(result.Statements),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// sheetName maps a statement type to a readable, unique sheet title within
// excelize's 31-character limit.
func sheetName(statementType string, used map[string]int) string {
	words := strings.Fields(strings.ReplaceAll(statementType, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	name := strings.Join(words, " ")
	if name == "" {
		name = "Statement"
	}
	if len(name) > 28 {
		name = name[:28]
	}
	used[name]++
	if used[name] > 1 {
		name = fmt.Sprintf("%s %d", name, used[name])
	}
	return name
}

// statementYears returns the statement's reporting years, falling back to
// the union of line-item value keys when financial_years is empty.
func statementYears(stmt entity.FinancialStatement) []string {
	if len(stmt.FinancialYears) > 0 {
		return stmt.FinancialYears
	}
	seen := map[string]bool{}
	for _, li := range stmt.LineItems {
		for y := range li.Values {
			seen[y] = true
		}
	}
	years := make([]string, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Strings(years)
	return years
}
