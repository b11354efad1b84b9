package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"carbon-scribe/onboarding-tracker/internal/audit"
)

// ExcelOptions configures Excel export behavior
type ExcelOptions struct {
	SheetName    string
	FreezeHeader bool
	AutoFilter   bool
	HeaderFill   string
	HeaderFont   string
}

// DefaultExcelOptions returns default Excel export options
func DefaultExcelOptions() ExcelOptions {
	return ExcelOptions{
		SheetName:    "Audit",
		FreezeHeader: true,
		AutoFilter:   true,
		HeaderFill:   "4472C4",
		HeaderFont:   "FFFFFF",
	}
}

// ExcelExporter writes audit entries to a workbook
type ExcelExporter struct {
	file    *excelize.File
	options ExcelOptions
}

// NewExcelExporter creates a new Excel exporter
func NewExcelExporter(options ExcelOptions) *ExcelExporter {
	file := excelize.NewFile()

	// Rename the default sheet
	file.SetSheetName("Sheet1", options.SheetName)

	return &ExcelExporter{
		file:    file,
		options: options,
	}
}

// WriteEntries writes the header row and one row per entry
func (e *ExcelExporter) WriteEntries(entries []*audit.Entry) error {
	sheet := e.options.SheetName

	headerStyle, err := e.file.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: e.options.HeaderFont},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{e.options.HeaderFill}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	timeStyle, err := e.file.NewStyle(&excelize.Style{NumFmt: 22}) // m/d/yy h:mm
	if err != nil {
		return fmt.Errorf("failed to create time style: %w", err)
	}

	widths := make([]float64, len(Columns))
	for i, label := range labels() {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := e.file.SetCellValue(sheet, cell, label); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		widths[i] = float64(len(label)) + 2
	}
	first, _ := excelize.CoordinatesToCellName(1, 1)
	last, _ := excelize.CoordinatesToCellName(len(Columns), 1)
	if err := e.file.SetCellStyle(sheet, first, last, headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for rowIdx, entry := range entries {
		for colIdx, col := range Columns {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			val := col.Value(entry)
			if err := e.file.SetCellValue(sheet, cell, val); err != nil {
				return fmt.Errorf("failed to set cell value: %w", err)
			}
			if _, ok := val.(time.Time); ok {
				e.file.SetCellStyle(sheet, cell, cell, timeStyle)
			}
			if w := float64(len(formatValue(val, time.DateTime))) + 2; w > widths[colIdx] {
				widths[colIdx] = w
			}
		}
	}

	for i, width := range widths {
		name, _ := excelize.ColumnNumberToName(i + 1)
		// Min width 10, max width 50
		width = max(10, min(width, 50))
		e.file.SetColWidth(sheet, name, name, width)
	}

	if e.options.FreezeHeader {
		e.file.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		})
	}
	if e.options.AutoFilter && len(entries) > 0 {
		e.file.AutoFilter(sheet, first+":"+last, nil)
	}
	return nil
}

// Write writes the workbook to w
func (e *ExcelExporter) Write(w io.Writer) error {
	return e.file.Write(w)
}

// Close closes the Excel file
func (e *ExcelExporter) Close() error {
	return e.file.Close()
}

// WriteExcel writes entries to w as an xlsx workbook
func WriteExcel(w io.Writer, entries []*audit.Entry) error {
	exporter := NewExcelExporter(DefaultExcelOptions())
	defer exporter.Close()

	if err := exporter.WriteEntries(entries); err != nil {
		return err
	}
	if err := exporter.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
