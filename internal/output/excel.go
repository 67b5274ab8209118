// internal/output/excel.go
package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/si0411/tourextract/internal/tour"
)

// Sheet names in the workbook.
const (
	SheetTours = "Tours"
	SheetDates = "Dates"
)

// ExcelWriter writes a workbook with one row per tour on the Tours sheet
// and one row per starting date on the Dates sheet.
type ExcelWriter struct {
	filename string
}

// NewExcelWriter creates a new Excel writer
func NewExcelWriter(filename string) (*ExcelWriter, error) {
	if filename == "" {
		return nil, fmt.Errorf("Excel file path is required")
	}
	return &ExcelWriter{filename: filename}, nil
}

// Name implements Writer.
func (w *ExcelWriter) Name() string { return "excel" }

// Write implements Writer.
func (w *ExcelWriter) Write(_ context.Context, ds *tour.Dataset) error {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName(file.GetSheetName(0), SheetTours); err != nil {
		return err
	}
	if _, err := file.NewSheet(SheetDates); err != nil {
		return err
	}

	headerStyle, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	records := ds.Records()
	tourRows := make([][]interface{}, 0, len(records))
	var dateRows [][]interface{}
	for _, rec := range records {
		tourRows = append(tourRows, ToTourRow(rec).Cells())
		for _, row := range ToDateRows(rec) {
			dateRows = append(dateRows, dateCells(row))
		}
	}

	if err := writeSheet(file, SheetTours, toInterfaces(TourHeaders()), tourRows, headerStyle); err != nil {
		return err
	}
	if err := writeSheet(file, SheetDates, toInterfaces(DateHeaders()), dateRows, headerStyle); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(w.filename), 0755); err != nil {
		return err
	}
	return file.SaveAs(w.filename)
}

// Close implements Writer.
func (w *ExcelWriter) Close() error { return nil }

func writeSheet(file *excelize.File, sheet string, headers []interface{}, rows [][]interface{}, headerStyle int) error {
	if err := file.SetSheetRow(sheet, "A1", &headers); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	if err := file.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := row
		if err := file.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+2, err)
		}
	}

	if err := file.SetColWidth(sheet, "A", lastCol, 15); err != nil {
		return err
	}
	if err := file.AutoFilter(sheet, "A1:"+lastCol+strconv.Itoa(len(rows)+1), nil); err != nil {
		return err
	}
	return file.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// dateCells keeps unknown values as empty cells and known ones numeric.
func dateCells(row DateRow) []interface{} {
	cells := []interface{}{row.TourID, row.TourName, row.Position, row.Date, row.Status, optCell(row.AvailableSpaces)}
	for _, c := range tour.Currencies {
		cells = append(cells, optCell(row.Deposit[c]))
	}
	for _, c := range tour.Currencies {
		cells = append(cells, optCell(row.Main[c]))
	}
	return cells
}

func optCell(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func toInterfaces(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
