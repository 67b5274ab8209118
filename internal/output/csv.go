// internal/output/csv.go
package output

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/si0411/tourextract/internal/tour"
)

// CSVWriter writes one row per starting date. A tour without dates still
// gets one row so it is not lost from the sheet.
type CSVWriter struct {
	filename string
}

// NewCSVWriter creates a new CSV writer
func NewCSVWriter(filename string) (*CSVWriter, error) {
	if filename == "" {
		return nil, fmt.Errorf("CSV file path is required")
	}
	return &CSVWriter{filename: filename}, nil
}

// Name implements Writer.
func (w *CSVWriter) Name() string { return "csv" }

// Write implements Writer.
func (w *CSVWriter) Write(_ context.Context, ds *tour.Dataset) error {
	return writeFileAtomic(w.filename, func(f *os.File) error {
		writer := csv.NewWriter(f)
		if err := writer.Write(DateHeaders()); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		for _, rec := range ds.Records() {
			rows := ToDateRows(rec)
			if len(rows) == 0 {
				rows = []DateRow{{TourID: rec.TourID, TourName: rec.TourName}}
			}
			for _, row := range rows {
				if err := writer.Write(row.Strings()); err != nil {
					return fmt.Errorf("failed to write record: %w", err)
				}
			}
		}
		writer.Flush()
		return writer.Error()
	})
}

// Close implements Writer.
func (w *CSVWriter) Close() error { return nil }
