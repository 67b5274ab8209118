// internal/output/sql.go
package output

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"

	"github.com/pressly/goose/v3"

	"github.com/si0411/tourextract/internal/tour"
	"github.com/si0411/tourextract/internal/utils"
)

//go:embed migrations
var migrationsFS embed.FS

// migrate brings the schema up to date with the embedded migrations for
// the dialect.
func migrate(ctx context.Context, db *sql.DB, dialect goose.Dialect, dir string) error {
	fsys, err := fs.Sub(migrationsFS, "migrations/"+dir)
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// sqlWriter replaces each tour and its dates inside one transaction per
// dataset. Dialects differ only in placeholders.
type sqlWriter struct {
	name        string
	db          *sql.DB
	placeholder func(n int) string
	logger      utils.Logger
}

func questionMarks(int) string { return "?" }

func dollarN(n int) string { return fmt.Sprintf("$%d", n) }

func tourColumns() []string {
	cols := []string{
		"tour_id", "url", "tour_name", "country", "tour_colour", "status", "last_updated",
		"duration_days", "operator", "starting_point", "ending_point", "num_reviews",
	}
	for _, c := range tour.Currencies {
		cols = append(cols, "price_"+strings.ToLower(string(c)))
	}
	return append(cols, "starting_dates", "data")
}

func dateColumns() []string {
	cols := []string{"tour_id", "position", "display_date", "status", "available_spaces"}
	for _, c := range tour.Currencies {
		cols = append(cols, "deposit_"+strings.ToLower(string(c)))
	}
	for _, c := range tour.Currencies {
		cols = append(cols, "main_"+strings.ToLower(string(c)))
	}
	return cols
}

func (w *sqlWriter) insertQuery(table string, cols []string) string {
	marks := make([]string, len(cols))
	for i := range cols {
		marks[i] = w.placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(marks, ", "))
}

// Name implements Writer.
func (w *sqlWriter) Name() string { return w.name }

// Write implements Writer.
func (w *sqlWriter) Write(ctx context.Context, ds *tour.Dataset) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	deleteDates, err := tx.PrepareContext(ctx, "DELETE FROM tour_dates WHERE tour_id = "+w.placeholder(1))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer deleteDates.Close()
	deleteTour, err := tx.PrepareContext(ctx, "DELETE FROM tours WHERE tour_id = "+w.placeholder(1))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer deleteTour.Close()
	insertTour, err := tx.PrepareContext(ctx, w.insertQuery("tours", tourColumns()))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer insertTour.Close()
	insertDate, err := tx.PrepareContext(ctx, w.insertQuery("tour_dates", dateColumns()))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer insertDate.Close()

	records := ds.Records()
	for _, rec := range records {
		if _, err := deleteDates.ExecContext(ctx, rec.TourID); err != nil {
			return fmt.Errorf("failed to clear dates for %s: %w", rec.TourID, err)
		}
		if _, err := deleteTour.ExecContext(ctx, rec.TourID); err != nil {
			return fmt.Errorf("failed to clear tour %s: %w", rec.TourID, err)
		}

		args, err := tourArgs(rec)
		if err != nil {
			return err
		}
		if _, err := insertTour.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert tour %s: %w", rec.TourID, err)
		}
		for _, row := range ToDateRows(rec) {
			if _, err := insertDate.ExecContext(ctx, dateArgs(row)...); err != nil {
				return fmt.Errorf("failed to insert date %d of %s: %w", row.Position, rec.TourID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	w.logger.Debugf("wrote %d tours", len(records))
	return nil
}

func tourArgs(rec *tour.Record) ([]interface{}, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tour %s: %w", rec.TourID, err)
	}
	args := ToTourRow(rec).Cells()
	return append(args, string(data)), nil
}

func dateArgs(row DateRow) []interface{} {
	args := []interface{}{row.TourID, row.Position, row.Date, row.Status, nullInt(row.AvailableSpaces)}
	for _, c := range tour.Currencies {
		args = append(args, nullInt(row.Deposit[c]))
	}
	for _, c := range tour.Currencies {
		args = append(args, nullInt(row.Main[c]))
	}
	return args
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

// Close implements Writer.
func (w *sqlWriter) Close() error {
	if w.db == nil {
		return nil
	}
	err := w.db.Close()
	w.db = nil
	return err
}
