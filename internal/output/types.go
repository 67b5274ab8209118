// internal/output/types.go
package output

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/si0411/tourextract/internal/tour"
)

// Writer mirrors a dataset to one destination.
type Writer interface {
	Name() string
	Write(ctx context.Context, ds *tour.Dataset) error
	Close() error
}

// Result represents the output operation result
type Result struct {
	Sink     string        `json:"sink"`
	Success  bool          `json:"success"`
	Records  int           `json:"records"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// SQL identifier regex: starts with letter or underscore, contains letters, digits, underscores
var sqlIdentifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidateSQLIdentifier validates that a string is a safe SQL identifier.
func ValidateSQLIdentifier(identifier string) error {
	if identifier == "" {
		return fmt.Errorf("identifier cannot be empty")
	}
	if len(identifier) > 63 {
		return fmt.Errorf("identifier too long (max 63 characters): %s", identifier)
	}
	if !sqlIdentifierRegex.MatchString(identifier) {
		return fmt.Errorf("invalid identifier format: %s", identifier)
	}
	return nil
}

// TourRow is the flat, one-row-per-tour view used by tabular sinks.
type TourRow struct {
	TourID        string
	URL           string
	TourName      string
	Country       string
	Colour        string
	Status        string
	LastUpdated   string
	DurationDays  int
	Operator      string
	StartingPoint string
	EndingPoint   string
	NumReviews    int
	Prices        tour.PriceSet
	Dates         int
}

// TourHeaders names the TourRow columns in order.
func TourHeaders() []string {
	h := []string{
		"tour_id", "url", "tour_name", "country", "tour_colour", "status", "last_updated",
		"duration_days", "operator", "starting_point", "ending_point", "num_reviews",
	}
	for _, c := range tour.Currencies {
		h = append(h, "price_"+string(c))
	}
	return append(h, "starting_dates")
}

// Cells renders the row in TourHeaders order.
func (r TourRow) Cells() []interface{} {
	cells := []interface{}{
		r.TourID, r.URL, r.TourName, r.Country, r.Colour, r.Status, r.LastUpdated,
		r.DurationDays, r.Operator, r.StartingPoint, r.EndingPoint, r.NumReviews,
	}
	for _, c := range tour.Currencies {
		cells = append(cells, r.Prices.Get(c))
	}
	return append(cells, r.Dates)
}

// DateRow is one departure of one tour. Nil pointers are unknown values.
type DateRow struct {
	TourID          string
	TourName        string
	Position        int
	Date            string
	Status          string
	AvailableSpaces *int
	Deposit         tour.CurrencyAmounts
	Main            tour.CurrencyAmounts
}

// DateHeaders names the DateRow columns in order.
func DateHeaders() []string {
	h := []string{"tour_id", "tour_name", "position", "date", "status", "available_spaces"}
	for _, c := range tour.Currencies {
		h = append(h, "deposit_"+string(c))
	}
	for _, c := range tour.Currencies {
		h = append(h, "main_"+string(c))
	}
	return h
}

// Strings renders the row in DateHeaders order; unknown values are empty.
func (r DateRow) Strings() []string {
	out := []string{r.TourID, r.TourName, strconv.Itoa(r.Position), r.Date, r.Status, optInt(r.AvailableSpaces)}
	for _, c := range tour.Currencies {
		out = append(out, optInt(r.Deposit[c]))
	}
	for _, c := range tour.Currencies {
		out = append(out, optInt(r.Main[c]))
	}
	return out
}

func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// ToTourRow flattens a record.
func ToTourRow(r *tour.Record) TourRow {
	return TourRow{
		TourID:        r.TourID,
		URL:           r.URL,
		TourName:      r.TourName,
		Country:       r.Country,
		Colour:        r.TourColour,
		Status:        r.Status,
		LastUpdated:   r.LastUpdated,
		DurationDays:  r.TourInformation.Duration.Days,
		Operator:      r.TourInformation.Operator,
		StartingPoint: r.TourInformation.StartingPoint,
		EndingPoint:   r.TourInformation.EndingPoint,
		NumReviews:    r.TourInformation.NumReviews,
		Prices:        r.Price,
		Dates:         len(r.StartingDates),
	}
}

// ToDateRows flattens a record's starting dates. Bare dates carry only
// the display text.
func ToDateRows(r *tour.Record) []DateRow {
	rows := make([]DateRow, 0, len(r.StartingDates))
	for i, d := range r.StartingDates {
		row := DateRow{
			TourID:          r.TourID,
			TourName:        r.TourName,
			Position:        i + 1,
			Date:            d.Date,
			Status:          d.Status,
			AvailableSpaces: d.AvailableSpaces,
		}
		if d.Prices != nil {
			row.Deposit = d.Prices.Deposit
			row.Main = d.Prices.Main
		}
		rows = append(rows, row)
	}
	return rows
}
