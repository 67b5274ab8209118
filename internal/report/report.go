// Package report selects upcoming departures that are close to selling
// out from an enhanced dataset.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/si0411/tourextract/internal/ledger"
	"github.com/si0411/tourextract/internal/tour"
)

// DefaultThreshold is the largest number of free places still reported.
const DefaultThreshold = 5

// Date is one limited departure.
type Date struct {
	Display         string    `json:"date"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	AvailableSpaces int       `json:"available_spaces"`
}

// Tour groups the limited departures of one tour.
type Tour struct {
	Name   string `json:"tour_name"`
	URL    string `json:"tour_url"`
	Colour string `json:"tour_colour"`
	Dates  []Date `json:"dates"`
}

// Report is the selection for one day.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`
	Threshold   int       `json:"threshold"`
	Tours       []Tour    `json:"tours"`
}

// Build selects enriched dates with 1..threshold places left that start
// on or after today's date. Dates without a known count, or whose display
// text cannot be parsed, are skipped. Tour and date order follow the
// dataset.
func Build(ds *tour.Dataset, threshold int, now time.Time) Report {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	r := Report{GeneratedAt: now, Threshold: threshold, Tours: []Tour{}}
	for _, rec := range ds.Records() {
		var dates []Date
		for _, entry := range rec.StartingDates {
			if !entry.Enriched || entry.AvailableSpaces == nil {
				continue
			}
			spaces := *entry.AvailableSpaces
			if spaces <= 0 || spaces > threshold {
				continue
			}
			start, end, _, ok := ledger.ParseDisplayDate(entry.Date)
			if !ok || start.Before(today) {
				continue
			}
			dates = append(dates, Date{Display: entry.Date, Start: start, End: end, AvailableSpaces: spaces})
		}
		if len(dates) > 0 {
			r.Tours = append(r.Tours, Tour{Name: rec.TourName, URL: rec.URL, Colour: rec.TourColour, Dates: dates})
		}
	}
	return r
}

// Departures counts the selected dates.
func (r Report) Departures() int {
	n := 0
	for _, t := range r.Tours {
		n += len(t.Dates)
	}
	return n
}

// WriteJSON writes the report indented by two spaces.
func (r Report) WriteJSON(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(r)
}

// WriteText writes one line per departure, grouped by tour.
func (r Report) WriteText(w io.Writer) error {
	if len(r.Tours) == 0 {
		_, err := fmt.Fprintf(w, "No upcoming departures with %d or fewer places.\n", r.Threshold)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%d departures across %d tours with %d or fewer places\n\n", r.Departures(), len(r.Tours), r.Threshold)
	for _, t := range r.Tours {
		fmt.Fprintf(tw, "%s\t%s\n", t.Name, t.URL)
		for _, d := range t.Dates {
			fmt.Fprintf(tw, "  %s - %s\t%d left\n", d.Start.Format("02 Jan"), d.End.Format("02 Jan 2006"), d.AvailableSpaces)
		}
	}
	return tw.Flush()
}
