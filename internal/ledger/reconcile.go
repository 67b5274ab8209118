// internal/ledger/reconcile.go
package ledger

import (
	"strings"
	"time"

	"github.com/si0411/tourextract/internal/tour"
)

var displayDateLayouts = []string{"2 Jan 2006", "2 January 2006"}

func parseDisplayDay(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range displayDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseDisplayDate splits "6 Oct - 19 Oct 2025 - Book Now" into its
// endpoints and status. The start borrows its year from the end segment.
func ParseDisplayDate(display string) (start, end time.Time, status string, ok bool) {
	parts := strings.Split(display, " - ")
	if len(parts) < 3 {
		return start, end, "", false
	}
	endPart := strings.TrimSpace(parts[1])
	endFields := strings.Fields(endPart)
	if len(endFields) != 3 {
		return start, end, "", false
	}

	start, okStart := parseDisplayDay(strings.TrimSpace(parts[0]) + " " + endFields[2])
	end, okEnd := parseDisplayDay(endPart)
	if !okStart || !okEnd {
		return time.Time{}, time.Time{}, "", false
	}
	return start, end, strings.TrimSpace(parts[2]), true
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// MatchDeparture finds the departure whose endpoints fall on exactly the
// same calendar days.
func MatchDeparture(start, end time.Time, deps []Departure) (Departure, bool) {
	for _, d := range deps {
		if sameDay(d.Start, start) && sameDay(d.End, end) {
			return d, true
		}
	}
	return Departure{}, false
}

// Outcome of reconciling one date entry.
const (
	OutcomeMatched     = "matched"
	OutcomeUnmatched   = "unmatched"
	OutcomeUnparseable = "unparseable"
)

// ReconcileDate turns one display entry into its enriched form. Unmatched
// dates carry null availability and prices; an unparseable date is
// returned unchanged.
func ReconcileDate(entry tour.DateEntry, deps []Departure) (tour.DateEntry, string) {
	start, end, status, ok := ParseDisplayDate(entry.Date)
	if !ok {
		return entry, OutcomeUnparseable
	}
	out := tour.DateEntry{Date: entry.Date, Status: status, Enriched: true}

	d, ok := MatchDeparture(start, end, deps)
	if !ok {
		return out, OutcomeUnmatched
	}
	spaces := d.AvailableSpaces
	prices := d.Prices.Clone()
	out.AvailableSpaces = &spaces
	out.Prices = &prices
	return out, OutcomeMatched
}

// Reconcile enriches every entry of one tour's date list.
func Reconcile(dates []tour.DateEntry, deps []Departure) ([]tour.DateEntry, map[string]int) {
	counts := map[string]int{}
	out := make([]tour.DateEntry, len(dates))
	for i, entry := range dates {
		var outcome string
		out[i], outcome = ReconcileDate(entry, deps)
		counts[outcome]++
	}
	return out, counts
}

// PriceSetFrom converts global ledger prices; unknown amounts become 0.
func PriceSetFrom(amounts tour.CurrencyAmounts) tour.PriceSet {
	var p tour.PriceSet
	for _, c := range tour.Currencies {
		if v := amounts[c]; v != nil {
			p.Set(c, *v)
		}
	}
	return p
}

// MergeStats summarises a merge.
type MergeStats struct {
	Tours          int `json:"tours"`
	Skipped        int `json:"skipped"`
	PricesApplied  int `json:"prices_applied"`
	ToursEnhanced  int `json:"tours_enhanced"`
	DatesMatched   int `json:"dates_matched"`
	DatesUnmatched int `json:"dates_unmatched"`
	Unparseable    int `json:"unparseable"`
}

// Merge reconciles every record in ds with the ledger, in place. Only
// starting_dates and price are touched; records without a name are skipped.
func (l *Ledger) Merge(ds *tour.Dataset) MergeStats {
	var stats MergeStats
	for _, rec := range ds.Records() {
		stats.Tours++
		if rec.TourName == "" {
			stats.Skipped++
			continue
		}
		logger := l.logger.WithField("tour", rec.TourName)

		if prices, ok := l.GlobalPrices(rec.TourName); ok {
			rec.Price = PriceSetFrom(prices)
			stats.PricesApplied++
		}

		if len(rec.StartingDates) == 0 {
			continue
		}
		deps, ok := l.Departures(rec.TourName)
		if !ok {
			logger.Debug("no ledger dates")
			continue
		}

		dates, counts := Reconcile(rec.StartingDates, deps)
		rec.StartingDates = dates
		stats.ToursEnhanced++
		stats.DatesMatched += counts[OutcomeMatched]
		stats.DatesUnmatched += counts[OutcomeUnmatched]
		stats.Unparseable += counts[OutcomeUnparseable]

		if l.metrics != nil {
			for outcome, n := range counts {
				for i := 0; i < n; i++ {
					l.metrics.RecordLedgerMatch(outcome)
				}
			}
		}
		if counts[OutcomeUnparseable] > 0 {
			logger.Warnf("%d dates could not be parsed", counts[OutcomeUnparseable])
		}
		logger.Debugf("matched %d of %d dates", counts[OutcomeMatched], len(dates))
	}

	l.logger.WithFields(map[string]interface{}{
		"prices_applied":  stats.PricesApplied,
		"tours_enhanced":  stats.ToursEnhanced,
		"dates_matched":   stats.DatesMatched,
		"dates_unmatched": stats.DatesUnmatched,
	}).Info("merge finished")
	return stats
}
