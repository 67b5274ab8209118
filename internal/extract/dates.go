package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/si0411/tourextract/internal/errors"
	"github.com/si0411/tourextract/internal/scraper"
	"github.com/si0411/tourextract/internal/tour"
	"github.com/si0411/tourextract/internal/utils"
)

var (
	pageTourIDPattern = regexp.MustCompile(`/tour/(\d+)/`)
	dateRowPattern    = regexp.MustCompile(`^\d+ \w+ - \d+ \w+ \d+`)
	dateTextPattern   = regexp.MustCompile(`\d+ \w+ - \d+ \w+ \d+`)
)

// Availability classifies a departure row by its text. Checks run in a
// fixed priority order.
func Availability(rowText string) string {
	text := strings.ToLower(rowText)
	switch {
	case strings.Contains(text, "book now") || strings.Contains(text, "available"):
		return tour.AvailabilityBookNow
	case utils.ContainsAny(text, "no availability", "full", "sold out"):
		return tour.AvailabilityNone
	case strings.Contains(text, "limited"):
		return tour.AvailabilityLimited
	default:
		return tour.AvailabilityOpen
	}
}

// ParseDateFragment turns the tour-dates HTML fragment into display strings.
func ParseDateFragment(fragment string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil, err
	}

	var entries []string
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cell := row.Find("td").First()
		if cell.Length() == 0 {
			return
		}
		dateText := scraper.Text(cell)
		if !dateRowPattern.MatchString(dateText) {
			return
		}
		entries = append(entries, dateText+" - "+Availability(row.Text()))
	})

	if len(entries) == 0 {
		for _, m := range dateTextPattern.FindAllString(doc.Text(), -1) {
			entries = append(entries, m+" - "+tour.AvailabilityOpen)
		}
	}
	return utils.DedupeStrings(entries), nil
}

// PageTourNumber finds the site's numeric tour id in the raw markup.
func PageTourNumber(raw string) (string, bool) {
	m := pageTourIDPattern.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// StartingDates loads departures from the tour-dates sub-resource. Any
// failure leaves starting_dates empty.
func StartingDates(f scraper.Fetcher) Extractor {
	return NewFunc("starting_dates", func(ctx context.Context, page *scraper.Page) (Patch, error) {
		dates, err := fetchDates(ctx, f, page)
		if err != nil {
			return func(r *tour.Record) { r.StartingDates = []tour.DateEntry{} }, err
		}
		return func(r *tour.Record) {
			entries := make([]tour.DateEntry, len(dates))
			for i, d := range dates {
				entries[i] = tour.Bare(d)
			}
			r.StartingDates = entries
		}, nil
	})
}

func fetchDates(ctx context.Context, f scraper.Fetcher, page *scraper.Page) ([]string, error) {
	number, ok := PageTourNumber(page.Raw)
	if !ok {
		return nil, errNotFound("numeric tour id")
	}
	origin, err := utils.Origin(page.URL)
	if err != nil {
		return nil, errors.New(errors.KindSemantic, "tour dates", err)
	}

	header := http.Header{}
	header.Set("Accept", "application/json, text/html, */*")
	header.Set("Referer", page.URL)
	header.Set("X-Requested-With", "XMLHttpRequest")

	body, err := f.Get(ctx, fmt.Sprintf("%s/tour/%s/tour-dates", origin, number), header)
	if err != nil {
		return nil, err
	}

	var payload struct {
		HTML *string `json:"html"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.New(errors.KindSemantic, "tour dates", fmt.Errorf("decode response: %w", err))
	}
	if payload.HTML == nil {
		return nil, errors.Newf(errors.KindStructural, "tour dates", "response has no html member")
	}

	dates, err := ParseDateFragment(*payload.HTML)
	if err != nil {
		return nil, errors.New(errors.KindSemantic, "tour dates", err)
	}
	return dates, nil
}
