// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/si0411/tourextract/internal/errors"
	"github.com/si0411/tourextract/internal/scraper"
	"github.com/si0411/tourextract/internal/tour"
)

// Runner scrapes a list of tour URLs one at a time. Currency switching
// mutates session state on the server, so tours are never processed
// concurrently.
type Runner struct {
	fetcher scraper.Fetcher
	builder *Builder
	settings
}

// NewRunner creates a runner fetching pages through f.
func NewRunner(f scraper.Fetcher, b *Builder, opts ...Option) *Runner {
	return &Runner{fetcher: f, builder: b, settings: newSettings(opts)}
}

// Scrape fetches and builds one tour. Only a failed page fetch makes the
// result an error entry.
func (r *Runner) Scrape(ctx context.Context, pageURL string) (tour.Result, Entry) {
	start := time.Now()
	entry := Entry{URL: pageURL}

	body, err := r.fetcher.Get(ctx, pageURL, nil)
	if r.metrics != nil {
		r.metrics.ObserveFetch(time.Since(start), err)
	}
	if err == nil {
		var page *scraper.Page
		page, err = scraper.NewPage(pageURL, body)
		if err == nil {
			rec, failures := r.builder.Build(ctx, page)
			entry.Failures = failures
			entry.Duration = time.Since(start)
			return tour.Result{Record: &rec}, entry
		}
		err = errors.New(errors.KindFatal, "parse page", err).WithURL(pageURL)
	}

	entry.Fatal = err.Error()
	entry.Duration = time.Since(start)
	return tour.Result{URL: pageURL, Err: err.Error()}, entry
}

// Run processes urls in order and returns the dataset with one entry per
// URL. Cancelling ctx stops the run after the current tour.
func (r *Runner) Run(ctx context.Context, urls []string) (*tour.Dataset, Summary) {
	summary := Summary{RunID: uuid.New().String(), Total: len(urls)}
	logger := r.logger.WithField("run_id", summary.RunID)
	logger.Infof("starting scrape of %d tours", len(urls))

	start := time.Now()
	results := make([]tour.Result, 0, len(urls))
	for i, u := range urls {
		if err := ctx.Err(); err != nil {
			logger.Warnf("run cancelled after %d of %d tours: %v", i, len(urls), err)
			break
		}

		result, entry := r.Scrape(ctx, u)
		results = append(results, result)

		l := logger.WithFields(map[string]interface{}{"url": u, "duration": entry.Duration.String()})
		switch {
		case entry.Fatal != "":
			summary.Failed++
			l.Errorf("tour fetch failed: %s", entry.Fatal)
		case len(entry.Failures) > 0:
			summary.Succeeded++
			summary.Degraded++
			l.WithField("failures", len(entry.Failures)).Infof("scraped %s with missing categories", result.Record.TourName)
		default:
			summary.Succeeded++
			l.Infof("scraped %s", result.Record.TourName)
		}
		if r.metrics != nil {
			var err error
			if entry.Fatal != "" {
				err = errors.Newf(errors.KindFatal, "scrape", "%s", entry.Fatal)
			}
			r.metrics.RecordTour(err)
		}
		if r.onEntry != nil {
			r.onEntry(i+1, len(urls), entry)
		}
	}

	summary.Duration = time.Since(start)
	logger.WithFields(map[string]interface{}{
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
		"degraded":  summary.Degraded,
	}).Infof("scrape finished in %s", summary.Duration.Round(time.Millisecond))
	return tour.NewDataset(results), summary
}
