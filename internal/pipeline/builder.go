// internal/pipeline/builder.go
package pipeline

import (
	"context"

	"github.com/si0411/tourextract/internal/errors"
	"github.com/si0411/tourextract/internal/extract"
	"github.com/si0411/tourextract/internal/monitoring"
	"github.com/si0411/tourextract/internal/scraper"
	"github.com/si0411/tourextract/internal/tour"
	"github.com/si0411/tourextract/internal/utils"
)

// Builder turns a fetched page into a record by applying extractor patches
// in a fixed order. Each patch sees a private copy of the accumulator, so a
// failing extractor leaves the record exactly as it was.
type Builder struct {
	extractors []extract.Extractor
	guard      *errors.Service
	settings
}

// NewBuilder creates a builder running extractors in the given order.
func NewBuilder(extractors []extract.Extractor, opts ...Option) *Builder {
	return &Builder{
		extractors: extractors,
		guard:      errors.NewService(),
		settings:   newSettings(opts),
	}
}

// Build never fails: categories that could not be extracted keep their
// defaults and are reported in the returned failures.
func (b *Builder) Build(ctx context.Context, page *scraper.Page) (tour.Record, []ExtractorFailure) {
	acc := tour.New(page.URL, utils.TourID(page.URL), b.now())
	logger := b.logger.WithField("url", page.URL)

	var failures []ExtractorFailure
	for _, e := range b.extractors {
		next, err := b.apply(ctx, acc, e, page)
		b.report(logger, e.Name(), err)
		if err != nil {
			failures = append(failures, ExtractorFailure{
				Extractor: e.Name(),
				Kind:      errors.KindOf(err).String(),
				Message:   err.Error(),
			})
		}
		acc = next
	}
	return Normalize(acc), failures
}

func (b *Builder) apply(ctx context.Context, acc tour.Record, e extract.Extractor, page *scraper.Page) (tour.Record, error) {
	var patch extract.Patch
	err := b.guard.Guard(e.Name(), func() error {
		var err error
		patch, err = e.Extract(ctx, page)
		return err
	})
	if patch == nil {
		return acc, err
	}

	next := acc.Clone()
	if perr := b.guard.Guard(e.Name(), func() error {
		patch(&next)
		return nil
	}); perr != nil {
		return acc, perr
	}
	return next, err
}

func (b *Builder) report(logger utils.Logger, name string, err error) {
	if b.metrics != nil {
		b.metrics.RecordExtractor(name, err)
	}
	if err == nil {
		return
	}
	l := logger.WithFields(map[string]interface{}{"extractor": name, "kind": errors.KindOf(err).String()})
	if errors.Is(err, errors.KindStructural) {
		l.Debugf("extractor found nothing: %v", err)
		return
	}
	l.Warnf("extractor failed: %v", err)
}

// PriceObserver reports per-currency outcomes of the price extractor.
func PriceObserver(logger utils.Logger, mm *monitoring.MetricsManager) func(tour.Currency, error) {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return func(c tour.Currency, err error) {
		if mm != nil {
			mm.RecordPrice(string(c), err)
		}
		if err != nil {
			logger.WithField("currency", string(c)).Warnf("price fetch failed: %v", err)
		}
	}
}
