package extract

import (
	"context"

	"github.com/si0411/tourextract/internal/errors"
	"github.com/si0411/tourextract/internal/scraper"
	"github.com/si0411/tourextract/internal/tour"
)

// Patch is one extractor's contribution to a record.
type Patch func(*tour.Record)

// Extractor fills one category of the record. A non-nil patch is applied
// even when err is non-nil; err then describes what could not be filled.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, page *scraper.Page) (Patch, error)
}

// Func adapts a function to Extractor.
type Func struct {
	name string
	fn   func(ctx context.Context, page *scraper.Page) (Patch, error)
}

// NewFunc names an extraction function.
func NewFunc(name string, fn func(ctx context.Context, page *scraper.Page) (Patch, error)) Func {
	return Func{name: name, fn: fn}
}

func (f Func) Name() string { return f.name }

func (f Func) Extract(ctx context.Context, page *scraper.Page) (Patch, error) {
	return f.fn(ctx, page)
}

// pure wraps a side-effect-free, document-only extractor.
func pure(name string, fn func(page *scraper.Page) Patch) Func {
	return NewFunc(name, func(_ context.Context, page *scraper.Page) (Patch, error) {
		return fn(page), nil
	})
}

func errNotFound(what string) error {
	return errors.Newf(errors.KindStructural, "extract", "%s not found", what)
}

// Options selects and tunes the extractor set.
type Options struct {
	Prices  PriceOptions
	Images  bool
	Gallery bool
}

// Default returns the extractors in application order. Document-only
// extractors come first; those that issue requests through f come last.
func Default(f scraper.Fetcher, opts Options) []Extractor {
	list := []Extractor{
		Name(),
		TourInfo(),
		Description(),
		Reviews(),
		IncludedExcluded(),
		Activities(),
		Country(),
		SEO(),
		Colour(),
		Itinerary(),
	}
	if opts.Images {
		list = append(list, DayImages())
	}
	if opts.Gallery {
		list = append(list, Gallery(f))
	}
	return append(list, StartingDates(f), Prices(f, opts.Prices))
}
