package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/si0411/tourextract/internal/errors"
	"github.com/si0411/tourextract/internal/scraper"
	"github.com/si0411/tourextract/internal/tour"
	"github.com/si0411/tourextract/internal/utils"
)

// PriceOptions tunes the multi-currency price pass.
type PriceOptions struct {
	Currencies []tour.Currency
	Pause      time.Duration
	Timeout    time.Duration
	Floor      int
	// Observe, when set, is told the outcome of every currency.
	Observe func(c tour.Currency, err error)
}

// DefaultPriceOptions mirrors the site's expected pacing.
func DefaultPriceOptions() PriceOptions {
	return PriceOptions{
		Pause:   300 * time.Millisecond,
		Timeout: 8 * time.Second,
		Floor:   300,
	}
}

// HeadlinePrice returns the largest amount above floor in the page's
// price elements, or 0.
func HeadlinePrice(page *scraper.Page, c tour.Currency, floor int) int {
	best := 0
	page.Find("div, span").Each(func(_ int, s *goquery.Selection) {
		if !scraper.HasClassContaining(s, "price") {
			return
		}
		for _, n := range tour.ParseAmounts(scraper.Text(s), c) {
			if n > floor && n > best {
				best = n
			}
		}
	})
	return best
}

// Prices switches the session through each currency and reads the headline
// price. Currencies fail independently; the patch carries whatever was found.
func Prices(f scraper.Fetcher, opts PriceOptions) Extractor {
	return NewFunc("prices", func(ctx context.Context, page *scraper.Page) (Patch, error) {
		origin, err := utils.Origin(page.URL)
		if err != nil {
			return nil, errors.New(errors.KindSemantic, "prices", err)
		}

		// one switch per pause; rate.Every treats a zero pause as unlimited
		pause := rate.NewLimiter(rate.Every(opts.Pause), 1)

		found := map[tour.Currency]int{}
		var errs []error
		for _, cc := range scraper.CurrencyContexts(origin, opts.Currencies) {
			if err := pause.Wait(ctx); err != nil {
				errs = append(errs, err)
				break
			}
			price, err := priceIn(ctx, f, page.URL, cc, opts)
			if opts.Observe != nil {
				opts.Observe(cc.Currency, err)
			}
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", cc.Currency, err))
				continue
			}
			if price > 0 {
				found[cc.Currency] = price
			}
		}

		patch := func(r *tour.Record) {
			for c, v := range found {
				r.Price.Set(c, v)
			}
		}
		return patch, errors.Join(errs...)
	})
}

func priceIn(ctx context.Context, f scraper.Fetcher, pageURL string, cc scraper.CurrencyContext, opts PriceOptions) (int, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	priced, err := scraper.FetchInCurrency(ctx, f, pageURL, cc)
	if err != nil {
		return 0, err
	}
	return HeadlinePrice(priced, cc.Currency, opts.Floor), nil
}
