package scraper

import (
	"context"
	"net/url"

	"github.com/si0411/tourextract/internal/tour"
)

// CurrencyContext is the currency a page must be priced in. The site keeps
// the preference in the session, so a fetch in a given currency is a form
// post to SwitchURL followed by a normal page load.
type CurrencyContext struct {
	Currency  tour.Currency
	FormValue string
	SwitchURL string
}

// currencyFormValues are the site's identifiers, in switching order.
var currencyFormValues = []struct {
	currency tour.Currency
	value    string
}{
	{tour.USD, "1"},
	{tour.NZD, "2"},
	{tour.GBP, "3"},
	{tour.EUR, "4"},
	{tour.CAD, "5"},
	{tour.AUD, "6"},
}

// CurrencyContexts returns one context per currency for the site at origin,
// restricted to only when it is non-empty.
func CurrencyContexts(origin string, only []tour.Currency) []CurrencyContext {
	allowed := make(map[tour.Currency]bool, len(only))
	for _, c := range only {
		allowed[c] = true
	}
	out := make([]CurrencyContext, 0, len(currencyFormValues))
	for _, cv := range currencyFormValues {
		if len(only) > 0 && !allowed[cv.currency] {
			continue
		}
		out = append(out, CurrencyContext{
			Currency:  cv.currency,
			FormValue: cv.value,
			SwitchURL: origin + "/change-currency",
		})
	}
	return out
}

// FetchInCurrency switches the session to cc and loads pageURL.
func FetchInCurrency(ctx context.Context, f Fetcher, pageURL string, cc CurrencyContext) (*Page, error) {
	if err := f.PostForm(ctx, cc.SwitchURL, url.Values{"currency": {cc.FormValue}}); err != nil {
		return nil, err
	}
	body, err := f.Get(ctx, pageURL, nil)
	if err != nil {
		return nil, err
	}
	return NewPage(pageURL, body)
}
