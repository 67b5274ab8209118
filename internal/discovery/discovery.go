// Package discovery finds tour detail URLs from sitemaps and listing
// pages and maintains the URL list consumed by scrape.
package discovery

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/si0411/tourextract/internal/scraper"
	"github.com/si0411/tourextract/internal/utils"
)

// DefaultExclusions are URL fragments that never belong to a tour page.
var DefaultExclusions = []string{
	"/blog", "/about", "/contact", "/faq", "/terms",
	"/privacy", "/login", "/register", ".jpg", ".png",
	".pdf", "/admin", "/api", "#", "?",
}

// Options selects the sources and the filter applied to what they yield.
type Options struct {
	Sitemaps     []string
	ListingPages []string
	// Patterns are substrings a tour URL must contain.
	Patterns []string
	// Exclude is added to DefaultExclusions.
	Exclude []string
	// GenericPages match a pattern but are index pages, not tours.
	GenericPages []string
	// Delay is waited after every fetch.
	Delay time.Duration
}

// Discoverer walks the configured sources. A source that cannot be fetched
// or parsed is logged and skipped.
type Discoverer struct {
	fetcher scraper.Fetcher
	opts    Options
	exclude []string
	generic map[string]bool
	logger  utils.Logger
}

// New creates a Discoverer.
func New(f scraper.Fetcher, opts Options, logger utils.Logger) *Discoverer {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	generic := make(map[string]bool, len(opts.GenericPages))
	for _, g := range opts.GenericPages {
		generic[strings.TrimRight(strings.TrimSpace(g), "/")] = true
	}
	var exclude []string
	for _, e := range append(append([]string{}, DefaultExclusions...), opts.Exclude...) {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			exclude = append(exclude, e)
		}
	}
	return &Discoverer{
		fetcher: f,
		opts:    opts,
		exclude: exclude,
		generic: generic,
		logger:  logger.WithField("component", "discovery"),
	}
}

// IsTarget reports whether rawURL is a tour detail page.
func (d *Discoverer) IsTarget(rawURL string) bool {
	u := strings.TrimSpace(rawURL)
	if u == "" {
		return false
	}
	if d.generic[strings.TrimRight(u, "/")] {
		return false
	}
	lower := strings.ToLower(u)
	for _, p := range d.opts.Patterns {
		if p == "" || !strings.Contains(u, p) {
			continue
		}
		return !utils.ContainsAny(lower, d.exclude...)
	}
	return false
}

// Discover returns the sorted, de-duplicated tour URLs. Only cancellation
// is reported as an error.
func (d *Discoverer) Discover(ctx context.Context) ([]string, error) {
	found := map[string]bool{}
	add := func(source string, urls []string) {
		n := 0
		for _, u := range urls {
			u = strings.TrimSpace(u)
			if d.IsTarget(u) && !found[u] {
				found[u] = true
				n++
			}
		}
		d.logger.WithField("source", source).Infof("found %d new tour URLs", n)
	}

	for _, sm := range d.opts.Sitemaps {
		locs, err := d.sitemap(ctx, sm, true)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			d.logger.WithField("source", sm).Warnf("sitemap skipped: %v", err)
			continue
		}
		add(sm, locs)
	}

	for _, lp := range d.opts.ListingPages {
		links, err := d.listing(ctx, lp)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			d.logger.WithField("source", lp).Warnf("listing page skipped: %v", err)
			continue
		}
		add(lp, links)
	}

	urls := make([]string, 0, len(found))
	for u := range found {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls, nil
}

// sitemap returns the page locations of a sitemap. A sitemap index is
// followed one level when follow is set.
func (d *Discoverer) sitemap(ctx context.Context, sitemapURL string, follow bool) ([]string, error) {
	body, err := d.fetch(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}
	locs, index, err := ParseSitemap(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if !index {
		return locs, nil
	}
	if !follow {
		return nil, nil
	}

	var out []string
	for _, nested := range locs {
		pages, err := d.sitemap(ctx, nested, false)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			d.logger.WithField("source", nested).Warnf("nested sitemap skipped: %v", err)
			continue
		}
		out = append(out, pages...)
	}
	return out, nil
}

func (d *Discoverer) listing(ctx context.Context, pageURL string) ([]string, error) {
	body, err := d.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	page, err := scraper.NewPage(pageURL, body)
	if err != nil {
		return nil, err
	}
	return ListingLinks(page), nil
}

func (d *Discoverer) fetch(ctx context.Context, target string) ([]byte, error) {
	body, err := d.fetcher.Get(ctx, target, nil)
	if err != nil {
		return nil, err
	}
	if d.opts.Delay > 0 {
		t := time.NewTimer(d.opts.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	return body, nil
}

// ParseSitemap returns every <loc> in a sitemap document and whether the
// document is a sitemap index.
func ParseSitemap(r io.Reader) (locs []string, index bool, err error) {
	decoder := xml.NewDecoder(r)
	inLoc := false
	var text strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, fmt.Errorf("invalid sitemap: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "sitemapindex":
				index = true
			case "loc":
				inLoc = true
				text.Reset()
			}
		case xml.CharData:
			if inLoc {
				text.Write(t)
			}
		case xml.EndElement:
			if t.Name.Local == "loc" && inLoc {
				inLoc = false
				if loc := strings.TrimSpace(text.String()); loc != "" {
					locs = append(locs, loc)
				}
			}
		}
	}
	return locs, index, nil
}

// ListingLinks returns the absolute targets of every link and tour card
// on a page.
func ListingLinks(page *scraper.Page) []string {
	var out []string
	page.Find("a[href], [data-tour-url]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			href, ok = s.Attr("data-tour-url")
		}
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		if abs := utils.ResolveURL(page.URL, href); abs != "" {
			out = append(out, abs)
		}
	})
	return utils.DedupeStrings(out)
}
