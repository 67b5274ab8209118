package extract

import (
	"regexp"
	"strings"

	"github.com/si0411/tourextract/internal/scraper"
	"github.com/si0411/tourextract/internal/tour"
)

var (
	genericHeadings = map[string]bool{
		"tours":             true,
		"tour":              true,
		"backpacking tours": true,
		"group tours":       true,
		"backpacking":       true,
		"adventure":         true,
	}

	titleSuffixes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\s*[-|]\s*Backpacking Tours.*$`),
		regexp.MustCompile(`(?i)\s*[-|]\s*BT.*$`),
	}

	headingSelectors = []string{
		".hero__content h1",
		".tour-header h1",
		"h1.tour-title",
		".page-header h1",
		`h1[class*="title"]`,
		`h1[class*="heading"]`,
		"h1",
	}
)

func validHeading(name string) bool {
	lower := strings.ToLower(name)
	return len(name) > 3 &&
		!genericHeadings[lower] &&
		!strings.HasPrefix(lower, "book") &&
		!strings.HasSuffix(lower, "tours")
}

func validTitleTag(name string) bool {
	lower := strings.ToLower(name)
	if lower == "home" || lower == "book" {
		return false
	}
	return len(name) > 3 &&
		!genericHeadings[lower] &&
		!strings.HasPrefix(lower, "book") &&
		!strings.Contains(lower, "cookie")
}

func selectorText(selector string) Strategy[string] {
	return Strategy[string]{
		Name: selector,
		Attempt: func(page *scraper.Page) (string, bool) {
			sel := page.Find(selector).First()
			if sel.Length() == 0 {
				return "", false
			}
			return scraper.Text(sel), true
		},
	}
}

// nameChain prefers scoped headings and falls back to the <title> tag with
// the site suffix removed. The title tag carries its own validator.
func nameChain() []Chain[string] {
	headings := Chain[string]{Valid: validHeading}
	for _, sel := range headingSelectors {
		headings.Strategies = append(headings.Strategies, selectorText(sel))
	}

	title := Chain[string]{
		Valid: validTitleTag,
		Strategies: []Strategy[string]{{
			Name: "title",
			Attempt: func(page *scraper.Page) (string, bool) {
				sel := page.Find("title").First()
				if sel.Length() == 0 {
					return "", false
				}
				text := scraper.Text(sel)
				for _, suffix := range titleSuffixes {
					text = suffix.ReplaceAllString(text, "")
				}
				return strings.TrimSpace(text), true
			},
		}},
	}
	return []Chain[string]{headings, title}
}

// ResolveName runs the tour-name chains and returns "" when none matches.
func ResolveName(page *scraper.Page) string {
	for _, chain := range nameChain() {
		if name, _, ok := chain.Resolve(page); ok {
			return name
		}
	}
	return ""
}

// Name extracts tour_name.
func Name() Extractor {
	return pure("name", func(page *scraper.Page) Patch {
		name := ResolveName(page)
		return func(r *tour.Record) { r.TourName = name }
	})
}
