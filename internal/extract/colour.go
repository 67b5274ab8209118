package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/si0411/tourextract/internal/scraper"
	"github.com/si0411/tourextract/internal/tour"
)

type themeColour struct {
	name string
	hex  string
}

// themeColours are the site's colour tokens. Declared order breaks ties.
var themeColours = []themeColour{
	{"magenta", "a03a68"},
	{"lightpink", "f978d5"},
	{"burgundy", "ae2e69"},
	{"purple", "6c49ff"},
	{"orange", "ffc132"},
	{"blue", "36e0dc"},
	{"blue2", "3d90f4"},
	{"green", "0fba68"},
	{"green2", "269d73"},
	{"green3", "36e0a4"},
	{"red", "f50000"},
	{"red2", "ea1f3d"},
	{"yellow", "ffaf3b"},
	{"navyblue", "402df7"},
	{"orangeblood", "ff603b"},
	{"blurple", "f94171"},
}

var colourPrefixes = []string{"circle-fb-rate--", "l-submenu--", "bg-", "color-"}

// coloursBySpecificity lists tokens longest first so "orangeblood" is
// tried before "orange".
var coloursBySpecificity = func() []themeColour {
	names := make([]string, len(themeColours))
	byName := make(map[string]themeColour, len(themeColours))
	for i, c := range themeColours {
		names[i] = c.name
		byName[c.name] = c
	}
	out := make([]themeColour, 0, len(names))
	for _, n := range longestFirst(names) {
		out = append(out, byName[n])
	}
	return out
}()

func pageClasses(page *scraper.Page) []string {
	var classes []string
	page.Find("[class]").Each(func(_ int, s *goquery.Selection) {
		for _, c := range scraper.Classes(s) {
			classes = append(classes, strings.ToLower(c))
		}
	})
	return classes
}

// ResolveColour returns "#rrggbb" for the page theme, or "N/A".
func ResolveColour(page *scraper.Page) string {
	classes := pageClasses(page)

	for _, prefix := range colourPrefixes {
		for _, colour := range themeColours {
			pattern := prefix + colour.name
			for _, class := range classes {
				if strings.Contains(class, pattern) {
					return "#" + colour.hex
				}
			}
		}
	}

	counts := make(map[string]int)
	var order []themeColour
	for _, class := range classes {
		for _, colour := range coloursBySpecificity {
			if strings.Contains(class, "-"+colour.name) || strings.HasSuffix(class, colour.name) {
				if counts[colour.name] == 0 {
					order = append(order, colour)
				}
				counts[colour.name]++
				break
			}
		}
	}

	best := -1
	var winner themeColour
	for _, colour := range order {
		if counts[colour.name] > best {
			best = counts[colour.name]
			winner = colour
		}
	}
	if best > 0 {
		return "#" + winner.hex
	}
	return tour.ColourUnknown
}

// Colour extracts tour_colour.
func Colour() Extractor {
	return pure("colour", func(page *scraper.Page) Patch {
		colour := ResolveColour(page)
		return func(r *tour.Record) { r.TourColour = colour }
	})
}
