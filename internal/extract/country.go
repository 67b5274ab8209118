package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/si0411/tourextract/internal/scraper"
	"github.com/si0411/tourextract/internal/tour"
	"github.com/si0411/tourextract/internal/utils"
)

var (
	// Multi-word names come first; the rest is in priority order, so a
	// slug naming two countries resolves to the earlier one.
	slugCountries = []string{
		"new-zealand", "south-korea", "costa-rica", "south-africa", "sri-lanka",
		"thailand", "philippines", "vietnam", "cambodia", "indonesia", "malaysia",
		"singapore", "australia", "colombia", "morocco", "india", "japan", "bali",
		"laos", "myanmar", "brunei", "croatia", "mexico", "peru", "nepal",
	}

	blogCountries = []string{
		"thailand", "bali", "vietnam", "cambodia", "philippines", "sri-lanka",
		"india", "laos", "myanmar", "indonesia", "malaysia", "singapore",
		"brunei", "south-korea", "new-zealand", "costa-rica", "south-africa",
	}
	blogCountryPatterns = compileBlogPatterns(blogCountries)

	blogLinkPattern  = regexp.MustCompile(`(?i)/blog/\w+`)
	blogTokenPattern = regexp.MustCompile(`(?i)/blog/([^-/]+)`)

	nonCountryTerms = map[string]bool{
		"recognised": true, "top": true, "gap": true, "year": true, "provider": true,
		"overseas": true, "hotel": true, "hostel": true, "weather": true, "best": true,
		"time": true, "visit": true, "national": true, "park": true, "floating": true,
		"bungalows": true, "train": true, "night": true, "home": true, "index": true,
		"main": true, "blog": true, "about": true, "contact": true, "terms": true,
		"privacy": true, "booking": true,
	}

	cityCountries = map[string]string{
		"bangkok":      "thailand",
		"hanoi":        "vietnam",
		"saigon":       "vietnam",
		"ho":           "vietnam",
		"siem":         "cambodia",
		"phnom":        "cambodia",
		"manila":       "philippines",
		"jakarta":      "indonesia",
		"kuala":        "malaysia",
		"colombo":      "sri-lanka",
		"kanchanaburi": "thailand",
		"krabi":        "thailand",
		"phuket":       "thailand",
		"erawan":       "thailand",
		"khao":         "thailand",
		"koh":          "thailand",
		"amaphawa":     "thailand",
	}
)

func longestFirst(tokens []string) []string {
	out := append([]string(nil), tokens...)
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

func compileBlogPatterns(countries []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(countries))
	for i, c := range countries {
		out[i] = regexp.MustCompile(`(?i)/blog/` + regexp.QuoteMeta(c))
	}
	return out
}

func hrefs(page *scraper.Page) []string {
	var out []string
	page.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		out = append(out, href)
	})
	return out
}

// countryChain infers the destination from the URL slug, then from links to
// country blog pages, then from any blog link naming a city or country.
func countryChain() Chain[string] {
	return Chain[string]{
		Valid: func(c string) bool { return c != "" },
		Strategies: []Strategy[string]{
			{Name: "url-slug", Attempt: func(page *scraper.Page) (string, bool) {
				slug := strings.ToLower(utils.URLSlug(page.URL))
				for _, country := range slugCountries {
					if strings.Contains(slug, country) {
						return country, true
					}
				}
				return "", false
			}},
			{Name: "blog-country-link", Attempt: func(page *scraper.Page) (string, bool) {
				links := hrefs(page)
				for i, pattern := range blogCountryPatterns {
					for _, href := range links {
						if pattern.MatchString(href) {
							return blogCountries[i], true
						}
					}
				}
				return "", false
			}},
			{Name: "blog-token", Attempt: func(page *scraper.Page) (string, bool) {
				for _, href := range hrefs(page) {
					if !blogLinkPattern.MatchString(href) {
						continue
					}
					m := blogTokenPattern.FindStringSubmatch(strings.ToLower(href))
					if m == nil {
						continue
					}
					token := m[1]
					if nonCountryTerms[token] || len(token) <= 2 {
						continue
					}
					if country, ok := cityCountries[token]; ok {
						return country, true
					}
					return token, true
				}
				return "", false
			}},
		},
	}
}

// ResolveCountry returns the inferred country or "".
func ResolveCountry(page *scraper.Page) string {
	country, _, _ := countryChain().Resolve(page)
	return country
}

// Country extracts the country field.
func Country() Extractor {
	return pure("country", func(page *scraper.Page) Patch {
		country := ResolveCountry(page)
		return func(r *tour.Record) { r.Country = country }
	})
}
