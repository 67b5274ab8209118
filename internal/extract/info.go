package extract

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/si0411/tourextract/internal/scraper"
	"github.com/si0411/tourextract/internal/tour"
	"github.com/si0411/tourextract/internal/utils"
)

// infoRoutes maps tour-information labels to fields. Order matters: the
// first route whose keywords all appear in the label wins.
var infoRoutes = []route[tour.TourInformation]{
	{[]string{"activities", "no"}, func(ti *tour.TourInformation, v string) { ti.NumActivities = tour.ExtractNumber(v) }},
	{[]string{"meals", "no"}, func(ti *tour.TourInformation, v string) { ti.NumMeals = tour.ExtractNumber(v) }},
	{[]string{"operator"}, func(ti *tour.TourInformation, v string) { ti.Operator = v }},
	{[]string{"starting point"}, func(ti *tour.TourInformation, v string) { ti.StartingPoint = v }},
	{[]string{"ending point"}, func(ti *tour.TourInformation, v string) { ti.EndingPoint = v }},
	{[]string{"length"}, func(ti *tour.TourInformation, v string) { ti.Duration = tour.ParseDuration(v) }},
	{[]string{"age", "avg"}, func(ti *tour.TourInformation, v string) { ti.AgeRange = tour.ParseAgeRange(v) }},
	{[]string{"group size", "avg"}, func(ti *tour.TourInformation, v string) { ti.AvgGroupSize = v }},
}

var descriptionNoise = []string{"cookie", "privacy", "license", "terms", "copyright"}

// labelledItems calls fn for every info item below root that has both a
// <b> label and a <span> value.
func labelledItems(root *goquery.Selection, fn func(label, value string)) {
	root.Find("div.list-tour-info__item-desc").Each(func(_ int, item *goquery.Selection) {
		label := item.Find("b").First()
		value := item.Find("span").First()
		if label.Length() == 0 || value.Length() == 0 {
			return
		}
		fn(scraper.Text(label), scraper.Text(value))
	})
}

// TourInfo extracts the labelled key/value facts.
func TourInfo() Extractor {
	return pure("tour_info", func(page *scraper.Page) Patch {
		var info tour.TourInformation
		labelledItems(page.Doc.Selection, func(label, value string) {
			dispatch(infoRoutes, &info, label, value)
		})
		return func(r *tour.Record) {
			ti := &r.TourInformation
			ti.NumActivities = info.NumActivities
			ti.NumMeals = info.NumMeals
			ti.Operator = info.Operator
			ti.StartingPoint = info.StartingPoint
			ti.EndingPoint = info.EndingPoint
			ti.Duration = info.Duration
			ti.AgeRange = info.AgeRange
			ti.AvgGroupSize = info.AvgGroupSize
		}
	})
}

// ResolveDescription prefers a substantial meta description and falls back
// to the first paragraph of plausible length without legal boilerplate.
func ResolveDescription(page *scraper.Page) string {
	if meta := page.MetaContent("description"); len(meta) > 50 {
		return meta
	}
	var desc string
	page.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		text := scraper.Text(p)
		if len(text) > 100 && len(text) < 1000 && !utils.ContainsAny(strings.ToLower(text), descriptionNoise...) {
			desc = text
			return false
		}
		return true
	})
	return desc
}

// Description extracts tour_information.description.
func Description() Extractor {
	return pure("description", func(page *scraper.Page) Patch {
		desc := ResolveDescription(page)
		return func(r *tour.Record) { r.TourInformation.Description = desc }
	})
}

// ResolveReviewCount reads aggregateRating.reviewCount from the first
// structured-data block that has it. Malformed blocks are skipped.
func ResolveReviewCount(page *scraper.Page) int {
	count := 0
	page.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data map[string]interface{}
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}
		rating, ok := data["aggregateRating"].(map[string]interface{})
		if !ok {
			return true
		}
		if n := toInt(rating["reviewCount"]); n > 0 {
			count = n
			return false
		}
		return true
	})
	return count
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0
		}
		return i
	}
	return 0
}

// Reviews extracts num_reviews.
func Reviews() Extractor {
	return pure("reviews", func(page *scraper.Page) Patch {
		n := ResolveReviewCount(page)
		return func(r *tour.Record) { r.TourInformation.NumReviews = n }
	})
}

// IncludedExcluded extracts the first tick and cross lists.
func IncludedExcluded() Extractor {
	return pure("included_excluded", func(page *scraper.Page) Patch {
		included := scraper.ListItems(page.Find("ul.list-icon--tick").First())
		excluded := scraper.ListItems(page.Find("ul.list-icon--cross").First())
		return func(r *tour.Record) {
			r.TourInformation.IncludedItems = included
			r.TourInformation.ExcludedItems = excluded
		}
	})
}

var activitiesClassPattern = regexp.MustCompile(`list-icon\s+list-icon--tick\s+list-3-cols\s+list-mobile-limit.*js-limit-list`)

const activitiesExactClass = "list-icon list-icon--tick list-3-cols list-mobile-limit"

func firstUL(page *scraper.Page, match func(class string, ul *goquery.Selection) bool) (*goquery.Selection, bool) {
	var found *goquery.Selection
	page.Find("ul[class]").EachWithBreak(func(_ int, ul *goquery.Selection) bool {
		class, _ := ul.Attr("class")
		if match(class, ul) {
			found = ul
			return false
		}
		return true
	})
	return found, found != nil
}

func listStrategy(name string, locate func(*scraper.Page) (*goquery.Selection, bool)) Strategy[[]string] {
	return Strategy[[]string]{
		Name: name,
		Attempt: func(page *scraper.Page) ([]string, bool) {
			ul, ok := locate(page)
			if !ok {
				return nil, false
			}
			return utils.DedupeStrings(scraper.ListItems(ul)), true
		},
	}
}

// activitiesChain locates the three-column "activities included" list.
func activitiesChain() Chain[[]string] {
	return Chain[[]string]{
		Valid: func(items []string) bool { return len(items) > 0 },
		Strategies: []Strategy[[]string]{
			listStrategy("class-pattern", func(page *scraper.Page) (*goquery.Selection, bool) {
				return firstUL(page, func(class string, _ *goquery.Selection) bool {
					return activitiesClassPattern.MatchString(class)
				})
			}),
			listStrategy("exact-class", func(page *scraper.Page) (*goquery.Selection, bool) {
				return firstUL(page, func(class string, _ *goquery.Selection) bool {
					return strings.Join(strings.Fields(class), " ") == activitiesExactClass
				})
			}),
			listStrategy("three-columns", func(page *scraper.Page) (*goquery.Selection, bool) {
				ul := page.Find("ul.list-3-cols").First()
				if ul.Length() == 0 || ul.Find(".list-icon--tick").Length() == 0 {
					return nil, false
				}
				return ul, true
			}),
			listStrategy("tick-scan", func(page *scraper.Page) (*goquery.Selection, bool) {
				return firstUL(page, func(class string, ul *goquery.Selection) bool {
					return ul.HasClass("list-icon--tick") &&
						(ul.HasClass("list-3-cols") || strings.Contains(class, "js-limit-list"))
				})
			}),
		},
	}
}

// Activities extracts activities_incl.
func Activities() Extractor {
	return NewFunc("activities", func(_ context.Context, page *scraper.Page) (Patch, error) {
		items, _, ok := activitiesChain().Resolve(page)
		if !ok {
			return nil, errNotFound("activities list")
		}
		return func(r *tour.Record) { r.TourInformation.ActivitiesIncl = items }, nil
	})
}
