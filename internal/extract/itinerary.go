package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/si0411/tourextract/internal/scraper"
	"github.com/si0411/tourextract/internal/tour"
)

var dayNumberPattern = regexp.MustCompile(`(?i)Day (\d+)`)

var dayRoutes = []route[tour.Day]{
	{[]string{"meals included"}, func(d *tour.Day, v string) { d.MealsIncl = append(d.MealsIncl, splitList(v)...) }},
	{[]string{"activities included"}, func(d *tour.Day, v string) { d.ActivitiesIncl = append(d.ActivitiesIncl, splitList(v)...) }},
	{[]string{"room type"}, func(d *tour.Day, v string) { d.RoomType = v }},
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// dayNumber returns the day a card describes.
func dayNumber(card *goquery.Selection) (int, bool) {
	span := card.Find("span.card__content-day").First()
	if span.Length() == 0 {
		return 0, false
	}
	m := dayNumberPattern.FindStringSubmatch(scraper.Text(span))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// eachDayCard calls fn for every itinerary card with a day marker.
func eachDayCard(page *scraper.Page, fn func(day int, card *goquery.Selection)) {
	page.Find("article.card").Each(func(_ int, card *goquery.Selection) {
		if n, ok := dayNumber(card); ok {
			fn(n, card)
		}
	})
}

// ResolveItinerary parses every day card. A repeated day number keeps the
// last card.
func ResolveItinerary(page *scraper.Page) tour.Itinerary {
	it := tour.Itinerary{}
	eachDayCard(page, func(n int, card *goquery.Selection) {
		day := tour.NewDay()
		day.Title = scraper.Text(card.Find("h3.headline-3").First())
		if content := card.Find("div.content").First(); content.Length() > 0 {
			day.Desc = scraper.Text(content.Find("p").First())
		}
		labelledItems(card, func(label, value string) {
			dispatch(dayRoutes, &day, label, value)
		})
		it[n] = day
	})
	return it
}

// Itinerary extracts the day-by-day itinerary.
func Itinerary() Extractor {
	return pure("itinerary", func(page *scraper.Page) Patch {
		it := ResolveItinerary(page)
		return func(r *tour.Record) { r.Itinerary = it.Clone() }
	})
}
