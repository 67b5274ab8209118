package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/si0411/tourextract/internal/scraper"
	"github.com/si0411/tourextract/internal/tour"
)

const tourURL = "https://www.example.test/tour/backpacking-vietnam"

func loadFixture(t *testing.T, pageURL string) *scraper.Page {
	t.Helper()
	body, err := os.ReadFile("testdata/tour.html")
	require.NoError(t, err)
	page, err := scraper.NewPage(pageURL, body)
	require.NoError(t, err)
	return page
}

func pageOf(t *testing.T, pageURL, html string) *scraper.Page {
	t.Helper()
	page, err := scraper.NewPageFromString(pageURL, html)
	require.NoError(t, err)
	return page
}

func apply(t *testing.T, e Extractor, page *scraper.Page) tour.Record {
	t.Helper()
	rec := tour.New(page.URL, "id", time.Now())
	patch, err := e.Extract(context.Background(), page)
	require.NoError(t, err)
	require.NotNil(t, patch)
	patch(&rec)
	return rec
}

func TestChainShortCircuits(t *testing.T) {
	var calls []string
	strategy := func(name, value string, found bool) Strategy[string] {
		return Strategy[string]{Name: name, Attempt: func(*scraper.Page) (string, bool) {
			calls = append(calls, name)
			return value, found
		}}
	}
	chain := Chain[string]{
		Valid: func(s string) bool { return s != "bad" },
		Strategies: []Strategy[string]{
			strategy("missing", "", false),
			strategy("rejected", "bad", true),
			strategy("winner", "good", true),
			strategy("never", "other", true),
		},
	}

	value, name, ok := chain.Resolve(nil)
	assert.True(t, ok)
	assert.Equal(t, "good", value)
	assert.Equal(t, "winner", name)
	assert.Equal(t, []string{"missing", "rejected", "winner"}, calls)
}

func TestChainExhaustion(t *testing.T) {
	chain := Chain[int]{Strategies: []Strategy[int]{{Name: "none", Attempt: func(*scraper.Page) (int, bool) { return 0, false }}}}
	value, name, ok := chain.Resolve(nil)
	assert.False(t, ok)
	assert.Zero(t, value)
	assert.Empty(t, name)
}

func TestNameFromScopedHeading(t *testing.T) {
	assert.Equal(t, "Backpacking Vietnam Adventure", ResolveName(loadFixture(t, tourURL)))
}

func TestNameRejectsGenericHeading(t *testing.T) {
	page := pageOf(t, tourURL, `<html><body><h1>Tours</h1></body></html>`)
	assert.Equal(t, "", ResolveName(page))

	page = pageOf(t, tourURL, `<html><body><h1 class="page-title">Book your trip</h1><h1>Group Tours</h1></body></html>`)
	assert.Equal(t, "", ResolveName(page))
}

func TestNameFallsBackToTitleTag(t *testing.T) {
	page := pageOf(t, tourURL, `<html><head><title>Sri Lanka Explorer - BT</title></head><body><h1>Tours</h1></body></html>`)
	assert.Equal(t, "Sri Lanka Explorer", ResolveName(page))

	page = pageOf(t, tourURL, `<html><head><title>Cookie policy | Backpacking Tours</title></head><body></body></html>`)
	assert.Equal(t, "", ResolveName(page))

	page = pageOf(t, tourURL, `<html><head><title>Home | Backpacking Tours</title></head><body></body></html>`)
	assert.Equal(t, "", ResolveName(page))
}

func TestTourInfoRouting(t *testing.T) {
	rec := apply(t, TourInfo(), loadFixture(t, tourURL))
	info := rec.TourInformation

	assert.Equal(t, tour.Duration{Days: 21, Display: "21 Days"}, info.Duration)
	assert.Equal(t, tour.AgeRange{Min: 18, Max: 35, Display: "18-35"}, info.AgeRange)
	assert.Equal(t, 14, info.NumActivities)
	assert.Equal(t, 9, info.NumMeals)
	assert.Equal(t, "12-16", info.AvgGroupSize)
	assert.Equal(t, "Backpacking Tours", info.Operator)
	assert.Equal(t, "Hanoi", info.StartingPoint)
	assert.Equal(t, "Ho Chi Minh City", info.EndingPoint)
}

func TestDescription(t *testing.T) {
	assert.True(t, strings.HasPrefix(ResolveDescription(loadFixture(t, tourURL)), "Travel from Hanoi"))

	long := strings.Repeat("Rice terraces and mountain villages. ", 4)
	page := pageOf(t, tourURL, `<html><head><meta name="description" content="short"></head><body>
		<p>tiny</p>
		<p>`+strings.Repeat("We use cookies to improve your experience. ", 4)+`</p>
		<p>`+long+`</p></body></html>`)
	assert.Equal(t, strings.TrimSpace(long), ResolveDescription(page))
}

func TestReviewsSkipMalformedBlocks(t *testing.T) {
	assert.Equal(t, 128, ResolveReviewCount(loadFixture(t, tourURL)))

	page := pageOf(t, tourURL, `<script type="application/ld+json">[1,2]</script>`)
	assert.Equal(t, 0, ResolveReviewCount(page))
}

func TestIncludedExcludedAndActivities(t *testing.T) {
	page := loadFixture(t, tourURL)

	rec := apply(t, IncludedExcluded(), page)
	assert.Equal(t, []string{"Hostels", "Tour leader"}, rec.TourInformation.IncludedItems)
	assert.Equal(t, []string{"Flights"}, rec.TourInformation.ExcludedItems)

	rec = apply(t, Activities(), page)
	assert.Equal(t, []string{"Ha Long Bay cruise", "Cooking class"}, rec.TourInformation.ActivitiesIncl)
}

func TestActivitiesFallbacks(t *testing.T) {
	exact := `<ul class="list-icon list-icon--tick list-3-cols list-mobile-limit"><li>Snorkelling</li></ul>`
	items, name, ok := activitiesChain().Resolve(pageOf(t, tourURL, exact))
	require.True(t, ok)
	assert.Equal(t, "exact-class", name)
	assert.Equal(t, []string{"Snorkelling"}, items)

	nested := `<ul class="list-3-cols"><li class="list-icon--tick">Trekking</li></ul>`
	items, name, ok = activitiesChain().Resolve(pageOf(t, tourURL, nested))
	require.True(t, ok)
	assert.Equal(t, "three-columns", name)
	assert.Equal(t, []string{"Trekking"}, items)

	scan := `<ul class="list-icon--tick"><li>Other</li></ul><ul class="list-icon--tick js-limit-list"><li>Surfing</li></ul>`
	items, name, ok = activitiesChain().Resolve(pageOf(t, tourURL, scan))
	require.True(t, ok)
	assert.Equal(t, "tick-scan", name)
	assert.Equal(t, []string{"Surfing"}, items)

	_, err := Activities().Extract(context.Background(), pageOf(t, tourURL, `<p>none</p>`))
	assert.Error(t, err)
}

func TestCountryTiers(t *testing.T) {
	page := pageOf(t, "https://www.example.test/tour/backpacking-sri-lanka", `<a href="/blog/thailand">x</a>`)
	assert.Equal(t, "sri-lanka", ResolveCountry(page))

	page = pageOf(t, "https://www.example.test/tour/vietnam-cambodia-adventure", "")
	assert.Equal(t, "vietnam", ResolveCountry(page))

	page = pageOf(t, "https://www.example.test/tour/malaysia-singapore-explorer", "")
	assert.Equal(t, "malaysia", ResolveCountry(page))

	page = pageOf(t, "https://www.example.test/tour/island-hopper", `<a href="/blog/best-time"></a><a href="/blog/Philippines-guide">x</a>`)
	assert.Equal(t, "philippines", ResolveCountry(page))

	page = pageOf(t, "https://www.example.test/tour/temple-run", `<a href="/blog/top-10"></a><a href="/blog/ko"></a><a href="/blog/siem-reap-guide">x</a>`)
	assert.Equal(t, "cambodia", ResolveCountry(page))

	page = pageOf(t, "https://www.example.test/tour/temple-run", `<a href="/blog/hotel-reviews">x</a>`)
	assert.Equal(t, "", ResolveCountry(page))
}

func TestColourPriorityFollowsDeclaredOrder(t *testing.T) {
	// circle-fb-rate--green2 contains circle-fb-rate--green, declared first.
	assert.Equal(t, "#0fba68", ResolveColour(loadFixture(t, tourURL)))

	page := pageOf(t, tourURL, `<div class="bg-orangeblood"></div>`)
	assert.Equal(t, "#ffc132", ResolveColour(page))

	page = pageOf(t, tourURL, `<div class="bg-blue2"></div>`)
	assert.Equal(t, "#36e0dc", ResolveColour(page))

	page = pageOf(t, tourURL, `<div class="card-orangeblood"></div><span class="x-orangeblood"></span>`)
	assert.Equal(t, "#ff603b", ResolveColour(page), "counting prefers the longer token")
}

func TestColourCountFallback(t *testing.T) {
	page := pageOf(t, tourURL, `<div class="btn-red"></div><span class="x-blue"></span><span class="theme-blue"></span><i class="icon-red2"></i>`)
	assert.Equal(t, "#36e0dc", ResolveColour(page))

	page = pageOf(t, tourURL, `<div class="btn-red"></div><span class="x-blue"></span>`)
	assert.Equal(t, "#f50000", ResolveColour(page), "ties go to the first colour seen")

	page = pageOf(t, tourURL, `<div class="plain"></div>`)
	assert.Equal(t, tour.ColourUnknown, ResolveColour(page))
}

func TestSEO(t *testing.T) {
	seo := ResolveSEO(loadFixture(t, tourURL))
	assert.Equal(t, "Backpacking Vietnam Adventure | Backpacking Tours", seo.MetaTitle)
	assert.Equal(t, "vietnam, backpacking, group tour", seo.MetaKeywords)
	assert.Equal(t, map[string]string{
		"title": "Backpacking Vietnam Adventure",
		"image": "https://cdn.example.com/vietnam.jpg",
	}, seo.OpenGraph)
}

func TestItinerary(t *testing.T) {
	it := ResolveItinerary(loadFixture(t, tourURL))
	require.Equal(t, []int{1, 3}, it.Days())

	day1 := it[1]
	assert.Equal(t, "Arrive in Hanoi", day1.Title)
	assert.Equal(t, "Meet the group.", day1.Desc)
	assert.Equal(t, []string{"Brekfast", "Dinner"}, day1.MealsIncl)
	assert.Equal(t, "Dorm", day1.RoomType)
	assert.Equal(t, []string{}, day1.ActivitiesIncl)

	day3 := it[3]
	assert.Equal(t, []string{"Kayaking", "Cave visit"}, day3.ActivitiesIncl)
	assert.Equal(t, []string{}, day3.MealsIncl)
}

func TestDayImages(t *testing.T) {
	images := ResolveDayImages(loadFixture(t, tourURL))
	require.NotEmpty(t, images[1])
	assert.Equal(t, tour.Image{URL: "https://www.example.test/images/hanoi.jpg", Alt: "Hanoi"}, images[1][0])
	assert.Len(t, images[1], 1, "svg icons are dropped")
}

func TestCleanImagePath(t *testing.T) {
	assert.Equal(t, "/a/b.jpg", CleanImagePath("https://cdn.test/a/b.jpg?w=1#x"))
	assert.Equal(t, "/c.png", CleanImagePath("c.png"))
	assert.Equal(t, "", CleanImagePath("/img/arrow-left.png"))
	assert.Equal(t, "", CleanImagePath("/logo.svg"))
}

func TestParseGallery(t *testing.T) {
	page := pageOf(t, tourURL+"/gallery", `
		<button class="js-thumb-button" onclick="App.updatePreview(this, 'activities', 2)" data-popup-img-url="/g/kayak.jpg" data-description="Kayaking"></button>
		<button class="js-thumb-button" onclick="App.updatePreview(this, 'activities', 2)" data-popup-img-url="/g/kayak.jpg"></button>
		<button class="js-thumb-button" onclick="App.updatePreview(this, 'accommodation', 1)" data-popup-img-url="https://cdn.test/room.jpg"></button>
		<button class="js-thumb-button" onclick="other()" data-popup-img-url="/g/skip.jpg"></button>`)

	gallery := ParseGallery(page)
	require.Len(t, gallery, 2)
	assert.Equal(t, []tour.GalleryImage{{URL: "https://www.example.test/g/kayak.jpg", Description: "Kayaking", Type: "activities"}}, gallery[2])
	assert.Equal(t, "https://cdn.test/room.jpg", gallery[1][0].URL)
}

func TestAvailability(t *testing.T) {
	assert.Equal(t, tour.AvailabilityBookNow, Availability("Book now"))
	assert.Equal(t, tour.AvailabilityBookNow, Availability("3 places available"))
	assert.Equal(t, tour.AvailabilityNone, Availability("Sold out"))
	assert.Equal(t, tour.AvailabilityNone, Availability("Tour full"))
	assert.Equal(t, tour.AvailabilityLimited, Availability("Limited spaces"))
	assert.Equal(t, tour.AvailabilityOpen, Availability("$1,200"))
}

func TestParseDateFragment(t *testing.T) {
	fragment := `<table>
		<tr><th>Dates</th></tr>
		<tr><td>5 Jan - 25 Jan 2026</td><td>Book Now</td></tr>
		<tr><td>2 Feb - 22 Feb 2026</td><td>Sold out</td></tr>
		<tr><td>5 Jan - 25 Jan 2026</td><td>Book Now</td></tr>
		<tr><td>TBC</td></tr>
	</table>`
	dates, err := ParseDateFragment(fragment)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"5 Jan - 25 Jan 2026 - Book Now",
		"2 Feb - 22 Feb 2026 - No Availability",
	}, dates)

	dates, err = ParseDateFragment(`<div>Departures: 1 Mar - 21 Mar 2026 and 4 Apr - 24 Apr 2026</div>`)
	require.NoError(t, err)
	assert.Equal(t, []string{"1 Mar - 21 Mar 2026 - Available", "4 Apr - 24 Apr 2026 - Available"}, dates)
}

// siteServer fakes the tour page, its dates endpoint and the session
// currency switch.
func siteServer(t *testing.T, datesBody string) (*httptest.Server, *sync.Map) {
	t.Helper()
	hits := &sync.Map{}
	mux := http.NewServeMux()
	mux.HandleFunc("/tour/4821/tour-dates", func(w http.ResponseWriter, r *http.Request) {
		hits.Store("dates-xhr", r.Header.Get("X-Requested-With"))
		hits.Store("dates-referer", r.Header.Get("Referer"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(datesBody))
	})
	mux.HandleFunc("/change-currency", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		http.SetCookie(w, &http.Cookie{Name: "cur", Value: r.Form.Get("currency"), Path: "/"})
	})
	mux.HandleFunc("/tour/backpacking-vietnam", func(w http.ResponseWriter, r *http.Request) {
		c, _ := r.Cookie("cur")
		value := ""
		if c != nil {
			value = c.Value
		}
		switch value {
		case "1":
			fmt.Fprint(w, `<div class="tour-price">From $1,899 <span class="price-old">$2,100</span> deposit $150</div>`)
		case "3":
			fmt.Fprint(w, `<span class="price">£1,450</span>`)
		case "4":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			fmt.Fprint(w, `<span class="price">$250</span>`)
		}
	})
	return httptest.NewServer(mux), hits
}

func newClient(t *testing.T) *scraper.HTTPClient {
	t.Helper()
	client, err := scraper.NewHTTPClient(scraper.ClientConfig{RateLimit: 1000, RateBurst: 10, Timeout: 5 * time.Second})
	require.NoError(t, err)
	return client
}

func TestStartingDatesFetch(t *testing.T) {
	server, hits := siteServer(t, `{"html":"<table><tr><td>5 Jan - 25 Jan 2026</td><td>Limited</td></tr></table>"}`)
	defer server.Close()

	page := loadFixture(t, server.URL+"/tour/backpacking-vietnam")
	rec := apply(t, StartingDates(newClient(t)), page)

	require.Len(t, rec.StartingDates, 1)
	assert.Equal(t, "5 Jan - 25 Jan 2026 - Limited", rec.StartingDates[0].Date)
	assert.False(t, rec.StartingDates[0].Enriched)

	xhr, _ := hits.Load("dates-xhr")
	assert.Equal(t, "XMLHttpRequest", xhr)
	referer, _ := hits.Load("dates-referer")
	assert.Equal(t, page.URL, referer)
}

func TestStartingDatesFailureGivesEmptyList(t *testing.T) {
	server, _ := siteServer(t, `not json`)
	defer server.Close()

	page := loadFixture(t, server.URL+"/tour/backpacking-vietnam")
	rec := tour.New(page.URL, "id", time.Now())
	rec.StartingDates = nil

	patch, err := StartingDates(newClient(t)).Extract(context.Background(), page)
	assert.Error(t, err)
	require.NotNil(t, patch)
	patch(&rec)
	assert.NotNil(t, rec.StartingDates)
	assert.Empty(t, rec.StartingDates)

	noID := pageOf(t, server.URL+"/tour/backpacking-vietnam", `<h1>No id here</h1>`)
	_, err = StartingDates(newClient(t)).Extract(context.Background(), noID)
	assert.Error(t, err)
}

func TestPricesPerCurrencyIsolation(t *testing.T) {
	server, _ := siteServer(t, `{}`)
	defer server.Close()

	observed := map[tour.Currency]error{}
	opts := PriceOptions{
		Currencies: []tour.Currency{tour.USD, tour.GBP, tour.EUR, tour.NZD},
		Timeout:    2 * time.Second,
		Floor:      300,
		Observe:    func(c tour.Currency, err error) { observed[c] = err },
	}

	page := pageOf(t, server.URL+"/tour/backpacking-vietnam", `<html></html>`)
	patch, err := Prices(newClient(t), opts).Extract(context.Background(), page)
	require.NotNil(t, patch)
	require.Error(t, err, "EUR page fails")
	assert.Contains(t, err.Error(), "EUR")

	rec := tour.New(page.URL, "id", time.Now())
	patch(&rec)
	assert.Equal(t, 2100, rec.Price.USD)
	assert.Equal(t, 1450, rec.Price.GBP)
	assert.Equal(t, 0, rec.Price.EUR)
	assert.Equal(t, 0, rec.Price.NZD, "amounts at or below the floor are ignored")

	assert.Len(t, observed, 4)
	assert.Error(t, observed[tour.EUR])
	assert.NoError(t, observed[tour.USD])
}

func TestPricesPause(t *testing.T) {
	server, _ := siteServer(t, `{}`)
	defer server.Close()

	opts := PriceOptions{Currencies: []tour.Currency{tour.USD, tour.GBP, tour.NZD}, Pause: 40 * time.Millisecond, Floor: 300}
	page := pageOf(t, server.URL+"/tour/backpacking-vietnam", `<html></html>`)

	start := time.Now()
	_, err := Prices(newClient(t), opts).Extract(context.Background(), page)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestDefaultOrder(t *testing.T) {
	names := func(list []Extractor) []string {
		var out []string
		for _, e := range list {
			out = append(out, e.Name())
		}
		return out
	}

	base := names(Default(newClient(t), Options{}))
	assert.Equal(t, "name", base[0])
	assert.Equal(t, []string{"starting_dates", "prices"}, base[len(base)-2:])
	assert.NotContains(t, base, "gallery")

	full := names(Default(newClient(t), Options{Images: true, Gallery: true}))
	assert.Contains(t, full, "day_images")
	assert.Contains(t, full, "gallery")
}
