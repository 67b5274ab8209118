package tour

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	assert.Equal(t, Duration{Days: 12, Display: "12 Days"}, ParseDuration("12 Days"))
	assert.Equal(t, Duration{Days: 1, Display: "1 day"}, ParseDuration("1 day"))
	assert.Equal(t, Duration{Days: 0, Display: "about two weeks"}, ParseDuration("about two weeks"))
}

func TestParseAgeRange(t *testing.T) {
	assert.Equal(t, AgeRange{Min: 18, Max: 35, Display: "18-35"}, ParseAgeRange("18-35"))
	assert.Equal(t, AgeRange{Min: 25, Max: 0, Display: "25"}, ParseAgeRange("25"))
	assert.Equal(t, AgeRange{Display: "mixed"}, ParseAgeRange("mixed"))
}

func TestExtractNumber(t *testing.T) {
	assert.Equal(t, 14, ExtractNumber("14 activities"))
	assert.Equal(t, 0, ExtractNumber("none"))
}

func TestParseAmounts(t *testing.T) {
	assert.Equal(t, []int{1299, 150}, ParseAmounts("From $1,299 deposit $150", USD))
	assert.Equal(t, []int{999}, ParseAmounts("£999", GBP))
	assert.Equal(t, []int{1100}, ParseAmounts("€1,100", EUR))
	assert.Empty(t, ParseAmounts("£999", USD))
}

func TestPriceSetNeverNegative(t *testing.T) {
	var p PriceSet
	p.Set(USD, -5)
	p.Set(GBP, 1200)
	assert.Equal(t, 0, p.Get(USD))
	assert.Equal(t, 1200, p.Get(GBP))
}

func TestPriceSetNullsDecodeAsZero(t *testing.T) {
	var p PriceSet
	require.NoError(t, json.Unmarshal([]byte(`{"price_GBP":null,"price_USD":1500}`), &p))
	assert.Equal(t, PriceSet{USD: 1500}, p)
}

func TestPriceSetKeyOrder(t *testing.T) {
	body, err := json.Marshal(PriceSet{GBP: 1, USD: 2, EUR: 3, CAD: 4, AUD: 5, NZD: 6})
	require.NoError(t, err)
	assert.Equal(t, `{"price_GBP":1,"price_USD":2,"price_EUR":3,"price_CAD":4,"price_AUD":5,"price_NZD":6}`, string(body))
}

func TestItineraryOrderedKeys(t *testing.T) {
	it := Itinerary{10: NewDay(), 2: NewDay(), 1: NewDay()}
	body, err := json.Marshal(it)
	require.NoError(t, err)

	s := string(body)
	assert.Less(t, strings.Index(s, `"day1"`), strings.Index(s, `"day2"`))
	assert.Less(t, strings.Index(s, `"day2"`), strings.Index(s, `"day10"`))

	var back Itinerary
	require.NoError(t, json.Unmarshal(body, &back))
	assert.Equal(t, []int{1, 2, 10}, back.Days())
}

func TestDayFieldOrder(t *testing.T) {
	body, err := json.Marshal(NewDay())
	require.NoError(t, err)
	assert.Equal(t, `{"title":"","desc":"","meals_incl":[],"roomtype":"","activities_incl":[]}`, string(body))
}

func TestDateEntryForms(t *testing.T) {
	bare, err := json.Marshal(Bare("5 Jan - 18 Jan 2026 - Available"))
	require.NoError(t, err)
	assert.Equal(t, `"5 Jan - 18 Jan 2026 - Available"`, string(bare))

	spaces := 3
	enriched := DateEntry{Date: "5 Jan - 18 Jan 2026", Status: "Limited", AvailableSpaces: &spaces, Enriched: true}
	body, err := json.Marshal(enriched)
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"5 Jan - 18 Jan 2026","status":"Limited","available_spaces":3,"prices":null}`, string(body))

	var entries []DateEntry
	require.NoError(t, json.Unmarshal([]byte(`["a - b c d - Available", {"date":"x","status":"y","available_spaces":null,"prices":null}]`), &entries))
	require.Len(t, entries, 2)
	assert.False(t, entries[0].Enriched)
	assert.True(t, entries[1].Enriched)
	assert.Nil(t, entries[1].AvailableSpaces)
}

func TestNewRecordDefaults(t *testing.T) {
	rec := New("https://x.test/tour/vietnam", "vietnam_12345678", time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC))

	body, err := json.Marshal(rec)
	require.NoError(t, err)

	var generic map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &generic))
	assert.Equal(t, "2025-03-04", generic["last_updated"])
	assert.Equal(t, "active", generic["status"])
	assert.Equal(t, []interface{}{}, generic["starting_dates"])
	assert.NotContains(t, generic, "gallery")

	info := generic["tour_information"].(map[string]interface{})
	assert.Equal(t, []interface{}{}, info["included_items"])
	assert.Equal(t, []interface{}{}, info["activities_incl"])
}

func TestRecordCloneIsolation(t *testing.T) {
	rec := New("u", "id", time.Now())
	rec.TourInformation.IncludedItems = append(rec.TourInformation.IncludedItems, "Hostels")
	rec.Itinerary[1] = Day{Title: "Arrive", MealsIncl: []string{"Dinner"}}

	cp := rec.Clone()
	cp.TourInformation.IncludedItems[0] = "Hotels"
	day := cp.Itinerary[1]
	day.MealsIncl[0] = "Lunch"

	assert.Equal(t, "Hostels", rec.TourInformation.IncludedItems[0])
	assert.Equal(t, "Dinner", rec.Itinerary[1].MealsIncl[0])
}

func TestDatasetShapes(t *testing.T) {
	list := `[{"url":"https://x.test/a","error":"status 500"},{"tour_name":"Vietnam","tour_id":"v_1","url":"https://x.test/v","starting_dates":[],"itinerary":{},"price":{}}]`
	ds, err := ReadDataset(strings.NewReader(list))
	require.NoError(t, err)
	assert.False(t, ds.Wrapped())
	require.Len(t, ds.Tours, 2)
	assert.True(t, ds.Tours[0].Failed())
	assert.Equal(t, "status 500", ds.Tours[0].Err)
	require.Len(t, ds.Records(), 1)

	var buf bytes.Buffer
	require.NoError(t, ds.Encode(&buf))
	assert.True(t, strings.HasPrefix(strings.TrimSpace(buf.String()), "["))

	obj := `{"generated":"2025-01-01","tours":[{"tour_name":"Laos","tour_id":"l_1","url":"u"}]}`
	ds, err = ReadDataset(strings.NewReader(obj))
	require.NoError(t, err)
	assert.True(t, ds.Wrapped())

	buf.Reset()
	require.NoError(t, ds.Encode(&buf))
	var back map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, "2025-01-01", back["generated"])
	assert.Len(t, back["tours"], 1)

	rec, ok := ds.Find("l_1")
	require.True(t, ok)
	assert.Equal(t, "Laos", rec.TourName)
}
