package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/si0411/tourextract/internal/tour"
)

func spaces(n int) *int { return &n }

func enriched(display string, left *int) tour.DateEntry {
	return tour.DateEntry{Date: display, Status: "Book Now", AvailableSpaces: left, Enriched: true}
}

func dataset() *tour.Dataset {
	now := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

	bali := tour.New("https://bt.test/group-tour-bali", "group-tour-bali", now)
	bali.TourName = "Bali"
	bali.TourColour = "#ff6600"
	bali.StartingDates = []tour.DateEntry{
		enriched("1 Sep - 14 Sep 2025 - Book Now", spaces(2)),  // started before today
		enriched("10 Oct - 23 Oct 2025 - Book Now", spaces(5)), // at threshold
		enriched("12 Oct - 25 Oct 2025 - Book Now", spaces(6)), // above threshold
		enriched("20 Oct - 2 Nov 2025 - Book Now", spaces(0)),  // sold out
		enriched("24 Oct - 6 Nov 2025 - Book Now", nil),        // unknown
		enriched("not a date", spaces(1)),                      // unparseable
		tour.Bare("28 Dec - 10 Jan 2026 - Limited"),            // not reconciled
		enriched("20 Sep - 3 Oct 2025 - Limited", spaces(1)),   // starts today
	}

	peru := tour.New("https://bt.test/group-tour-peru", "group-tour-peru", now)
	peru.TourName = "Peru"
	peru.StartingDates = []tour.DateEntry{enriched("5 Nov - 19 Nov 2025 - Book Now", spaces(9))}

	return tour.NewDataset([]tour.Result{{Record: &bali}, {URL: "https://bt.test/x", Err: "boom"}, {Record: &peru}})
}

func TestBuild(t *testing.T) {
	now := time.Date(2025, 9, 20, 15, 30, 0, 0, time.UTC)
	r := Build(dataset(), 5, now)

	require.Len(t, r.Tours, 1)
	bali := r.Tours[0]
	assert.Equal(t, "Bali", bali.Name)
	assert.Equal(t, "https://bt.test/group-tour-bali", bali.URL)
	assert.Equal(t, "#ff6600", bali.Colour)

	require.Len(t, bali.Dates, 2)
	assert.Equal(t, "10 Oct - 23 Oct 2025 - Book Now", bali.Dates[0].Display)
	assert.Equal(t, 5, bali.Dates[0].AvailableSpaces)
	assert.Equal(t, time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC), bali.Dates[0].Start)
	assert.Equal(t, "20 Sep - 3 Oct 2025 - Limited", bali.Dates[1].Display)
	assert.Equal(t, 2, r.Departures())
}

func TestBuildDefaultsThreshold(t *testing.T) {
	r := Build(dataset(), 0, time.Date(2025, 9, 20, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, DefaultThreshold, r.Threshold)

	r = Build(dataset(), 10, time.Date(2025, 9, 20, 0, 0, 0, 0, time.UTC))
	require.Len(t, r.Tours, 2)
	assert.Equal(t, "Peru", r.Tours[1].Name)
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Build(dataset(), 5, time.Date(2025, 9, 20, 0, 0, 0, 0, time.UTC)).WriteText(&buf))
	out := buf.String()
	assert.Contains(t, out, "2 departures across 1 tours")
	assert.Contains(t, out, "10 Oct - 23 Oct 2025")
	assert.Contains(t, out, "5 left")

	buf.Reset()
	require.NoError(t, Build(dataset(), 5, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)).WriteText(&buf))
	assert.True(t, strings.HasPrefix(buf.String(), "No upcoming departures"))
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Build(dataset(), 5, time.Date(2025, 9, 20, 0, 0, 0, 0, time.UTC)).WriteJSON(&buf))

	var decoded struct {
		Threshold int `json:"threshold"`
		Tours     []struct {
			Name  string `json:"tour_name"`
			Dates []struct {
				AvailableSpaces int `json:"available_spaces"`
			} `json:"dates"`
		} `json:"tours"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 5, decoded.Threshold)
	require.Len(t, decoded.Tours, 1)
	assert.Len(t, decoded.Tours[0].Dates, 2)
}
