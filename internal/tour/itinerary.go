package tour

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Image is a picture attached to an itinerary day.
type Image struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

// Day is one itinerary entry.
type Day struct {
	Title          string   `json:"title"`
	Desc           string   `json:"desc"`
	MealsIncl      []string `json:"meals_incl"`
	RoomType       string   `json:"roomtype"`
	ActivitiesIncl []string `json:"activities_incl"`
	Images         []Image  `json:"images,omitempty"`
}

// NewDay returns a day with empty, non-nil lists.
func NewDay() Day {
	return Day{MealsIncl: []string{}, ActivitiesIncl: []string{}}
}

// Itinerary maps 1-based day numbers to days. Numbering may be sparse.
type Itinerary map[int]Day

// Days returns the day numbers in ascending order.
func (it Itinerary) Days() []int {
	days := make([]int, 0, len(it))
	for d := range it {
		days = append(days, d)
	}
	sort.Ints(days)
	return days
}

// Clone deep-copies the itinerary.
func (it Itinerary) Clone() Itinerary {
	if it == nil {
		return nil
	}
	out := make(Itinerary, len(it))
	for n, d := range it {
		d.MealsIncl = cloneStrings(d.MealsIncl)
		d.ActivitiesIncl = cloneStrings(d.ActivitiesIncl)
		d.Images = append([]Image(nil), d.Images...)
		out[n] = d
	}
	return out
}

// MarshalJSON writes {"day1": ..., "day2": ...} in day order.
func (it Itinerary) MarshalJSON() ([]byte, error) {
	return marshalDayMap(it.Days(), func(n int) (interface{}, bool) {
		d, ok := it[n]
		return d, ok
	})
}

// UnmarshalJSON accepts "day<N>" keys.
func (it *Itinerary) UnmarshalJSON(data []byte) error {
	var raw map[string]Day
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Itinerary, len(raw))
	for key, day := range raw {
		n, err := parseDayKey(key)
		if err != nil {
			return err
		}
		out[n] = day
	}
	*it = out
	return nil
}

// GalleryImage is an entry from the tour's gallery page.
type GalleryImage struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
}

// Gallery groups gallery images by itinerary day.
type Gallery map[int][]GalleryImage

// MarshalJSON writes {"day1": [...]} in day order.
func (g Gallery) MarshalJSON() ([]byte, error) {
	days := make([]int, 0, len(g))
	for d := range g {
		days = append(days, d)
	}
	sort.Ints(days)
	return marshalDayMap(days, func(n int) (interface{}, bool) {
		imgs, ok := g[n]
		return imgs, ok
	})
}

// UnmarshalJSON accepts "day<N>" keys.
func (g *Gallery) UnmarshalJSON(data []byte) error {
	var raw map[string][]GalleryImage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Gallery, len(raw))
	for key, imgs := range raw {
		n, err := parseDayKey(key)
		if err != nil {
			return err
		}
		out[n] = imgs
	}
	*g = out
	return nil
}

// DayKey renders the JSON key for day n.
func DayKey(n int) string { return "day" + strconv.Itoa(n) }

func parseDayKey(key string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(key, "day"))
	if err != nil || !strings.HasPrefix(key, "day") {
		return 0, fmt.Errorf("invalid itinerary key %q", key)
	}
	return n, nil
}

func marshalDayMap(days []int, get func(int) (interface{}, bool)) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range days {
		v, _ := get(n)
		body, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(DayKey(n))
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(body)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
