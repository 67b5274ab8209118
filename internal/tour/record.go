// Package tour defines the canonical tour record and the typed field
// parsers that feed it.
package tour

import (
	"encoding/json"
	"time"
)

const (
	// StatusActive is the only status the extractor emits.
	StatusActive = "active"
	// ColourUnknown marks a page without a recognisable theme colour.
	ColourUnknown = "N/A"
	// DateLayout is the layout of Record.LastUpdated.
	DateLayout = "2006-01-02"
)

// Record is one tour as consumed by the viewer.
type Record struct {
	TourName        string          `json:"tour_name"`
	TourID          string          `json:"tour_id"`
	URL             string          `json:"url"`
	Country         string          `json:"country"`
	LastUpdated     string          `json:"last_updated"`
	Status          string          `json:"status"`
	TourColour      string          `json:"tour_colour"`
	SEO             SEOData         `json:"seo_data"`
	TourInformation TourInformation `json:"tour_information"`
	Itinerary       Itinerary       `json:"itinerary"`
	StartingDates   []DateEntry     `json:"starting_dates"`
	Price           PriceSet        `json:"price"`
	Gallery         Gallery         `json:"gallery,omitempty"`
}

// SEOData holds page metadata.
type SEOData struct {
	MetaTitle       string            `json:"meta_title"`
	MetaDescription string            `json:"meta_description"`
	MetaKeywords    string            `json:"meta_keywords"`
	OpenGraph       map[string]string `json:"open_graph"`
}

// Duration is the parsed tour length.
type Duration struct {
	Days    int    `json:"days"`
	Display string `json:"display"`
}

// AgeRange is the parsed average age range. A single number sets Min only.
type AgeRange struct {
	Min     int    `json:"min"`
	Max     int    `json:"max"`
	Display string `json:"display"`
}

// TourInformation is the descriptive block of a record.
type TourInformation struct {
	Description    string   `json:"description"`
	Duration       Duration `json:"duration"`
	AgeRange       AgeRange `json:"age_range"`
	NumActivities  int      `json:"num_activities"`
	NumMeals       int      `json:"num_meals"`
	AvgGroupSize   string   `json:"avg_group_size"`
	Operator       string   `json:"operator"`
	StartingPoint  string   `json:"starting_point"`
	EndingPoint    string   `json:"ending_point"`
	NumReviews     int      `json:"num_reviews"`
	IncludedItems  []string `json:"included_items"`
	ExcludedItems  []string `json:"excluded_items"`
	ActivitiesIncl []string `json:"activities_incl"`
}

// New returns a record with identity fields set and every list empty.
func New(url string, id string, now time.Time) Record {
	return Record{
		TourID:      id,
		URL:         url,
		LastUpdated: now.Format(DateLayout),
		Status:      StatusActive,
		TourColour:  ColourUnknown,
		SEO:         SEOData{OpenGraph: map[string]string{}},
		TourInformation: TourInformation{
			IncludedItems:  []string{},
			ExcludedItems:  []string{},
			ActivitiesIncl: []string{},
		},
		Itinerary:     Itinerary{},
		StartingDates: []DateEntry{},
	}
}

// Clone returns a deep copy so patches never alias another record.
func (r Record) Clone() Record {
	out := r
	out.SEO.OpenGraph = make(map[string]string, len(r.SEO.OpenGraph))
	for k, v := range r.SEO.OpenGraph {
		out.SEO.OpenGraph[k] = v
	}
	out.TourInformation.IncludedItems = cloneStrings(r.TourInformation.IncludedItems)
	out.TourInformation.ExcludedItems = cloneStrings(r.TourInformation.ExcludedItems)
	out.TourInformation.ActivitiesIncl = cloneStrings(r.TourInformation.ActivitiesIncl)
	out.Itinerary = r.Itinerary.Clone()
	if r.StartingDates != nil {
		out.StartingDates = make([]DateEntry, len(r.StartingDates))
		for i, d := range r.StartingDates {
			out.StartingDates[i] = d.Clone()
		}
	}
	if r.Gallery != nil {
		out.Gallery = make(Gallery, len(r.Gallery))
		for day, imgs := range r.Gallery {
			out.Gallery[day] = append([]GalleryImage(nil), imgs...)
		}
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append(make([]string, 0, len(in)), in...)
}

// Result is one dataset entry: a record, or the failure of its page fetch.
type Result struct {
	Record *Record
	URL    string
	Err    string
}

// Failed reports whether the entry is an error entry.
func (r Result) Failed() bool { return r.Record == nil }

// MarshalJSON writes either the full record or {url, error}.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Record != nil {
		return json.Marshal(r.Record)
	}
	return json.Marshal(struct {
		URL   string `json:"url"`
		Error string `json:"error"`
	}{r.URL, r.Err})
}

// UnmarshalJSON detects error entries by their "error" key.
func (r *Result) UnmarshalJSON(data []byte) error {
	var probe struct {
		URL   string  `json:"url"`
		Error *string `json:"error"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.Error != nil {
		*r = Result{URL: probe.URL, Err: *probe.Error}
		return nil
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	*r = Result{Record: &rec, URL: rec.URL}
	return nil
}
