package tour

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Availability labels attached to departures by the site.
const (
	AvailabilityBookNow = "Book Now"
	AvailabilityNone    = "No Availability"
	AvailabilityLimited = "Limited"
	AvailabilityOpen    = "Available"
)

// DateEntry is one departure. Before reconciliation only Date is set and
// the entry serialises as the bare display string
// "<start> - <end> <year> - <status>". After reconciliation it serialises
// as {date, status, available_spaces, prices}.
type DateEntry struct {
	Date            string
	Status          string
	AvailableSpaces *int
	Prices          *PriceMatrix
	Enriched        bool
}

// Bare wraps a display string.
func Bare(display string) DateEntry {
	return DateEntry{Date: display}
}

// Clone deep-copies the entry.
func (d DateEntry) Clone() DateEntry {
	out := d
	if d.AvailableSpaces != nil {
		v := *d.AvailableSpaces
		out.AvailableSpaces = &v
	}
	if d.Prices != nil {
		m := d.Prices.Clone()
		out.Prices = &m
	}
	return out
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

type enrichedDate struct {
	Date            string       `json:"date"`
	Status          string       `json:"status"`
	AvailableSpaces *int         `json:"available_spaces"`
	Prices          *PriceMatrix `json:"prices"`
}

// MarshalJSON writes the bare string or the enriched object.
func (d DateEntry) MarshalJSON() ([]byte, error) {
	if !d.Enriched {
		return json.Marshal(d.Date)
	}
	return json.Marshal(enrichedDate{
		Date:            d.Date,
		Status:          d.Status,
		AvailableSpaces: d.AvailableSpaces,
		Prices:          d.Prices,
	})
}

// UnmarshalJSON accepts either form.
func (d *DateEntry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty date entry")
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = Bare(s)
		return nil
	}
	var e enrichedDate
	if err := json.Unmarshal(data, &e); err != nil {
		return err
	}
	*d = DateEntry{
		Date:            e.Date,
		Status:          e.Status,
		AvailableSpaces: e.AvailableSpaces,
		Prices:          e.Prices,
		Enriched:        true,
	}
	return nil
}
