package tour

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Dataset is the JSON document produced by a scrape. On disk it is either
// a bare list of entries or an object holding them under "tours"; the
// shape read is the shape written back.
type Dataset struct {
	Tours []Result

	wrapped bool
	extra   map[string]json.RawMessage
}

// NewDataset returns a bare-list dataset.
func NewDataset(results []Result) *Dataset {
	return &Dataset{Tours: results}
}

// Wrapped reports whether the dataset is an object with a "tours" key.
func (d *Dataset) Wrapped() bool { return d.wrapped }

// Records returns pointers to the successful records, in order.
func (d *Dataset) Records() []*Record {
	out := make([]*Record, 0, len(d.Tours))
	for i := range d.Tours {
		if d.Tours[i].Record != nil {
			out = append(out, d.Tours[i].Record)
		}
	}
	return out
}

// Find returns the record with the given id.
func (d *Dataset) Find(id string) (*Record, bool) {
	for _, r := range d.Records() {
		if r.TourID == id {
			return r, true
		}
	}
	return nil, false
}

// ReadDataset decodes either dataset shape.
func ReadDataset(r io.Reader) (*Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty dataset")
	}

	ds := &Dataset{}
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &ds.Tours); err != nil {
			return nil, fmt.Errorf("failed to decode tour list: %w", err)
		}
	case '{':
		if err := json.Unmarshal(data, &ds.extra); err != nil {
			return nil, fmt.Errorf("failed to decode dataset object: %w", err)
		}
		tours, ok := ds.extra["tours"]
		if !ok {
			return nil, fmt.Errorf("dataset object has no \"tours\" key")
		}
		if err := json.Unmarshal(tours, &ds.Tours); err != nil {
			return nil, fmt.Errorf("failed to decode tours: %w", err)
		}
		delete(ds.extra, "tours")
		ds.wrapped = true
	default:
		return nil, fmt.Errorf("dataset must be a JSON list or object")
	}
	return ds, nil
}

// LoadDataset reads a dataset file.
func LoadDataset(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadDataset(f)
}

// MarshalJSON writes the dataset in the shape it was read in.
func (d *Dataset) MarshalJSON() ([]byte, error) {
	tours := d.Tours
	if tours == nil {
		tours = []Result{}
	}
	if !d.wrapped {
		return json.Marshal(tours)
	}
	body, err := json.Marshal(tours)
	if err != nil {
		return nil, err
	}
	obj := make(map[string]json.RawMessage, len(d.extra)+1)
	for k, v := range d.extra {
		obj[k] = v
	}
	obj["tours"] = body
	return json.Marshal(obj)
}

// Encode writes the dataset indented by two spaces without HTML escaping.
func (d *Dataset) Encode(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(d)
}
