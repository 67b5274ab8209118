// internal/output/json.go
package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/si0411/tourextract/internal/tour"
)

// JSONWriter writes the canonical dataset file.
type JSONWriter struct {
	filename string
}

// NewJSONWriter creates a new JSON writer
func NewJSONWriter(filename string) (*JSONWriter, error) {
	if filename == "" {
		return nil, fmt.Errorf("JSON file path is required")
	}
	return &JSONWriter{filename: filename}, nil
}

// Name implements Writer.
func (w *JSONWriter) Name() string { return "json" }

// Write replaces the file atomically: the dataset is written to a
// sibling temp file which is then renamed over the target.
func (w *JSONWriter) Write(_ context.Context, ds *tour.Dataset) error {
	return writeFileAtomic(w.filename, func(f *os.File) error {
		return ds.Encode(f)
	})
}

// Close implements Writer.
func (w *JSONWriter) Close() error { return nil }

// writeFileAtomic creates the parent directory, fills a temp file with
// fill and renames it into place.
func writeFileAtomic(filename string, fill func(*os.File) error) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filename)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := fill(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filename)
}
