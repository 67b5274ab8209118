// internal/output/yaml.go
package output

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/si0411/tourextract/internal/tour"
)

// YAMLWriter mirrors the dataset as a YAML document with the same keys,
// in the same order, as the JSON file.
type YAMLWriter struct {
	filename string
	indent   int
}

// NewYAMLWriter creates a new YAML writer
func NewYAMLWriter(filename string) (*YAMLWriter, error) {
	if filename == "" {
		return nil, fmt.Errorf("YAML file path is required")
	}
	return &YAMLWriter{filename: filename, indent: 2}, nil
}

// Name implements Writer.
func (w *YAMLWriter) Name() string { return "yaml" }

// Write implements Writer.
func (w *YAMLWriter) Write(_ context.Context, ds *tour.Dataset) error {
	node, err := datasetNode(ds)
	if err != nil {
		return err
	}
	return writeFileAtomic(w.filename, func(f *os.File) error {
		encoder := yaml.NewEncoder(f)
		encoder.SetIndent(w.indent)
		if err := encoder.Encode(node); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return encoder.Close()
	})
}

// Close implements Writer.
func (w *YAMLWriter) Close() error { return nil }

// datasetNode parses the JSON rendering as YAML, which keeps key order,
// then switches every node to block style.
func datasetNode(ds *tour.Dataset) (*yaml.Node, error) {
	data, err := json.Marshal(ds)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal dataset: %w", err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to convert dataset: %w", err)
	}
	blockStyle(&doc)
	return &doc, nil
}

func blockStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle
	if n.Kind == yaml.ScalarNode && n.Tag == "!!str" {
		n.Style &^= yaml.DoubleQuotedStyle
	}
	for _, c := range n.Content {
		blockStyle(c)
	}
}
