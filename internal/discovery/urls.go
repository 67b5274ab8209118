package discovery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/si0411/tourextract/internal/utils"
)

// Entry is one line of the URL list. AlfredURL is reserved for the
// booking-system link and is written as null until something fills it.
type Entry struct {
	BTURL     string  `json:"bt_url"`
	AlfredURL *string `json:"alfred_url"`
}

// WriteURLs writes urls as a list of entries, indented by two spaces.
func WriteURLs(path string, urls []string) error {
	entries := make([]Entry, len(urls))
	for i, u := range urls {
		entries[i] = Entry{BTURL: u}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode URL list: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// ReadURLs reads a URL list. Entries may be objects with bt_url or plain
// strings; blanks and repeats are dropped.
func ReadURLs(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid URL list %s: %w", path, err)
	}
	urls := make([]string, 0, len(raw))
	for i, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			urls = append(urls, strings.TrimSpace(s))
			continue
		}
		var e Entry
		if err := json.Unmarshal(item, &e); err != nil {
			return nil, fmt.Errorf("invalid URL list entry %d: %w", i, err)
		}
		urls = append(urls, strings.TrimSpace(e.BTURL))
	}
	return utils.DedupeStrings(urls), nil
}
