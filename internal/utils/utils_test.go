package utils

import (
	"bytes"
	"strings"
	"testing"
)

func TestTourID(t *testing.T) {
	url := "https://www.backpackingtours.com/tour/backpacking-vietnam"
	id := TourID(url)

	if !strings.HasPrefix(id, "backpacking-vietnam_") {
		t.Fatalf("unexpected id prefix: %s", id)
	}
	if len(id) != len("backpacking-vietnam_")+8 {
		t.Errorf("expected 8 hash characters, got %s", id)
	}
	if TourID(url) != id {
		t.Error("tour id must be deterministic")
	}
	if TourID(url+"-2") == id {
		t.Error("different urls must give different ids")
	}
}

func TestSlugToTitle(t *testing.T) {
	tests := map[string]string{
		"backpacking-sri-lanka": "Backpacking Sri Lanka",
		"THAILAND":              "Thailand",
		"":                      "",
	}
	for in, want := range tests {
		if got := SlugToTitle(in); got != want {
			t.Errorf("SlugToTitle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestURLSlug(t *testing.T) {
	if got := URLSlug("https://x.com/a/b-c/"); got != "b-c" {
		t.Errorf("got %q", got)
	}
	if got := URLSlug("plain"); got != "plain" {
		t.Errorf("got %q", got)
	}
}

func TestDedupeStrings(t *testing.T) {
	got := DedupeStrings([]string{"a", "", "b", "a", "c", "b"})
	if strings.Join(got, ",") != "a,b,c" {
		t.Errorf("got %v", got)
	}
}

func TestResolveURL(t *testing.T) {
	got := ResolveURL("https://www.example.com/tours", "/tour/vietnam")
	if got != "https://www.example.com/tour/vietnam" {
		t.Errorf("got %q", got)
	}
}

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOptions(LoggerOptions{Level: DebugLevel, Format: "json", Output: &buf})

	logger.WithField("component", "test").Infof("hello %s", "world")

	out := buf.String()
	if !strings.Contains(out, `"component":"test"`) {
		t.Errorf("missing field in %s", out)
	}
	if !strings.Contains(out, "hello world") {
		t.Errorf("missing message in %s", out)
	}
}

func TestParseLogLevel(t *testing.T) {
	if lvl, err := ParseLogLevel("WARN"); err != nil || lvl != WarnLevel {
		t.Errorf("got %v, %v", lvl, err)
	}
	if _, err := ParseLogLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}
