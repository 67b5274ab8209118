// internal/scraper/parser_test.go
package scraper

import (
	"strings"
	"testing"
)

const samplePage = `<html><head>
<title>Backpacking Vietnam | Backpacking Tours</title>
<meta name="description" content="  Three weeks north to south.  ">
</head><body>
<h1 class="tour-title">Vietnam</h1>
<ul class="list-icon list-icon--tick"><li> Hostels </li><li></li><li>Transport</li></ul>
</body></html>`

func TestNewPageFromString(t *testing.T) {
	page, err := NewPageFromString("https://example.com/tour/vietnam", samplePage)
	if err != nil {
		t.Fatalf("Failed to parse page: %v", err)
	}

	if page.Text("h1") != "Vietnam" {
		t.Errorf("unexpected heading %q", page.Text("h1"))
	}
	if page.MetaContent("description") != "Three weeks north to south." {
		t.Errorf("unexpected description %q", page.MetaContent("description"))
	}
	if !strings.Contains(page.Raw, "tour-title") {
		t.Error("raw markup should be kept")
	}
	if page.Text(".missing") != "" {
		t.Error("missing selectors should give empty text")
	}
}

func TestListItemsAndClasses(t *testing.T) {
	page, err := NewPageFromString("https://example.com", samplePage)
	if err != nil {
		t.Fatalf("Failed to parse page: %v", err)
	}

	list := page.Find("ul").First()
	items := ListItems(list)
	if strings.Join(items, "|") != "Hostels|Transport" {
		t.Errorf("unexpected items %v", items)
	}

	if !HasClassContaining(list, "--tick") {
		t.Error("expected tick class to be found")
	}
	if len(Classes(list)) != 2 {
		t.Errorf("expected 2 classes, got %v", Classes(list))
	}
}
