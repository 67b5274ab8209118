// internal/scraper/parser.go
package scraper

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Page is a fetched and parsed HTML document.
type Page struct {
	URL string
	Raw string
	Doc *goquery.Document
}

// NewPage parses body as HTML.
func NewPage(pageURL string, body []byte) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &Page{URL: pageURL, Raw: string(body), Doc: doc}, nil
}

// NewPageFromString parses an HTML string.
func NewPageFromString(pageURL, html string) (*Page, error) {
	return NewPage(pageURL, []byte(html))
}

// Find runs a selector against the document.
func (p *Page) Find(selector string) *goquery.Selection {
	return p.Doc.Find(selector)
}

// Text returns the trimmed text of the first match, or "".
func (p *Page) Text(selector string) string {
	return Text(p.Doc.Find(selector).First())
}

// MetaContent returns the content attribute of <meta name="...">.
func (p *Page) MetaContent(name string) string {
	content, _ := p.Doc.Find(fmt.Sprintf(`meta[name=%q]`, name)).First().Attr("content")
	return strings.TrimSpace(content)
}

// Text returns the trimmed text of s.
func Text(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}

// ListItems returns the trimmed, non-empty text of every li under s.
func ListItems(s *goquery.Selection) []string {
	items := []string{}
	s.Find("li").Each(func(_ int, li *goquery.Selection) {
		if text := Text(li); text != "" {
			items = append(items, text)
		}
	})
	return items
}

// HasClassContaining reports whether any class of s contains fragment.
func HasClassContaining(s *goquery.Selection, fragment string) bool {
	for _, class := range Classes(s) {
		if strings.Contains(class, fragment) {
			return true
		}
	}
	return false
}

// Classes splits the class attribute of the first node in s.
func Classes(s *goquery.Selection) []string {
	attr, _ := s.Attr("class")
	return strings.Fields(attr)
}
