package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/si0411/tourextract/internal/scraper"
	"github.com/si0411/tourextract/internal/tour"
)

// ResolveSEO reads the title, meta description, keywords and Open Graph tags.
func ResolveSEO(page *scraper.Page) tour.SEOData {
	seo := tour.SEOData{
		MetaTitle:       page.Text("title"),
		MetaDescription: page.MetaContent("description"),
		MetaKeywords:    page.MetaContent("keywords"),
		OpenGraph:       map[string]string{},
	}
	page.Find(`meta[property^="og:"]`).Each(func(_ int, m *goquery.Selection) {
		property, _ := m.Attr("property")
		content, _ := m.Attr("content")
		property = strings.TrimPrefix(property, "og:")
		content = strings.TrimSpace(content)
		if property != "" && content != "" {
			seo.OpenGraph[property] = content
		}
	})
	return seo
}

// SEO extracts seo_data.
func SEO() Extractor {
	return pure("seo", func(page *scraper.Page) Patch {
		seo := ResolveSEO(page)
		return func(r *tour.Record) { r.SEO = seo }
	})
}
