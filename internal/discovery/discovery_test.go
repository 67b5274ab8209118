package discovery

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/si0411/tourextract/internal/scraper"
)

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	var base string
	mux := http.NewServeMux()
	urlset := func(locs ...string) string {
		var b strings.Builder
		b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
		for _, l := range locs {
			fmt.Fprintf(&b, "<url><loc>\n  %s%s\n</loc></url>", base, l)
		}
		b.WriteString("</urlset>")
		return b.String()
	}
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, urlset("/group-tour-bali", "/group/vietnam", "/group-tours/blog", "/about",
			"/book-a-backpacking-tour/", "/book-a-backpacking-tour-laos"))
	})
	mux.HandleFunc("/sitemap_index.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0"?><sitemapindex><sitemap><loc>%s/sitemap-tours.xml</loc></sitemap></sitemapindex>`, base)
	})
	mux.HandleFunc("/sitemap-tours.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, urlset("/film-photography-thailand", "/group-tour-bali"))
	})
	mux.HandleFunc("/tours", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<a href="/group-tour-peru">Peru</a>
			<a href="/group-tour-peru?ref=nav">Peru again</a>
			<a href="https://elsewhere.example/group">Other site</a>
			<div class="tour-card" data-tour-url="/group-tour-japan"></div>
			<a href="/contact">Contact</a>
			<a href="/group-photo.jpg">Photo</a>
		</body></html>`)
	})
	server := httptest.NewServer(mux)
	base = server.URL
	t.Cleanup(server.Close)
	return server
}

func newFetcher(t *testing.T) scraper.Fetcher {
	t.Helper()
	client, err := scraper.NewHTTPClient(scraper.ClientConfig{Timeout: 5 * time.Second, RateLimit: 1000, RateBurst: 10})
	require.NoError(t, err)
	return client
}

func siteOptions(base string) Options {
	return Options{
		Sitemaps:     []string{base + "/sitemap.xml", base + "/sitemap_index.xml", base + "/missing.xml"},
		ListingPages: []string{base + "/tours", base + "/destinations"},
		Patterns:     []string{base + "/group", base + "/book-a-backpacking-tour", base + "/film-photography-thailand"},
		GenericPages: []string{base + "/book-a-backpacking-tour"},
	}
}

func TestDiscover(t *testing.T) {
	server := newSite(t)
	base := server.URL

	urls, err := New(newFetcher(t), siteOptions(base), nil).Discover(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		base + "/book-a-backpacking-tour-laos",
		base + "/film-photography-thailand",
		base + "/group-tour-bali",
		base + "/group-tour-japan",
		base + "/group-tour-peru",
		base + "/group/vietnam",
	}, urls)
}

func TestDiscoverStopsOnCancel(t *testing.T) {
	server := newSite(t)
	opts := siteOptions(server.URL)
	opts.Delay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := New(newFetcher(t), opts, nil).Discover(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIsTarget(t *testing.T) {
	d := New(nil, Options{
		Patterns:     []string{"https://www.backpackingtours.com/group", "https://www.backpackingtours.com/book-a-backpacking-tour"},
		Exclude:      []string{"/Draft", ""},
		GenericPages: []string{"https://www.backpackingtours.com/book-a-backpacking-tour/"},
	}, nil)

	cases := map[string]bool{
		"https://www.backpackingtours.com/group-tour-bali":           true,
		"  https://www.backpackingtours.com/group-tour-bali  ":       true,
		"https://www.backpackingtours.com/book-a-backpacking-tour":   false,
		"https://www.backpackingtours.com/book-a-backpacking-tour/":  false,
		"https://www.backpackingtours.com/book-a-backpacking-tour-x": true,
		"https://www.backpackingtours.com/group-tour-bali#dates":     false,
		"https://www.backpackingtours.com/group-tour-bali?x=1":       false,
		"https://www.backpackingtours.com/group/API/list":            false,
		"https://www.backpackingtours.com/group/draft-tour":          false,
		"https://www.backpackingtours.com/destinations":              false,
		"": false,
	}
	for in, want := range cases {
		assert.Equal(t, want, d.IsTarget(in), in)
	}
}

func TestParseSitemap(t *testing.T) {
	locs, index, err := ParseSitemap(strings.NewReader(`<urlset><url><loc> https://a/x </loc></url><url><loc></loc></url></urlset>`))
	require.NoError(t, err)
	assert.False(t, index)
	assert.Equal(t, []string{"https://a/x"}, locs)

	locs, index, err = ParseSitemap(strings.NewReader(`<sitemapindex><sitemap><loc>https://a/s.xml</loc></sitemap></sitemapindex>`))
	require.NoError(t, err)
	assert.True(t, index)
	assert.Equal(t, []string{"https://a/s.xml"}, locs)

	_, _, err = ParseSitemap(strings.NewReader(`<urlset><url><loc>`))
	assert.Error(t, err)
}

func TestListingLinks(t *testing.T) {
	page, err := scraper.NewPageFromString("https://site.test/tours/", `<html><body>
		<a href="../group-a">A</a><a href="/group-a">A dup</a><a href="">empty</a>
		<span data-tour-url="group-b"></span></body></html>`)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://site.test/group-a", "https://site.test/tours/group-b"}, ListingLinks(page))
}

func TestURLListRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "group_tour_urls.json")
	require.NoError(t, WriteURLs(path, []string{"https://a/group-1", "https://a/group-2"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"bt_url": "https://a/group-1",`)
	assert.Contains(t, string(data), `"alfred_url": null`)

	urls, err := ReadURLs(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a/group-1", "https://a/group-2"}, urls)
}

func TestReadURLsAcceptsPlainStrings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.json")
	require.NoError(t, os.WriteFile(path, []byte(`["https://a/1", {"bt_url": "https://a/2", "alfred_url": "x"}, " ", "https://a/1"]`), 0o644))

	urls, err := ReadURLs(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a/1", "https://a/2"}, urls)

	require.NoError(t, os.WriteFile(path, []byte(`{"bt_url": "x"}`), 0o644))
	_, err = ReadURLs(path)
	assert.Error(t, err)
}
