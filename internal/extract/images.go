package extract

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/si0411/tourextract/internal/errors"
	"github.com/si0411/tourextract/internal/scraper"
	"github.com/si0411/tourextract/internal/tour"
	"github.com/si0411/tourextract/internal/utils"
)

var (
	dayBadgeClass     = regexp.MustCompile(`card__content-day\s+bg-`)
	dayBadgeText      = regexp.MustCompile(`(?i)DAY\s+(\d+)`)
	backgroundPattern = regexp.MustCompile(`background-image:\s*url\(['"]?([^'")]+)['"]?\)`)
	previewPattern    = regexp.MustCompile(`App\.updatePreview\(this,\s*['"](\w+)['"]\s*,\s*(\d+)\)`)

	imageSourceAttrs = []string{"src", "data-src", "data-lazy-src", "data-original", "data-lazy"}
	imageNoise       = []string{"/arrow-", "/icon-", ".svg"}
)

const (
	maxAncestorLevels = 5
	maxImageLevel     = 2
	maxImagesPerLevel = 10
	maxSiblingImages  = 5
)

// imageSource returns the first populated source attribute, falling back
// to an inline background image.
func imageSource(img *goquery.Selection) string {
	for _, attr := range imageSourceAttrs {
		if v, ok := img.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	style, _ := img.Attr("style")
	if m := backgroundPattern.FindStringSubmatch(style); m != nil {
		return m[1]
	}
	return ""
}

// CleanImagePath strips query and fragment, rejects icons and SVGs and
// reduces absolute URLs to their path.
func CleanImagePath(src string) string {
	if src == "" {
		return ""
	}
	clean := strings.SplitN(src, "?", 2)[0]
	clean = strings.SplitN(clean, "#", 2)[0]
	if utils.ContainsAny(strings.ToLower(clean), imageNoise...) {
		return ""
	}
	if strings.HasPrefix(clean, "http://") || strings.HasPrefix(clean, "https://") {
		if u, err := url.Parse(clean); err == nil {
			clean = u.Path
		}
	}
	if !strings.HasPrefix(clean, "/") {
		clean = "/" + clean
	}
	return clean
}

type imageCollector struct {
	origin string
	seen   map[string]bool
	images []tour.Image
}

func newImageCollector(origin string) *imageCollector {
	return &imageCollector{origin: origin, seen: map[string]bool{}}
}

func (c *imageCollector) add(imgs *goquery.Selection) {
	imgs.Each(func(_ int, img *goquery.Selection) {
		path := CleanImagePath(imageSource(img))
		if path == "" || c.seen[path] {
			return
		}
		c.seen[path] = true
		alt, _ := img.Attr("alt")
		c.images = append(c.images, tour.Image{URL: c.origin + path, Alt: alt})
	})
}

// dayImageChain finds the pictures belonging to one day badge: first the
// nearest small ancestor, then the sibling blocks that follow the badge.
func dayImageChain(origin string, badge *goquery.Selection) Chain[[]tour.Image] {
	return Chain[[]tour.Image]{
		Valid: func(imgs []tour.Image) bool { return len(imgs) > 0 },
		Strategies: []Strategy[[]tour.Image]{
			{Name: "ancestor", Attempt: func(*scraper.Page) ([]tour.Image, bool) {
				imgs := ancestorImages(origin, badge)
				return imgs, imgs != nil
			}},
			{Name: "siblings", Attempt: func(*scraper.Page) ([]tour.Image, bool) {
				imgs := siblingImages(origin, badge)
				return imgs, imgs != nil
			}},
		},
	}
}

func ancestorImages(origin string, badge *goquery.Selection) []tour.Image {
	current := badge
	for level := 0; level < maxAncestorLevels; level++ {
		parent := current.Parent()
		if parent.Length() == 0 {
			break
		}
		imgs := parent.Find("img")
		if imgs.Length() > 0 && level <= maxImageLevel && imgs.Length() <= maxImagesPerLevel {
			c := newImageCollector(origin)
			c.add(imgs)
			if len(c.images) > 0 {
				return c.images
			}
		}
		current = parent
	}
	return nil
}

func siblingImages(origin string, badge *goquery.Selection) []tour.Image {
	container := badge.Closest("div, section, article")
	if container.Length() == 0 {
		return nil
	}
	c := newImageCollector(origin)
	container.NextAllFiltered("div, section").EachWithBreak(func(_ int, sib *goquery.Selection) bool {
		if sib.Find("span.card__content-day").Length() > 0 {
			return false
		}
		c.add(sib.Find("img"))
		return len(c.images) < maxSiblingImages
	})
	return c.images
}

func badgeDay(badge *goquery.Selection) (int, bool) {
	class, _ := badge.Attr("class")
	if !dayBadgeClass.MatchString(class) {
		return 0, false
	}
	m := dayBadgeText.FindStringSubmatch(scraper.Text(badge))
	if m == nil {
		return 0, false
	}
	return tour.ExtractNumber(m[1]), true
}

// ResolveDayImages maps itinerary days to their pictures.
func ResolveDayImages(page *scraper.Page) map[int][]tour.Image {
	origin, err := utils.Origin(page.URL)
	if err != nil {
		origin = ""
	}
	out := map[int][]tour.Image{}
	badges := 0

	page.Find("span.card__content-day").Each(func(_ int, badge *goquery.Selection) {
		day, ok := badgeDay(badge)
		if !ok {
			return
		}
		badges++
		chain := dayImageChain(origin, badge)
		if imgs, _, ok := chain.Resolve(page); ok {
			out[day] = imgs
		}
	})

	// sliders often hold the pictures away from the badges
	if float64(len(out)) < float64(badges)*0.5 {
		page.Find(`div[class*="swiper-wrapper"]`).First().Find(`div[class*="swiper-slide"]`).Each(func(_ int, slide *goquery.Selection) {
			slide.Find("span.card__content-day").Each(func(_ int, badge *goquery.Selection) {
				day, ok := badgeDay(badge)
				if !ok {
					return
				}
				c := newImageCollector(origin)
				c.add(slide.Find("img"))
				if len(c.images) > 0 {
					out[day] = c.images
				}
			})
		})
	}
	return out
}

// DayImages attaches pictures to itinerary days. Days missing from the
// itinerary are ignored.
func DayImages() Extractor {
	return pure("day_images", func(page *scraper.Page) Patch {
		images := ResolveDayImages(page)
		return func(r *tour.Record) {
			for n, imgs := range images {
				day, ok := r.Itinerary[n]
				if !ok {
					continue
				}
				day.Images = imgs
				r.Itinerary[n] = day
			}
		}
	})
}

// ParseGallery reads the thumbnail buttons of a gallery page.
func ParseGallery(page *scraper.Page) tour.Gallery {
	origin, _ := utils.Origin(page.URL)
	gallery := tour.Gallery{}
	seen := map[int]map[string]bool{}

	page.Find("button.js-thumb-button").Each(func(_ int, b *goquery.Selection) {
		onclick, _ := b.Attr("onclick")
		imgURL, _ := b.Attr("data-popup-img-url")
		if onclick == "" || imgURL == "" {
			return
		}
		m := previewPattern.FindStringSubmatch(onclick)
		if m == nil {
			return
		}
		day := tour.ExtractNumber(m[2])
		if seen[day] == nil {
			seen[day] = map[string]bool{}
		}
		if seen[day][imgURL] {
			return
		}
		seen[day][imgURL] = true

		full := imgURL
		if !strings.HasPrefix(full, "http") && origin != "" {
			full = utils.ResolveURL(origin, imgURL)
		}
		desc, _ := b.Attr("data-description")
		gallery[day] = append(gallery[day], tour.GalleryImage{URL: full, Description: desc, Type: m[1]})
	})
	return gallery
}

// Gallery loads <url>/gallery and groups its pictures by day.
func Gallery(f scraper.Fetcher) Extractor {
	return NewFunc("gallery", func(ctx context.Context, page *scraper.Page) (Patch, error) {
		galleryURL := strings.TrimRight(page.URL, "/") + "/gallery"
		body, err := f.Get(ctx, galleryURL, nil)
		if err != nil {
			return nil, err
		}
		gp, err := scraper.NewPage(galleryURL, body)
		if err != nil {
			return nil, errors.New(errors.KindSemantic, "gallery", err)
		}
		gallery := ParseGallery(gp)
		if len(gallery) == 0 {
			return nil, errNotFound("gallery thumbnails")
		}
		return func(r *tour.Record) { r.Gallery = gallery }, nil
	})
}
