// Package extract holds the per-category record extractors and the
// selector chains they are built from.
package extract

import (
	"strings"

	"github.com/si0411/tourextract/internal/scraper"
)

// Strategy is one way of locating a field. Attempt reports false when the
// structure it looks for is absent.
type Strategy[T any] struct {
	Name    string
	Attempt func(*scraper.Page) (T, bool)
}

// Chain is an ordered list of strategies sharing a semantic validator.
type Chain[T any] struct {
	Strategies []Strategy[T]
	Valid      func(T) bool
}

// Resolve returns the first value that is found and passes validation,
// along with the name of the strategy that produced it. Exhaustion gives
// the zero value and ok=false.
func (c Chain[T]) Resolve(page *scraper.Page) (value T, strategy string, ok bool) {
	for _, s := range c.Strategies {
		v, found := s.Attempt(page)
		if !found {
			continue
		}
		if c.Valid != nil && !c.Valid(v) {
			continue
		}
		return v, s.Name, true
	}
	var zero T
	return zero, "", false
}

// route sends a labelled value to the field whose keywords all appear in
// the lower-cased label.
type route[T any] struct {
	keywords []string
	apply    func(target *T, value string)
}

// dispatch applies the first matching route. Unmatched labels are dropped.
func dispatch[T any](routes []route[T], target *T, label, value string) bool {
	label = strings.ToLower(label)
	for _, r := range routes {
		matched := true
		for _, k := range r.keywords {
			if !strings.Contains(label, k) {
				matched = false
				break
			}
		}
		if matched {
			r.apply(target, value)
			return true
		}
	}
	return false
}
