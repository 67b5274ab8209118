// internal/pipeline/normalize.go
package pipeline

import (
	"strings"

	"github.com/si0411/tourextract/internal/tour"
	"github.com/si0411/tourextract/internal/utils"
)

// NormalizeRule is one step of the final validation pass.
type NormalizeRule struct {
	Name  string
	Apply func(r *tour.Record)
}

// NormalizeRules run in order. Every rule is idempotent.
var NormalizeRules = []NormalizeRule{
	{Name: "fallback_name", Apply: fallbackName},
	{Name: "meal_spelling", Apply: fixMealSpelling},
	{Name: "lists", Apply: ensureLists},
	{Name: "dedupe_activities", Apply: dedupeActivities},
	{Name: "clamp_prices", Apply: clampPrices},
}

var mealSpelling = strings.NewReplacer("Brekfast", "Breakfast", "brekfast", "breakfast")

// Normalize returns a copy of r with every rule applied.
func Normalize(r tour.Record) tour.Record {
	out := r.Clone()
	for _, rule := range NormalizeRules {
		rule.Apply(&out)
	}
	return out
}

func fallbackName(r *tour.Record) {
	r.TourName = strings.TrimSpace(r.TourName)
	if r.TourName == "" {
		r.TourName = utils.SlugToTitle(utils.URLSlug(r.URL))
	}
}

func fixMealSpelling(r *tour.Record) {
	for n, day := range r.Itinerary {
		for i, meal := range day.MealsIncl {
			day.MealsIncl[i] = mealSpelling.Replace(meal)
		}
		r.Itinerary[n] = day
	}
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func ensureLists(r *tour.Record) {
	ti := &r.TourInformation
	ti.IncludedItems = nonNil(ti.IncludedItems)
	ti.ExcludedItems = nonNil(ti.ExcludedItems)
	ti.ActivitiesIncl = nonNil(ti.ActivitiesIncl)

	if r.SEO.OpenGraph == nil {
		r.SEO.OpenGraph = map[string]string{}
	}
	if r.StartingDates == nil {
		r.StartingDates = []tour.DateEntry{}
	}
	if r.Itinerary == nil {
		r.Itinerary = tour.Itinerary{}
	}
	for n, day := range r.Itinerary {
		day.MealsIncl = nonNil(day.MealsIncl)
		day.ActivitiesIncl = nonNil(day.ActivitiesIncl)
		r.Itinerary[n] = day
	}
}

func dedupeActivities(r *tour.Record) {
	r.TourInformation.ActivitiesIncl = utils.DedupeStrings(r.TourInformation.ActivitiesIncl)
}

func clampPrices(r *tour.Record) {
	for _, c := range tour.Currencies {
		r.Price.Set(c, r.Price.Get(c))
	}
}
