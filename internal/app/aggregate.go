package app

import (
	"math"
	"sort"

	"flex_reviews/internal/domain"
)

// running accumulates count, rated count, rating sum and displayed count.
type running struct {
	count, rated, displayed int
	sum                     float64
}

func (r *running) add(rv domain.NormalizedReview) {
	r.count++
	if rv.Rating != nil {
		r.rated++
		r.sum += *rv.Rating
	}
	if rv.DisplayOnWebsite {
		r.displayed++
	}
}

// average excludes unrated reviews from both sides of the division.
func (r running) average() *float64 {
	if r.rated == 0 {
		return nil
	}
	return ptrF(round(r.sum/float64(r.rated), 2))
}

func (r running) percentDisplayed() *float64 {
	if r.count == 0 {
		return nil
	}
	return ptrF(round(100*float64(r.displayed)/float64(r.count), 1))
}

// Summarize aggregates an already filtered sequence. Empty input yields zero
// counts and nil ratios.
func Summarize(in []domain.NormalizedReview) domain.Summary {
	var total running
	props := map[string]*running{}
	names := map[string]string{}
	months := map[string]*running{}
	cats := map[string]*running{}
	unbucketed := 0

	for _, rv := range in {
		total.add(rv)

		p, ok := props[rv.ListingID]
		if !ok {
			p = &running{}
			props[rv.ListingID] = p
		}
		p.add(rv)
		if names[rv.ListingID] == "" {
			names[rv.ListingID] = deref(rv.ListingName)
		}

		if rv.Date == nil {
			unbucketed++
		} else {
			key := rv.Date.UTC().Format("2006-01")
			b, ok := months[key]
			if !ok {
				b = &running{}
				months[key] = b
			}
			b.add(rv)
		}

		for name, score := range rv.CategoryScores {
			c, ok := cats[name]
			if !ok {
				c = &running{}
				cats[name] = c
			}
			if score != nil {
				c.rated++
				c.sum += *score
			}
		}
	}

	out := domain.Summary{
		Overall: domain.OverallSummary{
			PropertyCount:    len(props),
			ReviewCount:      total.count,
			RatedCount:       total.rated,
			AverageRating:    total.average(),
			PercentDisplayed: total.percentDisplayed(),
		},
		Properties: make([]domain.PropertySummary, 0, len(props)),
		Monthly:    make([]domain.MonthBucket, 0, len(months)),
		Unbucketed: unbucketed,
		Categories: make([]domain.CategoryAverage, 0, len(cats)),
	}

	for id, p := range props {
		out.Properties = append(out.Properties, domain.PropertySummary{
			ListingID:        id,
			ListingName:      names[id],
			ReviewCount:      p.count,
			AverageRating:    p.average(),
			PercentDisplayed: p.percentDisplayed(),
		})
	}
	sort.Slice(out.Properties, func(i, j int) bool {
		a, b := out.Properties[i], out.Properties[j]
		if a.ListingName != b.ListingName {
			return a.ListingName < b.ListingName
		}
		return a.ListingID < b.ListingID
	})

	for key, b := range months {
		out.Monthly = append(out.Monthly, domain.MonthBucket{Month: key, Count: b.count, AverageRating: b.average()})
	}
	sort.Slice(out.Monthly, func(i, j int) bool { return out.Monthly[i].Month < out.Monthly[j].Month })

	for name, c := range cats {
		out.Categories = append(out.Categories, domain.CategoryAverage{Category: name, Count: c.rated, Average: c.average()})
	}
	sort.Slice(out.Categories, func(i, j int) bool { return out.Categories[i].Category < out.Categories[j].Category })

	return out
}

func round(f float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(f*p) / p
}

func ptrF(f float64) *float64 { return &f }
