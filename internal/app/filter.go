package app

import (
	"sort"
	"strings"

	"flex_reviews/internal/domain"
)

// Filter returns the reviews matching every criterion, in input order.
// It never mutates its input.
func Filter(c domain.FilterCriteria, in []domain.NormalizedReview) []domain.NormalizedReview {
	listings := choiceSet(c.Listings)
	channels := choiceSet(c.Channels)
	category := strings.TrimSpace(c.Category)
	if category == domain.AllValue {
		category = ""
	}
	query := strings.ToLower(strings.TrimSpace(c.Query))

	out := make([]domain.NormalizedReview, 0, len(in))
	for _, rv := range in {
		if listings != nil && !listings.has(rv.ListingID, deref(rv.ListingName)) {
			continue
		}
		if channels != nil && !channels.has(rv.Channel, rv.ChannelID) {
			continue
		}
		if !ratingInRange(rv.Rating, c.MinRating, c.MaxRating) {
			continue
		}
		if category != "" && !rv.CategoryScores.Has(category) {
			continue
		}
		if !dateInRange(rv, c) {
			continue
		}
		if query != "" && !containsFold(rv.PublicReviewText, query) && !containsFold(rv.GuestName, query) {
			continue
		}
		out = append(out, rv)
	}
	return out
}

type choices map[string]struct{}

// choiceSet is nil when the selection leaves the dimension open.
func choiceSet(vals []string) choices {
	var set choices
	for _, v := range vals {
		v = strings.TrimSpace(v)
		if v == "" || v == domain.AllValue {
			continue
		}
		if set == nil {
			set = choices{}
		}
		set[v] = struct{}{}
	}
	return set
}

func (c choices) has(candidates ...string) bool {
	for _, v := range candidates {
		if v == "" {
			continue
		}
		if _, ok := c[v]; ok {
			return true
		}
	}
	return false
}

// a nil rating never satisfies a bound
func ratingInRange(r, lo, hi *float64) bool {
	if lo == nil && hi == nil {
		return true
	}
	if r == nil {
		return false
	}
	if lo != nil && *r < *lo {
		return false
	}
	if hi != nil && *r > *hi {
		return false
	}
	return true
}

func dateInRange(rv domain.NormalizedReview, c domain.FilterCriteria) bool {
	if c.From == nil && c.To == nil {
		return true
	}
	if rv.Date == nil {
		return false
	}
	if c.From != nil && rv.Date.Before(*c.From) {
		return false
	}
	if c.To != nil && rv.Date.After(*c.To) {
		return false
	}
	return true
}

// needle must already be lowercased
func containsFold(hay *string, needle string) bool {
	if hay == nil {
		return false
	}
	return strings.Contains(strings.ToLower(*hay), needle)
}

// CollectFacets lists the distinct listing names, channels and categories.
func CollectFacets(in []domain.NormalizedReview) domain.Facets {
	listings, channels, cats := stringSet{}, stringSet{}, stringSet{}
	for _, rv := range in {
		if n := deref(rv.ListingName); n != "" {
			listings.add(n)
		} else {
			listings.add(rv.ListingID)
		}
		channels.add(rv.Channel)
		for name := range rv.CategoryScores {
			cats.add(name)
		}
	}
	return domain.Facets{Listings: listings.sorted(), Channels: channels.sorted(), Categories: cats.sorted()}
}

type stringSet map[string]struct{}

func (s stringSet) add(v string) {
	if v != "" {
		s[v] = struct{}{}
	}
}

func (s stringSet) sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
