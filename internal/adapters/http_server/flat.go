package httpserver

import (
	"encoding/json"
	"strconv"
	"time"

	"flex_reviews/internal/domain"
)

// categoryPrefix marks flattened category scores in outbound records.
const categoryPrefix = "cat_"

// flatten renders one review the way dashboards consume it: a single flat
// object with one cat_<name> key per reported category.
func flatten(rv domain.NormalizedReview) map[string]any {
	m := map[string]any{
		"id":               idValue(rv.ID),
		"listingId":        idValue(rv.ListingID),
		"listingName":      rv.ListingName,
		"type":             string(rv.Type),
		"status":           nullable(rv.Status),
		"rating":           rv.Rating,
		"publicReview":     rv.PublicReviewText,
		"channel":          nullable(rv.Channel),
		"channelId":        idValue(rv.ChannelID),
		"guestName":        rv.GuestName,
		"displayOnWebsite": rv.DisplayOnWebsite,
		"date":             dateValue(rv),
	}
	for name, score := range rv.CategoryScores {
		m[categoryPrefix+name] = score
	}
	return m
}

func flattenAll(in []domain.NormalizedReview) []map[string]any {
	out := make([]map[string]any, len(in))
	for i, rv := range in {
		out[i] = flatten(rv)
	}
	return out
}

// Integral ids go back out as JSON numbers, but only in canonical form;
// "0042" or "+7" stay strings so the id text is not altered.
func idValue(s string) any {
	if s == "" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && strconv.FormatInt(n, 10) == s {
		return json.Number(s)
	}
	return s
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// unparsable dates are echoed verbatim
func dateValue(rv domain.NormalizedReview) any {
	if rv.Date != nil {
		return rv.Date.Format(time.RFC3339)
	}
	return nullable(rv.DateRaw)
}
