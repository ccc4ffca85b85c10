package app_test

import (
	"reflect"
	"testing"
	"time"

	"flex_reviews/internal/app"
	"flex_reviews/internal/domain"
)

func f64(v float64) *float64 { return &v }
func str(v string) *string   { return &v }

func at(s string) *time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return &t
}

func sample() []domain.NormalizedReview {
	return []domain.NormalizedReview{
		{ID: "1", ListingID: "101", ListingName: str("Shoreditch Heights"), Channel: "airbnb", Rating: f64(9),
			Date: at("2024-01-15"), DisplayOnWebsite: true, GuestName: str("Shane"),
			PublicReviewText: str("Spotless flat, great host"),
			CategoryScores:   domain.CategoryScores{"cleanliness": f64(9)}},
		{ID: "2", ListingID: "102", ListingName: str("Camden Loft"), Channel: "booking", Rating: nil,
			Date: nil, DateRaw: "bad-date", CategoryScores: domain.CategoryScores{}},
		{ID: "3", ListingID: "101", ListingName: str("Shoreditch Heights"), Channel: "booking", Rating: f64(6),
			Date: at("2024-02-03"), PublicReviewText: str("Noisy street"),
			CategoryScores: domain.CategoryScores{"communication": f64(4), "cleanliness": nil}},
	}
}

func ids(in []domain.NormalizedReview) []string {
	out := make([]string, len(in))
	for i, rv := range in {
		out[i] = rv.ID
	}
	return out
}

func TestFilter_AllLeavesInputUnchanged(t *testing.T) {
	in := sample()
	for _, c := range []domain.FilterCriteria{
		{},
		{Listings: []string{"All"}, Channels: []string{"All"}, Category: "All"},
		{Listings: []string{""}, Query: "   "},
	} {
		got := app.Filter(c, in)
		if !reflect.DeepEqual(got, in) {
			t.Fatalf("criteria %+v changed the input: %v", c, ids(got))
		}
	}
}

func TestFilter_Category(t *testing.T) {
	one := []domain.NormalizedReview{{ID: "1", CategoryScores: domain.CategoryScores{"cleanliness": f64(9)}}}
	if got := app.Filter(domain.FilterCriteria{Category: "cleanliness"}, one); len(got) != 1 {
		t.Fatal("cleanliness should match")
	}
	if got := app.Filter(domain.FilterCriteria{Category: "communication"}, one); len(got) != 0 {
		t.Fatal("communication should not match")
	}
	// exact match only
	if got := app.Filter(domain.FilterCriteria{Category: "Cleanliness"}, one); len(got) != 0 {
		t.Fatal("category keys are case sensitive")
	}
}

func TestFilter_Dimensions(t *testing.T) {
	in := sample()
	cases := []struct {
		name string
		c    domain.FilterCriteria
		want []string
	}{
		{"listing by name", domain.FilterCriteria{Listings: []string{"Shoreditch Heights"}}, []string{"1", "3"}},
		{"listing by id", domain.FilterCriteria{Listings: []string{"102", "All"}}, []string{"2"}},
		{"channel", domain.FilterCriteria{Channels: []string{"booking"}}, []string{"2", "3"}},
		{"min rating drops unrated", domain.FilterCriteria{MinRating: f64(5)}, []string{"1", "3"}},
		{"rating window", domain.FilterCriteria{MinRating: f64(7), MaxRating: f64(10)}, []string{"1"}},
		{"category without score still matches", domain.FilterCriteria{Category: "cleanliness"}, []string{"1", "3"}},
		{"date range drops undated", domain.FilterCriteria{From: at("2024-02-01"), To: at("2024-02-28")}, []string{"3"}},
		{"text search", domain.FilterCriteria{Query: "NOISY"}, []string{"3"}},
		{"guest search", domain.FilterCriteria{Query: "shane"}, []string{"1"}},
		{"combined", domain.FilterCriteria{Listings: []string{"101"}, Channels: []string{"airbnb"}}, []string{"1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ids(app.Filter(tc.c, in))
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFilter_DoesNotMutate(t *testing.T) {
	in := sample()
	before := ids(in)
	_ = app.Filter(domain.FilterCriteria{Channels: []string{"booking"}}, in)
	if !reflect.DeepEqual(ids(in), before) {
		t.Fatal("input reordered")
	}
}

func TestCollectFacets(t *testing.T) {
	f := app.CollectFacets(sample())
	if !reflect.DeepEqual(f.Channels, []string{"airbnb", "booking"}) {
		t.Fatalf("channels = %v", f.Channels)
	}
	if !reflect.DeepEqual(f.Categories, []string{"cleanliness", "communication"}) {
		t.Fatalf("categories = %v", f.Categories)
	}
	if !reflect.DeepEqual(f.Listings, []string{"Camden Loft", "Shoreditch Heights"}) {
		t.Fatalf("listings = %v", f.Listings)
	}
}
