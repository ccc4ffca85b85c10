package app_test

import (
	"testing"
	"time"

	"flex_reviews/internal/app"
	"flex_reviews/internal/domain"
)

func TestSummarize_Empty(t *testing.T) {
	s := app.Summarize(nil)
	o := s.Overall
	if o.ReviewCount != 0 || o.PropertyCount != 0 || o.RatedCount != 0 {
		t.Fatalf("counts should be zero: %+v", o)
	}
	if o.AverageRating != nil || o.PercentDisplayed != nil {
		t.Fatalf("ratios should be nil: %+v", o)
	}
	if len(s.Properties) != 0 || len(s.Monthly) != 0 || len(s.Categories) != 0 || s.Unbucketed != 0 {
		t.Fatalf("breakdowns should be empty: %+v", s)
	}
}

func TestSummarize_ScenarioAverageSkipsUnrated(t *testing.T) {
	res := app.ParseBatch(mustBatch(t, scenario))
	s := app.Summarize(res.Reviews)
	if s.Overall.AverageRating == nil || *s.Overall.AverageRating != 8.0 {
		t.Fatalf("average = %v, want 8", s.Overall.AverageRating)
	}
	if s.Overall.ReviewCount != 2 || s.Overall.RatedCount != 1 {
		t.Fatalf("counts %+v", s.Overall)
	}
	if s.Unbucketed != 1 || len(s.Monthly) != 1 || s.Monthly[0].Month != "2024-01" {
		t.Fatalf("monthly %+v unbucketed %d", s.Monthly, s.Unbucketed)
	}
}

func TestSummarize_Breakdowns(t *testing.T) {
	s := app.Summarize(sample())

	if s.Overall.PropertyCount != 2 {
		t.Fatalf("properties = %d", s.Overall.PropertyCount)
	}
	if p := s.Overall.PercentDisplayed; p == nil || *p != 33.3 {
		t.Fatalf("percent displayed = %v", p)
	}
	if a := s.Overall.AverageRating; a == nil || *a != 7.5 {
		t.Fatalf("average = %v", a)
	}

	// sorted by listing name
	if s.Properties[0].ListingName != "Camden Loft" || s.Properties[0].AverageRating != nil {
		t.Fatalf("camden: %+v", s.Properties[0])
	}
	if sh := s.Properties[1]; sh.ReviewCount != 2 || *sh.AverageRating != 7.5 || *sh.PercentDisplayed != 50 {
		t.Fatalf("shoreditch: %+v", sh)
	}

	if len(s.Monthly) != 2 || s.Monthly[0].Month != "2024-01" || s.Monthly[1].Month != "2024-02" {
		t.Fatalf("monthly: %+v", s.Monthly)
	}

	want := map[string]struct {
		n   int
		avg *float64
	}{
		"cleanliness":   {1, f64(9)},
		"communication": {1, f64(4)},
	}
	for _, c := range s.Categories {
		w := want[c.Category]
		if c.Count != w.n || c.Average == nil || *c.Average != *w.avg {
			t.Fatalf("category %s: %+v", c.Category, c)
		}
	}
	if len(s.Categories) != 2 {
		t.Fatalf("categories: %+v", s.Categories)
	}
}

func TestSummarize_FollowsFilteredView(t *testing.T) {
	rows := app.Filter(domain.FilterCriteria{Channels: []string{"airbnb"}}, sample())
	s := app.Summarize(rows)
	if s.Overall.ReviewCount != 1 || *s.Overall.PercentDisplayed != 100 {
		t.Fatalf("%+v", s.Overall)
	}
}

func TestSummarize_MonthBucketsUseUTC(t *testing.T) {
	late, err := time.Parse(time.RFC3339, "2024-01-31T23:30:00-05:00")
	if err != nil {
		t.Fatal(err)
	}
	s := app.Summarize([]domain.NormalizedReview{{ID: "1", ListingID: "1", Date: &late, Rating: f64(8)}})
	if len(s.Monthly) != 1 || s.Monthly[0].Month != "2024-02" {
		t.Fatalf("monthly %+v", s.Monthly)
	}
}
