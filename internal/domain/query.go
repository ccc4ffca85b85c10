package domain

import "time"

// FilterCriteria describes one dashboard query. Empty values and the "All"
// sentinel leave a dimension unconstrained.
type FilterCriteria struct {
	Listings  []string
	Channels  []string
	MinRating *float64
	MaxRating *float64
	Category  string
	From      *time.Time
	To        *time.Time
	Query     string
}

const AllValue = "All"

// Ratios are nil when there is no data to divide by.
type Summary struct {
	Overall    OverallSummary    `json:"overall"`
	Properties []PropertySummary `json:"properties"`
	Monthly    []MonthBucket     `json:"monthly"`
	Unbucketed int               `json:"unbucketed"`
	Categories []CategoryAverage `json:"categories"`
}

type OverallSummary struct {
	PropertyCount    int      `json:"propertyCount"`
	ReviewCount      int      `json:"reviewCount"`
	RatedCount       int      `json:"ratedCount"`
	AverageRating    *float64 `json:"averageRating"`
	PercentDisplayed *float64 `json:"percentDisplayed"`
}

type PropertySummary struct {
	ListingID        string   `json:"listingId"`
	ListingName      string   `json:"listingName"`
	ReviewCount      int      `json:"reviewCount"`
	AverageRating    *float64 `json:"averageRating"`
	PercentDisplayed *float64 `json:"percentDisplayed"`
}

type MonthBucket struct {
	Month         string   `json:"month"` // YYYY-MM
	Count         int      `json:"count"`
	AverageRating *float64 `json:"averageRating"`
}

type CategoryAverage struct {
	Category string   `json:"category"`
	Count    int      `json:"count"`
	Average  *float64 `json:"average"`
}

// Facets lists the distinct values a dashboard offers as filter choices.
type Facets struct {
	Listings   []string `json:"listings"`
	Channels   []string `json:"channels"`
	Categories []string `json:"categories"`
}
