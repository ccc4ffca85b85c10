package domain

import (
	"sort"
	"time"
)

type ReviewType string

const (
	GuestToHost ReviewType = "guest-to-host"
	HostToGuest ReviewType = "host-to-guest"
	UnknownType ReviewType = "unknown"
)

// ParseReviewType maps the source's free-form type tag onto the known variants.
func ParseReviewType(s string) ReviewType {
	switch ReviewType(s) {
	case GuestToHost, HostToGuest:
		return ReviewType(s)
	}
	return UnknownType
}

// CategoryScores holds the per-category sub-ratings one review reported.
// A key is present only when the category was reported; a nil value means
// the category came without a usable score.
type CategoryScores map[string]*float64

func (c CategoryScores) Has(name string) bool {
	_, ok := c[name]
	return ok
}

// Score returns the numeric score for name, if reported with one.
func (c CategoryScores) Score(name string) (float64, bool) {
	v, ok := c[name]
	if !ok || v == nil {
		return 0, false
	}
	return *v, true
}

func (c CategoryScores) Names() []string {
	out := make([]string, 0, len(c))
	for k := range c {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type NormalizedReview struct {
	ID               string
	ListingID        string
	ListingName      *string
	Type             ReviewType
	Status           string
	Rating           *float64 // 0-10 as reported, never rescaled
	PublicReviewText *string
	Channel          string
	ChannelID        string
	GuestName        *string
	Date             *time.Time
	DateRaw          string // source text, kept even when Date could not be parsed
	DisplayOnWebsite bool
	CategoryScores   CategoryScores
}

// ParseWarning describes one degraded field or one skipped record.
type ParseWarning struct {
	Index  int
	ID     string
	Field  string
	Reason string
}
