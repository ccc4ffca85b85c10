package app

import (
	"time"

	"flex_reviews/internal/domain"
)

// Snapshot is the in-memory review store for one loaded batch. Reviews keep
// the order of the raw batch; the raw batch itself is retained so a save can
// round-trip fields the canonical model does not know about.
type Snapshot struct {
	reviews  []domain.NormalizedReview
	index    map[string]int
	raw      domain.RawBatch
	source   domain.SourceTag
	skipped  int
	degraded map[string]int
	loadedAt time.Time
}

func NewSnapshot(raw domain.RawBatch, source domain.SourceTag, res ParseResult) *Snapshot {
	s := &Snapshot{
		reviews:  res.Reviews,
		index:    make(map[string]int, len(res.Reviews)),
		raw:      raw,
		source:   source,
		skipped:  res.Skipped,
		degraded: res.Degraded,
		loadedAt: time.Now().UTC(),
	}
	for i, rv := range s.reviews {
		s.index[rv.ID] = i
	}
	return s
}

// Reviews returns a copy of the review slice in source order.
func (s *Snapshot) Reviews() []domain.NormalizedReview {
	out := make([]domain.NormalizedReview, len(s.reviews))
	copy(out, s.reviews)
	return out
}

func (s *Snapshot) Len() int { return len(s.reviews) }

func (s *Snapshot) Get(id string) (domain.NormalizedReview, bool) {
	i, ok := s.index[id]
	if !ok {
		return domain.NormalizedReview{}, false
	}
	return s.reviews[i], true
}

// SetDisplayFlag is the only mutation. Unknown ids are ignored; the return
// value only reports whether the id was found.
func (s *Snapshot) SetDisplayFlag(id string, v bool) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.reviews[i].DisplayOnWebsite = v
	return true
}

func (s *Snapshot) Raw() domain.RawBatch     { return s.raw }
func (s *Snapshot) Source() domain.SourceTag { return s.source }
func (s *Snapshot) Skipped() int             { return s.skipped }
func (s *Snapshot) LoadedAt() time.Time      { return s.loadedAt }
func (s *Snapshot) Degraded() map[string]int {
	out := make(map[string]int, len(s.degraded))
	for k, v := range s.degraded {
		out[k] = v
	}
	return out
}
