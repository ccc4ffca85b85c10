package app

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"flex_reviews/internal/adapters/observability"
	"flex_reviews/internal/domain"
)

// CurationWriter persists displayOnWebsite edits into the durable snapshot.
type CurationWriter struct {
	store domain.SnapshotStore
}

func NewCurationWriter(st domain.SnapshotStore) *CurationWriter {
	return &CurationWriter{store: st}
}

type patch struct {
	start, end int
	data       []byte
}

// Overlay writes every review's display flag into the first raw record with
// the same id and returns the new body. Only the flag's value bytes change.
func Overlay(raw domain.RawBatch, reviews []domain.NormalizedReview) ([]byte, domain.PersistResult, error) {
	var res domain.PersistResult

	type target struct {
		rec     domain.RawRecord
		prev    bool
		present bool
	}
	targets := make(map[string]target, len(raw.Records))
	for _, rec := range raw.Records {
		m, err := decodeRecord(rec.Raw)
		if err != nil {
			continue
		}
		id, ok := recordID(m)
		if !ok {
			continue
		}
		if _, dup := targets[id]; dup {
			continue
		}
		v, present := m[displayKey]
		prev, _ := boolFlexible(v)
		targets[id] = target{rec: rec, prev: prev, present: present}
	}

	patches := make([]patch, 0, len(reviews))
	for _, rv := range reviews {
		t, ok := targets[rv.ID]
		if !ok {
			res.Skipped++
			log.Warn().Str("id", rv.ID).Msg("review has no raw counterpart; flag not written")
			continue
		}
		// an absent flag already reads as false; leave such records untouched
		if !t.present && !rv.DisplayOnWebsite {
			continue
		}
		lit := []byte("false")
		if rv.DisplayOnWebsite {
			lit = []byte("true")
		}
		data, err := setMember(t.rec.Raw, displayKey, lit)
		if err != nil {
			return nil, res, fmt.Errorf("overlay %s: %w", rv.ID, err)
		}
		patches = append(patches, patch{start: t.rec.Start, end: t.rec.End, data: data})
		res.Updated++
		if t.prev != rv.DisplayOnWebsite {
			res.Changed++
		}
	}

	sort.Slice(patches, func(i, j int) bool { return patches[i].start < patches[j].start })
	out := make([]byte, 0, len(raw.Body)+len(patches)*24)
	cur := 0
	for _, p := range patches {
		out = append(out, raw.Body[cur:p.start]...)
		out = append(out, p.data...)
		cur = p.end
	}
	out = append(out, raw.Body[cur:]...)
	res.Bytes = len(out)
	return out, res, nil
}

// Save overlays the snapshot's flags and writes the result through the
// configured store. On failure nothing in memory changes.
func (w *CurationWriter) Save(ctx context.Context, snap *Snapshot) (domain.PersistResult, []byte, error) {
	body, res, err := Overlay(snap.Raw(), snap.reviews)
	res.Backend = w.store.Backend()
	if err != nil {
		observability.ObserveSave(res.Backend, "error")
		return res, nil, fmt.Errorf("%w: %w", domain.ErrPersist, err)
	}
	if err := w.store.Save(ctx, body); err != nil {
		observability.ObserveSave(res.Backend, "error")
		return res, nil, fmt.Errorf("%w: %s: %w", domain.ErrPersist, res.Backend, err)
	}
	observability.ObserveSave(res.Backend, "ok")
	log.Info().
		Str("backend", res.Backend).
		Int("updated", res.Updated).
		Int("changed", res.Changed).
		Int("skipped", res.Skipped).
		Int("bytes", res.Bytes).
		Msg("snapshot saved")
	return res, body, nil
}
