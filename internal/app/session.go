package app

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"flex_reviews/internal/domain"
)

// Session owns the current snapshot for one operator. All reads and the
// curation mutation go through it; nothing here is process-global.
type Session struct {
	id       string
	resolver *Resolver
	store    domain.SnapshotStore
	writer   *CurationWriter

	mu       sync.RWMutex
	snap     *Snapshot
	lastHash string // hash of the durable body this session last read or wrote
	pending  int    // flag edits since load/save
	stale    bool
}

func NewSession(res *Resolver, st domain.SnapshotStore) *Session {
	return &Session{
		id:       uuid.NewString(),
		resolver: res,
		store:    st,
		writer:   NewCurationWriter(st),
	}
}

type SessionStatus struct {
	ID       string         `json:"id"`
	Loaded   bool           `json:"loaded"`
	Source   string         `json:"source,omitempty"`
	Remote   bool           `json:"remote"`
	Cached   bool           `json:"cached"`
	LoadedAt *time.Time     `json:"loadedAt,omitempty"`
	Reviews  int            `json:"reviews"`
	Skipped  int            `json:"skipped"`
	Degraded map[string]int `json:"degraded,omitempty"`
	Pending  int            `json:"pendingEdits"`
	Stale    bool           `json:"staleOnDisk"`
	Sources  []string       `json:"sources"`
	Backend  string         `json:"backend"`
}

// Load resolves a batch, parses it and replaces the current snapshot.
func (s *Session) Load(ctx context.Context) (*Snapshot, error) {
	batch, tag, err := s.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	snap := NewSnapshot(batch, tag, ParseBatch(batch))

	var hash string
	if tag.Remote {
		hash = s.carryOver(ctx, snap)
	} else {
		hash = bodyHash(batch.Body)
	}

	s.mu.Lock()
	s.snap = snap
	s.lastHash = hash
	s.pending = 0
	s.stale = false
	s.mu.Unlock()

	log.Info().
		Str("session", s.id).
		Str("source", tag.Name).
		Bool("cached", tag.Cached).
		Int("reviews", snap.Len()).
		Int("skipped", snap.Skipped()).
		Msg("review snapshot loaded")
	return snap, nil
}

// carryOver copies display flags saved in the durable snapshot onto a
// freshly fetched remote batch and returns the durable body's hash.
func (s *Session) carryOver(ctx context.Context, snap *Snapshot) string {
	if s.store == nil {
		return ""
	}
	body, err := s.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrSnapshotNotFound) {
			log.Warn().Err(err).Msg("durable snapshot unreadable; curation not carried over")
		}
		return ""
	}
	prev, err := DecodeEnvelope(body)
	if err != nil {
		log.Warn().Err(err).Msg("durable snapshot unparsable; curation not carried over")
		return bodyHash(body)
	}
	n := 0
	for _, rec := range prev.Records {
		m, err := decodeRecord(rec.Raw)
		if err != nil {
			continue
		}
		id, ok := recordID(m)
		if !ok {
			continue
		}
		if flag, ok := boolFlexible(m[displayKey]); ok {
			if cur, found := snap.Get(id); found && cur.DisplayOnWebsite != flag {
				snap.SetDisplayFlag(id, flag)
				n++
			}
		}
	}
	if n > 0 {
		log.Info().Int("flags", n).Msg("curation carried over from durable snapshot")
	}
	return bodyHash(body)
}

// Reload drops the cached remote batch and loads again.
func (s *Session) Reload(ctx context.Context) (*Snapshot, error) {
	s.resolver.Invalidate(ctx)
	return s.Load(ctx)
}

// Current returns the loaded snapshot, loading it on first use.
func (s *Session) Current(ctx context.Context) (*Snapshot, error) {
	s.mu.RLock()
	snap := s.snap
	s.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}
	return s.Load(ctx)
}

// Reviews returns all normalized reviews in source order.
func (s *Session) Reviews(ctx context.Context) ([]domain.NormalizedReview, error) {
	snap, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snap.Reviews(), nil
}

// Query filters the snapshot and summarizes the filtered view.
func (s *Session) Query(ctx context.Context, c domain.FilterCriteria) ([]domain.NormalizedReview, domain.Summary, error) {
	all, err := s.Reviews(ctx)
	if err != nil {
		return nil, domain.Summary{}, err
	}
	rows := Filter(c, all)
	return rows, Summarize(rows), nil
}

func (s *Session) Facets(ctx context.Context) (domain.Facets, error) {
	all, err := s.Reviews(ctx)
	if err != nil {
		return domain.Facets{}, err
	}
	return CollectFacets(all), nil
}

// SetDisplay toggles one review's flag in memory. found is false for unknown ids.
func (s *Session) SetDisplay(ctx context.Context, id string, v bool) (bool, error) {
	snap, err := s.Current(ctx)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	found := snap.SetDisplayFlag(id, v)
	if found {
		s.pending++
	}
	return found, nil
}

// Save persists the current flags. A failed save keeps every in-memory edit,
// so it can simply be retried.
func (s *Session) Save(ctx context.Context) (domain.PersistResult, error) {
	snap, err := s.Current(ctx)
	if err != nil {
		return domain.PersistResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stale {
		log.Warn().Str("session", s.id).Msg("snapshot changed on disk since load; saving over it")
	}
	res, body, err := s.writer.Save(ctx, snap)
	if err != nil {
		return res, err
	}
	if batch, derr := DecodeEnvelope(body); derr == nil {
		snap.raw = batch
	}
	s.lastHash = bodyHash(body)
	s.pending = 0
	s.stale = false
	return res, nil
}

// CheckDisk compares the durable snapshot with what this session last read
// or wrote, and flags the session stale when someone else changed it.
func (s *Session) CheckDisk(ctx context.Context) bool {
	if s.store == nil {
		return false
	}
	body, err := s.store.Load(ctx)
	if err != nil {
		return false
	}
	h := bodyHash(body)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil || h == s.lastHash {
		return false
	}
	if !s.stale {
		log.Warn().Str("session", s.id).Msg("durable snapshot changed outside this session")
	}
	s.stale = true
	return true
}

func (s *Session) Status() SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := SessionStatus{
		ID:      s.id,
		Pending: s.pending,
		Stale:   s.stale,
		Sources: s.resolver.Sources(),
	}
	if s.store != nil {
		st.Backend = s.store.Backend()
	}
	if s.snap == nil {
		return st
	}
	src := s.snap.Source()
	at := s.snap.LoadedAt()
	st.Loaded = true
	st.Source = src.Name
	st.Remote = src.Remote
	st.Cached = src.Cached
	st.LoadedAt = &at
	st.Reviews = s.snap.Len()
	st.Skipped = s.snap.Skipped()
	st.Degraded = s.snap.Degraded()
	return st
}

func bodyHash(b []byte) string {
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:])
}
