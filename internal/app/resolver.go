package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"flex_reviews/internal/adapters/observability"
	"flex_reviews/internal/domain"
)

// Resolver walks the source priority chain until one source yields a usable
// batch. Remote results are cached for a bounded window.
type Resolver struct {
	sources  []domain.DataSource
	cache    domain.Cache
	cacheTTL time.Duration
	timeout  time.Duration
	bootID   string
}

func NewResolver(sources []domain.DataSource, cache domain.Cache, fetchTimeout, cacheTTL time.Duration) *Resolver {
	return &Resolver{
		sources:  sources,
		cache:    cache,
		cacheTTL: cacheTTL,
		timeout:  fetchTimeout,
		// the boot id scopes cache entries to this process
		bootID: uuid.NewString(),
	}
}

type cachedBatch struct {
	Source    string    `json:"source"`
	Body      []byte    `json:"body"`
	FetchedAt time.Time `json:"fetched_at"`
}

func (r *Resolver) cacheKey() string { return "reviews:batch:" + r.bootID }

// Sources lists the chain in priority order.
func (r *Resolver) Sources() []string {
	out := make([]string, len(r.sources))
	for i, s := range r.sources {
		out[i] = s.Name()
	}
	return out
}

func (r *Resolver) Resolve(ctx context.Context) (domain.RawBatch, domain.SourceTag, error) {
	if batch, tag, ok := r.fromCache(ctx); ok {
		return batch, tag, nil
	}

	var errs []error
	for _, src := range r.sources {
		if err := ctx.Err(); err != nil {
			return domain.RawBatch{}, domain.SourceTag{}, err
		}
		batch, err := r.attempt(ctx, src)
		if err != nil {
			log.Warn().Str("source", src.Name()).Err(err).Msg("review source failed, falling through")
			errs = append(errs, err)
			continue
		}

		tag := domain.SourceTag{Name: src.Name(), Remote: src.Remote(), FetchedAt: time.Now().UTC()}
		if src.Remote() {
			r.store(ctx, tag, batch.Body)
		}
		log.Info().
			Str("source", tag.Name).
			Bool("remote", tag.Remote).
			Int("records", len(batch.Records)).
			Msg("review batch resolved")
		return batch, tag, nil
	}

	return domain.RawBatch{}, domain.SourceTag{}, fmt.Errorf("%w (tried: %s): %w",
		domain.ErrNoSource, strings.Join(r.Sources(), ", "), errors.Join(errs...))
}

// attempt runs one source. Every failure is reported as ErrSourceUnavailable.
func (r *Resolver) attempt(ctx context.Context, src domain.DataSource) (domain.RawBatch, error) {
	fail := func(err error) (domain.RawBatch, error) {
		return domain.RawBatch{}, fmt.Errorf("%w: %s: %w", domain.ErrSourceUnavailable, src.Name(), err)
	}

	fctx := ctx
	if src.Remote() && r.timeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	body, err := src.Fetch(fctx)
	if err != nil {
		observability.ObserveSource(src.Name(), "error", time.Since(start))
		return fail(err)
	}
	batch, err := DecodeEnvelope(body)
	if err != nil {
		observability.ObserveSource(src.Name(), "bad_body", time.Since(start))
		return fail(err)
	}
	if batch.Status == "fail" || batch.Status == "error" {
		observability.ObserveSource(src.Name(), "bad_status", time.Since(start))
		return fail(fmt.Errorf("envelope status %q", batch.Status))
	}
	if src.Remote() && len(batch.Records) == 0 {
		observability.ObserveSource(src.Name(), "empty", time.Since(start))
		return fail(errors.New("empty result set"))
	}
	observability.ObserveSource(src.Name(), "ok", time.Since(start))
	return batch, nil
}

func (r *Resolver) fromCache(ctx context.Context) (domain.RawBatch, domain.SourceTag, bool) {
	if r.cache == nil || r.cacheTTL <= 0 {
		return domain.RawBatch{}, domain.SourceTag{}, false
	}
	var cb cachedBatch
	ok, err := r.cache.Get(ctx, r.cacheKey(), &cb)
	if err != nil {
		log.Warn().Err(err).Msg("batch cache read failed")
		return domain.RawBatch{}, domain.SourceTag{}, false
	}
	if !ok {
		return domain.RawBatch{}, domain.SourceTag{}, false
	}
	batch, err := DecodeEnvelope(cb.Body)
	if err != nil {
		_ = r.cache.Del(ctx, r.cacheKey())
		return domain.RawBatch{}, domain.SourceTag{}, false
	}
	log.Debug().Str("source", cb.Source).Msg("review batch served from cache")
	return batch, domain.SourceTag{Name: cb.Source, Remote: true, Cached: true, FetchedAt: cb.FetchedAt}, true
}

func (r *Resolver) store(ctx context.Context, tag domain.SourceTag, body []byte) {
	if r.cache == nil || r.cacheTTL <= 0 {
		return
	}
	cb := cachedBatch{Source: tag.Name, Body: body, FetchedAt: tag.FetchedAt}
	if err := r.cache.Set(ctx, r.cacheKey(), cb, int(r.cacheTTL.Seconds())); err != nil {
		log.Warn().Err(err).Msg("batch cache write failed")
	}
}

// Invalidate drops the cached remote batch so the next Resolve hits the chain.
func (r *Resolver) Invalidate(ctx context.Context) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Del(ctx, r.cacheKey()); err != nil {
		log.Warn().Err(err).Msg("batch cache invalidate failed")
	}
}

// SnapshotSource exposes the durable snapshot as the last link of the chain.
type SnapshotSource struct {
	store domain.SnapshotStore
}

func NewSnapshotSource(st domain.SnapshotStore) *SnapshotSource {
	return &SnapshotSource{store: st}
}

func (s *SnapshotSource) Name() string { return "snapshot:" + s.store.Backend() }
func (s *SnapshotSource) Remote() bool { return false }

func (s *SnapshotSource) Fetch(ctx context.Context) ([]byte, error) {
	return s.store.Load(ctx)
}
