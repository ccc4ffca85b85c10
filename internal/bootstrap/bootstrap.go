// Package bootstrap assembles the adapters both binaries share from config.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"flex_reviews/internal/adapters/channelapi"
	"flex_reviews/internal/adapters/memcache"
	redisad "flex_reviews/internal/adapters/redis"
	"flex_reviews/internal/adapters/snapshotfile"
	"flex_reviews/internal/app"
	"flex_reviews/internal/domain"
	"flex_reviews/internal/shared"
	mysqlrepo "flex_reviews/internal/storage/mysql"
	"flex_reviews/internal/storage/sqlite"
)

// SnapshotStore opens the configured durable backend. close releases it.
func SnapshotStore(ctx context.Context, cfg shared.Config) (st domain.SnapshotStore, closeFn func(), err error) {
	switch cfg.SnapshotBackend {
	case "", "file":
		return snapshotfile.New(cfg.SnapshotPath), func() {}, nil
	case "sqlite":
		s, err := sqlite.Open(cfg.SQLitePath, cfg.SnapshotName)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		return s, func() { _ = s.Close() }, nil
	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("sql.Open: %w", err)
		}
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("db.Ping: %w", err)
		}
		log.Info().Msg("database connection ok")
		return mysqlrepo.New(db, cfg.SnapshotName), func() { _ = db.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown snapshot backend %q", cfg.SnapshotBackend)
}

// Sources builds the priority chain named by cfg.Sources. A mirror without a
// URL is left out rather than failing startup.
func Sources(cfg shared.Config, st domain.SnapshotStore) ([]domain.DataSource, error) {
	var out []domain.DataSource
	for _, name := range cfg.Sources {
		switch name {
		case "hostaway":
			c, err := channelapi.New(channelapi.Config{
				Name:     name,
				URL:      strings.TrimRight(cfg.HostawayBase, "/") + "/reviews",
				Token:    cfg.HostawayToken,
				RPS:      cfg.SourceRPS,
				PageSize: cfg.PageSize,
				Workers:  cfg.Workers,
			})
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		case "mirror":
			if cfg.MirrorURL == "" {
				log.Info().Msg("MIRROR_URL is empty; mirror source disabled")
				continue
			}
			c, err := channelapi.New(channelapi.Config{
				Name:    name,
				URL:     cfg.MirrorURL,
				RPS:     cfg.SourceRPS,
				Workers: cfg.Workers,
			})
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		case "snapshot":
			out = append(out, app.NewSnapshotSource(st))
		default:
			return nil, fmt.Errorf("unknown review source %q", name)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no sources configured", domain.ErrNoSource)
	}
	return out, nil
}

// Cache returns redis when configured and reachable, the in-process cache otherwise.
func Cache(ctx context.Context, cfg shared.Config) domain.Cache {
	if cfg.RedisAddr == "" {
		return memcache.New()
	}
	rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rc.Ping(pctx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable; using in-process cache")
		_ = rc.Close()
		return memcache.New()
	}
	return rc
}

// Session wires store, sources, cache and resolver into one operator session.
func Session(ctx context.Context, cfg shared.Config) (*app.Session, domain.SnapshotStore, func(), error) {
	st, closeFn, err := SnapshotStore(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	srcs, err := Sources(cfg, st)
	if err != nil {
		closeFn()
		return nil, nil, nil, err
	}
	res := app.NewResolver(srcs, Cache(ctx, cfg), cfg.FetchTimeoutDur(), cfg.CacheTTL())
	return app.NewSession(res, st), st, closeFn, nil
}
