package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	server "flex_reviews/internal/adapters/http_server"
	"flex_reviews/internal/adapters/observability"
	"flex_reviews/internal/adapters/snapshotfile"
	"flex_reviews/internal/bootstrap"
	"flex_reviews/internal/domain"
	"flex_reviews/internal/shared"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)
	observability.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := observability.InitRegistry()
	if cfg.MetricsAddr != "" {
		observability.Serve(cfg.MetricsAddr, reg)
	}

	sess, st, closeStore, err := bootstrap.Session(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("wiring failed")
	}
	defer closeStore()

	if _, err := sess.Load(ctx); err != nil {
		if errors.Is(err, domain.ErrNoSource) {
			log.Fatal().Err(err).Msg("no review source could be loaded")
		}
		log.Fatal().Err(err).Msg("initial load failed")
	}

	if fs, ok := st.(*snapshotfile.Store); ok && cfg.WatchSnapshot {
		if err := fs.Watch(ctx, func() { sess.CheckDisk(ctx) }); err != nil {
			log.Warn().Err(err).Msg("snapshot watcher not started")
		}
	}

	srv := server.New(15 * time.Second)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{S: sess})

	log.Info().Str("addr", cfg.HTTPAddr).Strs("sources", cfg.Sources).Str("backend", st.Backend()).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(sctx)
	}()

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}
