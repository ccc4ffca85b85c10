// Command ingestor pulls the review batch once through the source chain and,
// when it came from a remote source, stores it as the durable snapshot with
// existing curation carried over.
package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"flex_reviews/internal/adapters/observability"
	"flex_reviews/internal/bootstrap"
	"flex_reviews/internal/shared"
)

func main() {
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv)
	observability.SetLevel(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	log.Info().
		Strs("sources", cfg.Sources).
		Str("backend", cfg.SnapshotBackend).
		Int("workers", cfg.Workers).
		Msg("ingestor starting")

	sess, _, closeStore, err := bootstrap.Session(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("wiring failed")
	}
	defer closeStore()

	snap, err := sess.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("load failed")
	}
	if !snap.Source().Remote {
		log.Info().Str("source", snap.Source().Name).Msg("no remote source answered; snapshot left as is")
		return
	}

	res, err := sess.Save(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("snapshot save failed")
	}
	log.Info().
		Str("source", snap.Source().Name).
		Int("reviews", snap.Len()).
		Int("skipped", snap.Skipped()).
		Int("flags", res.Updated).
		Int("bytes", res.Bytes).
		Msg("ingestion completed")
}
