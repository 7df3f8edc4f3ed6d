package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"hostaway_reviews/internal/adapters/hostaway"
	"hostaway_reviews/internal/adapters/observability"
	"hostaway_reviews/internal/app"
	"hostaway_reviews/internal/domain"
	"hostaway_reviews/internal/idgen"
	"hostaway_reviews/internal/shared"
	"hostaway_reviews/internal/storage"
	"hostaway_reviews/internal/storage/collection"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	log.Info().
		Str("base", cfg.HostawayBase).
		Str("account", cfg.HostawayAccountID).
		Str("backend", cfg.StoreBackend).
		Msg("ingestor starting")

	backend, closeBackend, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open snapshot store failed")
	}

	coll := collection.New(backend, idgen.Default)
	if err := coll.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("collection init failed")
	}

	var source domain.ReviewSource
	if cfg.HostawayKey != "" {
		client, err := hostaway.New(cfg.HostawayBase, cfg.HostawayAccountID, cfg.HostawayKey, cfg.HostawayRPS,
			hostaway.WithAttempts(cfg.HostawayAttempts),
			hostaway.WithHTTPClient(&http.Client{Timeout: cfg.HostawayTimeout}))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize Hostaway client")
		}
		source = client
	}

	ing := app.NewIngestionService(source, hostaway.FallbackReviews, coll, app.NewCanonicalizer(idgen.Default, time.Now), cfg.HostawayTimeout)
	res, err := ing.Ingest(ctx)
	_ = closeBackend()
	if err != nil {
		log.Error().Err(err).Msg("ingestion failed")
		os.Exit(1)
	}

	log.Info().
		Str("source", res.Source).
		Int("fetched", len(res.Normalized)).
		Int("added", res.Added).
		Int("total", len(coll.Snapshot().Reviews)).
		Msg("ingestion completed")
}
