package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"hostaway_reviews/internal/adapters/hostaway"
	server "hostaway_reviews/internal/adapters/http_server"
	"hostaway_reviews/internal/adapters/observability"
	redisad "hostaway_reviews/internal/adapters/redis"
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

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// store
	backend, closeBackend, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open snapshot store failed")
	}
	defer closeBackend()

	coll := collection.New(backend, idgen.Default)
	if err := coll.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("collection init failed")
	}
	log.Info().Int("reviews", len(coll.Snapshot().Reviews)).Msg("collection loaded")

	// deps
	var cache domain.Cache
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rc.Ping(pctx); err != nil {
			log.Warn().Err(err).Msg("redis unreachable, queries will miss the cache")
		}
		cancel()
		cache = rc
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

	canon := app.NewCanonicalizer(idgen.Default, time.Now)
	ing := app.NewIngestionService(source, hostaway.FallbackReviews, coll, canon, cfg.HostawayTimeout)
	q := app.NewQueryService(coll, cache, cfg.CacheTTL)
	mod := app.NewModerationService(coll)

	// http
	srv := server.New(cfg.CORSOrigin)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q, Ingest: ing, Mod: mod})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
