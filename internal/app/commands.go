package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"hostaway_reviews/internal/adapters/observability"
	"hostaway_reviews/internal/domain"
)

// FallbackFunc returns the bundled dataset used when the live source is unusable.
type FallbackFunc func() ([]domain.RawReview, error)

type IngestionService struct {
	source   domain.ReviewSource // nil: always use the fallback dataset
	fallback FallbackFunc
	coll     domain.ReviewCollection
	canon    *Canonicalizer
	timeout  time.Duration

	group singleflight.Group
}

func NewIngestionService(src domain.ReviewSource, fb FallbackFunc, coll domain.ReviewCollection, canon *Canonicalizer, timeout time.Duration) *IngestionService {
	if timeout <= 0 {
		timeout = 4 * time.Second
	}
	return &IngestionService{source: src, fallback: fb, coll: coll, canon: canon, timeout: timeout}
}

// Ingest fetches one batch (live if usable, fallback otherwise), canonicalizes
// it and merge-inserts it. Upstream failures never surface; only a failed
// persist returns an error. Concurrent calls share a single run.
func (s *IngestionService) Ingest(ctx context.Context) (domain.IngestResult, error) {
	// the shared run must not die with the first caller's request
	runCtx := context.WithoutCancel(ctx)
	v, err, shared := s.group.Do("ingest", func() (interface{}, error) {
		return s.ingest(runCtx)
	})
	if err != nil {
		return domain.IngestResult{}, err
	}
	res := v.(domain.IngestResult)
	if shared {
		log.Debug().Str("source", res.Source).Msg("ingestion shared with concurrent caller")
	}
	return res, nil
}

func (s *IngestionService) ingest(ctx context.Context) (domain.IngestResult, error) {
	raws, source := s.fetch(ctx)
	normalized := s.canon.CanonicalizeAll(raws)

	added, err := s.coll.MergeInsert(ctx, normalized)
	if err != nil {
		return domain.IngestResult{}, err
	}

	observability.ObserveIngest(source, added)
	log.Info().
		Str("source", source).
		Int("fetched", len(normalized)).
		Int("added", added).
		Msg("ingestion done")

	return domain.IngestResult{Added: added, Normalized: normalized, Source: source}, nil
}

// fetch tries the live source under a bounded timeout; any error or an
// empty batch resolves to the fallback dataset.
func (s *IngestionService) fetch(ctx context.Context) ([]domain.RawReview, string) {
	if s.source != nil {
		fctx, cancel := context.WithTimeout(ctx, s.timeout)
		raws, err := s.source.FetchReviews(fctx)
		cancel()
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("live review fetch failed, using fallback dataset")
		case len(raws) == 0:
			log.Warn().Msg("live review fetch returned no records, using fallback dataset")
		default:
			return raws, domain.SourceLive
		}
	}

	if s.fallback == nil {
		return nil, domain.SourceFallback
	}
	raws, err := s.fallback()
	if err != nil {
		log.Error().Err(err).Msg("fallback dataset unavailable")
		return nil, domain.SourceFallback
	}
	return raws, domain.SourceFallback
}
