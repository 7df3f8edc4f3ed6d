package app

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"hostaway_reviews/internal/domain"
)

// QueryService answers read queries from the current collection snapshot.
// Results are cached per snapshot version, so a mutation never serves stale data.
type QueryService struct {
	coll     domain.ReviewCollection
	cache    domain.Cache // optional
	cacheTTL time.Duration
}

func NewQueryService(coll domain.ReviewCollection, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{coll: coll, cache: c, cacheTTL: ttl}
}

// Empty reports whether the collection holds no reviews.
func (s *QueryService) Empty() bool { return len(s.coll.Snapshot().Reviews) == 0 }

func (s *QueryService) ListReviews(ctx context.Context, q domain.ReviewsQuery) domain.ReviewsPage {
	snap := s.coll.Snapshot()
	key := cacheKey("list", snap.Version, filterValues(q.Filter, func(v url.Values) {
		v.Set("sort", string(q.Sort))
		v.Set("page", strconv.Itoa(q.Page))
		v.Set("pageSize", strconv.Itoa(q.PageSize))
	}))
	return cached(ctx, s, key, snap.Version, func() domain.ReviewsPage { return Query(snap.Reviews, q) })
}

func (s *QueryService) CategoryAggregates(ctx context.Context, f domain.Filter) []domain.ListingCategories {
	snap := s.coll.Snapshot()
	key := cacheKey("categories", snap.Version, filterValues(f, nil))
	return cached(ctx, s, key, snap.Version, func() []domain.ListingCategories { return AggregateCategories(snap.Reviews, f) })
}

func (s *QueryService) PublicReviews(ctx context.Context, listing string, pq domain.PageQuery) domain.PublicPage {
	snap := s.coll.Snapshot()
	key := cacheKey("public", snap.Version, filterValues(domain.Filter{Listing: listing}, func(v url.Values) {
		v.Set("page", strconv.Itoa(pq.Page))
		v.Set("pageSize", strconv.Itoa(pq.PageSize))
	}))
	return cached(ctx, s, key, snap.Version, func() domain.PublicPage { return PublicQuery(snap.Reviews, listing, pq) })
}

func (s *QueryService) Keywords(ctx context.Context) []domain.KeywordCount {
	snap := s.coll.Snapshot()
	return cached(ctx, s, cacheKey("issues", snap.Version, ""), snap.Version, func() []domain.KeywordCount { return ExtractKeywords(snap.Reviews) })
}

func (s *QueryService) Facets(ctx context.Context) domain.Facets {
	snap := s.coll.Snapshot()
	return cached(ctx, s, cacheKey("facets", snap.Version, ""), snap.Version, func() domain.Facets { return ListFacets(snap.Reviews) })
}

// cached is cache-aside around compute. Cache errors count as misses; an
// entry that cannot be read back is evicted before being recomputed.
func cached[T any](ctx context.Context, s *QueryService, key, version string, compute func() T) T {
	if s.cache == nil || version == "" {
		return compute()
	}
	var out T
	ok, err := s.cache.Get(ctx, key, &out)
	if ok && err == nil {
		return out
	}
	if err != nil {
		log.Debug().Err(err).Str("key", key).Msg("query cache read failed")
		_ = s.cache.Del(ctx, key)
	}
	out = compute()
	_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	return out
}

func cacheKey(op, version, params string) string {
	return fmt.Sprintf("reviews:%s:%s:%s", op, version, params)
}

// filterValues renders a filter deterministically (url.Values sorts by key).
func filterValues(f domain.Filter, extra func(url.Values)) string {
	v := url.Values{}
	if f.Listing != "" {
		v.Set("listing", strings.ToLower(f.Listing))
	}
	if f.RatingMin != nil {
		v.Set("ratingMin", strconv.FormatFloat(*f.RatingMin, 'g', -1, 64))
	}
	if f.Channel != "" {
		v.Set("channel", strings.ToLower(f.Channel))
	}
	if f.From != nil {
		v.Set("from", f.From.UTC().Format(time.RFC3339Nano))
	}
	if f.To != nil {
		v.Set("to", f.To.UTC().Format(time.RFC3339Nano))
	}
	if f.Approved != nil {
		v.Set("approved", strconv.FormatBool(*f.Approved))
	}
	if extra != nil {
		extra(v)
	}
	return v.Encode()
}
