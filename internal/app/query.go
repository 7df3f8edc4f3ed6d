package app

import (
	"math"
	"sort"
	"strings"

	"hostaway_reviews/internal/domain"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Query filters, sorts, aggregates and paginates one snapshot.
// Aggregations cover the whole filtered set, not just the returned page.
func Query(all []domain.Review, q domain.ReviewsQuery) domain.ReviewsPage {
	items := FilterReviews(all, q.Filter)
	SortReviews(items, q.Sort)

	page, size := NormalizePage(q.PageQuery)
	return domain.ReviewsPage{
		Items:        paginate(items, page, size),
		Total:        len(items),
		Page:         page,
		PageSize:     size,
		Aggregations: AggregateByListing(items),
	}
}

// PublicQuery serves approved reviews only, in stored order, projected.
func PublicQuery(all []domain.Review, listing string, pq domain.PageQuery) domain.PublicPage {
	approved := true
	items := FilterReviews(all, domain.Filter{Listing: listing, Approved: &approved})

	page, size := NormalizePage(pq)
	window := paginate(items, page, size)
	out := make([]domain.PublicReview, 0, len(window))
	for _, r := range window {
		out = append(out, r.Public())
	}
	return domain.PublicPage{Items: out, Total: len(items), Page: page, PageSize: size}
}

// FilterReviews returns a new slice; the input is never reordered.
func FilterReviews(all []domain.Review, f domain.Filter) []domain.Review {
	listing := strings.ToLower(f.Listing)
	out := make([]domain.Review, 0, len(all))
	for _, r := range all {
		if listing != "" && !strings.Contains(strings.ToLower(deref(r.ListingName)), listing) {
			continue
		}
		// a missing rating counts as 0
		if f.RatingMin != nil && r.RatingOr(0) < *f.RatingMin {
			continue
		}
		if f.Channel != "" && !strings.EqualFold(deref(r.Channel), f.Channel) {
			continue
		}
		if f.From != nil && r.SubmittedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && r.SubmittedAt.After(*f.To) {
			continue
		}
		if f.Approved != nil && r.Approved != *f.Approved {
			continue
		}
		out = append(out, r)
	}
	return out
}

// SortReviews sorts in place and is stable. Missing ratings sort last in
// both rating orders. SortNone keeps input order.
func SortReviews(items []domain.Review, order domain.SortOrder) {
	var less func(a, b domain.Review) bool
	switch order {
	case domain.SortRatingDesc:
		less = func(a, b domain.Review) bool { return a.RatingOr(-1) > b.RatingOr(-1) }
	case domain.SortRatingAsc:
		less = func(a, b domain.Review) bool { return a.RatingOr(math.MaxFloat64) < b.RatingOr(math.MaxFloat64) }
	case domain.SortDateDesc:
		less = func(a, b domain.Review) bool { return a.SubmittedAt.After(b.SubmittedAt) }
	case domain.SortDateAsc:
		less = func(a, b domain.Review) bool { return a.SubmittedAt.Before(b.SubmittedAt) }
	default:
		return
	}
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
}

// ParseSort maps a query value to a SortOrder; unknown values mean no sort.
func ParseSort(s string) domain.SortOrder {
	switch o := domain.SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case domain.SortDateDesc, domain.SortDateAsc, domain.SortRatingDesc, domain.SortRatingAsc:
		return o
	}
	return domain.SortNone
}

// AggregateByListing keeps a running mean per listing in first-seen order.
// Missing ratings contribute 0.
func AggregateByListing(items []domain.Review) []domain.ListingAggregate {
	idx := make(map[string]int)
	out := make([]domain.ListingAggregate, 0)
	for _, r := range items {
		key := r.Listing()
		i, ok := idx[key]
		if !ok {
			i = len(out)
			idx[key] = i
			out = append(out, domain.ListingAggregate{Listing: key})
		}
		agg := &out[i]
		agg.Count++
		agg.AvgRating += (r.RatingOr(0) - agg.AvgRating) / float64(agg.Count)
	}
	return out
}

// NormalizePage clamps page to >= 1 and size to [1, MaxPageSize].
// A zero size means unspecified and becomes DefaultPageSize.
func NormalizePage(pq domain.PageQuery) (page, size int) {
	page = pq.Page
	if page < 1 {
		page = 1
	}
	size = pq.PageSize
	switch {
	case size == 0:
		size = DefaultPageSize
	case size < 1:
		size = 1
	case size > MaxPageSize:
		size = MaxPageSize
	}
	return page, size
}

func paginate[T any](items []T, page, size int) []T {
	if page-1 > len(items)/size {
		return []T{}
	}
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	out := make([]T, end-start)
	copy(out, items[start:end])
	return out
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
