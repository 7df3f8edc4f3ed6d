package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
)

// ReviewSource fetches one raw batch from the upstream API.
type ReviewSource interface {
	FetchReviews(ctx context.Context) ([]RawReview, error)
}

// SnapshotStore persists the whole review collection as one document.
type SnapshotStore interface {
	// Load returns found=false when nothing was persisted yet.
	Load(ctx context.Context) (reviews []Review, found bool, err error)
	// Save overwrites the persisted collection atomically.
	Save(ctx context.Context, reviews []Review) error
}

// Snapshot is a published, read-only view of the collection. Reviews must not be modified.
type Snapshot struct {
	Version string
	Reviews []Review
}

// ReviewCollection is the authoritative in-memory collection.
type ReviewCollection interface {
	Snapshot() Snapshot
	MergeInsert(ctx context.Context, batch []Review) (added int, err error)
	SetApproved(ctx context.Context, key string, approved bool) (Review, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Read models & queries

type SortOrder string

const (
	SortNone       SortOrder = ""
	SortDateDesc   SortOrder = "date_desc"
	SortDateAsc    SortOrder = "date_asc"
	SortRatingDesc SortOrder = "rating_desc"
	SortRatingAsc  SortOrder = "rating_asc"
)

// Filter predicates are optional and AND-combined; nil/empty means "not set".
type Filter struct {
	Listing   string
	RatingMin *float64
	Channel   string
	From, To  *time.Time
	Approved  *bool
}

type PageQuery struct {
	Page     int
	PageSize int
}

type ReviewsQuery struct {
	Filter
	Sort SortOrder
	PageQuery
}

type ListingAggregate struct {
	Listing   string  `json:"listing"`
	AvgRating float64 `json:"avgRating"`
	Count     int     `json:"count"`
}

type ReviewsPage struct {
	Items        []Review           `json:"items"`
	Total        int                `json:"total"`
	Page         int                `json:"page"`
	PageSize     int                `json:"pageSize"`
	Aggregations []ListingAggregate `json:"aggregations"`
}

type PublicPage struct {
	Items    []PublicReview `json:"items"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
}

type CategoryAggregate struct {
	Category  string  `json:"category"`
	AvgRating float64 `json:"avgRating"`
	Count     int     `json:"count"`
}

type ListingCategories struct {
	Listing    string              `json:"listing"`
	Categories []CategoryAggregate `json:"categories"`
}

type KeywordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

type Facets struct {
	Listings []string `json:"listings"`
	Channels []string `json:"channels"`
}

const (
	SourceLive     = "live"
	SourceFallback = "fallback"
)

type IngestResult struct {
	Added      int
	Normalized []Review
	Source     string
}
