package app_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"hostaway_reviews/internal/domain"
)

// ---- fakes ----

type memBackend struct {
	mu      sync.Mutex
	saved   []domain.Review
	found   bool
	saves   int
	failErr error
}

func (m *memBackend) Load(ctx context.Context) ([]domain.Review, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved, m.found, nil
}

func (m *memBackend) Save(ctx context.Context, rs []domain.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.saved = append([]domain.Review(nil), rs...)
	m.found = true
	m.saves++
	return nil
}

func (m *memBackend) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

var errDisk = errors.New("disk full")

// ---- helpers ----

func ptr[T any](v T) *T { return &v }

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return t0 }

// rv builds a canonical review with the fields the engine looks at.
func rv(id string, source int64, listing string, rating *float64, at time.Time) domain.Review {
	r := domain.Review{
		ID:          id,
		SourceID:    source,
		Rating:      rating,
		SubmittedAt: at,
		Channel:     ptr("hostaway"),
		Categories:  []domain.CategoryRating{},
	}
	if listing != "" {
		r.ListingName = ptr(listing)
	}
	return r
}

func cat(name string, r float64) domain.CategoryRating {
	return domain.CategoryRating{Category: name, Rating: r}
}

func ids(rs []domain.Review) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}
