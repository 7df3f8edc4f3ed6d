// Package collection holds the authoritative review collection in memory and
// mirrors every change to a SnapshotStore.
//
// Readers get immutable snapshots and never block on writers. Writers
// serialize on one mutex around load-mutate-persist, and a new snapshot is
// published only after the backend accepted the write.
package collection

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"hostaway_reviews/internal/domain"
	"hostaway_reviews/internal/idgen"
)

type Store struct {
	backend  domain.SnapshotStore
	versions idgen.Generator

	mu  sync.Mutex // guards writes and initialization
	cur atomic.Pointer[domain.Snapshot]
}

func New(backend domain.SnapshotStore, versions idgen.Generator) *Store {
	if versions == nil {
		versions = idgen.Default
	}
	return &Store{backend: backend, versions: versions}
}

// Init loads the persisted collection once. When nothing was persisted it
// writes an empty collection so the durable record exists from then on.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initLocked(ctx)
}

func (s *Store) initLocked(ctx context.Context) error {
	if s.cur.Load() != nil {
		return nil
	}
	reviews, found, err := s.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("load collection: %w", err)
	}
	if !found {
		reviews = []domain.Review{}
		if err := s.backend.Save(ctx, reviews); err != nil {
			return fmt.Errorf("persist empty collection: %w", err)
		}
	}
	s.publish(reviews)
	return nil
}

func (s *Store) publish(reviews []domain.Review) {
	s.cur.Store(&domain.Snapshot{Version: s.versions(), Reviews: reviews})
}

// Snapshot returns the current view; empty before Init.
func (s *Store) Snapshot() domain.Snapshot {
	if p := s.cur.Load(); p != nil {
		return *p
	}
	return domain.Snapshot{Reviews: []domain.Review{}}
}

// LoadAll returns the full collection, initializing the store on first use.
func (s *Store) LoadAll(ctx context.Context) ([]domain.Review, error) {
	if p := s.cur.Load(); p != nil {
		return p.Reviews, nil
	}
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	return s.Snapshot().Reviews, nil
}

// MergeInsert appends the batch records whose SourceID is not present yet,
// including ones added earlier in the same batch. Nothing is written when
// no record was added.
func (s *Store) MergeInsert(ctx context.Context, batch []domain.Review) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.initLocked(ctx); err != nil {
		return 0, err
	}

	cur := s.cur.Load().Reviews
	seen := make(map[int64]struct{}, len(cur)+len(batch))
	for _, r := range cur {
		seen[r.SourceID] = struct{}{}
	}

	var fresh []domain.Review
	for _, r := range batch {
		if _, dup := seen[r.SourceID]; dup {
			continue
		}
		seen[r.SourceID] = struct{}{}
		fresh = append(fresh, r)
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	next := make([]domain.Review, 0, len(cur)+len(fresh))
	next = append(next, cur...)
	next = append(next, fresh...)
	if err := s.backend.Save(ctx, next); err != nil {
		return 0, fmt.Errorf("persist collection: %w", err)
	}
	s.publish(next)
	return len(fresh), nil
}

// resolveIndex locates the review identified by key: internal id first,
// then the upstream source id. It returns -1 when nothing matches.
func resolveIndex(reviews []domain.Review, key string) int {
	for i := range reviews {
		if reviews[i].ID == key {
			return i
		}
	}
	for i := range reviews {
		if strconv.FormatInt(reviews[i].SourceID, 10) == key {
			return i
		}
	}
	return -1
}

// SetApproved flips the moderation flag of the review identified by key.
func (s *Store) SetApproved(ctx context.Context, key string, approved bool) (domain.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.initLocked(ctx); err != nil {
		return domain.Review{}, err
	}

	cur := s.cur.Load().Reviews
	i := resolveIndex(cur, key)
	if i < 0 {
		return domain.Review{}, fmt.Errorf("review %q: %w", key, domain.ErrNotFound)
	}

	next := make([]domain.Review, len(cur))
	copy(next, cur)
	next[i].Approved = approved
	if err := s.backend.Save(ctx, next); err != nil {
		return domain.Review{}, fmt.Errorf("persist collection: %w", err)
	}
	s.publish(next)
	return next[i], nil
}
