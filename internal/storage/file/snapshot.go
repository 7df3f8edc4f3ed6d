// Package file persists the review collection as one JSON document on disk.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"hostaway_reviews/internal/domain"
)

type document struct {
	Reviews []domain.Review `json:"reviews"`
}

type Store struct{ path string }

func New(path string) *Store { return &Store{path: path} }

func (s *Store) Path() string { return s.path }

func (s *Store) Load(ctx context.Context) ([]domain.Review, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", s.path, err)
	}
	if doc.Reviews == nil {
		doc.Reviews = []domain.Review{}
	}
	return doc.Reviews, true, nil
}

// Save writes to a temp file next to the target and renames it into place,
// so readers of the file see either the old or the new document.
func (s *Store) Save(ctx context.Context, reviews []domain.Review) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if reviews == nil {
		reviews = []domain.Review{}
	}
	body, err := json.MarshalIndent(document{Reviews: reviews}, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+"-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, s.path)
}
