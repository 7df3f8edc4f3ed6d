package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"hostaway_reviews/internal/domain"
)

type document struct {
	Reviews []domain.Review `json:"reviews"`
}

// Repo stores the review collection as one JSON document row.
type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Load(ctx context.Context) ([]domain.Review, bool, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx, getSnapshotSQL, snapshotRowID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false, fmt.Errorf("decode review snapshot: %w", err)
	}
	if doc.Reviews == nil {
		doc.Reviews = []domain.Review{}
	}
	return doc.Reviews, true, nil
}

// Save replaces the document in a single statement.
func (r *Repo) Save(ctx context.Context, reviews []domain.Review) error {
	if reviews == nil {
		reviews = []domain.Review{}
	}
	b, err := json.Marshal(document{Reviews: reviews})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, upsertSnapshotSQL, snapshotRowID, string(b))
	return err
}
