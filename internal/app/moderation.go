package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"hostaway_reviews/internal/domain"
)

type ModerationService struct {
	coll domain.ReviewCollection
}

func NewModerationService(coll domain.ReviewCollection) *ModerationService {
	return &ModerationService{coll: coll}
}

// SetApproved resolves key as an internal id, then as an upstream source id.
func (s *ModerationService) SetApproved(ctx context.Context, key string, approved bool) (domain.Review, error) {
	rv, err := s.coll.SetApproved(ctx, key, approved)
	if err != nil {
		return domain.Review{}, err
	}
	log.Info().Str("id", rv.ID).Int64("source_id", rv.SourceID).Bool("approved", approved).Msg("review moderated")
	return rv, nil
}
