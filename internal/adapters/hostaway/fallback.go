package hostaway

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"hostaway_reviews/internal/domain"
)

//go:embed fallback.json
var fallbackJSON []byte

// FallbackReviews decodes the bundled dataset served when the live API is
// unusable. Each call returns a fresh slice.
func FallbackReviews() ([]domain.RawReview, error) {
	var env domain.RawEnvelope
	if err := json.Unmarshal(fallbackJSON, &env); err != nil {
		return nil, fmt.Errorf("decode fallback dataset: %w", err)
	}
	return env.Result, nil
}
