package app

import (
	"math"
	"strings"
	"time"

	"hostaway_reviews/internal/domain"
	"hostaway_reviews/internal/idgen"
)

/********** timestamp parsing **********/

// Accepted upstream layouts. Inputs without a zone are read as UTC.
// Fractional seconds are accepted by every layout.
var timestampLayouts = []string{
	"2006-01-02 15:04:05", // legacy Hostaway format
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp parses the legacy "YYYY-MM-DD HH:MM:SS" format and ISO-8601
// variants. A space may stand in for the "T" date/time separator.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	candidates := []string{s}
	if len(s) > len("2006-01-02") && s[10] == ' ' {
		candidates = append(candidates, s[:10]+"T"+s[11:])
	}
	for _, c := range candidates {
		for _, layout := range timestampLayouts {
			if t, err := time.ParseInLocation(layout, c, time.UTC); err == nil {
				return t.UTC(), true
			}
		}
	}
	return time.Time{}, false
}

/********** canonicalizer **********/

type Canonicalizer struct {
	newID idgen.Generator
	now   func() time.Time
}

func NewCanonicalizer(gen idgen.Generator, now func() time.Time) *Canonicalizer {
	if gen == nil {
		gen = idgen.Default
	}
	if now == nil {
		now = time.Now
	}
	return &Canonicalizer{newID: gen, now: now}
}

// Canonicalize maps one raw record to a Review. It never fails:
// unparseable timestamps become the current time and a missing channel
// becomes DefaultChannel.
func (c *Canonicalizer) Canonicalize(r domain.RawReview) domain.Review {
	submitted, ok := ParseTimestamp(r.SubmittedAt)
	if !ok {
		submitted = c.now().UTC()
	}

	channel := domain.DefaultChannel
	if r.Channel != nil && *r.Channel != "" {
		channel = *r.Channel
	}

	cats := make([]domain.CategoryRating, len(r.ReviewCategory))
	copy(cats, r.ReviewCategory)

	return domain.Review{
		ID:          c.newID(),
		SourceID:    r.ID,
		Type:        r.Type,
		Status:      r.Status,
		Rating:      resolveRating(r.Rating, cats),
		Categories:  cats,
		Text:        r.PublicReview,
		SubmittedAt: submitted,
		GuestName:   r.GuestName,
		ListingName: r.ListingName,
		Channel:     &channel,
		Approved:    false,
	}
}

func (c *Canonicalizer) CanonicalizeAll(in []domain.RawReview) []domain.Review {
	out := make([]domain.Review, 0, len(in))
	for _, r := range in {
		out = append(out, c.Canonicalize(r))
	}
	return out
}

// resolveRating keeps an explicit rating verbatim; otherwise it derives the
// mean of the category ratings, rounded half away from zero (8.5 -> 9).
func resolveRating(rating *float64, cats []domain.CategoryRating) *float64 {
	if rating != nil {
		v := *rating
		return &v
	}
	if len(cats) == 0 {
		return nil
	}
	var sum float64
	for _, c := range cats {
		sum += c.Rating
	}
	v := math.Round(sum / float64(len(cats)))
	return &v
}
