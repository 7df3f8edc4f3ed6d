package domain

import "time"

// DefaultChannel is assigned when the upstream record carries no channel.
const DefaultChannel = "hostaway"

// UnknownListing groups reviews without a listing name.
const UnknownListing = "Unknown"

type CategoryRating struct {
	Category string  `json:"category"`
	Rating   float64 `json:"rating"`
}

// RawReview is one record of the Hostaway reviews payload. Every field is untrusted.
type RawReview struct {
	ID             int64            `json:"id"`
	Type           string           `json:"type"`
	Status         string           `json:"status"`
	Rating         *float64         `json:"rating"`
	PublicReview   *string          `json:"publicReview"`
	ReviewCategory []CategoryRating `json:"reviewCategory,omitempty"`
	SubmittedAt    string           `json:"submittedAt"`
	GuestName      *string          `json:"guestName,omitempty"`
	ListingName    *string          `json:"listingName,omitempty"`
	Channel        *string          `json:"channel,omitempty"`
}

// RawEnvelope is the upstream response body.
type RawEnvelope struct {
	Status string      `json:"status"`
	Result []RawReview `json:"result"`
}

// Review is the canonical review. Only Approved changes after creation.
type Review struct {
	ID          string           `json:"id"`
	SourceID    int64            `json:"sourceId"`
	Type        string           `json:"type"`
	Status      string           `json:"status"`
	Rating      *float64         `json:"rating"`
	Categories  []CategoryRating `json:"categories"`
	Text        *string          `json:"text"`
	SubmittedAt time.Time        `json:"submittedAt"`
	GuestName   *string          `json:"guestName,omitempty"`
	ListingName *string          `json:"listingName,omitempty"`
	Channel     *string          `json:"channel,omitempty"`
	Approved    bool             `json:"approved"`
}

// Listing returns the grouping label used by aggregations.
func (r Review) Listing() string {
	if r.ListingName == nil || *r.ListingName == "" {
		return UnknownListing
	}
	return *r.ListingName
}

// RatingOr returns the overall rating, or def when it is missing.
func (r Review) RatingOr(def float64) float64 {
	if r.Rating == nil {
		return def
	}
	return *r.Rating
}

// PublicReview is the reduced projection served to the public site.
type PublicReview struct {
	ID          string    `json:"id"`
	Rating      *float64  `json:"rating"`
	Text        *string   `json:"text"`
	SubmittedAt time.Time `json:"submittedAt"`
	GuestName   *string   `json:"guestName,omitempty"`
	ListingName *string   `json:"listingName,omitempty"`
}

func (r Review) Public() PublicReview {
	return PublicReview{
		ID:          r.ID,
		Rating:      r.Rating,
		Text:        r.Text,
		SubmittedAt: r.SubmittedAt,
		GuestName:   r.GuestName,
		ListingName: r.ListingName,
	}
}
