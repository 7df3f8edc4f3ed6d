package app_test

import (
	"reflect"
	"testing"

	"hostaway_reviews/internal/app"
	"hostaway_reviews/internal/domain"
)

func TestAggregateCategories_AveragePerListing(t *testing.T) {
	a1 := rv("1", 1, "A", nil, t0)
	a1.Categories = []domain.CategoryRating{cat("cleanliness", 8), cat("communication", 6)}
	b1 := rv("2", 2, "B", nil, t0)
	b1.Categories = []domain.CategoryRating{cat("value", 5)}
	a2 := rv("3", 3, "A", nil, t0)
	a2.Categories = []domain.CategoryRating{cat("cleanliness", 10)}
	u := rv("4", 4, "", nil, t0) // no listing, no categories

	got := app.AggregateCategories([]domain.Review{a1, b1, a2, u}, domain.Filter{})
	want := []domain.ListingCategories{
		{Listing: "A", Categories: []domain.CategoryAggregate{
			{Category: "cleanliness", AvgRating: 9, Count: 2},
			{Category: "communication", AvgRating: 6, Count: 1},
		}},
		{Listing: "B", Categories: []domain.CategoryAggregate{{Category: "value", AvgRating: 5, Count: 1}}},
		{Listing: domain.UnknownListing, Categories: []domain.CategoryAggregate{}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v\nwant %+v", got, want)
	}
}

func TestAggregateCategories_AppliesFilters(t *testing.T) {
	a := rv("1", 1, "A", ptr(9.0), t0)
	a.Categories = []domain.CategoryRating{cat("cleanliness", 10)}
	b := rv("2", 2, "B", ptr(3.0), t0)
	b.Categories = []domain.CategoryRating{cat("cleanliness", 2)}

	got := app.AggregateCategories([]domain.Review{a, b}, domain.Filter{RatingMin: ptr(5.0)})
	if len(got) != 1 || got[0].Listing != "A" {
		t.Fatalf("listing B has no filtered records and must be omitted: %+v", got)
	}

	if got := app.AggregateCategories(nil, domain.Filter{}); got == nil || len(got) != 0 {
		t.Fatalf("empty input should give an empty list, got %#v", got)
	}
}

func TestListFacets(t *testing.T) {
	all := sample()
	got := app.ListFacets(all)
	if !reflect.DeepEqual(got.Listings, []string{"Shoreditch Heights", "Victoria Park Lofts", "shoreditch heights annex"}) {
		t.Fatalf("listings: %v", got.Listings)
	}
	if !reflect.DeepEqual(got.Channels, []string{"hostaway", "Airbnb"}) {
		t.Fatalf("channels: %v", got.Channels)
	}
}
