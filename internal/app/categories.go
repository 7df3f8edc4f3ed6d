package app

import "hostaway_reviews/internal/domain"

type catSum struct {
	sum   float64
	count int
}

// AggregateCategories averages each category per listing over the filtered set.
// Listings and categories keep first-seen order. A listing whose reviews carry
// no categories is still reported, with an empty category list.
func AggregateCategories(all []domain.Review, f domain.Filter) []domain.ListingCategories {
	type listingAcc struct {
		name  string
		order []string
		cats  map[string]*catSum
	}

	byListing := make(map[string]*listingAcc)
	var order []*listingAcc
	for _, r := range FilterReviews(all, f) {
		key := r.Listing()
		acc, ok := byListing[key]
		if !ok {
			acc = &listingAcc{name: key, cats: make(map[string]*catSum)}
			byListing[key] = acc
			order = append(order, acc)
		}
		for _, c := range r.Categories {
			cs, ok := acc.cats[c.Category]
			if !ok {
				cs = &catSum{}
				acc.cats[c.Category] = cs
				acc.order = append(acc.order, c.Category)
			}
			cs.sum += c.Rating
			cs.count++
		}
	}

	out := make([]domain.ListingCategories, 0, len(order))
	for _, acc := range order {
		lc := domain.ListingCategories{Listing: acc.name, Categories: make([]domain.CategoryAggregate, 0, len(acc.order))}
		for _, name := range acc.order {
			cs := acc.cats[name]
			lc.Categories = append(lc.Categories, domain.CategoryAggregate{
				Category:  name,
				AvgRating: cs.sum / float64(cs.count),
				Count:     cs.count,
			})
		}
		out = append(out, lc)
	}
	return out
}

// ListFacets returns distinct listing names and channels in first-seen order.
func ListFacets(all []domain.Review) domain.Facets {
	out := domain.Facets{Listings: []string{}, Channels: []string{}}
	seenL, seenC := map[string]struct{}{}, map[string]struct{}{}
	for _, r := range all {
		if l := deref(r.ListingName); l != "" {
			if _, ok := seenL[l]; !ok {
				seenL[l] = struct{}{}
				out.Listings = append(out.Listings, l)
			}
		}
		if c := deref(r.Channel); c != "" {
			if _, ok := seenC[c]; !ok {
				seenC[c] = struct{}{}
				out.Channels = append(out.Channels, c)
			}
		}
	}
	return out
}
