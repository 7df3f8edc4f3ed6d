package app

import (
	"sort"
	"strings"

	"hostaway_reviews/internal/domain"
)

const MaxKeywords = 50

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "a": {}, "to": {}, "of": {}, "is": {}, "it": {}, "was": {},
	"for": {}, "in": {}, "on": {}, "we": {}, "i": {}, "our": {}, "with": {}, "at": {},
	"this": {}, "that": {}, "had": {}, "were": {}, "be": {}, "very": {},
}

// ExtractKeywords counts words across approved reviews with text.
// Words of 3 characters or fewer and stop words are skipped. Ties keep
// first-seen order.
func ExtractKeywords(all []domain.Review) []domain.KeywordCount {
	idx := make(map[string]int)
	var counts []domain.KeywordCount
	for _, r := range all {
		if !r.Approved || r.Text == nil || *r.Text == "" {
			continue
		}
		for _, w := range tokenize(*r.Text) {
			if len(w) <= 3 {
				continue
			}
			if _, stop := stopWords[w]; stop {
				continue
			}
			if i, ok := idx[w]; ok {
				counts[i].Count++
				continue
			}
			idx[w] = len(counts)
			counts = append(counts, domain.KeywordCount{Word: w, Count: 1})
		}
	}

	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	if len(counts) > MaxKeywords {
		counts = counts[:MaxKeywords]
	}
	if counts == nil {
		counts = []domain.KeywordCount{}
	}
	return counts
}

// tokenize lowercases, blanks everything outside [a-z0-9] and whitespace,
// then splits on whitespace runs.
func tokenize(text string) []string {
	lower := strings.ToLower(text)
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '\t', r == '\n', r == '\r', r == '\f', r == '\v':
			return r
		}
		return ' '
	}, lower)
	return strings.Fields(cleaned)
}
