package calculator

import (
	"strings"
	"unicode"

	"github.com/agext/levenshtein"
)

const (
	locationMatchThreshold = 0.80
	prefixedMatchThreshold = 0.85
)

// MatchLocation resolves free-text user input to a location key of one
// auction house. An exact key wins; otherwise the closest key by edit
// similarity is accepted above a threshold, first for the raw input and
// then for the input prefixed with the house name.
func (t *Table) MatchLocation(a Auction, input string) (string, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", false
	}
	keys := t.Locations(a)
	if len(keys) == 0 {
		return "", false
	}
	if _, ok := t.Lookup(input); ok && strings.HasPrefix(input, a.DisplayName()+": ") {
		return input, true
	}

	if key, score := bestMatch(input, keys); score > locationMatchThreshold {
		return key, true
	}
	if key, score := bestMatch(LocationKey(a, input), keys); score > prefixedMatchThreshold {
		return key, true
	}
	return "", false
}

func bestMatch(query string, candidates []string) (string, float64) {
	q := normalizeLocation(query)
	var best string
	var bestScore float64
	for _, c := range candidates {
		score := levenshtein.Similarity(q, normalizeLocation(c), nil)
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	return best, bestScore
}

// normalizeLocation lowercases and collapses punctuation to single spaces
func normalizeLocation(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, " ")
}
