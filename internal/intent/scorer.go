package intent

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Scorer rates the similarity of a query against a candidate phrase on a 0–1
// scale, 1 meaning identical. The classifier's precedence logic is independent
// of the algorithm behind this interface.
type Scorer interface {
	Score(query, candidate string) float64
}

// LevenshteinScorer scores by normalized edit distance: 1 − distance/longerLen.
type LevenshteinScorer struct{}

// Score implements Scorer.
func (LevenshteinScorer) Score(query, candidate string) float64 {
	if query == "" || candidate == "" {
		return 0
	}

	longer := utf8.RuneCountInString(query)
	if n := utf8.RuneCountInString(candidate); n > longer {
		longer = n
	}

	dist := levenshtein.ComputeDistance(query, candidate)
	score := 1 - float64(dist)/float64(longer)
	if score < 0 {
		return 0
	}
	return score
}
