package search

import "github.com/gcbaptista/mention-index/model"

// corpusEntry is a candidate with its comparison forms precomputed.
// The corpus is rebuilt only when the store generation changes.
type corpusEntry struct {
	candidate model.Candidate
	path      string // lowercased full path
	base      string // lowercased basename
	length    int    // full path length in characters
}

// scoredCandidate represents a candidate during ranking
type scoredCandidate struct {
	entry *corpusEntry
	score float64
}

// preparedQuery holds the normalized forms of a query, computed once per request.
type preparedQuery struct {
	raw          string
	folded       string
	segments     []string
	hasSeparator bool
	fuzzy        bool
}

// cacheKey identifies a cached ranking.
type cacheKey struct {
	query string
	limit int
}
