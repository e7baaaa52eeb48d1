// Package fuzzy scores a pattern against a target as an in-order, not necessarily contiguous,
// character subsequence. It is a thin layer over github.com/sahilm/fuzzy that scores one target
// at a time and isolates scorer failures.
package fuzzy

import (
	"math"

	"github.com/sahilm/fuzzy"
)

// NoMatch is the sentinel reported when the pattern is not a subsequence of the target.
const NoMatch = math.MinInt32

// Func scores pattern against target, returning NoMatch when there is no match.
// Higher scores are better; real matches may still be negative for long, sparse matches.
type Func func(pattern, target string) int

// single adapts one string to fuzzy.Source so scoring does not allocate a slice per call.
type single string

func (s single) String(int) string { return string(s) }
func (s single) Len() int          { return 1 }

// Score is the default Func. Matching is case-insensitive; word starts, separators and
// adjacent characters are rewarded, unmatched characters are penalized.
func Score(pattern, target string) int {
	if pattern == "" || target == "" {
		return NoMatch
	}
	matches := fuzzy.FindFrom(pattern, single(target))
	if len(matches) == 0 {
		return NoMatch
	}
	return matches[0].Score
}

// Best returns the highest score of pattern across targets. A target whose scoring panics
// counts as NoMatch for that target only. matched is false when no target matched.
func Best(score Func, pattern string, targets ...string) (best int, matched bool) {
	best = NoMatch
	for _, target := range targets {
		s := safeScore(score, pattern, target)
		if s == NoMatch {
			continue
		}
		if !matched || s > best {
			best = s
			matched = true
		}
	}
	return best, matched
}

func safeScore(score Func, pattern, target string) (s int) {
	defer func() {
		if r := recover(); r != nil {
			s = NoMatch
		}
	}()
	return score(pattern, target)
}
