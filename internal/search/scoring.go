package search

import (
	"strings"

	"github.com/gcbaptista/mention-index/internal/fuzzy"
)

// score computes the additive score of one candidate. Signals are independent of every
// other candidate, so the result only depends on the query, the candidate and the weights.
func (s *Service) score(q preparedQuery, e *corpusEntry) float64 {
	w := s.settings
	score := 0.0

	// 1. Prefix bonuses (additive with each other)
	if strings.HasPrefix(e.base, q.folded) {
		score += w.BasenamePrefixBonus
	}
	if strings.HasPrefix(e.path, q.folded) {
		score += w.PathPrefixBonus
	}

	// 2. Substring bonus
	if strings.Contains(e.path, q.folded) {
		score += w.SubstringBonus
	}

	// 3. Fuzzy bonus, skipped for very short queries
	if q.fuzzy {
		score += s.fuzzyBonus(q.folded, e)
	}

	if q.hasSeparator {
		// 4. Path-segment sequential match
		if matched := matchSegments(e.path, q.segments); matched > 0 {
			score += float64(matched) * w.SegmentBonus
			if e.candidate.IsDir {
				score += w.DirectorySegmentBonus
			}
		}
	} else if !e.candidate.IsDir {
		// 5. Type bias
		score += w.FileBias
	}

	// 6. Length penalty
	score -= float64(e.length) * w.LengthPenalty

	return score
}

// fuzzyBonus scores the query against the basename and the full path and keeps the better
// of the two. A real match is shifted by FuzzyOffset and clamped to [0, FuzzyMaxBonus], so
// the signal only ever adds. A scorer failure on this candidate counts as no match.
func (s *Service) fuzzyBonus(query string, e *corpusEntry) float64 {
	best, matched := fuzzy.Best(s.fuzzyScore, query, e.base, e.path)
	if !matched {
		return 0
	}
	bonus := float64(best) + s.settings.FuzzyOffset
	if bonus < 0 {
		return 0
	}
	if bonus > s.settings.FuzzyMaxBonus {
		return s.settings.FuzzyMaxBonus
	}
	return bonus
}

// matchSegments walks path left to right looking for each segment at or after the end of
// the previous match. It returns how many segments matched consecutively from the first;
// the walk stops at the first segment that is not found.
func matchSegments(path string, segments []string) int {
	pos := 0
	matched := 0
	for _, segment := range segments {
		idx := strings.Index(path[pos:], segment)
		if idx < 0 {
			break
		}
		pos += idx + len(segment)
		matched++
	}
	return matched
}
