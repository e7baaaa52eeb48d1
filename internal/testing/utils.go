// Package testing provides utilities and helpers for testing the mention index.
package testing

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/mention-index/model"
	"github.com/gcbaptista/mention-index/services"
	"github.com/gcbaptista/mention-index/store"
)

// File returns a file candidate
func File(rel string) model.Candidate {
	return model.Candidate{Rel: rel}
}

// Dir returns a directory candidate
func Dir(rel string) model.Candidate {
	return model.Candidate{Rel: rel, IsDir: true}
}

// ProjectCandidates returns a small project tree used across tests
func ProjectCandidates() []model.Candidate {
	return []model.Candidate{
		Dir("src"),
		File("src/index.ts"),
		File("src/index.test.ts"),
		Dir("src/components"),
		File("src/components/Button.tsx"),
		File("src/components/button.css"),
		Dir("docs"),
		File("docs/README.md"),
		File("README.md"),
		File("package.json"),
	}
}

// GeneratedCandidates returns n distinct files spread over a few directories
func GeneratedCandidates(n int) []model.Candidate {
	candidates := make([]model.Candidate, n)
	for i := 0; i < n; i++ {
		candidates[i] = File(fmt.Sprintf("pkg/module_%d/file_%d.go", i%7, i))
	}
	return candidates
}

// CreateLoadedStore creates a candidate store loaded with the given candidates
func CreateLoadedStore(t *testing.T, candidates ...model.Candidate) *store.CandidateStore {
	t.Helper()
	s := store.NewCandidateStore()
	total := s.Load(candidates)
	require.LessOrEqual(t, total, len(candidates), "Load cannot report more candidates than it received")
	return s
}

// Rels extracts the paths of ranked results in order
func Rels(items []model.RankedResult) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Rel
	}
	return out
}

// IndexOf returns the position of rel in items, or -1
func IndexOf(items []model.RankedResult, rel string, isDir bool) int {
	for i, item := range items {
		if item.Rel == rel && item.IsDir == isDir {
			return i
		}
	}
	return -1
}

// AssertRankedAbove verifies that higher appears before lower in items
func AssertRankedAbove(t *testing.T, items []model.RankedResult, higher, lower model.Candidate) {
	t.Helper()
	hi := IndexOf(items, higher.Rel, higher.IsDir)
	lo := IndexOf(items, lower.Rel, lower.IsDir)
	require.NotEqual(t, -1, hi, "%q should be in the results", higher.Rel)
	if lo == -1 {
		return
	}
	assert.Less(t, hi, lo, "%q should rank above %q", higher.Rel, lower.Rel)
}

// AssertNoDuplicates verifies every identity key appears at most once
func AssertNoDuplicates(t *testing.T, items []model.RankedResult) {
	t.Helper()
	seen := make(map[model.CandidateKey]struct{}, len(items))
	for _, item := range items {
		key := model.CandidateKey{IsDir: item.IsDir, Rel: item.Rel}
		_, dup := seen[key]
		assert.False(t, dup, "duplicate result %q (dir=%v)", item.Rel, item.IsDir)
		seen[key] = struct{}{}
	}
}

// QueryTestCase represents a test case for ranking queries
type QueryTestCase struct {
	Name          string
	Query         services.RankQuery
	ExpectedCount int
	ExpectedFirst string // Expected first result path
	ValidateFunc  func(t *testing.T, result model.QueryResult)
}

// RunQueryTests runs a suite of query tests against a ranker
func RunQueryTests(t *testing.T, ranker services.Ranker, tests []QueryTestCase) {
	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			outcome := ranker.Rank(tt.Query)
			result := outcome.Result

			assert.Equal(t, tt.Query.Query, result.Query, "Query should be echoed")
			if tt.ExpectedCount >= 0 {
				assert.Len(t, result.Items, tt.ExpectedCount, "Result count should match")
			}

			if tt.ExpectedFirst != "" {
				require.NotEmpty(t, result.Items, "Expected at least one result")
				assert.Equal(t, tt.ExpectedFirst, result.Items[0].Rel, "First result should match expected")
			}

			if tt.ValidateFunc != nil {
				tt.ValidateFunc(t, result)
			}
		})
	}
}
