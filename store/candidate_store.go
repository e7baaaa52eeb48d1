package store

import (
	"sort"

	"github.com/gcbaptista/mention-index/internal/pathnorm"
	"github.com/gcbaptista/mention-index/model"
)

// storedCandidate keeps the insertion sequence so the materialized view has a stable order.
type storedCandidate struct {
	candidate model.Candidate
	seq       uint64
}

// CandidateStore owns the authoritative candidate set.
//
// It keeps two representations: a keyed map that makes point mutations cheap, and a flat
// slice that makes full scans cheap. Mutations only touch the map and set needsRebuild;
// the slice is rebuilt on the next Materialize, so a burst of patches pays for one rebuild.
//
// CandidateStore is not safe for concurrent use. It is meant to be owned by a single
// goroutine (see engine.Engine), which serializes every load, patch and query.
type CandidateStore struct {
	entries      map[model.CandidateKey]storedCandidate
	view         []model.Candidate
	needsRebuild bool
	nextSeq      uint64
	generation   uint64 // Incremented on every effective mutation
	state        model.StoreState
}

// NewCandidateStore creates an empty, uninitialized store.
func NewCandidateStore() *CandidateStore {
	return &CandidateStore{
		entries: make(map[model.CandidateKey]storedCandidate),
		view:    make([]model.Candidate, 0),
		state:   model.StoreStateUninitialized,
	}
}

// normalizeCandidate converts separators and rejects candidates without a usable path.
func normalizeCandidate(c model.Candidate) (model.Candidate, bool) {
	rel := pathnorm.NormalizePath(c.Rel)
	if rel == "" {
		return model.Candidate{}, false
	}
	return model.Candidate{Rel: rel, IsDir: c.IsDir}, true
}

// Load replaces the entire store with candidates and returns the resulting total.
// Duplicate identity keys collapse to the first occurrence. Both representations are
// rebuilt synchronously, so the view is fresh after Load returns.
func (s *CandidateStore) Load(candidates []model.Candidate) int {
	entries := make(map[model.CandidateKey]storedCandidate, len(candidates))
	view := make([]model.Candidate, 0, len(candidates))
	var seq uint64

	for _, c := range candidates {
		normalized, ok := normalizeCandidate(c)
		if !ok {
			continue
		}
		key := normalized.Key()
		if _, exists := entries[key]; exists {
			continue
		}
		entries[key] = storedCandidate{candidate: normalized, seq: seq}
		view = append(view, normalized)
		seq++
	}

	s.entries = entries
	s.view = view
	s.nextSeq = seq
	s.needsRebuild = false
	s.generation++
	s.state = model.StoreStateLoaded
	return len(entries)
}

// Fail discards every candidate and marks the store as failed.
// It is used when a load payload cannot be interpreted at all.
func (s *CandidateStore) Fail() int {
	s.entries = make(map[model.CandidateKey]storedCandidate)
	s.view = make([]model.Candidate, 0)
	s.nextSeq = 0
	s.needsRebuild = false
	s.generation++
	s.state = model.StoreStateFailed
	return 0
}

// Patch applies adds, then removes, against the keyed map only.
// Adding a present key or removing an absent key is a no-op and does not mark the view stale.
func (s *CandidateStore) Patch(adds, removes []model.Candidate) model.PatchResult {
	result := model.PatchResult{}

	for _, c := range adds {
		normalized, ok := normalizeCandidate(c)
		if !ok {
			continue
		}
		key := normalized.Key()
		if _, exists := s.entries[key]; exists {
			continue
		}
		s.entries[key] = storedCandidate{candidate: normalized, seq: s.nextSeq}
		s.nextSeq++
		result.AddsApplied++
	}

	for _, c := range removes {
		normalized, ok := normalizeCandidate(c)
		if !ok {
			continue
		}
		key := normalized.Key()
		if _, exists := s.entries[key]; !exists {
			continue
		}
		delete(s.entries, key)
		result.RemovesApplied++
	}

	if result.AddsApplied > 0 || result.RemovesApplied > 0 {
		s.needsRebuild = true
		s.generation++
	}

	result.Total = len(s.entries)
	return result
}

// Materialize returns the scan-ready view, rebuilding it first if a patch changed the map
// since the last rebuild. The view is ordered by insertion sequence.
// The returned slice is owned by the store and must not be modified; it stays valid
// until the next mutation.
func (s *CandidateStore) Materialize() []model.Candidate {
	if !s.needsRebuild {
		return s.view
	}

	stored := make([]storedCandidate, 0, len(s.entries))
	for _, sc := range s.entries {
		stored = append(stored, sc)
	}
	sort.Slice(stored, func(i, j int) bool {
		return stored[i].seq < stored[j].seq
	})

	view := make([]model.Candidate, len(stored))
	for i, sc := range stored {
		view[i] = sc.candidate
	}

	s.view = view
	s.needsRebuild = false
	return s.view
}

// Contains reports whether a candidate with the same identity key is present.
func (s *CandidateStore) Contains(c model.Candidate) bool {
	normalized, ok := normalizeCandidate(c)
	if !ok {
		return false
	}
	_, exists := s.entries[normalized.Key()]
	return exists
}

// Len returns the number of candidates in the keyed map.
func (s *CandidateStore) Len() int {
	return len(s.entries)
}

// Generation changes whenever the candidate set changes.
func (s *CandidateStore) Generation() uint64 {
	return s.generation
}

// Stats returns a point-in-time view of the store.
func (s *CandidateStore) Stats() model.StoreStats {
	return model.StoreStats{
		State:        s.state,
		Total:        len(s.entries),
		NeedsRebuild: s.needsRebuild,
		Generation:   s.generation,
	}
}
