package model

// Candidate is a path entry (file or directory) that can be suggested by the reference picker.
// Rel is a forward-slash relative path, case-preserved for display.
type Candidate struct {
	Rel   string `json:"rel"`
	IsDir bool   `json:"isDir"`
}

// CandidateKey identifies a candidate. A file and a directory may share the same path
// and are still distinct candidates.
type CandidateKey struct {
	IsDir bool
	Rel   string
}

// Key returns the identity key of the candidate.
func (c Candidate) Key() CandidateKey {
	return CandidateKey{IsDir: c.IsDir, Rel: c.Rel}
}

// RankedResult is a single item of a query response.
// Score is only meaningful relative to other results of the same query.
type RankedResult struct {
	Rel   string  `json:"rel"`
	IsDir bool    `json:"isDir"`
	Score float64 `json:"score"`
}

// StoreState describes where the candidate store is in its lifecycle.
type StoreState string

const (
	StoreStateUninitialized StoreState = "uninitialized"
	StoreStateLoaded        StoreState = "loaded"
	StoreStateFailed        StoreState = "failed"
)

// StoreStats is a point-in-time view of the candidate store.
type StoreStats struct {
	State        StoreState `json:"state"`
	Total        int        `json:"total"`
	NeedsRebuild bool       `json:"needs_rebuild"`
	Generation   uint64     `json:"generation"`
}
