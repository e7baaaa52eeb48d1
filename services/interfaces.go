package services

import (
	"context"
	"time"

	"github.com/gcbaptista/mention-index/model"
)

// CandidateSource is the read side of the candidate store used by ranking.
type CandidateSource interface {
	// Materialize returns the current scan-ready view. The slice must not be modified.
	Materialize() []model.Candidate
	// Generation changes whenever the candidate set changes.
	Generation() uint64
}

// CandidateLoader replaces the whole candidate set
type CandidateLoader interface {
	Load(candidates []model.Candidate) int
	Fail() int
}

// CandidatePatcher applies incremental add/remove batches
type CandidatePatcher interface {
	Patch(adds, removes []model.Candidate) model.PatchResult
}

// CandidateRepository combines every store operation the engine needs
type CandidateRepository interface {
	CandidateSource
	CandidateLoader
	CandidatePatcher
	Stats() model.StoreStats
}

// RankQuery is a single ranking request
type RankQuery struct {
	Query string
	Limit int // <= 0 selects the configured default
}

// RankOutcome is the result of a ranking request along with execution details
type RankOutcome struct {
	Result model.QueryResult
	Scored int  // Candidates considered
	Cached bool // Served from the query cache without scoring
	Took   time.Duration
}

// Ranker scores candidates against a query
type Ranker interface {
	Rank(query RankQuery) RankOutcome
}

// QueryObserver is notified after every query the engine answers
type QueryObserver interface {
	ObserveQuery(event model.QueryEvent)
}

// Dispatcher accepts protocol requests and returns their responses.
// ok is false when the request type is unknown and no response must be sent.
type Dispatcher interface {
	Submit(ctx context.Context, req model.Request) (resp model.Response, ok bool, err error)
}
