package search

import (
	"fmt"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/gcbaptista/mention-index/config"
	"github.com/gcbaptista/mention-index/internal/fuzzy"
	"github.com/gcbaptista/mention-index/internal/logging"
	"github.com/gcbaptista/mention-index/internal/pathnorm"
	"github.com/gcbaptista/mention-index/model"
	"github.com/gcbaptista/mention-index/services"
)

// Service implements the ranking logic over a candidate source.
// It fulfills the services.Ranker interface.
//
// Service is not safe for concurrent use; like the store it reads, it is owned by the
// engine goroutine.
type Service struct {
	source     services.CandidateSource
	settings   config.RankingSettings
	fuzzyScore fuzzy.Func
	log        *logrus.Entry

	corpus           []corpusEntry
	corpusGeneration uint64
	corpusReady      bool

	cache           *lru.Cache[cacheKey, []model.RankedResult]
	cacheGeneration uint64
}

// Option configures a Service.
type Option func(*Service)

// WithFuzzyScorer replaces the subsequence scorer.
func WithFuzzyScorer(f fuzzy.Func) Option {
	return func(s *Service) {
		if f != nil {
			s.fuzzyScore = f
		}
	}
}

// WithLogger sets the logger used by the service.
func WithLogger(log *logrus.Entry) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService creates a new ranking Service.
func NewService(source services.CandidateSource, settings config.RankingSettings, opts ...Option) (*Service, error) {
	if source == nil {
		return nil, fmt.Errorf("candidate source cannot be nil")
	}
	if conflicts := settings.Validate(); len(conflicts) > 0 {
		return nil, fmt.Errorf("invalid ranking settings: %v", conflicts)
	}
	if settings.DefaultLimit <= 0 || settings.MaxLimit <= 0 {
		return nil, fmt.Errorf("ranking limits must be positive (default %d, max %d)", settings.DefaultLimit, settings.MaxLimit)
	}

	s := &Service{
		source:     source,
		settings:   settings,
		fuzzyScore: fuzzy.Score,
		log:        logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if settings.QueryCacheSize > 0 {
		cache, err := lru.New[cacheKey, []model.RankedResult](settings.QueryCacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create query cache: %w", err)
		}
		s.cache = cache
	}

	return s, nil
}

// Rank scores every candidate against the query and returns the best ones, highest first.
// An empty query returns candidates in store order with a score of zero.
func (s *Service) Rank(query services.RankQuery) services.RankOutcome {
	startTime := time.Now()
	limit := s.effectiveLimit(query.Limit)
	prepared := s.prepareQuery(query.Query)

	view := s.source.Materialize()
	s.invalidateCache()

	if prepared.folded == "" {
		return services.RankOutcome{
			Result: model.QueryResult{Query: query.Query, Items: browse(view, limit)},
			Scored: 0,
			Took:   time.Since(startTime),
		}
	}

	key := cacheKey{query: prepared.folded, limit: limit}
	if s.cache != nil {
		if items, ok := s.cache.Get(key); ok {
			return services.RankOutcome{
				Result: model.QueryResult{Query: query.Query, Items: copyResults(items)},
				Scored: 0,
				Cached: true,
				Took:   time.Since(startTime),
			}
		}
	}

	corpus := s.prepareCorpus(view)
	hits := make([]scoredCandidate, len(corpus))
	for i := range corpus {
		hits[i] = scoredCandidate{entry: &corpus[i], score: s.score(prepared, &corpus[i])}
	}

	sortHits(hits)

	if len(hits) > limit {
		hits = hits[:limit]
	}
	items := make([]model.RankedResult, len(hits))
	for i, hit := range hits {
		items[i] = model.RankedResult{
			Rel:   hit.entry.candidate.Rel,
			IsDir: hit.entry.candidate.IsDir,
			Score: hit.score,
		}
	}

	if s.cache != nil {
		s.cache.Add(key, copyResults(items))
	}

	took := time.Since(startTime)
	s.log.Debugf("Ranked %d candidates for query %q in %v", len(corpus), query.Query, took)

	return services.RankOutcome{
		Result: model.QueryResult{Query: query.Query, Items: items},
		Scored: len(corpus),
		Took:   took,
	}
}

// effectiveLimit applies the default to a missing limit and caps oversized ones.
func (s *Service) effectiveLimit(limit int) int {
	if limit <= 0 {
		return s.settings.DefaultLimit
	}
	if limit > s.settings.MaxLimit {
		return s.settings.MaxLimit
	}
	return limit
}

func (s *Service) prepareQuery(raw string) preparedQuery {
	folded := pathnorm.Fold(strings.TrimSpace(raw))
	prepared := preparedQuery{
		raw:          raw,
		folded:       folded,
		hasSeparator: pathnorm.HasSeparator(folded),
		fuzzy:        pathnorm.Length(folded) >= s.settings.FuzzyMinQueryLength,
	}
	if prepared.hasSeparator {
		prepared.segments = pathnorm.Segments(folded)
	}
	return prepared
}

// prepareCorpus rebuilds the lowercased forms of the view when the store has changed since
// the last query. Like Materialize, the cost is paid at most once per mutation burst.
func (s *Service) prepareCorpus(view []model.Candidate) []corpusEntry {
	generation := s.source.Generation()
	if s.corpusReady && generation == s.corpusGeneration && len(s.corpus) == len(view) {
		return s.corpus
	}

	corpus := make([]corpusEntry, len(view))
	for i, c := range view {
		path := strings.ToLower(c.Rel)
		corpus[i] = corpusEntry{
			candidate: c,
			path:      path,
			base:      pathnorm.Basename(path),
			length:    pathnorm.Length(path),
		}
	}

	s.corpus = corpus
	s.corpusGeneration = generation
	s.corpusReady = true
	return s.corpus
}

// invalidateCache drops cached rankings computed against an older candidate set.
func (s *Service) invalidateCache() {
	if s.cache == nil {
		return
	}
	generation := s.source.Generation()
	if generation != s.cacheGeneration {
		s.cache.Purge()
		s.cacheGeneration = generation
	}
}

// browse returns up to limit candidates in view order without scoring.
func browse(view []model.Candidate, limit int) []model.RankedResult {
	n := len(view)
	if n > limit {
		n = limit
	}
	items := make([]model.RankedResult, n)
	for i := 0; i < n; i++ {
		items[i] = model.RankedResult{Rel: view[i].Rel, IsDir: view[i].IsDir, Score: 0}
	}
	return items
}

// sortHits orders by descending score. Ties go to the shorter path, then the
// lexicographically smaller lowercased path, then files before directories, then the
// case-sensitive path, so equal scores never depend on store order.
func sortHits(hits []scoredCandidate) {
	sort.Slice(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.entry.length != b.entry.length {
			return a.entry.length < b.entry.length
		}
		if a.entry.path != b.entry.path {
			return a.entry.path < b.entry.path
		}
		if a.entry.candidate.IsDir != b.entry.candidate.IsDir {
			return !a.entry.candidate.IsDir
		}
		return a.entry.candidate.Rel < b.entry.candidate.Rel
	})
}

func copyResults(items []model.RankedResult) []model.RankedResult {
	out := make([]model.RankedResult, len(items))
	copy(out, items)
	return out
}
