package analytics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gcbaptista/mention-index/model"
)

const (
	maxEventsToKeep    = 10000 // Keep last 10k events for performance
	maxTrackedQueries  = 1000  // Distinct queries counted for popularity
	popularQueriesSize = 5
)

// Service implements query analytics tracking and reporting.
// It fulfills the services.QueryObserver interface and is safe for concurrent use.
type Service struct {
	mutex        sync.RWMutex
	events       []model.QueryEvent
	queryCounts  *lru.Cache[string, int64]
	popularLimit int
}

// NewService creates a new in-memory analytics service
func NewService() *Service {
	counts, err := lru.New[string, int64](maxTrackedQueries)
	if err != nil {
		// Only possible with a non-positive size
		panic(fmt.Sprintf("analytics: %v", err))
	}
	return &Service{
		events:       make([]model.QueryEvent, 0),
		queryCounts:  counts,
		popularLimit: popularQueriesSize,
	}
}

// ObserveQuery records a query answered by the engine
func (s *Service) ObserveQuery(event model.QueryEvent) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	s.events = append(s.events, event)

	// Keep only the latest events to prevent unbounded growth
	if len(s.events) > maxEventsToKeep {
		s.events = s.events[len(s.events)-maxEventsToKeep:]
	}

	// Queries typed on each keystroke differ in case and padding; count them together
	if key := strings.ToLower(strings.TrimSpace(event.Query)); key != "" {
		count, _ := s.queryCounts.Get(key)
		s.queryCounts.Add(key, count+1)
	}
}

// Summary returns the aggregated analytics of the retained events
func (s *Service) Summary() model.AnalyticsSummary {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	summary := model.AnalyticsSummary{
		TotalQueries:             len(s.events),
		PopularQueries:           s.getPopularQueries(),
		ResponseTimeDistribution: s.getResponseTimeDistribution(s.events),
	}

	var total time.Duration
	for _, event := range s.events {
		if strings.TrimSpace(event.Query) == "" {
			summary.EmptyQueries++
		} else if event.ResultCount == 0 {
			summary.ZeroResultQueries++
		}
		if event.Cached {
			summary.CacheHits++
		}
		total += event.ResponseTime
	}

	if searched := summary.TotalQueries - summary.EmptyQueries; searched > 0 {
		summary.ZeroResultRate = float64(summary.ZeroResultQueries) / float64(searched) * 100
	}
	if summary.TotalQueries > 0 {
		summary.AvgResponseTimeMicros = (total / time.Duration(summary.TotalQueries)).Microseconds()
	}

	return summary
}

// Reset drops every recorded event
func (s *Service) Reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.events = make([]model.QueryEvent, 0)
	s.queryCounts.Purge()
}

// getPopularQueries returns the most frequent non-empty queries
func (s *Service) getPopularQueries() []model.PopularQuery {
	popular := make([]model.PopularQuery, 0, s.queryCounts.Len())
	for _, query := range s.queryCounts.Keys() {
		if count, ok := s.queryCounts.Peek(query); ok {
			popular = append(popular, model.PopularQuery{Query: query, QueryCount: count})
		}
	}

	// Sort by count descending, then alphabetically for a stable report
	sort.Slice(popular, func(i, j int) bool {
		if popular[i].QueryCount != popular[j].QueryCount {
			return popular[i].QueryCount > popular[j].QueryCount
		}
		return popular[i].Query < popular[j].Query
	})

	if len(popular) > s.popularLimit {
		popular = popular[:s.popularLimit]
	}
	return popular
}

// getResponseTimeDistribution returns response time distribution
func (s *Service) getResponseTimeDistribution(events []model.QueryEvent) model.ResponseTimeDistribution {
	dist := model.ResponseTimeDistribution{}
	total := len(events)

	if total == 0 {
		return dist
	}

	for _, event := range events {
		switch {
		case event.ResponseTime < time.Millisecond:
			dist.Bucket0To1ms++
		case event.ResponseTime < 5*time.Millisecond:
			dist.Bucket1To5ms++
		case event.ResponseTime < 16*time.Millisecond:
			dist.Bucket5To16ms++
		default:
			dist.Bucket16msPlus++
		}
	}

	// Calculate percentages
	dist.Percentage0To1 = float64(dist.Bucket0To1ms) / float64(total) * 100
	dist.Percentage1To5 = float64(dist.Bucket1To5ms) / float64(total) * 100
	dist.Percentage5To16 = float64(dist.Bucket5To16ms) / float64(total) * 100
	dist.Percentage16Plus = float64(dist.Bucket16msPlus) / float64(total) * 100

	return dist
}
