package analytics

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/mention-index/model"
)

func TestAnalyticsService_ObserveQuery(t *testing.T) {
	service := NewService()

	event := model.QueryEvent{
		Query:        "index",
		Limit:        30,
		ResponseTime: 2 * time.Millisecond,
		ResultCount:  10,
	}
	service.ObserveQuery(event)

	require.Len(t, service.events, 1)
	stored := service.events[0]
	assert.Equal(t, event.Query, stored.Query)
	assert.Equal(t, event.ResultCount, stored.ResultCount)
	assert.False(t, stored.Timestamp.IsZero(), "a missing timestamp is filled in")
}

func TestAnalyticsService_Summary(t *testing.T) {
	service := NewService()

	events := []model.QueryEvent{
		{Query: "index", ResultCount: 5, ResponseTime: 500 * time.Microsecond},
		{Query: "Index ", ResultCount: 5, ResponseTime: 2 * time.Millisecond, Cached: true},
		{Query: "zzz", ResultCount: 0, ResponseTime: 8 * time.Millisecond},
		{Query: "", ResultCount: 30, ResponseTime: 20 * time.Millisecond},
	}
	for _, event := range events {
		service.ObserveQuery(event)
	}

	summary := service.Summary()
	assert.Equal(t, 4, summary.TotalQueries)
	assert.Equal(t, 1, summary.EmptyQueries)
	assert.Equal(t, 1, summary.ZeroResultQueries)
	assert.InDelta(t, 100.0/3, summary.ZeroResultRate, 1e-9, "empty queries are not searches")
	assert.Equal(t, 1, summary.CacheHits)
	// (0.5 + 2 + 8 + 20) ms / 4
	assert.Equal(t, int64(7625), summary.AvgResponseTimeMicros)

	require.Len(t, summary.PopularQueries, 2)
	assert.Equal(t, model.PopularQuery{Query: "index", QueryCount: 2}, summary.PopularQueries[0])
	assert.Equal(t, model.PopularQuery{Query: "zzz", QueryCount: 1}, summary.PopularQueries[1])

	dist := summary.ResponseTimeDistribution
	assert.Equal(t, 1, dist.Bucket0To1ms)
	assert.Equal(t, 1, dist.Bucket1To5ms)
	assert.Equal(t, 1, dist.Bucket5To16ms)
	assert.Equal(t, 1, dist.Bucket16msPlus)
	assert.InDelta(t, 25.0, dist.Percentage16Plus, 1e-9)
}

func TestAnalyticsService_EmptySummary(t *testing.T) {
	summary := NewService().Summary()

	assert.Zero(t, summary.TotalQueries)
	assert.Zero(t, summary.ZeroResultRate)
	assert.Zero(t, summary.AvgResponseTimeMicros)
	assert.Empty(t, summary.PopularQueries)
}

func TestAnalyticsService_PopularQueriesAreCapped(t *testing.T) {
	service := NewService()
	for i := 0; i < 10; i++ {
		for j := 0; j <= i; j++ {
			service.ObserveQuery(model.QueryEvent{Query: fmt.Sprintf("q%d", i), ResultCount: 1})
		}
	}

	popular := service.Summary().PopularQueries
	require.Len(t, popular, popularQueriesSize)
	assert.Equal(t, "q9", popular[0].Query)
	assert.Equal(t, int64(10), popular[0].QueryCount)
	assert.Equal(t, "q5", popular[4].Query)
}

func TestAnalyticsService_RetainsLatestEvents(t *testing.T) {
	service := NewService()
	for i := 0; i < maxEventsToKeep+25; i++ {
		service.ObserveQuery(model.QueryEvent{Query: "a", ResultCount: i})
	}

	require.Len(t, service.events, maxEventsToKeep)
	assert.Equal(t, 25, service.events[0].ResultCount, "the oldest events are dropped first")
	assert.Equal(t, maxEventsToKeep, service.Summary().TotalQueries)
}

func TestAnalyticsService_Reset(t *testing.T) {
	service := NewService()
	service.ObserveQuery(model.QueryEvent{Query: "a"})
	service.Reset()

	summary := service.Summary()
	assert.Zero(t, summary.TotalQueries)
	assert.Empty(t, summary.PopularQueries)
}

func TestAnalyticsService_ConcurrentObservers(t *testing.T) {
	service := NewService()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				service.ObserveQuery(model.QueryEvent{Query: "shared", ResultCount: 1})
				_ = service.Summary()
			}
		}()
	}
	wg.Wait()

	summary := service.Summary()
	assert.Equal(t, 800, summary.TotalQueries)
	assert.Equal(t, int64(800), summary.PopularQueries[0].QueryCount)
}
