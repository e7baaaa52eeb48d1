package model

import "time"

// QueryEvent represents a single ranking query for analytics tracking
type QueryEvent struct {
	Query        string        `json:"query"`
	Limit        int           `json:"limit"`
	ResultCount  int           `json:"result_count"`
	ResponseTime time.Duration `json:"response_time"`
	Cached       bool          `json:"cached"`
	Timestamp    time.Time     `json:"timestamp"`
}

// PopularQuery represents aggregated data for a frequently issued query
type PopularQuery struct {
	Query      string `json:"query"`
	QueryCount int64  `json:"query_count"`
}

// ResponseTimeDistribution represents response time distribution buckets.
// Queries run on every keystroke, so the buckets are tuned around a frame budget.
type ResponseTimeDistribution struct {
	Bucket0To1ms     int     `json:"bucket_0_1ms"`
	Bucket1To5ms     int     `json:"bucket_1_5ms"`
	Bucket5To16ms    int     `json:"bucket_5_16ms"`
	Bucket16msPlus   int     `json:"bucket_16ms_plus"`
	Percentage0To1   float64 `json:"percentage_0_1"`
	Percentage1To5   float64 `json:"percentage_1_5"`
	Percentage5To16  float64 `json:"percentage_5_16"`
	Percentage16Plus float64 `json:"percentage_16_plus"`
}

// AnalyticsSummary represents the aggregated query analytics
type AnalyticsSummary struct {
	TotalQueries             int                      `json:"total_queries"`
	EmptyQueries             int                      `json:"empty_queries"`
	ZeroResultQueries        int                      `json:"zero_result_queries"`
	ZeroResultRate           float64                  `json:"zero_result_rate"`
	CacheHits                int                      `json:"cache_hits"`
	AvgResponseTimeMicros    int64                    `json:"avg_response_time_us"`
	PopularQueries           []PopularQuery           `json:"popular_queries"`
	ResponseTimeDistribution ResponseTimeDistribution `json:"response_time_distribution"`
}
