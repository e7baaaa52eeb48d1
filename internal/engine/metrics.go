package engine

import (
	"sync"
	"time"

	"github.com/gcbaptista/mention-index/model"
)

// maxSamplesPerType bounds the per-type duration history
const maxSamplesPerType = 100

// MetricsData represents message metrics data without mutex (safe for copying)
type MetricsData struct {
	MessagesProcessed     int64                               `json:"messages_processed"`
	MessagesFailed        int64                               `json:"messages_failed"`
	MessagesCancelled     int64                               `json:"messages_cancelled"`
	TotalProcessingTime   time.Duration                       `json:"total_processing_time_ns"`
	AverageProcessingTime time.Duration                       `json:"average_processing_time_ns"`
	MessagesByType        map[model.MessageType]int64         `json:"messages_by_type"`
	AverageTimeByType     map[model.MessageType]time.Duration `json:"average_time_by_type_ns"`
	QueueDepth            int                                 `json:"queue_depth"`
	LastUpdated           time.Time                           `json:"last_updated"`
}

// Metrics tracks performance metrics for engine messages
type Metrics struct {
	mu                    sync.RWMutex
	messagesProcessed     int64
	messagesFailed        int64
	messagesCancelled     int64
	totalProcessingTime   time.Duration
	averageProcessingTime time.Duration
	messagesByType        map[model.MessageType]int64
	processingTimesByType map[model.MessageType][]time.Duration
	lastUpdated           time.Time
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	return &Metrics{
		messagesByType:        make(map[model.MessageType]int64),
		processingTimesByType: make(map[model.MessageType][]time.Duration),
		lastUpdated:           time.Now(),
	}
}

// RecordProcessed records a handled message and how long it took
func (m *Metrics) RecordProcessed(messageType model.MessageType, processingTime time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messagesProcessed++
	m.messagesByType[messageType]++
	m.totalProcessingTime += processingTime
	m.averageProcessingTime = m.totalProcessingTime / time.Duration(m.messagesProcessed)

	// Keep only the most recent samples per type to prevent memory growth
	samples := append(m.processingTimesByType[messageType], processingTime)
	if len(samples) > maxSamplesPerType {
		samples = samples[1:]
	}
	m.processingTimesByType[messageType] = samples

	m.lastUpdated = time.Now()
}

// RecordFailed records a message whose handler panicked
func (m *Metrics) RecordFailed(messageType model.MessageType) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messagesFailed++
	m.lastUpdated = time.Now()
}

// RecordCancelled records a message abandoned by its caller before it was dequeued
func (m *Metrics) RecordCancelled(messageType model.MessageType) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messagesCancelled++
	m.lastUpdated = time.Now()
}

// GetMetrics returns a copy of current metrics without mutex (safe for copying)
func (m *Metrics) GetMetrics() MetricsData {
	m.mu.RLock()
	defer m.mu.RUnlock()

	messagesByType := make(map[model.MessageType]int64, len(m.messagesByType))
	for k, v := range m.messagesByType {
		messagesByType[k] = v
	}

	averageByType := make(map[model.MessageType]time.Duration, len(m.processingTimesByType))
	for k, samples := range m.processingTimesByType {
		averageByType[k] = average(samples)
	}

	return MetricsData{
		MessagesProcessed:     m.messagesProcessed,
		MessagesFailed:        m.messagesFailed,
		MessagesCancelled:     m.messagesCancelled,
		TotalProcessingTime:   m.totalProcessingTime,
		AverageProcessingTime: m.averageProcessingTime,
		MessagesByType:        messagesByType,
		AverageTimeByType:     averageByType,
		LastUpdated:           m.lastUpdated,
	}
}

// GetAverageProcessingTimeByType returns the recent average processing time for a message type
func (m *Metrics) GetAverageProcessingTimeByType(messageType model.MessageType) time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return average(m.processingTimesByType[messageType])
}

func average(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range samples {
		total += d
	}
	return total / time.Duration(len(samples))
}
