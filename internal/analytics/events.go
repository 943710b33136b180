// Package analytics tracks search and ingestion activity. Events are
// batched to Kafka by the Collector and folded into in-memory stats by the
// Aggregator, which the stats endpoint serves.
package analytics

import "time"

// EventType distinguishes the analytics event payloads.
type EventType string

const (
	EventSearch EventType = "search"
	EventIngest EventType = "ingest"
)

// SearchEvent records one search request.
type SearchEvent struct {
	Type      EventType `json:"type"`
	Word      string    `json:"word"`
	Returned  int       `json:"returned"`
	CacheHit  bool      `json:"cache_hit"`
	LatencyMs int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// IngestEvent records one ingested document.
type IngestEvent struct {
	Type        EventType `json:"type"`
	Paragraphs  int       `json:"paragraphs"`
	Occurrences int       `json:"occurrences"`
	LatencyMs   int64     `json:"latency_ms"`
	Timestamp   time.Time `json:"timestamp"`
	RequestID   string    `json:"request_id"`
}
