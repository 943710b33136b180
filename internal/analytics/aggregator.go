package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// topWordsLimit bounds the number of entries in the top-word lists.
const topWordsLimit = 10

// WordCount pairs a searched word with how often it was queried.
type WordCount struct {
	Word  string `json:"word"`
	Count int64  `json:"count"`
}

// Stats is the aggregated view served at the analytics endpoint.
type Stats struct {
	TotalSearches      int64       `json:"total_searches"`
	TotalIngests       int64       `json:"total_ingests"`
	ParagraphsIngested int64       `json:"paragraphs_ingested"`
	CacheHits          int64       `json:"cache_hits"`
	CacheMisses        int64       `json:"cache_misses"`
	ZeroResultCount    int64       `json:"zero_result_count"`
	AvgSearchLatencyMs float64     `json:"avg_search_latency_ms"`
	TopWords           []WordCount `json:"top_words"`
	ZeroResultWords    []WordCount `json:"zero_result_words"`
	Since              time.Time   `json:"since"`
}

// Aggregator folds analytics events into in-memory counters.
type Aggregator struct {
	mu            sync.RWMutex
	stats         Stats
	latencySumMs  int64
	wordCounts    map[string]int64
	zeroHitCounts map[string]int64
	logger        *slog.Logger
}

// NewAggregator creates an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		stats:         Stats{Since: time.Now().UTC()},
		wordCounts:    make(map[string]int64),
		zeroHitCounts: make(map[string]int64),
		logger:        slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleMessage decodes one analytics event and applies it. It is the
// Kafka MessageHandler for the analytics topic.
func (a *Aggregator) HandleMessage(ctx context.Context, key, value []byte) error {
	var envelope struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(value, &envelope); err != nil {
		return fmt.Errorf("decoding analytics event: %w", err)
	}
	switch envelope.Type {
	case EventSearch:
		var ev SearchEvent
		if err := json.Unmarshal(value, &ev); err != nil {
			return fmt.Errorf("decoding search event: %w", err)
		}
		a.applySearch(ev)
	case EventIngest:
		var ev IngestEvent
		if err := json.Unmarshal(value, &ev); err != nil {
			return fmt.Errorf("decoding ingest event: %w", err)
		}
		a.applyIngest(ev)
	default:
		a.logger.Debug("unknown analytics event type", "type", envelope.Type)
	}
	return nil
}

func (a *Aggregator) applySearch(ev SearchEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.TotalSearches++
	a.latencySumMs += ev.LatencyMs
	if ev.CacheHit {
		a.stats.CacheHits++
	} else {
		a.stats.CacheMisses++
	}
	a.wordCounts[ev.Word]++
	if ev.Returned == 0 {
		a.stats.ZeroResultCount++
		a.zeroHitCounts[ev.Word]++
	}
}

func (a *Aggregator) applyIngest(ev IngestEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.TotalIngests++
	a.stats.ParagraphsIngested += int64(ev.Paragraphs)
}

// Snapshot returns a copy of the current stats with the top-word lists
// computed.
func (a *Aggregator) Snapshot() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	stats := a.stats
	if stats.TotalSearches > 0 {
		stats.AvgSearchLatencyMs = float64(a.latencySumMs) / float64(stats.TotalSearches)
	}
	stats.TopWords = topN(a.wordCounts, topWordsLimit)
	stats.ZeroResultWords = topN(a.zeroHitCounts, topWordsLimit)
	return stats
}

func topN(counts map[string]int64, n int) []WordCount {
	out := make([]WordCount, 0, len(counts))
	for word, count := range counts {
		out = append(out, WordCount{Word: word, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
