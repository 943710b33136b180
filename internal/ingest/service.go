// Package ingest turns raw documents into stored paragraphs and word
// occurrences via the index store.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/4d4r5h/text-search-api/internal/index"
	"github.com/4d4r5h/text-search-api/internal/tokenizer"
	"github.com/4d4r5h/text-search-api/pkg/metrics"
	"github.com/4d4r5h/text-search-api/pkg/tracing"
)

// CacheInvalidator flushes cached search results after new paragraphs are
// committed, keeping acknowledged writes visible to every reader.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Service orchestrates the tokenizer and the index store.
type Service struct {
	store   index.Store
	cache   CacheInvalidator
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates an ingestion Service. cache and m may be nil.
func New(store index.Store, cache CacheInvalidator, m *metrics.Metrics) *Service {
	return &Service{
		store:   store,
		cache:   cache,
		metrics: m,
		logger:  slog.Default().With("component", "ingest-service"),
	}
}

// Ingest splits raw text into paragraphs, indexes each one, and returns the
// allocated paragraph ids in document order together with the number of
// distinct word occurrences written.
//
// Each paragraph with its occurrences is one storage transaction; the
// document as a whole is not atomic. A failure partway through returns the
// error alongside the ids committed so far, which remain searchable.
func (s *Service) Ingest(ctx context.Context, raw string) ([]index.ParagraphID, int, error) {
	start := time.Now()
	ctx, span := tracing.StartChildSpan(ctx, "index-write")
	defer span.End()

	units := tokenizer.Split(raw)

	ids := make([]index.ParagraphID, 0, len(units))
	occurrences := 0
	for _, unit := range units {
		id, err := s.store.IndexParagraph(ctx, unit.Text, unit.Words)
		if err != nil {
			s.logger.Error("paragraph indexing failed",
				"committed", len(ids),
				"total", len(units),
				"error", err,
			)
			return ids, occurrences, fmt.Errorf("indexing paragraph %d of %d: %w", len(ids)+1, len(units), err)
		}
		ids = append(ids, id)
		occurrences += len(unit.Words)
	}

	// Flush cached search results before acknowledging, so a search issued
	// after Ingest returns never sees results that predate this document.
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Error("search cache invalidation failed", "error", err)
		}
	}

	span.SetAttr("paragraphs", len(ids))
	span.SetAttr("occurrences", occurrences)

	if s.metrics != nil {
		s.metrics.ParagraphsIngestedTotal.Add(float64(len(ids)))
		s.metrics.OccurrencesIndexedTotal.Add(float64(occurrences))
		s.metrics.IngestDuration.Observe(time.Since(start).Seconds())
	}
	s.logger.Info("document ingested",
		"paragraphs", len(ids),
		"occurrences", occurrences,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return ids, occurrences, nil
}
