// Package search answers "which paragraphs contain this word" queries
// against the index store.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/4d4r5h/text-search-api/internal/index"
	"github.com/4d4r5h/text-search-api/pkg/metrics"
	"github.com/4d4r5h/text-search-api/pkg/tracing"
)

// ResultCap is the fixed maximum number of paragraphs a search returns.
// There is no pagination past it.
const ResultCap = 10

// ResultCache is the optional cache in front of the store. Implemented by
// the Redis-backed cache package.
type ResultCache interface {
	GetOrCompute(ctx context.Context, word string, computeFn func() ([]index.Paragraph, error)) ([]index.Paragraph, bool, error)
}

// Service resolves single-word searches.
type Service struct {
	store   index.Store
	cache   ResultCache
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a search Service. cache and m may be nil.
func New(store index.Store, cache ResultCache, m *metrics.Metrics) *Service {
	return &Service{
		store:   store,
		cache:   cache,
		metrics: m,
		logger:  slog.Default().With("component", "search-service"),
	}
}

// Search lowercases word and returns the paragraphs containing it, at most
// ResultCap of them, in occurrence insertion order, along with whether the
// result came from the cache. A word that was never ingested yields an
// empty slice, not an error.
func (s *Service) Search(ctx context.Context, word string) ([]index.Paragraph, bool, error) {
	start := time.Now()
	word = strings.ToLower(word)

	var (
		paragraphs []index.Paragraph
		cacheHit   bool
		err        error
	)
	if s.cache != nil {
		paragraphs, cacheHit, err = s.cache.GetOrCompute(ctx, word, func() ([]index.Paragraph, error) {
			return s.lookup(ctx, word)
		})
	} else {
		paragraphs, err = s.lookup(ctx, word)
	}

	if s.metrics != nil {
		cacheStatus := "disabled"
		if s.cache != nil {
			cacheStatus = "miss"
			if cacheHit {
				cacheStatus = "hit"
				s.metrics.CacheHitsTotal.Inc()
			} else {
				s.metrics.CacheMissesTotal.Inc()
			}
		}
		s.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(time.Since(start).Seconds())
		switch {
		case err != nil:
			s.metrics.SearchQueriesTotal.WithLabelValues("error").Inc()
		case len(paragraphs) == 0:
			s.metrics.SearchQueriesTotal.WithLabelValues("zero_result").Inc()
		default:
			s.metrics.SearchQueriesTotal.WithLabelValues("hit").Inc()
		}
		if err == nil {
			s.metrics.SearchResultsCount.Observe(float64(len(paragraphs)))
		}
	}
	if err != nil {
		return nil, false, err
	}
	return paragraphs, cacheHit, nil
}

// lookup resolves word against the store: ids first, then the bulk fetch,
// preserving order.
func (s *Service) lookup(ctx context.Context, word string) ([]index.Paragraph, error) {
	ctx, span := tracing.StartChildSpan(ctx, "index-lookup")
	defer span.End()

	ids, err := s.store.FindParagraphsForWord(ctx, word, ResultCap)
	if err != nil {
		return nil, fmt.Errorf("finding paragraphs for %q: %w", word, err)
	}
	paragraphs, err := s.store.GetParagraphs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetching paragraphs for %q: %w", word, err)
	}
	return paragraphs, nil
}
