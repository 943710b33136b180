// Package handler implements the HTTP endpoints of the text search API:
// document ingestion, single-word search, API key administration, and the
// search-cache maintenance endpoints.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/4d4r5h/text-search-api/internal/analytics"
	"github.com/4d4r5h/text-search-api/internal/auth/apikey"
	"github.com/4d4r5h/text-search-api/internal/index"
	"github.com/4d4r5h/text-search-api/internal/search/cache"
	apperrors "github.com/4d4r5h/text-search-api/pkg/errors"
	"github.com/4d4r5h/text-search-api/pkg/logger"
	"github.com/4d4r5h/text-search-api/pkg/middleware"
	"github.com/4d4r5h/text-search-api/pkg/tracing"
)

// maxDocumentSize bounds the ingestion request body (1 MiB).
const maxDocumentSize = 1 << 20

// Ingestor stores a raw document, returning its paragraph ids and the
// number of distinct word occurrences written.
type Ingestor interface {
	Ingest(ctx context.Context, raw string) ([]index.ParagraphID, int, error)
}

// Searcher resolves a single-word search. The bool reports whether the
// result was served from cache.
type Searcher interface {
	Search(ctx context.Context, word string) ([]index.Paragraph, bool, error)
}

// EventTracker receives analytics events. Implemented by
// analytics.Collector.
type EventTracker interface {
	Track(event any)
}

// KeyAdmin manages API keys, for the admin endpoints.
type KeyAdmin interface {
	CreateKey(ctx context.Context, name string, rateLimit int, expiresAt *time.Time) (string, error)
	RevokeKey(ctx context.Context, rawKey string) error
	ListKeys(ctx context.Context) ([]apikey.KeyInfo, error)
}

// Handler implements the service's HTTP endpoints.
type Handler struct {
	ingestor  Ingestor
	searcher  Searcher
	cache     *cache.ResultCache
	collector EventTracker
	keys      KeyAdmin
	logger    *slog.Logger
}

// New creates a Handler. cache, collector, and keys may be nil; the
// corresponding endpoints then answer as disabled.
func New(ingestor Ingestor, searcher Searcher, resultCache *cache.ResultCache, collector EventTracker, keys KeyAdmin) *Handler {
	return &Handler{
		ingestor:  ingestor,
		searcher:  searcher,
		cache:     resultCache,
		collector: collector,
		keys:      keys,
		logger:    slog.Default().With("component", "api-handler"),
	}
}

// ingestRequest is the JSON form of the ingestion body.
type ingestRequest struct {
	Text string `json:"text"`
}

// ingestResponse acknowledges an ingested document.
type ingestResponse struct {
	ParagraphIDs []index.ParagraphID `json:"paragraph_ids"`
}

// Ingest accepts a document as either JSON {"text": ...} or a raw
// text/plain body, splits it into paragraphs, indexes them, and responds
// 201 with the paragraph ids in document order.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := tracing.StartSpan(r.Context(), "ingest", middleware.GetRequestID(r.Context()))
	defer func() {
		span.End()
		span.Log()
	}()
	log := logger.FromContext(ctx)

	raw, err := readDocument(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ids, occurrences, err := h.ingestor.Ingest(ctx, raw)
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("ingestion failed",
			"committed_paragraphs", len(ids),
			"status_code", statusCode,
			"error", err,
		)
		h.writeError(w, statusCode, "ingestion failed")
		return
	}

	if h.collector != nil {
		h.collector.Track(analytics.IngestEvent{
			Type:        analytics.EventIngest,
			Paragraphs:  len(ids),
			Occurrences: occurrences,
			LatencyMs:   time.Since(start).Milliseconds(),
			Timestamp:   time.Now().UTC(),
			RequestID:   middleware.GetRequestID(ctx),
		})
	}
	span.SetAttr("paragraphs", len(ids))
	log.Info("document ingested", "paragraphs", len(ids))
	h.writeJSON(w, http.StatusCreated, ingestResponse{ParagraphIDs: ids})
}

// Search resolves the {word} path parameter case-insensitively and responds
// with a JSON array of matching paragraphs, at most the fixed result cap.
// A word with no matches yields an empty array, not an error.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := tracing.StartSpan(r.Context(), "search", middleware.GetRequestID(r.Context()))
	defer func() {
		span.End()
		span.Log()
	}()
	log := logger.FromContext(ctx)

	word := r.PathValue("word")
	if word == "" {
		h.writeError(w, http.StatusBadRequest, "search word is required")
		return
	}

	paragraphs, cacheHit, err := h.searcher.Search(ctx, word)
	if err != nil {
		log.Error("search failed", "word", word, "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), "search failed")
		return
	}
	if paragraphs == nil {
		paragraphs = []index.Paragraph{}
	}

	span.SetAttr("word", word)
	span.SetAttr("returned", len(paragraphs))

	latencyMs := time.Since(start).Milliseconds()
	log.Info("search completed",
		"word", word,
		"returned", len(paragraphs),
		"cache_hit", cacheHit,
		"latency_ms", latencyMs,
	)
	if h.collector != nil {
		h.collector.Track(analytics.SearchEvent{
			Type:      analytics.EventSearch,
			Word:      strings.ToLower(word),
			Returned:  len(paragraphs),
			CacheHit:  cacheHit,
			LatencyMs: latencyMs,
			Timestamp: time.Now().UTC(),
			RequestID: middleware.GetRequestID(ctx),
		})
	}
	h.writeJSON(w, http.StatusOK, paragraphs)
}

// ---------- API key administration ----------

type createKeyRequest struct {
	Name      string     `json:"name"`
	RateLimit int        `json:"rate_limit"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// CreateAPIKey mints a new API key and returns the raw key once.
func (h *Handler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req createKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		h.writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.RateLimit <= 0 {
		req.RateLimit = 600
	}

	rawKey, err := h.keys.CreateKey(r.Context(), req.Name, req.RateLimit, req.ExpiresAt)
	if err != nil {
		h.logger.Error("api key creation failed", "name", req.Name, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to create api key")
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{"key": rawKey})
}

// ListAPIKeys returns metadata for all active keys.
func (h *Handler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.keys.ListKeys(r.Context())
	if err != nil {
		h.logger.Error("api key listing failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list api keys")
		return
	}
	if keys == nil {
		keys = []apikey.KeyInfo{}
	}
	h.writeJSON(w, http.StatusOK, keys)
}

// RevokeAPIKey deactivates the key presented in the JSON body.
func (h *Handler) RevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		h.writeError(w, http.StatusBadRequest, "key is required")
		return
	}
	if err := h.keys.RevokeKey(r.Context(), req.Key); err != nil {
		if err == apikey.ErrInvalidKey {
			h.writeError(w, http.StatusNotFound, "unknown api key")
			return
		}
		h.logger.Error("api key revocation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to revoke api key")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

// ---------- Cache maintenance ----------

// CacheStats reports hit/miss counters for the search cache.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

// CacheInvalidate flushes all cached search results.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

// Health answers a plain liveness probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readDocument extracts the raw document text from an ingestion request.
// JSON bodies use the "text" field; any other content type is treated as
// plain text.
func readDocument(r *http.Request) (string, error) {
	body := http.MaxBytesReader(nil, r.Body, maxDocumentSize)
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		var req ingestRequest
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			return "", fmt.Errorf("invalid JSON body")
		}
		return req.Text, nil
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("reading request body: %w", err)
	}
	return string(data), nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
