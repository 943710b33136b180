package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/4d4r5h/text-search-api/internal/analytics"
	"github.com/4d4r5h/text-search-api/internal/index"
	"github.com/4d4r5h/text-search-api/internal/ingest"
	"github.com/4d4r5h/text-search-api/internal/search"
)

func newTestHandler(t *testing.T) (*Handler, index.Store) {
	t.Helper()
	store := index.NewMemoryStore()
	ingestor := ingest.New(store, nil, nil)
	searcher := search.New(store, nil, nil)
	return New(ingestor, searcher, nil, nil, nil), store
}

func TestIngestJSONBody(t *testing.T) {
	h, _ := newTestHandler(t)

	body := `{"text": "first paragraph\n\nsecond paragraph"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.Ingest(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		ParagraphIDs []int64 `json:"paragraph_ids"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.ParagraphIDs) != 2 {
		t.Errorf("expected 2 paragraph ids, got %v", resp.ParagraphIDs)
	}
}

func TestIngestPlainTextBody(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", strings.NewReader("plain paragraph one\n\nplain paragraph two\n\nthree"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()

	h.Ingest(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		ParagraphIDs []int64 `json:"paragraph_ids"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.ParagraphIDs) != 3 {
		t.Errorf("expected 3 paragraph ids, got %v", resp.ParagraphIDs)
	}
}

func TestIngestInvalidJSON(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.Ingest(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func searchRequest(word string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/search/"+word, nil)
	req.SetPathValue("word", word)
	return req
}

func TestSearchReturnsIngestedParagraphs(t *testing.T) {
	h, _ := newTestHandler(t)

	ingestReq := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", strings.NewReader("golang is expressive\n\npython is dynamic"))
	ingestReq.Header.Set("Content-Type", "text/plain")
	h.Ingest(httptest.NewRecorder(), ingestReq)

	rec := httptest.NewRecorder()
	h.Search(rec, searchRequest("golang"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var paragraphs []struct {
		ID   int64  `json:"id"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &paragraphs); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(paragraphs) != 1 || paragraphs[0].Text != "golang is expressive" {
		t.Errorf("unexpected results: %+v", paragraphs)
	}
}

func TestSearchNoMatchesReturnsEmptyArray(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.Search(rec, searchRequest("nothing"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("expected empty JSON array, got %q", body)
	}
}

func TestSearchIsCaseInsensitiveOverHTTP(t *testing.T) {
	h, _ := newTestHandler(t)

	ingestReq := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", strings.NewReader("MixedCase Word"))
	ingestReq.Header.Set("Content-Type", "text/plain")
	h.Ingest(httptest.NewRecorder(), ingestReq)

	rec := httptest.NewRecorder()
	h.Search(rec, searchRequest("MIXEDCASE"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var paragraphs []index.Paragraph
	if err := json.Unmarshal(rec.Body.Bytes(), &paragraphs); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(paragraphs) != 1 {
		t.Errorf("expected 1 paragraph, got %d", len(paragraphs))
	}
}

func TestIngestThenSearchReadsOwnWrite(t *testing.T) {
	h, _ := newTestHandler(t)

	ingestReq := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", strings.NewReader("consistency check"))
	ingestReq.Header.Set("Content-Type", "text/plain")
	ingestRec := httptest.NewRecorder()
	h.Ingest(ingestRec, ingestReq)
	if ingestRec.Code != http.StatusCreated {
		t.Fatalf("ingest failed: %d", ingestRec.Code)
	}

	rec := httptest.NewRecorder()
	h.Search(rec, searchRequest("consistency"))
	var paragraphs []index.Paragraph
	if err := json.Unmarshal(rec.Body.Bytes(), &paragraphs); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(paragraphs) != 1 {
		t.Errorf("ingested paragraph not visible to immediate search: %+v", paragraphs)
	}
}

// recordingTracker captures tracked events for inspection.
type recordingTracker struct {
	events []any
}

func (r *recordingTracker) Track(event any) { r.events = append(r.events, event) }

// cannedSearcher answers every search with a fixed result and hit flag.
type cannedSearcher struct {
	paragraphs []index.Paragraph
	cacheHit   bool
}

func (c *cannedSearcher) Search(ctx context.Context, word string) ([]index.Paragraph, bool, error) {
	return c.paragraphs, c.cacheHit, nil
}

func TestSearchEventReportsCacheHit(t *testing.T) {
	searcher := &cannedSearcher{
		paragraphs: []index.Paragraph{{ID: 1, Text: "cached paragraph"}},
		cacheHit:   true,
	}
	tracker := &recordingTracker{}
	h := New(nil, searcher, nil, tracker, nil)

	rec := httptest.NewRecorder()
	h.Search(rec, searchRequest("cached"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	if len(tracker.events) != 1 {
		t.Fatalf("expected 1 tracked event, got %d", len(tracker.events))
	}
	ev, ok := tracker.events[0].(analytics.SearchEvent)
	if !ok {
		t.Fatalf("expected a SearchEvent, got %T", tracker.events[0])
	}
	if !ev.CacheHit {
		t.Error("cache hit was not carried into the search event")
	}

	// The aggregator must count the handler-built event as a hit.
	payload, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshaling event: %v", err)
	}
	agg := analytics.NewAggregator()
	if err := agg.HandleMessage(context.Background(), nil, payload); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	stats := agg.Snapshot()
	if stats.CacheHits != 1 || stats.CacheMisses != 0 {
		t.Errorf("expected 1 hit / 0 misses, got %d / %d", stats.CacheHits, stats.CacheMisses)
	}
}

func TestSearchEventReportsCacheMiss(t *testing.T) {
	searcher := &cannedSearcher{cacheHit: false}
	tracker := &recordingTracker{}
	h := New(nil, searcher, nil, tracker, nil)

	h.Search(httptest.NewRecorder(), searchRequest("uncached"))

	if len(tracker.events) != 1 {
		t.Fatalf("expected 1 tracked event, got %d", len(tracker.events))
	}
	ev := tracker.events[0].(analytics.SearchEvent)
	if ev.CacheHit {
		t.Error("uncached search must not report a hit")
	}
}

func TestIngestEventReportsOccurrences(t *testing.T) {
	store := index.NewMemoryStore()
	tracker := &recordingTracker{}
	h := New(ingest.New(store, nil, nil), search.New(store, nil, nil), nil, tracker, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", strings.NewReader("alpha beta\n\ngamma"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	h.Ingest(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	if len(tracker.events) != 1 {
		t.Fatalf("expected 1 tracked event, got %d", len(tracker.events))
	}
	ev, ok := tracker.events[0].(analytics.IngestEvent)
	if !ok {
		t.Fatalf("expected an IngestEvent, got %T", tracker.events[0])
	}
	if ev.Paragraphs != 2 {
		t.Errorf("expected 2 paragraphs in event, got %d", ev.Paragraphs)
	}
	if ev.Occurrences != 3 {
		t.Errorf("expected 3 occurrences in event, got %d", ev.Occurrences)
	}
}

func TestCacheStatsDisabledWithoutCache(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.CacheStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/cache/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "disabled") {
		t.Errorf("expected disabled status, got %s", rec.Body.String())
	}
}

func TestCacheInvalidateDisabledWithoutCache(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.CacheInvalidate(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/cache/invalidate", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}
