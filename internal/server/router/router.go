// Package router wires up all API routes and applies the middleware chain
// (RequestID → Metrics → CORS → Auth → RateLimit → Timeout).
package router

import (
	"net/http"
	"time"

	"github.com/4d4r5h/text-search-api/internal/analytics"
	"github.com/4d4r5h/text-search-api/internal/auth/ratelimit"
	"github.com/4d4r5h/text-search-api/internal/server/handler"
	srvmw "github.com/4d4r5h/text-search-api/internal/server/middleware"
	"github.com/4d4r5h/text-search-api/pkg/health"
	"github.com/4d4r5h/text-search-api/pkg/metrics"
	pkgmw "github.com/4d4r5h/text-search-api/pkg/middleware"
)

// Config collects the router's optional collaborators.
type Config struct {
	Metrics        *metrics.Metrics    // nil disables request metrics
	Analytics      *analytics.Handler  // nil disables the analytics endpoint
	Checker        *health.Checker     // nil falls back to the plain health handler
	RequestTimeout time.Duration       // zero disables the timeout middleware
}

// New builds the full HTTP handler with all routes and middleware.
//
// Route table:
//
//	POST   /api/v1/ingest            → ingest a document
//	GET    /api/v1/search/{word}     → search paragraphs by word
//	POST   /api/v1/admin/keys        → create API key
//	GET    /api/v1/admin/keys        → list API keys
//	DELETE /api/v1/admin/keys        → revoke API key
//	GET    /api/v1/analytics         → aggregated search stats
//	GET    /api/v1/cache/stats       → search cache counters
//	POST   /api/v1/cache/invalidate  → flush the search cache
//	GET    /health                   → liveness (unauthenticated)
//	GET    /health/live              → liveness (unauthenticated)
//	GET    /health/ready             → readiness (unauthenticated)
func New(h *handler.Handler, validator srvmw.KeyValidator, limiter *ratelimit.Limiter, cfg Config) http.Handler {
	mux := http.NewServeMux()

	// Health (unauthenticated)
	mux.HandleFunc("GET /health", h.Health)
	if cfg.Checker != nil {
		mux.HandleFunc("GET /health/live", cfg.Checker.LiveHandler())
		mux.HandleFunc("GET /health/ready", cfg.Checker.ReadyHandler())
	}

	// Core API
	mux.HandleFunc("POST /api/v1/ingest", h.Ingest)
	mux.HandleFunc("GET /api/v1/search/{word}", h.Search)

	// Admin API
	mux.HandleFunc("POST /api/v1/admin/keys", h.CreateAPIKey)
	mux.HandleFunc("GET /api/v1/admin/keys", h.ListAPIKeys)
	mux.HandleFunc("DELETE /api/v1/admin/keys", h.RevokeAPIKey)

	// Analytics and cache maintenance
	if cfg.Analytics != nil {
		mux.HandleFunc("GET /api/v1/analytics", cfg.Analytics.Stats)
	}
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)

	// Middleware chain, applied inside-out:
	// request → RequestID → Metrics → CORS → Auth → RateLimit → Timeout → mux
	var chain http.Handler = mux
	if cfg.RequestTimeout > 0 {
		chain = pkgmw.Timeout(cfg.RequestTimeout)(chain)
	}
	if limiter != nil {
		chain = srvmw.RateLimit(limiter)(chain)
	}
	chain = srvmw.Auth(validator)(chain)
	chain = srvmw.CORS(srvmw.DefaultCORSConfig())(chain)
	if cfg.Metrics != nil {
		chain = pkgmw.Metrics(cfg.Metrics)(chain)
	}
	chain = pkgmw.RequestID(chain)

	return chain
}
