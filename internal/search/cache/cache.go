// Package cache provides a Redis-backed cache for search results, with
// singleflight collapsing of concurrent lookups for the same word.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/4d4r5h/text-search-api/internal/index"
	"github.com/4d4r5h/text-search-api/pkg/config"
	pkgredis "github.com/4d4r5h/text-search-api/pkg/redis"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "search:"

// ResultCache caches the paragraph list returned for a search word.
type ResultCache struct {
	client *pkgredis.Client
	cfg    config.RedisConfig
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a ResultCache on top of an open Redis client.
func New(client *pkgredis.Client, cfg config.RedisConfig) *ResultCache {
	return &ResultCache{
		client: client,
		cfg:    cfg,
		logger: slog.Default().With("component", "search-cache"),
	}
}

// Get returns the cached paragraphs for word, if present.
func (c *ResultCache) Get(ctx context.Context, word string) ([]index.Paragraph, bool) {
	key := buildKey(word)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var paragraphs []index.Paragraph
	if err := json.Unmarshal([]byte(data), &paragraphs); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "word", word)
	return paragraphs, true
}

// Set stores the paragraphs for word with the configured TTL.
func (c *ResultCache) Set(ctx context.Context, word string, paragraphs []index.Paragraph) {
	key := buildKey(word)
	data, err := json.Marshal(paragraphs)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.cfg.CacheTTL.Std()); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached paragraphs for word, or runs computeFn
// exactly once across concurrent callers and caches its result. The second
// return value reports whether the result came from cache.
func (c *ResultCache) GetOrCompute(
	ctx context.Context,
	word string,
	computeFn func() ([]index.Paragraph, error),
) ([]index.Paragraph, bool, error) {
	if paragraphs, ok := c.Get(ctx, word); ok {
		return paragraphs, true, nil
	}
	val, err, _ := c.group.Do(buildKey(word), func() (interface{}, error) {
		if paragraphs, ok := c.Get(ctx, word); ok {
			return paragraphs, nil
		}
		paragraphs, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, word, paragraphs)
		return paragraphs, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]index.Paragraph), false, nil
}

// Invalidate removes every cached search result.
func (c *ResultCache) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating search cache: %w", err)
	}
	c.logger.Debug("search cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats returns cumulative hit and miss counts.
func (c *ResultCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func buildKey(word string) string {
	hash := sha256.Sum256([]byte(word))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
