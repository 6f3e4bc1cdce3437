// Package redis caches prompt history pages in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/futureblink-ai/internal/domain"
)

// DefaultKey prefixes the per-generation hashes holding cached pages.
const DefaultKey = "futureblink:history:pages"

// GenerationKey holds the counter bumped by every invalidation.
const GenerationKey = "futureblink:history:gen"

// PageCache stores listing pages as fields of one Redis hash per cache generation.
// Invalidate bumps the generation, so a page computed before a write can only land in a
// hash nobody reads anymore. Redis errors are logged and treated as misses.
type PageCache struct {
	rdb    goredis.UniversalClient
	key    string
	genKey string
	ttl    time.Duration
}

// NewPageCache returns a cache backed by rdb. A non-positive ttl defaults to 30s.
func NewPageCache(rdb goredis.UniversalClient, ttl time.Duration) *PageCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &PageCache{rdb: rdb, key: DefaultKey, genKey: GenerationKey, ttl: ttl}
}

// Connect parses a redis:// URL and verifies the server answers.
func Connect(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("op=redis.parse_url: %w", err)
	}
	rdb := goredis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("op=redis.ping: %w", err)
	}
	return rdb, nil
}

func field(page, limit int) string { return fmt.Sprintf("%d:%d", page, limit) }

// PagesKey is the hash holding the pages of generation gen.
func (c *PageCache) PagesKey(gen int64) string { return fmt.Sprintf("%s:%d", c.key, gen) }

// Generation returns the current cache generation. ok is false when Redis cannot answer,
// in which case callers should bypass the cache.
func (c *PageCache) Generation(ctx context.Context) (int64, bool) {
	gen, err := c.rdb.Get(ctx, c.genKey).Int64()
	switch {
	case errors.Is(err, goredis.Nil):
		return 0, true
	case err != nil:
		slog.Warn("history cache generation read failed", slog.Any("error", err))
		return 0, false
	}
	return gen, true
}

// GetPage returns a page cached under generation gen when present.
func (c *PageCache) GetPage(ctx context.Context, gen int64, page, limit int) (domain.PromptPage, bool) {
	raw, err := c.rdb.HGet(ctx, c.PagesKey(gen), field(page, limit)).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			slog.Warn("history cache read failed", slog.Any("error", err))
		}
		return domain.PromptPage{}, false
	}
	var out domain.PromptPage
	if err := json.Unmarshal(raw, &out); err != nil {
		slog.Warn("history cache entry corrupt", slog.Any("error", err))
		return domain.PromptPage{}, false
	}
	return out, true
}

// SetPage stores a page under generation gen and refreshes that hash's TTL.
func (c *PageCache) SetPage(ctx context.Context, gen int64, page, limit int, p domain.PromptPage) {
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	key := c.PagesKey(gen)
	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, key, field(page, limit), raw)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("history cache write failed", slog.Any("error", err))
	}
}

// Invalidate moves to a new generation and drops the previous generation's pages.
// Pages written late under an old generation expire with their hash TTL.
func (c *PageCache) Invalidate(ctx context.Context) {
	gen, err := c.rdb.Incr(ctx, c.genKey).Result()
	if err != nil {
		slog.Warn("history cache invalidate failed", slog.Any("error", err))
		return
	}
	if err := c.rdb.Del(ctx, c.PagesKey(gen-1)).Err(); err != nil {
		slog.Warn("history cache cleanup failed", slog.Any("error", err))
	}
}
