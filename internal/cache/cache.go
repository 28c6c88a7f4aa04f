// Package cache is the tiered lookaside cache for market data: a small
// in-process TTL map in front of an optional shared Redis backend. The cache
// is strictly an optimization — every operation degrades silently when the
// backend is unreachable, and callers never see a cache failure.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// TTL classes, fixed per data kind. Not caller-configurable.
const (
	TTLQuote    = 15 * time.Minute
	TTLHistory  = 15 * time.Minute
	TTLSearch   = time.Hour
	TTLNews     = time.Hour
	TTLRate     = time.Hour
	TTLForecast = 24 * time.Hour
)

// Key builders. Shape: "{kind}:{UPPER_SYMBOL}[:{param}]".

func QuoteKey(symbol string) string { return "stock_info:" + strings.ToUpper(symbol) }

func HistoryKey(symbol, period string) string {
	return fmt.Sprintf("stock_history:%s:%s", strings.ToUpper(symbol), period)
}

func SearchKey(query string) string { return "stock_search:" + strings.ToLower(query) }

func NewsKey(symbol string, limit int) string {
	return fmt.Sprintf("stock_news:%s:%d", strings.ToUpper(symbol), limit)
}

func RateKey(from, to string) string {
	return fmt.Sprintf("currency:%s:%s", strings.ToUpper(from), strings.ToUpper(to))
}

func ForecastKey(symbol string, days int) string {
	return fmt.Sprintf("prediction:%s:%d", strings.ToUpper(symbol), days)
}

// Backend is the shared cache tier. Implementations must treat a missing key
// as ("", false, nil), not as an error.
type Backend interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	// Keys returns the keys matching a glob pattern ("stock_info:*").
	Keys(ctx context.Context, pattern string) ([]string, error)
}

// Cache combines the in-process tier with an optional backend.
type Cache struct {
	mem     *Memory
	backend Backend // nil means memory-only
	log     *slog.Logger

	// OnHit and OnMiss, when set, are invoked with the key's kind prefix.
	// Used for metrics.
	OnHit  func(kind string)
	OnMiss func(kind string)
}

// New builds a cache. backend may be nil for a memory-only cache; log may be
// nil to discard degradation notices.
func New(backend Backend, log *slog.Logger) *Cache {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Cache{mem: NewMemory(nil), backend: backend, log: log}
}

// GetJSON loads key into out, returning true on a hit from either tier.
// Backend failures count as misses.
func (c *Cache) GetJSON(ctx context.Context, key string, out any) bool {
	if raw, ok, _ := c.mem.Get(ctx, key); ok {
		if json.Unmarshal([]byte(raw), out) == nil {
			c.hit(key)
			return true
		}
	}
	if c.backend != nil {
		raw, ok, err := c.backend.Get(ctx, key)
		if err != nil {
			c.log.Debug("cache backend get failed, proceeding without cache", "key", key, "err", err)
		} else if ok && json.Unmarshal([]byte(raw), out) == nil {
			c.hit(key)
			return true
		}
	}
	c.miss(key)
	return false
}

// SetJSON stores v under key in both tiers. Errors are logged and dropped.
func (c *Cache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		c.log.Debug("cache marshal failed", "key", key, "err", err)
		return
	}
	_ = c.mem.Set(ctx, key, string(raw), ttl)
	if c.backend != nil {
		if err := c.backend.Set(ctx, key, string(raw), ttl); err != nil {
			c.log.Debug("cache backend set failed, entry kept in memory only", "key", key, "err", err)
		}
	}
}

// Delete removes keys from both tiers.
func (c *Cache) Delete(ctx context.Context, keys ...string) {
	_ = c.mem.Del(ctx, keys...)
	if c.backend != nil {
		if err := c.backend.Del(ctx, keys...); err != nil {
			c.log.Debug("cache backend delete failed", "err", err)
		}
	}
}

// DeletePattern removes every key matching a glob pattern from both tiers.
func (c *Cache) DeletePattern(ctx context.Context, pattern string) {
	if keys, err := c.mem.Keys(ctx, pattern); err == nil && len(keys) > 0 {
		_ = c.mem.Del(ctx, keys...)
	}
	if c.backend != nil {
		keys, err := c.backend.Keys(ctx, pattern)
		if err != nil {
			c.log.Debug("cache backend scan failed", "pattern", pattern, "err", err)
			return
		}
		if len(keys) > 0 {
			if err := c.backend.Del(ctx, keys...); err != nil {
				c.log.Debug("cache backend delete failed", "pattern", pattern, "err", err)
			}
		}
	}
}

func (c *Cache) hit(key string) {
	if c.OnHit != nil {
		c.OnHit(kindOf(key))
	}
}

func (c *Cache) miss(key string) {
	if c.OnMiss != nil {
		c.OnMiss(kindOf(key))
	}
}

func kindOf(key string) string {
	if i := strings.Index(key, ":"); i > 0 {
		return key[:i]
	}
	return key
}
