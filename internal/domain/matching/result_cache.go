package matching

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// ResultCache stores finished results. Implementations must be safe for concurrent use;
// a lost write only costs a recomputation.
type ResultCache interface {
	Get(ctx context.Context, key string) (MatchResult, bool)
	Set(ctx context.Context, key string, r MatchResult)
}

// ResultKey builds match:{version}:{job}:{candidate}[:{weights}].
func ResultKey(version string, jobID, candidateID uuid.UUID, fingerprint string) string {
	var b strings.Builder
	b.WriteString("match:")
	b.WriteString(version)
	b.WriteByte(':')
	b.WriteString(jobID.String())
	b.WriteByte(':')
	b.WriteString(candidateID.String())
	if fingerprint != "" {
		b.WriteByte(':')
		b.WriteString(fingerprint)
	}
	return b.String()
}

// MemoryResultCache is a bounded in-process LRU cache.
type MemoryResultCache struct {
	items *lru.Cache[string, MatchResult]
}

func NewMemoryResultCache(limit int) *MemoryResultCache {
	if limit <= 0 {
		limit = 10000
	}
	items, _ := lru.New[string, MatchResult](limit)
	return &MemoryResultCache{items: items}
}

func (c *MemoryResultCache) Get(_ context.Context, key string) (MatchResult, bool) {
	return c.items.Get(key)
}

func (c *MemoryResultCache) Set(_ context.Context, key string, r MatchResult) {
	c.items.Add(key, r)
}

func (c *MemoryResultCache) Len() int {
	return c.items.Len()
}

// JSONCache is the shared store behind the L1 cache, e.g. Redis.
type JSONCache interface {
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// TieredResultCache reads through a local cache to a shared JSON store. Shared store
// errors are logged and treated as misses.
type TieredResultCache struct {
	local  *MemoryResultCache
	shared JSONCache
	ttl    time.Duration
	logger *zap.Logger
}

func NewTieredResultCache(local *MemoryResultCache, shared JSONCache, ttl time.Duration, logger *zap.Logger) *TieredResultCache {
	if local == nil {
		local = NewMemoryResultCache(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TieredResultCache{local: local, shared: shared, ttl: ttl, logger: logger}
}

func (c *TieredResultCache) Get(ctx context.Context, key string) (MatchResult, bool) {
	if r, ok := c.local.Get(ctx, key); ok {
		return r, true
	}
	if c.shared == nil {
		return MatchResult{}, false
	}
	var r MatchResult
	found, err := c.shared.GetJSON(ctx, key, &r)
	if err != nil {
		c.logger.Debug("shared result cache get failed", zap.String("key", key), zap.Error(err))
		return MatchResult{}, false
	}
	if !found {
		return MatchResult{}, false
	}
	c.local.Set(ctx, key, r)
	return r, true
}

func (c *TieredResultCache) Set(ctx context.Context, key string, r MatchResult) {
	c.local.Set(ctx, key, r)
	if c.shared == nil {
		return
	}
	if err := c.shared.SetJSON(ctx, key, r, c.ttl); err != nil {
		c.logger.Debug("shared result cache set failed", zap.String("key", key), zap.Error(err))
	}
}
