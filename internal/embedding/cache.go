package embedding

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const DefaultCacheSize = 50000

// pairs outnumber vectors roughly quadratically within one vocabulary.
const pairsPerVector = 4

// Cache holds skill vectors and pairwise similarities for one model version.
// Concurrent writers may race on the same key; values are pure functions of the key.
type Cache struct {
	mu      sync.RWMutex
	version string
	vectors *expirable.LRU[string, []float32]
	pairs   *expirable.LRU[pairKey, float64]
}

type pairKey struct {
	a, b string
}

// unordered pair: (a,b) and (b,a) share a slot.
func newPairKey(a, b string) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{a: a, b: b}
}

// NewCache builds an empty cache holding at most size vectors. ttl <= 0 keeps
// entries until they are evicted by size.
func NewCache(version string, ttl time.Duration, size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{
		version: version,
		vectors: expirable.NewLRU[string, []float32](size, nil, ttl),
		pairs:   expirable.NewLRU[pairKey, float64](size*pairsPerVector, nil, ttl),
	}
}

func (c *Cache) Version() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Reset drops everything when the model version changes.
func (c *Cache) Reset(version string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if version == c.version {
		return
	}
	c.version = version
	c.vectors.Purge()
	c.pairs.Purge()
}

func (c *Cache) Vector(text string) ([]float32, bool) {
	return c.vectors.Get(text)
}

func (c *Cache) SetVector(text string, vec []float32) {
	c.vectors.Add(text, vec)
}

func (c *Cache) Similarity(a, b string) (float64, bool) {
	return c.pairs.Get(newPairKey(a, b))
}

func (c *Cache) SetSimilarity(a, b string, score float64) {
	c.pairs.Add(newPairKey(a, b), score)
}

// Stats returns the number of cached vectors and pairs.
func (c *Cache) Stats() (vectors, pairs int) {
	return c.vectors.Len(), c.pairs.Len()
}
