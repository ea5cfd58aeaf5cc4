package embedding

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"talent-match/internal/logger"
	"talent-match/internal/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	probeText    = "software engineer"
	probeTimeout = 10 * time.Second
	storeTimeout = 2 * time.Second
	degradedName = "exact-match"

	// encodeTimeout bounds a shared backend call; callers still give up on their own ctx.
	encodeTimeout = 30 * time.Second
)

type Options struct {
	// CacheTTL <= 0 keeps entries until evicted by size.
	CacheTTL time.Duration
	// CacheSize bounds cached vectors; <= 0 uses DefaultCacheSize.
	CacheSize int
	Store     VectorStore
	Logger    *zap.Logger
}

// Provider wraps one shared backend with vector and similarity caches. When the
// backend fails its construction probe the provider is degraded for its whole
// lifetime: Encode returns an empty vector and Similarity is exact string equality.
type Provider struct {
	backend  Backend
	cache    *Cache
	store    VectorStore
	degraded bool
	group    singleflight.Group
	log      *zap.Logger
}

// NewProvider probes the backend once. A nil backend or a failed probe yields a
// degraded provider, never an error.
func NewProvider(ctx context.Context, backend Backend, opts Options) *Provider {
	log := logger.OrNop(opts.Logger).Named("embedding")

	p := &Provider{backend: backend, store: opts.Store, log: log}

	if backend == nil {
		p.degraded = true
		p.cache = NewCache(degradedName, opts.CacheTTL, opts.CacheSize)
		log.Warn("no embedding backend configured, using exact-match similarity")
		return p
	}

	p.cache = NewCache(backend.Model(), opts.CacheTTL, opts.CacheSize)

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if _, err := backend.Embed(probeCtx, probeText); err != nil {
		p.degraded = true
		log.Warn("embedding backend unavailable, using exact-match similarity",
			zap.String("model", backend.Model()),
			zap.Error(fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)),
		)
		return p
	}

	p.loadStore(ctx)
	return p
}

func (p *Provider) loadStore(ctx context.Context) {
	if p.store == nil {
		return
	}
	vecs, err := p.store.Load(ctx, p.backend.Model())
	if err != nil {
		p.log.Warn("load persisted embeddings failed", zap.Error(err))
		return
	}
	for text, vec := range vecs {
		p.cache.SetVector(text, vec)
	}
	p.log.Info("persisted embeddings loaded", zap.Int("vectors", len(vecs)))
}

func (p *Provider) Degraded() bool {
	return p.degraded
}

func (p *Provider) ModelVersion() string {
	if p.degraded {
		return degradedName
	}
	return p.backend.Model()
}

// Cache exposes the shared caches, mainly for stats.
func (p *Provider) Cache() *Cache {
	return p.cache
}

// Encode returns the vector for text. Concurrent callers for the same text share one
// backend call. The shared call is detached from any single caller's deadline, so a
// caller that gives up does not fail the others waiting on the same text.
func (p *Provider) Encode(ctx context.Context, text string) ([]float32, error) {
	if p.degraded {
		return []float32{}, nil
	}
	key := normalizeText(text)
	if key == "" {
		return []float32{}, nil
	}
	if vec, ok := p.cache.Vector(key); ok {
		return vec, nil
	}

	ch := p.group.DoChan(key, func() (any, error) {
		if vec, ok := p.cache.Vector(key); ok {
			return vec, nil
		}
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), encodeTimeout)
		defer cancel()

		metrics.IncrEmbeddingCalls()
		vec, err := p.backend.Embed(callCtx, key)
		if err != nil {
			metrics.IncrEmbeddingErrors()
			return nil, fmt.Errorf("encode %q: %w", logger.TruncateForLog(key, 80), err)
		}
		p.cache.SetVector(key, vec)
		p.persist(key, vec)
		return vec, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("encode %q: %w", logger.TruncateForLog(key, 80), ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.([]float32), nil
	}
}

func (p *Provider) persist(text string, vec []float32) {
	if p.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := p.store.Save(ctx, p.backend.Model(), text, vec); err != nil {
		p.log.Debug("persist embedding failed", zap.String("text", logger.TruncateForLog(text, 80)), zap.Error(err))
	}
}

// Similarity returns cosine similarity clipped to [0,1], cached per unordered pair.
func (p *Provider) Similarity(ctx context.Context, a, b string) (float64, error) {
	a, b = normalizeText(a), normalizeText(b)
	if a == b {
		if a == "" {
			return 0, nil
		}
		return 1, nil
	}
	if p.degraded || a == "" || b == "" {
		return 0, nil
	}
	if s, ok := p.cache.Similarity(a, b); ok {
		return s, nil
	}

	va, err := p.Encode(ctx, a)
	if err != nil {
		return 0, err
	}
	vb, err := p.Encode(ctx, b)
	if err != nil {
		return 0, err
	}

	s := math.Min(1, math.Max(0, Cosine(va, vb)))
	p.cache.SetSimilarity(a, b, s)
	return s, nil
}

// Warm pre-encodes texts with bounded parallelism. The first backend error aborts.
func (p *Provider) Warm(ctx context.Context, texts []string, parallelism int) error {
	if p.degraded || len(texts) == 0 {
		return nil
	}
	if parallelism <= 0 {
		parallelism = 4
	}
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for _, t := range texts {
		g.Go(func() error {
			_, err := p.Encode(gctx, t)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("warm embeddings: %w", err)
	}

	vectors, _ := p.cache.Stats()
	p.log.Info("embeddings warmed",
		zap.Int("texts", len(texts)),
		zap.Int("cached_vectors", vectors),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

func (p *Provider) Close() error {
	if p.store == nil {
		return nil
	}
	return p.store.Close()
}

// Cosine returns the cosine of the angle between a and b, or 0 for mismatched or
// zero-length vectors.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
