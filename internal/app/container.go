package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"talent-match/internal/config"
	"talent-match/internal/database"
	"talent-match/internal/database/migration"
	dbpostgres "talent-match/internal/database/postgres"
	"talent-match/internal/domain/matching"
	"talent-match/internal/embedding"
	"talent-match/internal/infrastructure/cache"
	"talent-match/internal/logger"
	"talent-match/internal/pipeline"
	"talent-match/internal/preference"
	"talent-match/internal/repository"
	"talent-match/internal/usecase"

	"go.uber.org/zap"
)

const setupTimeout = 30 * time.Second

// Container owns every long-lived collaborator of the matching engine. Both the HTTP
// server and matchctl build one.
type Container struct {
	Config config.Config
	Logger *zap.Logger

	DB         database.DB
	Redis      *cache.Redis
	Embeddings *embedding.Provider
	Scorer     *matching.MultiFactorScorer
	Engine     *pipeline.BatchEngine
	Learner    *preference.Learner
	Matching   *usecase.Matching

	stopLearner context.CancelFunc
}

func NewContainer(cfg config.Config, log *zap.Logger) (*Container, error) {
	log = logger.OrNop(log)
	ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
	defer cancel()

	c := &Container{Config: cfg, Logger: log}

	vocab, err := loadVocabulary(cfg.Vocabulary)
	if err != nil {
		return nil, err
	}

	c.Embeddings = embedding.NewProvider(ctx, newBackend(ctx, cfg.Embedding, log), embedding.Options{
		CacheTTL:  cfg.Embedding.CacheTTL,
		CacheSize: cfg.Embedding.CacheSize,
		Store:     openVectorStore(cfg.Embedding, log),
		Logger:    log,
	})
	if cfg.Embedding.WarmVocabulary {
		if err := c.Embeddings.Warm(ctx, vocab.SkillNames(), cfg.Engine.Workers); err != nil {
			log.Warn("embedding warm-up incomplete", zap.Error(err))
		}
	}

	local := matching.NewMemoryResultCache(cfg.Engine.ResultCacheSize)
	var results matching.ResultCache = local
	if cfg.Redis.Enabled() {
		c.Redis = cache.NewRedis(ctx, cfg.Redis, log)
		if c.Redis.Available() {
			results = matching.NewTieredResultCache(local, c.Redis, cfg.Redis.TTL, log)
		}
	}

	base := matching.NewBaseMatcher(matching.NewSkillExtractor(vocab), c.Embeddings)
	c.Scorer = matching.NewMultiFactorScorer(base, matching.ScorerOptions{
		AlgorithmVersion: cfg.Engine.AlgorithmVersion,
		Cache:            results,
		Logger:           log,
	})
	c.Engine = pipeline.NewBatchEngine(c.Scorer, pipeline.Options{
		Workers:     cfg.Engine.Workers,
		TaskTimeout: cfg.Engine.TaskTimeout,
		MaxPairs:    cfg.Engine.MaxPairs,
		Logger:      log,
	})

	store, err := c.openOutcomeStore(ctx)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.Learner = preference.NewLearner(store, preference.Options{
		LearningRate:    cfg.Preference.LearningRate,
		QueueSize:       cfg.Preference.QueueSize,
		WritesPerSecond: cfg.Preference.WritesPerSecond,
		Logger:          log,
	})
	learnerCtx, stop := context.WithCancel(context.Background())
	c.stopLearner = stop
	c.Learner.Start(learnerCtx)

	c.Matching = usecase.NewMatchingUsecase(c.Scorer, c.Engine, c.Learner, usecase.MatchingOptions{Logger: log})

	log.Info("matching engine ready",
		zap.String("algorithm_version", c.Scorer.AlgorithmVersion()),
		zap.String("embedding_model", c.Embeddings.ModelVersion()),
		zap.Int("skills", len(vocab.SkillNames())),
		zap.Bool("postgres", c.DB != nil),
		zap.Bool("redis", c.Redis.Available()),
	)
	return c, nil
}

// Close flushes queued outcomes before releasing connections.
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.Learner != nil {
		c.Learner.Close()
	}
	if c.stopLearner != nil {
		c.stopLearner()
	}
	if c.Embeddings != nil {
		errs = append(errs, c.Embeddings.Close())
	}
	if c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}
	if c.DB != nil {
		errs = append(errs, c.DB.Close())
	}
	return errors.Join(errs...)
}

func loadVocabulary(cfg config.VocabularyConfig) (*matching.Vocabulary, error) {
	if cfg.Path == "" {
		return matching.DefaultVocabulary()
	}
	v, err := matching.LoadVocabulary(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}
	return v, nil
}

// newBackend returns nil when no backend can be built; the provider then runs degraded.
func newBackend(ctx context.Context, cfg config.EmbeddingConfig, log *zap.Logger) embedding.Backend {
	switch cfg.Provider {
	case "gemini":
		b, err := embedding.NewGeminiBackend(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			log.Warn("gemini backend unavailable", zap.Error(err))
			return nil
		}
		return b
	case "hashing":
		return embedding.NewHashingBackend(0)
	default:
		return nil
	}
}

func openVectorStore(cfg config.EmbeddingConfig, log *zap.Logger) embedding.VectorStore {
	if cfg.CachePath == "" {
		return nil
	}
	s, err := embedding.OpenSQLiteStore(cfg.CachePath, cfg.CacheTTL)
	if err != nil {
		log.Warn("embedding store unavailable, caching in memory only", zap.String("path", cfg.CachePath), zap.Error(err))
		return nil
	}
	return s
}

// openOutcomeStore falls back to memory when Postgres is unreachable. A reachable
// database whose migrations fail is fatal.
func (c *Container) openOutcomeStore(ctx context.Context) (preference.Store, error) {
	if !c.Config.Database.Enabled() {
		return preference.NewMemoryStore(), nil
	}

	db, err := dbpostgres.Connect(ctx, c.Config.Database)
	if err != nil {
		c.Logger.Warn("outcome store unavailable, keeping outcomes in memory", zap.Error(err))
		return preference.NewMemoryStore(), nil
	}
	c.DB = db

	if err := (migration.Runner{Logger: c.Logger}).Run(ctx, db.SQLDB()); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return repository.NewPostgresOutcomeStore(db), nil
}
