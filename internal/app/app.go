// Package app is the composition root shared by the server, the CLI and the
// embeddable library.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/rulesage/internal/config"
	"github.com/kailas-cloud/rulesage/internal/db"
	dbRedis "github.com/kailas-cloud/rulesage/internal/db/redis"
	"github.com/kailas-cloud/rulesage/internal/domain"
	"github.com/kailas-cloud/rulesage/internal/metrics"
	"github.com/kailas-cloud/rulesage/internal/repository/chunk"
	"github.com/kailas-cloud/rulesage/internal/repository/embcache"
	searchrepo "github.com/kailas-cloud/rulesage/internal/repository/search"
	openaiTransport "github.com/kailas-cloud/rulesage/internal/transport/openai"
	"github.com/kailas-cloud/rulesage/internal/usecase/answer"
	embeddinguc "github.com/kailas-cloud/rulesage/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/rulesage/internal/usecase/health"
	"github.com/kailas-cloud/rulesage/internal/usecase/retrieval"
)

// App holds the wired services.
type App struct {
	Retrieval *retrieval.Service
	Answer    *answer.Service
	Health    *healthuc.Service

	store  db.Store
	logger *zap.Logger
}

// Option overrides a collaborator, mostly for tests.
type Option func(*options)

type options struct {
	store     db.Store
	embedder  domain.Embedder
	completer domain.Completer
	counter   answer.TokenCounter
}

// WithStore uses an existing store instead of connecting.
// The caller keeps ownership; App.Close does not close it.
func WithStore(s db.Store) Option {
	return func(o *options) { o.store = s }
}

// WithEmbedder replaces the provider embedder. Caching and instrumentation still wrap it.
func WithEmbedder(e domain.Embedder) Option {
	return func(o *options) { o.embedder = e }
}

// WithCompleter replaces the answer LLM client.
func WithCompleter(c domain.Completer) Option {
	return func(o *options) { o.completer = c }
}

// WithTokenCounter replaces the tiktoken context counter.
func WithTokenCounter(c answer.TokenCounter) Option {
	return func(o *options) { o.counter = c }
}

// New connects the store and builds every service from cfg.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	rcfg := RetrievalConfig(cfg.Retrieval)
	if err := rcfg.Validate(); err != nil {
		return nil, fmt.Errorf("retrieval config: %w", err)
	}

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRetrievalMetrics()

	a := &App{logger: logger}

	store := o.store
	if store == nil {
		s, err := connectStore(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		store = s
		a.store = s
	}
	logger.Info("Connected to database",
		zap.String("driver", cfg.Database.Driver),
		zap.Strings("addrs", cfg.Database.Addrs),
	)

	var provider domain.Embedder
	var embHealth healthuc.ProviderChecker
	if o.embedder != nil {
		provider = o.embedder
		if hc, ok := o.embedder.(domain.HealthChecker); ok {
			embHealth = hc
		}
	} else {
		base := openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Provider:   cfg.Embedding.Provider,
			Logger:     logger,
		})
		provider, embHealth = base, base
	}
	embedder := BuildEmbedder(provider, store, cfg, logger)

	keys := chunk.Keyspace{
		Prefix:      cfg.Storage.KeyPrefix,
		Collection:  cfg.Storage.Collection,
		VectorField: cfg.Storage.VectorField,
	}
	a.Retrieval = retrieval.New(
		searchrepo.New(store, embedder, keys),
		chunk.New(store, keys),
		rcfg,
		logger,
	)

	completer := o.completer
	var llmHealth healthuc.ProviderChecker
	if completer == nil {
		chat := openaiTransport.NewChatClient(&openaiTransport.Config{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Logger:  logger,
		})
		completer, llmHealth = chat, chat
	}
	a.Answer = answer.New(
		a.Retrieval,
		completer,
		answer.NewAssembler(tokenCounter(o.counter, cfg.LLM, logger), cfg.LLM.MaxContextTokens),
		answer.Config{Temperature: cfg.LLM.Temperature, MaxTokens: cfg.LLM.MaxTokens},
		logger,
	)

	a.Health = healthuc.New(store, embHealth, llmHealth)

	logger.Info("Services ready",
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.String("llm_model", cfg.LLM.Model),
		zap.String("index", keys.IndexName()),
	)
	return a, nil
}

// Close releases the store connection if App opened it.
func (a *App) Close() {
	if a.store != nil {
		a.store.Close()
	}
}

func connectStore(ctx context.Context, cfg config.DatabaseConfig) (db.Store, error) {
	switch cfg.Driver {
	case "valkey", "redis":
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:      cfg.Addrs,
		Username:   cfg.Username,
		Password:   cfg.Password,
		DB:         cfg.DB,
		Standalone: cfg.Standalone,
		ClientName: "rulesage",
	})
	if err != nil {
		return nil, fmt.Errorf("create database store: %w", err)
	}

	timeout := time.Duration(cfg.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, timeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("%w: database not ready: %w", domain.ErrUpstreamUnavailable, err)
	}
	return store, nil
}

// BuildEmbedder assembles the decorator chain: provider -> Cached -> Instrumented -> Instruction.
func BuildEmbedder(provider domain.Embedder, store db.KVStore, cfg config.Config, logger *zap.Logger) domain.Embedder {
	embedder := provider
	if store != nil {
		embedder = embcache.New(
			provider, store, cfg.Storage.KeyPrefix,
			time.Duration(cfg.Embedding.CacheTTLSec)*time.Second,
			metrics.EmbeddingCacheTotal, logger,
		)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(
		embedder, cfg.Embedding.Provider, cfg.Embedding.Model, cfg.Embedding.Dimensions, logger,
	)

	// Instruction prefix is outermost so the cache key includes it.
	if cfg.Embedding.QueryInstruction != "" {
		return domain.NewInstructionEmbedder(embedder, cfg.Embedding.QueryInstruction)
	}
	return embedder
}

// RetrievalConfig converts the YAML section into engine settings.
// ApplyDefaults must have run on c.
func RetrievalConfig(c config.RetrievalConfig) retrieval.Config {
	out := retrieval.DefaultConfig()
	out.DefaultK = c.DefaultK
	out.MaxK = c.MaxK
	out.MinResults = c.MinResults
	out.ExpansionFactor = c.ExpansionFactor
	out.ExpansionCap = c.ExpansionCap
	if c.GapThreshold != nil {
		out.GapThreshold = *c.GapThreshold
	}
	if c.DistanceMargin != nil {
		out.DistanceMargin = *c.DistanceMargin
	}
	if c.ParentCategoryOffset != nil {
		out.ParentCategoryOffset = *c.ParentCategoryOffset
	}
	if c.QueryMustFilter != nil {
		out.QueryMustFilter = *c.QueryMustFilter
	}
	if c.TargetedEntitySearch != nil {
		out.TargetedEntitySearch = *c.TargetedEntitySearch
	}
	if c.ParentCategory != nil {
		out.ParentCategory = *c.ParentCategory
	}
	return out
}

func tokenCounter(override answer.TokenCounter, cfg config.LLMConfig, logger *zap.Logger) answer.TokenCounter {
	if cfg.MaxContextTokens <= 0 {
		return nil
	}
	if override != nil {
		return override
	}
	counter, err := answer.NewTiktokenCounter(cfg.Encoding)
	if err != nil {
		logger.Warn("Context token budget disabled", zap.String("encoding", cfg.Encoding), zap.Error(err))
		return nil
	}
	return counter
}
