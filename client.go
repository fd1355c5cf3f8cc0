package rulesage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/rulesage/internal/app"
	"github.com/kailas-cloud/rulesage/internal/config"
	"github.com/kailas-cloud/rulesage/internal/domain"
)

// Client is the rulesage library entry point. Safe for concurrent use.
type Client struct {
	app *app.App
	obs *observer
}

// New connects to the store and wires the retrieval and answer pipelines.
// The provided context bounds the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cc := &clientConfig{}
	for _, o := range opts {
		o.apply(cc)
	}

	if len(cc.addrs) == 0 {
		return nil, errors.New("rulesage: database address required (use WithValkey, WithRedis or WithCluster)")
	}

	cfg := buildConfig(cc)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("rulesage: %w", err)
	}

	logger := cc.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	obs, err := newObserver(cc.logger, cc.metricsReg)
	if err != nil {
		return nil, err
	}

	appOpts := append([]app.Option(nil), cc.appOpts...)
	if cc.embedder != nil {
		appOpts = append(appOpts, app.WithEmbedder(&embedderAdapter{inner: cc.embedder}))
	}
	if cc.completer != nil {
		appOpts = append(appOpts, app.WithCompleter(&completerAdapter{inner: cc.completer}))
	}

	a, err := app.New(ctx, cfg, logger, appOpts...)
	if err != nil {
		return nil, fmt.Errorf("rulesage: %w", err)
	}
	return &Client{app: a, obs: obs}, nil
}

func buildConfig(cc *clientConfig) config.Config {
	var cfg config.Config
	cfg.Database.Driver = cc.driver
	cfg.Database.Addrs = cc.addrs
	cfg.Database.Username = cc.username
	cfg.Database.Password = cc.password
	cfg.Database.Standalone = cc.standalone
	cfg.Storage.KeyPrefix = cc.keyPrefix
	cfg.Storage.Collection = cc.collection
	cfg.Storage.VectorField = cc.vectorField
	cfg.Embedding.APIKey = cc.embAPIKey
	cfg.Embedding.BaseURL = cc.embBaseURL
	cfg.Embedding.Model = cc.embModel
	cfg.Embedding.Dimensions = cc.embDimensions
	cfg.Embedding.QueryInstruction = cc.embInstruction
	cfg.LLM.APIKey = cc.llmAPIKey
	cfg.LLM.BaseURL = cc.llmBaseURL
	cfg.LLM.Model = cc.llmModel
	if r := cc.retrieval; r != nil {
		cfg.Retrieval = config.RetrievalConfig{
			DefaultK:             r.DefaultK,
			MaxK:                 r.MaxK,
			MinResults:           r.MinResults,
			ExpansionFactor:      r.ExpansionFactor,
			ExpansionCap:         r.ExpansionCap,
			GapThreshold:         r.GapThreshold,
			DistanceMargin:       r.DistanceMargin,
			ParentCategoryOffset: r.ParentCategoryOffset,
			QueryMustFilter:      r.QueryMustFilter,
			TargetedEntitySearch: r.TargetedEntitySearch,
			ParentCategory:       r.ParentCategory,
		}
	}
	cfg.ApplyDefaults()
	return cfg
}

// Close releases the store connection.
func (c *Client) Close() {
	if c.app != nil {
		c.app.Close()
	}
}

// Retrieve returns up to k ranked chunks for query. k == 0 uses the default.
func (c *Client) Retrieve(ctx context.Context, query string, k int) (_ *Result, err error) {
	start := time.Now()
	defer func() { c.obs.observe("retrieve", start, err) }()

	ctx, usage := domain.NewContextWithUsage(ctx)
	resp, err := c.app.Retrieval.Retrieve(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	return &Result{
		Chunks: chunksFrom(resp.Results),
		Trace:  traceFrom(&resp.Trace),
		Usage:  usageFrom(usage.Snapshot()),
	}, nil
}

// Ask retrieves context for question and generates an answer from it.
func (c *Client) Ask(ctx context.Context, question string, k int) (_ *Answer, err error) {
	start := time.Now()
	defer func() { c.obs.observe("ask", start, err) }()

	ans, err := c.app.Answer.Ask(ctx, question, k)
	if err != nil {
		return nil, fmt.Errorf("ask: %w", err)
	}
	return answerFrom(&ans), nil
}

// Health checks the store and the configured providers.
func (c *Client) Health(ctx context.Context) Health {
	start := time.Now()
	r := c.app.Health.Check(ctx)
	checks := make(map[string]string, len(r.Checks))
	for k, v := range r.Checks {
		checks[k] = string(v)
	}
	c.obs.observe("health", start, nil)
	return Health{Status: string(r.Status), Checks: checks}
}
