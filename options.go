package rulesage

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/rulesage/internal/app"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver     string // "valkey" or "redis"
	addrs      []string
	username   string
	password   string
	standalone bool

	keyPrefix   string
	collection  string
	vectorField string

	embAPIKey      string
	embBaseURL     string
	embModel       string
	embDimensions  int
	embInstruction string
	embedder       Embedder

	llmAPIKey  string
	llmBaseURL string
	llmModel   string
	completer  Completer

	retrieval *Retrieval

	logger     *zap.Logger
	metricsReg prometheus.Registerer

	appOpts []app.Option
}

// Retrieval overrides ranking parameters. Zero values keep the defaults;
// pointer fields distinguish an explicit false or 0 from "unset".
type Retrieval struct {
	DefaultK             int
	MaxK                 int
	MinResults           int
	ExpansionFactor      int
	ExpansionCap         int
	GapThreshold         *float64
	DistanceMargin       *float64
	ParentCategoryOffset *float64
	QueryMustFilter      *bool
	TargetedEntitySearch *bool
	ParentCategory       *bool
}

// WithValkey connects to a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis connects to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithCluster connects to several seed addresses with ACL credentials.
func WithCluster(addrs []string, username, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = append([]string(nil), addrs...)
		c.username = username
		c.password = password
	})
}

// WithStandalone disables cluster topology discovery.
// Use for single Valkey/Redis instances not managed by a cluster operator.
func WithStandalone() Option {
	return optionFunc(func(c *clientConfig) {
		c.standalone = true
	})
}

// WithKeyspace sets the key prefix, collection and KNN vector attribute the
// corpus was indexed with. Defaults: "rulesage:", "chunks" and "vector".
func WithKeyspace(prefix, collection, vectorField string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
		c.collection = collection
		c.vectorField = vectorField
	})
}

// WithOpenAI uses an OpenAI-compatible endpoint for query embeddings and,
// unless WithLLM says otherwise, for answers. Empty baseURL means api.openai.com.
func WithOpenAI(apiKey, baseURL, embeddingModel string) Option {
	return optionFunc(func(c *clientConfig) {
		c.embAPIKey = apiKey
		c.embBaseURL = baseURL
		c.embModel = embeddingModel
	})
}

// WithEmbeddingDimensions requests and enforces a vector dimension.
func WithEmbeddingDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.embDimensions = dim
	})
}

// WithQueryInstruction prepends an instruction to every query before embedding.
func WithQueryInstruction(instruction string) Option {
	return optionFunc(func(c *clientConfig) {
		c.embInstruction = instruction
	})
}

// WithEmbedder replaces the OpenAI embedder. Results are still cached in the store.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithLLM sets the answer model. Empty apiKey or baseURL inherit the embedding ones.
func WithLLM(apiKey, baseURL, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.llmAPIKey = apiKey
		c.llmBaseURL = baseURL
		c.llmModel = model
	})
}

// WithCompleter replaces the OpenAI chat client used by Ask.
func WithCompleter(comp Completer) Option {
	return optionFunc(func(c *clientConfig) {
		c.completer = comp
	})
}

// WithRetrieval overrides ranking parameters.
func WithRetrieval(r Retrieval) Option {
	return optionFunc(func(c *clientConfig) {
		c.retrieval = &r
	})
}

// WithLogger enables structured logging. Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

func withAppOptions(opts ...app.Option) Option {
	return optionFunc(func(c *clientConfig) {
		c.appOpts = append(c.appOpts, opts...)
	})
}
