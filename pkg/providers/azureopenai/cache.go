package azureopenai

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ErrNilClient is returned when a Factory reports success without a client.
var ErrNilClient = errors.New("azureopenai: factory returned nil client")

// Cache memoizes Clients by Config.CacheKey. Entries are never evicted; a
// process is expected to talk to a small, fixed set of resources.
//
// Construction is serialized by a single mutex held for the whole
// check-build-insert sequence, so each key is built at most once even under
// concurrent callers. Lookups of already published keys do not take the
// mutex. A failed construction stores nothing and the next call for that key
// builds again.
type Cache struct {
	mu      sync.Mutex
	clients sync.Map // key -> *Client
	size    int

	factory    Factory
	creds      CredentialFunc
	httpClient *http.Client
	log        *slog.Logger
	metrics    *cacheMetrics
}

// Option configures a Cache.
type Option func(*Cache)

// WithFactory replaces the client constructor. WithCredential and
// WithHTTPClient have no effect when a factory is supplied.
func WithFactory(f Factory) Option {
	return func(c *Cache) { c.factory = f }
}

// WithCredential sets how Entra ID clients discover their credential.
func WithCredential(creds CredentialFunc) Option {
	return func(c *Cache) { c.creds = creds }
}

// WithHTTPClient sets the HTTP client shared by every constructed Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Cache) { c.httpClient = hc }
}

// WithLogger sets the logger used for construction events.
func WithLogger(log *slog.Logger) Option {
	return func(c *Cache) { c.log = log }
}

// WithRegisterer registers the cache metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Cache) { c.metrics = newCacheMetrics(reg) }
}

// NewCache creates an empty Cache.
func NewCache(opts ...Option) *Cache {
	c := &Cache{}
	for _, opt := range opts {
		opt(c)
	}

	if c.factory == nil {
		c.factory = NewFactory(c.creds, c.httpClient)
	}
	if c.log == nil {
		c.log = slog.New(slog.DiscardHandler)
	}
	if c.metrics == nil {
		c.metrics = newCacheMetrics(nil)
	}

	return c
}

// GetOrCreate returns the Client cached for cfg's key, building and storing
// one if absent. A cached Client is returned unchanged even when cfg differs
// from the Config it was built with in fields outside the key.
func (c *Cache) GetOrCreate(cfg Config) (*Client, error) {
	key := cfg.CacheKey()

	if cl, ok := c.load(key); ok {
		c.metrics.hits.Inc()
		return cl, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if cl, ok := c.load(key); ok {
		c.metrics.hits.Inc()
		return cl, nil
	}

	c.metrics.misses.Inc()

	cl, err := c.factory(cfg)
	if err == nil && cl == nil {
		err = ErrNilClient
	}
	if err != nil {
		c.metrics.failures.Inc()
		c.log.Warn("azure openai client construction failed",
			"key", shortKey(key),
			"endpoint", cfg.Endpoint,
			"auth", cfg.AuthMode(),
			"error", err,
		)
		return nil, err
	}

	c.clients.Store(key, cl)
	c.size++
	c.metrics.constructions.Inc()
	c.metrics.entries.Set(float64(c.size))

	c.log.Debug("azure openai client created",
		"key", shortKey(key),
		"endpoint", cfg.Endpoint,
		"api_version", cfg.APIVersion,
		"auth", cfg.AuthMode(),
		"max_concurrency", cfg.ConcurrencyLimit(),
	)

	return cl, nil
}

// Len returns the number of cached clients.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.size
}

func (c *Cache) load(key string) (*Client, bool) {
	v, ok := c.clients.Load(key)
	if !ok {
		return nil, false
	}
	return v.(*Client), true
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}

type cacheMetrics struct {
	hits          prometheus.Counter
	misses        prometheus.Counter
	constructions prometheus.Counter
	failures      prometheus.Counter
	entries       prometheus.Gauge
}

// newCacheMetrics creates the cache collectors. A nil reg leaves them
// unregistered.
func newCacheMetrics(reg prometheus.Registerer) *cacheMetrics {
	f := promauto.With(reg)

	return &cacheMetrics{
		hits: f.NewCounter(prometheus.CounterOpts{
			Name: "llmclients_azure_openai_client_cache_hits_total",
			Help: "Total number of client lookups served from the cache",
		}),
		misses: f.NewCounter(prometheus.CounterOpts{
			Name: "llmclients_azure_openai_client_cache_misses_total",
			Help: "Total number of client lookups that required construction",
		}),
		constructions: f.NewCounter(prometheus.CounterOpts{
			Name: "llmclients_azure_openai_client_constructions_total",
			Help: "Total number of clients successfully constructed",
		}),
		failures: f.NewCounter(prometheus.CounterOpts{
			Name: "llmclients_azure_openai_client_construction_failures_total",
			Help: "Total number of failed client constructions",
		}),
		entries: f.NewGauge(prometheus.GaugeOpts{
			Name: "llmclients_azure_openai_client_cache_entries",
			Help: "Current number of cached clients",
		}),
	}
}
