package heavyride

import (
	"context"
	"errors"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/teamqeematech/heavyride-go/session"
	"github.com/teamqeematech/heavyride-go/transport"
)

// Builder assembles a [Client]. A Builder is single-use: Build returns
// [ErrBuilderUsed] on reuse.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	sessionFile string
	stores      []session.Store

	httpClient *http.Client
	logger     zerolog.Logger
	auditSink  AuditSink

	built bool
}

// New creates a Builder loaded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
		logger: zerolog.Nop(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBaseURL sets the backend origin without replacing the rest of the
// configuration.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.HTTP.BaseURL = baseURL
	return b
}

// WithLocale sets the default Accept-Language value.
func (b *Builder) WithLocale(locale string) *Builder {
	b.config.HTTP.Locale = locale
	return b
}

// WithRedis supplies the Redis client backing the primary session store.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSessionFile sets the path of the durable session mirror, taking
// precedence over Config.Session.FilePath.
func (b *Builder) WithSessionFile(path string) *Builder {
	b.sessionFile = path
	return b
}

// WithStores overrides the session store pair entirely. The first store is
// primary; an optional second acts as the fallback mirror. Intended for tests
// and embedded deployments without Redis.
func (b *Builder) WithStores(stores ...session.Store) *Builder {
	b.stores = stores
	return b
}

// WithHTTPClient overrides the underlying HTTP client.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithLogger supplies the structured logger. The default is a no-op logger.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink supplies the audit event consumer.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	if sink != nil {
		b.config.Audit.Enabled = true
	}
	return b
}

// WithMetricsEnabled toggles the in-process metrics system.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the request latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, assembles the session manager and
// transport, and performs the single synchronous session restore from
// storage. No other I/O happens before the first Client method call.
func (b *Builder) Build(ctx context.Context) (*Client, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	primary, fallback, err := b.resolveStores(cfg)
	if err != nil {
		return nil, err
	}

	metrics := NewMetrics(cfg.Metrics)
	audit := newAuditDispatcher(cfg.Audit, b.auditSink, b.logger)
	obs := &observer{metrics: metrics, audit: audit}

	manager := session.NewManager(primary, fallback, session.Config{
		TTL:     cfg.Session.TTL,
		Logger:  b.logger,
		OnEvent: obs.sessionEvent,
	})

	var limiter *rate.Limiter
	if cfg.RateLimit.Enabled {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
	}

	tr, err := transport.New(transport.Config{
		BaseURL:     cfg.HTTP.BaseURL,
		Locale:      cfg.HTTP.Locale,
		Timeout:     cfg.HTTP.RequestTimeout,
		TokenSource: manager.Token,
		// A 401 invalidates the whole session: persisted entries and
		// in-memory state both go, so the client reports unauthenticated
		// immediately.
		OnUnauthorized: manager.Clear,
		OnEvent:    obs.transportEvent,
		HTTPClient: b.httpClient,
		Limiter:    limiter,
		Logger:     b.logger,
	})
	if err != nil {
		audit.Close()
		return nil, err
	}

	client := &Client{
		config:    cfg,
		transport: tr,
		session:   manager,
		metrics:   metrics,
		audit:     audit,
		logger:    b.logger,
	}

	// Restore persisted state before the first request so TokenSource serves
	// the stored credential immediately. Store faults degrade to an
	// unauthenticated client, not a construction failure.
	if err := manager.Load(ctx); err != nil {
		b.logger.Warn().Err(err).Msg("session restore failed, starting unauthenticated")
	}

	// A restored token without a user record triggers exactly one automatic
	// profile fetch. A failed attempt is not retried.
	if manager.BeginHydration() {
		client.hydrate(ctx)
	}

	b.built = true

	return client, nil
}

func (b *Builder) resolveStores(cfg Config) (session.Store, session.Store, error) {
	if len(b.stores) > 0 {
		if len(b.stores) > 2 {
			return nil, nil, errors.New("at most two session stores are supported")
		}
		var fallback session.Store
		if len(b.stores) == 2 {
			fallback = b.stores[1]
		}
		return b.stores[0], fallback, nil
	}

	sessionFile := b.sessionFile
	if sessionFile == "" {
		sessionFile = cfg.Session.FilePath
	}

	if b.redis == nil {
		return nil, nil, errors.New("redis client required unless WithStores is used")
	}
	if sessionFile == "" {
		return nil, nil, errors.New("session file path required unless WithStores is used")
	}

	primary := session.NewRedisStore(b.redis, cfg.Session.RedisPrefix)
	fallback := session.NewFileStore(sessionFile)
	return primary, fallback, nil
}
