package authkit

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/parceldesk/authkit/httpapi"
	"github.com/parceldesk/authkit/tokenstore"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Builder assembles a [Manager]. Construction is allocation-only until
// Build, which wires the stores, rehydrates persisted state, and starts the
// cross-session signal watcher.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	http   *http.Client
	log    zerolog.Logger
	logSet bool

	built bool
}

// New starts a [Builder] with defaults.
func New() *Builder {
	return &Builder{config: defaultConfig()}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithAuthBaseURL sets the auth backend base URL.
func (b *Builder) WithAuthBaseURL(baseURL string) *Builder {
	b.config.Service.AuthBaseURL = baseURL
	return b
}

// WithTenant sets the tenant every auth request is scoped to.
func (b *Builder) WithTenant(tenantID string) *Builder {
	b.config.Service.TenantID = tenantID
	return b
}

// WithRedis injects the Redis client backing the durable token store, the
// state snapshot, and the signal channel.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithHTTPClient replaces the transport used for auth calls.
func (b *Builder) WithHTTPClient(h *http.Client) *Builder {
	b.http = h
	return b
}

// WithLogger sets the logger. Defaults to a no-op logger.
func (b *Builder) WithLogger(log zerolog.Logger) *Builder {
	b.log = log
	b.logSet = true
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, wires every component, rehydrates the
// persisted state subset, and starts the signal watcher. A Builder is
// single-use.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	b.built = true

	cfg := cloneConfig(b.config)
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := b.log
	if !b.logSet {
		log = zerolog.Nop()
	}

	httpClient := b.http
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTP.Timeout}
	}

	m := &Manager{
		cfg:       cfg,
		log:       log,
		metrics:   NewMetrics(cfg.Metrics),
		tokens:    tokenstore.NewDual(b.redis, cfg.Redis.Prefix, cfg.Session.RefreshTokenTTL, cfg.Redis.SignalChannel),
		snapshots: newSnapshotStore(b.redis, cfg.Redis.Prefix, cfg.Session.RefreshTokenTTL),
		state:     defaultState(time.Now()),
	}

	m.api = httpapi.New(httpapi.ServiceAuth, cfg.Service.AuthBaseURL,
		httpapi.WithHTTPClient(httpClient),
		httpapi.WithTokenSource(m.tokenSource()),
		httpapi.WithRefresher(transportRefresher{m}),
		httpapi.WithTenant(cfg.Service.TenantID),
		httpapi.WithLogger(log),
	)

	// Rehydrate the persisted non-secret subset before first use. Best
	// effort: a cold cache just means a default state.
	rehydrateCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.BackgroundTimeout)
	defer cancel()
	if snap, ok, err := m.snapshots.load(rehydrateCtx); err != nil {
		log.Debug().Err(err).Msg("state rehydration failed")
	} else if ok {
		m.state = mergeSnapshot(m.state, snap)
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())
	m.stopWatch = stopWatch
	go m.watchSignals(watchCtx)

	return m, nil
}
