package ephemeral

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/notably-app/ephemeral/cache"
	"github.com/notably-app/ephemeral/internal/clock"
	"github.com/notably-app/ephemeral/internal/stores"
)

// Builder assembles an Engine. Configure it during initialization, call
// Build once, and share the resulting Engine across requests.
type Builder struct {
	config Config
	redis  *redis.Client
	logger *zap.Logger
	clk    clock.Clock
	reg    prometheus.Registerer

	built bool
}

// New returns a Builder preloaded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
		clk:    clock.System(),
	}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the remote store client. Required.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithLogger sets the logger. Default is a no-op logger.
func (b *Builder) WithLogger(log *zap.Logger) *Builder {
	b.logger = log
	return b
}

// WithClock sets the time source for budget rollovers, expiry checks, and
// quota day keys. Default is the wall clock.
func (b *Builder) WithClock(clk clock.Clock) *Builder {
	b.clk = clk
	return b
}

// WithMetricsRegisterer enables prometheus metrics on the cache client.
func (b *Builder) WithMetricsRegisterer(reg prometheus.Registerer) *Builder {
	b.reg = reg
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	log := b.logger
	if log == nil {
		log = zap.NewNop()
	}

	opts := []cache.Option{
		cache.WithLogger(log),
		cache.WithClock(b.clk),
	}
	if b.reg != nil {
		opts = append(opts, cache.WithRegisterer(b.reg))
	}

	c, err := cache.New(b.redis, b.config.Cache, opts...)
	if err != nil {
		return nil, err
	}

	b.built = true
	return &Engine{
		config:        b.config,
		cache:         c,
		verifications: stores.NewVerificationStore(c),
		resets:        stores.NewResetStore(c),
		log:           log,
		clk:           b.clk,
	}, nil
}
