package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/notably-app/ephemeral/internal/clock"
)

// msetExpireConcurrency bounds the EXPIRE fan-out after a bulk write.
const msetExpireConcurrency = 8

var errBudgetExhausted = errors.New("cache: daily request budget exhausted")

// Status classifies the outcome of a read. Unavailable covers budget
// exhaustion, an open breaker, and transport failures; callers treat it
// like a miss unless they need to tell an outage from a true absence.
type Status int

const (
	StatusHit Status = iota
	StatusMiss
	StatusUnavailable
)

// Found reports whether a value was returned.
func (s Status) Found() bool { return s == StatusHit }

// Stats is a point-in-time snapshot of budget and traffic counters.
type Stats struct {
	RequestsToday     int
	RemainingRequests int
	LimitReached      bool
	Hits              int64
	Misses            int64
	Unavailable       int64
}

// Client is the single point of contact with the remote store for
// ephemeral state. All methods are safe for concurrent use. No method
// returns an error: failures degrade to misses or false.
type Client struct {
	rdb *redis.Client
	cfg Config

	clk     clock.Clock
	log     *zap.Logger
	breaker *gobreaker.CircuitBreaker
	budget  *requestBudget

	hits        atomic.Int64
	misses      atomic.Int64
	unavailable atomic.Int64

	reg  prometheus.Registerer
	prom *promMetrics
}

// Option customizes a Client.
type Option func(*Client)

// WithLogger sets the logger. Default is a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithClock sets the time source. Default is the wall clock.
func WithClock(clk clock.Clock) Option {
	return func(c *Client) { c.clk = clk }
}

// WithRegisterer enables prometheus metrics on the given registerer.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Client) { c.reg = reg }
}

// New validates cfg and builds a client around rdb.
func New(rdb *redis.Client, cfg Config, opts ...Option) (*Client, error) {
	if rdb == nil {
		return nil, errors.New("cache: redis client required")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	c := &Client{
		rdb: rdb,
		cfg: cfg,
		clk: clock.System(),
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.budget = newRequestBudget(cfg.DailyRequestLimit, c.clk)
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "ephemeral-cache",
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn("cache breaker state change",
				zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	if c.reg != nil {
		c.prom = newPromMetrics(c.reg)
	}
	return c, nil
}

func (c *Client) key(key string) string {
	return c.cfg.KeyPrefix + ":" + key
}

// do runs one remote command under the budget gate, the breaker, and the
// per-command timeout. An open breaker refuses before a unit is spent.
func (c *Client) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if c.breaker.State() == gobreaker.StateOpen {
		return gobreaker.ErrOpenState
	}

	ok, firstRefusal := c.budget.take()
	if !ok {
		if firstRefusal {
			c.log.Warn("daily cache call budget exhausted, degrading to misses",
				zap.Int("limit", c.cfg.DailyRequestLimit))
		}
		if c.prom != nil {
			c.prom.budgetRefusals.Inc()
		}
		return errBudgetExhausted
	}
	if c.prom != nil {
		c.prom.requests.WithLabelValues(op).Inc()
	}

	cctx, cancel := context.WithTimeout(ctx, c.cfg.OpTimeout)
	defer cancel()

	_, err := c.breaker.Execute(func() (any, error) {
		return nil, fn(cctx)
	})
	return err
}

// fail records an unavailable outcome. Budget refusals are logged once
// per day at the transition, everything else per occurrence.
func (c *Client) fail(op string, err error) Status {
	c.unavailable.Inc()
	if c.prom != nil {
		c.prom.unavailable.Inc()
	}
	if !errors.Is(err, errBudgetExhausted) && !errors.Is(err, gobreaker.ErrOpenState) {
		c.log.Warn("cache call failed", zap.String("op", op), zap.Error(err))
	}
	return StatusUnavailable
}

func (c *Client) hit() Status {
	c.hits.Inc()
	if c.prom != nil {
		c.prom.hits.Inc()
	}
	return StatusHit
}

func (c *Client) miss() Status {
	c.misses.Inc()
	if c.prom != nil {
		c.prom.misses.Inc()
	}
	return StatusMiss
}

// Get returns the raw value stored under key, after envelope validation.
func (c *Client) Get(ctx context.Context, key string) ([]byte, Status) {
	var raw []byte
	found := false

	err := c.do(ctx, "get", func(ctx context.Context) error {
		b, err := c.rdb.Get(ctx, c.key(key)).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		raw = b
		found = true
		return nil
	})
	if err != nil {
		return nil, c.fail("get", err)
	}
	if !found {
		return nil, c.miss()
	}

	data, ok := c.decodeEntry(key, raw)
	if !ok {
		return nil, c.miss()
	}
	c.hit()
	return data, StatusHit
}

// GetJSON unmarshals the value stored under key into dest.
func (c *Client) GetJSON(ctx context.Context, key string, dest any) Status {
	data, st := c.Get(ctx, key)
	if st != StatusHit {
		return st
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.log.Warn("cache value failed to decode, treated as miss",
			zap.String("key", key), zap.Error(err))
		return StatusMiss
	}
	return StatusHit
}

// Set stores value under key. ttl <= 0 means no expiry at either level.
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	payload, err := c.encodeEntry(value, ttl)
	if err != nil {
		c.log.Warn("cache value failed to encode", zap.String("key", key), zap.Error(err))
		return false
	}

	if ttl < 0 {
		ttl = 0
	}
	err = c.do(ctx, "set", func(ctx context.Context) error {
		return c.rdb.Set(ctx, c.key(key), payload, ttl).Err()
	})
	if err != nil {
		c.fail("set", err)
		return false
	}
	return true
}

// Delete removes key. Deleting an absent key still reports success.
func (c *Client) Delete(ctx context.Context, key string) bool {
	err := c.do(ctx, "delete", func(ctx context.Context) error {
		return c.rdb.Del(ctx, c.key(key)).Err()
	})
	if err != nil {
		c.fail("delete", err)
		return false
	}
	return true
}

// Exists reports whether key is present in the store. The envelope is not
// inspected; a lazily-expired entry still counts until it is reclaimed.
func (c *Client) Exists(ctx context.Context, key string) (bool, Status) {
	var n int64
	err := c.do(ctx, "exists", func(ctx context.Context) error {
		res, err := c.rdb.Exists(ctx, c.key(key)).Result()
		if err != nil {
			return err
		}
		n = res
		return nil
	})
	if err != nil {
		return false, c.fail("exists", err)
	}
	if n == 0 {
		return false, c.miss()
	}
	return true, c.hit()
}

// MGet fetches several keys in one remote command. Absent, expired, and
// malformed entries are omitted from the result.
func (c *Client) MGet(ctx context.Context, keys []string) map[string][]byte {
	result := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return result
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}

	var vals []any
	err := c.do(ctx, "mget", func(ctx context.Context) error {
		res, err := c.rdb.MGet(ctx, full...).Result()
		if err != nil {
			return err
		}
		vals = res
		return nil
	})
	if err != nil {
		c.fail("mget", err)
		return result
	}

	for i, v := range vals {
		if v == nil {
			c.miss()
			continue
		}
		s, ok := v.(string)
		if !ok {
			c.miss()
			continue
		}
		data, ok := c.decodeEntry(keys[i], []byte(s))
		if !ok {
			c.miss()
			continue
		}
		c.hit()
		result[keys[i]] = data
	}
	return result
}

// MSet stores several values in one bulk write. The bulk command cannot
// carry a TTL, so when one is requested it is applied per key afterwards,
// concurrently. Keys whose EXPIRE is lost (budget, transport) still expire
// logically through the envelope.
func (c *Client) MSet(ctx context.Context, items map[string]any, ttl time.Duration) bool {
	if len(items) == 0 {
		return true
	}

	pairs := make([]any, 0, len(items)*2)
	keys := make([]string, 0, len(items))
	for k, v := range items {
		payload, err := c.encodeEntry(v, ttl)
		if err != nil {
			c.log.Warn("cache value failed to encode", zap.String("key", k), zap.Error(err))
			return false
		}
		pairs = append(pairs, c.key(k), payload)
		keys = append(keys, k)
	}

	err := c.do(ctx, "mset", func(ctx context.Context) error {
		return c.rdb.MSet(ctx, pairs...).Err()
	})
	if err != nil {
		c.fail("mset", err)
		return false
	}

	if ttl > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(msetExpireConcurrency)
		for _, k := range keys {
			k := k
			g.Go(func() error {
				c.Expire(gctx, k, ttl)
				return nil
			})
		}
		_ = g.Wait()
	}
	return true
}

// Increment atomically adds by to the integer counter under key and
// returns the new value. Counter keys hold bare integers, not envelopes,
// so the store's native INCRBY stays usable.
func (c *Client) Increment(ctx context.Context, key string, by int64) (int64, Status) {
	var val int64
	err := c.do(ctx, "increment", func(ctx context.Context) error {
		res, err := c.rdb.IncrBy(ctx, c.key(key), by).Result()
		if err != nil {
			return err
		}
		val = res
		return nil
	})
	if err != nil {
		return 0, c.fail("increment", err)
	}
	return val, c.hit()
}

// GetInt reads a bare integer counter. Absent keys read as a miss, which
// callers treat as zero.
func (c *Client) GetInt(ctx context.Context, key string) (int64, Status) {
	var raw string
	found := false

	err := c.do(ctx, "get", func(ctx context.Context) error {
		s, err := c.rdb.Get(ctx, c.key(key)).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		raw = s
		found = true
		return nil
	})
	if err != nil {
		return 0, c.fail("get", err)
	}
	if !found {
		return 0, c.miss()
	}

	val, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.log.Warn("cache counter failed to parse, treated as miss",
			zap.String("key", key), zap.Error(err))
		return 0, c.miss()
	}
	return val, c.hit()
}

// Expire sets a store-side TTL on key.
func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) bool {
	var set bool
	err := c.do(ctx, "expire", func(ctx context.Context) error {
		res, err := c.rdb.Expire(ctx, c.key(key), ttl).Result()
		if err != nil {
			return err
		}
		set = res
		return nil
	})
	if err != nil {
		c.fail("expire", err)
		return false
	}
	return set
}

// TTL returns the store-side time to live for key. A present key without
// an expiry reports zero with StatusHit.
func (c *Client) TTL(ctx context.Context, key string) (time.Duration, Status) {
	var d time.Duration
	err := c.do(ctx, "ttl", func(ctx context.Context) error {
		res, err := c.rdb.TTL(ctx, c.key(key)).Result()
		if err != nil {
			return err
		}
		d = res
		return nil
	})
	if err != nil {
		return 0, c.fail("ttl", err)
	}
	// go-redis surfaces the protocol's sentinels unscaled: -2 for a
	// missing key, -1 for a key without an expiry.
	if d == time.Duration(-2) {
		return 0, c.miss()
	}
	if d < 0 {
		return 0, c.hit()
	}
	return d, c.hit()
}

// HealthCheck is a liveness round trip. It is exempt from the budget so
// the probe stays observable during exhaustion.
func (c *Client) HealthCheck(ctx context.Context) bool {
	cctx, cancel := context.WithTimeout(ctx, c.cfg.OpTimeout)
	defer cancel()

	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.rdb.Ping(cctx).Err()
	})
	if err != nil {
		c.log.Warn("cache health check failed", zap.Error(err))
		return false
	}
	return true
}

// Stats snapshots the daily budget and traffic counters.
func (c *Client) Stats() Stats {
	count, remaining, limitReached := c.budget.snapshot()
	return Stats{
		RequestsToday:     count,
		RemainingRequests: remaining,
		LimitReached:      limitReached,
		Hits:              c.hits.Load(),
		Misses:            c.misses.Load(),
		Unavailable:       c.unavailable.Load(),
	}
}
