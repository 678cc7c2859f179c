package cache

import (
	"errors"
	"time"
)

// Config controls key namespacing, the daily call budget, and the
// resilience envelope around every remote command.
type Config struct {
	// KeyPrefix namespaces every key written by this client. The store is
	// shared by all features and process instances; no component owns it.
	KeyPrefix string

	// DailyRequestLimit caps remote commands per calendar day. The counter
	// resets at wall-clock midnight, not on a 24h timer.
	DailyRequestLimit int

	// OpTimeout bounds every remote command. A timed-out command is treated
	// the same as any other transport failure.
	OpTimeout time.Duration

	// BreakerThreshold is the number of consecutive transport failures that
	// opens the circuit breaker.
	BreakerThreshold uint32

	// BreakerCooldown is how long the breaker stays open before probing.
	BreakerCooldown time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		KeyPrefix:         "eph",
		DailyRequestLimit: 10000,
		OpTimeout:         2 * time.Second,
		BreakerThreshold:  5,
		BreakerCooldown:   30 * time.Second,
	}
}

func (c Config) validate() error {
	if c.KeyPrefix == "" {
		return errors.New("cache: key prefix required")
	}
	if c.DailyRequestLimit <= 0 {
		return errors.New("cache: daily request limit must be positive")
	}
	if c.OpTimeout <= 0 {
		return errors.New("cache: op timeout must be positive")
	}
	if c.BreakerThreshold == 0 {
		return errors.New("cache: breaker threshold must be positive")
	}
	if c.BreakerCooldown <= 0 {
		return errors.New("cache: breaker cooldown must be positive")
	}
	return nil
}
