package ephemeral

import (
	"context"

	"go.uber.org/zap"

	"github.com/notably-app/ephemeral/cache"
	"github.com/notably-app/ephemeral/internal/clock"
	"github.com/notably-app/ephemeral/internal/stores"
)

// Engine is the entry point for the verification, reset, and quota flows.
// It is safe for concurrent use. Construct it with New().Build().
type Engine struct {
	config        Config
	cache         *cache.Client
	verifications *stores.VerificationStore
	resets        *stores.ResetStore
	log           *zap.Logger
	clk           clock.Clock
}

// Cache exposes the budgeted cache client for the collaborators' generic
// caching needs. Keys are shared store-wide; callers must namespace.
func (e *Engine) Cache() *cache.Client {
	if e == nil {
		return nil
	}
	return e.cache
}

// HealthCheck reports whether the backing store answers a round trip.
func (e *Engine) HealthCheck(ctx context.Context) bool {
	if e == nil || e.cache == nil {
		return false
	}
	return e.cache.HealthCheck(ctx)
}

// CacheStats snapshots the daily call budget and traffic counters.
func (e *Engine) CacheStats() cache.Stats {
	if e == nil || e.cache == nil {
		return cache.Stats{}
	}
	return e.cache.Stats()
}

func (e *Engine) ready() bool {
	return e != nil && e.cache != nil && e.verifications != nil && e.resets != nil
}
