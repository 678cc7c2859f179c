// Package ephemeral is the ephemeral-state core of the Notably note-taking
// service: a budget-constrained remote-cache client, a one-time
// verification and reset-token lifecycle built on it, and a per-identity
// request-quota enforcer built on the same primitive.
//
// The package is consumed as a library. Route handlers and the AI proxy
// construct one Engine at startup and call into it per request:
//
//	engine, err := ephemeral.New().
//		WithRedis(rdb).
//		WithConfig(ephemeral.DefaultConfig()).
//		WithLogger(log).
//		Build()
//
// Losing the backing store degrades verification availability and rate
// limiting but never fails a request: every infrastructure failure is
// converted to a cache miss or a fail-open grant at the cache boundary.
package ephemeral
