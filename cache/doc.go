// Package cache implements a budget-constrained client for the shared
// remote key-value store.
//
// Every remote command consumes one unit of a daily call budget. When the
// budget is exhausted, or the transport fails, operations degrade to cache
// misses instead of returning errors: callers proceed without the cache.
// Values are wrapped in an envelope carrying an application-level expiry
// that is validated lazily on every read, independent of store-side TTLs.
package cache
