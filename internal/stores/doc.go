// Package stores owns the verification and reset records kept in the
// shared remote store. All access goes through the budgeted cache client;
// nothing in this package issues a network call of its own.
package stores
