package stores

import (
	"context"
	"time"

	"github.com/notably-app/ephemeral/cache"
)

const (
	resetKeyPrefix   = "prt"
	pendingKeyPrefix = "prp"
)

// ResetRecord is a password-reset bearer token. It is keyed by the token
// itself so possession of the token is the capability; the companion
// pending marker is keyed by email and only blocks issuing a second token
// while one is outstanding.
type ResetRecord struct {
	Token     string `json:"token"`
	Email     string `json:"email"`
	UserID    string `json:"userId"`
	ExpiresAt int64  `json:"expiresAt"`
	Attempts  int    `json:"attempts"`
}

// Expired reports whether the record is past its expiry at the given time.
func (r *ResetRecord) Expired(now time.Time) bool {
	return r.ExpiresAt != 0 && now.UnixMilli() > r.ExpiresAt
}

// pendingMarker notes which token is outstanding for an email.
type pendingMarker struct {
	Token     string `json:"token"`
	CreatedAt int64  `json:"createdAt"`
}

// ResetStore keeps reset records keyed by token and pending markers keyed
// by email.
type ResetStore struct {
	cache *cache.Client
}

func NewResetStore(c *cache.Client) *ResetStore {
	return &ResetStore{cache: c}
}

func (s *ResetStore) key(token string) string {
	return resetKeyPrefix + ":" + token
}

func (s *ResetStore) pendingKey(email string) string {
	return pendingKeyPrefix + ":" + NormalizeEmail(email)
}

// Save stores the record under its token with the given store-side TTL.
func (s *ResetStore) Save(ctx context.Context, rec *ResetRecord, ttl time.Duration) bool {
	return s.cache.Set(ctx, s.key(rec.Token), rec, ttl)
}

// Load returns the record for token, or the miss/unavailable status.
func (s *ResetStore) Load(ctx context.Context, token string) (*ResetRecord, cache.Status) {
	var rec ResetRecord
	st := s.cache.GetJSON(ctx, s.key(token), &rec)
	if st != cache.StatusHit {
		return nil, st
	}
	return &rec, cache.StatusHit
}

// Delete removes the record for token.
func (s *ResetStore) Delete(ctx context.Context, token string) bool {
	return s.cache.Delete(ctx, s.key(token))
}

// MarkPending records that a token is outstanding for email.
func (s *ResetStore) MarkPending(ctx context.Context, email, token string, at time.Time, ttl time.Duration) bool {
	m := &pendingMarker{Token: token, CreatedAt: at.UnixMilli()}
	return s.cache.Set(ctx, s.pendingKey(email), m, ttl)
}

// ClearPending removes the pending marker for email.
func (s *ResetStore) ClearPending(ctx context.Context, email string) bool {
	return s.cache.Delete(ctx, s.pendingKey(email))
}

// HasPending reports whether a reset is outstanding for email. An
// unavailable store reads as no pending reset; issuing is fail-open.
func (s *ResetStore) HasPending(ctx context.Context, email string) (bool, cache.Status) {
	return s.cache.Exists(ctx, s.pendingKey(email))
}
