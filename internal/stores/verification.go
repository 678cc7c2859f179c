package stores

import (
	"context"
	"strings"
	"time"

	"github.com/notably-app/ephemeral/cache"
)

const (
	verificationKeyPrefix = "evc"
	throttleKeyPrefix     = "evt"
)

// VerificationRecord is the one-time email verification code plus its
// attempt counter. ExpiresAt is unix milliseconds and is authoritative:
// the store-side TTL is a reclamation aid, not the source of truth.
type VerificationRecord struct {
	Code      string `json:"code"`
	Email     string `json:"email"`
	ExpiresAt int64  `json:"expiresAt"`
	Attempts  int    `json:"attempts"`
}

// Expired reports whether the record is past its expiry at the given time.
func (r *VerificationRecord) Expired(now time.Time) bool {
	return r.ExpiresAt != 0 && now.UnixMilli() > r.ExpiresAt
}

// Remaining returns the record's remaining lifetime at the given time.
func (r *VerificationRecord) Remaining(now time.Time) time.Duration {
	return time.UnixMilli(r.ExpiresAt).Sub(now)
}

// throttleMarker records when a code was last sent for an email.
type throttleMarker struct {
	SentAt int64 `json:"sentAt"`
}

// VerificationStore keeps verification records keyed by email, with a
// companion resend-throttle marker per email.
type VerificationStore struct {
	cache *cache.Client
}

func NewVerificationStore(c *cache.Client) *VerificationStore {
	return &VerificationStore{cache: c}
}

func (s *VerificationStore) key(email string) string {
	return verificationKeyPrefix + ":" + NormalizeEmail(email)
}

func (s *VerificationStore) throttleKey(email string) string {
	return throttleKeyPrefix + ":" + NormalizeEmail(email)
}

// Save overwrites the record for email with the given store-side TTL.
func (s *VerificationStore) Save(ctx context.Context, email string, rec *VerificationRecord, ttl time.Duration) bool {
	return s.cache.Set(ctx, s.key(email), rec, ttl)
}

// Load returns the record for email, or the miss/unavailable status.
func (s *VerificationStore) Load(ctx context.Context, email string) (*VerificationRecord, cache.Status) {
	var rec VerificationRecord
	st := s.cache.GetJSON(ctx, s.key(email), &rec)
	if st != cache.StatusHit {
		return nil, st
	}
	return &rec, cache.StatusHit
}

// Delete removes the record for email.
func (s *VerificationStore) Delete(ctx context.Context, email string) bool {
	return s.cache.Delete(ctx, s.key(email))
}

// MarkSent stamps the resend-throttle marker for email.
func (s *VerificationStore) MarkSent(ctx context.Context, email string, at time.Time, ttl time.Duration) bool {
	return s.cache.Set(ctx, s.throttleKey(email), &throttleMarker{SentAt: at.UnixMilli()}, ttl)
}

// LastSent returns when a code was last sent for email, if known.
func (s *VerificationStore) LastSent(ctx context.Context, email string) (time.Time, cache.Status) {
	var m throttleMarker
	st := s.cache.GetJSON(ctx, s.throttleKey(email), &m)
	if st != cache.StatusHit {
		return time.Time{}, st
	}
	return time.UnixMilli(m.SentAt), cache.StatusHit
}

// NormalizeEmail case-folds and trims an email so the same address always
// maps to the same keys.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
