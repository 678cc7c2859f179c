package ephemeral

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/notably-app/ephemeral/cache"
	"github.com/notably-app/ephemeral/internal"
	"github.com/notably-app/ephemeral/internal/stores"
)

// CreatePasswordReset issues a bearer reset token for email/userID. The
// record is keyed by the token itself; a pending marker keyed by email
// blocks a second issuance while one is outstanding. If the pending check
// cannot reach the store, issuing proceeds: refusing a reset because the
// rate-limit aid is dark would fail closed.
func (e *Engine) CreatePasswordReset(ctx context.Context, email, userID string) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}
	email = stores.NormalizeEmail(email)
	if email == "" {
		return "", ErrEmailRequired
	}
	if userID == "" {
		return "", ErrUserIDRequired
	}

	if pending, st := e.resets.HasPending(ctx, email); st == cache.StatusHit && pending {
		return "", ErrResetPending
	}

	token, err := internal.NewResetToken(e.config.Verification.ResetTokenLength)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrResetUnavailable, err)
	}

	now := e.clk.Now()
	ttl := e.config.Verification.ResetTTL
	rec := &stores.ResetRecord{
		Token:     token,
		Email:     email,
		UserID:    userID,
		ExpiresAt: now.Add(ttl).UnixMilli(),
	}
	if !e.resets.Save(ctx, rec, ttl) {
		return "", ErrResetUnavailable
	}
	if !e.resets.MarkPending(ctx, email, token, now, ttl) {
		e.log.Warn("pending reset marker not stored", zap.String("email", email))
	}
	return token, nil
}

// VerifyResetToken is the non-destructive check: the token stays usable.
// Its only side effect is reclaiming a record found expired.
func (e *Engine) VerifyResetToken(ctx context.Context, token string) ResetLookup {
	if !e.ready() || token == "" {
		return ResetLookup{}
	}

	rec, st := e.resets.Load(ctx, token)
	switch st {
	case cache.StatusUnavailable:
		return ResetLookup{Unavailable: true}
	case cache.StatusMiss:
		return ResetLookup{}
	}

	if rec.Expired(e.clk.Now()) {
		e.resets.Delete(ctx, token)
		return ResetLookup{}
	}
	return ResetLookup{Valid: true, Email: rec.Email, UserID: rec.UserID}
}

// ConsumeResetToken validates token and, on success only, deletes the
// record and then the pending marker. The record delete is the
// consumption point and must succeed; the marker delete is best-effort
// because the marker is a rate-limiting aid, not a capability.
func (e *Engine) ConsumeResetToken(ctx context.Context, token string) ResetLookup {
	lookup := e.VerifyResetToken(ctx, token)
	if !lookup.Valid {
		return lookup
	}

	if !e.resets.Delete(ctx, token) {
		// Not consumed: reporting success here could let the token be
		// spent twice.
		e.log.Warn("reset token delete failed, consume refused")
		return ResetLookup{Unavailable: true}
	}
	if !e.resets.ClearPending(ctx, lookup.Email) {
		e.log.Warn("pending reset marker not cleared", zap.String("email", lookup.Email))
	}
	return lookup
}

// HasPendingReset reports whether a reset token is outstanding for email.
// An unreachable store reads as no pending reset.
func (e *Engine) HasPendingReset(ctx context.Context, email string) bool {
	if !e.ready() {
		return false
	}
	email = stores.NormalizeEmail(email)
	if email == "" {
		return false
	}
	pending, st := e.resets.HasPending(ctx, email)
	return st == cache.StatusHit && pending
}
