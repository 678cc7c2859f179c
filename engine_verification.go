package ephemeral

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/notably-app/ephemeral/cache"
	"github.com/notably-app/ephemeral/internal"
	"github.com/notably-app/ephemeral/internal/stores"
)

// CreateEmailVerification issues a fresh 6-digit code for email,
// overwriting any prior record, and stamps the resend-throttle marker.
// The code is returned to the caller for delivery; it is never logged.
func (e *Engine) CreateEmailVerification(ctx context.Context, email string) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}
	email = stores.NormalizeEmail(email)
	if email == "" {
		return "", ErrEmailRequired
	}

	code, err := internal.NewVerificationCode()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
	}

	now := e.clk.Now()
	rec := &stores.VerificationRecord{
		Code:      code,
		Email:     email,
		ExpiresAt: now.Add(e.config.Verification.CodeTTL).UnixMilli(),
	}
	if !e.verifications.Save(ctx, email, rec, e.config.Verification.CodeTTL) {
		return "", ErrVerificationUnavailable
	}

	// The marker only throttles resends; losing it costs one extra send.
	if !e.verifications.MarkSent(ctx, email, now, e.config.Verification.ResendCooldown) {
		e.log.Warn("resend throttle marker not stored", zap.String("email", email))
	}
	return code, nil
}

// VerifyEmailCode checks code against the outstanding record for email.
// A match consumes the record: the code is single-use even when
// resubmitted before expiry. A mismatch burns one attempt without
// extending the code's validity. Reaching the attempt ceiling deletes the
// record, so even the correct code is refused afterwards.
func (e *Engine) VerifyEmailCode(ctx context.Context, email, code string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	email = stores.NormalizeEmail(email)
	if email == "" {
		return ErrEmailRequired
	}
	if code == "" {
		return ErrVerificationInvalid
	}

	rec, st := e.verifications.Load(ctx, email)
	switch st {
	case cache.StatusUnavailable:
		return ErrVerificationUnavailable
	case cache.StatusMiss:
		return ErrVerificationInvalid
	}

	now := e.clk.Now()
	if rec.Expired(now) {
		e.verifications.Delete(ctx, email)
		return ErrVerificationExpired
	}
	if rec.Attempts >= e.config.Verification.CodeMaxAttempts {
		e.verifications.Delete(ctx, email)
		return ErrVerificationLocked
	}

	if subtle.ConstantTimeCompare([]byte(rec.Code), []byte(code)) != 1 {
		rec.Attempts++
		// Re-persist with the remaining lifetime only; a failed attempt
		// must not reset the expiry clock. The read-modify-write here can
		// under-count under concurrent attempts, which weakens the
		// lockout by at most the race width.
		if remaining := rec.Remaining(now); remaining > 0 {
			e.verifications.Save(ctx, email, rec, remaining)
		}
		return ErrVerificationInvalid
	}

	if !e.verifications.Delete(ctx, email) {
		// The record will still die by TTL; single-use is weakened only
		// until then.
		e.log.Warn("verification record not deleted after match", zap.String("email", email))
	}
	return nil
}

// ResendVerificationCode re-sends the outstanding code for email. Within
// the cooldown it returns the remaining wait instead. An unexpired code
// is returned as-is; a new one is minted only when none is live.
func (e *Engine) ResendVerificationCode(ctx context.Context, email string) (ResendResult, error) {
	if !e.ready() {
		return ResendResult{}, ErrEngineNotReady
	}
	email = stores.NormalizeEmail(email)
	if email == "" {
		return ResendResult{}, ErrEmailRequired
	}

	now := e.clk.Now()
	cooldown := e.config.Verification.ResendCooldown

	if last, st := e.verifications.LastSent(ctx, email); st == cache.StatusHit {
		if elapsed := now.Sub(last); elapsed < cooldown {
			return ResendResult{WaitSeconds: ceilSeconds(cooldown - elapsed)}, nil
		}
	}

	rec, st := e.verifications.Load(ctx, email)
	if st == cache.StatusUnavailable {
		return ResendResult{Unavailable: true}, nil
	}
	if st == cache.StatusHit && !rec.Expired(now) {
		e.verifications.MarkSent(ctx, email, now, cooldown)
		return ResendResult{Issued: true, Code: rec.Code}, nil
	}

	code, err := e.CreateEmailVerification(ctx, email)
	if err != nil {
		if errors.Is(err, ErrVerificationUnavailable) {
			return ResendResult{Unavailable: true}, nil
		}
		return ResendResult{}, err
	}
	return ResendResult{Issued: true, Code: code}, nil
}

// GetVerificationStatus is the read-only view behind the resend
// affordance. It never mutates state.
func (e *Engine) GetVerificationStatus(ctx context.Context, email string) (VerificationStatus, error) {
	if !e.ready() {
		return VerificationStatus{}, ErrEngineNotReady
	}
	email = stores.NormalizeEmail(email)
	if email == "" {
		return VerificationStatus{}, ErrEmailRequired
	}

	now := e.clk.Now()
	status := VerificationStatus{CanResend: true}

	if rec, st := e.verifications.Load(ctx, email); st == cache.StatusHit && !rec.Expired(now) {
		status.HasVerification = true
		status.ExpiresIn = rec.Remaining(now)
	}
	if last, st := e.verifications.LastSent(ctx, email); st == cache.StatusHit {
		if now.Sub(last) < e.config.Verification.ResendCooldown {
			status.CanResend = false
		}
	}
	return status, nil
}

// ceilSeconds rounds a duration up to whole seconds so a caller told to
// wait never retries a moment early.
func ceilSeconds(d time.Duration) int {
	s := int(d / time.Second)
	if d%time.Second != 0 {
		s++
	}
	return s
}
