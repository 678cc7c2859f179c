package ephemeral

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestResetTokenConsumeOnce(t *testing.T) {
	_, engine, _ := newTestEngine(t, DefaultConfig())
	ctx := context.Background()

	token, err := engine.CreatePasswordReset(ctx, "a@b.com", "u1")
	if err != nil {
		t.Fatalf("CreatePasswordReset failed: %v", err)
	}
	if len(token) != 32 {
		t.Fatalf("token length = %d, want 32", len(token))
	}

	// The non-destructive check can run any number of times.
	for i := 0; i < 2; i++ {
		lookup := engine.VerifyResetToken(ctx, token)
		if !lookup.Valid || lookup.Email != "a@b.com" || lookup.UserID != "u1" {
			t.Fatalf("VerifyResetToken = %+v", lookup)
		}
	}

	lookup := engine.ConsumeResetToken(ctx, token)
	if !lookup.Valid || lookup.Email != "a@b.com" || lookup.UserID != "u1" {
		t.Fatalf("first consume = %+v", lookup)
	}
	if lookup = engine.ConsumeResetToken(ctx, token); lookup.Valid {
		t.Fatalf("second consume = %+v, want invalid", lookup)
	}
}

func TestPendingMarkerBlocksSecondIssue(t *testing.T) {
	_, engine, _ := newTestEngine(t, DefaultConfig())
	ctx := context.Background()

	token, err := engine.CreatePasswordReset(ctx, "a@b.com", "u1")
	if err != nil {
		t.Fatalf("CreatePasswordReset failed: %v", err)
	}
	if !engine.HasPendingReset(ctx, "a@b.com") {
		t.Fatalf("HasPendingReset after issue = false")
	}

	if _, err := engine.CreatePasswordReset(ctx, "a@b.com", "u1"); !errors.Is(err, ErrResetPending) {
		t.Fatalf("second issue = %v, want ErrResetPending", err)
	}

	// Consuming releases the marker and a new token may be issued.
	if lookup := engine.ConsumeResetToken(ctx, token); !lookup.Valid {
		t.Fatalf("consume = %+v", lookup)
	}
	if engine.HasPendingReset(ctx, "a@b.com") {
		t.Fatalf("HasPendingReset after consume = true")
	}
	if _, err := engine.CreatePasswordReset(ctx, "a@b.com", "u1"); err != nil {
		t.Fatalf("re-issue after consume failed: %v", err)
	}
}

func TestResetTokenExpiry(t *testing.T) {
	mr, engine, clk := newTestEngine(t, DefaultConfig())
	ctx := context.Background()

	token, err := engine.CreatePasswordReset(ctx, "a@b.com", "u1")
	if err != nil {
		t.Fatalf("CreatePasswordReset failed: %v", err)
	}

	clk.Advance(time.Hour + time.Second)
	mr.FastForward(time.Hour + time.Second)

	if lookup := engine.VerifyResetToken(ctx, token); lookup.Valid {
		t.Fatalf("expired token = %+v, want invalid", lookup)
	}
	// The pending marker shares the token's TTL, so issuing reopens.
	if _, err := engine.CreatePasswordReset(ctx, "a@b.com", "u1"); err != nil {
		t.Fatalf("re-issue after expiry failed: %v", err)
	}
}

func TestResetUnknownToken(t *testing.T) {
	_, engine, _ := newTestEngine(t, DefaultConfig())
	ctx := context.Background()

	if lookup := engine.VerifyResetToken(ctx, "nope"); lookup.Valid || lookup.Unavailable {
		t.Fatalf("unknown token = %+v", lookup)
	}
	if lookup := engine.VerifyResetToken(ctx, ""); lookup.Valid {
		t.Fatalf("empty token = %+v", lookup)
	}
}

func TestResetUnavailableStore(t *testing.T) {
	mr, engine, _ := newTestEngine(t, DefaultConfig())
	ctx := context.Background()
	mr.Close()

	if _, err := engine.CreatePasswordReset(ctx, "a@b.com", "u1"); !errors.Is(err, ErrResetUnavailable) {
		t.Fatalf("issue on dead store = %v, want ErrResetUnavailable", err)
	}
	lookup := engine.VerifyResetToken(ctx, "sometokensometokensometokensomet")
	if lookup.Valid || !lookup.Unavailable {
		t.Fatalf("verify on dead store = %+v, want unavailable", lookup)
	}
}

func TestResetInputValidation(t *testing.T) {
	_, engine, _ := newTestEngine(t, DefaultConfig())
	ctx := context.Background()

	if _, err := engine.CreatePasswordReset(ctx, "", "u1"); !errors.Is(err, ErrEmailRequired) {
		t.Fatalf("empty email = %v, want ErrEmailRequired", err)
	}
	if _, err := engine.CreatePasswordReset(ctx, "a@b.com", ""); !errors.Is(err, ErrUserIDRequired) {
		t.Fatalf("empty user id = %v, want ErrUserIDRequired", err)
	}
}
