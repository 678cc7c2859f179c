package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/notably-app/ephemeral/internal/clock"
)

func newTestClient(t *testing.T, limit int) (*miniredis.Miniredis, *Client, *clock.Mock) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	clk := clock.NewMock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))

	cfg := DefaultConfig()
	cfg.DailyRequestLimit = limit

	c, err := New(rdb, cfg, WithClock(clk))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return mr, c, clk
}

type note struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func TestSetGetRoundTrip(t *testing.T) {
	_, c, _ := newTestClient(t, 100)
	ctx := context.Background()

	if !c.Set(ctx, "note:1", note{Title: "a", Body: "b"}, time.Minute) {
		t.Fatalf("Set failed")
	}

	var got note
	if st := c.GetJSON(ctx, "note:1", &got); st != StatusHit {
		t.Fatalf("GetJSON status = %v, want hit", st)
	}
	if got.Title != "a" || got.Body != "b" {
		t.Fatalf("GetJSON = %+v", got)
	}
}

func TestGetMissingKey(t *testing.T) {
	_, c, _ := newTestClient(t, 100)

	if _, st := c.Get(context.Background(), "absent"); st != StatusMiss {
		t.Fatalf("Get status = %v, want miss", st)
	}
}

func TestStoreTTLExpiry(t *testing.T) {
	mr, c, clk := newTestClient(t, 100)
	ctx := context.Background()

	if !c.Set(ctx, "short", "v", time.Second) {
		t.Fatalf("Set failed")
	}
	mr.FastForward(2 * time.Second)
	clk.Advance(2 * time.Second)

	if _, st := c.Get(ctx, "short"); st != StatusMiss {
		t.Fatalf("Get after ttl = %v, want miss", st)
	}
}

func TestLazyEnvelopeExpiry(t *testing.T) {
	mr, c, clk := newTestClient(t, 100)
	ctx := context.Background()

	// Plant an envelope with an expiry but no store-side TTL, the state a
	// bulk write leaves behind when its EXPIRE fan-out is lost.
	now := clk.Now()
	raw, err := json.Marshal(entry{
		Data:      json.RawMessage(`"v"`),
		CreatedAt: now.UnixMilli(),
		ExpiresAt: now.Add(time.Second).UnixMilli(),
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	if err := mr.Set("eph:orphan", string(raw)); err != nil {
		t.Fatalf("plant key: %v", err)
	}

	clk.Advance(2 * time.Second)
	if _, st := c.Get(ctx, "orphan"); st != StatusMiss {
		t.Fatalf("Get past envelope expiry = %v, want miss", st)
	}

	// The expired key is reclaimed in the background.
	deadline := time.Now().Add(2 * time.Second)
	for mr.Exists("eph:orphan") {
		if time.Now().After(deadline) {
			t.Fatalf("expired key was not reclaimed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCorruptValueReadsAsMissAndIsKept(t *testing.T) {
	mr, c, _ := newTestClient(t, 100)

	if err := mr.Set("eph:corrupt", "not json"); err != nil {
		t.Fatalf("plant key: %v", err)
	}
	if _, st := c.Get(context.Background(), "corrupt"); st != StatusMiss {
		t.Fatalf("Get corrupt = %v, want miss", st)
	}
	time.Sleep(50 * time.Millisecond)
	if !mr.Exists("eph:corrupt") {
		t.Fatalf("corrupt key must not be reclaimed")
	}
}

func TestMSetAppliesTTLPerKey(t *testing.T) {
	mr, c, clk := newTestClient(t, 100)
	ctx := context.Background()

	items := map[string]any{"a": 1, "b": 2, "c": 3}
	if !c.MSet(ctx, items, 5*time.Second) {
		t.Fatalf("MSet failed")
	}

	for k := range items {
		if ttl := mr.TTL("eph:" + k); ttl <= 0 {
			t.Fatalf("key %s ttl = %v, want positive", k, ttl)
		}
	}

	got := c.MGet(ctx, []string{"a", "b", "c", "missing"})
	if len(got) != 3 {
		t.Fatalf("MGet returned %d values, want 3", len(got))
	}

	mr.FastForward(6 * time.Second)
	clk.Advance(6 * time.Second)
	if got := c.MGet(ctx, []string{"a", "b", "c"}); len(got) != 0 {
		t.Fatalf("MGet after ttl returned %d values, want 0", len(got))
	}
}

func TestIncrementAndGetInt(t *testing.T) {
	_, c, _ := newTestClient(t, 100)
	ctx := context.Background()

	if v, st := c.Increment(ctx, "ctr", 1); st != StatusHit || v != 1 {
		t.Fatalf("Increment = %d/%v, want 1/hit", v, st)
	}
	if v, st := c.Increment(ctx, "ctr", 2); st != StatusHit || v != 3 {
		t.Fatalf("Increment = %d/%v, want 3/hit", v, st)
	}
	if v, st := c.GetInt(ctx, "ctr"); st != StatusHit || v != 3 {
		t.Fatalf("GetInt = %d/%v, want 3/hit", v, st)
	}
	if v, st := c.GetInt(ctx, "nope"); st != StatusMiss || v != 0 {
		t.Fatalf("GetInt absent = %d/%v, want 0/miss", v, st)
	}
}

func TestExistsAndDelete(t *testing.T) {
	_, c, _ := newTestClient(t, 100)
	ctx := context.Background()

	if ok, _ := c.Exists(ctx, "k"); ok {
		t.Fatalf("Exists before set = true")
	}
	c.Set(ctx, "k", "v", 0)
	if ok, st := c.Exists(ctx, "k"); !ok || st != StatusHit {
		t.Fatalf("Exists after set = %v/%v", ok, st)
	}
	if !c.Delete(ctx, "k") {
		t.Fatalf("Delete failed")
	}
	if ok, _ := c.Exists(ctx, "k"); ok {
		t.Fatalf("Exists after delete = true")
	}
}

func TestTTLReporting(t *testing.T) {
	_, c, _ := newTestClient(t, 100)
	ctx := context.Background()

	c.Set(ctx, "timed", "v", time.Minute)
	if d, st := c.TTL(ctx, "timed"); st != StatusHit || d <= 0 {
		t.Fatalf("TTL timed = %v/%v", d, st)
	}

	c.Set(ctx, "forever", "v", 0)
	if d, st := c.TTL(ctx, "forever"); st != StatusHit || d != 0 {
		t.Fatalf("TTL forever = %v/%v, want 0/hit", d, st)
	}

	if _, st := c.TTL(ctx, "absent"); st != StatusMiss {
		t.Fatalf("TTL absent status = %v, want miss", st)
	}

	if !c.Expire(ctx, "forever", time.Minute) {
		t.Fatalf("Expire failed")
	}
	if d, st := c.TTL(ctx, "forever"); st != StatusHit || d <= 0 {
		t.Fatalf("TTL after expire = %v/%v", d, st)
	}
}

func TestTransportFailureIsUnavailable(t *testing.T) {
	mr, c, _ := newTestClient(t, 100)
	mr.Close()

	if _, st := c.Get(context.Background(), "k"); st != StatusUnavailable {
		t.Fatalf("Get on dead store = %v, want unavailable", st)
	}
	if c.Set(context.Background(), "k", "v", 0) {
		t.Fatalf("Set on dead store succeeded")
	}
}
