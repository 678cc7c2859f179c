package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// entry is the envelope stored for every logical value. ExpiresAt is unix
// milliseconds; zero means no application-level expiry. The envelope
// duplicates store-side TTLs on purpose: bulk writes cannot attach a TTL
// atomically, so reads must never trust the store alone.
type entry struct {
	Data      json.RawMessage `json:"data"`
	CreatedAt int64           `json:"createdAt"`
	ExpiresAt int64           `json:"expiresAt"`
}

func (c *Client) encodeEntry(value any, ttl time.Duration) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	now := c.clk.Now()
	e := entry{
		Data:      data,
		CreatedAt: now.UnixMilli(),
	}
	if ttl > 0 {
		e.ExpiresAt = now.Add(ttl).UnixMilli()
	}
	return json.Marshal(e)
}

// decodeEntry is the single read-validation path: malformed payloads read
// as absent (the corrupt key is left in place), expired payloads read as
// absent and are deleted fire-and-forget.
func (c *Client) decodeEntry(key string, raw []byte) (json.RawMessage, bool) {
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		c.log.Warn("malformed cache entry treated as miss",
			zap.String("key", key), zap.Error(err))
		return nil, false
	}

	if e.ExpiresAt != 0 && c.clk.Now().UnixMilli() > e.ExpiresAt {
		c.deleteAsync(key)
		return nil, false
	}
	return e.Data, true
}

// deleteAsync reclaims a lazily-expired key without blocking the caller.
// The delete consumes a budget unit when it runs; its outcome is not
// awaited.
func (c *Client) deleteAsync(key string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.OpTimeout)
		defer cancel()
		c.Delete(ctx, key)
	}()
}
