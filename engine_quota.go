package ephemeral

import (
	"context"

	"go.uber.org/zap"

	"github.com/notably-app/ephemeral/cache"
)

const upgradeSuggestion = "Daily limit reached. Upgrade your plan for a higher allowance."

// CheckQuota decides whether identity may perform one more metered action
// under scope today. The ceiling comes from the caller, which knows the
// identity's plan; this method only does the accounting.
//
// At or over the ceiling the request is denied without incrementing, with
// the current count and limit for the user-facing message. Below it, the
// counter is advanced with the store's native atomic increment and given
// a window TTL on first creation so it self-expires past the day
// boundary. If the store is unreachable the request is allowed and marked
// Unavailable: denying service over an accounting outage is worse than
// over-granting.
func (e *Engine) CheckQuota(ctx context.Context, identity, scope string, limit int) QuotaDecision {
	if e == nil || e.cache == nil {
		return QuotaDecision{Allowed: true, Unavailable: true, Limit: int64(limit)}
	}
	if identity == "" || scope == "" || limit <= 0 {
		return QuotaDecision{Limit: int64(limit)}
	}

	day := e.clk.Now().Format("2006-01-02")
	key := e.config.Quota.KeyPrefix + ":" + scope + ":" + identity + ":" + day

	count, st := e.cache.GetInt(ctx, key)
	if st == cache.StatusUnavailable {
		e.log.Warn("quota check degraded open",
			zap.String("scope", scope), zap.String("identity", identity))
		return QuotaDecision{Allowed: true, Unavailable: true, Limit: int64(limit)}
	}

	if count >= int64(limit) {
		d := QuotaDecision{Count: count, Limit: int64(limit)}
		if limit <= e.config.Quota.UpgradeHintLimit {
			d.Suggestion = upgradeSuggestion
		}
		return d
	}

	next, st := e.cache.Increment(ctx, key, 1)
	if st == cache.StatusUnavailable {
		e.log.Warn("quota increment degraded open",
			zap.String("scope", scope), zap.String("identity", identity))
		return QuotaDecision{Allowed: true, Unavailable: true, Count: count, Limit: int64(limit)}
	}

	if next == 1 && !e.cache.Expire(ctx, key, e.config.Quota.WindowTTL) {
		// The key lingers past midnight but the date in the key keeps the
		// accounting correct; tomorrow's counter is a different key.
		e.log.Warn("quota window ttl not set", zap.String("key", key))
	}
	return QuotaDecision{Allowed: true, Count: next, Limit: int64(limit)}
}
