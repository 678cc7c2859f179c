package ephemeral

import (
	"errors"
	"time"

	"github.com/notably-app/ephemeral/cache"
)

// Config is assembled once at startup and treated as immutable afterwards.
type Config struct {
	Cache        cache.Config
	Verification VerificationConfig
	Quota        QuotaConfig
}

/*
====================================
VERIFICATION CONFIG
====================================
*/

// VerificationConfig bounds the one-time code and reset-token lifecycle.
type VerificationConfig struct {
	// CodeTTL is the lifetime of an email verification code.
	CodeTTL time.Duration
	// CodeMaxAttempts is the ceiling of failed matches before the record
	// is deleted and a fresh code must be issued.
	CodeMaxAttempts int
	// ResendCooldown is the minimum interval between code sends for the
	// same email.
	ResendCooldown time.Duration
	// ResetTTL is the lifetime of a password-reset token and its pending
	// marker.
	ResetTTL time.Duration
	// ResetTokenLength is the length of the alphanumeric bearer token.
	ResetTokenLength int
}

/*
====================================
QUOTA CONFIG
====================================
*/

// QuotaConfig governs the per-identity daily request counters. Tier
// ceilings are supplied per call by the caller, not configured here.
type QuotaConfig struct {
	// KeyPrefix namespaces the quota counters inside the cache client's
	// own prefix.
	KeyPrefix string
	// WindowTTL self-expires a counter after its calendar day has passed.
	WindowTTL time.Duration
	// UpgradeHintLimit marks the lowest tier: denials at or below this
	// ceiling carry an upgrade suggestion.
	UpgradeHintLimit int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Cache: cache.DefaultConfig(),
		Verification: VerificationConfig{
			CodeTTL:          10 * time.Minute,
			CodeMaxAttempts:  5,
			ResendCooldown:   60 * time.Second,
			ResetTTL:         time.Hour,
			ResetTokenLength: 32,
		},
		Quota: QuotaConfig{
			KeyPrefix:        "qta",
			WindowTTL:        24 * time.Hour,
			UpgradeHintLimit: 10,
		},
	}
}

// PresetStrict tightens every ceiling: shorter codes, fewer attempts,
// longer cooldowns. Suitable when abuse pressure is high.
func PresetStrict() Config {
	cfg := DefaultConfig()
	cfg.Verification.CodeTTL = 5 * time.Minute
	cfg.Verification.CodeMaxAttempts = 3
	cfg.Verification.ResendCooldown = 2 * time.Minute
	cfg.Verification.ResetTTL = 30 * time.Minute
	cfg.Cache.DailyRequestLimit = 5000
	return cfg
}

// PresetDev shortens windows and loosens the budget for local iteration.
func PresetDev() Config {
	cfg := DefaultConfig()
	cfg.Verification.CodeTTL = 2 * time.Minute
	cfg.Verification.ResendCooldown = 5 * time.Second
	cfg.Verification.ResetTTL = 10 * time.Minute
	cfg.Cache.DailyRequestLimit = 1_000_000
	return cfg
}

// Validate checks the config for values that would disable a guarantee.
func (c Config) Validate() error {
	if c.Verification.CodeTTL <= 0 {
		return errors.New("verification code ttl must be positive")
	}
	if c.Verification.CodeMaxAttempts <= 0 {
		return errors.New("verification max attempts must be positive")
	}
	if c.Verification.ResendCooldown <= 0 {
		return errors.New("resend cooldown must be positive")
	}
	if c.Verification.ResetTTL <= 0 {
		return errors.New("reset ttl must be positive")
	}
	if c.Verification.ResetTokenLength < 16 {
		return errors.New("reset token length must be at least 16")
	}
	if c.Quota.KeyPrefix == "" {
		return errors.New("quota key prefix required")
	}
	if c.Quota.WindowTTL < time.Hour {
		return errors.New("quota window ttl must be at least an hour")
	}
	return nil
}
