package ephemeral

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML shape of Config. Durations are plain seconds (or
// milliseconds where noted) so operators never guess at unit suffixes.
// Zero-valued fields keep their defaults.
type fileConfig struct {
	Cache struct {
		KeyPrefix          string `yaml:"key_prefix"`
		DailyRequestLimit  int    `yaml:"daily_request_limit"`
		OpTimeoutMillis    int    `yaml:"op_timeout_ms"`
		BreakerThreshold   uint32 `yaml:"breaker_threshold"`
		BreakerCooldownSec int    `yaml:"breaker_cooldown_sec"`
	} `yaml:"cache"`
	Verification struct {
		CodeTTLSec        int `yaml:"code_ttl_sec"`
		CodeMaxAttempts   int `yaml:"code_max_attempts"`
		ResendCooldownSec int `yaml:"resend_cooldown_sec"`
		ResetTTLSec       int `yaml:"reset_ttl_sec"`
		ResetTokenLength  int `yaml:"reset_token_length"`
	} `yaml:"verification"`
	Quota struct {
		KeyPrefix        string `yaml:"key_prefix"`
		WindowTTLSec     int    `yaml:"window_ttl_sec"`
		UpgradeHintLimit int    `yaml:"upgrade_hint_limit"`
	} `yaml:"quota"`
}

// LoadConfig reads a YAML file and applies it on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg := DefaultConfig()

	if fc.Cache.KeyPrefix != "" {
		cfg.Cache.KeyPrefix = fc.Cache.KeyPrefix
	}
	if fc.Cache.DailyRequestLimit > 0 {
		cfg.Cache.DailyRequestLimit = fc.Cache.DailyRequestLimit
	}
	if fc.Cache.OpTimeoutMillis > 0 {
		cfg.Cache.OpTimeout = time.Duration(fc.Cache.OpTimeoutMillis) * time.Millisecond
	}
	if fc.Cache.BreakerThreshold > 0 {
		cfg.Cache.BreakerThreshold = fc.Cache.BreakerThreshold
	}
	if fc.Cache.BreakerCooldownSec > 0 {
		cfg.Cache.BreakerCooldown = time.Duration(fc.Cache.BreakerCooldownSec) * time.Second
	}

	if fc.Verification.CodeTTLSec > 0 {
		cfg.Verification.CodeTTL = time.Duration(fc.Verification.CodeTTLSec) * time.Second
	}
	if fc.Verification.CodeMaxAttempts > 0 {
		cfg.Verification.CodeMaxAttempts = fc.Verification.CodeMaxAttempts
	}
	if fc.Verification.ResendCooldownSec > 0 {
		cfg.Verification.ResendCooldown = time.Duration(fc.Verification.ResendCooldownSec) * time.Second
	}
	if fc.Verification.ResetTTLSec > 0 {
		cfg.Verification.ResetTTL = time.Duration(fc.Verification.ResetTTLSec) * time.Second
	}
	if fc.Verification.ResetTokenLength > 0 {
		cfg.Verification.ResetTokenLength = fc.Verification.ResetTokenLength
	}

	if fc.Quota.KeyPrefix != "" {
		cfg.Quota.KeyPrefix = fc.Quota.KeyPrefix
	}
	if fc.Quota.WindowTTLSec > 0 {
		cfg.Quota.WindowTTL = time.Duration(fc.Quota.WindowTTLSec) * time.Second
	}
	if fc.Quota.UpgradeHintLimit > 0 {
		cfg.Quota.UpgradeHintLimit = fc.Quota.UpgradeHintLimit
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}
