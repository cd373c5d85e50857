package config

import (
	"testing"
	"time"
)

func loadForTest(t *testing.T) *Config {
	t.Helper()
	// minio 密钥没有默认值，不给就过不了校验。
	t.Setenv("MINIO_ACCESS_KEY_ID", "minio")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "minio-secret")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}

func TestLoadDefaults(t *testing.T) {
	cfg := loadForTest(t)

	if cfg.Auth.LoginRateLimitPerHour != 10 {
		t.Fatalf("expected default login rate limit 10, got %d", cfg.Auth.LoginRateLimitPerHour)
	}
	if cfg.Auth.LoginLockThreshold != 5 {
		t.Fatalf("expected default lock threshold 5, got %d", cfg.Auth.LoginLockThreshold)
	}
	if cfg.Auth.LoginLockTTL != 15*time.Minute {
		t.Fatalf("expected default lock ttl 15m, got %s", cfg.Auth.LoginLockTTL)
	}
	if cfg.App.AutosaveInterval != 2*time.Second {
		t.Fatalf("expected default autosave interval 2s, got %s", cfg.App.AutosaveInterval)
	}
}

func TestLoadLoginThrottleFromEnv(t *testing.T) {
	t.Setenv("AUTH_LOGIN_RATE_LIMIT_PER_HOUR", "30")
	t.Setenv("AUTH_LOGIN_LOCK_THRESHOLD", "3")
	t.Setenv("AUTH_LOGIN_LOCK_TTL", "5m")
	cfg := loadForTest(t)

	if cfg.Auth.LoginRateLimitPerHour != 30 {
		t.Fatalf("expected login rate limit 30, got %d", cfg.Auth.LoginRateLimitPerHour)
	}
	if cfg.Auth.LoginLockThreshold != 3 {
		t.Fatalf("expected lock threshold 3, got %d", cfg.Auth.LoginLockThreshold)
	}
	if cfg.Auth.LoginLockTTL != 5*time.Minute {
		t.Fatalf("expected lock ttl 5m, got %s", cfg.Auth.LoginLockTTL)
	}
}

func TestLoadRejectsNonPositiveThrottle(t *testing.T) {
	t.Setenv("MINIO_ACCESS_KEY_ID", "minio")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "minio-secret")
	t.Setenv("AUTH_LOGIN_LOCK_THRESHOLD", "0")

	if _, err := Load(); err == nil {
		t.Fatal("expected validation error for zero lock threshold")
	}
}
