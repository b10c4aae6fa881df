package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/leadpipe")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
}

func TestLoadAppliesDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.GetLeadsDefaultPageSize() != 20 || cfg.GetLeadsMaxPageSize() != 100 {
		t.Fatalf("unexpected page sizes %d/%d", cfg.GetLeadsDefaultPageSize(), cfg.GetLeadsMaxPageSize())
	}
	if cfg.GetAccessTokenTTL() != 12*time.Hour {
		t.Fatalf("expected 12h access TTL, got %s", cfg.GetAccessTokenTTL())
	}
	if cfg.GetAsynqQueueName() != "default" {
		t.Fatalf("expected default queue, got %q", cfg.GetAsynqQueueName())
	}
}

func TestLoadRequiresRedis(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REDIS_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when REDIS_URL is empty")
	}
}

func TestLoadRejectsWildcardWithCredentials(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CORS_ORIGINS", "*")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "true")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for wildcard CORS with credentials")
	}
}
