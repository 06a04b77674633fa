package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"APP_ENV", "STORE_BACKEND", "RUN_LOCAL", "TRACKING_INTERVAL", "REDIS_DB", "ORDERS_QUEUE_URL", "IDEMPOTENCY_TTL"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	if cfg.AppEnv != "dev" {
		t.Fatalf("AppEnv = %q", cfg.AppEnv)
	}
	if cfg.StoreBackend != BackendDynamoDB {
		t.Fatalf("StoreBackend = %q", cfg.StoreBackend)
	}
	if cfg.RunLocal {
		t.Fatalf("RunLocal should default to false")
	}
	if cfg.TrackingInterval != 15*time.Second {
		t.Fatalf("TrackingInterval = %v", cfg.TrackingInterval)
	}
	if cfg.IdempotencyTTL != 48*time.Hour {
		t.Fatalf("IdempotencyTTL = %v", cfg.IdempotencyTTL)
	}
	if cfg.QueueURL != "" {
		t.Fatalf("QueueURL should be empty")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", BackendRedis)
	t.Setenv("RUN_LOCAL", "true")
	t.Setenv("TRACKING_INTERVAL", "2s")
	t.Setenv("REDIS_DB", "3")

	cfg := Load()
	if cfg.StoreBackend != BackendRedis || !cfg.RunLocal {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.TrackingInterval != 2*time.Second {
		t.Fatalf("TrackingInterval = %v", cfg.TrackingInterval)
	}
	if cfg.RedisDB != 3 {
		t.Fatalf("RedisDB = %d", cfg.RedisDB)
	}
}

func TestLoad_BadValuesFallBack(t *testing.T) {
	t.Setenv("REDIS_DB", "x")
	t.Setenv("RUN_LOCAL", "maybe")
	t.Setenv("TRACKING_INTERVAL", "-1s")

	cfg := Load()
	if cfg.RedisDB != 0 || cfg.RunLocal || cfg.TrackingInterval != 15*time.Second {
		t.Fatalf("bad values should fall back to defaults: %+v", cfg)
	}
}
