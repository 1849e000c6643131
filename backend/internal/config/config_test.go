package config

import (
	"log/slog"
	"testing"
	"time"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(env(nil))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.DevMode {
		t.Error("DevMode should default to false")
	}
	if cfg.StoreBackend != BackendDynamoDB || cfg.LockBackend != BackendDynamoDB {
		t.Errorf("unexpected backends %q/%q", cfg.StoreBackend, cfg.LockBackend)
	}
	if cfg.FrontendURL != "http://localhost:3000" {
		t.Errorf("unexpected FrontendURL %q", cfg.FrontendURL)
	}
	if cfg.JWTSecretParam != "/markpad/jwt-secret" {
		t.Errorf("unexpected JWTSecretParam %q", cfg.JWTSecretParam)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("unexpected LogLevel %v", cfg.LogLevel)
	}
	if cfg.DocumentTTL != 0 {
		t.Errorf("DocumentTTL should be unset outside DEV_MODE, got %v", cfg.DocumentTTL)
	}
	if !cfg.NeedsAWS() {
		t.Error("default config should need AWS")
	}
}

func TestLoad_DevMode(t *testing.T) {
	cfg, err := load(env(map[string]string{
		"DEV_MODE":      "true",
		"STORE_BACKEND": "Memory",
		"LOCK_BACKEND":  "redis",
		"REDIS_DB":      "2",
		"LOG_LEVEL":     "debug",
	}))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.StoreBackend != BackendMemory || cfg.LockBackend != BackendRedis {
		t.Errorf("unexpected backends %q/%q", cfg.StoreBackend, cfg.LockBackend)
	}
	if cfg.RedisDB != 2 {
		t.Errorf("unexpected RedisDB %d", cfg.RedisDB)
	}
	if cfg.DocumentTTL != time.Hour {
		t.Errorf("DEV_MODE should default DocumentTTL to 1h, got %v", cfg.DocumentTTL)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("unexpected LogLevel %v", cfg.LogLevel)
	}
	if cfg.NeedsAWS() {
		t.Error("memory store with redis locks in DEV_MODE should not need AWS")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{"store backend", map[string]string{"STORE_BACKEND": "sqlite"}},
		{"lock backend", map[string]string{"LOCK_BACKEND": "etcd"}},
		{"ttl", map[string]string{"DOCUMENT_TTL": "soon"}},
		{"log level", map[string]string{"LOG_LEVEL": "loud"}},
		{"redis db", map[string]string{"REDIS_DB": "one"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := load(env(tt.vars)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
