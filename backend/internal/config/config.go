// Package config loads the service configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backend names accepted by STORE_BACKEND and LOCK_BACKEND.
const (
	BackendMemory   = "memory"
	BackendDynamoDB = "dynamodb"
	BackendRedis    = "redis"
)

// Config is the service configuration.
type Config struct {
	DevMode     bool
	FrontendURL string
	LogLevel    slog.Level

	StoreBackend   string
	DocumentsTable string
	// DocumentTTL expires stored documents; zero keeps them.
	DocumentTTL time.Duration

	LockBackend string
	LocksTable  string
	RedisAddr   string
	RedisPrefix string
	RedisDB     int

	JWTSecretParam        string
	APIGatewaySecretParam string

	HighlightStyle string
	PluginsFile    string

	// Addr is the listen address of the local server.
	Addr string
}

// Load reads the configuration from environment variables, applying
// defaults for everything unset.
func Load() (*Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		DevMode:               getenv("DEV_MODE") == "true",
		FrontendURL:           get("FRONTEND_URL", "http://localhost:3000"),
		StoreBackend:          get("STORE_BACKEND", BackendDynamoDB),
		DocumentsTable:        get("DOCUMENTS_TABLE", "Documents"),
		LockBackend:           get("LOCK_BACKEND", BackendDynamoDB),
		LocksTable:            get("EDIT_LOCKS_TABLE", "EditLocks"),
		RedisAddr:             get("REDIS_ADDR", "localhost:6379"),
		RedisPrefix:           get("REDIS_PREFIX", "markpad:"),
		JWTSecretParam:        get("JWT_SECRET_PARAM", "/markpad/jwt-secret"),
		APIGatewaySecretParam: get("API_GATEWAY_SECRET_PARAM", "/markpad/api-gateway-secret"),
		HighlightStyle:        getenv("HIGHLIGHT_STYLE"),
		PluginsFile:           getenv("PLUGINS_FILE"),
		Addr:                  get("ADDR", ":8080"),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(get("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	if v := getenv("DOCUMENT_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("DOCUMENT_TTL: %w", err)
		}
		cfg.DocumentTTL = d
	} else if cfg.DevMode {
		cfg.DocumentTTL = time.Hour
	}

	cfg.StoreBackend = strings.ToLower(cfg.StoreBackend)
	cfg.LockBackend = strings.ToLower(cfg.LockBackend)
	switch cfg.StoreBackend {
	case BackendMemory, BackendDynamoDB:
	default:
		return nil, fmt.Errorf("STORE_BACKEND: unknown backend %q", cfg.StoreBackend)
	}
	switch cfg.LockBackend {
	case BackendMemory, BackendDynamoDB, BackendRedis:
	default:
		return nil, fmt.Errorf("LOCK_BACKEND: unknown backend %q", cfg.LockBackend)
	}

	if v := getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("REDIS_DB: %w", err)
		}
		cfg.RedisDB = n
	}
	return cfg, nil
}

// NeedsAWS reports whether any configured backend talks to AWS.
func (c *Config) NeedsAWS() bool {
	return c.StoreBackend == BackendDynamoDB || c.LockBackend == BackendDynamoDB || !c.DevMode
}
