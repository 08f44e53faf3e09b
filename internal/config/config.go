// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all sharedav server configuration.
type Config struct {
	// Server
	ListenAddr  string
	MetricsAddr string

	// Logging
	LogLevel  string
	LogFormat string

	// Record store ("sqlite" or "postgres")
	StoreDriver string
	DatabaseURL string
	SQLitePath  string

	// WebDAV auth. Exactly one of DAVPassword and DAVPasswordBcrypt is set.
	DAVUsername       string
	DAVPassword       string
	DAVPasswordBcrypt string

	// Namespace layout ("bucket" or "flat")
	IndexMode string

	// Upstream object storage (download URL resolution)
	S3Endpoint  string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Region    string
	S3UseSSL    bool

	URLResolveTimeout time.Duration
	URLTTL            time.Duration
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:        envOr("LISTEN_ADDR", ":8080"),
		MetricsAddr:       envOr("METRICS_ADDR", ":9090"),
		LogLevel:          envOr("LOG_LEVEL", "info"),
		LogFormat:         envOr("LOG_FORMAT", "json"),
		StoreDriver:       envOr("STORE_DRIVER", "sqlite"),
		DatabaseURL:       envOr("DATABASE_URL", ""),
		SQLitePath:        envOr("SQLITE_PATH", "/data/sharedav.db"),
		DAVUsername:       envOr("DAV_USERNAME", ""),
		DAVPassword:       envOr("DAV_PASSWORD", ""),
		DAVPasswordBcrypt: envOr("DAV_PASSWORD_BCRYPT", ""),
		IndexMode:         envOr("INDEX_MODE", "bucket"),
		S3Endpoint:        envOr("S3_ENDPOINT", "http://localhost:9000"),
		S3Bucket:          envOr("S3_BUCKET", "sharedav"),
		S3AccessKey:       envOr("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:       envOr("S3_SECRET_KEY", "minioadmin"),
		S3Region:          envOr("S3_REGION", "us-east-1"),
		S3UseSSL:          envBool("S3_USE_SSL", false),
		URLResolveTimeout: envDuration("URL_RESOLVE_TIMEOUT", 10*time.Second),
		URLTTL:            envDuration("URL_TTL", 15*time.Minute),
	}

	switch cfg.StoreDriver {
	case "sqlite":
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("SQLITE_PATH is required")
		}
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	default:
		return nil, fmt.Errorf("STORE_DRIVER must be sqlite or postgres, got %q", cfg.StoreDriver)
	}

	if cfg.DAVUsername == "" {
		return nil, fmt.Errorf("DAV_USERNAME is required")
	}
	if cfg.DAVPassword == "" && cfg.DAVPasswordBcrypt == "" {
		return nil, fmt.Errorf("one of DAV_PASSWORD or DAV_PASSWORD_BCRYPT is required")
	}
	if cfg.DAVPassword != "" && cfg.DAVPasswordBcrypt != "" {
		return nil, fmt.Errorf("DAV_PASSWORD and DAV_PASSWORD_BCRYPT are mutually exclusive")
	}

	if cfg.IndexMode != "bucket" && cfg.IndexMode != "flat" {
		return nil, fmt.Errorf("INDEX_MODE must be bucket or flat, got %q", cfg.IndexMode)
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
