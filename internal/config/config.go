// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends for the persisted session record.
const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StoragePostgres = "postgres"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// APIBaseURL is the backend REST root (default http://localhost:8080/api).
	APIBaseURL string `mapstructure:"API_BASE_URL"`
	// APITimeout is the per-request timeout (e.g. "10s").
	APITimeout string `mapstructure:"API_TIMEOUT"`

	// StorageBackend selects where the session record lives: memory, file or postgres.
	StorageBackend string `mapstructure:"STORAGE_BACKEND"`
	// StoragePath is the JSON file used by the file backend.
	StoragePath string `mapstructure:"STORAGE_PATH"`
	// DatabaseURL is the Postgres DSN for the postgres backend and cmd/migrate.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file. When empty the
	// fixed mock token is issued instead of a signed JWT.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; derived from the private key when empty.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	JWTIssuer    string `mapstructure:"JWT_ISSUER"`
	JWTAudience  string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the token lifetime (e.g. "24h").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`

	// PolicyPath is an optional Rego file whose rules are added to the built-in role policy.
	PolicyPath string `mapstructure:"POLICY_PATH"`

	// OTLPEndpoint is the OTLP gRPC collector (e.g. localhost:4317). Empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces a plaintext connection to the collector.
	OTLPInsecure bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	ServiceName  string `mapstructure:"OTEL_SERVICE_NAME"`

	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("API_BASE_URL", "http://localhost:8080/api")
	v.SetDefault("API_TIMEOUT", "10s")
	v.SetDefault("STORAGE_BACKEND", StorageFile)
	v.SetDefault("STORAGE_PATH", "")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "lazydo-auth")
	v.SetDefault("JWT_AUDIENCE", "lazydo-api")
	v.SetDefault("JWT_ACCESS_TTL", "24h")
	v.SetDefault("POLICY_PATH", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "lazydo")
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))
	switch cfg.StorageBackend {
	case StorageMemory, StorageFile:
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("config: DATABASE_URL must be set when STORAGE_BACKEND=postgres")
		}
	default:
		return nil, fmt.Errorf("config: STORAGE_BACKEND must be memory, file or postgres, got %q", cfg.StorageBackend)
	}

	if cfg.APIBaseURL == "" {
		return nil, errors.New("config: API_BASE_URL must be set")
	}
	if _, err := time.ParseDuration(cfg.APITimeout); err != nil {
		return nil, fmt.Errorf("config: API_TIMEOUT: %w", err)
	}

	if cfg.Env == "production" && cfg.JWTPrivateKey == "" {
		return nil, errors.New("config: JWT_PRIVATE_KEY must be set when APP_ENV=production")
	}

	return &cfg, nil
}

// Timeout parses APITimeout. Returns 10s if unset or invalid.
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.APITimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 24h if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// SignedTokens reports whether sessions get a signed JWT rather than the mock token.
func (c *Config) SignedTokens() bool {
	return c != nil && strings.TrimSpace(c.JWTPrivateKey) != ""
}
