// Package config loads the service configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

const (
	BackendSupabase = "supabase"
	BackendMemory   = "memory"
)

// Config holds everything the server needs at startup.
type Config struct {
	Port    string `env:"PORT,default=8081"`
	GinMode string `env:"GIN_MODE,default=release"`

	LogLevel string `env:"LOG_LEVEL,default=info"`

	StorageBackend string `env:"STORAGE_BACKEND,default=supabase"`

	SupabaseURL        string `env:"SUPABASE_URL"`
	SupabaseAnonKey    string `env:"SUPABASE_ANON_KEY"`
	SupabaseServiceKey string `env:"SUPABASE_SERVICE_KEY"`
	SupabaseJWTSecret  string `env:"SUPABASE_JWT_SECRET"`

	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT,default=3s"`
	BackendRetries  int           `env:"BACKEND_RETRIES,default=1"`
	DefaultPageSize int           `env:"DEFAULT_PAGE_SIZE,default=10"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS,default=20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST,default=40"`

	KafkaBrokers string `env:"KAFKA_BROKERS"`
	KafkaTopic   string `env:"KAFKA_TOPIC,default=pos.admin.events"`
}

// Load reads envFile when it exists, then decodes the environment.
// Variables already set in the environment win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := envdecode.StrictDecode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks combinations the struct tags cannot express.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendMemory:
	case BackendSupabase:
		if c.SupabaseURL == "" {
			return fmt.Errorf("SUPABASE_URL is required when STORAGE_BACKEND=%s", BackendSupabase)
		}
		if c.SupabaseAnonKey == "" && c.SupabaseServiceKey == "" {
			return fmt.Errorf("SUPABASE_ANON_KEY or SUPABASE_SERVICE_KEY is required")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	return nil
}

// Brokers splits KAFKA_BROKERS on commas.
func (c *Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// Addr is the listen address.
func (c *Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}
