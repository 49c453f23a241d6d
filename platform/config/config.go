// Package config assembles the application's runtime configuration from
// environment variables and flags, and validates it eagerly at startup so a
// misconfigured deployment fails fast with a precise error instead of
// misbehaving at request time.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Cache      CacheConfig
	Broker     BrokerConfig
	Security   SecurityConfig
	AI         AIConfig
	VectorDB   VectorDBConfig
	Gateway    GatewayConfig
	WorkerPool WorkerPoolConfig
	Tenancy    TenancyConfig
}

type AppConfig struct {
	Version            string
	Port               string
	Debug              bool
	Environment        string
	BasePath           string
	TrustedProxies     []string
	BaseURL            string
	CorsAllowedOrigins []string
	ServerID           string
}

type DatabaseConfig struct {
	Driver   string // postgres | sqlite
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	URL      string
}

type CacheConfig struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
	URL       string
}

// BrokerConfig names the job-broker endpoint backing the named worker
// queues (default/integrations/analytics/messaging/bot). The in-process
// pool in worker/ uses it only as a configuration anchor; a clustered
// deployment swaps this for a real broker without changing callers.
type BrokerConfig struct {
	URL string
}

type SecurityConfig struct {
	// EncryptionKey encrypts tenant gateway credentials and webhook
	// secrets at rest (spec.md §3). Must decode to >= 256 bits.
	EncryptionKey string
	// SigningKey signs operator session tokens (spec.md §6). Must be
	// distinct from EncryptionKey, >= 32 chars, >= 16 distinct chars.
	SigningKey string
}

type AIConfig struct {
	OpenAIAPIKey      string
	GeminiAPIKey      string
	DefaultModel      string
	ClassifierTimeout time.Duration
}

type VectorDBConfig struct {
	URL       string
	APIKey    string
	Namespace string
}

type GatewayConfig struct {
	DefaultSenderNumber string
	Timeout             time.Duration
}

type WorkerPoolConfig struct {
	Size      int
	QueueSize int
	Queues    []string
}

type TenancyConfig struct {
	QuietHoursDefaultStart string // "HH:MM" in tenant local time
	QuietHoursDefaultEnd   string
	TrialLengthDays        int
}

// Global exposes the last-loaded configuration for code that cannot take an
// explicit dependency (cobra flag bindings, package-level test helpers).
var Global *Config

// Load builds a Config from environment variables and validates it. A
// missing or weak required value returns an error describing exactly which
// setting failed and why, per spec.md §6.
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Version:            getEnv("APP_VERSION", "dev"),
			Port:               getEnv("APP_PORT", "3000"),
			Debug:              getEnvBool("APP_DEBUG", false),
			Environment:        getEnv("APP_ENV", "development"),
			BasePath:           getEnv("APP_BASE_PATH", ""),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ServerID:           getEnv("SERVER_ID", ""),
			CorsAllowedOrigins: splitCSV(getEnv("APP_CORS_ALLOWED_ORIGINS", "")),
			TrustedProxies:     splitCSV(getEnv("APP_TRUSTED_PROXIES", "")),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "conversa"),
			URL:      getEnv("DATABASE_URL", ""),
		},
		Cache: CacheConfig{
			Address:   getEnv("CACHE_ADDRESS", "localhost:6379"),
			Password:  getEnv("CACHE_PASSWORD", ""),
			DB:        getEnvInt("CACHE_DB", 0),
			KeyPrefix: getEnv("CACHE_KEY_PREFIX", "conversa:"),
			URL:       getEnv("CACHE_URL", ""),
		},
		Broker: BrokerConfig{
			URL: getEnv("BROKER_URL", ""),
		},
		Security: SecurityConfig{
			EncryptionKey: getEnv("ENCRYPTION_KEY", ""),
			SigningKey:    getEnv("SIGNING_KEY", ""),
		},
		AI: AIConfig{
			OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
			GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
			DefaultModel:      getEnv("AI_DEFAULT_MODEL", "gpt-4o-mini"),
			ClassifierTimeout: getEnvDuration("AI_CLASSIFIER_TIMEOUT", 20*time.Second),
		},
		VectorDB: VectorDBConfig{
			URL:       getEnv("VECTOR_DB_URL", ""),
			APIKey:    getEnv("VECTOR_DB_API_KEY", ""),
			Namespace: getEnv("VECTOR_DB_NAMESPACE", "tenant"),
		},
		Gateway: GatewayConfig{
			DefaultSenderNumber: getEnv("GATEWAY_DEFAULT_SENDER_NUMBER", ""),
			Timeout:             getEnvDuration("GATEWAY_TIMEOUT", 10*time.Second),
		},
		WorkerPool: WorkerPoolConfig{
			Size:      getEnvInt("WORKER_POOL_SIZE", 20),
			QueueSize: getEnvInt("WORKER_QUEUE_SIZE", 1000),
			Queues:    splitCSVOrDefault(getEnv("WORKER_QUEUES", ""), []string{"default", "integrations", "analytics", "messaging", "bot"}),
		},
		Tenancy: TenancyConfig{
			QuietHoursDefaultStart: getEnv("QUIET_HOURS_DEFAULT_START", "21:00"),
			QuietHoursDefaultEnd:   getEnv("QUIET_HOURS_DEFAULT_END", "08:00"),
			TrialLengthDays:        getEnvInt("TRIAL_LENGTH_DAYS", 14),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	Global = cfg
	return cfg, nil
}

// Validate checks every required setting named in spec.md §6 and fails with
// a precise, actionable error on the first problem found.
func (c *Config) Validate() error {
	if c.Database.URL == "" && c.Database.Driver == "postgres" && c.Database.Host == "" {
		return fmt.Errorf("config: storage URL is required (set DATABASE_URL or DB_HOST)")
	}
	if c.Cache.URL == "" && c.Cache.Address == "" {
		return fmt.Errorf("config: cache URL is required (set CACHE_URL or CACHE_ADDRESS)")
	}
	if err := validateEncryptionKey(c.Security.EncryptionKey); err != nil {
		return fmt.Errorf("config: ENCRYPTION_KEY invalid: %w", err)
	}
	if err := validateSigningKey(c.Security.SigningKey); err != nil {
		return fmt.Errorf("config: SIGNING_KEY invalid: %w", err)
	}
	if c.Security.SigningKey == c.Security.EncryptionKey {
		return fmt.Errorf("config: SIGNING_KEY must be distinct from ENCRYPTION_KEY")
	}
	if c.AI.OpenAIAPIKey == "" && c.AI.GeminiAPIKey == "" {
		return fmt.Errorf("config: at least one LLM credential is required (OPENAI_API_KEY or GEMINI_API_KEY)")
	}
	if c.VectorDB.URL == "" {
		return fmt.Errorf("config: VECTOR_DB_URL is required")
	}
	if c.Tenancy.TrialLengthDays <= 0 {
		return fmt.Errorf("config: TRIAL_LENGTH_DAYS must be positive")
	}
	return nil
}

// validateEncryptionKey requires at least 256 bits (32 bytes) of key
// material, matching spec.md §6's "at-rest encryption key of at least 256
// bits".
func validateEncryptionKey(key string) error {
	if len(key) < 32 {
		return fmt.Errorf("must be at least 32 bytes (256 bits), got %d", len(key))
	}
	return nil
}

// validateSigningKey requires length >= 32, distinct-character count >=
// 16, and rejects obviously repeating patterns, per spec.md §6.
func validateSigningKey(key string) error {
	if len(key) < 32 {
		return fmt.Errorf("must be at least 32 characters, got %d", len(key))
	}
	distinct := map[rune]struct{}{}
	for _, r := range key {
		distinct[r] = struct{}{}
	}
	if len(distinct) < 16 {
		return fmt.Errorf("must contain at least 16 distinct characters, got %d", len(distinct))
	}
	if isRepeatingPattern(key) {
		return fmt.Errorf("must not be a repeating pattern")
	}
	return nil
}

// isRepeatingPattern detects a key built from repetitions of a short
// substring (e.g. "abcabcabc...") which would otherwise pass the distinct
// character count check while remaining low-entropy.
func isRepeatingPattern(key string) bool {
	n := len(key)
	for period := 1; period <= n/2; period++ {
		if n%period != 0 {
			continue
		}
		repeats := true
		for i := period; i < n; i++ {
			if key[i] != key[i%period] {
				repeats = false
				break
			}
		}
		if repeats {
			return true
		}
	}
	return false
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitCSVOrDefault(v string, fallback []string) []string {
	if out := splitCSV(v); len(out) > 0 {
		return out
	}
	return fallback
}
