package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	Mail       MailConfig
	Notify     NotifyConfig
	Credential CredentialConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// MailConfig holds the system-wide fallback SMTP transport.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// NotifyConfig governs notification side effects.
type NotifyConfig struct {
	AutoProvision      bool
	ProvisionLimit     int
	ProvisionWindowSec int
	ScopeCacheTTLSec   int
}

// CredentialConfig holds the key used to encrypt tenant SMTP passwords.
// The key is mandatory: values already encrypted at rest must stay
// decryptable across restarts, so no ephemeral fallback is generated.
type CredentialConfig struct {
	Key string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	credentialKey := os.Getenv("CREDENTIAL_KEY")
	if credentialKey == "" {
		return nil, fmt.Errorf("CREDENTIAL_KEY is required")
	}
	if raw, decErr := hex.DecodeString(credentialKey); decErr != nil || len(raw) != 32 {
		return nil, fmt.Errorf("CREDENTIAL_KEY must be 64 hex characters (32 bytes)")
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Mail: MailConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnv("SMTP_FROM", "noreply@example.com"),
		},
		Notify: NotifyConfig{
			AutoProvision:      getEnvAsBool("NOTIFY_AUTO_PROVISION", false),
			ProvisionLimit:     getEnvAsInt("NOTIFY_PROVISION_LIMIT", 20),
			ProvisionWindowSec: getEnvAsInt("NOTIFY_PROVISION_WINDOW_SECONDS", 3600),
			ScopeCacheTTLSec:   getEnvAsInt("POLICY_SCOPE_CACHE_TTL_SECONDS", 30),
		},
		Credential: CredentialConfig{
			Key: credentialKey,
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// ProvisionWindow returns the rate-limit window for recipient provisioning.
func (n NotifyConfig) ProvisionWindow() time.Duration {
	if n.ProvisionWindowSec <= 0 {
		return time.Hour
	}
	return time.Duration(n.ProvisionWindowSec) * time.Second
}

// ScopeCacheTTL returns how long resolved manager scopes may be cached.
func (n NotifyConfig) ScopeCacheTTL() time.Duration {
	if n.ScopeCacheTTLSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(n.ScopeCacheTTLSec) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
