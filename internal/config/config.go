package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	SLA      SLAConfig
	Runner   RunnerConfig
	Broker   BrokerConfig
	Retry    RetryConfig
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
	// StatementTimeoutMS bounds every statement, including row lock waits.
	StatementTimeoutMS int
	ApplicationName    string
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines bearer token parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// SLAConfig controls the SLA policy source and the background sweeps.
type SLAConfig struct {
	PolicyFile           string
	AtRiskWindowMinutes  int
	SweepIntervalSeconds int
	SweepDedupTTLMinutes int
	SweepEnabled         bool
}

// RunnerConfig points at the n8n instance that executes workflows.
type RunnerConfig struct {
	BaseURL               string
	APIKey                string
	DefaultTimeoutSeconds int
}

// BrokerConfig configures lifecycle event publication. An empty URL disables it.
type BrokerConfig struct {
	URL      string
	Exchange string
}

// RetryConfig bounds the retries of optimistic concurrency conflicts.
type RetryConfig struct {
	ConflictAttempts  int
	ConflictBackoffMS int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "lifecycle-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,

			StatementTimeoutMS: getEnvAsInt("POSTGRES_STATEMENT_TIMEOUT_MS", 5000),
			ApplicationName:    getEnv("APP_NAME", "lifecycle-service"),
		},
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        redisDB,
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "lifecycle:"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		SLA: SLAConfig{
			PolicyFile:           os.Getenv("SLA_POLICY_FILE"),
			AtRiskWindowMinutes:  getEnvAsInt("SLA_AT_RISK_WINDOW_MINUTES", 60),
			SweepIntervalSeconds: getEnvAsInt("SWEEP_INTERVAL_SECONDS", 60),
			SweepDedupTTLMinutes: getEnvAsInt("SWEEP_DEDUP_TTL_MINUTES", 1440),
			SweepEnabled:         getEnvAsBool("SWEEP_ENABLED", true),
		},
		Runner: RunnerConfig{
			BaseURL:               getEnv("N8N_BASE_URL", "http://127.0.0.1:5678"),
			APIKey:                os.Getenv("N8N_API_KEY"),
			DefaultTimeoutSeconds: getEnvAsInt("N8N_DEFAULT_TIMEOUT_SECONDS", 30),
		},
		Broker: BrokerConfig{
			URL:      os.Getenv("MQ_URL"),
			Exchange: getEnv("MQ_EXCHANGE", "lifecycle.events"),
		},
		Retry: RetryConfig{
			ConflictAttempts:  getEnvAsInt("CONFLICT_RETRY_ATTEMPTS", 3),
			ConflictBackoffMS: getEnvAsInt("CONFLICT_RETRY_BACKOFF_MS", 50),
		},
	}

	if cfg.Retry.ConflictAttempts < 1 {
		return nil, fmt.Errorf("invalid CONFLICT_RETRY_ATTEMPTS: must be at least 1")
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

// AtRiskWindow is the default look-ahead for at-risk queries.
func (s SLAConfig) AtRiskWindow() time.Duration {
	return time.Duration(s.AtRiskWindowMinutes) * time.Minute
}

// SweepInterval returns the period between background sweeps.
func (s SLAConfig) SweepInterval() time.Duration {
	if s.SweepIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(s.SweepIntervalSeconds) * time.Second
}

// DedupTTL bounds how long a published breach alert suppresses repeats.
func (s SLAConfig) DedupTTL() time.Duration {
	return time.Duration(s.SweepDedupTTLMinutes) * time.Minute
}

// DefaultTimeout applies to workflow triggers that do not carry their own timeout.
func (r RunnerConfig) DefaultTimeout() time.Duration {
	return time.Duration(r.DefaultTimeoutSeconds) * time.Second
}

// Backoff is the base delay between conflict retries.
func (r RetryConfig) Backoff() time.Duration {
	return time.Duration(r.ConflictBackoffMS) * time.Millisecond
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
