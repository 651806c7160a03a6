package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/random"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Stripe   StripeConfig
	Storage  StorageConfig
	Jobs     JobsConfig
	Log      LogConfig
	Metrics  MetricsConfig

	// GeneratedSecret is true when SECRET_KEY was missing and a random one was used.
	GeneratedSecret bool
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port      string
	Env       string
	Debug     bool
	BodyLimit string
	Version   string
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	ConnMaxLifetime time.Duration
	SeedDefaults    bool
}

// RedisConfig holds redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AuthConfig holds token signing and login throttling settings
type AuthConfig struct {
	SecretKey       string
	TokenTTL        time.Duration
	LoginRateLimit  int
	LoginRateWindow time.Duration
}

// StripeConfig holds payment provider settings
type StripeConfig struct {
	SecretKey        string
	PublishableKey   string
	WebhookSecret    string
	APIBase          string
	DevMode          bool
	WebhookTolerance time.Duration
}

// StorageConfig holds object storage settings for theme assets
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// JobsConfig holds background job settings
type JobsConfig struct {
	Enabled               bool
	TrialSweepInterval    time.Duration
	PresenceSweepInterval time.Duration
	AsyncWorkflows        bool
	WorkerConcurrency     int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// MetricsConfig holds metrics-related configuration
type MetricsConfig struct {
	Prefix string
}

// Load loads the application configuration from environment variables
func Load() (*Config, error) {
	_ = godotenv.Load()

	debug := getEnvAsBool("DEBUG", false)

	cfg := &Config{
		Server: ServerConfig{
			Port:      getEnv("PORT", "8000"),
			Env:       getEnv("APP_ENV", "development"),
			Debug:     debug,
			BodyLimit: getEnv("BODY_LIMIT", "50M"),
			Version:   getEnv("APP_VERSION", "1.0.0"),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 20),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),
			SeedDefaults:    getEnvAsBool("SEED_DEFAULTS", true),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			SecretKey:       getEnv("SECRET_KEY", ""),
			TokenTTL:        time.Duration(getEnvAsInt("JWT_EXPIRE_MINUTES", 30)) * time.Minute,
			LoginRateLimit:  getEnvAsInt("LOGIN_RATE_LIMIT", 10),
			LoginRateWindow: getEnvAsDuration("LOGIN_RATE_WINDOW", 15*time.Minute),
		},
		Stripe: StripeConfig{
			SecretKey:        getEnv("STRIPE_SECRET_KEY", ""),
			PublishableKey:   getEnv("STRIPE_PUBLISHABLE_KEY", ""),
			WebhookSecret:    getEnv("STRIPE_WEBHOOK_SECRET", ""),
			APIBase:          getEnv("STRIPE_API_BASE", "https://api.stripe.com"),
			WebhookTolerance: getEnvAsDuration("STRIPE_WEBHOOK_TOLERANCE", 5*time.Minute),
		},
		Storage: StorageConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
			UseSSL:    getEnvAsBool("MINIO_USE_SSL", false),
			Bucket:    getEnv("MINIO_BUCKET", "visitor-themes"),
		},
		Jobs: JobsConfig{
			Enabled:               getEnvAsBool("JOBS_ENABLED", true),
			TrialSweepInterval:    getEnvAsDuration("TRIAL_SWEEP_INTERVAL", time.Hour),
			PresenceSweepInterval: getEnvAsDuration("PRESENCE_SWEEP_INTERVAL", time.Minute),
			AsyncWorkflows:        getEnvAsBool("ASYNC_WORKFLOWS", false),
			WorkerConcurrency:     getEnvAsInt("WORKER_CONCURRENCY", 5),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Metrics: MetricsConfig{
			Prefix: getEnv("METRICS_PREFIX", "visitor"),
		},
	}

	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	if cfg.Auth.SecretKey == "" {
		cfg.Auth.SecretKey = random.String(32)
		cfg.GeneratedSecret = true
	}

	cfg.Stripe.DevMode = StripeDevMode(cfg.Stripe.SecretKey, debug)

	return cfg, nil
}

// StripeDevMode reports whether payment calls should be mocked locally.
func StripeDevMode(secretKey string, debug bool) bool {
	return debug || secretKey == "" || strings.HasPrefix(secretKey, "sk_test_")
}

// IsProduction reports whether the server runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
