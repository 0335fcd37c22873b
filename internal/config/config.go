package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Consumer ConsumerConfig
	Breaker  BreakerConfig
	NewRelic NewRelicConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ConsumerConfig holds event consumer-group configuration.
type ConsumerConfig struct {
	Group        string
	ConsumerName string
	Concurrency  int
	BatchSize    int64
	BlockTimeout time.Duration
	ClaimMinIdle time.Duration
}

// BreakerConfig holds circuit breaker configuration for the settlement path.
type BreakerConfig struct {
	FailureRateThreshold float64
	MinCalls             int
	WindowSize           int
	CoolDown             time.Duration
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "payments"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Consumer: ConsumerConfig{
			Group:        getEnv("CONSUMER_GROUP", "payment-group"),
			ConsumerName: getEnv("CONSUMER_NAME", hostnameOr("payment-consumer")),
			Concurrency:  getIntEnv("CONSUMER_CONCURRENCY", 4),
			BatchSize:    int64(getIntEnv("CONSUMER_BATCH_SIZE", 10)),
			BlockTimeout: getDurationEnv("CONSUMER_BLOCK_TIMEOUT", 5*time.Second),
			ClaimMinIdle: getDurationEnv("CONSUMER_CLAIM_MIN_IDLE", time.Minute),
		},
		Breaker: BreakerConfig{
			FailureRateThreshold: getFloatEnv("BREAKER_FAILURE_RATE_THRESHOLD", 0.5),
			MinCalls:             getIntEnv("BREAKER_MIN_CALLS", 5),
			WindowSize:           getIntEnv("BREAKER_WINDOW_SIZE", 10),
			CoolDown:             getDurationEnv("BREAKER_COOL_DOWN", 30*time.Second),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "payment-service"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
	}
}

func hostnameOr(defaultValue string) string {
	if name, err := os.Hostname(); err == nil && name != "" {
		return name
	}
	return defaultValue
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
