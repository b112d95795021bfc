package app

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wayfarerhq/wayfarer/internal/auth/service"
	"github.com/wayfarerhq/wayfarer/pkg/jwtx"
)

// ErrNoAccessTokenSecret aborts startup when the signing secret is missing.
// There is deliberately no default: a guessable secret would let anyone
// mint valid access tokens.
var ErrNoAccessTokenSecret = errors.New("app: ACCESS_TOKEN_SECRET is required")

type Config struct {
	Issuer            string // Issuer claim for access tokens
	AccessTokenSecret string // Required: HMAC secret for access tokens

	AccessTokenTTL  time.Duration // Access token lifetime (default: 15m)
	RefreshTokenTTL time.Duration // Refresh token lifetime (default: 30 days)

	LockoutThreshold int           // Failed logins before lockout (default: 5)
	LockoutDuration  time.Duration // How long a lockout lasts (default: 15m)

	DatabaseFile string // Path to SQLite database file (default: ./wayfarer.db)

	RedisAddr string // Optional: enables the cluster-wide rate limiter

	KafkaBrokers []string // Optional: enables the Kafka security-event sink
	KafkaTopic   string   // Kafka topic for security events (default: wayfarer.security)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Expired-session sweep interval (default: 1h)
}

func LoadConfig() (Config, error) {
	cfg := Config{
		Issuer:            getEnvOrDefault("AUTH_ISSUER", "wayfarer"),
		AccessTokenSecret: os.Getenv("ACCESS_TOKEN_SECRET"),

		AccessTokenTTL:  getEnvDurationOrDefault("ACCESS_TOKEN_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTokenTTL: getEnvDurationOrDefault("REFRESH_TOKEN_TTL", jwtx.DefaultRefreshTokenTTL),

		LockoutThreshold: getEnvIntOrDefault("LOCKOUT_THRESHOLD", service.DefaultLockoutThreshold),
		LockoutDuration:  getEnvDurationOrDefault("LOCKOUT_DURATION", service.DefaultLockoutDuration),

		DatabaseFile: getEnvOrDefault("DATABASE_FILE", "wayfarer.db"),

		RedisAddr:  os.Getenv("REDIS_ADDR"),
		KafkaTopic: getEnvOrDefault("KAFKA_TOPIC", "wayfarer.security"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	if cfg.AccessTokenSecret == "" {
		return Config{}, ErrNoAccessTokenSecret
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	return defaultValue
}
