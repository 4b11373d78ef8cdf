package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration
type Config struct {
	Environment        string
	ServerPort         int
	LogLevel           string
	StoreBackend       string
	CacheBackend       string
	RedisURL           string
	CORSAllowedOrigins []string
	RateLimitPerMinute int
	ContractStatuses   []string

	Database DatabaseConfig
	CacheTTL CacheTTLConfig
	JWT      JWTConfig
	SMTP     SMTPConfig
}

// DatabaseConfig holds the Postgres connection settings
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
}

// CacheTTLConfig holds the TTL of every cache region
type CacheTTLConfig struct {
	ByID      time.Duration
	Search    time.Duration
	Stats     time.Duration
	Reference time.Duration
}

// JWTConfig holds token signing settings
type JWTConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// SMTPConfig holds the outbound mail settings
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Load reads configuration from environment variables
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	maxOpen, err := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "25"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_OPEN_CONNS: %w", err)
	}

	smtpPort, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	rateLimit, err := strconv.Atoi(getEnv("RATE_LIMIT_PER_MINUTE", "120"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %w", err)
	}

	ttlByID, err := getDuration("CACHE_TTL_BY_ID", time.Hour)
	if err != nil {
		return nil, err
	}
	ttlSearch, err := getDuration("CACHE_TTL_SEARCH", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	ttlStats, err := getDuration("CACHE_TTL_STATS", 2*time.Minute)
	if err != nil {
		return nil, err
	}
	ttlReference, err := getDuration("CACHE_TTL_REFERENCE", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	jwtTTL, err := getDuration("JWT_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}

	storeBackend := strings.ToLower(getEnv("STORE_BACKEND", BackendMemory))
	if storeBackend != BackendPostgres && storeBackend != BackendMemory {
		return nil, fmt.Errorf("invalid STORE_BACKEND: %q", storeBackend)
	}
	cacheBackend := strings.ToLower(getEnv("CACHE_BACKEND", BackendMemory))
	if cacheBackend != BackendRedis && cacheBackend != BackendMemory {
		return nil, fmt.Errorf("invalid CACHE_BACKEND: %q", cacheBackend)
	}

	return &Config{
		Environment:  getEnv("ENVIRONMENT", "development"),
		ServerPort:   port,
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		StoreBackend: storeBackend,
		CacheBackend: cacheBackend,
		RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379"),
		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:3000",
		}),
		RateLimitPerMinute: rateLimit,
		ContractStatuses:   parseCSVEnv("CONTRACT_STATUSES", []string{"ACTIVE", "SUSPENDED", "CANCELLED", "EXPIRED"}),
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         dbPort,
			User:         getEnv("DB_USER", "securelife"),
			Password:     getEnv("DB_PASSWORD", "dev"),
			Name:         getEnv("DB_NAME", "securelife"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: maxOpen,
		},
		CacheTTL: CacheTTLConfig{
			ByID:      ttlByID,
			Search:    ttlSearch,
			Stats:     ttlStats,
			Reference: ttlReference,
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
			Issuer: getEnv("JWT_ISSUER", "securelife"),
			TTL:    jwtTTL,
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     smtpPort,
			User:     getEnv("SMTP_USER", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "no-reply@securelife.local"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
