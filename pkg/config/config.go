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
	Environment string
	ServerPort  int
	LogLevel    string

	// JWTSecret signs session tokens. Required: startup fails without it.
	JWTSecret string

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// RedisURL enables the listing cache when set
	RedisURL        string
	ListingCacheTTL time.Duration

	CORSAllowedOrigins []string

	// AuthRateLimit caps login/register attempts per client per minute
	AuthRateLimit int

	// DefaultPageSize is the products page size when the caller gives none
	DefaultPageSize int
	// MaxPageSize caps caller-supplied page sizes
	MaxPageSize int
	// FeaturedProductLimit caps products joined into company listings
	FeaturedProductLimit int
	// ExploreCompanyLimit is the default cap on company listings
	ExploreCompanyLimit int
}

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

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	cacheTTLSec, err := strconv.Atoi(getEnv("LISTING_CACHE_TTL_SECONDS", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid LISTING_CACHE_TTL_SECONDS: %w", err)
	}

	authRate, err := strconv.Atoi(getEnv("AUTH_RATE_LIMIT", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTH_RATE_LIMIT: %w", err)
	}

	pageSize, err := strconv.Atoi(getEnv("DEFAULT_PAGE_SIZE", "8"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_PAGE_SIZE: %w", err)
	}

	maxPageSize, err := strconv.Atoi(getEnv("MAX_PAGE_SIZE", "50"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_PAGE_SIZE: %w", err)
	}

	return &Config{
		Environment:     getEnv("ENVIRONMENT", "development"),
		ServerPort:      port,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		JWTSecret:       secret,
		DBHost:          getEnv("DB_HOST", "localhost"),
		DBPort:          dbPort,
		DBUser:          getEnv("DB_USER", "tradedock"),
		DBPassword:      getEnv("DB_PASSWORD", "dev"),
		DBName:          getEnv("DB_NAME", "tradedock"),
		DBSSLMode:       getEnv("DB_SSLMODE", "disable"),
		RedisURL:        os.Getenv("REDIS_URL"),
		ListingCacheTTL: time.Duration(cacheTTLSec) * time.Second,
		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:3000",
		}),
		AuthRateLimit:        authRate,
		DefaultPageSize:      pageSize,
		MaxPageSize:          maxPageSize,
		FeaturedProductLimit: 3,
		ExploreCompanyLimit:  50,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
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
