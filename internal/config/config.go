package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	Port          string
	Env           string
	MaxUploadSize int64

	// Database
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	// Auth
	JWTSecret      string
	PipelineAPIKey string

	// Corporate action feed
	FeedBaseURL  string
	FeedTimeout  time.Duration
	FeedCacheTTL time.Duration

	// Quotes
	QuoteSources      []string
	BrapiBaseURL      string
	BrapiToken        string
	QuoteTimeout      time.Duration
	QuoteCacheTTL     time.Duration
	QuoteRefreshDelay time.Duration
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		// Server
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		MaxUploadSize: getInt64("MAX_UPLOAD_SIZE", 10<<20),

		// Database
		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "stockfolio"),
		DBPassword: getEnv("DB_PASSWORD", "stockfolio"),
		DBName:     getEnv("DB_NAME", "stockfolio"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "stockfolio.db"),

		// Auth
		JWTSecret:      getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),
		PipelineAPIKey: getEnv("PIPELINE_API_KEY", ""),

		// Corporate action feed
		FeedBaseURL:  getEnv("FEED_BASE_URL", "https://statusinvest.com.br"),
		FeedTimeout:  getDuration("FEED_TIMEOUT", 15*time.Second),
		FeedCacheTTL: getDuration("FEED_CACHE_TTL", 10*time.Minute),

		// Quotes
		QuoteSources:      getList("QUOTE_SOURCES", []string{"brapi", "yahoo"}),
		BrapiBaseURL:      getEnv("BRAPI_BASE_URL", "https://brapi.dev"),
		BrapiToken:        getEnv("BRAPI_TOKEN", ""),
		QuoteTimeout:      getDuration("QUOTE_TIMEOUT", 10*time.Second),
		QuoteCacheTTL:     getDuration("QUOTE_CACHE_TTL", 5*time.Minute),
		QuoteRefreshDelay: getDuration("QUOTE_REFRESH_DELAY", 250*time.Millisecond),
	}

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration parses a duration variable, falling back on absent or invalid values.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %s\n", key, raw, defaultValue)
		return defaultValue
	}
	return d
}

func getInt64(key string, defaultValue int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		log.Printf("Warning: invalid %s value '%s', falling back to %d\n", key, raw, defaultValue)
		return defaultValue
	}
	return n
}

// getList splits a comma-separated variable.
func getList(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
