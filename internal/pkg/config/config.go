package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	OutputDir   string
	PostgresDSN string // empty disables the Postgres store
	FixturesDir string // non-empty switches extractors to pinned fixtures

	HTTPTimeout    time.Duration
	MaxRetries     int
	MaxConcurrency int
	RateLimitRPS   int

	ChromeBin      string
	BrowserTimeout time.Duration
}

// Load reads the .env file (if present) and returns a populated Config.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system env vars")
	}

	return &Config{
		OutputDir:   getEnv("OUTPUT_DIR", "./out"),
		PostgresDSN: getEnv("POSTGRES_DSN", ""),
		FixturesDir: getEnv("FIXTURES_DIR", ""),

		HTTPTimeout:    time.Duration(getEnvInt("HTTP_TIMEOUT_MS", 30000)) * time.Millisecond,
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 4),
		RateLimitRPS:   getEnvInt("RATE_LIMIT_RPS", 2),

		ChromeBin:      getEnv("CHROME_BIN", ""),
		BrowserTimeout: time.Duration(getEnvInt("BROWSER_TIMEOUT_MS", 90000)) * time.Millisecond,
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}
