package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Host string
	Port string

	// Database settings
	DatabasePath string

	// Logging settings
	LogLevel  string
	LogFormat string

	// Cache settings
	CacheSize int
	CacheTTL  time.Duration

	// Scraper settings
	ScraperTimeout time.Duration
	ScrapeRetries  int
	RetryBackoff   time.Duration
	HeadlessMode   bool
	UserAgent      string
	BrowserPath    string
	DemoMode       bool

	// Politeness settings
	PortalRequestsPerMinute float64

	// Summarizer settings
	OpenAIAPIKey string
	OpenAIModel  string

	// Document storage
	DocumentDir string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Not an error if .env doesn't exist
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := &Config{
		Host:         getEnv("HOST", "0.0.0.0"),
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./data/court_cases.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "json"),
		UserAgent:    getEnv("USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"),
		BrowserPath:  getEnv("ROD_BROWSER_PATH", ""),
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", ""),
		DocumentDir:  getEnv("DOCUMENT_DIR", "./data/documents"),
	}

	var err error
	cfg.CacheSize, err = strconv.Atoi(getEnv("CACHE_SIZE", "1000"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_SIZE: %w", err)
	}

	cacheTTL, err := strconv.Atoi(getEnv("CACHE_TTL", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}
	cfg.CacheTTL = time.Duration(cacheTTL) * time.Minute

	scraperTimeout, err := strconv.Atoi(getEnv("SCRAPER_TIMEOUT", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCRAPER_TIMEOUT: %w", err)
	}
	cfg.ScraperTimeout = time.Duration(scraperTimeout) * time.Second

	cfg.ScrapeRetries, err = strconv.Atoi(getEnv("SCRAPE_RETRIES", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCRAPE_RETRIES: %w", err)
	}

	retryBackoff, err := strconv.Atoi(getEnv("RETRY_BACKOFF_MS", "500"))
	if err != nil {
		return nil, fmt.Errorf("invalid RETRY_BACKOFF_MS: %w", err)
	}
	cfg.RetryBackoff = time.Duration(retryBackoff) * time.Millisecond

	cfg.PortalRequestsPerMinute, err = strconv.ParseFloat(getEnv("PORTAL_REQUESTS_PER_MINUTE", "10"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid PORTAL_REQUESTS_PER_MINUTE: %w", err)
	}

	cfg.HeadlessMode = getEnv("HEADLESS_MODE", "true") == "true"
	cfg.DemoMode = getEnv("DEMO_MODE", "false") == "true"

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
