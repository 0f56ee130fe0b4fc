package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.ScraperTimeout)
	assert.Equal(t, 3, cfg.ScrapeRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBackoff)
	assert.Equal(t, 30*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 1000, cfg.CacheSize)
	assert.InDelta(t, 10, cfg.PortalRequestsPerMinute, 0.001)
	assert.True(t, cfg.HeadlessMode)
	assert.False(t, cfg.DemoMode)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SCRAPER_TIMEOUT", "10")
	t.Setenv("SCRAPE_RETRIES", "5")
	t.Setenv("RETRY_BACKOFF_MS", "250")
	t.Setenv("DEMO_MODE", "true")
	t.Setenv("HEADLESS_MODE", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.ScraperTimeout)
	assert.Equal(t, 5, cfg.ScrapeRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryBackoff)
	assert.True(t, cfg.DemoMode)
	assert.False(t, cfg.HeadlessMode)
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	t.Setenv("SCRAPER_TIMEOUT", "not-a-number")

	_, err := Load()
	assert.Error(t, err)
}
