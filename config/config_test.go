package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Load_Defaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.GeminiAPIKey)
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
	assert.Equal(t, "development", cfg.Environment)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 30, cfg.RateLimitPerMinute)
	assert.Equal(t, 10, cfg.MaxActiveRequests)
	assert.Equal(t, 5, cfg.CircuitBreakerThreshold)
	assert.Equal(t, time.Minute, cfg.CircuitBreakerTimeout)
	assert.Empty(t, cfg.RedisAddr)
}

func Test_Load_MissingAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func Test_Load_Overrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("GEMINI_MODEL", "gemini-2.5-pro")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("PORT", "9090")
	t.Setenv("REQUEST_TIMEOUT", "45")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "60")
	t.Setenv("MAX_ACTIVE_REQUESTS", "25")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.5-pro", cfg.GeminiModel)
	assert.Equal(t, "production", cfg.Environment)
	assert.False(t, cfg.Debug)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 45*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 60, cfg.RateLimitPerMinute)
	assert.Equal(t, 25, cfg.MaxActiveRequests)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func Test_Load_DurationFormat(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("REQUEST_TIMEOUT", "1m30s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.RequestTimeout)
}

func Test_Load_InvalidValues(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("PORT", "not-a-port")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
}
