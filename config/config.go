// Package config loads the service configuration from environment
// variables, optionally seeded from a .env file.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/joho/godotenv"
)

var logger = xlog.NewPackageLogger("github.com/tutorstack/tutor", "config")

// Config is the service configuration.
type Config struct {
	Environment string
	Debug       bool
	Port        int

	GeminiAPIKey string
	GeminiModel  string

	RedisAddr string

	RequestTimeout     time.Duration
	RateLimitPerMinute int
	MaxActiveRequests  int

	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		logger.KV(xlog.DEBUG, "status", "loaded_dotenv")
	}

	cfg := &Config{
		Environment:             getString("ENVIRONMENT", "development"),
		GeminiAPIKey:            os.Getenv("GEMINI_API_KEY"),
		GeminiModel:             getString("GEMINI_MODEL", "gemini-2.5-flash"),
		RedisAddr:               os.Getenv("REDIS_ADDR"),
		RateLimitPerMinute:      30,
		MaxActiveRequests:       10,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   time.Minute,
	}

	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable is required")
	}

	var err error
	if cfg.Debug, err = getBool("DEBUG", cfg.Environment != "production"); err != nil {
		return nil, err
	}
	if cfg.Port, err = getInt("PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMinute, err = getInt("RATE_LIMIT_PER_MINUTE", cfg.RateLimitPerMinute); err != nil {
		return nil, err
	}
	if cfg.MaxActiveRequests, err = getInt("MAX_ACTIVE_REQUESTS", cfg.MaxActiveRequests); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid value for %s", key)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.Wrapf(err, "invalid value for %s", key)
	}
	return b, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	// plain numbers are treated as seconds
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid value for %s", key)
	}
	return d, nil
}
