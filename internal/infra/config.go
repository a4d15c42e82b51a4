package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	KreaBaseURL        string
	KreaHTTPTimeout    time.Duration
	KreaKeysFile       string
	PollInterval       time.Duration
	PollMaxAttempts    int
	CORSAllowedOrigins []string
	StaticDir          string
	GeoIPDBPath        string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
// Krea credentials are resolved separately by the credentials package.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "3000"),
		KreaBaseURL:        getEnv("KREA_BASE_URL", "https://api.krea.ai"),
		KreaHTTPTimeout:    time.Second * time.Duration(getEnvInt("KREA_HTTP_TIMEOUT_SECONDS", 30)),
		KreaKeysFile:       strings.TrimSpace(os.Getenv("KREA_API_KEYS_FILE")),
		PollInterval:       time.Millisecond * time.Duration(getEnvInt("POLL_INTERVAL_MS", 3000)),
		PollMaxAttempts:    getEnvInt("POLL_MAX_ATTEMPTS", 40),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		StaticDir:          strings.TrimSpace(os.Getenv("STATIC_DIR")),
		GeoIPDBPath:        strings.TrimSpace(os.Getenv("GEOIP_DB_PATH")),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 150)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.PollInterval < 0 {
		return nil, fmt.Errorf("POLL_INTERVAL_MS must not be negative")
	}
	if cfg.PollMaxAttempts <= 0 {
		return nil, fmt.Errorf("POLL_MAX_ATTEMPTS must be positive")
	}

	// The write deadline has to outlive the worst-case polling window or the
	// connection is cut before the result is written.
	if ceiling := cfg.PollInterval * time.Duration(cfg.PollMaxAttempts); cfg.HTTPWriteTimeout <= ceiling {
		cfg.HTTPWriteTimeout = ceiling + 30*time.Second
	}

	return cfg, nil
}

// PollCeiling is the longest a single request may spend polling a job.
func (c *Config) PollCeiling() time.Duration {
	return c.PollInterval * time.Duration(c.PollMaxAttempts)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
