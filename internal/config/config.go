package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAPIURL          = "http://127.0.0.1:8000/api/v1/"
	defaultTimeout         = 15 * time.Second
	defaultBreakerFailures = 3
	defaultBreakerCooldown = 5 * time.Second
)

// Config holds everything the client needs at startup.
type Config struct {
	APIURL   string
	Timeout  time.Duration
	DBPath   string
	LogFile  string
	LogLevel string

	// Consecutive transport failures before requests fail fast.
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// Load reads .env (if present) and the TASKHUB_* environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	dir, err := defaultDir()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		APIURL:   getEnv("TASKHUB_API_URL", defaultAPIURL),
		DBPath:   getEnv("TASKHUB_DB_PATH", filepath.Join(dir, "taskhub.db")),
		LogFile:  getEnv("TASKHUB_LOG_FILE", filepath.Join(dir, "taskhub.log")),
		LogLevel: strings.ToLower(getEnv("TASKHUB_LOG_LEVEL", "info")),
	}

	if cfg.Timeout, err = getDuration("TASKHUB_TIMEOUT", defaultTimeout); err != nil {
		return nil, err
	}
	if cfg.BreakerCooldown, err = getDuration("TASKHUB_BREAKER_COOLDOWN", defaultBreakerCooldown); err != nil {
		return nil, err
	}
	failures, err := getUint("TASKHUB_BREAKER_FAILURES", defaultBreakerFailures)
	if err != nil {
		return nil, err
	}
	cfg.BreakerFailures = failures

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if !strings.HasPrefix(c.APIURL, "http://") && !strings.HasPrefix(c.APIURL, "https://") {
		return fmt.Errorf("TASKHUB_API_URL must be an http(s) URL, got %q", c.APIURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("TASKHUB_TIMEOUT must be positive, got %s", c.Timeout)
	}
	if c.BreakerFailures == 0 {
		return errors.New("TASKHUB_BREAKER_FAILURES must be at least 1")
	}
	return nil
}

// defaultDir returns ~/.config/taskhub
func defaultDir() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(cfg, "taskhub"), nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func getUint(key string, fallback uint32) (uint32, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return uint32(n), nil
}
