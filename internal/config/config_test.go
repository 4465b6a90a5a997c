package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TASKHUB_API_URL", "")
	t.Setenv("TASKHUB_TIMEOUT", "")
	t.Setenv("TASKHUB_BREAKER_FAILURES", "")
	t.Setenv("TASKHUB_LOG_LEVEL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIURL != defaultAPIURL {
		t.Fatalf("expected default api url, got %q", cfg.APIURL)
	}
	if cfg.Timeout != defaultTimeout {
		t.Fatalf("expected default timeout, got %v", cfg.Timeout)
	}
	if cfg.BreakerFailures != defaultBreakerFailures {
		t.Fatalf("expected %d breaker failures, got %d", defaultBreakerFailures, cfg.BreakerFailures)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("expected info log level, got %q", cfg.LogLevel)
	}
	if !strings.HasSuffix(cfg.DBPath, "taskhub.db") {
		t.Fatalf("unexpected db path %q", cfg.DBPath)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TASKHUB_API_URL", "https://pm.example.com/api/v1/")
	t.Setenv("TASKHUB_TIMEOUT", "3s")
	t.Setenv("TASKHUB_BREAKER_FAILURES", "7")
	t.Setenv("TASKHUB_BREAKER_COOLDOWN", "1m")
	t.Setenv("TASKHUB_LOG_LEVEL", "DEBUG")
	t.Setenv("TASKHUB_DB_PATH", "/tmp/x.db")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIURL != "https://pm.example.com/api/v1/" {
		t.Fatalf("api url not overridden: %q", cfg.APIURL)
	}
	if cfg.Timeout != 3*time.Second || cfg.BreakerCooldown != time.Minute {
		t.Fatalf("durations not overridden: %v %v", cfg.Timeout, cfg.BreakerCooldown)
	}
	if cfg.BreakerFailures != 7 {
		t.Fatalf("expected 7, got %d", cfg.BreakerFailures)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level should be lowercased, got %q", cfg.LogLevel)
	}
	if cfg.DBPath != "/tmp/x.db" {
		t.Fatalf("db path not overridden: %q", cfg.DBPath)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"bad timeout":  {"TASKHUB_TIMEOUT", "soon"},
		"zero timeout": {"TASKHUB_TIMEOUT", "0s"},
		"bad failures": {"TASKHUB_BREAKER_FAILURES", "-1"},
		"no failures":  {"TASKHUB_BREAKER_FAILURES", "0"},
		"bad url":      {"TASKHUB_API_URL", "ftp://example.com"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", kv[0], kv[1])
			}
		})
	}
}
