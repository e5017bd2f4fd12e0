package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("expected host 0.0.0.0, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("expected shutdown timeout 30s, got %v", cfg.Server.ShutdownTimeout)
	}
	if len(cfg.Redis.Addresses) != 1 || cfg.Redis.Addresses[0] != "localhost:6379" {
		t.Errorf("unexpected redis addresses: %v", cfg.Redis.Addresses)
	}
	if cfg.Redis.TTL.SearchResults != 2*time.Minute {
		t.Errorf("expected search results TTL 2m, got %v", cfg.Redis.TTL.SearchResults)
	}
	if cfg.Redis.TTL.StaleFallback != 1*time.Hour {
		t.Errorf("expected stale fallback TTL 1h, got %v", cfg.Redis.TTL.StaleFallback)
	}
	if cfg.Search.MaxMovieResults != 5 {
		t.Errorf("expected max movie results 5, got %d", cfg.Search.MaxMovieResults)
	}
	if cfg.Search.MaxMatchResults != 12 {
		t.Errorf("expected max match results 12, got %d", cfg.Search.MaxMatchResults)
	}
	if cfg.Search.CircuitBreaker.FailureThreshold != 5 {
		t.Errorf("expected failure threshold 5, got %d", cfg.Search.CircuitBreaker.FailureThreshold)
	}
	if cfg.Search.Retry.MaxAttempts != 2 {
		t.Errorf("expected max attempts 2, got %d", cfg.Search.Retry.MaxAttempts)
	}
	if cfg.Catalog.BaseURL == "" {
		t.Error("expected non-empty catalog base url")
	}
	if cfg.GenAI.Model == "" {
		t.Error("expected non-empty genai model")
	}
	if cfg.Chat.HistoryLimit != 100 {
		t.Errorf("expected chat history limit 100, got %d", cfg.Chat.HistoryLimit)
	}
	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Observability.LogLevel)
	}
	if cfg.Observability.ServiceName != "nobar-gateway" {
		t.Errorf("unexpected service name: %s", cfg.Observability.ServiceName)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoad_ParsesAndOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9091
search:
  max_match_results: 8
chat:
  history_limit: 50
catalog:
  api_key: test-key
genai:
  api_key: test-genai-key
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9091 {
		t.Errorf("expected port 9091, got %d", cfg.Server.Port)
	}
	if cfg.Search.MaxMatchResults != 8 {
		t.Errorf("expected max match results 8, got %d", cfg.Search.MaxMatchResults)
	}
	if cfg.Chat.HistoryLimit != 50 {
		t.Errorf("expected chat history limit 50, got %d", cfg.Chat.HistoryLimit)
	}
	if cfg.Catalog.APIKey != "test-key" {
		t.Errorf("expected api key from file, got %q", cfg.Catalog.APIKey)
	}
	// Untouched sections keep defaults.
	if cfg.Search.MaxMovieResults != 5 {
		t.Errorf("expected default max movie results, got %d", cfg.Search.MaxMovieResults)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("NOBAR_TEST_KEY", "expanded-key")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
catalog:
  api_key: test-key
genai:
  api_key: ${NOBAR_TEST_KEY}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GenAI.APIKey != "expanded-key" {
		t.Errorf("expected env-expanded api key, got %q", cfg.GenAI.APIKey)
	}
}

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Catalog.APIKey = "catalog-key"
	cfg.GenAI.APIKey = "genai-key"
	return cfg
}

func TestValidate_AcceptsCompleteConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"no redis", func(c *Config) { c.Redis.Addresses = nil }},
		{"no postgres dsn", func(c *Config) { c.Postgres.DSN = "" }},
		{"no kafka brokers", func(c *Config) { c.Kafka.Brokers = nil }},
		{"no catalog url", func(c *Config) { c.Catalog.BaseURL = "" }},
		{"no catalog api key", func(c *Config) { c.Catalog.APIKey = "" }},
		{"no genai api key", func(c *Config) { c.GenAI.APIKey = "" }},
		{"zero movie results", func(c *Config) { c.Search.MaxMovieResults = 0 }},
		{"huge match results", func(c *Config) { c.Search.MaxMatchResults = 500 }},
		{"zero history", func(c *Config) { c.Chat.HistoryLimit = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
