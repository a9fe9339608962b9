package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"stoneware/internal/config"
)

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"GOOGLE_BOOKS_API_KEY", "SUMMARY_PROXY_URL", "OPENROUTER_API_KEY", "GEMINI_API_KEY"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearCredentialEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "stoneware")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "shelves.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.Catalog.MaxResults != 12 {
		t.Fatalf("expected 12 catalog results, got %d", cfg.Catalog.MaxResults)
	}
	if !cfg.Rating.AutoFile {
		t.Fatal("expected auto-file enabled by default")
	}
	if cfg.Synopsis.HintLength != 600 {
		t.Fatalf("expected hint length 600, got %d", cfg.Synopsis.HintLength)
	}
	if cfg.SynopsisWait().Milliseconds() != 2500 {
		t.Fatalf("unexpected synopsis wait: %s", cfg.SynopsisWait())
	}
	if cfg.SummaryBackend() != config.SummaryBackendNone {
		t.Fatalf("expected proxy without url to degrade to none, got %q", cfg.SummaryBackend())
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearCredentialEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "stoneware.toml")

	type payload struct {
		Paths struct {
			DataDir string `toml:"data_dir"`
		} `toml:"paths"`
		Summary struct {
			Backend  string `toml:"backend"`
			ProxyURL string `toml:"proxy_url"`
		} `toml:"summary"`
		Rating struct {
			AutoFile bool `toml:"auto_file"`
		} `toml:"rating"`
	}
	custom := payload{}
	custom.Paths.DataDir = filepath.Join(tempDir, "data")
	custom.Summary.Backend = "PROXY"
	custom.Summary.ProxyURL = "http://127.0.0.1:8787/summary"
	custom.Rating.AutoFile = false

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.DataDir != custom.Paths.DataDir {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if cfg.Rating.AutoFile {
		t.Fatal("expected auto-file disabled by config file")
	}
	if cfg.SummaryBackend() != config.SummaryBackendProxy {
		t.Fatalf("expected proxy backend, got %q", cfg.SummaryBackend())
	}
}

func TestEnvVarFillsMissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_BOOKS_API_KEY", "env-books")
	t.Setenv("OPENROUTER_API_KEY", "env-router")
	t.Setenv("GEMINI_API_KEY", " env-gemini ")
	t.Setenv("SUMMARY_PROXY_URL", "")
	configPath := filepath.Join(t.TempDir(), "stoneware.toml")
	contents := "[llm]\napi_key = \"file-router\"\n\n[summary]\nbackend = \"gemini\"\n"
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Catalog.APIKey != "env-books" {
		t.Errorf("expected catalog key from env, got %q", cfg.Catalog.APIKey)
	}
	if cfg.LLM.APIKey != "file-router" {
		t.Errorf("expected file value to win over env, got %q", cfg.LLM.APIKey)
	}
	if cfg.Gemini.APIKey != "env-gemini" {
		t.Errorf("expected trimmed gemini key from env, got %q", cfg.Gemini.APIKey)
	}
	if cfg.SummaryBackend() != config.SummaryBackendGemini {
		t.Errorf("expected gemini backend, got %q", cfg.SummaryBackend())
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "[synopsis]") {
		t.Fatal("expected sample config to include synopsis section")
	}

	cfg := config.Default()
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("sample config should parse: %v", err)
	}
	if cfg.Summary.Backend != config.SummaryBackendProxy {
		t.Fatalf("unexpected sample backend: %q", cfg.Summary.Backend)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:    "unknown backend",
			mutate:  func(c *config.Config) { c.Summary.Backend = "oracle" },
			wantErr: "summary.backend",
		},
		{
			name:    "bad catalog url",
			mutate:  func(c *config.Config) { c.Catalog.BaseURL = "ftp://books" },
			wantErr: "catalog.base_url",
		},
		{
			name:    "too many results",
			mutate:  func(c *config.Config) { c.Catalog.MaxResults = 41 },
			wantErr: "catalog.max_results",
		},
		{
			name:    "inverted synopsis bounds",
			mutate:  func(c *config.Config) { c.Synopsis.MaxLength = 50 },
			wantErr: "synopsis.max_length",
		},
		{
			name:    "negative retries",
			mutate:  func(c *config.Config) { c.Community.MaxRetries = -1 },
			wantErr: "community.max_retries",
		},
		{
			name:    "log format",
			mutate:  func(c *config.Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.DataDir = t.TempDir()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}
