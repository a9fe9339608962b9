package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Catalog contains configuration for the Google Books catalog.
type Catalog struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	MaxResults     int    `toml:"max_results"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Community contains configuration for the Open Library community source.
type Community struct {
	BaseURL           string `toml:"base_url"`
	UserAgent         string `toml:"user_agent"`
	RequestsPerSecond int    `toml:"requests_per_second"`
	MaxRetries        int    `toml:"max_retries"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
}

// Summary selects the summarizer backend used as the last synopsis source.
type Summary struct {
	// Backend is one of "proxy", "llm", "gemini" or "none".
	Backend        string `toml:"backend"`
	ProxyURL       string `toml:"proxy_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// LLM contains OpenRouter-compatible chat completion settings.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Gemini contains Google Gemini settings.
type Gemini struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// Synopsis tunes the synopsis fallback chain.
type Synopsis struct {
	// MinLength is the shortest stored synopsis reused without refetching.
	MinLength int `toml:"min_length"`
	// CommunityMinLength is the shortest community description considered informative.
	CommunityMinLength int `toml:"community_min_length"`
	// MaxLength is the longest synopsis accepted for display.
	MaxLength int `toml:"max_length"`
	// HintLength caps the catalog blurb forwarded to the summarizer.
	HintLength      int `toml:"hint_length"`
	WaitMillis      int `toml:"wait_ms"`
	DeadlineSeconds int `toml:"deadline_seconds"`
}

// Rating contains the filing policy for personal ratings.
type Rating struct {
	AutoFile bool `toml:"auto_file"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format  string `toml:"format"`
	Level   string `toml:"level"`
	Console bool   `toml:"console"`
}

// Config encapsulates all configuration values for stoneware.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Catalog: Google Books search and volume lookups
//   - Community: Open Library work identity, ratings and descriptions
//   - Summary/LLM/Gemini: generated synopsis backends
//   - Synopsis: fallback chain thresholds and timeouts
//   - Rating: auto-file policy
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Catalog   Catalog   `toml:"catalog"`
	Community Community `toml:"community"`
	Summary   Summary   `toml:"summary"`
	LLM       LLM       `toml:"llm"`
	Gemini    Gemini    `toml:"gemini"`
	Synopsis  Synopsis  `toml:"synopsis"`
	Rating    Rating    `toml:"rating"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("stoneware.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the shelf database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "shelves.db")
}

// SynopsisWait is the bounded wait before the pipeline reports an interim result.
func (c *Config) SynopsisWait() time.Duration {
	return time.Duration(c.Synopsis.WaitMillis) * time.Millisecond
}

// SynopsisDeadline bounds the background fallback chain.
func (c *Config) SynopsisDeadline() time.Duration {
	return time.Duration(c.Synopsis.DeadlineSeconds) * time.Second
}

// SummaryBackend reports the effective backend after credentials are considered.
// A backend whose endpoint or key is missing degrades to "none".
func (c *Config) SummaryBackend() string {
	switch c.Summary.Backend {
	case SummaryBackendProxy:
		if c.Summary.ProxyURL == "" {
			return SummaryBackendNone
		}
	case SummaryBackendLLM:
		if c.LLM.APIKey == "" {
			return SummaryBackendNone
		}
	case SummaryBackendGemini:
		if c.Gemini.APIKey == "" {
			return SummaryBackendNone
		}
	}
	return c.Summary.Backend
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
