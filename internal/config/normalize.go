package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCatalog()
	c.normalizeCommunity()
	c.normalizeSummary()
	c.normalizeLLM()
	c.normalizeGemini()
	c.normalizeSynopsis()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCatalog() {
	c.Catalog.APIKey = envFallback(c.Catalog.APIKey, "GOOGLE_BOOKS_API_KEY")
	c.Catalog.BaseURL = strings.TrimRight(strings.TrimSpace(c.Catalog.BaseURL), "/")
	if c.Catalog.BaseURL == "" {
		c.Catalog.BaseURL = defaultCatalogBaseURL
	}
	if c.Catalog.MaxResults <= 0 {
		c.Catalog.MaxResults = defaultCatalogMaxResults
	}
	if c.Catalog.TimeoutSeconds <= 0 {
		c.Catalog.TimeoutSeconds = defaultCatalogTimeoutSeconds
	}
}

func (c *Config) normalizeCommunity() {
	c.Community.BaseURL = strings.TrimRight(strings.TrimSpace(c.Community.BaseURL), "/")
	if c.Community.BaseURL == "" {
		c.Community.BaseURL = defaultCommunityBaseURL
	}
	c.Community.UserAgent = strings.TrimSpace(c.Community.UserAgent)
	if c.Community.UserAgent == "" {
		c.Community.UserAgent = defaultCommunityUserAgent
	}
	if c.Community.TimeoutSeconds <= 0 {
		c.Community.TimeoutSeconds = defaultCommunityTimeoutSeconds
	}
}

func (c *Config) normalizeSummary() {
	c.Summary.Backend = strings.ToLower(strings.TrimSpace(c.Summary.Backend))
	if c.Summary.Backend == "" {
		c.Summary.Backend = SummaryBackendProxy
	}
	c.Summary.ProxyURL = envFallback(c.Summary.ProxyURL, "SUMMARY_PROXY_URL")
	if c.Summary.TimeoutSeconds <= 0 {
		c.Summary.TimeoutSeconds = defaultSummaryTimeoutSeconds
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = envFallback(c.LLM.APIKey, "OPENROUTER_API_KEY")
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeGemini() {
	c.Gemini.APIKey = envFallback(c.Gemini.APIKey, "GEMINI_API_KEY")
	c.Gemini.Model = strings.TrimSpace(c.Gemini.Model)
	if c.Gemini.Model == "" {
		c.Gemini.Model = defaultGeminiModel
	}
}

func (c *Config) normalizeSynopsis() {
	if c.Synopsis.MinLength <= 0 {
		c.Synopsis.MinLength = defaultSynopsisMinLength
	}
	if c.Synopsis.CommunityMinLength <= 0 {
		c.Synopsis.CommunityMinLength = defaultSynopsisCommunityMinLen
	}
	if c.Synopsis.MaxLength <= 0 {
		c.Synopsis.MaxLength = defaultSynopsisMaxLength
	}
	if c.Synopsis.HintLength <= 0 {
		c.Synopsis.HintLength = defaultSynopsisHintLength
	}
	if c.Synopsis.WaitMillis <= 0 {
		c.Synopsis.WaitMillis = defaultSynopsisWaitMillis
	}
	if c.Synopsis.DeadlineSeconds <= 0 {
		c.Synopsis.DeadlineSeconds = defaultSynopsisDeadlineSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func envFallback(value, key string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	if env, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(env)
	}
	return ""
}
