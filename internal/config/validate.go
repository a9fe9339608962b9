package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateEndpoints(); err != nil {
		return err
	}
	if err := c.validateCommunity(); err != nil {
		return err
	}
	if err := c.validateSummary(); err != nil {
		return err
	}
	if err := c.validateSynopsis(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	return nil
}

func (c *Config) validateEndpoints() error {
	endpoints := []struct {
		name  string
		value string
	}{
		{"catalog.base_url", c.Catalog.BaseURL},
		{"community.base_url", c.Community.BaseURL},
		{"llm.base_url", c.LLM.BaseURL},
	}
	for _, ep := range endpoints {
		if err := validateURL(ep.name, ep.value); err != nil {
			return err
		}
	}
	if c.Summary.ProxyURL != "" {
		if err := validateURL("summary.proxy_url", c.Summary.ProxyURL); err != nil {
			return err
		}
	}
	if c.Catalog.MaxResults > 40 {
		return errors.New("catalog.max_results must be 40 or less")
	}
	return nil
}

func (c *Config) validateCommunity() error {
	if c.Community.RequestsPerSecond < 0 {
		return errors.New("community.requests_per_second must be zero or positive")
	}
	if c.Community.MaxRetries < 0 {
		return errors.New("community.max_retries must be zero or positive")
	}
	return nil
}

func (c *Config) validateSummary() error {
	switch c.Summary.Backend {
	case SummaryBackendProxy, SummaryBackendLLM, SummaryBackendGemini, SummaryBackendNone:
		return nil
	default:
		return fmt.Errorf("summary.backend: unsupported value %q (expected proxy, llm, gemini or none)", c.Summary.Backend)
	}
}

func (c *Config) validateSynopsis() error {
	if c.Synopsis.MaxLength <= c.Synopsis.MinLength {
		return errors.New("synopsis.max_length must be greater than synopsis.min_length")
	}
	if c.Synopsis.CommunityMinLength > c.Synopsis.MaxLength {
		return errors.New("synopsis.community_min_length must not exceed synopsis.max_length")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func validateURL(name, value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http or https URL", name)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", name)
	}
	return nil
}
