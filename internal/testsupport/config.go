package testsupport

import (
	"path/filepath"
	"testing"

	"stoneware/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Network collaborators point at unroutable defaults and the summary backend
// is disabled unless an option enables it.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Catalog.BaseURL = "http://127.0.0.1:0"
	cfgVal.Community.BaseURL = "http://127.0.0.1:0"
	cfgVal.Community.RequestsPerSecond = 0
	cfgVal.Community.MaxRetries = 0
	cfgVal.Summary.Backend = config.SummaryBackendNone
	cfgVal.Synopsis.WaitMillis = 500
	cfgVal.Synopsis.DeadlineSeconds = 2

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithCatalogURL points the catalog client at a test server.
func WithCatalogURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Catalog.BaseURL = url
	}
}

// WithCommunityURL points the community client at a test server.
func WithCommunityURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Community.BaseURL = url
	}
}

// WithSummaryProxy enables the proxy summarizer against url.
func WithSummaryProxy(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Summary.Backend = config.SummaryBackendProxy
		b.cfg.Summary.ProxyURL = url
	}
}

// WithAutoFile sets the rating auto-file policy.
func WithAutoFile(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Rating.AutoFile = enabled
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
