package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"stoneware/internal/catalog"
	"stoneware/internal/community"
	"stoneware/internal/config"
	"stoneware/internal/kvstore"
	"stoneware/internal/library"
	"stoneware/internal/logging"
	"stoneware/internal/shelf"
	"stoneware/internal/summary"
	"stoneware/internal/synopsis"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// application is the wired core for one CLI invocation.
type application struct {
	logger    *slog.Logger
	kv        *kvstore.Store
	summaries *summary.Cache
	pipeline  *synopsis.Pipeline
	library   *library.Service
}

// withApp opens the shelf database, wires the collaborators and runs fn.
// Background synopsis work is drained before the database is closed.
func (c *commandContext) withApp(cmd *cobra.Command, fn func(*application) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	app, err := newApplication(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer app.close()
	return fn(app)
}

func newApplication(ctx context.Context, cfg *config.Config) (*application, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	base, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	// Every line logged by one invocation shares a correlation id.
	logger := logging.WithContext(logging.WithRequestID(ctx, ""), base)
	kv, err := kvstore.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open shelf database: %w", err)
	}
	shelves := shelf.New(kv, logger)

	catalogClient, err := catalog.New(cfg.Catalog.BaseURL,
		catalog.WithAPIKey(cfg.Catalog.APIKey),
		catalog.WithMaxResults(cfg.Catalog.MaxResults),
		catalog.WithHTTPClient(&http.Client{Timeout: seconds(cfg.Catalog.TimeoutSeconds)}),
	)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}
	communityClient := community.NewClient(
		cfg.Community.BaseURL,
		cfg.Community.UserAgent,
		cfg.Community.RequestsPerSecond,
		cfg.Community.MaxRetries,
		community.WithHTTPClient(&http.Client{Timeout: seconds(cfg.Community.TimeoutSeconds)}),
	)
	enricher := community.NewEnricher(community.NewResolver(communityClient, logger), communityClient, logger)

	summarizer, err := summary.New(ctx, cfg, kv, logger)
	if err != nil {
		logging.WarnWithContext(logger, "summary backend unavailable", "summary_init_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the [summary] and backend credentials"),
			logging.String(logging.FieldImpact, "books shown without generated summaries"),
		)
		summarizer = nil
	}
	pipeline := synopsis.New(enricher, summarizer, shelves, synopsis.OptionsFromConfig(cfg), logger)

	svc := library.New(library.Dependencies{
		Catalog:   catalogClient,
		Community: enricher,
		Synopsis:  pipeline,
		Shelves:   shelves,
		Logger:    logger,
	}, library.WithAutoFile(cfg.Rating.AutoFile))

	return &application{
		logger:    logger,
		kv:        kv,
		summaries: summary.NewCache(kv, logger),
		pipeline:  pipeline,
		library:   svc,
	}, nil
}

func (a *application) close() {
	a.pipeline.Wait()
	if err := a.kv.Close(); err != nil {
		a.logger.Debug("close shelf database", logging.Error(err))
	}
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 15 * time.Second
	}
	return time.Duration(n) * time.Second
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
