package summary

import (
	"context"
	"log/slog"
	"time"

	"stoneware/internal/config"
	"stoneware/internal/kvstore"
	"stoneware/internal/llm"
	"stoneware/internal/logging"
)

// New builds the configured summarizer wrapped with the persisted cache.
// It returns nil when no backend is usable, which callers treat as "skip
// the generated step".
func New(ctx context.Context, cfg *config.Config, kv *kvstore.Store, logger *slog.Logger) (Summarizer, error) {
	backend := cfg.SummaryBackend()
	var next Summarizer
	switch backend {
	case config.SummaryBackendProxy:
		next = NewProxy(cfg.Summary.ProxyURL, time.Duration(cfg.Summary.TimeoutSeconds)*time.Second)
	case config.SummaryBackendLLM:
		next = NewLLM(llm.NewClient(llm.Config{
			APIKey:         cfg.LLM.APIKey,
			BaseURL:        cfg.LLM.BaseURL,
			Model:          cfg.LLM.Model,
			Referer:        cfg.LLM.Referer,
			Title:          cfg.LLM.Title,
			TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		}))
	case config.SummaryBackendGemini:
		gemini, err := NewGemini(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, "")
		if err != nil {
			return nil, err
		}
		next = gemini
	default:
		if cfg.Summary.Backend != config.SummaryBackendNone {
			logging.NewComponentLogger(logger, "summary").Info("summary backend disabled: missing endpoint or key",
				logging.String("backend", cfg.Summary.Backend),
			)
		}
		return nil, nil
	}
	return NewCached(next, NewCache(kv, logger), backend, logger), nil
}
