package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"stoneware/internal/kvstore"
	"stoneware/internal/logging"
)

// StoreKey is the store key holding generated summaries.
const StoreKey = "summary_cache"

// Entry is one cached summary.
type Entry struct {
	Key       string    `json:"key" yaml:"key"`
	Summary   string    `json:"summary" yaml:"summary"`
	Backend   string    `json:"backend,omitempty" yaml:"backend,omitempty"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}

// Cache persists summaries by request cache key.
type Cache struct {
	kv     *kvstore.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewCache returns a Cache over kv.
func NewCache(kv *kvstore.Store, logger *slog.Logger) *Cache {
	return &Cache{
		kv:     kv,
		logger: logging.NewComponentLogger(logger, "summary-cache"),
		now:    time.Now,
	}
}

// Get returns the cached summary for key.
func (c *Cache) Get(ctx context.Context, key string) (Entry, bool) {
	var (
		entry Entry
		found bool
	)
	err := c.kv.View(ctx, func(tx *kvstore.Txn) error {
		entries := c.load(tx)
		entry, found = entries[key]
		return nil
	})
	if err != nil {
		c.logger.Debug("summary cache read failed", logging.Error(err))
		return Entry{}, false
	}
	return entry, found && entry.Summary != ""
}

// Put stores summary under key, replacing any previous value.
func (c *Cache) Put(ctx context.Context, key, summary, backend string) error {
	summary = strings.TrimSpace(summary)
	if key == "" || summary == "" {
		return nil
	}
	return c.kv.Update(ctx, func(tx *kvstore.Txn) error {
		entries := c.load(tx)
		entries[key] = Entry{Key: key, Summary: summary, Backend: backend, CreatedAt: c.now().UTC()}
		return c.save(tx, entries)
	})
}

// List returns all cached entries ordered by key.
func (c *Cache) List(ctx context.Context) ([]Entry, error) {
	var entries map[string]Entry
	if err := c.kv.View(ctx, func(tx *kvstore.Txn) error {
		entries = c.load(tx)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("list summary cache: %w", err)
	}
	out := make([]Entry, 0, len(entries))
	for key, entry := range entries {
		entry.Key = key
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Clear drops every cached summary and reports how many were removed.
func (c *Cache) Clear(ctx context.Context) (int, error) {
	var removed int
	err := c.kv.Update(ctx, func(tx *kvstore.Txn) error {
		removed = len(c.load(tx))
		return tx.Delete(StoreKey)
	})
	if err != nil {
		return 0, fmt.Errorf("clear summary cache: %w", err)
	}
	return removed, nil
}

func (c *Cache) load(tx *kvstore.Txn) map[string]Entry {
	entries := make(map[string]Entry)
	raw, found, err := tx.Get(StoreKey)
	if err != nil || !found || len(raw) == 0 {
		return entries
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		logging.WarnWithContext(c.logger, "summary cache unreadable", "summary_cache_corrupt",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run 'stoneware cache summaries clear'"),
			logging.String(logging.FieldImpact, "summaries will be regenerated"),
		)
		return make(map[string]Entry)
	}
	return entries
}

func (c *Cache) save(tx *kvstore.Txn, entries map[string]Entry) error {
	encoded, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode summary cache: %w", err)
	}
	return tx.Put(StoreKey, encoded)
}

// Cached serves summaries from a Cache and fills it from the wrapped backend.
type Cached struct {
	next    Summarizer
	cache   *Cache
	backend string
	logger  *slog.Logger
	group   singleflight.Group
}

// NewCached wraps next with cache. backend labels stored entries.
func NewCached(next Summarizer, cache *Cache, backend string, logger *slog.Logger) *Cached {
	return &Cached{
		next:    next,
		cache:   cache,
		backend: backend,
		logger:  logging.NewComponentLogger(logger, "summary"),
	}
}

// Summarize returns the cached summary for req or generates and stores one.
// Concurrent requests for the same book share one backend call.
func (c *Cached) Summarize(ctx context.Context, req Request) (string, error) {
	req = req.Normalized()
	if err := validate(req); err != nil {
		return "", err
	}
	key := req.CacheKey()
	if entry, ok := c.cache.Get(ctx, key); ok {
		c.logger.Debug("summary cache hit", logging.String("cache_key", key))
		return entry.Summary, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		text, err := c.next.Summarize(ctx, req)
		if err != nil {
			return "", err
		}
		if err := c.cache.Put(ctx, key, text, c.backend); err != nil {
			logging.WarnWithContext(c.logger, "summary cache write failed", "summary_cache_write_failed",
				logging.String("cache_key", key),
				logging.Error(err),
				logging.String(logging.FieldImpact, "summary will be regenerated next time"),
			)
		}
		return text, nil
	})
	if err != nil {
		return "", err
	}
	text, _ := v.(string)
	return text, nil
}
