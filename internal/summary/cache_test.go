package summary_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"stoneware/internal/config"
	"stoneware/internal/logging"
	"stoneware/internal/summary"
	"stoneware/internal/testsupport"
)

type countingSummarizer struct {
	calls atomic.Int32
	text  string
	err   error
}

func (c *countingSummarizer) Summarize(ctx context.Context, req summary.Request) (string, error) {
	c.calls.Add(1)
	return c.text, c.err
}

func TestCachedReusesStoredSummary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	kv := testsupport.MustOpenKV(t, cfg)
	backend := &countingSummarizer{text: "A desert saga."}
	cached := summary.NewCached(backend, summary.NewCache(kv, logging.NewNop()), "proxy", logging.NewNop())
	ctx := context.Background()

	for range 3 {
		got, err := cached.Summarize(ctx, summary.Request{Title: "Dune", Authors: []string{"Frank Herbert"}})
		if err != nil {
			t.Fatalf("Summarize: %v", err)
		}
		if got != "A desert saga." {
			t.Fatalf("summary = %q", got)
		}
	}
	if backend.calls.Load() != 1 {
		t.Fatalf("expected 1 backend call, got %d", backend.calls.Load())
	}

	// Same key after case and whitespace folding.
	if _, err := cached.Summarize(ctx, summary.Request{Title: " DUNE", Authors: []string{"frank herbert"}}); err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if backend.calls.Load() != 1 {
		t.Fatalf("expected folded key to hit cache, got %d calls", backend.calls.Load())
	}
}

func TestCacheSurvivesReopen(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	first := testsupport.MustOpenKV(t, cfg)
	if err := summary.NewCache(first, logging.NewNop()).Put(ctx, "dune||frank herbert", "A desert saga.", "llm"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second := testsupport.MustOpenKV(t, cfg)
	backend := &countingSummarizer{text: "fresh"}
	cached := summary.NewCached(backend, summary.NewCache(second, logging.NewNop()), "llm", logging.NewNop())
	got, err := cached.Summarize(ctx, summary.Request{Title: "Dune", Authors: []string{"Frank Herbert"}})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got != "A desert saga." || backend.calls.Load() != 0 {
		t.Fatalf("expected persisted summary without backend call, got %q after %d calls", got, backend.calls.Load())
	}
}

func TestCachedDoesNotStoreFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	kv := testsupport.MustOpenKV(t, cfg)
	cache := summary.NewCache(kv, logging.NewNop())
	backend := &countingSummarizer{err: errors.New("boom")}
	cached := summary.NewCached(backend, cache, "proxy", logging.NewNop())
	ctx := context.Background()

	for range 2 {
		if _, err := cached.Summarize(ctx, summary.Request{Title: "Dune"}); err == nil {
			t.Fatal("expected error")
		}
	}
	if backend.calls.Load() != 2 {
		t.Fatalf("expected failures to be retried, got %d calls", backend.calls.Load())
	}
	entries, err := cache.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty cache, got %v", entries)
	}
}

func TestCacheListAndClear(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	kv := testsupport.MustOpenKV(t, cfg)
	cache := summary.NewCache(kv, logging.NewNop())
	ctx := context.Background()

	for _, key := range []string{"b||", "a||"} {
		if err := cache.Put(ctx, key, "text "+key, config.SummaryBackendLLM); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	entries, err := cache.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 || entries[0].Key != "a||" || entries[1].Backend != config.SummaryBackendLLM {
		t.Fatalf("unexpected entries %+v", entries)
	}

	removed, err := cache.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d", removed)
	}
	if entries, _ := cache.List(ctx); len(entries) != 0 {
		t.Fatalf("expected empty cache after clear, got %v", entries)
	}
}

func TestCacheCorruptPayloadReadsEmpty(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	kv := testsupport.MustOpenKV(t, cfg)
	ctx := context.Background()
	if err := kv.Put(ctx, summary.StoreKey, []byte("{not json")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	cache := summary.NewCache(kv, logging.NewNop())
	if _, ok := cache.Get(ctx, "dune||"); ok {
		t.Fatal("expected miss on corrupt cache")
	}
	if err := cache.Put(ctx, "dune||", "A desert saga.", "proxy"); err != nil {
		t.Fatalf("Put over corrupt cache: %v", err)
	}
	if entry, ok := cache.Get(ctx, "dune||"); !ok || entry.Summary != "A desert saga." {
		t.Fatalf("unexpected entry %+v ok=%v", entry, ok)
	}
}
