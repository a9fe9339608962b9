package kvstore_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"stoneware/internal/kvstore"
	"stoneware/internal/testsupport"
)

func TestOpenAppliesMigrationsAndRoundTrips(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenKV(t, cfg)
	ctx := context.Background()

	if _, found, err := store.Get(ctx, "books_toRead"); err != nil || found {
		t.Fatalf("expected empty store, found=%v err=%v", found, err)
	}
	if err := store.Put(ctx, "books_toRead", []byte(`[]`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put(ctx, "books_toRead", []byte(`[{"id":"ID1"}]`)); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}
	value, found, err := store.Get(ctx, "books_toRead")
	if err != nil || !found {
		t.Fatalf("Get failed: found=%v err=%v", found, err)
	}
	if string(value) != `[{"id":"ID1"}]` {
		t.Fatalf("unexpected value %q", value)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shelves.db")
	ctx := context.Background()

	first, err := kvstore.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := first.Put(ctx, "last_shelf", []byte(`"reading"`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second, err := kvstore.Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer second.Close()
	value, found, err := second.Get(ctx, "last_shelf")
	if err != nil || !found || string(value) != `"reading"` {
		t.Fatalf("unexpected reopened value %q found=%v err=%v", value, found, err)
	}
}

func TestUpdateRollsBackOnError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenKV(t, cfg)
	ctx := context.Background()

	if err := store.Put(ctx, "books_reading", []byte(`["a"]`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	boom := errors.New("boom")
	err := store.Update(ctx, func(tx *kvstore.Txn) error {
		if err := tx.Delete("books_reading"); err != nil {
			return err
		}
		if err := tx.Put("books_finished", []byte(`["a"]`)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, found, _ := store.Get(ctx, "books_reading"); !found {
		t.Fatal("expected delete to be rolled back")
	}
	if _, found, _ := store.Get(ctx, "books_finished"); found {
		t.Fatal("expected put to be rolled back")
	}
}

func TestListFiltersByPrefix(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenKV(t, cfg)
	ctx := context.Background()

	for _, key := range []string{"books_reading", "summary_cache", "books_finished"} {
		if err := store.Put(ctx, key, []byte(`[]`)); err != nil {
			t.Fatalf("Put %s failed: %v", key, err)
		}
	}
	entries, err := store.List(ctx, "books_")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Key != "books_finished" || entries[1].Key != "books_reading" {
		t.Fatalf("unexpected order: %s, %s", entries[0].Key, entries[1].Key)
	}
	if entries[0].UpdatedAt.IsZero() {
		t.Fatal("expected updated_at to be parsed")
	}
}
