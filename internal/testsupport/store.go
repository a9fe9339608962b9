package testsupport

import (
	"context"
	"testing"

	"stoneware/internal/book"
	"stoneware/internal/config"
	"stoneware/internal/kvstore"
	"stoneware/internal/logging"
	"stoneware/internal/shelf"
)

// MustOpenKV opens a kvstore.Store for tests and registers cleanup.
func MustOpenKV(t testing.TB, cfg *config.Config) *kvstore.Store {
	t.Helper()

	store, err := kvstore.Open(cfg.DatabasePath())
	if err != nil {
		t.Fatalf("kvstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenShelves opens a shelf.Store over a fresh database.
func MustOpenShelves(t testing.TB, cfg *config.Config, opts ...shelf.Option) *shelf.Store {
	t.Helper()
	return shelf.New(MustOpenKV(t, cfg), logging.NewNop(), opts...)
}

// Shelve upserts rec onto s and fails the test on error.
func Shelve(t testing.TB, store *shelf.Store, s book.Shelf, rec book.Record) book.Record {
	t.Helper()

	saved, err := store.Upsert(context.Background(), s, rec)
	if err != nil {
		t.Fatalf("store.Upsert: %v", err)
	}
	return saved
}
