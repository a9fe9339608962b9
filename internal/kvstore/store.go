package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
	"unicode/utf8"

	sq "github.com/Masterminds/squirrel"
	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

const (
	tableName     = "kv"
	lockRetry     = 25 * time.Millisecond
	busyTimeoutMS = 5000
)

// Store is a SQLite-backed key/value store.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock
	mu   sync.Mutex
	now  func() time.Time
}

// Entry is a stored value with its last write time.
type Entry struct {
	Key       string
	Value     []byte
	UpdatedAt time.Time
}

// Open initializes or connects to the database at path and applies migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutMS),
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{
		db:   db,
		path: path,
		lock: flock.New(path + ".lock"),
		now:  time.Now,
	}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Txn exposes reads and writes inside a single transaction.
type Txn struct {
	ctx context.Context
	tx  *sql.Tx
	now time.Time
}

// Get returns the value stored under key.
func (t *Txn) Get(key string) ([]byte, bool, error) {
	query, args, err := sq.Select("payload").From(tableName).Where(sq.Eq{"name": key}).ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("build select: %w", err)
	}
	var payload []byte
	err = t.tx.QueryRowContext(t.ctx, query, args...).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return payload, true, nil
}

// Put stores value under key, replacing any previous value.
func (t *Txn) Put(key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	query, args, err := sq.Insert(tableName).
		Columns("name", "payload", "updated_at").
		Values(key, value, t.now.UTC().Format(time.RFC3339Nano)).
		Suffix("ON CONFLICT(name) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := t.tx.ExecContext(t.ctx, query, args...); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (t *Txn) Delete(key string) error {
	query, args, err := sq.Delete(tableName).Where(sq.Eq{"name": key}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := t.tx.ExecContext(t.ctx, query, args...); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Update runs fn inside one write transaction. Changes commit only when fn
// returns nil. fn must use the provided Txn and must not call back into the Store.
func (s *Store) Update(ctx context.Context, fn func(*Txn) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	locked, err := s.lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return fmt.Errorf("acquire store lock: %w", err)
	}
	if !locked {
		return errors.New("acquire store lock: not acquired")
	}
	defer func() {
		_ = s.lock.Unlock()
	}()

	return s.run(ctx, fn)
}

// View runs fn inside a read transaction.
func (s *Store) View(ctx context.Context, fn func(*Txn) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run(ctx, fn)
}

func (s *Store) run(ctx context.Context, fn func(*Txn) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(&Txn{ctx: ctx, tx: tx, now: s.now()}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Get is a single-key read.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		value []byte
		found bool
	)
	err := s.View(ctx, func(tx *Txn) error {
		var err error
		value, found, err = tx.Get(key)
		return err
	})
	return value, found, err
}

// Put is a single-key write.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	return s.Update(ctx, func(tx *Txn) error {
		return tx.Put(key, value)
	})
}

// Delete is a single-key delete.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.Update(ctx, func(tx *Txn) error {
		return tx.Delete(key)
	})
}

// List returns every entry whose key starts with prefix, ordered by key.
func (s *Store) List(ctx context.Context, prefix string) ([]Entry, error) {
	query, args, err := sq.Select("name", "payload", "updated_at").
		From(tableName).
		Where(sq.Expr("substr(name, 1, ?) = ?", utf8.RuneCountInString(prefix), prefix)).
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	var entries []Entry
	err = s.View(ctx, func(tx *Txn) error {
		rows, err := tx.tx.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("list %s: %w", prefix, err)
		}
		defer rows.Close()
		for rows.Next() {
			var (
				entry   Entry
				updated string
			)
			if err := rows.Scan(&entry.Key, &entry.Value, &updated); err != nil {
				return fmt.Errorf("scan entry: %w", err)
			}
			if ts, parseErr := time.Parse(time.RFC3339Nano, updated); parseErr == nil {
				entry.UpdatedAt = ts
			}
			entries = append(entries, entry)
		}
		return rows.Err()
	})
	return entries, err
}
