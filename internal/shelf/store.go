package shelf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"stoneware/internal/book"
	"stoneware/internal/kvstore"
	"stoneware/internal/logging"
)

// LastShelfKey holds the shelf most recently listed, for UI restoration.
const LastShelfKey = "last_shelf"

// ErrMissingID is returned when a record without an id is written.
var ErrMissingID = errors.New("record id is required")

// Store persists records on the four shelves.
type Store struct {
	kv     *kvstore.Store
	logger *slog.Logger
	now    func() time.Time
	mu     sync.Mutex
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New wraps kv with shelf semantics.
func New(kv *kvstore.Store, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		kv:     kv,
		logger: logging.NewComponentLogger(logger, "shelf"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upsert inserts rec on shelf or merges it into the existing entry with the same id.
// New non-empty values win, except that a catalog blurb never replaces a vetted
// synopsis and an unrated incoming record keeps the stored rating.
func (s *Store) Upsert(ctx context.Context, shelf book.Shelf, rec book.Record) (book.Record, error) {
	if !shelf.Valid() {
		return book.Record{}, fmt.Errorf("upsert: %w: %q", book.ErrInvalidShelf, shelf)
	}
	rec.ID = strings.TrimSpace(rec.ID)
	if rec.ID == "" {
		return book.Record{}, fmt.Errorf("upsert: %w", ErrMissingID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var saved book.Record
	err := s.kv.Update(ctx, func(tx *kvstore.Txn) error {
		records := s.load(tx, shelf)
		now := s.now().UTC()

		idx := indexOf(records, rec.ID)
		if idx < 0 {
			saved = rec.Clone()
			if saved.CreatedAt.IsZero() {
				saved.CreatedAt = now
			}
			saved.UpdatedAt = latest(now, rec.UpdatedAt)
		} else {
			prev := records[idx]
			saved = merge(prev, rec)
			saved.CreatedAt = prev.CreatedAt
			if saved.CreatedAt.IsZero() {
				saved.CreatedAt = now
			}
			saved.UpdatedAt = latest(now, prev.UpdatedAt, rec.UpdatedAt)
		}
		saved.Status = shelf
		saved.Rating = book.Quantize(saved.Rating)
		if saved.Authors == nil {
			saved.Authors = []string{}
		}
		if err := saved.Validate(); err != nil {
			return err
		}

		if idx < 0 {
			records = append(records, saved)
		} else {
			records[idx] = saved
		}
		return s.save(tx, shelf, records)
	})
	if err != nil {
		return book.Record{}, fmt.Errorf("upsert %s on %s: %w", rec.ID, shelf, err)
	}
	s.logger.Debug("record stored",
		logging.String(logging.FieldBookID, saved.ID),
		logging.String(logging.FieldShelf, string(shelf)),
	)
	return saved.Clone(), nil
}

// Modify applies fn to the record with id wherever it is shelved and saves the
// result in the same transaction. It reports false when the id is not shelved.
func (s *Store) Modify(ctx context.Context, id string, fn func(*book.Record)) (book.Record, book.Shelf, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		saved book.Record
		where book.Shelf
		found bool
	)
	err := s.kv.Update(ctx, func(tx *kvstore.Txn) error {
		for _, shelf := range book.Shelves() {
			records := s.load(tx, shelf)
			idx := indexOf(records, id)
			if idx < 0 {
				continue
			}
			prev := records[idx]
			next := prev.Clone()
			fn(&next)
			next.ID = prev.ID
			next.Status = shelf
			next.CreatedAt = prev.CreatedAt
			next.Rating = book.Quantize(next.Rating)
			next.UpdatedAt = latest(s.now().UTC(), prev.UpdatedAt)
			if err := next.Validate(); err != nil {
				return err
			}
			records[idx] = next
			saved, where, found = next, shelf, true
			return s.save(tx, shelf, records)
		}
		return nil
	})
	if err != nil {
		return book.Record{}, "", false, fmt.Errorf("modify %s: %w", id, err)
	}
	return saved.Clone(), where, found, nil
}

// Refresh merges fresh metadata from rec onto the shelved record with the same
// id, keeping the stored rating. It reports false when the id is not shelved.
func (s *Store) Refresh(ctx context.Context, rec book.Record) (book.Record, book.Shelf, bool, error) {
	return s.Modify(ctx, rec.ID, func(stored *book.Record) {
		rating := stored.Rating
		*stored = merge(*stored, rec)
		stored.Rating = rating
	})
}

// Move transfers the record with id from one shelf to another in one transaction.
// It is a no-op when from equals to or the id is not on from.
func (s *Store) Move(ctx context.Context, from, to book.Shelf, id string) (bool, error) {
	if !from.Valid() || !to.Valid() {
		return false, fmt.Errorf("move: %w: %q -> %q", book.ErrInvalidShelf, from, to)
	}
	if from == to {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	moved := false
	err := s.kv.Update(ctx, func(tx *kvstore.Txn) error {
		source := s.load(tx, from)
		idx := indexOf(source, id)
		if idx < 0 {
			return nil
		}
		rec := source[idx]
		source = append(source[:idx], source[idx+1:]...)

		rec.Status = to
		rec.UpdatedAt = latest(s.now().UTC(), rec.UpdatedAt)

		target := s.load(tx, to)
		if existing := indexOf(target, id); existing >= 0 {
			target[existing] = rec
		} else {
			target = append(target, rec)
		}

		if err := s.save(tx, from, source); err != nil {
			return err
		}
		if err := s.save(tx, to, target); err != nil {
			return err
		}
		moved = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("move %s from %s to %s: %w", id, from, to, err)
	}
	if moved {
		s.logger.Debug("record moved",
			logging.String(logging.FieldBookID, id),
			logging.String("from", string(from)),
			logging.String("to", string(to)),
		)
	}
	return moved, nil
}

// Remove deletes the record with id from shelf only.
func (s *Store) Remove(ctx context.Context, shelf book.Shelf, id string) (bool, error) {
	if !shelf.Valid() {
		return false, fmt.Errorf("remove: %w: %q", book.ErrInvalidShelf, shelf)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := false
	err := s.kv.Update(ctx, func(tx *kvstore.Txn) error {
		records := s.load(tx, shelf)
		idx := indexOf(records, id)
		if idx < 0 {
			return nil
		}
		records = append(records[:idx], records[idx+1:]...)
		removed = true
		return s.save(tx, shelf, records)
	})
	if err != nil {
		return false, fmt.Errorf("remove %s from %s: %w", id, shelf, err)
	}
	return removed, nil
}

// FindAnywhere scans the shelves in display order and returns the first match.
func (s *Store) FindAnywhere(ctx context.Context, id string) (book.Record, book.Shelf, bool) {
	var (
		rec   book.Record
		where book.Shelf
		found bool
	)
	err := s.kv.View(ctx, func(tx *kvstore.Txn) error {
		for _, shelf := range book.Shelves() {
			records := s.load(tx, shelf)
			if idx := indexOf(records, id); idx >= 0 {
				rec, where, found = records[idx], shelf, true
				return nil
			}
		}
		return nil
	})
	if err != nil {
		s.readFailed("find", "", err)
		return book.Record{}, "", false
	}
	return rec, where, found
}

// List returns the records on shelf, most recently updated first.
func (s *Store) List(ctx context.Context, shelf book.Shelf) []book.Record {
	if !shelf.Valid() {
		return []book.Record{}
	}
	var records []book.Record
	err := s.kv.View(ctx, func(tx *kvstore.Txn) error {
		records = s.load(tx, shelf)
		return nil
	})
	if err != nil {
		s.readFailed("list", shelf, err)
		return []book.Record{}
	}
	sortRecent(records)
	return records
}

// All returns every shelf's records keyed by shelf.
func (s *Store) All(ctx context.Context) map[book.Shelf][]book.Record {
	out := make(map[book.Shelf][]book.Record, len(book.Shelves()))
	for _, shelf := range book.Shelves() {
		out[shelf] = s.List(ctx, shelf)
	}
	return out
}

// Counts returns the number of records on each shelf.
func (s *Store) Counts(ctx context.Context) map[book.Shelf]int {
	counts := make(map[book.Shelf]int, len(book.Shelves()))
	err := s.kv.View(ctx, func(tx *kvstore.Txn) error {
		for _, shelf := range book.Shelves() {
			counts[shelf] = len(s.load(tx, shelf))
		}
		return nil
	})
	if err != nil {
		s.readFailed("count", "", err)
	}
	return counts
}

// LastShelf returns the most recently listed shelf, defaulting to toRead.
func (s *Store) LastShelf(ctx context.Context) book.Shelf {
	raw, found, err := s.kv.Get(ctx, LastShelfKey)
	if err != nil || !found {
		return book.ShelfToRead
	}
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return book.ShelfToRead
	}
	shelf := book.Shelf(name)
	if !shelf.Valid() {
		return book.ShelfToRead
	}
	return shelf
}

// SetLastShelf records shelf as the most recently listed one.
func (s *Store) SetLastShelf(ctx context.Context, shelf book.Shelf) error {
	if !shelf.Valid() {
		return fmt.Errorf("set last shelf: %w: %q", book.ErrInvalidShelf, shelf)
	}
	raw, err := json.Marshal(string(shelf))
	if err != nil {
		return fmt.Errorf("encode last shelf: %w", err)
	}
	return s.kv.Put(ctx, LastShelfKey, raw)
}

func (s *Store) load(tx *kvstore.Txn, shelf book.Shelf) []book.Record {
	raw, found, err := tx.Get(shelf.StorageKey())
	if err != nil {
		s.readFailed("load", shelf, err)
		return []book.Record{}
	}
	if !found || len(raw) == 0 {
		return []book.Record{}
	}
	var records []book.Record
	if err := json.Unmarshal(raw, &records); err != nil {
		logging.WarnWithContext(s.logger, "shelf data unreadable; treating as empty", "shelf_corrupt",
			logging.String(logging.FieldShelf, string(shelf)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "restore from an export or remove the book entries and re-add them"),
			logging.String(logging.FieldImpact, "shelf appears empty until it is rewritten"),
		)
		return []book.Record{}
	}
	return dedupe(records)
}

func (s *Store) save(tx *kvstore.Txn, shelf book.Shelf, records []book.Record) error {
	if records == nil {
		records = []book.Record{}
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode %s: %w", shelf, err)
	}
	return tx.Put(shelf.StorageKey(), raw)
}

func (s *Store) readFailed(op string, shelf book.Shelf, err error) {
	logging.WarnWithContext(s.logger, "shelf read failed; returning empty result", "shelf_read_failed",
		logging.String("operation", op),
		logging.String(logging.FieldShelf, string(shelf)),
		logging.Error(err),
		logging.String(logging.FieldImpact, "shelf contents may appear empty"),
	)
}

// dedupe drops repeated ids, keeping the most recently updated copy.
func dedupe(records []book.Record) []book.Record {
	out := make([]book.Record, 0, len(records))
	seen := make(map[string]int, len(records))
	for _, rec := range records {
		if strings.TrimSpace(rec.ID) == "" {
			continue
		}
		if idx, ok := seen[rec.ID]; ok {
			if rec.UpdatedAt.After(out[idx].UpdatedAt) {
				out[idx] = rec
			}
			continue
		}
		seen[rec.ID] = len(out)
		out = append(out, rec)
	}
	return out
}

func indexOf(records []book.Record, id string) int {
	for i := range records {
		if records[i].ID == id {
			return i
		}
	}
	return -1
}

func sortRecent(records []book.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].UpdatedAt.Equal(records[j].UpdatedAt) {
			return records[i].UpdatedAt.After(records[j].UpdatedAt)
		}
		return records[i].ID < records[j].ID
	})
}

func latest(times ...time.Time) time.Time {
	var out time.Time
	for _, t := range times {
		if t.After(out) {
			out = t
		}
	}
	return out
}
