package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"stoneware/internal/book"
	"stoneware/internal/catalog"
	"stoneware/internal/logging"
	"stoneware/internal/shelf"
	"stoneware/internal/synopsis"
)

var (
	// ErrSearchFailed is the user-facing search failure.
	ErrSearchFailed = errors.New("Search failed. Try again.")
	// ErrNotFound is returned when a book id is unknown locally and to the catalog.
	ErrNotFound = errors.New("book not found")
	// ErrEmptyQuery is returned for a blank search.
	ErrEmptyQuery = errors.New("search query is required")
)

const defaultEnrichLimit = 4

// CommunityRatings fills community aggregates on records.
type CommunityRatings interface {
	Apply(ctx context.Context, rec book.Record) book.Record
}

// SynopsisResolver picks the synopsis shown for a record.
type SynopsisResolver interface {
	Resolve(ctx context.Context, rec book.Record) synopsis.Resolution
}

// Dependencies are the collaborators a Service composes. Community and
// Synopsis may be nil.
type Dependencies struct {
	Catalog   catalog.Searcher
	Community CommunityRatings
	Synopsis  SynopsisResolver
	Shelves   *shelf.Store
	Logger    *slog.Logger
}

// Service implements the user-facing reading-list operations.
type Service struct {
	catalog     catalog.Searcher
	community   CommunityRatings
	synopsis    SynopsisResolver
	shelves     *shelf.Store
	logger      *slog.Logger
	autoFile    bool
	enrichLimit int
	now         func() time.Time

	mu        sync.Mutex
	seen      map[string]book.Record
	ephemeral map[string]float64
}

// Option customizes a Service.
type Option func(*Service)

// WithAutoFile sets whether rating an unshelved book files it on "finished".
func WithAutoFile(enabled bool) Option {
	return func(s *Service) {
		s.autoFile = enabled
	}
}

// WithEnrichLimit bounds concurrent community lookups during search.
func WithEnrichLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.enrichLimit = n
		}
	}
}

// WithClock overrides the timestamp source used for exports.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Service.
func New(deps Dependencies, opts ...Option) *Service {
	s := &Service{
		catalog:     deps.Catalog,
		community:   deps.Community,
		synopsis:    deps.Synopsis,
		shelves:     deps.Shelves,
		logger:      logging.NewComponentLogger(deps.Logger, "library"),
		autoFile:    true,
		enrichLimit: defaultEnrichLimit,
		now:         time.Now,
		seen:        make(map[string]book.Record),
		ephemeral:   make(map[string]float64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SearchOptions tunes Search.
type SearchOptions struct {
	Limit int
	// Ratings fills community aggregates for every result before returning.
	Ratings bool
}

// Search queries the catalog and returns normalized records. Books already
// on a shelf come back with their local state merged in.
func (s *Service) Search(ctx context.Context, query string, opts SearchOptions) ([]book.Record, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	volumes, err := s.catalog.Search(ctx, query, opts.Limit)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "catalog search failed", "search_failed",
			logging.String("query", query),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check network access to the catalog"),
			logging.String(logging.FieldImpact, "no search results shown"),
		)
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}

	results := make([]book.Record, 0, len(volumes))
	for _, v := range volumes {
		rec := catalog.Normalize(v)
		if local, _, ok := s.shelves.FindAnywhere(ctx, rec.ID); ok {
			rec = catalog.Merge(rec, local)
		}
		results = append(results, rec)
	}

	if opts.Ratings && s.community != nil {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.enrichLimit)
		for i := range results {
			g.Go(func() error {
				results[i] = s.community.Apply(gctx, results[i])
				return nil
			})
		}
		_ = g.Wait()
	}

	s.remember(results...)
	s.logger.Debug("search completed", logging.String("query", query), logging.Int("results", len(results)))
	return results, nil
}

// Details is the full view of one book.
type Details struct {
	Record  book.Record `json:"record"`
	Shelf   book.Shelf  `json:"shelf,omitempty"`
	Shelved bool        `json:"shelved"`
	// EphemeralRating is a rating held for an unshelved book.
	EphemeralRating float64             `json:"ephemeralRating,omitempty"`
	Synopsis        synopsis.Resolution `json:"-"`
}

// Details loads a book by id, refreshes it from the catalog, fills community
// ratings and resolves its synopsis. Refreshed metadata is saved when the
// book is shelved.
func (s *Service) Details(ctx context.Context, id string) (Details, error) {
	rec, where, shelved, err := s.resolve(ctx, id)
	if err != nil {
		return Details{}, err
	}
	if s.community != nil {
		rec = s.community.Apply(ctx, rec)
	}
	if shelved {
		saved, current, found, err := s.shelves.Refresh(ctx, rec)
		switch {
		case err != nil:
			logging.WarnWithContext(s.logger, "details refresh not saved", "details_save_failed",
				logging.String(logging.FieldBookID, rec.ID),
				logging.Error(err),
				logging.String(logging.FieldImpact, "refreshed metadata shown but not stored"),
			)
		case found:
			rec, where = saved, current
		default:
			shelved, where = false, ""
		}
	}
	s.remember(rec)

	details := Details{Record: rec, Shelf: where, Shelved: shelved}
	if !shelved {
		details.EphemeralRating = s.ephemeralRating(rec.ID)
	}
	if s.synopsis != nil {
		details.Synopsis = s.synopsis.Resolve(ctx, rec)
		if res := details.Synopsis; !res.Pending && res.Source != book.SourceNone {
			details.Record.Description = res.Text
			details.Record.DescriptionSource = res.Source
		}
	}
	return details, nil
}

// Add files the book with id on target. A book already on another shelf is
// moved so it never appears on two shelves.
func (s *Service) Add(ctx context.Context, target book.Shelf, id string) (book.Record, error) {
	if !target.Valid() {
		return book.Record{}, fmt.Errorf("add: %w: %q", book.ErrInvalidShelf, target)
	}
	rec, where, shelved, err := s.resolve(ctx, id)
	if err != nil {
		return book.Record{}, err
	}
	if s.community != nil {
		rec = s.community.Apply(ctx, rec)
	}
	if pending := s.takeEphemeral(rec.ID); pending > 0 && !rec.Rated() {
		rec.Rating = pending
	}
	return s.file(ctx, rec, where, shelved, target)
}

func (s *Service) file(ctx context.Context, rec book.Record, from book.Shelf, shelved bool, target book.Shelf) (book.Record, error) {
	if shelved && from != target {
		if _, err := s.shelves.Move(ctx, from, target, rec.ID); err != nil {
			return book.Record{}, err
		}
	}
	saved, err := s.shelves.Upsert(ctx, target, rec)
	if err != nil {
		return book.Record{}, err
	}
	s.remember(saved)
	s.logger.Info("book filed",
		logging.String(logging.FieldBookID, saved.ID),
		logging.String(logging.FieldShelf, string(target)),
	)
	return saved, nil
}

// Move transfers a shelved book to target.
func (s *Service) Move(ctx context.Context, id string, target book.Shelf) (book.Record, error) {
	if !target.Valid() {
		return book.Record{}, fmt.Errorf("move: %w: %q", book.ErrInvalidShelf, target)
	}
	_, from, ok := s.shelves.FindAnywhere(ctx, id)
	if !ok {
		return book.Record{}, fmt.Errorf("move %s: %w", id, ErrNotFound)
	}
	if _, err := s.shelves.Move(ctx, from, target, id); err != nil {
		return book.Record{}, err
	}
	rec, _, _ := s.shelves.FindAnywhere(ctx, id)
	return rec, nil
}

// Remove deletes a book from whichever shelf holds it. It reports the shelf
// the book was removed from.
func (s *Service) Remove(ctx context.Context, id string) (book.Shelf, error) {
	_, from, ok := s.shelves.FindAnywhere(ctx, id)
	if !ok {
		return "", fmt.Errorf("remove %s: %w", id, ErrNotFound)
	}
	if _, err := s.shelves.Remove(ctx, from, id); err != nil {
		return "", err
	}
	return from, nil
}

// List returns the books on target, most recently updated first, and
// remembers target as the last active shelf.
func (s *Service) List(ctx context.Context, target book.Shelf) ([]book.Record, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("list: %w: %q", book.ErrInvalidShelf, target)
	}
	if err := s.shelves.SetLastShelf(ctx, target); err != nil {
		s.logger.Debug("last shelf not saved", logging.Error(err))
	}
	return s.shelves.List(ctx, target), nil
}

// Counts returns the number of books per shelf.
func (s *Service) Counts(ctx context.Context) map[book.Shelf]int {
	return s.shelves.Counts(ctx)
}

// LastShelf returns the shelf listed most recently.
func (s *Service) LastShelf(ctx context.Context) book.Shelf {
	return s.shelves.LastShelf(ctx)
}

// resolve finds the freshest known version of id: the catalog volume merged
// with any local record, the local record alone when the catalog is
// unreachable, or a recently seen search result.
func (s *Service) resolve(ctx context.Context, id string) (book.Record, book.Shelf, bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return book.Record{}, "", false, fmt.Errorf("book id is required: %w", ErrNotFound)
	}
	local, where, shelved := s.shelves.FindAnywhere(ctx, id)

	volume, err := s.catalog.Volume(ctx, id)
	if err == nil {
		fetched := catalog.Normalize(*volume)
		if shelved {
			return catalog.Merge(fetched, local), where, true, nil
		}
		if seen, ok := s.recall(id); ok && !fetched.HasCommunity() && seen.HasCommunity() {
			fetched = fetched.WithCommunity(*seen.CommunityAverage, *seen.CommunityCount)
		}
		return fetched, "", false, nil
	}

	if shelved {
		s.logger.Debug("catalog refresh unavailable", logging.String(logging.FieldBookID, id), logging.Error(err))
		return local, where, true, nil
	}
	if seen, ok := s.recall(id); ok {
		return seen, "", false, nil
	}
	if errors.Is(err, catalog.ErrNotFound) {
		return book.Record{}, "", false, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return book.Record{}, "", false, fmt.Errorf("load %s: %w", id, err)
}

func (s *Service) remember(records ...book.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		if rec.ID != "" {
			s.seen[rec.ID] = rec.Clone()
		}
	}
}

func (s *Service) recall(id string) (book.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.seen[id]
	return rec.Clone(), ok
}
