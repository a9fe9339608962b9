package community

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"stoneware/internal/book"
	"stoneware/internal/logging"
	"stoneware/internal/textutil"
)

// WorkFinder looks up work identities by ISBN or by title and author.
type WorkFinder interface {
	WorkByISBN(ctx context.Context, isbn string) (WorkKey, error)
	WorkBySearch(ctx context.Context, title, author string) (WorkKey, error)
}

var _ WorkFinder = (*Client)(nil)

// Resolver maps records to work identities, caching successful lookups by the
// input that produced them.
type Resolver struct {
	finder WorkFinder
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]WorkKey
	group singleflight.Group
}

// NewResolver constructs a Resolver over finder.
func NewResolver(finder WorkFinder, logger *slog.Logger) *Resolver {
	return &Resolver{
		finder: finder,
		logger: logging.NewComponentLogger(logger, "resolver"),
		cache:  make(map[string]WorkKey),
	}
}

type attempt struct {
	key    string
	lookup func(context.Context) (WorkKey, error)
}

// Resolve returns the work key for rec, trying ISBN-13, ISBN-10 and then a
// title/first-author search in that order. Failures and empty answers are
// never cached.
func (r *Resolver) Resolve(ctx context.Context, rec book.Record) (WorkKey, bool) {
	for _, a := range r.attempts(rec) {
		if key, ok := r.cached(a.key); ok {
			return key, true
		}
		v, err := shared(ctx, &r.group, a.key, func(ctx context.Context) (any, error) {
			if key, ok := r.cached(a.key); ok {
				return key, nil
			}
			key, err := a.lookup(ctx)
			if err != nil {
				return WorkKey(""), err
			}
			if key == "" {
				return WorkKey(""), ErrNotFound
			}
			r.store(a.key, key)
			return key, nil
		})
		if err != nil {
			r.logger.Debug("work lookup missed",
				logging.String(logging.FieldBookID, rec.ID),
				logging.String("lookup", a.key),
				logging.Error(err),
			)
			if ctx.Err() != nil {
				return "", false
			}
			continue
		}
		if key, _ := v.(WorkKey); key != "" {
			return key, true
		}
	}
	return "", false
}

// shared collapses concurrent calls for key into one fn run. The run is
// detached from the cancellation of whichever caller started it, and each
// caller stops waiting when its own ctx is done.
func shared(ctx context.Context, group *singleflight.Group, key string, fn func(context.Context) (any, error)) (any, error) {
	detached := context.WithoutCancel(ctx)
	ch := group.DoChan(key, func() (any, error) {
		return fn(detached)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Resolver) attempts(rec book.Record) []attempt {
	var out []attempt
	for _, isbn := range []string{rec.ISBN13, rec.ISBN10} {
		digits := textutil.DigitsOnly(isbn)
		if digits == "" {
			continue
		}
		out = append(out, attempt{
			key: "isbn:" + digits,
			lookup: func(ctx context.Context) (WorkKey, error) {
				return r.finder.WorkByISBN(ctx, digits)
			},
		})
	}
	if title := searchableTitle(rec); title != "" {
		author := rec.FirstAuthor()
		out = append(out, attempt{
			key: "ta:" + textutil.FoldKey(title) + "|" + textutil.FoldKey(author),
			lookup: func(ctx context.Context) (WorkKey, error) {
				return r.finder.WorkBySearch(ctx, title, author)
			},
		})
	}
	return out
}

func searchableTitle(rec book.Record) string {
	title := strings.TrimSpace(rec.Title)
	if title == book.PlaceholderTitle || textutil.FoldKey(title) == "" {
		return ""
	}
	return title
}

func (r *Resolver) cached(key string) (WorkKey, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	work, ok := r.cache[key]
	return work, ok
}

func (r *Resolver) store(key string, work WorkKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.cache[key]; !exists {
		r.cache[key] = work
	}
}
