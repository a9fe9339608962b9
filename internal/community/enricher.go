package community

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"stoneware/internal/book"
	"stoneware/internal/logging"
)

// Source fetches per-work community data.
type Source interface {
	Ratings(ctx context.Context, work WorkKey) (Ratings, error)
	Description(ctx context.Context, work WorkKey) (string, error)
}

var _ Source = (*Client)(nil)

// Enricher resolves a record's work identity and memoizes the community
// aggregate and description per work for the life of the process.
type Enricher struct {
	resolver *Resolver
	source   Source
	logger   *slog.Logger

	mu           sync.RWMutex
	ratings      map[WorkKey]Ratings
	descriptions map[WorkKey]string
	group        singleflight.Group
}

// NewEnricher constructs an Enricher.
func NewEnricher(resolver *Resolver, source Source, logger *slog.Logger) *Enricher {
	return &Enricher{
		resolver:     resolver,
		source:       source,
		logger:       logging.NewComponentLogger(logger, "community"),
		ratings:      make(map[WorkKey]Ratings),
		descriptions: make(map[WorkKey]string),
	}
}

// Ratings returns the community aggregate for rec. A zero count or zero
// average is reported as no data.
func (e *Enricher) Ratings(ctx context.Context, rec book.Record) (Ratings, bool) {
	work, ok := e.resolver.Resolve(ctx, rec)
	if !ok {
		return Ratings{}, false
	}
	e.mu.RLock()
	cached, hit := e.ratings[work]
	e.mu.RUnlock()
	if hit {
		return cached, true
	}

	v, err := shared(ctx, &e.group, "ratings:"+string(work), func(ctx context.Context) (any, error) {
		return e.source.Ratings(ctx, work)
	})
	if err != nil {
		e.degraded("community ratings unavailable", rec, work, err)
		return Ratings{}, false
	}
	ratings, _ := v.(Ratings)
	if ratings.Empty() {
		return Ratings{}, false
	}
	e.mu.Lock()
	e.ratings[work] = ratings
	e.mu.Unlock()
	return ratings, true
}

// Description returns the community description for rec, if any.
func (e *Enricher) Description(ctx context.Context, rec book.Record) (string, bool) {
	work, ok := e.resolver.Resolve(ctx, rec)
	if !ok {
		return "", false
	}
	e.mu.RLock()
	cached, hit := e.descriptions[work]
	e.mu.RUnlock()
	if hit {
		return cached, true
	}

	v, err := shared(ctx, &e.group, "description:"+string(work), func(ctx context.Context) (any, error) {
		return e.source.Description(ctx, work)
	})
	if err != nil {
		e.degraded("community description unavailable", rec, work, err)
		return "", false
	}
	text, _ := v.(string)
	if text == "" {
		return "", false
	}
	e.mu.Lock()
	e.descriptions[work] = text
	e.mu.Unlock()
	return text, true
}

// Apply returns rec with the community aggregate filled in when one is found.
// The record is returned unchanged otherwise.
func (e *Enricher) Apply(ctx context.Context, rec book.Record) book.Record {
	ratings, ok := e.Ratings(ctx, rec)
	if !ok {
		return rec
	}
	return rec.WithCommunity(ratings.Average, ratings.Count)
}

func (e *Enricher) degraded(msg string, rec book.Record, work WorkKey, err error) {
	attrs := []logging.Attr{
		logging.String(logging.FieldBookID, rec.ID),
		logging.String(logging.FieldWorkKey, string(work)),
		logging.Error(err),
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) {
		e.logger.Debug(msg, logging.Args(attrs...)...)
		return
	}
	logging.WarnWithContext(e.logger, msg, "community_lookup_failed", append(attrs,
		logging.String(logging.FieldErrorHint, "check network access to Open Library"),
		logging.String(logging.FieldImpact, "book shown without community data"),
	)...)
}
