package synopsis

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"stoneware/internal/book"
	"stoneware/internal/config"
	"stoneware/internal/logging"
	"stoneware/internal/summary"
	"stoneware/internal/textutil"
)

// CommunitySource looks up a community description for a record.
type CommunitySource interface {
	Description(ctx context.Context, rec book.Record) (string, bool)
}

// ShelfWriter is the slice of the shelf store used for write-back.
type ShelfWriter interface {
	FindAnywhere(ctx context.Context, id string) (book.Record, book.Shelf, bool)
	Modify(ctx context.Context, id string, fn func(*book.Record)) (book.Record, book.Shelf, bool, error)
}

// Options bounds the chain.
type Options struct {
	MinLength          int
	CommunityMinLength int
	MaxLength          int
	HintLength         int
	Wait               time.Duration
	Deadline           time.Duration
}

// OptionsFromConfig reads the [synopsis] section.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MinLength:          cfg.Synopsis.MinLength,
		CommunityMinLength: cfg.Synopsis.CommunityMinLength,
		MaxLength:          cfg.Synopsis.MaxLength,
		HintLength:         cfg.Synopsis.HintLength,
		Wait:               cfg.SynopsisWait(),
		Deadline:           cfg.SynopsisDeadline(),
	}
}

// Result is a synopsis with its provenance.
type Result struct {
	Text   string                 `json:"text"`
	Source book.DescriptionSource `json:"source"`
}

// Resolution is what Resolve hands back within the wait bound. When Pending
// is set, Text is the interim placeholder and the final Result is sent once
// on Updates, which is then closed. Updates is nil otherwise.
type Resolution struct {
	Result
	Pending bool
	Updates <-chan Result
}

// Pipeline runs the synopsis fallback chain. Community, summarizer and
// shelves may be nil; the matching step is skipped.
type Pipeline struct {
	community  CommunitySource
	summarizer summary.Summarizer
	shelves    ShelfWriter
	opts       Options
	logger     *slog.Logger
	wg         sync.WaitGroup
}

// withDefaults fills zero or negative bounds from the default [synopsis]
// settings.
func (o Options) withDefaults() Options {
	cfg := config.Default()
	def := OptionsFromConfig(&cfg)
	if o.MinLength <= 0 {
		o.MinLength = def.MinLength
	}
	if o.CommunityMinLength <= 0 {
		o.CommunityMinLength = def.CommunityMinLength
	}
	if o.MaxLength <= 0 {
		o.MaxLength = def.MaxLength
	}
	if o.HintLength <= 0 {
		o.HintLength = def.HintLength
	}
	if o.Wait <= 0 {
		o.Wait = def.Wait
	}
	if o.Deadline <= 0 {
		o.Deadline = def.Deadline
	}
	return o
}

// New constructs a Pipeline. Unset Options fields take the default
// [synopsis] settings.
func New(community CommunitySource, summarizer summary.Summarizer, shelves ShelfWriter, opts Options, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		community:  community,
		summarizer: summarizer,
		shelves:    shelves,
		opts:       opts.withDefaults(),
		logger:     logging.NewComponentLogger(logger, "synopsis"),
	}
}

func fallback() Result {
	return Result{Text: book.NoSummary, Source: book.SourceNone}
}

// Resolve returns the best synopsis for rec available within the wait bound.
func (p *Pipeline) Resolve(ctx context.Context, rec book.Record) Resolution {
	if p.storedUsable(rec) {
		return Resolution{Result: Result{Text: strings.TrimSpace(rec.Description), Source: rec.Source()}}
	}

	done := make(chan Result, 1)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		result := p.chain(ctx, rec)
		p.writeBack(ctx, rec, result)
		done <- result
	}()

	timer := time.NewTimer(p.opts.Wait)
	defer timer.Stop()
	select {
	case result := <-done:
		return Resolution{Result: result}
	case <-timer.C:
	case <-ctx.Done():
	}

	updates := make(chan Result, 1)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer close(updates)
		updates <- <-done
	}()
	return Resolution{
		Result:  Result{Text: book.FetchingSummary, Source: book.SourceNone},
		Pending: true,
		Updates: updates,
	}
}

// Wait blocks until every background chain and write-back has finished.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

func (p *Pipeline) storedUsable(rec book.Record) bool {
	return rec.Source().Vetted() && p.withinBounds(rec.Description, p.opts.MinLength)
}

func (p *Pipeline) withinBounds(text string, minLength int) bool {
	n := textutil.RuneLen(strings.TrimSpace(text))
	return n > 0 && n >= minLength && n <= p.opts.MaxLength
}

// chain runs the community and summarizer steps under the deadline. Steps
// run in their own goroutine so a slow collaborator cannot hold the result
// past the deadline.
func (p *Pipeline) chain(ctx context.Context, rec book.Record) Result {
	chainCtx, cancel := context.WithTimeout(ctx, p.opts.Deadline)
	defer cancel()

	out := make(chan Result, 1)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		out <- p.steps(chainCtx, rec)
	}()

	select {
	case result := <-out:
		return result
	case <-chainCtx.Done():
		p.logger.Debug("synopsis deadline reached",
			logging.String(logging.FieldBookID, rec.ID),
			logging.Duration("deadline", p.opts.Deadline),
		)
		return fallback()
	}
}

func (p *Pipeline) steps(ctx context.Context, rec book.Record) Result {
	if p.community != nil {
		if text, ok := p.community.Description(ctx, rec); ok {
			text = strings.TrimSpace(text)
			if p.withinBounds(text, p.opts.CommunityMinLength) {
				return Result{Text: text, Source: book.SourceCommunity}
			}
			p.logger.Debug("community description out of bounds",
				logging.String(logging.FieldBookID, rec.ID),
				logging.Int("length", textutil.RuneLen(text)),
			)
		}
	}
	if ctx.Err() != nil {
		return fallback()
	}

	if p.summarizer != nil {
		// Only a catalog blurb is forwarded as the hint.
		var hint string
		if rec.Source() == book.SourceCatalog {
			hint = textutil.Truncate(strings.TrimSpace(rec.Description), p.opts.HintLength)
		}
		text, err := p.summarizer.Summarize(ctx, summary.Request{
			Title:           rec.Title,
			Authors:         rec.Authors,
			DescriptionHint: hint,
		})
		text = strings.TrimSpace(text)
		switch {
		case err == nil && text != "":
			return Result{Text: text, Source: book.SourceLLM}
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			p.logger.Debug("summary request cancelled", logging.String(logging.FieldBookID, rec.ID))
		default:
			logging.WarnWithContext(p.logger, "summary unavailable", "summary_failed",
				logging.String(logging.FieldBookID, rec.ID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the [summary] backend settings"),
				logging.String(logging.FieldImpact, "book shown without a summary"),
			)
		}
	}
	return fallback()
}

// writeBack stores result on whichever shelf currently holds the book when it
// improves on the stored synopsis. The fallback literal is never stored.
func (p *Pipeline) writeBack(ctx context.Context, rec book.Record, result Result) {
	if p.shelves == nil || result.Source == book.SourceNone || strings.TrimSpace(rec.ID) == "" {
		return
	}
	current, _, ok := p.shelves.FindAnywhere(ctx, rec.ID)
	if !ok || !p.improves(current, result) {
		return
	}
	saved, where, ok, err := p.shelves.Modify(ctx, rec.ID, func(r *book.Record) {
		if p.improves(*r, result) {
			r.Description = result.Text
			r.DescriptionSource = result.Source
		}
	})
	if err != nil {
		logging.WarnWithContext(p.logger, "synopsis write-back failed", "synopsis_writeback_failed",
			logging.String(logging.FieldBookID, rec.ID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "summary will be fetched again next time"),
		)
		return
	}
	if ok {
		p.logger.Debug("synopsis stored",
			logging.String(logging.FieldBookID, saved.ID),
			logging.String(logging.FieldShelf, string(where)),
			logging.String("source", string(result.Source)),
		)
	}
}

func (p *Pipeline) improves(stored book.Record, result Result) bool {
	if !p.withinBounds(stored.Description, p.opts.MinLength) {
		return true
	}
	return result.Source.Rank() > stored.Source().Rank()
}
