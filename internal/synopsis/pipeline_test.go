package synopsis_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"stoneware/internal/book"
	"stoneware/internal/logging"
	"stoneware/internal/summary"
	"stoneware/internal/synopsis"
	"stoneware/internal/testsupport"
)

type fakeCommunity struct {
	text  string
	calls atomic.Int32
}

func (f *fakeCommunity) Description(ctx context.Context, rec book.Record) (string, bool) {
	f.calls.Add(1)
	return f.text, f.text != ""
}

type fakeSummarizer struct {
	text    string
	err     error
	release chan struct{}
	calls   atomic.Int32
	lastReq atomic.Value
}

func (f *fakeSummarizer) Summarize(ctx context.Context, req summary.Request) (string, error) {
	f.calls.Add(1)
	f.lastReq.Store(req)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

func testOptions() synopsis.Options {
	return synopsis.Options{
		MinLength:          80,
		CommunityMinLength: 100,
		MaxLength:          900,
		HintLength:         600,
		Wait:               time.Second,
		Deadline:           2 * time.Second,
	}
}

func TestResolveUsesStoredVettedSynopsis(t *testing.T) {
	community := &fakeCommunity{text: strings.Repeat("c", 200)}
	summarizer := &fakeSummarizer{text: "generated"}
	p := synopsis.New(community, summarizer, nil, testOptions(), logging.NewNop())

	rec := testsupport.Dune()
	rec.Description = strings.Repeat("s", 120)
	rec.DescriptionSource = book.SourceLLM

	res := p.Resolve(context.Background(), rec)
	p.Wait()

	if res.Pending || res.Updates != nil {
		t.Fatalf("expected immediate result, got %+v", res)
	}
	if res.Source != book.SourceLLM || res.Text != rec.Description {
		t.Fatalf("unexpected result %+v", res.Result)
	}
	if community.calls.Load() != 0 || summarizer.calls.Load() != 0 {
		t.Fatalf("collaborators called: community=%d summarizer=%d", community.calls.Load(), summarizer.calls.Load())
	}
}

func TestResolveStoredOutOfBoundsIsRefetched(t *testing.T) {
	community := &fakeCommunity{text: strings.Repeat("c", 150)}
	p := synopsis.New(community, nil, nil, testOptions(), logging.NewNop())

	rec := testsupport.Dune()
	rec.Description = "Too short."
	rec.DescriptionSource = book.SourceCommunity

	res := p.Resolve(context.Background(), rec)
	p.Wait()
	if res.Source != book.SourceCommunity || res.Text != community.text {
		t.Fatalf("unexpected result %+v", res.Result)
	}
	if community.calls.Load() != 1 {
		t.Fatalf("expected community lookup, got %d", community.calls.Load())
	}
}

func TestResolvePrefersCommunityOverSummarizer(t *testing.T) {
	community := &fakeCommunity{text: strings.Repeat("c", 150)}
	summarizer := &fakeSummarizer{text: "generated"}
	p := synopsis.New(community, summarizer, nil, testOptions(), logging.NewNop())

	res := p.Resolve(context.Background(), testsupport.Dune())
	p.Wait()

	if res.Source != book.SourceCommunity {
		t.Fatalf("source = %s", res.Source)
	}
	if summarizer.calls.Load() != 0 {
		t.Fatalf("summarizer should not run, got %d calls", summarizer.calls.Load())
	}
}

func TestResolveFallsBackToSummarizerWithHint(t *testing.T) {
	community := &fakeCommunity{text: "Short blurb."}
	summarizer := &fakeSummarizer{text: "  A generated summary.  "}
	opts := testOptions()
	opts.HintLength = 10
	p := synopsis.New(community, summarizer, nil, opts, logging.NewNop())

	rec := testsupport.Dune()
	res := p.Resolve(context.Background(), rec)
	p.Wait()

	if res.Source != book.SourceLLM || res.Text != "A generated summary." {
		t.Fatalf("unexpected result %+v", res.Result)
	}
	req, _ := summarizer.lastReq.Load().(summary.Request)
	if req.Title != "Dune" || len(req.Authors) != 1 {
		t.Fatalf("unexpected request %+v", req)
	}
	if got := len([]rune(req.DescriptionHint)); got != 10 {
		t.Fatalf("hint length = %d, want 10", got)
	}
}

func TestResolveHintOnlyFromCatalogBlurb(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		source book.DescriptionSource
		want   string
	}{
		{name: "catalog blurb", text: "Set on the desert planet Arrakis.", source: book.SourceCatalog, want: "Set on the desert planet Arrakis."},
		{name: "short stored summary", text: "Too short.", source: book.SourceLLM, want: ""},
		{name: "short community text", text: "Too short.", source: book.SourceCommunity, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summarizer := &fakeSummarizer{text: "A generated summary."}
			p := synopsis.New(nil, summarizer, nil, testOptions(), logging.NewNop())

			rec := testsupport.Dune()
			rec.Description = tt.text
			rec.DescriptionSource = tt.source
			p.Resolve(context.Background(), rec)
			p.Wait()

			req, _ := summarizer.lastReq.Load().(summary.Request)
			if req.DescriptionHint != tt.want {
				t.Fatalf("hint = %q, want %q", req.DescriptionHint, tt.want)
			}
		})
	}
}

func TestNewDefaultsZeroOptions(t *testing.T) {
	community := &fakeCommunity{text: strings.Repeat("c", 150)}
	summarizer := &fakeSummarizer{text: "A generated summary."}
	p := synopsis.New(community, summarizer, nil, synopsis.Options{}, logging.NewNop())

	res := p.Resolve(context.Background(), testsupport.Dune())
	p.Wait()
	if res.Pending || res.Source != book.SourceCommunity || res.Text != community.text {
		t.Fatalf("unexpected result %+v pending=%v", res.Result, res.Pending)
	}

	p = synopsis.New(nil, summarizer, nil, synopsis.Options{}, logging.NewNop())
	res = p.Resolve(context.Background(), testsupport.Dune())
	p.Wait()
	if res.Pending || res.Source != book.SourceLLM || res.Text != "A generated summary." {
		t.Fatalf("unexpected result %+v pending=%v", res.Result, res.Pending)
	}
}

func TestResolveAllSourcesFail(t *testing.T) {
	tests := []struct {
		name       string
		community  synopsis.CommunitySource
		summarizer summary.Summarizer
	}{
		{name: "no collaborators"},
		{name: "errors", community: &fakeCommunity{}, summarizer: &fakeSummarizer{err: errors.New("boom")}},
		{name: "blank summary", community: &fakeCommunity{}, summarizer: &fakeSummarizer{text: "   "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := synopsis.New(tt.community, tt.summarizer, nil, testOptions(), logging.NewNop())
			res := p.Resolve(context.Background(), testsupport.Dune())
			p.Wait()
			if res.Text != book.NoSummary || res.Source != book.SourceNone || res.Pending {
				t.Fatalf("expected fallback, got %+v", res)
			}
		})
	}
}

func TestResolvePendingDeliversUpdateOnce(t *testing.T) {
	summarizer := &fakeSummarizer{text: "A generated summary.", release: make(chan struct{})}
	opts := testOptions()
	opts.Wait = 20 * time.Millisecond
	p := synopsis.New(nil, summarizer, nil, opts, logging.NewNop())

	res := p.Resolve(context.Background(), testsupport.Dune())
	if !res.Pending || res.Text != book.FetchingSummary || res.Updates == nil {
		t.Fatalf("expected pending interim result, got %+v", res)
	}
	close(summarizer.release)

	select {
	case update, ok := <-res.Updates:
		if !ok {
			t.Fatal("updates closed without a result")
		}
		if update.Text != "A generated summary." || update.Source != book.SourceLLM {
			t.Fatalf("unexpected update %+v", update)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update")
	}
	if _, ok := <-res.Updates; ok {
		t.Fatal("expected updates to be closed after one result")
	}
	p.Wait()
}

func TestResolveDeadlineEmitsFallback(t *testing.T) {
	summarizer := &fakeSummarizer{text: "late", release: make(chan struct{})}
	opts := testOptions()
	opts.Wait = 5 * time.Millisecond
	opts.Deadline = 40 * time.Millisecond
	p := synopsis.New(nil, summarizer, nil, opts, logging.NewNop())

	res := p.Resolve(context.Background(), testsupport.Dune())
	if !res.Pending {
		t.Fatalf("expected pending result, got %+v", res)
	}
	update := <-res.Updates
	if update.Text != book.NoSummary || update.Source != book.SourceNone {
		t.Fatalf("expected fallback after deadline, got %+v", update)
	}
	p.Wait()
}

func TestResolveWritesBackImprovement(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenShelves(t, cfg)
	saved := testsupport.Shelve(t, store, book.ShelfReading, testsupport.Dune())

	community := &fakeCommunity{text: strings.Repeat("c", 150)}
	p := synopsis.New(community, nil, store, testOptions(), logging.NewNop())

	res := p.Resolve(context.Background(), saved)
	p.Wait()
	if res.Source != book.SourceCommunity {
		t.Fatalf("source = %s", res.Source)
	}

	got, where, ok := store.FindAnywhere(context.Background(), saved.ID)
	if !ok || where != book.ShelfReading {
		t.Fatalf("expected record on reading, got %s ok=%v", where, ok)
	}
	if got.Description != community.text || got.DescriptionSource != book.SourceCommunity {
		t.Fatalf("synopsis not written back: %+v", got)
	}
	if got.UpdatedAt.Before(saved.UpdatedAt) {
		t.Fatalf("updatedAt moved backwards: %s < %s", got.UpdatedAt, saved.UpdatedAt)
	}

	// A second resolve reads the stored synopsis without calling out.
	again := p.Resolve(context.Background(), got)
	p.Wait()
	if again.Source != book.SourceCommunity || community.calls.Load() != 1 {
		t.Fatalf("expected stored synopsis reuse, got %+v after %d calls", again.Result, community.calls.Load())
	}
}

func TestResolveNeverWritesFallback(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenShelves(t, cfg)
	saved := testsupport.Shelve(t, store, book.ShelfToRead, testsupport.Dune())

	p := synopsis.New(&fakeCommunity{}, &fakeSummarizer{err: errors.New("down")}, store, testOptions(), logging.NewNop())
	res := p.Resolve(context.Background(), saved)
	p.Wait()
	if res.Text != book.NoSummary {
		t.Fatalf("expected fallback, got %+v", res)
	}

	got, _, _ := store.FindAnywhere(context.Background(), saved.ID)
	if got.Description != saved.Description || got.DescriptionSource != book.SourceCatalog {
		t.Fatalf("fallback leaked into store: %+v", got)
	}
}

func TestResolveUnshelvedBookSkipsWriteBack(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenShelves(t, cfg)

	p := synopsis.New(nil, &fakeSummarizer{text: "A generated summary."}, store, testOptions(), logging.NewNop())
	res := p.Resolve(context.Background(), testsupport.Dune())
	p.Wait()
	if res.Source != book.SourceLLM {
		t.Fatalf("source = %s", res.Source)
	}
	if counts := store.Counts(context.Background()); counts[book.ShelfToRead] != 0 {
		t.Fatalf("unshelved book was stored: %v", counts)
	}
}

func TestResolveWriteBackFollowsMove(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenShelves(t, cfg)
	saved := testsupport.Shelve(t, store, book.ShelfToRead, testsupport.Dune())

	summarizer := &fakeSummarizer{text: "A generated summary.", release: make(chan struct{})}
	opts := testOptions()
	opts.Wait = 10 * time.Millisecond
	p := synopsis.New(nil, summarizer, store, opts, logging.NewNop())

	res := p.Resolve(context.Background(), saved)
	if !res.Pending {
		t.Fatalf("expected pending, got %+v", res)
	}
	if moved, err := store.Move(context.Background(), book.ShelfToRead, book.ShelfFinished, saved.ID); err != nil || !moved {
		t.Fatalf("Move: moved=%v err=%v", moved, err)
	}
	close(summarizer.release)
	<-res.Updates
	p.Wait()

	got, where, ok := store.FindAnywhere(context.Background(), saved.ID)
	if !ok || where != book.ShelfFinished {
		t.Fatalf("expected book on finished, got %s ok=%v", where, ok)
	}
	if got.Description != "A generated summary." || got.Status != book.ShelfFinished {
		t.Fatalf("write-back did not land on the current shelf: %+v", got)
	}
	counts := store.Counts(context.Background())
	if counts[book.ShelfToRead] != 0 || counts[book.ShelfFinished] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}
