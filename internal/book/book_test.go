package book_test

import (
	"errors"
	"math"
	"strings"
	"testing"

	"stoneware/internal/book"
)

func TestQuantize(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{3.6, 3.5},
		{3.63, 3.75},
		{0.1, 0},
		{0.125, 0.25},
		{4.874, 4.75},
		{-2, 0},
		{7, 5},
		{math.NaN(), 0},
		{math.Inf(1), 5},
	}
	for _, tt := range tests {
		if got := book.Quantize(tt.in); got != tt.want {
			t.Errorf("Quantize(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestQuantizeProperties(t *testing.T) {
	for i := 0; i <= 5000; i++ {
		x := float64(i) / 1000
		q := book.Quantize(x)
		if math.Mod(q*4, 1) != 0 {
			t.Fatalf("Quantize(%v) = %v is not a quarter step", x, q)
		}
		if math.Abs(q-x) > 0.125+1e-9 {
			t.Fatalf("Quantize(%v) = %v drifted more than an eighth", x, q)
		}
		if book.Quantize(q) != q {
			t.Fatalf("Quantize not idempotent at %v", x)
		}
	}
}

func TestParseShelf(t *testing.T) {
	tests := []struct {
		in   string
		want book.Shelf
	}{
		{"toRead", book.ShelfToRead},
		{"to-read", book.ShelfToRead},
		{" WANT ", book.ShelfToRead},
		{"current", book.ShelfReading},
		{"Finished", book.ShelfFinished},
		{"done", book.ShelfFinished},
		{"dnf", book.ShelfAbandoned},
	}
	for _, tt := range tests {
		got, err := book.ParseShelf(tt.in)
		if err != nil {
			t.Fatalf("ParseShelf(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseShelf(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if _, err := book.ParseShelf("wishlist"); !errors.Is(err, book.ErrInvalidShelf) {
		t.Fatalf("expected ErrInvalidShelf, got %v", err)
	}
}

func TestShelfLabelsAndKeys(t *testing.T) {
	if got := book.ShelfToRead.Label(); got != "To Read" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := book.ShelfAbandoned.StorageKey(); got != "books_abandoned" {
		t.Fatalf("unexpected storage key %q", got)
	}
	if len(book.Shelves()) != 4 {
		t.Fatalf("expected four shelves")
	}
}

func TestDescriptionSourceRank(t *testing.T) {
	if book.SourceCatalog.Rank() <= book.SourceNone.Rank() {
		t.Fatal("catalog should outrank none")
	}
	if book.SourceCatalog.Rank() >= book.SourceCommunity.Rank() {
		t.Fatal("community should outrank catalog")
	}
	if !book.SourceLLM.Vetted() || book.SourceCatalog.Vetted() {
		t.Fatal("unexpected vetted classification")
	}
}

func TestRecordValidate(t *testing.T) {
	valid := book.Record{ID: "ID1", Title: "Dune", Status: book.ShelfFinished, Rating: 3.5}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid record, got %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(*book.Record)
		wantErr string
	}{
		{"missing id", func(r *book.Record) { r.ID = "" }, "ID is required"},
		{"off-step rating", func(r *book.Record) { r.Rating = 3.6 }, "quarter step"},
		{"unknown status", func(r *book.Record) { r.Status = "wishlist" }, "Status must be one of"},
		{"bad thumbnail", func(r *book.Record) { r.Thumbnail = "not a url" }, "Thumbnail is invalid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := valid.Clone()
			tt.mutate(&rec)
			err := rec.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	rec := book.Record{ID: "ID1", Authors: []string{"Frank Herbert"}}.WithCommunity(4.2, 10)
	clone := rec.Clone()
	clone.Authors[0] = "Someone Else"
	*clone.CommunityAverage = 1
	if rec.Authors[0] != "Frank Herbert" || *rec.CommunityAverage != 4.2 {
		t.Fatal("clone shares state with original")
	}
}

func TestFormatting(t *testing.T) {
	avg, count := 4.123, 1234
	if got := book.FormatCommunity(&avg, &count); got != "4.12 ★ (1,234)" {
		t.Fatalf("unexpected community format %q", got)
	}
	zero := 0
	if got := book.FormatCommunity(&avg, &zero); got != "No community rating" {
		t.Fatalf("zero count should read as no data, got %q", got)
	}
	if got := book.FormatRating(3.5); got != "3.5" {
		t.Fatalf("unexpected rating format %q", got)
	}
	if got := book.FormatRating(0); got != "No rating" {
		t.Fatalf("unexpected unrated format %q", got)
	}
}

func TestFirstAuthorSkipsBlank(t *testing.T) {
	rec := book.Record{Authors: []string{"  ", "Ursula K. Le Guin"}}
	if got := rec.FirstAuthor(); got != "Ursula K. Le Guin" {
		t.Fatalf("unexpected first author %q", got)
	}
}
