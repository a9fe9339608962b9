package summary_test

import (
	"strings"
	"testing"

	"stoneware/internal/summary"
)

func TestRequestNormalizedCapsHint(t *testing.T) {
	req := summary.Request{
		Title:           "  Dune ",
		Authors:         []string{" ", "Frank Herbert "},
		DescriptionHint: strings.Repeat("é", 700),
	}.Normalized()

	if req.Title != "Dune" {
		t.Fatalf("title = %q", req.Title)
	}
	if len(req.Authors) != 1 || req.Authors[0] != "Frank Herbert" {
		t.Fatalf("authors = %v", req.Authors)
	}
	if got := len([]rune(req.DescriptionHint)); got != summary.MaxHintLength {
		t.Fatalf("hint length = %d, want %d", got, summary.MaxHintLength)
	}
}

func TestRequestCacheKey(t *testing.T) {
	tests := []struct {
		name string
		req  summary.Request
		want string
	}{
		{name: "title and author", req: summary.Request{Title: " The Sparrow", Authors: []string{"Mary Doria Russell", "Other"}}, want: "the sparrow||mary doria russell"},
		{name: "no authors", req: summary.Request{Title: "Dune"}, want: "dune||"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.req.CacheKey(); got != tt.want {
				t.Fatalf("CacheKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPromptMentionsBookAndConstraints(t *testing.T) {
	prompt := summary.Prompt(summary.Request{
		Title:           "Dune",
		Authors:         []string{"Frank Herbert"},
		DescriptionHint: "Desert planet.",
	})
	for _, want := range []string{`"Dune"`, "by Frank Herbert", "3-5 sentences", "spoiler-safe", "~120 words", "Desert planet."} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(summary.Prompt(summary.Request{Title: "Dune"}), "Context") {
		t.Error("prompt without hint should omit context line")
	}
}
