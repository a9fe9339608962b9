package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"stoneware/internal/textutil"
)

// MaxHintLength caps the description hint forwarded to any backend.
const MaxHintLength = 600

// ErrNoSummary is returned when a backend answers without usable text.
var ErrNoSummary = errors.New("no summary returned")

// Request identifies the book to summarize.
type Request struct {
	Title           string   `json:"title"`
	Authors         []string `json:"authors"`
	DescriptionHint string   `json:"descriptionHint"`
}

// Normalized trims fields, drops empty authors and caps the hint.
func (r Request) Normalized() Request {
	out := Request{
		Title:           strings.TrimSpace(r.Title),
		Authors:         make([]string, 0, len(r.Authors)),
		DescriptionHint: textutil.Truncate(strings.TrimSpace(r.DescriptionHint), MaxHintLength),
	}
	for _, author := range r.Authors {
		if trimmed := strings.TrimSpace(author); trimmed != "" {
			out.Authors = append(out.Authors, trimmed)
		}
	}
	return out
}

// CacheKey identifies the request in the summary cache: lower-cased title
// and first author joined by "||".
func (r Request) CacheKey() string {
	var first string
	if len(r.Authors) > 0 {
		first = r.Authors[0]
	}
	return strings.ToLower(strings.TrimSpace(r.Title)) + "||" + strings.ToLower(strings.TrimSpace(first))
}

// Summarizer generates a summary for a book.
type Summarizer interface {
	Summarize(ctx context.Context, req Request) (string, error)
}

const systemPrompt = "You write short, neutral, spoiler-safe book summaries for a reading list."

// Prompt renders the instruction sent to model-backed summarizers.
func Prompt(req Request) string {
	req = req.Normalized()
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize the book %q", req.Title)
	if len(req.Authors) > 0 {
		fmt.Fprintf(&b, " by %s", strings.Join(req.Authors, ", "))
	}
	b.WriteString(" in 3-5 sentences.\n")
	b.WriteString("Constraints:\n")
	b.WriteString("- Neutral tone, spoiler-safe.\n")
	b.WriteString("- Focus on premise, stakes, and setting; avoid major twists.\n")
	b.WriteString("- Keep it concise (max ~120 words).")
	if req.DescriptionHint != "" {
		b.WriteString("\nContext (may be messy or long, trim as needed): ")
		b.WriteString(req.DescriptionHint)
	}
	return b.String()
}

func validate(req Request) error {
	if req.Title == "" {
		return errors.New("summary: title required")
	}
	return nil
}
