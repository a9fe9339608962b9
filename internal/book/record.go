package book

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	// PlaceholderTitle stands in for a missing upstream title.
	PlaceholderTitle = "Untitled"
	// NoSummary is shown when no synopsis source produced text.
	NoSummary = "No summary available."
	// FetchingSummary is the interim text shown while sources are pending.
	FetchingSummary = "Fetching summary…"
)

// Record is the canonical book shape persisted on shelves.
type Record struct {
	ID                string            `json:"id" yaml:"id" validate:"required"`
	Title             string            `json:"title" yaml:"title"`
	Authors           []string          `json:"authors" yaml:"authors"`
	Thumbnail         string            `json:"thumbnail,omitempty" yaml:"thumbnail,omitempty" validate:"omitempty,url"`
	InfoLink          string            `json:"infoLink,omitempty" yaml:"infoLink,omitempty" validate:"omitempty,url"`
	Description       string            `json:"description,omitempty" yaml:"description,omitempty"`
	DescriptionSource DescriptionSource `json:"descriptionSource,omitempty" yaml:"descriptionSource,omitempty" validate:"omitempty,oneof=none catalog community llm"`
	ISBN10            string            `json:"isbn10,omitempty" yaml:"isbn10,omitempty"`
	ISBN13            string            `json:"isbn13,omitempty" yaml:"isbn13,omitempty"`
	CommunityAverage  *float64          `json:"communityAverage,omitempty" yaml:"communityAverage,omitempty" validate:"omitempty,gte=0,lte=5"`
	CommunityCount    *int              `json:"communityCount,omitempty" yaml:"communityCount,omitempty" validate:"omitempty,gte=0"`
	Rating            float64           `json:"rating" yaml:"rating" validate:"quarter"`
	Status            Status            `json:"status" yaml:"status" validate:"required,oneof=toRead reading finished abandoned"`
	CreatedAt         time.Time         `json:"createdAt" yaml:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt" yaml:"updatedAt"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("quarter", func(fl validator.FieldLevel) bool {
		return IsQuantized(fl.Field().Float())
	})
}

// Validate checks the record against the persisted-shape rules.
func (r Record) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate record: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "quarter":
			msgs = append(msgs, fmt.Sprintf("%s must be a quarter step between 0 and 5", fe.Field()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return fmt.Errorf("invalid record %q: %s", r.ID, strings.Join(msgs, "; "))
}

// Rated reports whether the record carries a personal rating.
func (r Record) Rated() bool {
	return r.Rating > 0
}

// FirstAuthor returns the first non-blank author or "".
func (r Record) FirstAuthor() string {
	for _, author := range r.Authors {
		if trimmed := strings.TrimSpace(author); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// HasCommunity reports whether a usable community aggregate is present.
func (r Record) HasCommunity() bool {
	return r.CommunityAverage != nil && r.CommunityCount != nil && *r.CommunityCount > 0
}

// Source returns the description provenance, treating blank as none.
func (r Record) Source() DescriptionSource {
	if r.DescriptionSource == "" || strings.TrimSpace(r.Description) == "" {
		return SourceNone
	}
	return r.DescriptionSource
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	out := r
	if r.Authors != nil {
		out.Authors = append([]string(nil), r.Authors...)
	}
	if r.CommunityAverage != nil {
		avg := *r.CommunityAverage
		out.CommunityAverage = &avg
	}
	if r.CommunityCount != nil {
		count := *r.CommunityCount
		out.CommunityCount = &count
	}
	return out
}

// WithCommunity returns a copy carrying the given aggregate.
func (r Record) WithCommunity(average float64, count int) Record {
	out := r.Clone()
	out.CommunityAverage = &average
	out.CommunityCount = &count
	return out
}
