package catalog

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"stoneware/internal/book"
	"stoneware/internal/textutil"
)

// lineBreakPattern matches tags that end a visual line in catalog blurbs.
var lineBreakPattern = regexp.MustCompile(`(?i)<br\s*/?>|</(p|div|li)>`)

// Normalize converts a catalog volume into an unshelved record. Missing
// optional fields resolve to empty values.
func Normalize(v Volume) book.Record {
	info := v.VolumeInfo
	rec := book.Record{
		ID:       strings.TrimSpace(v.ID),
		Title:    textutil.CollapseSpace(info.Title),
		Authors:  cleanAuthors(info.Authors),
		InfoLink: secureURL(info.InfoLink),
		Status:   book.ShelfToRead,
	}
	if rec.Title == "" {
		rec.Title = book.PlaceholderTitle
	}
	if info.ImageLinks != nil {
		thumb := info.ImageLinks.Thumbnail
		if strings.TrimSpace(thumb) == "" {
			thumb = info.ImageLinks.SmallThumbnail
		}
		rec.Thumbnail = secureURL(thumb)
	}
	for _, id := range info.IndustryIdentifiers {
		switch strings.ToUpper(strings.TrimSpace(id.Type)) {
		case "ISBN_13":
			if rec.ISBN13 == "" {
				rec.ISBN13 = textutil.DigitsOnly(id.Identifier)
			}
		case "ISBN_10":
			if rec.ISBN10 == "" {
				rec.ISBN10 = textutil.DigitsOnly(id.Identifier)
			}
		}
	}
	if blurb := PlainText(info.Description); blurb != "" {
		rec.Description = blurb
		rec.DescriptionSource = book.SourceCatalog
	} else {
		rec.DescriptionSource = book.SourceNone
	}
	if info.RatingsCount > 0 && info.AverageRating > 0 {
		rec = rec.WithCommunity(info.AverageRating, info.RatingsCount)
	}
	return rec
}

// Merge refreshes a previously known local record with a fetched catalog
// record. Catalog metadata wins when present; the user's rating, shelf status
// and timestamps are kept, a vetted local synopsis is never replaced by a
// catalog blurb, and a local community aggregate is kept since it may already
// carry community data.
func Merge(fetched, local book.Record) book.Record {
	if strings.TrimSpace(local.ID) == "" {
		return fetched.Clone()
	}
	out := fetched.Clone()
	out.ID = local.ID

	if out.Title == "" || (out.Title == book.PlaceholderTitle && local.Title != "") {
		out.Title = local.Title
	}
	if len(out.Authors) == 0 && len(local.Authors) > 0 {
		out.Authors = append([]string(nil), local.Authors...)
	}
	out.Thumbnail = orElse(out.Thumbnail, local.Thumbnail)
	out.InfoLink = orElse(out.InfoLink, local.InfoLink)
	out.ISBN10 = orElse(out.ISBN10, local.ISBN10)
	out.ISBN13 = orElse(out.ISBN13, local.ISBN13)

	if local.Source().Vetted() || (out.Source() == book.SourceNone && local.Source() != book.SourceNone) {
		out.Description = local.Description
		out.DescriptionSource = local.Source()
	}
	if local.HasCommunity() {
		kept := local.Clone()
		out.CommunityAverage, out.CommunityCount = kept.CommunityAverage, kept.CommunityCount
	}

	out.Rating = local.Rating
	if local.Status.Valid() {
		out.Status = local.Status
	}
	out.CreatedAt = local.CreatedAt
	out.UpdatedAt = local.UpdatedAt
	return out
}

// PlainText converts a catalog HTML blurb into plain text with paragraphs
// separated by blank lines.
func PlainText(html string) string {
	html = strings.TrimSpace(html)
	if html == "" {
		return ""
	}
	html = lineBreakPattern.ReplaceAllString(html, "\n")
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return textutil.CollapseSpace(html)
	}

	var paragraphs []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		if collapsed := textutil.CollapseSpace(line); collapsed != "" {
			paragraphs = append(paragraphs, collapsed)
		}
	}
	return strings.Join(paragraphs, "\n\n")
}

func cleanAuthors(authors []string) []string {
	out := make([]string, 0, len(authors))
	for _, author := range authors {
		if trimmed := textutil.CollapseSpace(author); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// secureURL upgrades http and protocol-relative links to https. Other
// schemes and unparseable values are returned trimmed but otherwise as is.
func secureURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if strings.EqualFold(u.Scheme, "http") || (u.Scheme == "" && u.Host != "") {
		u.Scheme = "https"
		return u.String()
	}
	return raw
}

func orElse(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}
