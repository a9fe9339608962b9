package shelf

import (
	"strings"

	"stoneware/internal/book"
)

// merge overlays incoming onto prev. Identity and timestamps are handled by the caller.
func merge(prev, incoming book.Record) book.Record {
	out := prev.Clone()

	if title := strings.TrimSpace(incoming.Title); title != "" &&
		!(title == book.PlaceholderTitle && strings.TrimSpace(prev.Title) != "") {
		out.Title = title
	}
	if len(incoming.Authors) > 0 {
		out.Authors = append([]string(nil), incoming.Authors...)
	}
	out.Thumbnail = firstNonEmpty(incoming.Thumbnail, prev.Thumbnail)
	out.InfoLink = firstNonEmpty(incoming.InfoLink, prev.InfoLink)
	out.ISBN10 = firstNonEmpty(incoming.ISBN10, prev.ISBN10)
	out.ISBN13 = firstNonEmpty(incoming.ISBN13, prev.ISBN13)

	if incoming.Source() != book.SourceNone && incoming.Source().Rank() >= prev.Source().Rank() {
		out.Description = incoming.Description
		out.DescriptionSource = incoming.Source()
	}

	if incoming.CommunityAverage != nil && incoming.CommunityCount != nil {
		avg, count := *incoming.CommunityAverage, *incoming.CommunityCount
		out.CommunityAverage = &avg
		out.CommunityCount = &count
	}
	if incoming.Rated() {
		out.Rating = incoming.Rating
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
