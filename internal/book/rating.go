package book

import (
	"math"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// MaxRating is the top of the personal rating scale.
const MaxRating = 5.0

// Quantize rounds x to the nearest quarter and clamps it into [0, 5].
// Zero is the "unrated" sentinel.
func Quantize(x float64) float64 {
	if math.IsNaN(x) || x <= 0 {
		return 0
	}
	if x >= MaxRating {
		return MaxRating
	}
	return math.Round(x*4) / 4
}

// IsQuantized reports whether x is already a quarter step within range.
func IsQuantized(x float64) bool {
	return x >= 0 && x <= MaxRating && Quantize(x) == x
}

// FormatRating renders a personal rating for display.
func FormatRating(rating float64) string {
	if rating <= 0 {
		return "No rating"
	}
	return strconv.FormatFloat(Quantize(rating), 'f', -1, 64)
}

var countPrinter = message.NewPrinter(language.English)

// FormatCommunity renders a community aggregate such as "4.12 ★ (1,234)".
func FormatCommunity(average *float64, count *int) string {
	if average == nil || count == nil || *count <= 0 || *average <= 0 {
		return "No community rating"
	}
	return countPrinter.Sprintf("%.2f ★ (%d)", *average, *count)
}
