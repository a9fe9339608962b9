package book

// DescriptionSource records where a record's description came from.
type DescriptionSource string

const (
	SourceNone      DescriptionSource = "none"
	SourceCatalog   DescriptionSource = "catalog"
	SourceCommunity DescriptionSource = "community"
	SourceLLM       DescriptionSource = "llm"
)

// Rank orders provenance for overwrite decisions. Community and LLM text are
// both vetted and share a rank; a catalog blurb never outranks either.
func (s DescriptionSource) Rank() int {
	switch s {
	case SourceCommunity, SourceLLM:
		return 2
	case SourceCatalog:
		return 1
	default:
		return 0
	}
}

// Vetted reports whether the text was explicitly fetched as a synopsis.
func (s DescriptionSource) Vetted() bool {
	return s.Rank() >= 2
}

// Valid reports whether s is a known provenance. The empty value is treated
// as none.
func (s DescriptionSource) Valid() bool {
	switch s {
	case "", SourceNone, SourceCatalog, SourceCommunity, SourceLLM:
		return true
	default:
		return false
	}
}
