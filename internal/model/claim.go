package model

// Claim is a single checkable factual assertion extracted from article text.
type Claim struct {
	ID   string `json:"id"`
	Text string `json:"text"`

	// Span locates the claim in the extraction order of the article.
	// Extraction order only; not semantically significant.
	Span SourceSpan `json:"source_span"`
}

// SourceSpan is a half-open sentence range [Start, End) within the
// normalized article text.
type SourceSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}
