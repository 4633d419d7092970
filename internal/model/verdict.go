package model

// VerdictLabel is the closed set of truth assessments a backend can return.
type VerdictLabel string

const (
	LabelTrue       VerdictLabel = "true"
	LabelFalse      VerdictLabel = "false"
	LabelDisputed   VerdictLabel = "disputed"
	LabelUnverified VerdictLabel = "unverified"
)

// ValidLabel reports whether l is one of the closed label set.
func ValidLabel(l VerdictLabel) bool {
	switch l {
	case LabelTrue, LabelFalse, LabelDisputed, LabelUnverified:
		return true
	}
	return false
}

// Verdict is one backend's assessment of a claim.
type Verdict struct {
	ClaimID         string       `json:"claim_id"`
	Backend         string       `json:"backend,omitempty"`
	Label           VerdictLabel `json:"label"`
	Confidence      float64      `json:"confidence"` // in [0,1]
	EvidenceSources []string     `json:"evidence_sources,omitempty"`
}

// Unverified returns the zero-confidence verdict recorded for a claim
// with no successful backend responses.
func Unverified(claimID string) Verdict {
	return Verdict{
		ClaimID:    claimID,
		Label:      LabelUnverified,
		Confidence: 0,
	}
}

// FactCheckResult aggregates per-claim verdicts for one article.
type FactCheckResult struct {
	OverallConfidence float64            `json:"overall_confidence"`
	ClaimVerdicts     map[string]Verdict `json:"claim_verdicts"`

	// LowConfidence flags a report whose overall confidence fell below
	// the configured threshold. Flagged, never discarded.
	LowConfidence bool `json:"low_confidence"`
}

// SentimentLabel is the five-level sentiment scale.
type SentimentLabel string

const (
	SentimentVeryNegative SentimentLabel = "very_negative"
	SentimentNegative     SentimentLabel = "negative"
	SentimentNeutral      SentimentLabel = "neutral"
	SentimentPositive     SentimentLabel = "positive"
	SentimentVeryPositive SentimentLabel = "very_positive"
)

// SentimentResult is the article-level sentiment, independent of fact-checking.
type SentimentResult struct {
	Label SentimentLabel `json:"label"`
	Score float64        `json:"score"` // in [-1,1]
}

// SentimentLabelForScore maps a score in [-1,1] onto the label scale.
func SentimentLabelForScore(score float64) SentimentLabel {
	switch {
	case score <= -0.6:
		return SentimentVeryNegative
	case score <= -0.2:
		return SentimentNegative
	case score < 0.2:
		return SentimentNeutral
	case score < 0.6:
		return SentimentPositive
	default:
		return SentimentVeryPositive
	}
}
