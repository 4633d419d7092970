package model

import "time"

// AnalysisVersion identifies the aggregation algorithm that produced a report.
const AnalysisVersion = "1.0"

// AnalysisReport is the terminal artifact of one analysis run.
// Write-once: cached and persisted, never mutated after aggregation.
type AnalysisReport struct {
	Request   ArticleRequest   `json:"request"`
	Article   FetchedArticle   `json:"fetched_article"`
	FactCheck FactCheckResult  `json:"fact_check"`
	Sentiment *SentimentResult `json:"sentiment,omitempty"` // absent when sentiment analysis failed

	ComputedAt   time.Time `json:"computed_at"`
	Version      string    `json:"analysis_version"`
	ProcessingMS int64     `json:"processing_time_ms"`

	// Degraded marks a successful analysis whose best-effort persistence
	// failed. The warning carries the store error text.
	Degraded bool     `json:"degraded,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Fingerprint returns the cache/persistence key of the report. It is
// derived from the request, not the fetched content, so waiters that
// joined before the fetch resolved observe the same key.
func (r *AnalysisReport) Fingerprint() string {
	return RequestFingerprint(r.Request)
}
