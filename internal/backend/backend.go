// Package backend defines the external collaborator contracts the
// pipeline consumes: claim extraction, claim verification, and sentiment.
package backend

import (
	"context"

	"newsanalyst/internal/model"
)

// Verifier is one verification backend queried per claim.
type Verifier interface {
	Name() string
	Verify(ctx context.Context, claim model.Claim, articleText string) (model.Verdict, error)
}

// SentimentProvider scores one or more article texts in a single call.
// Results are positional: one per input text.
type SentimentProvider interface {
	Name() string
	Sentiment(ctx context.Context, texts []string) ([]model.SentimentResult, error)
}

// ClaimProvider turns article text into an ordered sequence of raw claim
// sentences. IDs and spans are assigned by the extractor, not the backend.
type ClaimProvider interface {
	Name() string
	Claims(ctx context.Context, articleText string) ([]string, error)
}
