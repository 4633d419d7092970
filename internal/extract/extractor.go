// Package extract turns fetched article text into an ordered sequence of
// checkable claims. Text understanding is delegated to a claim backend;
// this package owns the length bounds, claim identity, and ordering.
package extract

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"newsanalyst/internal/backend"
	"newsanalyst/internal/dispatch"
	"newsanalyst/internal/model"
)

// Extractor validates article bounds and assigns claim IDs and spans.
type Extractor struct {
	provider   backend.ClaimProvider
	dispatcher *dispatch.Dispatcher
	minWords   int
	maxWords   int
}

// New creates an extractor.
func New(provider backend.ClaimProvider, dispatcher *dispatch.Dispatcher, cfg model.ArticleConfig) *Extractor {
	return &Extractor{
		provider:   provider,
		dispatcher: dispatcher,
		minWords:   cfg.MinLength,
		maxWords:   cfg.MaxLength,
	}
}

// Extract returns the article's claims in extraction order, possibly
// empty. Articles outside the configured word bounds fail with
// ErrContentTooShort / ErrContentTooLong; neither is retried.
func (e *Extractor) Extract(ctx context.Context, article *model.FetchedArticle) ([]model.Claim, error) {
	if article.WordCount < e.minWords {
		return nil, fmt.Errorf("%w: %d words < %d", model.ErrContentTooShort, article.WordCount, e.minWords)
	}
	if article.WordCount > e.maxWords {
		return nil, fmt.Errorf("%w: %d words > %d", model.ErrContentTooLong, article.WordCount, e.maxWords)
	}

	var sentences []string
	err := e.dispatcher.Do(ctx, e.provider.Name(), func(ctx context.Context) error {
		var callErr error
		sentences, callErr = e.provider.Claims(ctx, article.Text)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("extract claims: %w", err)
	}

	claims := make([]model.Claim, 0, len(sentences))
	for i, text := range sentences {
		claims = append(claims, model.Claim{
			ID:   uuid.NewString(),
			Text: text,
			Span: model.SourceSpan{Start: i, End: i + 1},
		})
	}
	return claims, nil
}
