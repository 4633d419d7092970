package extract

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"newsanalyst/internal/dispatch"
	"newsanalyst/internal/model"
)

type stubClaimProvider struct {
	claims []string
	err    error
}

func (s *stubClaimProvider) Name() string { return "stub" }
func (s *stubClaimProvider) Claims(_ context.Context, _ string) ([]string, error) {
	return s.claims, s.err
}

func testDispatcher() *dispatch.Dispatcher {
	return dispatch.New(
		model.RateLimitConfig{RequestsPerMinute: 60000, Burst: 100},
		model.DispatchConfig{CallTimeout: time.Second, MaxRetries: 1},
		nil,
	)
}

func article(words int) *model.FetchedArticle {
	text := strings.TrimSpace(strings.Repeat("word ", words))
	return &model.FetchedArticle{Text: text, WordCount: words}
}

func TestExtract_OrderedClaimsWithIDs(t *testing.T) {
	provider := &stubClaimProvider{claims: []string{"first claim", "second claim"}}
	e := New(provider, testDispatcher(), model.ArticleConfig{MinLength: 1, MaxLength: 100})

	claims, err := e.Extract(context.Background(), article(10))
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if len(claims) != 2 {
		t.Fatalf("expected 2 claims, got %d", len(claims))
	}
	if claims[0].Text != "first claim" || claims[1].Text != "second claim" {
		t.Error("claim order not preserved")
	}
	if claims[0].ID == "" || claims[0].ID == claims[1].ID {
		t.Error("claims need distinct IDs")
	}
	if claims[1].Span.Start != 1 || claims[1].Span.End != 2 {
		t.Errorf("unexpected span: %+v", claims[1].Span)
	}
}

func TestExtract_EmptyIsNotAnError(t *testing.T) {
	e := New(&stubClaimProvider{}, testDispatcher(), model.ArticleConfig{MinLength: 1, MaxLength: 100})
	claims, err := e.Extract(context.Background(), article(10))
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if len(claims) != 0 {
		t.Errorf("expected no claims, got %d", len(claims))
	}
}

func TestExtract_Bounds(t *testing.T) {
	e := New(&stubClaimProvider{}, testDispatcher(), model.ArticleConfig{MinLength: 5, MaxLength: 20})

	if _, err := e.Extract(context.Background(), article(3)); !errors.Is(err, model.ErrContentTooShort) {
		t.Errorf("expected too-short error, got %v", err)
	}
	if _, err := e.Extract(context.Background(), article(30)); !errors.Is(err, model.ErrContentTooLong) {
		t.Errorf("expected too-long error, got %v", err)
	}
}

func TestExtract_BackendFailureSurfaces(t *testing.T) {
	provider := &stubClaimProvider{err: &model.BackendError{Kind: model.BackendInvalidResponse, Backend: "stub"}}
	e := New(provider, testDispatcher(), model.ArticleConfig{MinLength: 1, MaxLength: 100})

	_, err := e.Extract(context.Background(), article(10))
	var be *model.BackendError
	if !errors.As(err, &be) {
		t.Errorf("expected backend error, got %v", err)
	}
}
