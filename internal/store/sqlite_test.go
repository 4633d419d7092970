package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"newsanalyst/internal/model"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "reports.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleReport(url string) *model.AnalysisReport {
	return &model.AnalysisReport{
		Request: model.ArticleRequest{URL: url},
		Article: model.FetchedArticle{
			URL:         url,
			Title:       "Sample",
			Text:        "sample text",
			ContentHash: model.HashContent("sample text"),
			WordCount:   2,
			FetchedAt:   time.Now().UTC().Truncate(time.Second),
		},
		FactCheck: model.FactCheckResult{
			OverallConfidence: 0.8,
			ClaimVerdicts: map[string]model.Verdict{
				"c1": {ClaimID: "c1", Label: model.LabelTrue, Confidence: 0.8},
			},
		},
		Sentiment:  &model.SentimentResult{Label: model.SentimentNeutral, Score: 0},
		ComputedAt: time.Now().UTC().Truncate(time.Second),
		Version:    model.AnalysisVersion,
	}
}

func TestPutGet_Roundtrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	want := sampleReport("http://example.com/a")
	if err := s.Put(ctx, want); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	got, err := s.Get(ctx, want.Fingerprint())
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Article.URL != want.Article.URL || got.FactCheck.OverallConfidence != want.FactCheck.OverallConfidence {
		t.Errorf("roundtrip mismatch: %+v", got)
	}
	if got.FactCheck.ClaimVerdicts["c1"].Label != model.LabelTrue {
		t.Error("claim verdicts lost in roundtrip")
	}
}

func TestGet_NotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPut_UpsertSameFingerprint(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	report := sampleReport("http://example.com/a")
	if err := s.Put(ctx, report); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	report.FactCheck.OverallConfidence = 0.9
	if err := s.Put(ctx, report); err != nil {
		t.Fatalf("second put failed: %v", err)
	}

	got, err := s.Get(ctx, report.Fingerprint())
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.FactCheck.OverallConfidence != 0.9 {
		t.Errorf("expected updated report, got %v", got.FactCheck.OverallConfidence)
	}
}
