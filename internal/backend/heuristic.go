package backend

import (
	"context"
	"strings"

	"newsanalyst/internal/model"
)

// HeuristicProvider is the built-in offline backend. It extracts claims
// by keyword-matching sentences and scores sentiment with a small
// lexicon. Verification without an external source always yields
// unverified; only the extraction and sentiment paths carry signal.
// Deterministic, which also makes it the fixture backend in tests.
type HeuristicProvider struct {
	keywords []string
	positive map[string]bool
	negative map[string]bool
}

// NewHeuristicProvider creates the offline provider.
func NewHeuristicProvider() *HeuristicProvider {
	return &HeuristicProvider{
		keywords: []string{
			"according to", "reported", "announced", "confirmed", "stated",
			"found that", "showed", "revealed", "originated", "first",
			"invented", "established", "founded", "created", "discovered",
			"percent", "%", "million", "billion", "increased", "decreased",
		},
		positive: wordSet("good great excellent positive success successful win won gain growth improve improved strong record breakthrough praised"),
		negative: wordSet("bad poor negative fail failed failure loss lost decline crisis crash fraud scandal war death dead killed collapse weak fear"),
	}
}

// Name returns the provider name.
func (p *HeuristicProvider) Name() string { return "heuristic" }

// Claims returns sentences that look like checkable assertions, in
// article order.
func (p *HeuristicProvider) Claims(_ context.Context, articleText string) ([]string, error) {
	var claims []string
	for _, sentence := range SplitSentences(articleText) {
		lower := strings.ToLower(sentence)
		for _, keyword := range p.keywords {
			if strings.Contains(lower, keyword) {
				claims = append(claims, sentence)
				break
			}
		}
	}
	return claims, nil
}

// Sentiment scores each text by lexicon hit balance.
func (p *HeuristicProvider) Sentiment(_ context.Context, texts []string) ([]model.SentimentResult, error) {
	results := make([]model.SentimentResult, len(texts))
	for i, text := range texts {
		score := p.score(text)
		results[i] = model.SentimentResult{
			Label: model.SentimentLabelForScore(score),
			Score: score,
		}
	}
	return results, nil
}

// Verify has no external knowledge to draw on.
func (p *HeuristicProvider) Verify(_ context.Context, claim model.Claim, _ string) (model.Verdict, error) {
	return model.Unverified(claim.ID), nil
}

func (p *HeuristicProvider) score(text string) float64 {
	var pos, neg int
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?\"'()")
		if p.positive[word] {
			pos++
		}
		if p.negative[word] {
			neg++
		}
	}
	total := pos + neg
	if total == 0 {
		return 0
	}
	return float64(pos-neg) / float64(total)
}

// SplitSentences splits normalized text on sentence terminators.
func SplitSentences(text string) []string {
	text = strings.ReplaceAll(text, "\n", " ")

	var sentences []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			s := strings.TrimSpace(current.String())
			if len(s) > 3 {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); len(s) > 3 {
		sentences = append(sentences, s)
	}
	return sentences
}

func wordSet(words string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(words) {
		set[w] = true
	}
	return set
}
