package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"newsanalyst/internal/model"
)

// ChatProvider serves verification, sentiment, and claim-extraction
// queries through an OpenAI-compatible chat completions endpoint. A
// custom BaseURL covers self-hosted endpoints exposing the same API.
type ChatProvider struct {
	name   string
	client *openai.Client
	model  string
}

// NewChatProvider creates a provider for one named backend.
func NewChatProvider(name string, cfg model.BackendConfig) (*ChatProvider, error) {
	if cfg.APIKey == "" && cfg.Endpoint == "" {
		return nil, fmt.Errorf("backend %s: endpoint or API key required", name)
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = cfg.Endpoint
	}

	chatModel := cfg.Model
	if chatModel == "" {
		chatModel = openai.GPT4oMini
	}

	return &ChatProvider{
		name:   name,
		client: openai.NewClientWithConfig(clientConfig),
		model:  chatModel,
	}, nil
}

// Name returns the configured backend name.
func (p *ChatProvider) Name() string { return p.name }

type verifyResponse struct {
	Label      string   `json:"label"`
	Confidence float64  `json:"confidence"`
	Sources    []string `json:"sources"`
}

// Verify asks the backend to assess one claim against the article text.
func (p *ChatProvider) Verify(ctx context.Context, claim model.Claim, articleText string) (model.Verdict, error) {
	prompt := fmt.Sprintf(`Assess the factual claim below against the article it was extracted from and your general knowledge.

Claim: %s

Article:
%s

Respond with a single JSON object, no prose:
{"label": "true" | "false" | "disputed" | "unverified", "confidence": <0.0-1.0>, "sources": ["identifier", ...]}`,
		claim.Text, truncate(articleText, 6000))

	content, err := p.complete(ctx, prompt)
	if err != nil {
		return model.Verdict{}, err
	}

	var resp verifyResponse
	if err := json.Unmarshal([]byte(extractJSON(content)), &resp); err != nil {
		return model.Verdict{}, &model.BackendError{
			Kind: model.BackendInvalidResponse, Backend: p.name,
			Err: fmt.Errorf("parse verdict: %w", err),
		}
	}

	label := model.VerdictLabel(strings.ToLower(resp.Label))
	if !model.ValidLabel(label) {
		return model.Verdict{}, &model.BackendError{
			Kind: model.BackendInvalidResponse, Backend: p.name,
			Err: fmt.Errorf("unknown label %q", resp.Label),
		}
	}

	return model.Verdict{
		ClaimID:         claim.ID,
		Backend:         p.name,
		Label:           label,
		Confidence:      clamp01(resp.Confidence),
		EvidenceSources: resp.Sources,
	}, nil
}

type sentimentResponse struct {
	Scores []float64 `json:"scores"`
}

// Sentiment scores a batch of texts in one call.
func (p *ChatProvider) Sentiment(ctx context.Context, texts []string) ([]model.SentimentResult, error) {
	var b strings.Builder
	for i, text := range texts {
		fmt.Fprintf(&b, "--- Text %d ---\n%s\n", i+1, truncate(text, 4000))
	}

	prompt := fmt.Sprintf(`Score the overall sentiment of each text from -1.0 (very negative) to 1.0 (very positive).

%s
Respond with a single JSON object, no prose: {"scores": [<one score per text, in order>]}`, b.String())

	content, err := p.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var resp sentimentResponse
	if err := json.Unmarshal([]byte(extractJSON(content)), &resp); err != nil {
		return nil, &model.BackendError{
			Kind: model.BackendInvalidResponse, Backend: p.name,
			Err: fmt.Errorf("parse sentiment: %w", err),
		}
	}
	if len(resp.Scores) != len(texts) {
		return nil, &model.BackendError{
			Kind: model.BackendInvalidResponse, Backend: p.name,
			Err: fmt.Errorf("expected %d scores, got %d", len(texts), len(resp.Scores)),
		}
	}

	results := make([]model.SentimentResult, len(resp.Scores))
	for i, score := range resp.Scores {
		if score < -1 {
			score = -1
		} else if score > 1 {
			score = 1
		}
		results[i] = model.SentimentResult{
			Label: model.SentimentLabelForScore(score),
			Score: score,
		}
	}
	return results, nil
}

type claimsResponse struct {
	Claims []string `json:"claims"`
}

// Claims extracts checkable claim sentences from article text.
func (p *ChatProvider) Claims(ctx context.Context, articleText string) ([]string, error) {
	prompt := fmt.Sprintf(`Extract every discrete, checkable factual claim from the article below. A claim is a single assertion that could be verified or refuted against external sources. Preserve article order. Skip opinions and predictions.

Article:
%s

Respond with a single JSON object, no prose: {"claims": ["claim text", ...]}`, truncate(articleText, 8000))

	content, err := p.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var resp claimsResponse
	if err := json.Unmarshal([]byte(extractJSON(content)), &resp); err != nil {
		return nil, &model.BackendError{
			Kind: model.BackendInvalidResponse, Backend: p.name,
			Err: fmt.Errorf("parse claims: %w", err),
		}
	}
	return resp.Claims, nil
}

// complete runs one chat completion and maps API failures onto the
// backend error taxonomy.
func (p *ChatProvider) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a precise analysis engine. Always answer with exactly the JSON object requested.",
			},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return "", p.mapAPIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", &model.BackendError{
			Kind: model.BackendInvalidResponse, Backend: p.name,
			Err: errors.New("empty completion"),
		}
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (p *ChatProvider) mapAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return &model.BackendError{Kind: model.BackendRateLimited, Backend: p.name, Err: err}
		case apiErr.HTTPStatusCode >= 500, apiErr.HTTPStatusCode == http.StatusRequestTimeout:
			return &model.BackendError{Kind: model.BackendTimeout, Backend: p.name, Err: err}
		default:
			return &model.BackendError{Kind: model.BackendInvalidResponse, Backend: p.name, Err: err}
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &model.BackendError{Kind: model.BackendTimeout, Backend: p.name, Err: err}
	}
	return err
}

// extractJSON tolerates models that wrap the JSON object in code fences
// or prose.
func extractJSON(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		return content[start : end+1]
	}
	return content
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
