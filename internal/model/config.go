package model

import (
	"fmt"
	"time"
)

// TiePolicy selects how aggregation breaks weighted-vote ties.
type TiePolicy string

const (
	// TiePreferDisputed resolves ties conservatively in favor of "disputed".
	TiePreferDisputed TiePolicy = "prefer-disputed"
	// TieFirstLabel resolves ties by the canonical label order
	// (disputed, false, true, unverified) without special-casing disputed.
	TieFirstLabel TiePolicy = "first-label"
)

// Config is the complete runtime configuration.
type Config struct {
	Article   ArticleConfig   `yaml:"article" mapstructure:"article"`
	FactCheck FactCheckConfig `yaml:"factcheck" mapstructure:"factcheck"`
	Sentiment SentimentConfig `yaml:"sentiment" mapstructure:"sentiment"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	RateLimit RateLimitConfig `yaml:"ratelimit" mapstructure:"ratelimit"`
	Dispatch  DispatchConfig  `yaml:"dispatch" mapstructure:"dispatch"`
	HTTP      HTTPConfig      `yaml:"http" mapstructure:"http"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`

	// Backends names the external verification backends in dispatch order.
	// Weights missing from factcheck.backend_weights default to 1.0.
	Backends map[string]BackendConfig `yaml:"backends" mapstructure:"backends"`
}

// ArticleConfig bounds analyzable article length, in words.
type ArticleConfig struct {
	MinLength int `yaml:"min_length" mapstructure:"min_length"`
	MaxLength int `yaml:"max_length" mapstructure:"max_length"`
}

// FactCheckConfig controls verification fan-out and aggregation.
type FactCheckConfig struct {
	ConfidenceThreshold float64            `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
	MaxSourcesPerClaim  int                `yaml:"max_sources_per_claim" mapstructure:"max_sources_per_claim"`
	TiePolicy           TiePolicy          `yaml:"tie_policy" mapstructure:"tie_policy"`
	BackendWeights      map[string]float64 `yaml:"backend_weights" mapstructure:"backend_weights"`
}

// SentimentConfig controls the coalescing sentiment batcher.
type SentimentConfig struct {
	BatchSize     int           `yaml:"batch_size" mapstructure:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval" mapstructure:"flush_interval"`
}

// CacheConfig controls the dedup gate's completed-entry cache.
type CacheConfig struct {
	TTL        time.Duration `yaml:"ttl" mapstructure:"ttl"`
	MaxEntries int           `yaml:"max_entries" mapstructure:"max_entries"`
}

// RateLimitConfig is the per-backend token bucket.
type RateLimitConfig struct {
	RequestsPerMinute float64 `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// DispatchConfig bounds every outbound call.
type DispatchConfig struct {
	CallTimeout time.Duration `yaml:"call_timeout" mapstructure:"call_timeout"`
	MaxRetries  int           `yaml:"max_retries" mapstructure:"max_retries"`
}

// HTTPConfig configures the scraper's HTTP client.
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// StoreConfig locates the report store.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// BackendConfig configures one named external backend. An empty Endpoint
// with an empty APIKey selects the built-in heuristic provider.
type BackendConfig struct {
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	Model    string `yaml:"model" mapstructure:"model"`
	APIKey   string `yaml:"api_key" mapstructure:"api_key"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Article: ArticleConfig{
			MinLength: 50,
			MaxLength: 20000,
		},
		FactCheck: FactCheckConfig{
			ConfidenceThreshold: 0.7,
			MaxSourcesPerClaim:  3,
			TiePolicy:           TiePreferDisputed,
			BackendWeights:      map[string]float64{},
		},
		Sentiment: SentimentConfig{
			BatchSize:     4,
			FlushInterval: 50 * time.Millisecond,
		},
		Cache: CacheConfig{
			TTL:        15 * time.Minute,
			MaxEntries: 1000,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			Burst:             5,
		},
		Dispatch: DispatchConfig{
			CallTimeout: 30 * time.Second,
			MaxRetries:  3,
		},
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "NewsAnalyst/0.1 (+article analysis)",
			MaxBodyBytes: 2_000_000,
		},
		Store: StoreConfig{
			Path: "newsanalyst.db",
		},
		Backends: map[string]BackendConfig{},
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Article.MinLength < 0 || c.Article.MaxLength <= c.Article.MinLength {
		return fmt.Errorf("article length bounds invalid: min=%d max=%d", c.Article.MinLength, c.Article.MaxLength)
	}
	if c.FactCheck.ConfidenceThreshold < 0 || c.FactCheck.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence threshold out of range: %v", c.FactCheck.ConfidenceThreshold)
	}
	if c.FactCheck.MaxSourcesPerClaim < 1 {
		return fmt.Errorf("max sources per claim must be >= 1")
	}
	switch c.FactCheck.TiePolicy {
	case TiePreferDisputed, TieFirstLabel:
	default:
		return fmt.Errorf("unknown tie policy: %q", c.FactCheck.TiePolicy)
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("requests per minute must be positive")
	}
	if c.Dispatch.MaxRetries < 1 {
		return fmt.Errorf("max retries must be >= 1")
	}
	return nil
}

// Weight returns the trust weight for a backend, defaulting to 1.0.
func (c *FactCheckConfig) Weight(backend string) float64 {
	if w, ok := c.BackendWeights[backend]; ok && w > 0 {
		return w
	}
	return 1.0
}
