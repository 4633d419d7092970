package model

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"
)

// ArticleRequest is the immutable input to one analysis run.
type ArticleRequest struct {
	URL string `json:"url"`

	// RawContent, when set, bypasses the scraper and is analyzed as-is.
	RawContent string `json:"raw_content,omitempty"`
}

// FetchedArticle is the canonical form of an article after fetching
// and text normalization.
type FetchedArticle struct {
	URL         string     `json:"url"`
	Title       string     `json:"title,omitempty"`
	Source      string     `json:"source,omitempty"` // host the article came from
	Author      string     `json:"author,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Text        string     `json:"text"`
	ContentHash string     `json:"content_hash"`
	WordCount   int        `json:"word_count"`
	FetchedAt   time.Time  `json:"fetched_at"`
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeText collapses whitespace so that byte-identical hashes are
// produced for semantically identical content.
func NormalizeText(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// HashContent returns the deterministic hash of normalized article text.
func HashContent(text string) string {
	sum := sha256.Sum256([]byte(NormalizeText(text)))
	return hex.EncodeToString(sum[:])
}

// Fingerprint derives the cache key for an analysis request. The content
// hash is the hash of the raw-content override when one is supplied and
// empty otherwise, so plain URL requests share a single entry.
func Fingerprint(url, contentHash string) string {
	sum := sha256.Sum256([]byte(url + "\n" + contentHash))
	return "analysis:v1:" + hex.EncodeToString(sum[:])
}

// RequestFingerprint is the fingerprint of an ArticleRequest.
func RequestFingerprint(req ArticleRequest) string {
	if req.RawContent != "" {
		return Fingerprint(req.URL, HashContent(req.RawContent))
	}
	return Fingerprint(req.URL, "")
}

// CountWords reports the number of whitespace-separated tokens.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
