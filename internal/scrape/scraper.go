// Package scrape implements the scraper collaborator: it turns a URL
// into a FetchedArticle with canonical text and a content hash.
package scrape

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"newsanalyst/internal/model"
)

// Scraper fetches article pages and extracts their canonical text.
type Scraper struct {
	httpClient *http.Client
	robots     *robotsChecker
	userAgent  string
	maxBytes   int64
}

// New creates a scraper from the HTTP configuration.
func New(cfg model.HTTPConfig) *Scraper {
	return &Scraper{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		robots:    newRobotsChecker(cfg.UserAgent, cfg.Timeout),
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBodyBytes,
	}
}

// Fetch retrieves and normalizes the article at rawURL. Failures carry a
// FetchError kind: NotFound, Blocked, Timeout, or MalformedContent.
func (s *Scraper) Fetch(ctx context.Context, rawURL string) (*model.FetchedArticle, error) {
	if !s.robots.allowed(ctx, rawURL) {
		return nil, &model.FetchError{Kind: model.FetchBlocked, URL: rawURL, Err: errors.New("disallowed by robots.txt")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &model.FetchError{Kind: model.FetchMalformedContent, URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &model.FetchError{Kind: model.FetchTimeout, URL: rawURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if fe := classifyStatus(resp.StatusCode, rawURL); fe != nil {
		return nil, fe
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes))
	if err != nil {
		return nil, &model.FetchError{Kind: model.FetchTimeout, URL: rawURL, Err: err}
	}

	article, err := parseArticle(body, resp.Header.Get("Content-Type"), resp.Request.URL)
	if err != nil {
		return nil, &model.FetchError{Kind: model.FetchMalformedContent, URL: rawURL, Err: err}
	}

	article.FetchedAt = time.Now().UTC()
	return article, nil
}

func classifyStatus(status int, rawURL string) *model.FetchError {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound || status == http.StatusGone:
		return &model.FetchError{Kind: model.FetchNotFound, URL: rawURL, Err: fmt.Errorf("status %d", status)}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &model.FetchError{Kind: model.FetchBlocked, URL: rawURL, Err: fmt.Errorf("status %d", status)}
	case status == http.StatusTooManyRequests || status >= 500:
		// Transient server-side failures surface as timeouts for the retry path.
		return &model.FetchError{Kind: model.FetchTimeout, URL: rawURL, Err: fmt.Errorf("status %d", status)}
	default:
		return &model.FetchError{Kind: model.FetchMalformedContent, URL: rawURL, Err: fmt.Errorf("status %d", status)}
	}
}

// parseArticle extracts title, byline, publication date, and body text
// from an HTML page.
func parseArticle(body []byte, contentType string, finalURL *url.URL) (*model.FetchedArticle, error) {
	enc, _, _ := charset.DetermineEncoding(body, contentType)
	utf8body, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		if !utf8.Valid(body) {
			return nil, fmt.Errorf("decode body: %w", err)
		}
		utf8body = body
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(utf8body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	doc.Find("script,noscript,style,nav,footer,aside").Each(func(_ int, s *goquery.Selection) {
		s.Remove()
	})

	title := strings.TrimSpace(doc.Find(`meta[property="og:title"]`).AttrOr("content", ""))
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	author := strings.TrimSpace(doc.Find(`meta[name="author"]`).AttrOr("content", ""))

	var publishedAt *time.Time
	if raw := doc.Find(`meta[property="article:published_time"]`).AttrOr("content", ""); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			utc := t.UTC()
			publishedAt = &utc
		}
	}

	var parts []string
	scope := doc.Find("article")
	if scope.Length() == 0 {
		scope = doc.Selection
	}
	scope.Find("p,li,h1,h2,h3").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})

	text := model.NormalizeText(strings.Join(parts, " "))
	if text == "" {
		return nil, errors.New("no article text found")
	}

	return &model.FetchedArticle{
		URL:         finalURL.String(),
		Title:       title,
		Source:      finalURL.Host,
		Author:      author,
		PublishedAt: publishedAt,
		Text:        text,
		ContentHash: model.HashContent(text),
		WordCount:   model.CountWords(text),
	}, nil
}

// FromRawContent builds a FetchedArticle from a raw-content override,
// bypassing the network entirely.
func FromRawContent(rawURL, content string) *model.FetchedArticle {
	text := model.NormalizeText(content)
	host := ""
	if parsed, err := url.Parse(rawURL); err == nil {
		host = parsed.Host
	}
	return &model.FetchedArticle{
		URL:         rawURL,
		Source:      host,
		Text:        text,
		ContentHash: model.HashContent(text),
		WordCount:   model.CountWords(text),
		FetchedAt:   time.Now().UTC(),
	}
}
