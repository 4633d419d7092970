// Package feed discovers article URLs from RSS and Atom feeds.
package feed

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Entry is one article discovered in a feed.
type Entry struct {
	Title       string
	URL         string
	Source      string
	PublishedAt time.Time
}

// Reader pulls entries from a feed over HTTP.
type Reader struct {
	client *http.Client
	parser *gofeed.Parser
}

// NewReader creates a feed reader.
func NewReader(timeout time.Duration) *Reader {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Reader{
		client: &http.Client{Timeout: timeout},
		parser: gofeed.NewParser(),
	}
}

// Read fetches and parses a feed, returning up to limit entries with a
// usable link. A limit of zero or less means no cap.
func (r *Reader) Read(ctx context.Context, feedURL string, limit int) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", feedURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch feed %s: status %d", feedURL, resp.StatusCode)
	}

	parsed, err := r.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}

	entries := make([]Entry, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		if limit > 0 && len(entries) >= limit {
			break
		}
		link := strings.TrimSpace(it.Link)
		if link == "" {
			continue
		}

		var pub time.Time
		if it.PublishedParsed != nil {
			pub = *it.PublishedParsed
		} else if it.UpdatedParsed != nil {
			pub = *it.UpdatedParsed
		}

		entries = append(entries, Entry{
			Title:       strings.TrimSpace(it.Title),
			URL:         link,
			Source:      strings.TrimSpace(parsed.Title),
			PublishedAt: pub,
		})
	}

	return entries, nil
}

// URLs returns just the article URLs of the feed entries.
func URLs(entries []Entry) []string {
	urls := make([]string, 0, len(entries))
	for _, e := range entries {
		urls = append(urls, e.URL)
	}
	return urls
}
