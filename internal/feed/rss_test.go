package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Example News</title>
<item>
  <title>Markets rally on earnings</title>
  <link>http://example.com/markets</link>
  <pubDate>Mon, 04 Mar 2024 10:00:00 GMT</pubDate>
</item>
<item>
  <title>No link here</title>
</item>
<item>
  <title>Policy change announced</title>
  <link>http://example.com/policy</link>
  <pubDate>Tue, 05 Mar 2024 08:00:00 GMT</pubDate>
</item>
</channel>
</rss>`

func TestRead_ParsesEntries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(testFeed))
	}))
	defer srv.Close()

	entries, err := NewReader(5*time.Second).Read(context.Background(), srv.URL, 0)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 linked entries, got %d", len(entries))
	}
	if entries[0].URL != "http://example.com/markets" || entries[0].Source != "Example News" {
		t.Errorf("first entry: %+v", entries[0])
	}
	if entries[0].PublishedAt.IsZero() {
		t.Error("published time lost")
	}

	urls := URLs(entries)
	if len(urls) != 2 || urls[1] != "http://example.com/policy" {
		t.Errorf("urls: %v", urls)
	}
}

func TestRead_LimitCapsEntries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testFeed))
	}))
	defer srv.Close()

	entries, err := NewReader(5*time.Second).Read(context.Background(), srv.URL, 1)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 entry, got %d", len(entries))
	}
}

func TestRead_HTTPErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	if _, err := NewReader(5*time.Second).Read(context.Background(), srv.URL, 0); err == nil {
		t.Error("expected error for non-200 feed response")
	}
}

func TestRead_MalformedFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not a feed"))
	}))
	defer srv.Close()

	if _, err := NewReader(5*time.Second).Read(context.Background(), srv.URL, 0); err == nil {
		t.Error("expected parse error")
	}
}
