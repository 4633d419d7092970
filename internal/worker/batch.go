package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"newsanalyst/internal/model"
)

// BatchProcessor analyzes many articles concurrently.
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
}

// NewBatchProcessor creates a batch processor with the given concurrency.
func NewBatchProcessor(analyzer Analyzer, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
	}
}

// ProcessURLs analyzes the given URLs concurrently. Duplicate URLs in the
// batch share one computation through the pipeline's dedup gate, so the
// outcome count may be smaller than the input after deduplication.
func (b *BatchProcessor) ProcessURLs(ctx context.Context, urls []string) []Outcome {
	if len(urls) == 0 {
		return []Outcome{}
	}

	pool := NewPool(b.analyzer, b.concurrency)
	pool.Start(ctx)

	go func() {
		defer pool.Finish()
		for _, url := range urls {
			pool.Submit(ctx, model.ArticleRequest{URL: url})
		}
	}()

	return pool.Collect()
}

// ProcessFile reads URLs from a file and analyzes them concurrently.
func (b *BatchProcessor) ProcessFile(ctx context.Context, path string) ([]Outcome, error) {
	urls, err := ReadURLsFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("read URLs: %w", err)
	}
	return b.ProcessURLs(ctx, urls), nil
}

// ReadURLsFromFile reads URLs from a file, one per line. Blank lines and
// lines starting with # are skipped, and duplicates are dropped.
func ReadURLsFromFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var urls []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			urls = append(urls, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return urls, nil
}
