package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"newsanalyst/internal/feed"
	"newsanalyst/internal/worker"
)

var (
	feedLimit       int
	feedConcurrency int
	feedOutputDir   string
	feedTimeout     time.Duration
)

var feedCmd = &cobra.Command{
	Use:   "feed <feed-url>",
	Short: "Analyze the articles of an RSS or Atom feed",
	Long: `Feed pulls an RSS/Atom feed, discovers its article links, and runs
each article through the analysis pipeline.

Example:
  newsanalyst feed https://example.com/rss
  newsanalyst feed https://example.com/rss --limit 10 --output-dir ./reports`,
	Args: cobra.ExactArgs(1),
	RunE: runFeed,
}

func init() {
	rootCmd.AddCommand(feedCmd)

	feedCmd.Flags().IntVar(&feedLimit, "limit", 20, "maximum number of feed entries to analyze (0 = all)")
	feedCmd.Flags().IntVar(&feedConcurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	feedCmd.Flags().StringVar(&feedOutputDir, "output-dir", "./newsanalyst-reports", "output directory for reports")
	feedCmd.Flags().DurationVar(&feedTimeout, "timeout", 10*time.Minute, "total timeout for feed processing")
}

func runFeed(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), feedTimeout)
	defer cancel()

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	reader := feed.NewReader(cfg.HTTP.Timeout)
	entries, err := reader.Read(ctx, args[0], feedLimit)
	if err != nil {
		return fmt.Errorf("read feed: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("feed has no linked entries")
	}
	fmt.Fprintf(os.Stderr, "Discovered %d articles in %q\n", len(entries), entries[0].Source)

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := os.MkdirAll(feedOutputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	processor := worker.NewBatchProcessor(a.orchestrator, feedConcurrency)
	outcomes := processor.ProcessURLs(ctx, feed.URLs(entries))

	var succeeded, failed int
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", o.Request.URL, o.Err)
			continue
		}
		succeeded++

		path := filepath.Join(feedOutputDir, reportFilename(o.Request.URL))
		if err := writeReport(o.Report, path); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", o.Request.URL, err)
			continue
		}
		fmt.Fprintf(os.Stderr, "✓ %s (confidence: %.2f)\n", o.Request.URL, o.Report.FactCheck.OverallConfidence)
	}

	fmt.Fprintf(os.Stderr, "\nDone: %d succeeded, %d failed, output in %s\n", succeeded, failed, feedOutputDir)
	return nil
}
