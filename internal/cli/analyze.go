package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"newsanalyst/internal/model"
	"newsanalyst/internal/pipeline"
	"newsanalyst/internal/store"
)

var (
	outJSON        string
	analyzeTimeout time.Duration
	rawFile        string
	cachedOnly     bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <url>",
	Short: "Analyze a single article",
	Long: `Analyze fetches an article, extracts its checkable claims, verifies
them against the configured backends, scores sentiment, and prints the
aggregated report.

Example:
  newsanalyst analyze https://example.com/story
  newsanalyst analyze https://example.com/story --json report.json
  newsanalyst analyze https://example.com/story --raw-file article.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&outJSON, "json", "-", "output JSON path (- for stdout)")
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 2*time.Minute, "overall analysis timeout")
	analyzeCmd.Flags().StringVar(&rawFile, "raw-file", "", "read article text from a local file instead of fetching the URL")
	analyzeCmd.Flags().BoolVar(&cachedOnly, "cached", false, "serve only a previously persisted report, never compute")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), analyzeTimeout)
	defer cancel()

	req := model.ArticleRequest{URL: args[0]}
	if rawFile != "" {
		content, err := os.ReadFile(rawFile)
		if err != nil {
			return fmt.Errorf("read raw article: %w", err)
		}
		req.RawContent = string(content)
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if cachedOnly {
		report, err := a.orchestrator.Lookup(ctx, req)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no persisted report for %s", req.URL)
		}
		if err != nil {
			return err
		}
		return writeReport(report, outJSON)
	}

	report, err := a.orchestrator.Analyze(ctx, req)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if report.Degraded {
		fmt.Fprintf(os.Stderr, "warning: %v\n", pipeline.DegradedError(report))
	}
	if report.FactCheck.LowConfidence {
		fmt.Fprintf(os.Stderr, "warning: overall confidence %.2f below threshold %.2f\n",
			report.FactCheck.OverallConfidence, cfg.FactCheck.ConfidenceThreshold)
	}

	return writeReport(report, outJSON)
}
