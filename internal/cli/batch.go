package cli

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"newsanalyst/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Analyze multiple article URLs from a file in parallel",
	Long: `Batch reads URLs from a file (one per line, # comments allowed) and
analyzes them concurrently. Duplicate URLs share one computation, and
each report is written to the output directory as JSON.

Example:
  newsanalyst batch urls.txt
  newsanalyst batch urls.txt --concurrency 8 --output-dir ./reports`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./newsanalyst-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
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

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	processor := worker.NewBatchProcessor(a.orchestrator, concurrency)
	outcomes, err := processor.ProcessFile(ctx, args[0])
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	var succeeded, failed int
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", o.Request.URL, o.Err)
			continue
		}
		succeeded++

		path := filepath.Join(outputDir, reportFilename(o.Request.URL))
		if err := writeReport(o.Report, path); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", o.Request.URL, err)
			continue
		}
		fmt.Fprintf(os.Stderr, "✓ %s (confidence: %.2f)\n", o.Request.URL, o.Report.FactCheck.OverallConfidence)
	}

	fmt.Fprintf(os.Stderr, "\nDone: %d succeeded, %d failed, output in %s\n", succeeded, failed, outputDir)
	return nil
}

// reportFilename derives a stable, filesystem-safe name from a URL.
func reportFilename(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:8]) + ".json"
}
