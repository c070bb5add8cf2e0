package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ppiankov/tagex/internal/pipeline"
	"github.com/ppiankov/tagex/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	batchPretty  bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <rules> <sources-file>",
	Short: "Extract records from many documents in parallel",
	Long: `Batch extracts every document listed in the sources file:
- One file path or URL per line; blank lines and # comments are skipped
- Documents are processed in parallel with a configurable worker count
- One JSON record is written per document, named after its position and source

Example:
  tagex batch rulesets/parcel.yaml sources.txt
  tagex batch rulesets/parcel.yaml sources.txt --concurrency 8 --output-dir ./records
  tagex batch rulesets/parcel.yaml sources.txt --metrics-file tagex.prom`,
	Args: cobra.ExactArgs(2),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default: batch.concurrency)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "", "output directory for records (default: batch.output_dir)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 0, "total timeout for the batch (default: batch.timeout)")
	batchCmd.Flags().BoolVar(&batchPretty, "pretty", false, "indent JSON records")
	batchCmd.Flags().BoolVar(&forceHTML, "html", false, "treat every input as HTML")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the token cache")
	batchCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this file after the run")
}

func runBatch(cmd *cobra.Command, args []string) error {
	rulesPath, file := args[0], args[1]

	workers := concurrency
	if workers <= 0 {
		workers = cfg.Batch.Concurrency
	}
	dir := firstNonEmpty(outputDir, cfg.Batch.OutputDir)
	timeout := batchTimeout
	if timeout <= 0 {
		timeout = cfg.Batch.Timeout
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  tagex Batch Extraction\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Rule set:     %s\n", rulesPath)
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", dir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", timeout)
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	reg := prometheus.NewRegistry()
	defer writeMetrics(reg, firstNonEmpty(metricsFile, cfg.Metrics.File))

	p, err := buildPipeline(rulesPath, runOptions{forceHTML: forceHTML, noCache: noCache}, reg)
	if err != nil {
		return err
	}

	processor := worker.NewBatchProcessor(p, workers, logger.Named("batch"))

	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	successCount, failureCount := 0, 0
	for i, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Ref, result.Error)
			continue
		}

		jsonPath := filepath.Join(dir, fmt.Sprintf("%04d-%s.json", i+1, sanitizeFilename(result.Ref)))
		if err := pipeline.RenderJSON(result.Record, jsonPath, batchPretty); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", result.Ref, err)
			continue
		}

		successCount++
		fmt.Fprintf(os.Stderr, "✓ %s (%d fields, %d tokens)\n", result.Ref, len(result.Record.Data), result.Record.Tokens)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d documents\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", dir)
	fmt.Fprintf(os.Stderr, "\n")

	if failureCount > 0 && successCount == 0 {
		return fmt.Errorf("all %d documents failed", failureCount)
	}
	return nil
}
