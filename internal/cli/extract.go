package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/tagex/internal/pipeline"
	"github.com/ppiankov/tagex/internal/source"
)

var (
	outPath     string
	pretty      bool
	forceHTML   bool
	noCache     bool
	runTimeout  time.Duration
	metricsFile string
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <rules> [file|url|-]",
	Short: "Extract a JSON record from one document",
	Long: `Extract tokenizes one document, applies the rules of the rule set and
resolves its field schema into a JSON record with provenance.

The document is a file path, an http(s) URL or "-" for stdin (the default).
HTML documents are reduced to their visible text first.

Example:
  tagex extract rulesets/parcel.yaml booking.txt
  cat booking.txt | tagex extract rulesets/parcel.yaml --pretty
  tagex extract rulesets/parcel.yaml https://example.com/booking --out record.json`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVarP(&outPath, "out", "o", "", "output JSON path (default: stdout)")
	extractCmd.Flags().BoolVar(&pretty, "pretty", false, "indent JSON output")
	extractCmd.Flags().BoolVar(&forceHTML, "html", false, "treat the input as HTML regardless of its type")
	extractCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the token cache")
	extractCmd.Flags().DurationVar(&runTimeout, "timeout", 2*time.Minute, "overall timeout")
	extractCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this file after the run")
}

func inputRef(args []string) string {
	if len(args) < 2 {
		return source.Stdin
	}
	return args[1]
}

func runExtract(cmd *cobra.Command, args []string) error {
	ref := inputRef(args)
	ctx, cancel := context.WithTimeout(cmd.Context(), runTimeout)
	defer cancel()

	reg := prometheus.NewRegistry()
	defer writeMetrics(reg, firstNonEmpty(metricsFile, cfg.Metrics.File))

	p, err := buildPipeline(args[0], runOptions{forceHTML: forceHTML, noCache: noCache}, reg)
	if err != nil {
		return err
	}

	rec, err := p.ExtractRef(ctx, ref)
	if err != nil {
		return fmt.Errorf("extract failed: %w", err)
	}
	logger.Debug("record extracted",
		zap.String("id", rec.ID),
		zap.String("source", rec.Source),
		zap.Int("tokens", rec.Tokens),
		zap.Int("fields", len(rec.Data)))

	if outPath == "" {
		return pipeline.WriteJSON(cmd.OutOrStdout(), rec, pretty)
	}
	if err := pipeline.RenderJSON(rec, outPath, pretty); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Record written: %s\n", outPath)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
