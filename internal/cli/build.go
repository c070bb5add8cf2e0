package cli

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ppiankov/tagex/internal/metrics"
	"github.com/ppiankov/tagex/internal/pipeline"
	"github.com/ppiankov/tagex/internal/rules"
	"github.com/ppiankov/tagex/internal/source"
)

// runOptions are the flags shared by the commands that read documents
type runOptions struct {
	forceHTML bool
	noCache   bool
}

// buildPipeline loads the rule set at rulesPath and wires the configured
// cache, loader and metrics into a pipeline
func buildPipeline(rulesPath string, opts runOptions, reg *prometheus.Registry) (*pipeline.Pipeline, error) {
	rs, err := rules.Load(rulesPath)
	if err != nil {
		return nil, err
	}
	logger.Debug("rule set loaded",
		zap.String("name", rs.Name),
		zap.Int("rules", len(rs.ModelRules())),
		zap.Int("fields", len(rs.Fields)),
		zap.String("fingerprint", rs.Fingerprint()))

	loaderOpts := []source.Option{
		source.WithFetcher(source.NewFetcher(cfg.Fetch, logger.Named("fetch"))),
	}
	if opts.forceHTML {
		loaderOpts = append(loaderOpts, source.WithForceHTML())
	}

	pipeOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithLoader(source.NewLoader(loaderOpts...)),
		pipeline.WithTokenizerOptions(cfg.Tokenizer.Options(logger.Named("tokenizer"))...),
	}
	if reg != nil {
		pipeOpts = append(pipeOpts, pipeline.WithMetrics(metrics.New(reg)))
	}
	if !opts.noCache {
		c, err := cfg.Cache.NewCache()
		if err != nil {
			return nil, fmt.Errorf("token cache: %w", err)
		}
		pipeOpts = append(pipeOpts, pipeline.WithCache(c, cfg.Cache.TTL, cfg.Tokenizer.CacheNamespace()))
	}

	return pipeline.New(rs, pipeOpts...)
}

// writeMetrics exports reg to path when one is configured
func writeMetrics(reg *prometheus.Registry, path string) {
	if path == "" || reg == nil {
		return
	}
	if err := metrics.WriteFile(reg, path); err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		return
	}
	logger.Info("metrics written", zap.String("path", path))
}
