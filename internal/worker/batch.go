package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/tagex/internal/pipeline"
)

// Extractor turns a document reference into a record
type Extractor interface {
	ExtractRef(ctx context.Context, ref string) (*pipeline.Record, error)
}

// ExtractJob extracts one document
type ExtractJob struct {
	Ref       string
	Extractor Extractor
}

// Execute executes the extraction job
func (j *ExtractJob) Execute(ctx context.Context) Result {
	rec, err := j.Extractor.ExtractRef(ctx, j.Ref)
	if err != nil {
		return &ExtractResult{Ref: j.Ref, Error: err}
	}
	return &ExtractResult{Ref: j.Ref, Record: rec}
}

// ExtractResult represents the result of an extraction job
type ExtractResult struct {
	Ref    string
	Record *pipeline.Record
	Error  error
}

// GetError returns the error from the extraction result
func (r *ExtractResult) GetError() error {
	return r.Error
}

// BatchProcessor extracts many documents concurrently
type BatchProcessor struct {
	extractor   Extractor
	concurrency int
	logger      *zap.Logger
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(extractor Extractor, concurrency int, logger *zap.Logger) *BatchProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchProcessor{
		extractor:   extractor,
		concurrency: concurrency,
		logger:      logger,
	}
}

// ProcessRefs extracts refs and returns one result per ref, in ref order
func (b *BatchProcessor) ProcessRefs(ctx context.Context, refs []string) []*ExtractResult {
	if len(refs) == 0 {
		return []*ExtractResult{}
	}

	jobs := make([]Job, len(refs))
	for i, ref := range refs {
		jobs[i] = &ExtractJob{Ref: ref, Extractor: b.extractor}
	}

	results := Run(ctx, b.concurrency, jobs)

	out := make([]*ExtractResult, len(refs))
	for i, ref := range refs {
		var res *ExtractResult
		if i < len(results) {
			res, _ = results[i].(*ExtractResult)
		}
		if res == nil {
			err := ctx.Err()
			if err == nil {
				err = fmt.Errorf("job not run")
			}
			res = &ExtractResult{Ref: ref, Error: err}
		}
		if res.Error != nil {
			b.logger.Warn("extraction failed", zap.String("ref", ref), zap.Error(res.Error))
		} else {
			b.logger.Debug("extracted", zap.String("ref", ref), zap.String("id", res.Record.ID))
		}
		out[i] = res
	}
	return out
}

// ProcessFile reads refs from a file and extracts them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*ExtractResult, error) {
	refs, err := ReadSources(filePath)
	if err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}

	return b.ProcessRefs(ctx, refs), nil
}

// ReadSources reads document references from a file, one per line. Blank
// lines and # comments are skipped and duplicates dropped.
func ReadSources(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var refs []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			refs = append(refs, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return refs, nil
}
