// Package pipeline runs a rule set over documents: cached tokenization, rule
// matching and field resolution into records with provenance.
package pipeline

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/tagex/internal/cache"
	"github.com/ppiankov/tagex/internal/metrics"
	"github.com/ppiankov/tagex/internal/rules"
	"github.com/ppiankov/tagex/internal/source"
	"github.com/ppiankov/tagex/pkg/extractor"
	"github.com/ppiankov/tagex/pkg/matcher"
	"github.com/ppiankov/tagex/pkg/model"
	"github.com/ppiankov/tagex/pkg/tokenizer"
)

// Record is the result of extracting one document
type Record struct {
	ID          string         `json:"id"`
	RuleSet     string         `json:"rule_set"`
	Source      string         `json:"source,omitempty"`
	ExtractedAt time.Time      `json:"extracted_at"`
	Data        map[string]any `json:"data"`
	Provenance  map[int]string `json:"provenance"` // Token index to field path
	Tokens      int            `json:"tokens"`
	Matches     int            `json:"matches"` // Tokens with a winning tag
}

// Pipeline orchestrates extraction for one rule set. It is safe for
// concurrent use.
type Pipeline struct {
	rules     *rules.RuleSet
	tokenizer *tokenizer.Tokenizer
	matcher   *matcher.Matcher
	store     *cache.TokenStore
	namespace string
	loader    *source.Loader
	logger    *zap.Logger
	metrics   *metrics.Metrics

	tokenizerOpts []tokenizer.Option
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithCache stores token sequences in c. namespace separates entries made
// with different tokenizer settings.
func WithCache(c cache.Cache, ttl time.Duration, namespace string) Option {
	return func(p *Pipeline) {
		if c == nil {
			return
		}
		p.store = cache.NewTokenStore(c, ttl)
		p.namespace = namespace
	}
}

// WithLogger sets the logger of the pipeline, tokenizer and matcher
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics records activity on m
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLoader sets the loader used by ExtractRef
func WithLoader(l *source.Loader) Option {
	return func(p *Pipeline) { p.loader = l }
}

// WithTokenizerOptions passes options to the tokenizer
func WithTokenizerOptions(opts ...tokenizer.Option) Option {
	return func(p *Pipeline) { p.tokenizerOpts = append(p.tokenizerOpts, opts...) }
}

// New creates a pipeline for rs
func New(rs *rules.RuleSet, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		rules:  rs,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.loader == nil {
		p.loader = source.NewLoader()
	}

	tokOpts := append([]tokenizer.Option{tokenizer.WithLogger(p.logger)}, p.tokenizerOpts...)
	tok, err := tokenizer.New(rs.Init(), tokOpts...)
	if err != nil {
		return nil, fmt.Errorf("rule set %s: %w", rs.Name, err)
	}
	p.tokenizer = tok
	p.matcher = matcher.New(p.logger)
	return p, nil
}

// Tokens tokenizes text, consulting the token cache first
func (p *Pipeline) Tokens(ctx context.Context, text string) ([]model.Token, error) {
	// JSON cannot carry invalid UTF-8, so such text is never cached.
	store := p.store
	if !utf8.ValidString(text) {
		store = nil
	}

	key := cache.Key(p.rules.Fingerprint()+"/"+p.namespace, text)
	if store != nil {
		tokens, ok := store.Load(key)
		p.metrics.ObserveCache(ok)
		if ok {
			return tokens, nil
		}
	}

	start := time.Now()
	tokens, err := p.tokenizer.Tokenize(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}
	p.metrics.ObserveTokenize(len(tokens), time.Since(start))

	if err := store.Store(key, tokens); err != nil {
		p.logger.Warn("token cache write failed", zap.Error(err))
	}
	return tokens, nil
}

// Context tokenizes text and applies the rule set
func (p *Pipeline) Context(ctx context.Context, text string) (*extractor.RangeContext, error) {
	tokens, err := p.Tokens(ctx, text)
	if err != nil {
		return nil, err
	}
	rs := p.rules.ModelRules()
	matches := p.matcher.ApplyRules(tokens, rs)
	for _, m := range matches {
		p.metrics.ObserveRuleMatch(m.RuleID)
	}
	return extractor.NewContext(tokens, rs, matches), nil
}

// Extract resolves the field schema over text
func (p *Pipeline) Extract(ctx context.Context, text string) (rec *Record, err error) {
	defer func() { p.metrics.ObserveDocument(err) }()

	rc, err := p.Context(ctx, text)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	data := make(map[string]any, len(p.rules.Fields))
	p.resolve(rc, p.rules.Fields, "", data)
	p.metrics.ObserveExtract(time.Since(start))

	matches := 0
	for _, tm := range rc.Matches {
		if tm.Tag != "" {
			matches++
		}
	}

	return &Record{
		ID:          uuid.NewString(),
		RuleSet:     p.rules.Name,
		ExtractedAt: time.Now().UTC(),
		Data:        data,
		Provenance:  rc.Provenance.Snapshot(),
		Tokens:      len(rc.Tokens),
		Matches:     matches,
	}, nil
}

// Load reads a file, "-" or URL and returns its text
func (p *Pipeline) Load(ctx context.Context, ref string) (string, error) {
	doc, err := p.loader.Load(ctx, ref)
	if err != nil {
		return "", err
	}
	return doc.Text, nil
}

// ExtractRef loads a file, "-" or URL and extracts it
func (p *Pipeline) ExtractRef(ctx context.Context, ref string) (*Record, error) {
	doc, err := p.loader.Load(ctx, ref)
	if err != nil {
		p.metrics.ObserveDocument(err)
		return nil, fmt.Errorf("load %s: %w", ref, err)
	}
	rec, err := p.Extract(ctx, doc.Text)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", ref, err)
	}
	rec.Source = doc.Ref
	return rec, nil
}

// resolve evaluates fields over rc into out. Labels are JSON pointers below prefix.
func (p *Pipeline) resolve(rc *extractor.RangeContext, fields []rules.Field, prefix string, out map[string]any) {
	for _, f := range fields {
		label := prefix + "/" + f.Name

		if f.Regions != nil {
			regions := extractor.FindTagsRegions(rc, f.Regions.Tags)
			items := make([]map[string]any, 0, len(regions))
			for i, region := range regions {
				item := make(map[string]any, len(f.Regions.Fields))
				p.resolve(region, f.Regions.Fields, fmt.Sprintf("%s/%d", label, i), item)
				items = append(items, item)
			}
			out[f.Name] = items
			continue
		}

		if v, ok := p.value(rc, f, label); ok {
			out[f.Name] = v
			continue
		}
		if d, ok := f.DefaultValue(); ok {
			out[f.Name] = d
			continue
		}
		p.metrics.ObserveMissingField(f.Name)
	}
}

func (p *Pipeline) value(rc *extractor.RangeContext, f rules.Field, label string) (any, bool) {
	if f.EffectiveMode() == rules.ModeSeq {
		seq := extractor.FindBestSeq(rc, f.Tag, label)
		if len(seq) == 0 {
			return nil, false
		}
		values := make([]string, len(seq))
		for i, bv := range seq {
			values[i] = bv.Value
		}
		return values, true
	}

	bv, ok := extractor.FindBest(rc, f.Tag, label)
	if !ok {
		return nil, false
	}
	v, err := f.Convert(bv.Value)
	if err != nil {
		p.logger.Debug("field value not convertible",
			zap.String("field", label),
			zap.String("value", bv.Value),
			zap.Error(err))
		return nil, false
	}
	return v, true
}
