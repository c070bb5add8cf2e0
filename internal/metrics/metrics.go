// Package metrics holds the Prometheus collectors of the extraction pipeline.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics of one pipeline. A nil *Metrics records nothing.
//
// Metrics:
//   - tagex_documents_total{outcome} - documents processed, outcome ok or error
//   - tagex_tokens_total - tokens produced by the tokenizer
//   - tagex_tokenize_duration_seconds - tokenizer run time per document
//   - tagex_extract_duration_seconds - rule matching and field resolution time per document
//   - tagex_rule_matches_total{rule} - successful rule scans
//   - tagex_fields_missing_total{field} - fields without a tagged token
//   - tagex_token_cache_requests_total{result} - token cache lookups, result hit or miss
type Metrics struct {
	Documents        *prometheus.CounterVec
	Tokens           prometheus.Counter
	TokenizeDuration prometheus.Histogram
	ExtractDuration  prometheus.Histogram
	RuleMatches      *prometheus.CounterVec
	FieldsMissing    *prometheus.CounterVec
	CacheRequests    *prometheus.CounterVec
}

// New creates the collectors and registers them on reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Documents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tagex_documents_total",
			Help: "Total number of documents processed",
		}, []string{"outcome"}),
		Tokens: factory.NewCounter(prometheus.CounterOpts{
			Name: "tagex_tokens_total",
			Help: "Total number of tokens produced",
		}),
		TokenizeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tagex_tokenize_duration_seconds",
			Help:    "Tokenizer run time per document in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 100µs to ~1.6s
		}),
		ExtractDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tagex_extract_duration_seconds",
			Help:    "Rule matching and field resolution time per document in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		RuleMatches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tagex_rule_matches_total",
			Help: "Total number of successful rule scans",
		}, []string{"rule"}),
		FieldsMissing: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tagex_fields_missing_total",
			Help: "Total number of fields left without a tagged token",
		}, []string{"field"}),
		CacheRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tagex_token_cache_requests_total",
			Help: "Total number of token cache lookups",
		}, []string{"result"}),
	}
}

// ObserveDocument counts a finished document
func (m *Metrics) ObserveDocument(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Documents.WithLabelValues(outcome).Inc()
}

// ObserveTokenize records one tokenizer run
func (m *Metrics) ObserveTokenize(tokens int, took time.Duration) {
	if m == nil {
		return
	}
	m.Tokens.Add(float64(tokens))
	m.TokenizeDuration.Observe(took.Seconds())
}

// ObserveExtract records one extraction over a token sequence
func (m *Metrics) ObserveExtract(took time.Duration) {
	if m == nil {
		return
	}
	m.ExtractDuration.Observe(took.Seconds())
}

// ObserveRuleMatch counts a successful scan of rule
func (m *Metrics) ObserveRuleMatch(rule string) {
	if m == nil {
		return
	}
	m.RuleMatches.WithLabelValues(rule).Inc()
}

// ObserveMissingField counts a field path without a value
func (m *Metrics) ObserveMissingField(field string) {
	if m == nil {
		return
	}
	m.FieldsMissing.WithLabelValues(field).Inc()
}

// ObserveCache counts a token cache lookup
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheRequests.WithLabelValues(result).Inc()
}

// WriteFile writes every metric gathered from g to path in the text format
func WriteFile(g prometheus.Gatherer, path string) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
