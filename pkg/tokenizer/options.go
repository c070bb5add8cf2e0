package tokenizer

import (
	"time"

	"go.uber.org/zap"
)

// DefaultWindow is the lookahead window size in runes
const DefaultWindow = 80

// MergePolicy decides which value wins when two same-text candidates write
// the same value key
type MergePolicy int

const (
	// MergeLastWins lets lower-scored candidates overwrite higher-scored ones
	MergeLastWins MergePolicy = iota
	// MergeFirstWins keeps the value of the highest-scored candidate
	MergeFirstWins
)

type options struct {
	window            int
	recognizerTimeout time.Duration
	matchTimeout      time.Duration
	mergePolicy       MergePolicy
	maxConcurrency    int
	logger            *zap.Logger
}

func defaultOptions() options {
	return options{
		window: DefaultWindow,
		logger: zap.NewNop(),
	}
}

// Option configures a Tokenizer
type Option func(*options)

// WithWindow sets the lookahead window in runes
func WithWindow(runes int) Option {
	return func(o *options) {
		if runes > 0 {
			o.window = runes
		}
	}
}

// WithRecognizerTimeout bounds every callback recognizer invocation. A callback
// that does not answer in time counts as no match.
func WithRecognizerTimeout(d time.Duration) Option {
	return func(o *options) {
		o.recognizerTimeout = d
	}
}

// WithMatchTimeout bounds a single pattern expression evaluation
func WithMatchTimeout(d time.Duration) Option {
	return func(o *options) {
		o.matchTimeout = d
	}
}

// WithMergePolicy sets the value collision policy of the merge step
func WithMergePolicy(p MergePolicy) Option {
	return func(o *options) {
		o.mergePolicy = p
	}
}

// WithMaxConcurrency limits how many callback recognizers run at once
func WithMaxConcurrency(n int) Option {
	return func(o *options) {
		o.maxConcurrency = n
	}
}

// WithLogger sets the logger for recognizer failures
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
