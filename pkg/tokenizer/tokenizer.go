package tokenizer

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"unicode/utf8"

	"github.com/ppiankov/tagex/pkg/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrContractViolation means a recognizer proposed text that is not at the cursor
var ErrContractViolation = errors.New("recognizer contract violation")

// Tokenizer segments text into tokens with a fixed set of recognizers.
// It is safe for concurrent use once built.
type Tokenizer struct {
	patterns  []*patternRecognizer
	callbacks []*callbackRecognizer
	opts      options
}

// scored is a candidate ranked for one step
type scored struct {
	Candidate
	score float64
	order int
}

// New builds a tokenizer from the recognizers registered by init
func New(init Init, opts ...Option) (*Tokenizer, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	r := &Registry{}
	if init != nil {
		init(r)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("register recognizers: %w", err)
	}

	if o.matchTimeout > 0 {
		for _, p := range r.patterns {
			p.expr.MatchTimeout = o.matchTimeout
			if p.avoid != nil {
				p.avoid.MatchTimeout = o.matchTimeout
			}
		}
	}

	return &Tokenizer{
		patterns:  r.patterns,
		callbacks: r.callbacks,
		opts:      o,
	}, nil
}

// Tokenize builds a tokenizer and runs it once over text
func Tokenize(ctx context.Context, text string, init Init, opts ...Option) ([]model.Token, error) {
	t, err := New(init, opts...)
	if err != nil {
		return nil, err
	}
	return t.Tokenize(ctx, text)
}

// Tokenize segments text into tokens. On error the tokens produced before the
// failing step are returned alongside it.
//
// Every step consumes at least one rune: empty candidates are discarded and
// a window no recognizer claims yields its first rune, or its first byte when
// that is not valid UTF-8. Tokenization therefore always reaches the end of text.
func (t *Tokenizer) Tokenize(ctx context.Context, text string) ([]model.Token, error) {
	var (
		tokens []model.Token
		prev   *model.Token
		pos    int
	)

	for pos < len(text) {
		if err := ctx.Err(); err != nil {
			return tokens, err
		}
		pre := leadingSpace(text[pos:])
		pos += len(pre)
		window := clip(text[pos:], t.opts.window)
		if window == "" {
			break
		}

		best, err := t.best(ctx, window, prev)
		if err != nil {
			return tokens, err
		}
		if text[pos:min(pos+len(best.Text), len(text))] != best.Text {
			return tokens, fmt.Errorf("%w: %q is not at offset %d", ErrContractViolation, best.Text, pos)
		}

		tok := model.Token{
			Text:   best.Text,
			Pre:    pre,
			Tags:   best.Tags,
			Values: best.Values,
			Score:  best.score,
			Pos:    pos,
		}
		pos += len(best.Text)
		tok.Post = leadingSpace(text[pos:])
		pos += len(tok.Post)

		tokens = append(tokens, tok)
		last := tokens[len(tokens)-1]
		prev = &last
	}

	return tokens, nil
}

// best picks the winning candidate for window and merges same-text candidates into it
func (t *Tokenizer) best(ctx context.Context, window string, prev *model.Token) (scored, error) {
	guesses := make([]scored, 0, len(t.patterns))
	for _, p := range t.patterns {
		c, ok, err := p.match(window, prev)
		if err != nil {
			t.opts.logger.Debug("pattern recognizer failed", zap.Int("recognizer", p.order), zap.Error(err))
			continue
		}
		if ok {
			guesses = append(guesses, rank(c, p.order))
		}
	}
	sortScored(guesses)

	fromCallbacks, err := t.runCallbacks(ctx, window, candidates(guesses), prev)
	if err != nil {
		return scored{}, err
	}

	all := append(guesses, fromCallbacks...)
	sortScored(all)

	if len(all) == 0 {
		_, size := utf8.DecodeRuneInString(window)
		return scored{Candidate: Candidate{Text: window[:size]}}, nil
	}

	return t.merge(all), nil
}

// runCallbacks fans out every callback recognizer and waits for all of them
func (t *Tokenizer) runCallbacks(ctx context.Context, window string, guesses []Candidate, prev *model.Token) ([]scored, error) {
	if len(t.callbacks) == 0 {
		return nil, nil
	}

	results := make([]Candidate, len(t.callbacks))
	var g errgroup.Group
	if t.opts.maxConcurrency > 0 {
		g.SetLimit(t.opts.maxConcurrency)
	}
	for i, cb := range t.callbacks {
		g.Go(func() error {
			c, err := t.invoke(ctx, cb, window, slices.Clone(guesses), prev)
			if err != nil {
				t.opts.logger.Debug("callback recognizer failed",
					zap.String("recognizer", cb.name),
					zap.Error(err))
				return nil
			}
			results[i] = c
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]scored, 0, len(results))
	for i, c := range results {
		if c.Text == "" {
			continue
		}
		out = append(out, rank(c, t.callbacks[i].order))
	}
	return out, nil
}

// invoke runs one callback, bounded by the recognizer timeout when set
func (t *Tokenizer) invoke(ctx context.Context, cb *callbackRecognizer, window string, guesses []Candidate, prev *model.Token) (Candidate, error) {
	if t.opts.recognizerTimeout <= 0 {
		return cb.fn(ctx, window, guesses, prev)
	}

	ctx, cancel := context.WithTimeout(ctx, t.opts.recognizerTimeout)
	defer cancel()

	type outcome struct {
		c   Candidate
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		c, err := cb.fn(ctx, window, guesses, prev)
		done <- outcome{c: c, err: err}
	}()

	select {
	case o := <-done:
		if err := ctx.Err(); err != nil {
			return Candidate{}, err
		}
		return o.c, o.err
	case <-ctx.Done():
		return Candidate{}, ctx.Err()
	}
}

// merge folds tags and values of every candidate with the winner's text into the winner
func (t *Tokenizer) merge(all []scored) scored {
	winner := all[0]
	var tags []string
	var values map[string]string

	for _, c := range all {
		if c.Text != winner.Text {
			continue
		}
		for _, tag := range c.Tags {
			if !slices.Contains(tags, tag) {
				tags = append(tags, tag)
			}
		}
		for k, v := range c.Values {
			if values == nil {
				values = make(map[string]string)
			}
			if _, exists := values[k]; exists && t.opts.mergePolicy == MergeFirstWins {
				continue
			}
			values[k] = v
		}
	}

	winner.Tags = tags
	winner.Values = values
	return winner
}

func rank(c Candidate, order int) scored {
	return scored{
		Candidate: c,
		score:     float64(utf8.RuneCountInString(c.Text)) + c.Weight,
		order:     order,
	}
}

// sortScored orders by score, best first; earlier registration wins ties
func sortScored(list []scored) {
	slices.SortStableFunc(list, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(a.order, b.order)
	})
}

func candidates(list []scored) []Candidate {
	out := make([]Candidate, len(list))
	for i, s := range list {
		out[i] = s.Candidate
	}
	return out
}

// clip returns the first n runes of s
func clip(s string, n int) string {
	i := 0
	for off := range s {
		if i == n {
			return s[:off]
		}
		i++
	}
	return s
}

// leadingSpace returns the run of horizontal whitespace at the start of s
func leadingSpace(s string) string {
	for off, r := range s {
		if !isHorizontalSpace(r) {
			return s[:off]
		}
	}
	return s
}

func isHorizontalSpace(r rune) bool {
	switch {
	case r == '\t', r == ' ', r == '\u00a0', r == '\u1680', r == '\u180e':
		return true
	case r >= '\u2000' && r <= '\u200a':
		return true
	case r == '\u202f', r == '\u205f', r == '\u3000':
		return true
	}
	return false
}
