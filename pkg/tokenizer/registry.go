package tokenizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/ppiankov/tagex/pkg/model"
)

// dictionaryWeight ranks dictionary hits just below a one-character-longer match
const dictionaryWeight = 0.99

// dictionaryWord is the leading word a dictionary recognizer looks up
var dictionaryWord = regexp2.MustCompile(`^\p{L}[0-9\p{L}\u2070-\u209c]*`, regexp2.None)

// Candidate is a proposed next token
type Candidate struct {
	Text   string
	Tags   []string
	Values map[string]string
	Weight float64 // Added to the rune length of Text to form the score
}

// CallbackFunc proposes a candidate for the start of window. guesses holds the
// valid pattern candidates of the current step, best first. prev is nil for the
// first token. An empty Text means no match.
type CallbackFunc func(ctx context.Context, window string, guesses []Candidate, prev *model.Token) (Candidate, error)

// Init registers recognizers on a Registry
type Init func(r *Registry)

// PatternOptions configure a pattern recognizer
type PatternOptions struct {
	TokenType        string              // Tag and value key of produced tokens
	Priority         float64             // Added to the match length to form the score
	Avoid            string              // Vetoes the match when it matches the text after it
	Group            int                 // Capture group that forms the token text
	RequiredPrevTags []string            // Previous token must carry one of these tags
	Evaluate         func(string) string // Token value; "" suppresses the recognizer
}

// Registry collects the recognizers of one tokenizer
type Registry struct {
	patterns  []*patternRecognizer
	callbacks []*callbackRecognizer
	order     int
	err       error
}

// AddPattern registers a regular-expression recognizer. Expressions use the
// regexp2 syntax and only count when they match at the cursor. The first
// registration error is also kept and reported by New.
func (r *Registry) AddPattern(expr string, opts PatternOptions) error {
	p, err := newPatternRecognizer(expr, opts)
	if err != nil {
		if r.err == nil {
			r.err = err
		}
		return err
	}
	p.order = r.next()
	r.patterns = append(r.patterns, p)
	return nil
}

// MustAddPattern is like AddPattern but panics on a bad expression
func (r *Registry) MustAddPattern(expr string, opts PatternOptions) {
	if err := r.AddPattern(expr, opts); err != nil {
		panic(err)
	}
}

// AddCallback registers a callback recognizer
func (r *Registry) AddCallback(name string, fn CallbackFunc) {
	if fn == nil {
		return
	}
	r.callbacks = append(r.callbacks, &callbackRecognizer{
		name:  name,
		fn:    fn,
		order: r.next(),
	})
}

// AddDictionary registers a recognizer that tags the leading word with label
// when the word is a key of dict. The token value is the mapped entry.
func (r *Registry) AddDictionary(label string, dict map[string]string) {
	r.AddCallback("dict:"+label, func(_ context.Context, window string, _ []Candidate, _ *model.Token) (Candidate, error) {
		m, err := dictionaryWord.FindStringMatch(window)
		if err != nil || m == nil {
			return Candidate{}, err
		}
		word := m.String()
		val, ok := dict[word]
		if !ok {
			return Candidate{}, nil
		}
		return Candidate{
			Text:   word,
			Tags:   []string{label},
			Values: map[string]string{label: val},
			Weight: dictionaryWeight,
		}, nil
	})
}

// Err returns the first registration error
func (r *Registry) Err() error {
	return r.err
}

func (r *Registry) next() int {
	r.order++
	return r.order
}

func newPatternRecognizer(expr string, opts PatternOptions) (*patternRecognizer, error) {
	re, err := regexp2.Compile(expr, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", expr, err)
	}
	p := &patternRecognizer{expr: re, opts: opts, evaluate: opts.Evaluate}
	if opts.Avoid != "" {
		p.avoid, err = regexp2.Compile(opts.Avoid, regexp2.None)
		if err != nil {
			return nil, fmt.Errorf("compile avoid pattern %q: %w", opts.Avoid, err)
		}
	}
	if p.evaluate == nil {
		p.evaluate = func(s string) string { return s }
	}
	return p, nil
}

type patternRecognizer struct {
	expr     *regexp2.Regexp
	avoid    *regexp2.Regexp
	opts     PatternOptions
	order    int
	evaluate func(string) string
}

// match returns the candidate the recognizer proposes for window
func (p *patternRecognizer) match(window string, prev *model.Token) (Candidate, bool, error) {
	if len(p.opts.RequiredPrevTags) > 0 && (prev == nil || !prev.HasAnyTag(p.opts.RequiredPrevTags)) {
		return Candidate{}, false, nil
	}

	m, err := p.expr.FindStringMatch(window)
	if err != nil || m == nil {
		return Candidate{}, false, err
	}
	g := m.GroupByNumber(p.opts.Group)
	if g == nil || g.Length == 0 || g.Index != 0 {
		return Candidate{}, false, nil
	}
	text := g.String()
	if !strings.HasPrefix(window, text) {
		return Candidate{}, false, nil
	}

	if p.avoid != nil {
		avoided, err := p.avoid.MatchString(window[len(text):])
		if err != nil || avoided {
			return Candidate{}, false, err
		}
	}

	value := p.evaluate(text)
	if value == "" {
		return Candidate{}, false, nil
	}

	c := Candidate{Text: text, Weight: p.opts.Priority}
	if p.opts.TokenType != "" {
		c.Tags = []string{p.opts.TokenType}
		c.Values = map[string]string{p.opts.TokenType: value}
	}
	return c, true, nil
}

type callbackRecognizer struct {
	name  string
	fn    CallbackFunc
	order int
}
