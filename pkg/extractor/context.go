// Package extractor resolves which rule owns each token and answers value and
// region queries over the tagged token stream.
package extractor

import (
	"maps"
	"slices"
	"sync"

	"github.com/ppiankov/tagex/pkg/matcher"
	"github.com/ppiankov/tagex/pkg/model"
)

// Match is one rule match touching a token
type Match struct {
	RuleID    string `json:"rule_id"`
	RuleIndex int    `json:"rule_index"`
	Priority  int    `json:"priority"`
	AtomIndex int    `json:"atom"`
	Instance  int    `json:"instance"` // Ordinal of the RuleMatch, shared by all its tokens
}

// TagsMatch annotates one token
type TagsMatch struct {
	All  []Match `json:"all"` // Best first
	Tag  string  `json:"tag"` // Winning tag, "" when no rule sets one
	Text string  `json:"text"`
}

// Top returns the highest priority match
func (t TagsMatch) Top() (Match, bool) {
	if len(t.All) == 0 {
		return Match{}, false
	}
	return t.All[0], true
}

// Range is a half-open token index interval
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Provenance records which output field consumed which token. It is shared
// by every context derived from one RulesToContext call.
type Provenance struct {
	mu     sync.Mutex
	labels map[int]string
}

// NewProvenance creates an empty accumulator
func NewProvenance() *Provenance {
	return &Provenance{labels: make(map[int]string)}
}

// Set records label for token index; the last write wins
func (p *Provenance) Set(index int, label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.labels[index] = label
}

// Get returns the label recorded for token index
func (p *Provenance) Get(index int) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	label, ok := p.labels[index]
	return label, ok
}

// Len returns the number of labelled tokens
func (p *Provenance) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.labels)
}

// Snapshot returns a copy of the recorded labels
func (p *Provenance) Snapshot() map[int]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return maps.Clone(p.labels)
}

// RangeContext is a query window over a tagged token sequence. Contexts
// derived from one another share Tokens, Rules, Matches and Provenance.
type RangeContext struct {
	Range      Range
	Tokens     []model.Token
	Rules      []model.Rule
	Matches    []TagsMatch
	Provenance *Provenance
}

// Len returns the number of tokens in the range
func (c *RangeContext) Len() int {
	return c.Range.End - c.Range.Start
}

// Sub derives a context over [start, end), clamped to the current range
func (c *RangeContext) Sub(start, end int) *RangeContext {
	start = min(max(start, c.Range.Start), c.Range.End)
	end = min(max(end, start), c.Range.End)

	sub := *c
	sub.Range = Range{Start: start, End: end}
	return &sub
}

// RulesToContext applies rules to tokens with the default matcher and
// annotates every token
func RulesToContext(tokens []model.Token, rules []model.Rule) *RangeContext {
	return NewContext(tokens, rules, matcher.ApplyRules(tokens, rules))
}

// NewContext annotates tokens with precomputed matches of rules. RuleIndex of
// every match must refer to rules.
func NewContext(tokens []model.Token, rules []model.Rule, matches []model.RuleMatch) *RangeContext {
	perToken := make([][]Match, len(tokens))
	for inst, m := range matches {
		for _, item := range m.Items {
			if item.TokenIndex < 0 || item.TokenIndex >= len(tokens) {
				continue
			}
			perToken[item.TokenIndex] = append(perToken[item.TokenIndex], Match{
				RuleID:    m.RuleID,
				RuleIndex: m.RuleIndex,
				Priority:  m.Priority,
				AtomIndex: item.AtomIndex,
				Instance:  inst,
			})
		}
	}

	tags := make([]TagsMatch, len(tokens))
	for i, all := range perToken {
		slices.SortStableFunc(all, func(a, b Match) int {
			return b.Priority - a.Priority
		})
		tags[i] = TagsMatch{
			All:  all,
			Text: tokens[i].Text,
			Tag:  winningTag(rules, all),
		}
	}

	return &RangeContext{
		Range:      Range{Start: 0, End: len(tokens)},
		Tokens:     tokens,
		Rules:      rules,
		Matches:    tags,
		Provenance: NewProvenance(),
	}
}

func winningTag(rules []model.Rule, all []Match) string {
	if len(all) == 0 {
		return ""
	}
	top := all[0]
	if top.RuleIndex < 0 || top.RuleIndex >= len(rules) {
		return ""
	}
	atoms := rules[top.RuleIndex].Atoms
	if top.AtomIndex < 0 || top.AtomIndex >= len(atoms) {
		return ""
	}
	return atoms[top.AtomIndex].Tag()
}
