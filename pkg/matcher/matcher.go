// Package matcher scores declarative rules against token sequences.
package matcher

import (
	"fmt"
	"strings"

	"github.com/ppiankov/tagex/pkg/model"
	"go.uber.org/zap"
)

// DefaultStepBudget caps the atom evaluations of one scan attempt
const DefaultStepBudget = 100

// Weights are the score amplifiers of each pattern kind
type Weights struct {
	Exact           int // Exact text match
	CaseInsensitive int // Text match under case folding
	Tag             int // Per accepted tag present on the token
	Value           int // Value under the pattern key is accepted
	Token           int // Base score of every matched token
}

// DefaultWeights returns the standard amplifiers
func DefaultWeights() Weights {
	return Weights{
		Exact:           5,
		CaseInsensitive: 3,
		Tag:             1,
		Value:           1,
		Token:           10,
	}
}

// Matcher applies rules to tokens. The zero value is not usable; use New.
type Matcher struct {
	Weights    Weights
	StepBudget int
	Logger     *zap.Logger
}

// New creates a Matcher with default weights and step budget
func New(logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{
		Weights:    DefaultWeights(),
		StepBudget: DefaultStepBudget,
		Logger:     logger,
	}
}

var std = New(nil)

// MatchScore scores token against atom with the default weights
func MatchScore(token *model.Token, atom model.Atom) int {
	return std.MatchScore(token, atom)
}

// ApplyRule scans rule over tokens with the default matcher
func ApplyRule(tokens []model.Token, rule model.Rule) []model.RuleMatch {
	return std.ApplyRule(tokens, rule)
}

// ApplyRules scans every rule over tokens with the default matcher
func ApplyRules(tokens []model.Token, rules []model.Rule) []model.RuleMatch {
	return std.ApplyRules(tokens, rules)
}

// MatchScore returns the score of token against atom, 0 when any pattern of
// the atom is unsatisfied. A nil token never matches.
func (m *Matcher) MatchScore(token *model.Token, atom model.Atom) int {
	if token == nil {
		return 0
	}

	score := m.Weights.Token
	for _, p := range atom.Patterns {
		partial := m.patternScore(token, p)
		satisfied := partial > 0
		if p.Invert {
			satisfied = !satisfied
		}
		if !satisfied {
			return 0
		}
		score += partial
	}
	return score
}

func (m *Matcher) patternScore(token *model.Token, p model.Pattern) int {
	switch p.Kind {
	case model.PatternTag:
		n := 0
		for _, tag := range p.AnyOf {
			if token.HasTag(tag) {
				n++
			}
		}
		return n * m.Weights.Tag
	case model.PatternText:
		for _, v := range p.AnyOf {
			if token.Text == v {
				return m.Weights.Exact
			}
		}
		return 0
	case model.PatternTextFold:
		for _, v := range p.AnyOf {
			if strings.EqualFold(token.Text, v) {
				return m.Weights.CaseInsensitive
			}
		}
		return 0
	case model.PatternValue:
		val, ok := token.Value(p.Key)
		if !ok {
			return 0
		}
		for _, v := range p.AnyOf {
			if val == v {
				return m.Weights.Value
			}
		}
		return 0
	default:
		panic(fmt.Sprintf("matcher: unknown pattern kind %s", p.Kind))
	}
}

// ApplyRule returns every successful scan of rule over tokens. After a
// success the scan resumes past the matched span.
func (m *Matcher) ApplyRule(tokens []model.Token, rule model.Rule) []model.RuleMatch {
	return m.applyRule(tokens, rule, 0)
}

// ApplyRules concatenates the matches of every rule in declaration order
func (m *Matcher) ApplyRules(tokens []model.Token, rules []model.Rule) []model.RuleMatch {
	var out []model.RuleMatch
	for i, rule := range rules {
		out = append(out, m.applyRule(tokens, rule, i)...)
	}
	return out
}

func (m *Matcher) applyRule(tokens []model.Token, rule model.Rule, index int) []model.RuleMatch {
	if rule.Disabled {
		return nil
	}
	for _, atom := range rule.Atoms {
		for _, act := range atom.Actions {
			if !act.Kind.Valid() {
				panic(fmt.Sprintf("matcher: rule %s: unknown action kind %s", rule.ID, act.Kind))
			}
		}
	}

	var out []model.RuleMatch
	last := len(tokens) - len(rule.Atoms)
	for i := 0; i <= last; {
		match, ok := m.scan(tokens, rule, i)
		if !ok {
			i++
			continue
		}
		match.RuleIndex = index
		out = append(out, match)
		i = max(match.End, i+1)
	}
	return out
}

// scan walks (token, atom) pairs from start until every atom is consumed or
// a required atom fails
func (m *Matcher) scan(tokens []model.Token, rule model.Rule, start int) (model.RuleMatch, bool) {
	budget := m.StepBudget
	if budget <= 0 {
		budget = DefaultStepBudget
	}

	match := model.RuleMatch{
		RuleID: rule.ID,
		Start:  start,
	}
	pos, atomIdx, total := start, 0, 0

	for atomIdx < len(rule.Atoms) {
		if budget == 0 {
			m.Logger.Debug("rule attempt exceeded step budget",
				zap.String("rule", rule.ID),
				zap.Int("start", start))
			return model.RuleMatch{}, false
		}
		budget--

		atom := rule.Atoms[atomIdx]
		var tok *model.Token
		if pos < len(tokens) {
			tok = &tokens[pos]
		}

		score := m.MatchScore(tok, atom)
		switch {
		case score > 0:
			match.Items = append(match.Items, model.MatchItem{
				TokenIndex: pos,
				AtomIndex:  atomIdx,
				Score:      score,
			})
			total += score
			pos++
			atomIdx++
		case atom.Optional():
			atomIdx++
		default:
			return model.RuleMatch{}, false
		}
	}

	match.End = pos
	match.Priority = rule.Priority + total
	return match, true
}
