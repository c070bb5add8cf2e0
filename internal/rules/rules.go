// Package rules loads rule sets: recognizers, rules and a field schema kept
// together in one YAML, TOML or JSON file.
package rules

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dlclark/regexp2"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/tagex/pkg/model"
	"github.com/ppiankov/tagex/pkg/recognizers"
	"github.com/ppiankov/tagex/pkg/tokenizer"
)

// ErrInvalidRuleSet wraps every load and validation failure
var ErrInvalidRuleSet = errors.New("invalid rule set")

// Format is a rule file encoding
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// FormatOf picks the format from the file extension
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unsupported file extension %q", ErrInvalidRuleSet, filepath.Ext(path))
	}
}

// RuleSet is a decoded and validated rule file
type RuleSet struct {
	Name        string      `yaml:"name" toml:"name" json:"name"`
	Recognizers Recognizers `yaml:"recognizers" toml:"recognizers" json:"recognizers"`
	Rules       []RuleDef   `yaml:"rules" toml:"rules" json:"rules"`
	Fields      []Field     `yaml:"fields" toml:"fields" json:"fields"`

	rules       []model.Rule
	fingerprint string
}

// Recognizers lists what the tokenizer registers, in this order: bundles,
// patterns, dictionaries
type Recognizers struct {
	Bundles      []string        `yaml:"bundles,omitempty" toml:"bundles,omitempty" json:"bundles,omitempty"`
	Patterns     []PatternDef    `yaml:"patterns,omitempty" toml:"patterns,omitempty" json:"patterns,omitempty"`
	Dictionaries []DictionaryDef `yaml:"dictionaries,omitempty" toml:"dictionaries,omitempty" json:"dictionaries,omitempty"`
}

// PatternDef declares a pattern recognizer
type PatternDef struct {
	Expr             string   `yaml:"expr" toml:"expr" json:"expr"`
	Type             string   `yaml:"type,omitempty" toml:"type,omitempty" json:"type,omitempty"`
	Priority         float64  `yaml:"priority,omitempty" toml:"priority,omitempty" json:"priority,omitempty"`
	Avoid            string   `yaml:"avoid,omitempty" toml:"avoid,omitempty" json:"avoid,omitempty"`
	Group            int      `yaml:"group,omitempty" toml:"group,omitempty" json:"group,omitempty"`
	RequiredPrevTags []string `yaml:"required_prev_tags,omitempty" toml:"required_prev_tags,omitempty" json:"required_prev_tags,omitempty"`
	Evaluator        string   `yaml:"evaluator,omitempty" toml:"evaluator,omitempty" json:"evaluator,omitempty"`
}

// DictionaryDef declares a dictionary recognizer
type DictionaryDef struct {
	Label   string            `yaml:"label" toml:"label" json:"label"`
	Entries map[string]string `yaml:"entries" toml:"entries" json:"entries"`
}

// RuleDef is the file form of a model.Rule
type RuleDef struct {
	ID       string    `yaml:"id" toml:"id" json:"id"`
	Priority int       `yaml:"priority,omitempty" toml:"priority,omitempty" json:"priority,omitempty"`
	Disabled bool      `yaml:"disabled,omitempty" toml:"disabled,omitempty" json:"disabled,omitempty"`
	Atoms    []AtomDef `yaml:"atoms" toml:"atoms" json:"atoms"`
}

// AtomDef is the file form of a model.Atom. Tag, Text and TextICase are
// shorthands for a single pattern of that kind and Set for a tag action.
type AtomDef struct {
	Patterns  []model.Pattern `yaml:"patterns,omitempty" toml:"patterns,omitempty" json:"patterns,omitempty"`
	Tag       []string        `yaml:"tag,omitempty" toml:"tag,omitempty" json:"tag,omitempty"`
	Text      []string        `yaml:"text,omitempty" toml:"text,omitempty" json:"text,omitempty"`
	TextICase []string        `yaml:"text_i_case,omitempty" toml:"text_i_case,omitempty" json:"text_i_case,omitempty"`
	Min       *int            `yaml:"min,omitempty" toml:"min,omitempty" json:"min,omitempty"` // Defaults to 1
	Set       string          `yaml:"set,omitempty" toml:"set,omitempty" json:"set,omitempty"`
	Actions   []model.Action  `yaml:"actions,omitempty" toml:"actions,omitempty" json:"actions,omitempty"`
}

// Load reads and validates the rule file at path
func Load(path string) (*RuleSet, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule set: %w", err)
	}
	rs, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rs, nil
}

// Parse decodes and validates a rule set. Unknown keys are rejected.
func Parse(data []byte, format Format) (*RuleSet, error) {
	var rs RuleSet
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&rs); err != nil {
			return nil, fmt.Errorf("%w: decode yaml: %v", ErrInvalidRuleSet, err)
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), &rs)
		if err != nil {
			return nil, fmt.Errorf("%w: decode toml: %v", ErrInvalidRuleSet, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("%w: unknown toml key %s", ErrInvalidRuleSet, undecoded[0])
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&rs); err != nil {
			return nil, fmt.Errorf("%w: decode json: %v", ErrInvalidRuleSet, err)
		}
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrInvalidRuleSet, format)
	}

	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// Validate checks the whole rule set and prepares its model rules
func (rs *RuleSet) Validate() error {
	if err := rs.Recognizers.validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRuleSet, err)
	}

	seen := make(map[string]bool, len(rs.Rules))
	out := make([]model.Rule, 0, len(rs.Rules))
	for _, def := range rs.Rules {
		if seen[def.ID] {
			return fmt.Errorf("%w: duplicate rule id %q", ErrInvalidRuleSet, def.ID)
		}
		seen[def.ID] = true

		rule := def.Rule()
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRuleSet, err)
		}
		out = append(out, rule)
	}

	if err := validateFields(rs.Fields, "/"); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRuleSet, err)
	}

	sum, err := json.Marshal(rs)
	if err != nil {
		return fmt.Errorf("%w: fingerprint: %v", ErrInvalidRuleSet, err)
	}
	h := sha256.Sum256(sum)

	rs.rules = out
	rs.fingerprint = hex.EncodeToString(h[:])
	return nil
}

// ModelRules returns the validated rules in declaration order
func (rs *RuleSet) ModelRules() []model.Rule {
	return rs.rules
}

// Fingerprint identifies the rule set content
func (rs *RuleSet) Fingerprint() string {
	return rs.fingerprint
}

// Init returns the tokenizer init registering every recognizer of the set
func (rs *RuleSet) Init() tokenizer.Init {
	recs := rs.Recognizers
	return func(r *tokenizer.Registry) {
		for _, name := range recs.Bundles {
			if init, ok := recognizers.Bundle(name); ok {
				init(r)
			}
		}
		for _, p := range recs.Patterns {
			// Registration errors are kept by the registry and reported by tokenizer.New
			_ = r.AddPattern(p.Expr, p.options())
		}
		for _, d := range recs.Dictionaries {
			r.AddDictionary(d.Label, d.Entries)
		}
	}
}

func (recs Recognizers) validate() error {
	for _, name := range recs.Bundles {
		if _, ok := recognizers.Bundle(name); !ok {
			return fmt.Errorf("unknown bundle %q (known: %s)", name, strings.Join(recognizers.BundleNames(), ", "))
		}
	}
	for i, p := range recs.Patterns {
		if p.Expr == "" {
			return fmt.Errorf("pattern %d: empty expression", i)
		}
		if _, err := regexp2.Compile(p.Expr, regexp2.None); err != nil {
			return fmt.Errorf("pattern %d: %w", i, err)
		}
		if p.Avoid != "" {
			if _, err := regexp2.Compile(p.Avoid, regexp2.None); err != nil {
				return fmt.Errorf("pattern %d avoid: %w", i, err)
			}
		}
		if p.Group < 0 {
			return fmt.Errorf("pattern %d: negative group", i)
		}
		if p.Evaluator != "" {
			if _, ok := recognizers.Evaluator(p.Evaluator); !ok {
				return fmt.Errorf("pattern %d: unknown evaluator %q", i, p.Evaluator)
			}
		}
	}
	for i, d := range recs.Dictionaries {
		if d.Label == "" {
			return fmt.Errorf("dictionary %d: empty label", i)
		}
	}
	return nil
}

func (p PatternDef) options() tokenizer.PatternOptions {
	opts := tokenizer.PatternOptions{
		TokenType:        p.Type,
		Priority:         p.Priority,
		Avoid:            p.Avoid,
		Group:            p.Group,
		RequiredPrevTags: p.RequiredPrevTags,
	}
	if fn, ok := recognizers.Evaluator(p.Evaluator); ok {
		opts.Evaluate = fn
	}
	return opts
}

// Rule converts the definition to a model.Rule
func (def RuleDef) Rule() model.Rule {
	rule := model.Rule{
		ID:       def.ID,
		Priority: def.Priority,
		Disabled: def.Disabled,
		Atoms:    make([]model.Atom, len(def.Atoms)),
	}
	for i, a := range def.Atoms {
		rule.Atoms[i] = a.Atom()
	}
	return rule
}

// Atom converts the definition to a model.Atom
func (a AtomDef) Atom() model.Atom {
	atom := model.Atom{Min: 1}
	if a.Min != nil {
		atom.Min = *a.Min
	}

	atom.Patterns = append(atom.Patterns, a.Patterns...)
	if len(a.Tag) > 0 {
		atom.Patterns = append(atom.Patterns, model.Pattern{Kind: model.PatternTag, AnyOf: a.Tag})
	}
	if len(a.Text) > 0 {
		atom.Patterns = append(atom.Patterns, model.Pattern{Kind: model.PatternText, AnyOf: a.Text})
	}
	if len(a.TextICase) > 0 {
		atom.Patterns = append(atom.Patterns, model.Pattern{Kind: model.PatternTextFold, AnyOf: a.TextICase})
	}

	if a.Set != "" {
		atom.Actions = append(atom.Actions, model.Action{Kind: model.ActionSetTag, Value: a.Set})
	}
	atom.Actions = append(atom.Actions, a.Actions...)
	return atom
}
