package model

import (
	"errors"
	"fmt"
)

// PatternKind selects how a Pattern tests a token
type PatternKind int

const (
	PatternTag      PatternKind = iota // Token carries one of the accepted tags
	PatternText                        // Token text equals an accepted value
	PatternTextFold                    // Token text equals an accepted value under case folding
	PatternValue                       // Token value under Key equals an accepted value
)

var patternKindNames = [...]string{
	PatternTag:      "tag",
	PatternText:     "text",
	PatternTextFold: "text_i_case",
	PatternValue:    "val",
}

var patternKindFromName = map[string]PatternKind{
	"tag":         PatternTag,
	"text":        PatternText,
	"text_i_case": PatternTextFold,
	"val":         PatternValue,
}

// Valid reports whether k is a known kind
func (k PatternKind) Valid() bool {
	return k >= 0 && int(k) < len(patternKindNames)
}

func (k PatternKind) String() string {
	if k.Valid() {
		return patternKindNames[k]
	}
	return fmt.Sprintf("PatternKind(%d)", int(k))
}

// MarshalText encodes the kind by name
func (k PatternKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("unknown pattern kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name such as "tag" or "text_i_case"
func (k *PatternKind) UnmarshalText(data []byte) error {
	kind, ok := patternKindFromName[string(data)]
	if !ok {
		return fmt.Errorf("unknown pattern kind %q", string(data))
	}
	*k = kind
	return nil
}

// ActionKind selects what an Action does to matched tokens
type ActionKind int

const (
	ActionSetTag ActionKind = iota // Set the winning tag of the matched token
)

var actionKindNames = [...]string{
	ActionSetTag: "tag",
}

// Valid reports whether k is a known kind
func (k ActionKind) Valid() bool {
	return k >= 0 && int(k) < len(actionKindNames)
}

func (k ActionKind) String() string {
	if k.Valid() {
		return actionKindNames[k]
	}
	return fmt.Sprintf("ActionKind(%d)", int(k))
}

// MarshalText encodes the kind by name
func (k ActionKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("unknown action kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes an action kind name
func (k *ActionKind) UnmarshalText(data []byte) error {
	for i, name := range actionKindNames {
		if name == string(data) {
			*k = ActionKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown action kind %q", string(data))
}

// Pattern is a single condition on a token. Patterns of one Atom are AND-combined.
type Pattern struct {
	Kind   PatternKind `json:"kind" yaml:"kind" toml:"kind"`
	AnyOf  []string    `json:"any" yaml:"any" toml:"any"`
	Key    string      `json:"key,omitempty" yaml:"key,omitempty" toml:"key,omitempty"`
	Invert bool        `json:"invert,omitempty" yaml:"invert,omitempty" toml:"invert,omitempty"`
}

// Action is applied to the token matched by its Atom
type Action struct {
	Kind  ActionKind `json:"kind" yaml:"kind" toml:"kind"`
	Value string     `json:"value" yaml:"value" toml:"value"`
}

// Atom is one position of a Rule
type Atom struct {
	Patterns []Pattern `json:"patterns" yaml:"patterns" toml:"patterns"`
	Min      int       `json:"min" yaml:"min" toml:"min"` // 0 = optional, otherwise required
	Actions  []Action  `json:"actions,omitempty" yaml:"actions,omitempty" toml:"actions,omitempty"`
}

// Optional reports whether the atom may be skipped
func (a Atom) Optional() bool {
	return a.Min == 0
}

// Tag returns the value of the first set-tag action, or ""
func (a Atom) Tag() string {
	for _, act := range a.Actions {
		if act.Kind == ActionSetTag {
			return act.Value
		}
	}
	return ""
}

// Rule is a sequence pattern over tokens
type Rule struct {
	ID       string `json:"id" yaml:"id" toml:"id"`
	Priority int    `json:"priority" yaml:"priority" toml:"priority"`
	Atoms    []Atom `json:"atoms" yaml:"atoms" toml:"atoms"`
	Disabled bool   `json:"disabled,omitempty" yaml:"disabled,omitempty" toml:"disabled,omitempty"`
}

// Validate checks that every pattern and action kind is known
func (r Rule) Validate() error {
	if r.ID == "" {
		return errors.New("rule id is empty")
	}
	for i, atom := range r.Atoms {
		if atom.Min < 0 {
			return fmt.Errorf("rule %s atom %d: negative min %d", r.ID, i, atom.Min)
		}
		for _, p := range atom.Patterns {
			if !p.Kind.Valid() {
				return fmt.Errorf("rule %s atom %d: %s", r.ID, i, p.Kind)
			}
			if p.Kind == PatternValue && p.Key == "" {
				return fmt.Errorf("rule %s atom %d: val pattern without key", r.ID, i)
			}
		}
		for _, act := range atom.Actions {
			if !act.Kind.Valid() {
				return fmt.Errorf("rule %s atom %d: %s", r.ID, i, act.Kind)
			}
		}
	}
	return nil
}
