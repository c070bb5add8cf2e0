package rules

import (
	"fmt"
	"strconv"
)

// Mode selects how a field turns the tokens of its tag into a value
type Mode string

const (
	ModeBest  Mode = "best"  // Value of the best token
	ModeSeq   Mode = "seq"   // Values of the best token and the run of same-tag tokens after it
	ModeInt   Mode = "int"   // Best value parsed as an integer
	ModeFloat Mode = "float" // Best value parsed as a float
)

// Field maps a tag to one output value. A field with Regions instead of Tag
// splits the range with the region tags and evaluates its nested fields per
// region, producing a list.
type Field struct {
	Name    string  `yaml:"name" toml:"name" json:"name"`
	Tag     string  `yaml:"tag,omitempty" toml:"tag,omitempty" json:"tag,omitempty"`
	Mode    Mode    `yaml:"mode,omitempty" toml:"mode,omitempty" json:"mode,omitempty"`
	Default string  `yaml:"default,omitempty" toml:"default,omitempty" json:"default,omitempty"`
	Regions *Region `yaml:"regions,omitempty" toml:"regions,omitempty" json:"regions,omitempty"`
}

// Region is a repeated group of fields
type Region struct {
	Tags   []string `yaml:"tags" toml:"tags" json:"tags"`
	Fields []Field  `yaml:"fields" toml:"fields" json:"fields"`
}

// EffectiveMode returns Mode, defaulting to best
func (f Field) EffectiveMode() Mode {
	if f.Mode == "" {
		return ModeBest
	}
	return f.Mode
}

// Convert parses raw according to the field mode
func (f Field) Convert(raw string) (any, error) {
	switch f.EffectiveMode() {
	case ModeInt:
		return strconv.Atoi(raw)
	case ModeFloat:
		return strconv.ParseFloat(raw, 64)
	default:
		return raw, nil
	}
}

// DefaultValue returns the converted default, false when none is set
func (f Field) DefaultValue() (any, bool) {
	if f.Default == "" {
		return nil, false
	}
	v, err := f.Convert(f.Default)
	if err != nil {
		return nil, false
	}
	return v, true
}

func validateFields(fields []Field, path string) error {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return fmt.Errorf("field under %s: empty name", path)
		}
		if seen[f.Name] {
			return fmt.Errorf("field %s%s: duplicate name", path, f.Name)
		}
		seen[f.Name] = true

		switch {
		case f.Regions != nil && f.Tag != "":
			return fmt.Errorf("field %s%s: tag and regions are exclusive", path, f.Name)
		case f.Regions != nil:
			if len(f.Regions.Tags) == 0 || len(f.Regions.Fields) == 0 {
				return fmt.Errorf("field %s%s: regions need tags and fields", path, f.Name)
			}
			if err := validateFields(f.Regions.Fields, path+f.Name+"/*/"); err != nil {
				return err
			}
			continue
		case f.Tag == "":
			return fmt.Errorf("field %s%s: no tag", path, f.Name)
		}

		switch f.EffectiveMode() {
		case ModeBest, ModeSeq, ModeInt, ModeFloat:
		default:
			return fmt.Errorf("field %s%s: unknown mode %q", path, f.Name, f.Mode)
		}
		if f.Default != "" {
			if _, err := f.Convert(f.Default); err != nil {
				return fmt.Errorf("field %s%s: default %q: %v", path, f.Name, f.Default, err)
			}
		}
	}
	return nil
}
