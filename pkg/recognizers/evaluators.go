package recognizers

import (
	"strings"
)

// EvaluatorFunc turns matched text into a token value. An empty result
// suppresses the recognizer for that match.
type EvaluatorFunc func(string) string

var (
	groupSeparators = strings.NewReplacer(",", "", "`", "", "'", "")
	dotSeparators   = strings.NewReplacer(".", "", "`", "", "'", "")
)

var evaluators = map[string]EvaluatorFunc{
	"identity": func(s string) string { return s },
	"upper":    strings.ToUpper,
	"lower":    strings.ToLower,
	"digits":   Digits,
	// 1,234.5 -> 1234.5
	"dot-float": DotFloat,
	// 1.234,5 -> 1234.5
	"comma-float": CommaFloat,
	"odd":         Odd,
}

// Evaluator returns the evaluator registered under name
func Evaluator(name string) (EvaluatorFunc, bool) {
	fn, ok := evaluators[name]
	return fn, ok
}

// Digits keeps only the decimal digits of s
func Digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// DotFloat normalizes a number written with a dot decimal separator
func DotFloat(s string) string {
	return groupSeparators.Replace(s)
}

// CommaFloat normalizes a number written with a comma decimal separator
func CommaFloat(s string) string {
	return strings.Replace(dotSeparators.Replace(s), ",", ".", 1)
}

// Odd keeps s only when it is an odd integer
func Odd(s string) string {
	if s == "" {
		return ""
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return ""
		}
	}
	if (s[len(s)-1]-'0')%2 == 1 {
		return s
	}
	return ""
}
