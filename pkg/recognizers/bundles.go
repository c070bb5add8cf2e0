// Package recognizers provides ready-made recognizer bundles and named value
// evaluators for the tokenizer.
package recognizers

import (
	"sort"

	"github.com/ppiankov/tagex/pkg/tokenizer"
)

// Token types produced by the bundles
const (
	TagHex      = "HEX"
	TagNum      = "NUM"
	TagFloat    = "FLOAT"
	TagAlpha    = "ALPHA"
	TagAlphaNum = "ALPHA_NUM"
	TagPunct    = "PUNCT"
	TagSymbol   = "SYMBOL"
	TagPara     = "PARA"
	TagURL      = "URL"
	TagEmail    = "EMAIL"
	TagISODate  = "ISO_DATE"
)

const (
	urlExpr = `(?i)^(?:https?://(?:www\.|(?!www))[a-z0-9][a-z0-9-]+[a-z0-9]\.[^\s]{2,}` +
		`|www\.[a-z0-9][a-z0-9-]+[a-z0-9]\.[^\s]{2,}` +
		`|https?://(?:www\.|(?!www))[a-z0-9]+\.[^\s]{2,}` +
		`|www\.[a-z0-9]+\.[^\s]{2,})`

	emailExpr = `^(?:[a-z0-9!#$%&'*+/=?^_\x60{|}~-]+(?:\.[a-z0-9!#$%&'*+/=?^_\x60{|}~-]+)*` +
		`|"(?:[\x01-\x08\x0b\x0c\x0e-\x1f\x21\x23-\x5b\x5d-\x7f]|\\[\x01-\x09\x0b\x0c\x0e-\x7f])*")` +
		`@(?:(?:[a-z0-9](?:[a-z0-9-]*[a-z0-9])?\.)+[a-z0-9](?:[a-z0-9-]*[a-z0-9])?` +
		`|\[(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?` +
		`|[a-z0-9-]*[a-z0-9]:(?:[\x01-\x08\x0b\x0c\x0e-\x1f\x21-\x5a\x53-\x7f]|\\[\x01-\x09\x0b\x0c\x0e-\x7f])+)\])`

	isoDateExpr = `^(?:\d{4}-[01]\d-[0-3]\dT[0-2]\d:[0-5]\d:[0-5]\d\.\d+(?:[+-][0-2]\d:[0-5]\d|Z)` +
		`|\d{4}-[01]\d-[0-3]\dT[0-2]\d:[0-5]\d:[0-5]\d(?:[+-][0-2]\d:[0-5]\d|Z)` +
		`|\d{4}-[01]\d-[0-3]\dT[0-2]\d:[0-5]\d(?:[+-][0-2]\d:[0-5]\d|Z))`
)

// CharClass registers numeric, hexadecimal, float, alphabetic, punctuation,
// symbol and line-break recognizers
func CharClass(r *tokenizer.Registry) {
	r.MustAddPattern(`^0x[0-9a-fA-F]+`, tokenizer.PatternOptions{TokenType: TagHex, Priority: 0.9})
	r.MustAddPattern(`^[0-9]+`, tokenizer.PatternOptions{TokenType: TagNum, Priority: 0.8})
	r.MustAddPattern(`^[0-9]+[.,][0-9]+`, tokenizer.PatternOptions{TokenType: TagFloat, Priority: 0.8})
	r.MustAddPattern(`^\p{L}+`, tokenizer.PatternOptions{TokenType: TagAlpha, Priority: 0.3})
	r.MustAddPattern(`^\p{L}[0-9\p{L}]+`, tokenizer.PatternOptions{TokenType: TagAlphaNum})
	r.MustAddPattern(`^\p{P}+`, tokenizer.PatternOptions{TokenType: TagPunct})
	r.MustAddPattern(`^\p{S}+`, tokenizer.PatternOptions{TokenType: TagSymbol, Priority: 0.8})
	r.MustAddPattern(`^[\r\n]`, tokenizer.PatternOptions{TokenType: TagPara, Priority: 0.8})
}

// URLs registers web address and e-mail recognizers
func URLs(r *tokenizer.Registry) {
	r.MustAddPattern(urlExpr, tokenizer.PatternOptions{TokenType: TagURL, Priority: 0.8})
	r.MustAddPattern(emailExpr, tokenizer.PatternOptions{TokenType: TagEmail})
}

// Dates registers an ISO 8601 timestamp recognizer
func Dates(r *tokenizer.Registry) {
	r.MustAddPattern(isoDateExpr, tokenizer.PatternOptions{TokenType: TagISODate, Priority: 0.8})
}

// Standard registers URLs, Dates and CharClass in that order
func Standard(r *tokenizer.Registry) {
	URLs(r)
	Dates(r)
	CharClass(r)
}

var bundles = map[string]tokenizer.Init{
	"char-class": CharClass,
	"urls":       URLs,
	"dates":      Dates,
	"standard":   Standard,
}

// Bundle returns the bundle registered under name
func Bundle(name string) (tokenizer.Init, bool) {
	b, ok := bundles[name]
	return b, ok
}

// BundleNames lists the known bundle names in sorted order
func BundleNames() []string {
	names := make([]string, 0, len(bundles))
	for name := range bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Compose runs several inits in order
func Compose(inits ...tokenizer.Init) tokenizer.Init {
	return func(r *tokenizer.Registry) {
		for _, init := range inits {
			if init != nil {
				init(r)
			}
		}
	}
}
