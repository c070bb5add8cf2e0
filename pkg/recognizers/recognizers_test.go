package recognizers_test

import (
	"context"
	"slices"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/tagex/pkg/model"
	"github.com/ppiankov/tagex/pkg/recognizers"
	"github.com/ppiankov/tagex/pkg/tokenizer"
)

func tokenize(t *testing.T, text string, init tokenizer.Init) []model.Token {
	t.Helper()
	tokens, err := tokenizer.Tokenize(context.Background(), text, init)
	require.NoError(t, err)
	return tokens
}

func firstTags(tokens []model.Token) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		if len(tok.Tags) > 0 {
			out[i] = tok.Tags[0]
		}
	}
	return out
}

// numbers recognizes integers and floats in both dot and comma notation
func numbers(r *tokenizer.Registry) {
	dot, _ := recognizers.Evaluator("dot-float")
	comma, _ := recognizers.Evaluator("comma-float")
	odd, _ := recognizers.Evaluator("odd")
	avoid := `^[,.'\x600-9]`

	r.MustAddPattern(`^[0-9]+`, tokenizer.PatternOptions{TokenType: "NUM", Priority: 0.8})
	r.MustAddPattern(`^[0-9]+`, tokenizer.PatternOptions{TokenType: "ODD", Priority: 0.9, Evaluate: odd})
	r.MustAddPattern(`^[0-9]+`, tokenizer.PatternOptions{TokenType: "FLOAT", Priority: 0.7, Avoid: avoid, Evaluate: dot})
	r.MustAddPattern(`^\d{1,2}[.\x60']\d{3,3}`, tokenizer.PatternOptions{TokenType: "FLOAT", Priority: 0.7, Avoid: avoid, Evaluate: comma})
	r.MustAddPattern(`^\d{1,2}[,\x60']\d{3,3}`, tokenizer.PatternOptions{TokenType: "FLOAT", Priority: 0.81, Avoid: avoid, Evaluate: dot})
	r.MustAddPattern(`^[0-9]+[.][0-9]+`, tokenizer.PatternOptions{TokenType: "FLOAT", Priority: 0.88, Avoid: avoid, Evaluate: dot})
	r.MustAddPattern(`^[0-9]+[,][0-9]{1,2}`, tokenizer.PatternOptions{TokenType: "FLOAT", Priority: 0.88, Avoid: avoid, Evaluate: comma})
	r.MustAddPattern(`^\d{1,3}[,\x60']\d{3,3}\.\d{1,8}`, tokenizer.PatternOptions{TokenType: "FLOAT", Priority: 0.89, Avoid: `^\d`, Evaluate: dot})
	r.MustAddPattern(`^\d{1,3}[,\x60']\d{3,3}[,\x60']\d{3,3}\.\d{1,8}`, tokenizer.PatternOptions{TokenType: "FLOAT", Priority: 0.89, Avoid: `^\d`, Evaluate: dot})
	r.MustAddPattern(`^\d{1,3}[.\x60']\d{3,3},\d{1,8}`, tokenizer.PatternOptions{TokenType: "FLOAT", Priority: 0.8, Avoid: `^\d`, Evaluate: comma})
	r.MustAddPattern(`^\d{1,3}[.\x60']\d{3,3}[.\x60']\d{3,3},\d{1,8}`, tokenizer.PatternOptions{TokenType: "FLOAT", Priority: 0.8, Avoid: `^\d`, Evaluate: comma})
	r.MustAddPattern(`^\p{L}+`, tokenizer.PatternOptions{TokenType: "ALPHA", Priority: 0.3})
	r.MustAddPattern(`^\p{P}+`, tokenizer.PatternOptions{TokenType: "PUNCT"})
}

func TestFloatFormats(t *testing.T) {
	tests := []struct {
		want     float64
		variants []string
	}{
		{1, []string{"1", "1,0"}},
		{1000, []string{"1000", "1,000.0", "1.000"}},
		{123.45, []string{"123,45"}},
		{1234.5, []string{"1,234.50", "1.234,50"}},
		{12345.6, []string{"12345,6"}},
		{1234567.8, []string{"1,234,567.8", "1.234.567,8"}},
	}

	for _, tt := range tests {
		for _, text := range tt.variants {
			t.Run(text, func(t *testing.T) {
				tokens := tokenize(t, "a "+text, numbers)
				require.Len(t, tokens, 2)

				tok := tokens[1]
				assert.Equal(t, text, tok.Text)
				assert.True(t, tok.HasTag("FLOAT"), "tags %v", tok.Tags)

				raw, ok := tok.Value("FLOAT")
				require.True(t, ok)
				got, err := strconv.ParseFloat(raw, 64)
				require.NoError(t, err)
				assert.InDelta(t, tt.want, got, 1e-9)
			})
		}
	}
}

func TestOddEvaluator(t *testing.T) {
	tokens := tokenize(t, "o 10 e 11 o 123456 e 12345 o 2 e 1", numbers)

	want := []string{"ALPHA", "NUM", "ALPHA", "ODD", "ALPHA", "NUM", "ALPHA", "ODD", "ALPHA", "NUM", "ALPHA", "ODD"}
	assert.Equal(t, want, firstTags(tokens))
	for _, tok := range tokens {
		if tok.HasTag("ODD") {
			assert.Equal(t, tok.Text, tok.Values["ODD"])
		}
	}
}

func TestCharClass(t *testing.T) {
	tokens := tokenize(t, "Hi, 10x 0xf5 € 3.14\n", recognizers.CharClass)

	assert.Equal(t, []string{"Hi", ",", "10", "x", "0xf5", "€", "3.14", "\n"}, model.Texts(tokens))
	assert.Equal(t, []string{
		recognizers.TagAlpha,
		recognizers.TagPunct,
		recognizers.TagNum,
		recognizers.TagAlpha,
		recognizers.TagHex,
		recognizers.TagSymbol,
		recognizers.TagFloat,
		recognizers.TagPara,
	}, firstTags(tokens))
	assert.Equal(t, []string{recognizers.TagAlpha, recognizers.TagAlphaNum}, tokens[0].Tags)
}

func TestStandard(t *testing.T) {
	text := "see https://example.com/a?b=1 or mail bob@example.org at 2023-04-05T10:20:30Z"
	tokens := tokenize(t, text, recognizers.Standard)

	assert.Equal(t, []string{
		"see", "https://example.com/a?b=1", "or", "mail", "bob@example.org", "at", "2023-04-05T10:20:30Z",
	}, model.Texts(tokens))
	assert.Equal(t, recognizers.TagURL, tokens[1].Tags[0])
	assert.Equal(t, recognizers.TagEmail, tokens[4].Tags[0])
	assert.Equal(t, recognizers.TagISODate, tokens[6].Tags[0])
}

func TestURLs_WWW(t *testing.T) {
	tokens := tokenize(t, "WWW.Example.org/path", recognizers.URLs)

	require.Len(t, tokens, 1)
	assert.Equal(t, []string{recognizers.TagURL}, tokens[0].Tags)
}

func TestBundle(t *testing.T) {
	for _, name := range recognizers.BundleNames() {
		init, ok := recognizers.Bundle(name)
		require.True(t, ok, name)
		_, err := tokenizer.New(init)
		assert.NoError(t, err, name)
	}

	_, ok := recognizers.Bundle("nope")
	assert.False(t, ok)
	assert.True(t, slices.IsSorted(recognizers.BundleNames()))
}

func TestCompose(t *testing.T) {
	tokens := tokenize(t, "x 2024-01-02T03:04Z", recognizers.Compose(recognizers.CharClass, nil, recognizers.Dates))

	require.Len(t, tokens, 2)
	assert.Equal(t, []string{recognizers.TagISODate}, tokens[1].Tags)
}

func TestEvaluators(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"identity", "AbC", "AbC"},
		{"upper", "kul", "KUL"},
		{"lower", "KUL", "kul"},
		{"digits", "232-4542 9366", "23245429366"},
		{"dot-float", "1,234,567.8", "1234567.8"},
		{"dot-float", "4`111.5", "4111.5"},
		{"comma-float", "1.234.567,8", "1234567.8"},
		{"comma-float", "6'123,35", "6123.35"},
		{"odd", "13", "13"},
		{"odd", "12", ""},
		{"odd", "1a", ""},
		{"odd", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.in, func(t *testing.T) {
			fn, ok := recognizers.Evaluator(tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.want, fn(tt.in))
		})
	}

	_, ok := recognizers.Evaluator("missing")
	assert.False(t, ok)
}
