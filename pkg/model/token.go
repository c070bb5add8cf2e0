package model

// Token is one lexical unit produced by the tokenizer
type Token struct {
	Text   string            `json:"text"`             // Matched text
	Pre    string            `json:"pre,omitempty"`    // Horizontal whitespace consumed before Text
	Post   string            `json:"post,omitempty"`   // Horizontal whitespace consumed after Text
	Tags   []string          `json:"tags,omitempty"`   // Token types from every recognizer that produced Text
	Values map[string]string `json:"values,omitempty"` // Evaluated value per recognizer tag
	Score  float64           `json:"score,omitempty"`  // Winning recognizer score
	Pos    int               `json:"pos"`              // Byte offset of Text in the source
}

// HasTag reports whether the token carries tag
func (t Token) HasTag(tag string) bool {
	for _, have := range t.Tags {
		if have == tag {
			return true
		}
	}
	return false
}

// HasAnyTag reports whether the token carries at least one of tags
func (t Token) HasAnyTag(tags []string) bool {
	for _, tag := range tags {
		if t.HasTag(tag) {
			return true
		}
	}
	return false
}

// Value returns the value recorded under key
func (t Token) Value(key string) (string, bool) {
	if t.Values == nil {
		return "", false
	}
	v, ok := t.Values[key]
	return v, ok
}

// End returns the byte offset just past Text
func (t Token) End() int {
	return t.Pos + len(t.Text)
}

// Texts returns the text of each token
func Texts(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Text
	}
	return out
}
