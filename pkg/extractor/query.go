package extractor

// NotFound is returned by FindBestToken when no token carries the tag
const NotFound = -1

// BestValue is the value of one token selected for a tag
type BestValue struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
	Dict  string `json:"dict,omitempty"` // Token value under the first of its tags that has one
	Value string `json:"value"`          // Dict when not empty, else Text
}

// FindBestToken returns the index of the token in range whose winning tag is
// tag and whose top match has the highest priority. The earliest token wins
// ties.
func FindBestToken(ctx *RangeContext, tag string) int {
	best, bestPriority := NotFound, 0
	for i := ctx.Range.Start; i < ctx.Range.End; i++ {
		m := ctx.Matches[i]
		top, ok := m.Top()
		if !ok || m.Tag != tag {
			continue
		}
		if best == NotFound || top.Priority > bestPriority {
			best, bestPriority = i, top.Priority
		}
	}
	return best
}

// FindBest returns the value of the best token for tag and records label as
// its provenance
func FindBest(ctx *RangeContext, tag, label string) (BestValue, bool) {
	idx := FindBestToken(ctx, tag)
	if idx == NotFound {
		return BestValue{}, false
	}
	ctx.Provenance.Set(idx, label)
	return ctx.value(idx), true
}

// FindBestSeq returns the best token for tag followed by every directly
// following token with the same winning tag. Provenance is recorded for each.
func FindBestSeq(ctx *RangeContext, tag, label string) []BestValue {
	idx := FindBestToken(ctx, tag)
	if idx == NotFound {
		return nil
	}

	var out []BestValue
	for i := idx; i < ctx.Range.End && ctx.Matches[i].Tag == tag; i++ {
		ctx.Provenance.Set(i, label)
		out = append(out, ctx.value(i))
	}
	return out
}

// FindTagsRegions splits the range before every token whose winning tag is
// one of tags and was already seen since the last split. The regions cover
// the range exactly and share the context's data.
func FindTagsRegions(ctx *RangeContext, tags []string) []*RangeContext {
	watched := make(map[string]bool, len(tags))
	for _, tag := range tags {
		watched[tag] = true
	}

	var regions []*RangeContext
	seen := make(map[string]int)
	start := ctx.Range.Start
	for i := ctx.Range.Start; i < ctx.Range.End; i++ {
		tag := ctx.Matches[i].Tag
		if watched[tag] && seen[tag] > 0 {
			regions = append(regions, ctx.Sub(start, i))
			start = i
			clear(seen)
		}
		seen[tag]++
	}
	return append(regions, ctx.Sub(start, ctx.Range.End))
}

func (c *RangeContext) value(idx int) BestValue {
	tok := c.Tokens[idx]
	bv := BestValue{Index: idx, Text: tok.Text, Value: tok.Text}
	for _, t := range tok.Tags {
		if v, ok := tok.Value(t); ok {
			bv.Dict = v
			break
		}
	}
	if bv.Dict != "" {
		bv.Value = bv.Dict
	}
	return bv
}
