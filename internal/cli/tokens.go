package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/tagex/internal/pipeline"
	"github.com/ppiankov/tagex/pkg/extractor"
)

var tokensPretty bool

// tokenView is one annotated token as printed by the tokens command
type tokenView struct {
	Index  int               `json:"index"`
	Text   string            `json:"text"`
	Tags   []string          `json:"tags"`
	Values map[string]string `json:"values,omitempty"`
	Tag    string            `json:"tag,omitempty"`   // Winning rule tag
	Rules  []string          `json:"rules,omitempty"` // Rules touching the token, best first
}

// tokensCmd represents the tokens command
var tokensCmd = &cobra.Command{
	Use:   "tokens <rules> [file|url|-]",
	Short: "Print the annotated token stream of a document",
	Long: `Tokens shows how a rule set sees a document: every token with its
recognizer tags and values, the tag assigned by the winning rule and the
rules that matched it. Use it to debug recognizers and rules.

Example:
  tagex tokens rulesets/parcel.yaml booking.txt --pretty`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runTokens,
}

func init() {
	rootCmd.AddCommand(tokensCmd)

	tokensCmd.Flags().BoolVar(&tokensPretty, "pretty", false, "indent JSON output")
	tokensCmd.Flags().BoolVar(&forceHTML, "html", false, "treat the input as HTML regardless of its type")
	tokensCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the token cache")
}

func runTokens(cmd *cobra.Command, args []string) error {
	p, err := buildPipeline(args[0], runOptions{forceHTML: forceHTML, noCache: noCache}, nil)
	if err != nil {
		return err
	}

	rc, err := annotate(cmd.Context(), p, inputRef(args))
	if err != nil {
		return err
	}
	return pipeline.WriteJSON(cmd.OutOrStdout(), tokenViews(rc), tokensPretty)
}

func annotate(ctx context.Context, p *pipeline.Pipeline, ref string) (*extractor.RangeContext, error) {
	text, err := p.Load(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", ref, err)
	}
	return p.Context(ctx, text)
}

func tokenViews(rc *extractor.RangeContext) []tokenView {
	views := make([]tokenView, len(rc.Tokens))
	for i, tok := range rc.Tokens {
		v := tokenView{
			Index:  i,
			Text:   tok.Text,
			Tags:   tok.Tags,
			Values: tok.Values,
			Tag:    rc.Matches[i].Tag,
		}
		for _, m := range rc.Matches[i].All {
			v.Rules = append(v.Rules, m.RuleID)
		}
		views[i] = v
	}
	return views
}
