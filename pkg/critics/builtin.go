package critics

import (
	"context"
	"strings"

	"mercator-hq/minos/pkg/verdict"
)

// KeywordCritic is a simple rule critic: it blocks inputs containing any of
// its configured keywords and allows everything else.
type KeywordCritic struct {
	name       string
	keywords   []string
	confidence float64
}

// NewKeywordCritic creates a keyword critic. Matching is case-insensitive.
func NewKeywordCritic(name string, keywords []string, confidence float64) *KeywordCritic {
	if confidence <= 0 || confidence > 1 {
		confidence = 0.9
	}
	lowered := make([]string, len(keywords))
	for i, k := range keywords {
		lowered[i] = strings.ToLower(k)
	}
	return &KeywordCritic{name: name, keywords: lowered, confidence: confidence}
}

// Name identifies the critic.
func (c *KeywordCritic) Name() string {
	return c.name
}

// Evaluate blocks when a configured keyword appears in the input.
func (c *KeywordCritic) Evaluate(ctx context.Context, input *Input) (*verdict.EvaluatorReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := strings.ToLower(input.Text)
	for _, kw := range c.keywords {
		if strings.Contains(text, kw) {
			return verdict.NewReport(c.name, verdict.VerdictBlock, c.confidence,
				"input matches blocked keyword "+kw)
		}
	}
	return verdict.NewReport(c.name, verdict.VerdictAllow, c.confidence, "no blocked keywords")
}

// LengthCritic flags inputs above a size threshold for review. It exists
// mostly to exercise the threshold-rule critic shape.
type LengthCritic struct {
	name      string
	maxLength int
}

// NewLengthCritic creates a length critic.
func NewLengthCritic(name string, maxLength int) *LengthCritic {
	if maxLength <= 0 {
		maxLength = 10000
	}
	return &LengthCritic{name: name, maxLength: maxLength}
}

// Name identifies the critic.
func (c *LengthCritic) Name() string {
	return c.name
}

// Evaluate defers oversized inputs to review.
func (c *LengthCritic) Evaluate(ctx context.Context, input *Input) (*verdict.EvaluatorReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(input.Text) > c.maxLength {
		return verdict.NewReport(c.name, verdict.VerdictReview, 0.7, "input exceeds size threshold")
	}
	return verdict.NewReport(c.name, verdict.VerdictAllow, 0.8, "input within size threshold")
}
