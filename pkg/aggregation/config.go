package aggregation

import "fmt"

// MoralMode selects which critic categories receive extra weight during
// aggregation.
type MoralMode string

const (
	// ModeBalanced applies no category weighting.
	ModeBalanced MoralMode = "balanced"

	// ModeUtilitarian weights outcome-oriented critics up.
	ModeUtilitarian MoralMode = "utilitarian"

	// ModeDeontological weights rights- and duty-oriented critics up.
	ModeDeontological MoralMode = "deontological"
)

// overrideMultiplier is the priority multiplier for reports tagged
// "override". Large enough that a single override report outweighs any
// realistic number of unit-weight reports.
const overrideMultiplier = 1000.0

// Config contains tunables for the aggregator.
type Config struct {
	// BlockThreshold is the weighted BLOCK score at which the overall
	// verdict becomes BLOCK regardless of other buckets.
	// Default: 2.0
	BlockThreshold float64 `yaml:"block_threshold"`

	// ErrorReviewThreshold is the error rate above which a partially
	// failed batch resolves to REVIEW.
	// Default: 0.5
	ErrorReviewThreshold float64 `yaml:"error_review_threshold"`

	// AmbiguityThreshold is the ambiguity score at or above which the
	// result is flagged as contested.
	// Default: 0.8
	AmbiguityThreshold float64 `yaml:"ambiguity_threshold"`

	// MoralMode selects category weighting. Default: balanced.
	MoralMode MoralMode `yaml:"moral_mode"`

	// CategoryMultipliers maps moral mode -> critic category -> weight
	// multiplier. Categories absent from the active mode keep multiplier 1.
	CategoryMultipliers map[MoralMode]map[string]float64 `yaml:"category_multipliers"`
}

// DefaultConfig returns the default aggregation configuration.
func DefaultConfig() *Config {
	return &Config{
		BlockThreshold:       2.0,
		ErrorReviewThreshold: 0.5,
		AmbiguityThreshold:   0.8,
		MoralMode:            ModeBalanced,
		CategoryMultipliers: map[MoralMode]map[string]float64{
			ModeUtilitarian: {
				"outcome": 1.5,
				"welfare": 1.5,
			},
			ModeDeontological: {
				"rights": 1.5,
				"duty":   1.5,
			},
		},
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.BlockThreshold < 0 {
		return fmt.Errorf("block_threshold must be non-negative, got %v", c.BlockThreshold)
	}
	if c.ErrorReviewThreshold < 0 || c.ErrorReviewThreshold > 1 {
		return fmt.Errorf("error_review_threshold must be in [0, 1], got %v", c.ErrorReviewThreshold)
	}
	if c.AmbiguityThreshold < 0 || c.AmbiguityThreshold > 1 {
		return fmt.Errorf("ambiguity_threshold must be in [0, 1], got %v", c.AmbiguityThreshold)
	}
	switch c.MoralMode {
	case ModeBalanced, ModeUtilitarian, ModeDeontological, "":
	default:
		return fmt.Errorf("unknown moral mode %q", c.MoralMode)
	}
	return nil
}

// categoryMultiplier returns the moral-mode multiplier for a critic category.
func (c *Config) categoryMultiplier(category string) float64 {
	if c.MoralMode == "" || c.MoralMode == ModeBalanced || category == "" {
		return 1.0
	}
	if mults, ok := c.CategoryMultipliers[c.MoralMode]; ok {
		if m, ok := mults[category]; ok && m > 0 {
			return m
		}
	}
	return 1.0
}
