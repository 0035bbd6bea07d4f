package progress

import (
	"fmt"
	"math"
)

// Weights is the fixed linear combination applied to the three bucket
// completion ratios. The three weights must sum to 1.
type Weights struct {
	MustHave       float64 `json:"mustHave"`
	Categorization float64 `json:"categorization"`
	Other          float64 `json:"other"`
}

// Gate caps the displayed percentage until a prerequisite bucket reaches its
// threshold completion ratio.
type Gate struct {
	// Threshold is the minimum bucket completion ratio (0..1) that lifts
	// the gate
	Threshold float64 `json:"threshold"`

	// Cap is the maximum displayed percentage while the gate is active
	Cap int `json:"cap"`
}

// Config carries the tracker's identifier sets and product constants. The
// thresholds and weights are product-defined with no derivation; they are
// configuration, not tunables the engine reasons about.
type Config struct {
	// MustHave are the mandatory data-quality checklist identifiers
	MustHave []string

	// Categorization are the taxonomy-completion checklist identifiers
	Categorization []string

	Weights Weights

	// MustHaveGate caps progress until the must-have bucket clears its
	// threshold; CategorizationGate additionally requires the
	// categorization bucket. The tighter active cap wins.
	MustHaveGate       Gate
	CategorizationGate Gate

	// Milestones are the overall-completion percentages (ascending) that
	// fire a one-time notification when crossed upward
	Milestones []int
}

// DefaultConfig returns the reference configuration around the supplied
// identifier sets: 25/20/55 weights, 95%/80% gate thresholds with 40/60
// caps, and 25/50/75/100 milestones.
func DefaultConfig(mustHave, categorization []string) Config {
	return Config{
		MustHave:       mustHave,
		Categorization: categorization,
		Weights: Weights{
			MustHave:       0.25,
			Categorization: 0.20,
			Other:          0.55,
		},
		MustHaveGate:       Gate{Threshold: 0.95, Cap: 40},
		CategorizationGate: Gate{Threshold: 0.80, Cap: 60},
		Milestones:         []int{25, 50, 75, 100},
	}
}

// Validate rejects misconfigured trackers up front: an identifier in both
// the must-have and categorization sets would otherwise silently land in
// neither bucket's complement.
func (c Config) Validate() error {
	sum := c.Weights.MustHave + c.Weights.Categorization + c.Weights.Other
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("bucket weights must sum to 1.0, got %v", sum)
	}
	if c.Weights.MustHave < 0 || c.Weights.Categorization < 0 || c.Weights.Other < 0 {
		return fmt.Errorf("bucket weights must be non-negative")
	}

	for _, gate := range []Gate{c.MustHaveGate, c.CategorizationGate} {
		if gate.Threshold <= 0 || gate.Threshold > 1 {
			return fmt.Errorf("gate threshold must be in (0, 1], got %v", gate.Threshold)
		}
		if gate.Cap < 0 || gate.Cap > 100 {
			return fmt.Errorf("gate cap must be in [0, 100], got %d", gate.Cap)
		}
	}

	seen := make(map[string]string, len(c.MustHave)+len(c.Categorization))
	for _, id := range c.MustHave {
		if id == "" {
			return fmt.Errorf("must-have identifiers cannot be empty")
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("duplicate must-have identifier %q", id)
		}
		seen[id] = "must-have"
	}
	for _, id := range c.Categorization {
		if id == "" {
			return fmt.Errorf("categorization identifiers cannot be empty")
		}
		if bucket, dup := seen[id]; dup {
			if bucket == "must-have" {
				return fmt.Errorf("identifier %q cannot be in both must-have and categorization sets", id)
			}
			return fmt.Errorf("duplicate categorization identifier %q", id)
		}
		seen[id] = "categorization"
	}

	last := 0
	for _, milestone := range c.Milestones {
		if milestone <= last || milestone > 100 {
			return fmt.Errorf("milestones must be ascending percentages in (0, 100], got %v", c.Milestones)
		}
		last = milestone
	}

	return nil
}

// CalculateWeighted combines the three bucket completion ratios into the
// single weighted ratio. Pure so it can be table-tested independent of the
// engine's tracked state.
func CalculateWeighted(mustHavePct, categorizationPct, otherPct float64, weights Weights) float64 {
	return mustHavePct*weights.MustHave +
		categorizationPct*weights.Categorization +
		otherPct*weights.Other
}
