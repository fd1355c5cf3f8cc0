package retrieval

import "fmt"

// Config tunes the retrieval engine. It is a plain value; the engine copies it.
type Config struct {
	DefaultK int
	MaxK     int

	GapThreshold   float64
	DistanceMargin float64
	MinResults     int

	ExpansionFactor int
	ExpansionCap    int

	QueryMustFilter      bool
	TargetedEntitySearch bool
	ParentCategory       bool
	ParentCategoryOffset float64
}

// DefaultConfig returns the tuned defaults for the rulebook corpus.
func DefaultConfig() Config {
	return Config{
		DefaultK:             5,
		MaxK:                 50,
		GapThreshold:         0.10,
		DistanceMargin:       0.40,
		MinResults:           2,
		ExpansionFactor:      3,
		ExpansionCap:         15,
		QueryMustFilter:      true,
		TargetedEntitySearch: false,
		ParentCategory:       true,
		ParentCategoryOffset: 0.05,
	}
}

// Validate checks config invariants.
func (c Config) Validate() error {
	switch {
	case c.DefaultK <= 0:
		return fmt.Errorf("default_k must be positive, got %d", c.DefaultK)
	case c.MaxK < c.DefaultK:
		return fmt.Errorf("max_k (%d) must be >= default_k (%d)", c.MaxK, c.DefaultK)
	case c.GapThreshold < 0:
		return fmt.Errorf("gap_threshold must be >= 0, got %v", c.GapThreshold)
	case c.DistanceMargin < 0:
		return fmt.Errorf("distance_threshold_margin must be >= 0, got %v", c.DistanceMargin)
	case c.MinResults < 1:
		return fmt.Errorf("min_results must be >= 1, got %d", c.MinResults)
	case c.ExpansionFactor < 1:
		return fmt.Errorf("comparison_expansion_factor must be >= 1, got %d", c.ExpansionFactor)
	case c.ExpansionCap < 1:
		return fmt.Errorf("comparison_expansion_cap must be >= 1, got %d", c.ExpansionCap)
	case c.ParentCategoryOffset < 0:
		return fmt.Errorf("parent_category_offset must be >= 0, got %v", c.ParentCategoryOffset)
	}
	return nil
}
