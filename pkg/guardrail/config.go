// Package guardrail implements the two-stage policy gate applied to every
// successful handler result: a quality gate on confidence and an impact
// gate on the magnitude of the proposed change.
package guardrail

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the guardrail thresholds. It is passed into the gate at
// construction rather than read from package-level state so tests can
// exercise alternate thresholds without process-wide mutation.
type Config struct {
	// ConfidenceMin is the quality gate threshold. Results below it
	// are rejected before the impact gate is evaluated.
	ConfidenceMin float64 `yaml:"confidence_min"`

	// MaxDelta maps each guarded quantity to its maximum allowed
	// change per event. A declared delta above the ceiling forces a
	// confirmation-required outcome; it is never silently clamped.
	MaxDelta map[string]float64 `yaml:"max_delta"`

	// ReviewLow/ReviewHigh bound the confidence gray zone in which
	// the external validator may be consulted (inclusive).
	ReviewLow  float64 `yaml:"review_low"`
	ReviewHigh float64 `yaml:"review_high"`

	// ReviewClampMin/ReviewClampMax bound the confidence adjustment
	// an external review may contribute. The range is asymmetric:
	// review can pull confidence down further than it can push it up.
	ReviewClampMin float64 `yaml:"review_clamp_min"`
	ReviewClampMax float64 `yaml:"review_clamp_max"`
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() *Config {
	return &Config{
		ConfidenceMin: 0.6,
		MaxDelta: map[string]float64{
			"ec_ms_cm":      0.5,
			"humidity_pct":  8.0,
			"temperature_c": 2.0,
			"ph":            0.4,
		},
		ReviewLow:      0.60,
		ReviewHigh:     0.85,
		ReviewClampMin: -0.10,
		ReviewClampMax: 0.05,
	}
}

// MaxDeltaFor returns the per-event ceiling for a guarded quantity.
func (c *Config) MaxDeltaFor(quantity string) (float64, bool) {
	max, ok := c.MaxDelta[quantity]
	return max, ok
}

// InReviewBand reports whether a confidence value falls in the gray zone.
func (c *Config) InReviewBand(confidence float64) bool {
	return confidence >= c.ReviewLow && confidence <= c.ReviewHigh
}

// ClampReviewDelta clamps an external review's confidence adjustment to
// the configured asymmetric range.
func (c *Config) ClampReviewDelta(delta float64) float64 {
	if delta < c.ReviewClampMin {
		return c.ReviewClampMin
	}
	if delta > c.ReviewClampMax {
		return c.ReviewClampMax
	}
	return delta
}

// LoadProfile loads a YAML threshold profile layered over the defaults.
// Only keys present in the file override; absent keys keep their default.
func LoadProfile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load guardrail profile %q: %w", path, err)
	}

	var overlay struct {
		ConfidenceMin  *float64           `yaml:"confidence_min"`
		MaxDelta       map[string]float64 `yaml:"max_delta"`
		ReviewLow      *float64           `yaml:"review_low"`
		ReviewHigh     *float64           `yaml:"review_high"`
		ReviewClampMin *float64           `yaml:"review_clamp_min"`
		ReviewClampMax *float64           `yaml:"review_clamp_max"`
	}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("parse guardrail profile %q: %w", path, err)
	}

	if overlay.ConfidenceMin != nil {
		cfg.ConfidenceMin = *overlay.ConfidenceMin
	}
	for quantity, max := range overlay.MaxDelta {
		cfg.MaxDelta[quantity] = max
	}
	if overlay.ReviewLow != nil {
		cfg.ReviewLow = *overlay.ReviewLow
	}
	if overlay.ReviewHigh != nil {
		cfg.ReviewHigh = *overlay.ReviewHigh
	}
	if overlay.ReviewClampMin != nil {
		cfg.ReviewClampMin = *overlay.ReviewClampMin
	}
	if overlay.ReviewClampMax != nil {
		cfg.ReviewClampMax = *overlay.ReviewClampMax
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("guardrail profile %q: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ConfidenceMin < 0 || c.ConfidenceMin > 1 {
		return fmt.Errorf("confidence_min %v outside [0,1]", c.ConfidenceMin)
	}
	if c.ReviewLow > c.ReviewHigh {
		return fmt.Errorf("review band inverted: low %v > high %v", c.ReviewLow, c.ReviewHigh)
	}
	if c.ReviewClampMin > 0 || c.ReviewClampMax < 0 {
		return fmt.Errorf("review clamp must straddle zero: [%v, %v]", c.ReviewClampMin, c.ReviewClampMax)
	}
	for quantity, max := range c.MaxDelta {
		if max <= 0 {
			return fmt.Errorf("max_delta for %q must be positive, got %v", quantity, max)
		}
	}
	return nil
}
