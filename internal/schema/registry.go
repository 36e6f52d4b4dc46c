// Package schema describes the fixed feature space the rating model was
// fitted on: the ordered list of expected columns, their split into
// categorical and numerical subsets, and the per-feature default values
// applied when input is missing or unusable.
//
// A Registry is built once at startup and never mutated afterwards, so it is
// safe to share across concurrently handled requests.
package schema

import (
	"fmt"
	"strings"
)

// DefaultNumeric is the mid-scale value substituted for any numerical
// feature that is missing or cannot be coerced to a number.
const DefaultNumeric = 50.0

// fallbackExpected is the training-time column order. It is used verbatim
// when the transformer artifact does not expose its fitted columns.
var fallbackExpected = []string{
	"potential", "crossing", "finishing", "heading_accuracy", "short_passing",
	"volleys", "dribbling", "curve", "free_kick_accuracy", "long_passing",
	"ball_control", "acceleration", "sprint_speed", "agility", "reactions",
	"balance", "shot_power", "jumping", "stamina", "strength", "long_shots",
	"aggression", "interceptions", "positioning", "vision", "penalties",
	"marking", "standing_tackle", "sliding_tackle", "gk_diving", "gk_handling",
	"gk_kicking", "gk_positioning", "gk_reflexes", "preferred_foot",
	"attacking_work_rate", "defensive_work_rate",
}

var fallbackCategorical = []string{
	"preferred_foot", "attacking_work_rate", "defensive_work_rate",
}

// scaledFeatures accept either a 1-10 or a 1-100 input magnitude.
var scaledFeatures = []string{"acceleration", "sprint_speed", "agility"}

// Registry is the immutable schema of the model's feature space.
type Registry struct {
	expected    []string
	categorical map[string]bool
	scaled      map[string]bool
}

// Default builds a Registry from the hardcoded training-time schema.
func Default() *Registry {
	r, err := New(fallbackExpected, fallbackCategorical)
	if err != nil {
		// The hardcoded lists are consistent; this cannot happen.
		panic(err)
	}
	return r
}

// New builds a Registry from an ordered column list and the subset of
// columns holding string tokens. An empty categorical list falls back to the
// training-time categorical columns. Every categorical name must appear in
// expected.
func New(expected, categorical []string) (*Registry, error) {
	if len(expected) == 0 {
		expected = fallbackExpected
	}
	if len(categorical) == 0 {
		categorical = fallbackCategorical
	}

	seen := make(map[string]bool, len(expected))
	for _, name := range expected {
		if seen[name] {
			return nil, fmt.Errorf("duplicate expected feature %q", name)
		}
		seen[name] = true
	}

	cats := make(map[string]bool, len(categorical))
	for _, name := range categorical {
		if !seen[name] {
			return nil, fmt.Errorf("categorical feature %q is not an expected feature", name)
		}
		cats[name] = true
	}

	scaled := make(map[string]bool, len(scaledFeatures))
	for _, name := range scaledFeatures {
		if seen[name] && !cats[name] {
			scaled[name] = true
		}
	}

	return &Registry{
		expected:    append([]string(nil), expected...),
		categorical: cats,
		scaled:      scaled,
	}, nil
}

// ExpectedFeatures returns the fitted column order. The caller must not
// modify the returned slice.
func (r *Registry) ExpectedFeatures() []string {
	return r.expected
}

// NumFeatures returns the number of expected features.
func (r *Registry) NumFeatures() int {
	return len(r.expected)
}

// IsExpected reports whether name is a model input column.
func (r *Registry) IsExpected(name string) bool {
	if r.categorical[name] || r.scaled[name] {
		return true
	}
	for _, f := range r.expected {
		if f == name {
			return true
		}
	}
	return false
}

// IsCategorical reports whether name holds string tokens.
func (r *Registry) IsCategorical(name string) bool {
	return r.categorical[name]
}

// IsScaled reports whether name accepts both 1-10 and 1-100 magnitudes.
func (r *Registry) IsScaled(name string) bool {
	return r.scaled[name]
}

// DefaultValue returns the substitute applied when a feature is missing.
// Categorical defaults are feature-specific tokens, numerical defaults are
// the mid-scale constant for every feature including goalkeeper attributes.
func (r *Registry) DefaultValue(name string) any {
	if !r.categorical[name] {
		return DefaultNumeric
	}
	switch {
	case name == "preferred_foot":
		return "right"
	case strings.Contains(name, "work_rate"):
		return "medium"
	default:
		return "unknown"
	}
}
