// Package normalize converts heterogeneous, partially-missing player input
// into the fixed-shape, fixed-order, fully-typed feature rows the fitted
// transformer expects. It covers both the single-record path (Normalizer)
// and the tabular batch path (Reconcile).
package normalize

import (
	"errors"
	"math"
	"strings"

	"github.com/juleba580/Foot-Perf-IA/internal/schema"
)

// ErrNotAMapping is returned when the raw payload is nil rather than a
// key/value record. Emptiness is acceptable here: an empty record resolves
// to a fully defaulted row; rejecting empty request bodies is the
// endpoint's job.
var ErrNotAMapping = errors.New("input is not a key/value record")

// Normalizer applies the per-field coercion rules of a schema registry.
type Normalizer struct {
	reg *schema.Registry
}

// New returns a Normalizer bound to reg.
func New(reg *schema.Registry) *Normalizer {
	return &Normalizer{reg: reg}
}

// Normalize converts one raw record into a feature row whose length and
// order match the registry's expected features. Categorical entries are
// lower-cased trimmed strings, numerical entries are finite float64s.
// Unexpected keys are dropped, missing expected keys are defaulted, and any
// per-field coercion failure resolves to the documented default rather than
// an error.
func (n *Normalizer) Normalize(raw map[string]any) ([]any, error) {
	if raw == nil {
		return nil, ErrNotAMapping
	}

	resolved := make(map[string]any, len(raw))
	for key, value := range raw {
		switch {
		case n.reg.IsScaled(key):
			f, ok := CoerceFloat(value)
			if !ok {
				resolved[key] = schema.DefaultNumeric
				continue
			}
			// A value in [1, 10] is a UI-scale slider reading; the model
			// was fitted on the 1-100 scale.
			if f >= 1 && f <= 10 {
				f *= 10
			}
			resolved[key] = f

		case n.reg.IsCategorical(key):
			resolved[key] = strings.ToLower(strings.TrimSpace(coerceString(value)))

		default:
			f, ok := CoerceFloat(value)
			if ok {
				resolved[key] = f
			} else if n.reg.IsExpected(key) {
				resolved[key] = schema.DefaultNumeric
			}
			// Unexpected and non-numeric: dropped.
		}
	}

	for _, feature := range n.reg.ExpectedFeatures() {
		if _, ok := resolved[feature]; !ok {
			resolved[feature] = n.reg.DefaultValue(feature)
		}
	}

	row := make([]any, 0, n.reg.NumFeatures())
	for _, feature := range n.reg.ExpectedFeatures() {
		row = append(row, n.retype(feature, resolved[feature]))
	}
	return row, nil
}

// AsRecord maps a normalized row back onto feature names, preserving the
// typed values. Used for result enrichment and recommendation input.
func (n *Normalizer) AsRecord(row []any) map[string]any {
	rec := make(map[string]any, len(row))
	for i, feature := range n.reg.ExpectedFeatures() {
		if i < len(row) {
			rec[feature] = row[i]
		}
	}
	return rec
}

// retype is the final typing pass: categorical values are forced to string,
// numerical values to a finite float64. It never yields nil.
func (n *Normalizer) retype(feature string, v any) any {
	if n.reg.IsCategorical(feature) {
		if s, ok := v.(string); ok {
			return s
		}
		return coerceString(v)
	}
	if f, ok := v.(float64); ok && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	if f, ok := CoerceFloat(v); ok {
		return f
	}
	return schema.DefaultNumeric
}
