// Package recommend compares a player's normalized attributes against the
// static threshold table, ranks the gaps and attaches training advice from
// the configured adviser.
package recommend

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"
)

// Recommendation is one flagged attribute with its gap and advice.
type Recommendation struct {
	Attribute         string  `json:"attribute"`
	CurrentValue      float64 `json:"current_value"`
	Threshold         float64 `json:"threshold"`
	Recommendation    string  `json:"recommendation"`
	Image             string  `json:"image"`
	ImprovementNeeded float64 `json:"improvement_needed"`
}

// MetricsInterface defines the metrics methods the composer needs.
type MetricsInterface interface {
	AdviceRequestInc()
	AdviceFallbackInc()
}

// Composer builds ranked recommendation lists.
type Composer struct {
	adviser Adviser
	metrics MetricsInterface
}

// NewComposer wires a composer to an adviser. metrics may be nil.
func NewComposer(adviser Adviser, metrics MetricsInterface) *Composer {
	return &Composer{adviser: adviser, metrics: metrics}
}

// Recommend emits one entry per attribute present in both the player's
// attributes and the threshold table whose value is strictly below the bar,
// sorted by improvement needed descending. Adviser failures degrade to the
// static template for that attribute; the call itself never fails.
func (c *Composer) Recommend(ctx context.Context, attributes map[string]float64, prediction float64) []Recommendation {
	recs := make([]Recommendation, 0, len(attributes))

	for attribute, value := range attributes {
		th, ok := thresholds[attribute]
		if !ok || value >= th.Limit {
			continue
		}

		if c.metrics != nil {
			c.metrics.AdviceRequestInc()
		}
		advice, err := c.adviser.Advice(ctx, attribute)
		if err != nil {
			log.Warn().Err(err).Str("attribute", attribute).Msg("advice generator failed, using template")
			advice = FallbackAdvice(attribute)
			if c.metrics != nil {
				c.metrics.AdviceFallbackInc()
			}
		}

		recs = append(recs, Recommendation{
			Attribute:         attribute,
			CurrentValue:      value,
			Threshold:         th.Limit,
			Recommendation:    advice,
			Image:             th.Image,
			ImprovementNeeded: th.Limit - value,
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].ImprovementNeeded > recs[j].ImprovementNeeded
	})
	return recs
}
