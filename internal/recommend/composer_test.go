package recommend

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedAdviser struct {
	advice string
	err    error
	calls  int
}

func (s *scriptedAdviser) Advice(_ context.Context, _ string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.advice, nil
}

type fakeAdviceMetrics struct {
	requests  int
	fallbacks int
}

func (f *fakeAdviceMetrics) AdviceRequestInc()  { f.requests++ }
func (f *fakeAdviceMetrics) AdviceFallbackInc() { f.fallbacks++ }

func TestRecommendFlagsOnlyBelowThreshold(t *testing.T) {
	c := NewComposer(TemplateAdviser{}, nil)

	recs := c.Recommend(context.Background(), map[string]float64{
		"finishing": 75, // threshold 70, above: not flagged
		"crossing":  55, // threshold 60, below: flagged
		"dribbling": 65, // threshold 65, at the bar: not flagged
	}, 80)

	require.Len(t, recs, 1)
	assert.Equal(t, "crossing", recs[0].Attribute)
	assert.Equal(t, 55.0, recs[0].CurrentValue)
	assert.Equal(t, 60.0, recs[0].Threshold)
	assert.Equal(t, 5.0, recs[0].ImprovementNeeded)
	assert.NotEmpty(t, recs[0].Recommendation)
	assert.NotEmpty(t, recs[0].Image)
}

func TestRecommendSortsByGapDescending(t *testing.T) {
	c := NewComposer(TemplateAdviser{}, nil)

	recs := c.Recommend(context.Background(), map[string]float64{
		"finishing": 40, // threshold 70, gap 30
		"crossing":  55, // threshold 60, gap 5
		"stamina":   50, // threshold 70, gap 20
	}, 80)

	require.Len(t, recs, 3)
	assert.Equal(t, "finishing", recs[0].Attribute)
	assert.Equal(t, "stamina", recs[1].Attribute)
	assert.Equal(t, "crossing", recs[2].Attribute)
}

func TestRecommendIgnoresUnknownAttributes(t *testing.T) {
	c := NewComposer(TemplateAdviser{}, nil)

	recs := c.Recommend(context.Background(), map[string]float64{
		"not_a_skill": 1,
	}, 80)
	assert.Empty(t, recs)
}

func TestRecommendAdviserFailureFallsBack(t *testing.T) {
	adviser := &scriptedAdviser{err: errors.New("quota exceeded")}
	m := &fakeAdviceMetrics{}
	c := NewComposer(adviser, m)

	recs := c.Recommend(context.Background(), map[string]float64{"finishing": 40}, 80)

	require.Len(t, recs, 1)
	assert.Equal(t, FallbackAdvice("finishing"), recs[0].Recommendation)
	assert.Equal(t, 1, m.requests)
	assert.Equal(t, 1, m.fallbacks)
}

func TestRecommendUsesAdviserText(t *testing.T) {
	adviser := &scriptedAdviser{advice: "Shoot more."}
	m := &fakeAdviceMetrics{}
	c := NewComposer(adviser, m)

	recs := c.Recommend(context.Background(), map[string]float64{"finishing": 40}, 80)

	require.Len(t, recs, 1)
	assert.Equal(t, "Shoot more.", recs[0].Recommendation)
	assert.Equal(t, 0, m.fallbacks)
}

func TestFallbackAdvice(t *testing.T) {
	assert.NotEmpty(t, FallbackAdvice("finishing"))
	assert.Contains(t, FallbackAdvice("unknown_skill"), "unknown skill")
}

func TestNewAdviserSelection(t *testing.T) {
	assert.IsType(t, TemplateAdviser{}, NewAdviser("", 0))
	assert.IsType(t, &GeminiAdviser{}, NewAdviser("key", 0))
}

func TestThresholdTableConsistency(t *testing.T) {
	for attr, th := range Thresholds() {
		assert.Greater(t, th.Limit, 0.0, attr)
		assert.NotEmpty(t, th.Image, attr)
	}
}
