package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	reg := Default()

	assert.Equal(t, 37, reg.NumFeatures())
	assert.Equal(t, "potential", reg.ExpectedFeatures()[0])
	assert.Equal(t, "defensive_work_rate", reg.ExpectedFeatures()[36])

	assert.True(t, reg.IsCategorical("preferred_foot"))
	assert.True(t, reg.IsCategorical("attacking_work_rate"))
	assert.False(t, reg.IsCategorical("finishing"))

	assert.True(t, reg.IsScaled("acceleration"))
	assert.True(t, reg.IsScaled("sprint_speed"))
	assert.True(t, reg.IsScaled("agility"))
	assert.False(t, reg.IsScaled("stamina"))

	assert.True(t, reg.IsExpected("gk_reflexes"))
	assert.False(t, reg.IsExpected("player_name"))
}

func TestDefaultValue(t *testing.T) {
	reg := Default()

	tests := []struct {
		feature string
		want    any
	}{
		{"preferred_foot", "right"},
		{"attacking_work_rate", "medium"},
		{"defensive_work_rate", "medium"},
		{"finishing", 50.0},
		{"gk_diving", 50.0},
		{"acceleration", 50.0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, reg.DefaultValue(tt.feature), tt.feature)
	}
}

func TestNewValidation(t *testing.T) {
	_, err := New([]string{"a", "b", "a"}, nil)
	require.Error(t, err, "duplicate expected feature must be rejected")

	_, err = New([]string{"a", "b"}, []string{"c"})
	require.Error(t, err, "categorical feature outside expected must be rejected")

	reg, err := New([]string{"a", "agility"}, []string{"a"})
	require.NoError(t, err)
	assert.True(t, reg.IsCategorical("a"))
	assert.True(t, reg.IsScaled("agility"))
	assert.Equal(t, 2, reg.NumFeatures())
}

func TestNewEmptyListsFallBack(t *testing.T) {
	reg, err := New(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 37, reg.NumFeatures())
	assert.True(t, reg.IsCategorical("preferred_foot"))
}

func TestCategoricalNeverScaled(t *testing.T) {
	// A transformer that reports acceleration as categorical must win over
	// the scaled-feature list.
	reg, err := New([]string{"acceleration", "agility"}, []string{"acceleration"})
	require.NoError(t, err)
	assert.False(t, reg.IsScaled("acceleration"))
	assert.True(t, reg.IsScaled("agility"))
}
