package model

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juleba580/Foot-Perf-IA/internal/schema"
)

// fakeBridge scripts pipeline outcomes for engine tests.
type fakeBridge struct {
	predictions []*float64
	err         error
	ready       bool

	gotColumns []string
	gotRows    [][]any
	calls      int
}

func (f *fakeBridge) Predict(_ context.Context, columns []string, rows [][]any) ([]*float64, error) {
	f.calls++
	f.gotColumns = columns
	f.gotRows = rows
	if f.err != nil {
		return nil, f.err
	}
	return f.predictions, nil
}

func (f *fakeBridge) Ready() bool { return f.ready }

type countingMetrics struct {
	predictions int
	failures    int
	batchRows   []float64
}

func (c *countingMetrics) PredictionsInc()            { c.predictions++ }
func (c *countingMetrics) FailuresInc()               { c.failures++ }
func (c *countingMetrics) LatencyObserve(float64)     {}
func (c *countingMetrics) ModelAgeSet(float64)        {}
func (c *countingMetrics) BatchRowsObserve(r float64) { c.batchRows = append(c.batchRows, r) }

func ptr(v float64) *float64 { return &v }

func newTestEngine(bridge PipelineBridge, m MetricsInterface) *Engine {
	return NewEngine(schema.Default(), bridge, m)
}

func TestPredictSingleSuccess(t *testing.T) {
	bridge := &fakeBridge{predictions: []*float64{ptr(82.4567)}}
	m := &countingMetrics{}
	engine := newTestEngine(bridge, m)

	res := engine.PredictSingle(context.Background(), map[string]any{"finishing": 90})

	require.True(t, res.Success)
	assert.Equal(t, 82.46, res.Prediction, "prediction rounded to 2 decimals")
	assert.Empty(t, res.Error)

	require.Len(t, bridge.gotRows, 1)
	assert.Len(t, bridge.gotRows[0], engine.Registry().NumFeatures())
	assert.Equal(t, engine.Registry().ExpectedFeatures(), bridge.gotColumns)
	assert.Equal(t, 1, m.predictions)
	assert.Equal(t, 0, m.failures)
}

func TestPredictSingleEmptyInput(t *testing.T) {
	bridge := &fakeBridge{}
	m := &countingMetrics{}
	engine := newTestEngine(bridge, m)

	res := engine.PredictSingle(context.Background(), map[string]any{})

	assert.False(t, res.Success)
	assert.Equal(t, "input record is empty", res.Error)
	assert.Equal(t, 0, bridge.calls, "empty input never reaches the pipeline")
	assert.Equal(t, 1, m.failures)
}

func TestPredictSinglePipelineError(t *testing.T) {
	bridge := &fakeBridge{err: errors.New("boom")}
	m := &countingMetrics{}
	engine := newTestEngine(bridge, m)

	raw := map[string]any{"finishing": 90}
	res := engine.PredictSingle(context.Background(), raw)

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "prediction failed")
	assert.Equal(t, raw, res.Input, "failed results echo the raw input")
	assert.Equal(t, 1, m.failures)
}

func TestPredictSingleNonFinite(t *testing.T) {
	tests := []struct {
		name  string
		preds []*float64
	}{
		{"nil prediction", []*float64{nil}},
		{"nan prediction", []*float64{ptr(math.NaN())}},
		{"no predictions", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(&fakeBridge{predictions: tt.preds}, nil)
			res := engine.PredictSingle(context.Background(), map[string]any{"finishing": 90})
			assert.False(t, res.Success)
			assert.NotEmpty(t, res.Error)
		})
	}
}

func TestNormalizedRecord(t *testing.T) {
	engine := newTestEngine(&fakeBridge{}, nil)

	rec, err := engine.NormalizedRecord(map[string]any{"finishing": 90, "acceleration": 7})
	require.NoError(t, err)
	assert.Equal(t, 90.0, rec["finishing"])
	assert.Equal(t, 70.0, rec["acceleration"])

	_, err = engine.NormalizedRecord(nil)
	assert.Error(t, err)
}

func writeBatchCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "batch.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestPredictBatch(t *testing.T) {
	bridge := &fakeBridge{predictions: []*float64{ptr(80.125), nil}}
	m := &countingMetrics{}
	engine := newTestEngine(bridge, m)

	path := writeBatchCSV(t, "player_name,player_fifa_api_id,finishing\nMessi,42,95\n,,bad\n")
	rows, err := engine.PredictBatch(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 1, bridge.calls, "whole batch scored in one pipeline call")
	assert.Equal(t, []float64{2}, m.batchRows)

	first := rows[0]
	assert.Equal(t, 1, first["id"])
	assert.Equal(t, 42, first["player_id"], "id probed from player_fifa_api_id")
	assert.Equal(t, "Messi", first["name"])
	assert.Equal(t, "", first["image"])
	assert.Equal(t, 80.13, first["prediction"])
	assert.Equal(t, 95.0, first["finishing"])
	assert.Equal(t, "Messi", first["player_name"], "pass-through column retained")

	second := rows[1]
	assert.Equal(t, 2, second["id"])
	assert.Equal(t, "player_2", second["player_id"], "empty id cell falls back to synthetic")
	assert.Equal(t, "Player 2", second["name"])
	assert.Nil(t, second["prediction"], "non-finite prediction reported as null")
	assert.Equal(t, 50.0, second["finishing"], "bad cell defaulted, row kept")
}

func TestPredictBatchEmptyDataset(t *testing.T) {
	bridge := &fakeBridge{}
	engine := newTestEngine(bridge, nil)

	path := writeBatchCSV(t, "player_name,finishing\n")
	rows, err := engine.PredictBatch(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, 0, bridge.calls)
}

func TestPredictBatchUnreadableFile(t *testing.T) {
	engine := newTestEngine(&fakeBridge{}, nil)
	_, err := engine.PredictBatch(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestPredictBatchPipelineError(t *testing.T) {
	m := &countingMetrics{}
	engine := newTestEngine(&fakeBridge{err: errors.New("boom")}, m)

	path := writeBatchCSV(t, "finishing\n90\n")
	_, err := engine.PredictBatch(context.Background(), path)
	assert.Error(t, err)
	assert.Equal(t, 1, m.failures)
}

func TestSyntheticFieldsWinOverDatasetColumns(t *testing.T) {
	bridge := &fakeBridge{predictions: []*float64{ptr(70)}}
	engine := newTestEngine(bridge, nil)

	// The dataset carries its own "id" column; the probe order prefers it
	// for player_id while the synthetic row index keeps the "id" key.
	path := writeBatchCSV(t, "id,name\n99,Someone\n")
	rows, err := engine.PredictBatch(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, 1, rows[0]["id"])
	assert.Equal(t, 99, rows[0]["player_id"])
	assert.Equal(t, "Someone", rows[0]["name"])
}
