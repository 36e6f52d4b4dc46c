package model

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/juleba580/Foot-Perf-IA/internal/jsonsafe"
	"github.com/juleba580/Foot-Perf-IA/internal/normalize"
	"github.com/juleba580/Foot-Perf-IA/internal/schema"
)

// PipelineBridge is the black-box contract of the fitted pipeline:
// transform, predict and inverse_transform collapsed into one vectorized
// call, plus a liveness probe.
type PipelineBridge interface {
	Predict(ctx context.Context, columns []string, rows [][]any) ([]*float64, error)
	Ready() bool
}

// Result is the outcome of a single-record prediction. Success implies a
// finite Prediction; failures echo the raw input for diagnostics.
type Result struct {
	Prediction float64        `json:"prediction,omitempty"`
	Success    bool           `json:"success"`
	Error      string         `json:"error,omitempty"`
	Input      map[string]any `json:"input_data,omitempty"`
}

// BatchRow is one enriched batch result: the normalized feature values, the
// pass-through columns and the synthetic id/player_id/name/image/prediction
// fields, all JSON-safe.
type BatchRow map[string]any

// Candidate pass-through columns probed, in priority order, for player
// identifiers and display names.
var (
	idColumns    = []string{"player_fifa_api_id", "player_id", "id", "sofifa_id"}
	nameColumns  = []string{"player_name", "name", "short_name", "long_name"}
	imageColumns = []string{"player_img", "image"}
)

// Engine orchestrates normalization and the pipeline for both prediction
// paths. It holds only read-only state and is safe for concurrent use.
type Engine struct {
	reg     *schema.Registry
	norm    *normalize.Normalizer
	bridge  PipelineBridge
	metrics MetricsInterface
}

// NewEngine wires an inference engine. metrics may be nil.
func NewEngine(reg *schema.Registry, bridge PipelineBridge, metrics MetricsInterface) *Engine {
	return &Engine{
		reg:     reg,
		norm:    normalize.New(reg),
		bridge:  bridge,
		metrics: metrics,
	}
}

// Registry exposes the engine's schema registry.
func (e *Engine) Registry() *schema.Registry { return e.reg }

// Ready reports whether the pipeline artifacts are loaded and usable.
func (e *Engine) Ready() bool { return e.bridge.Ready() }

// PredictSingle scores one raw record. Every failure — invalid payload,
// normalization, pipeline — is caught and reported as a failed Result; it is
// never fatal to the calling request.
func (e *Engine) PredictSingle(ctx context.Context, raw map[string]any) Result {
	if e.metrics != nil {
		e.metrics.PredictionsInc()
	}

	if len(raw) == 0 {
		return e.fail(raw, "input record is empty")
	}

	row, err := e.norm.Normalize(raw)
	if err != nil {
		return e.fail(raw, fmt.Sprintf("invalid input: %v", err))
	}

	preds, err := e.bridge.Predict(ctx, e.reg.ExpectedFeatures(), [][]any{row})
	if err != nil {
		log.Error().Err(err).Msg("single prediction failed")
		return e.fail(raw, fmt.Sprintf("prediction failed: %v", err))
	}
	if len(preds) != 1 || preds[0] == nil {
		return e.fail(raw, "pipeline produced no usable prediction")
	}

	value := round2(*preds[0])
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return e.fail(raw, "pipeline produced a non-finite prediction")
	}
	return Result{Prediction: value, Success: true}
}

// NormalizedRecord exposes the normalized attribute map for a raw record,
// used by the recommendation endpoint.
func (e *Engine) NormalizedRecord(raw map[string]any) (map[string]any, error) {
	row, err := e.norm.Normalize(raw)
	if err != nil {
		return nil, err
	}
	return e.norm.AsRecord(row), nil
}

// PredictBatch scores a whole uploaded dataset in one vectorized pipeline
// call. A malformed file fails the batch as a unit; a bad individual row
// degrades to defaulted features and, when its prediction comes back
// non-finite, a null prediction. An empty dataset yields zero rows.
func (e *Engine) PredictBatch(ctx context.Context, path string) ([]BatchRow, error) {
	table, err := normalize.ReadCSV(path)
	if err != nil {
		return nil, fmt.Errorf("batch dataset unreadable: %w", err)
	}

	norm, pass := normalize.Reconcile(e.reg, table)
	if e.metrics != nil {
		e.metrics.BatchRowsObserve(float64(len(norm.Rows)))
	}
	if len(norm.Rows) == 0 {
		return []BatchRow{}, nil
	}

	preds, err := e.bridge.Predict(ctx, norm.Columns, norm.Rows)
	if err != nil {
		if e.metrics != nil {
			e.metrics.FailuresInc()
		}
		return nil, fmt.Errorf("batch prediction failed: %w", err)
	}

	results := make([]BatchRow, len(norm.Rows))
	for i := range norm.Rows {
		results[i] = e.assembleRow(i, norm, pass, preds[i])
	}

	log.Info().Int("players", len(results)).Msg("batch prediction finished")
	return results, nil
}

// assembleRow builds one enriched result row. Synthetic fields win over
// dataset columns of the same name.
func (e *Engine) assembleRow(i int, norm *normalize.NormalizedTable, pass *normalize.Passthrough, pred *float64) BatchRow {
	row := BatchRow{
		"id":        i + 1,
		"player_id": probe(pass, i, idColumns, fmt.Sprintf("player_%d", i+1)),
		"name":      probe(pass, i, nameColumns, fmt.Sprintf("Player %d", i+1)),
		"image":     probe(pass, i, imageColumns, ""),
	}

	if pred != nil && !math.IsNaN(*pred) && !math.IsInf(*pred, 0) {
		row["prediction"] = round2(*pred)
	} else {
		row["prediction"] = nil
	}

	for j, feature := range norm.Columns {
		if _, taken := row[feature]; !taken {
			row[feature] = jsonsafe.Clean(norm.Rows[i][j])
		}
	}
	for _, col := range pass.Columns {
		if _, taken := row[col]; !taken {
			row[col] = jsonsafe.Clean(pass.Value(i, col))
		}
	}
	return row
}

// probe resolves the first present, non-empty candidate column for a row.
func probe(pass *normalize.Passthrough, row int, candidates []string, fallback string) any {
	for _, col := range candidates {
		if !pass.Has(col) {
			continue
		}
		v := jsonsafe.Clean(pass.Value(row, col))
		if v == nil {
			break
		}
		if s, ok := v.(string); ok && s == "" {
			break
		}
		return v
	}
	return fallback
}

func (e *Engine) fail(raw map[string]any, msg string) Result {
	if e.metrics != nil {
		e.metrics.FailuresInc()
	}
	return Result{Success: false, Error: msg, Input: raw}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
