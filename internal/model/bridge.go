// Package model wraps the pre-fitted regression pipeline: the feature
// transformer, the model and the target-rescaling pipeline, all consumed as
// black boxes through an out-of-process joblib bridge, plus the inference
// engine that orchestrates transform -> predict -> inverse_transform for
// the single-record and batch paths.
package model

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// MetricsInterface defines the metrics methods the engine and bridge need.
type MetricsInterface interface {
	PredictionsInc()
	FailuresInc()
	LatencyObserve(float64)
	ModelAgeSet(float64)
	BatchRowsObserve(float64)
}

// BridgeConfig locates the three pipeline artifacts and tunes the bridge.
type BridgeConfig struct {
	ModelPath          string
	TransformerPath    string
	TargetPipelinePath string
	PythonBin          string // optional; discovered when empty
	Timeout            time.Duration
}

// Bridge runs the fitted pipeline in a Python subprocess. The artifacts are
// loaded by an inference script (written next to the model if absent) that
// reads one JSON request on stdin and writes one JSON response on stdout.
type Bridge struct {
	cfg        BridgeConfig
	pythonPath string
	scriptPath string

	mu            sync.Mutex
	available     bool
	healthChecked time.Time
	modelCreated  time.Time
	metrics       MetricsInterface
}

type bridgeRequest struct {
	Op      string   `json:"op"`
	Columns []string `json:"columns,omitempty"`
	Rows    [][]any  `json:"rows,omitempty"`
}

type bridgeResponse struct {
	OK                 bool       `json:"ok,omitempty"`
	Predictions        []*float64 `json:"predictions,omitempty"`
	CategoricalColumns []string   `json:"categorical_columns,omitempty"`
	Error              string     `json:"error,omitempty"`
}

// NewBridge verifies the artifacts and returns a ready bridge. Unset paths,
// missing files, a missing Python runtime or a failed load are all fatal:
// the process must not start serving without a working pipeline.
func NewBridge(cfg BridgeConfig, metrics MetricsInterface) (*Bridge, error) {
	if cfg.ModelPath == "" || cfg.TransformerPath == "" || cfg.TargetPipelinePath == "" {
		return nil, fmt.Errorf("model, transformer and target pipeline paths are all required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	var modelCreated time.Time
	for _, path := range []string{cfg.ModelPath, cfg.TransformerPath, cfg.TargetPipelinePath} {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("model artifact %s: %w", path, err)
		}
		if info.ModTime().After(modelCreated) {
			modelCreated = info.ModTime()
		}
	}

	pythonPath := cfg.PythonBin
	if pythonPath == "" {
		var err error
		pythonPath, err = findPython()
		if err != nil {
			return nil, err
		}
	}

	scriptPath := filepath.Join(filepath.Dir(cfg.ModelPath), "joblib_inference.py")
	if _, err := os.Stat(scriptPath); os.IsNotExist(err) {
		if err := writeInferenceScript(scriptPath); err != nil {
			return nil, fmt.Errorf("write inference script: %w", err)
		}
	}

	b := &Bridge{
		cfg:          cfg,
		pythonPath:   pythonPath,
		scriptPath:   scriptPath,
		modelCreated: modelCreated,
		metrics:      metrics,
	}

	resp, err := b.call(context.Background(), bridgeRequest{Op: "verify"})
	if err != nil {
		return nil, fmt.Errorf("pipeline verification failed: %w", err)
	}
	b.available = true
	b.healthChecked = time.Now()

	if metrics != nil && !modelCreated.IsZero() {
		metrics.ModelAgeSet(time.Since(modelCreated).Seconds())
	}

	log.Info().
		Str("model", cfg.ModelPath).
		Str("transformer", cfg.TransformerPath).
		Str("target_pipeline", cfg.TargetPipelinePath).
		Strs("categorical_columns", resp.CategoricalColumns).
		Msg("pipeline artifacts loaded")

	return b, nil
}

// CategoricalColumns re-reads the categorical columns the fitted transformer
// exposes, for schema registry construction. An empty result means the
// caller should use the hardcoded fallback schema.
func (b *Bridge) CategoricalColumns(ctx context.Context) []string {
	resp, err := b.call(ctx, bridgeRequest{Op: "verify"})
	if err != nil {
		log.Warn().Err(err).Msg("could not extract columns from transformer, using fallback schema")
		return nil
	}
	return resp.CategoricalColumns
}

// Predict runs the whole pipeline over rows (columns in fitted order) and
// returns one inverted, 2-decimal-rounded prediction per row. A nil entry
// marks a row whose prediction came back non-finite.
func (b *Bridge) Predict(ctx context.Context, columns []string, rows [][]any) ([]*float64, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	start := time.Now()
	resp, err := b.call(ctx, bridgeRequest{Op: "predict", Columns: columns, Rows: rows})
	if b.metrics != nil {
		b.metrics.LatencyObserve(time.Since(start).Seconds())
	}
	if err != nil {
		b.mu.Lock()
		b.healthChecked = time.Time{} // force the next health probe
		b.mu.Unlock()
		return nil, err
	}

	if len(resp.Predictions) != len(rows) {
		return nil, fmt.Errorf("pipeline returned %d predictions for %d rows", len(resp.Predictions), len(rows))
	}
	return resp.Predictions, nil
}

// Ready reports whether the pipeline artifacts are loadable. The probe is
// rate-limited: a fresh positive result is reused for five minutes.
func (b *Bridge) Ready() bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.available && time.Since(b.healthChecked) < 5*time.Minute {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.Timeout)
	defer cancel()
	_, err := b.call(ctx, bridgeRequest{Op: "verify"})
	b.available = err == nil
	if err == nil {
		b.healthChecked = time.Now()
	} else {
		log.Warn().Err(err).Msg("pipeline health probe failed")
	}
	return b.available
}

func (b *Bridge) call(ctx context.Context, req bridgeRequest) (*bridgeResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal bridge request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, b.pythonPath, b.scriptPath,
		b.cfg.ModelPath, b.cfg.TransformerPath, b.cfg.TargetPipelinePath)
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("pipeline call timed out after %v", b.cfg.Timeout)
		}
		// The script reports structured errors on stdout even on non-zero
		// exit; prefer those over the raw exec error.
		var resp bridgeResponse
		if jsonErr := json.Unmarshal(stdout.Bytes(), &resp); jsonErr == nil && resp.Error != "" {
			return nil, fmt.Errorf("pipeline error: %s", resp.Error)
		}
		log.Error().
			Err(err).
			Str("python", b.pythonPath).
			Str("script", b.scriptPath).
			Str("stderr", stderr.String()).
			Msg("pipeline subprocess failed")
		return nil, fmt.Errorf("pipeline subprocess failed: %w, stderr: %s", err, stderr.String())
	}

	var resp bridgeResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("parse pipeline response: %w, stdout: %s", err, stdout.String())
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("pipeline error: %s", resp.Error)
	}
	return &resp, nil
}

func findPython() (string, error) {
	if venvPath := os.Getenv("VIRTUAL_ENV"); venvPath != "" {
		candidates := []string{
			filepath.Join(venvPath, "bin", "python3"),
			filepath.Join(venvPath, "bin", "python"),
			filepath.Join(venvPath, "Scripts", "python.exe"),
		}
		for _, candidate := range candidates {
			if hasJoblib(candidate) {
				log.Info().Str("python_path", candidate).Msg("using virtual environment Python")
				return candidate, nil
			}
		}
	}

	for _, candidate := range []string{"python3", "python"} {
		path, err := exec.LookPath(candidate)
		if err != nil {
			continue
		}
		if hasJoblib(path) {
			log.Info().Str("python_path", path).Msg("using system Python")
			return path, nil
		}
	}

	return "", fmt.Errorf("no Python 3 with joblib, pandas and scikit-learn found")
}

func hasJoblib(path string) bool {
	if _, err := os.Stat(path); err != nil && !filepath.IsAbs(path) {
		if _, lookErr := exec.LookPath(path); lookErr != nil {
			return false
		}
	} else if err != nil {
		return false
	}
	cmd := exec.Command(path, "-c", "import sys, joblib, pandas, sklearn; print('Python', sys.version)")
	out, err := cmd.Output()
	return err == nil && strings.Contains(string(out), "Python 3")
}
