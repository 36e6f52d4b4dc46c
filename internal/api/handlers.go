// Package api exposes the prediction service over HTTP: single and batch
// scoring, attribute recommendations, prediction history and health.
package api

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/juleba580/Foot-Perf-IA/internal/auth"
	"github.com/juleba580/Foot-Perf-IA/internal/jsonsafe"
	"github.com/juleba580/Foot-Perf-IA/internal/metrics"
	"github.com/juleba580/Foot-Perf-IA/internal/model"
	"github.com/juleba580/Foot-Perf-IA/internal/normalize"
	"github.com/juleba580/Foot-Perf-IA/internal/recommend"
	"github.com/juleba580/Foot-Perf-IA/internal/storage"
)

const defaultHistoryLimit = 50

// Handlers carries the prediction service's HTTP endpoints.
type Handlers struct {
	engine         *model.Engine
	composer       *recommend.Composer
	store          *storage.Store
	tokens         *auth.TokenManager
	metrics        *metrics.Metrics
	frontendURL    string
	maxUploadBytes int64
}

// NewHandlers wires the prediction endpoints. store and m may be nil; with
// a nil store the history endpoints degrade to empty results.
func NewHandlers(engine *model.Engine, composer *recommend.Composer, store *storage.Store, tokens *auth.TokenManager, m *metrics.Metrics, frontendURL string, maxUploadBytes int64) *Handlers {
	return &Handlers{
		engine:         engine,
		composer:       composer,
		store:          store,
		tokens:         tokens,
		metrics:        m,
		frontendURL:    frontendURL,
		maxUploadBytes: maxUploadBytes,
	}
}

// Single scores one manually entered player record.
func (h *Handlers) Single(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be a JSON object")
		return
	}

	result := h.engine.PredictSingle(r.Context(), raw)
	if !result.Success {
		writeJSON(w, statusForFailure(result.Error), map[string]any{
			"success":    false,
			"error":      result.Error,
			"input_data": jsonsafe.Clean(result.Input),
		})
		return
	}

	h.recordHistory(r, raw, result.Prediction)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"prediction": result.Prediction,
		"player_id":  "manual_input",
	})
}

// Batch scores an uploaded CSV dataset in one pipeline call.
func (h *Handlers) Batch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		writeError(w, http.StatusBadRequest, "only CSV files are supported")
		return
	}

	tmp, err := os.CreateTemp("", "batch-*.csv")
	if err != nil {
		log.Error().Err(err).Msg("temp file creation failed")
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	defer os.Remove(tmp.Name())

	_, err = io.Copy(tmp, file)
	tmp.Close()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	rows, err := h.engine.PredictBatch(r.Context(), tmp.Name())
	if err != nil {
		log.Error().Err(err).Str("file", header.Filename).Msg("batch prediction failed")
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("batch prediction failed: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"predictions":   rows,
		"total_players": len(rows),
		"message":       fmt.Sprintf("Predictions for %d players", len(rows)),
	})
}

type recommendationsRequest struct {
	PlayerData map[string]any `json:"player_data"`
	Prediction float64        `json:"prediction"`
}

// Recommendations returns targeted improvement advice for a scored player.
func (h *Handlers) Recommendations(w http.ResponseWriter, r *http.Request) {
	var req recommendationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.PlayerData) == 0 {
		writeError(w, http.StatusBadRequest, "player_data is required")
		return
	}

	record, err := h.engine.NormalizedRecord(req.PlayerData)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid player data: %v", err))
		return
	}

	attributes := make(map[string]float64, len(record))
	for name, value := range record {
		if v, ok := normalize.CoerceFloat(value); ok {
			attributes[name] = v
		}
	}

	recs := h.composer.Recommend(r.Context(), attributes, req.Prediction)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":               true,
		"recommendations":       recs,
		"total_recommendations": len(recs),
	})
}

// Health reports pipeline readiness. Not guarded by authentication so load
// balancers can probe it.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	ready := h.engine.Ready()
	status := "healthy"
	if !ready {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        status,
		"models_loaded": ready,
		"service":       "prediction-api",
	})
}

// History returns the caller's recent single-prediction outcomes, newest
// first.
func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}

	records := []storage.HistoryRecord{}
	if h.store != nil {
		subject := auth.SubjectFromContext(r.Context())
		stored, err := h.store.GetHistory(subject, limit)
		if err != nil {
			log.Error().Err(err).Msg("history lookup failed")
			writeError(w, http.StatusInternalServerError, "failed to load history")
			return
		}
		if stored != nil {
			records = stored
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"history": records,
		"count":   len(records),
	})
}

// Home returns a service banner.
func (h *Handlers) Home(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "prediction-api",
		"status":  "running",
		"endpoints": []string{
			"POST /api/predict/single",
			"POST /api/predict/batch",
			"POST /api/predict/recommendations",
			"GET /api/predict/history",
			"GET /api/predict/health",
		},
	})
}

func (h *Handlers) recordHistory(r *http.Request, input map[string]any, prediction float64) {
	if h.store == nil {
		return
	}
	subject := auth.SubjectFromContext(r.Context())
	if subject == "" {
		return
	}

	safe, _ := jsonsafe.Clean(input).(map[string]any)
	err := h.store.RecordPrediction(storage.HistoryRecord{
		Subject:    subject,
		Input:      safe,
		Prediction: prediction,
	})
	if err != nil {
		// History is best effort: a storage hiccup never fails the prediction.
		log.Warn().Err(err).Msg("history write failed")
	}
}

// statusForFailure maps an engine failure to an HTTP status: caller input
// problems are 400, pipeline problems are 500.
func statusForFailure(msg string) int {
	if strings.HasPrefix(msg, "prediction failed") || strings.Contains(msg, "pipeline") {
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("response encoding failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg, "success": false})
}
