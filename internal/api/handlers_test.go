package api

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juleba580/Foot-Perf-IA/internal/auth"
	"github.com/juleba580/Foot-Perf-IA/internal/model"
	"github.com/juleba580/Foot-Perf-IA/internal/recommend"
	"github.com/juleba580/Foot-Perf-IA/internal/schema"
	"github.com/juleba580/Foot-Perf-IA/internal/storage"
)

const testSecret = "test-secret-0123456789"

type fakeBridge struct {
	prediction float64
	err        error
	ready      bool
}

func (f *fakeBridge) Predict(_ context.Context, _ []string, rows [][]any) ([]*float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*float64, len(rows))
	for i := range rows {
		v := f.prediction
		out[i] = &v
	}
	return out, nil
}

func (f *fakeBridge) Ready() bool { return f.ready }

type testService struct {
	router http.Handler
	store  *storage.Store
	tokens *auth.TokenManager
}

func newTestService(t *testing.T, bridge model.PipelineBridge) *testService {
	t.Helper()

	store, err := storage.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	tokens, err := auth.NewTokenManager(testSecret, time.Hour)
	require.NoError(t, err)

	engine := model.NewEngine(schema.Default(), bridge, nil)
	composer := recommend.NewComposer(recommend.TemplateAdviser{}, nil)

	h := NewHandlers(engine, composer, store, tokens, nil, "http://localhost:3000", 16<<20)
	return &testService{router: NewRouter(h), store: store, tokens: tokens}
}

func (s *testService) token(t *testing.T) string {
	t.Helper()
	token, err := s.tokens.Generate("user-1", "a@example.com")
	require.NoError(t, err)
	return token
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func (s *testService) postJSON(t *testing.T, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestSinglePrediction(t *testing.T) {
	svc := newTestService(t, &fakeBridge{prediction: 82.456, ready: true})
	token := svc.token(t)

	rec := svc.postJSON(t, "/api/predict/single", map[string]any{"finishing": 90}, token)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, 82.46, body["prediction"])
	assert.Equal(t, "manual_input", body["player_id"])
}

func TestSinglePredictionRecordsHistory(t *testing.T) {
	svc := newTestService(t, &fakeBridge{prediction: 80, ready: true})
	token := svc.token(t)

	rec := svc.postJSON(t, "/api/predict/single", map[string]any{"finishing": 90}, token)
	require.Equal(t, http.StatusOK, rec.Code)

	records, err := svc.store.GetHistory("user-1", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 80.0, records[0].Prediction)
	assert.Equal(t, 90.0, records[0].Input["finishing"])
}

func TestSinglePredictionFailures(t *testing.T) {
	t.Run("empty payload", func(t *testing.T) {
		svc := newTestService(t, &fakeBridge{prediction: 80})
		rec := svc.postJSON(t, "/api/predict/single", map[string]any{}, svc.token(t))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, false, decodeBody(t, rec)["success"])
	})

	t.Run("non-object payload", func(t *testing.T) {
		svc := newTestService(t, &fakeBridge{prediction: 80})
		req := httptest.NewRequest(http.MethodPost, "/api/predict/single", bytes.NewReader([]byte(`[1,2]`)))
		req.Header.Set("Authorization", "Bearer "+svc.token(t))
		rec := httptest.NewRecorder()
		svc.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("pipeline failure", func(t *testing.T) {
		svc := newTestService(t, &fakeBridge{err: errors.New("boom")})
		rec := svc.postJSON(t, "/api/predict/single", map[string]any{"finishing": 90}, svc.token(t))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		svc := newTestService(t, &fakeBridge{prediction: 80})
		rec := svc.postJSON(t, "/api/predict/single", map[string]any{"finishing": 90}, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func multipartUpload(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func TestBatchPrediction(t *testing.T) {
	svc := newTestService(t, &fakeBridge{prediction: 75.5, ready: true})
	token := svc.token(t)

	body, contentType := multipartUpload(t, "file", "players.csv",
		"player_name,finishing\nMessi,95\nRonaldo,93\n")

	req := httptest.NewRequest(http.MethodPost, "/api/predict/batch", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	svc.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, float64(2), resp["total_players"])
	assert.Equal(t, "Predictions for 2 players", resp["message"])

	predictions := resp["predictions"].([]any)
	require.Len(t, predictions, 2)
	first := predictions[0].(map[string]any)
	assert.Equal(t, "Messi", first["name"])
	assert.Equal(t, 75.5, first["prediction"])
}

func TestBatchValidation(t *testing.T) {
	svc := newTestService(t, &fakeBridge{prediction: 75})
	token := svc.token(t)

	t.Run("missing file field", func(t *testing.T) {
		body, contentType := multipartUpload(t, "wrong_field", "players.csv", "a,b\n1,2\n")
		req := httptest.NewRequest(http.MethodPost, "/api/predict/batch", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		svc.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("non-csv extension", func(t *testing.T) {
		body, contentType := multipartUpload(t, "file", "players.xlsx", "a,b\n1,2\n")
		req := httptest.NewRequest(http.MethodPost, "/api/predict/batch", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		svc.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not multipart", func(t *testing.T) {
		rec := svc.postJSON(t, "/api/predict/batch", map[string]any{}, token)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestBatchPipelineFailure(t *testing.T) {
	svc := newTestService(t, &fakeBridge{err: errors.New("boom")})
	token := svc.token(t)

	body, contentType := multipartUpload(t, "file", "players.csv", "finishing\n90\n")
	req := httptest.NewRequest(http.MethodPost, "/api/predict/batch", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	svc.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRecommendations(t *testing.T) {
	svc := newTestService(t, &fakeBridge{prediction: 80, ready: true})
	token := svc.token(t)

	rec := svc.postJSON(t, "/api/predict/recommendations", map[string]any{
		"player_data": map[string]any{"finishing": 40, "crossing": 55},
		"prediction":  72.5,
	}, token)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])

	recs := body["recommendations"].([]any)
	// Defaulted attributes below their bars are flagged too; the explicitly
	// weak finishing has the widest gap and must come first.
	require.NotEmpty(t, recs)
	first := recs[0].(map[string]any)
	assert.Equal(t, "finishing", first["attribute"])
	assert.Equal(t, float64(len(recs)), body["total_recommendations"])
}

func TestRecommendationsValidation(t *testing.T) {
	svc := newTestService(t, &fakeBridge{prediction: 80})
	token := svc.token(t)

	rec := svc.postJSON(t, "/api/predict/recommendations", map[string]any{
		"prediction": 70,
	}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		svc := newTestService(t, &fakeBridge{ready: true})
		rec := httptest.NewRecorder()
		svc.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/predict/health", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, true, body["models_loaded"])
		assert.Equal(t, "prediction-api", body["service"])
	})

	t.Run("degraded", func(t *testing.T) {
		svc := newTestService(t, &fakeBridge{ready: false})
		rec := httptest.NewRecorder()
		svc.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/predict/health", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "degraded", decodeBody(t, rec)["status"])
	})

	t.Run("no auth required", func(t *testing.T) {
		svc := newTestService(t, &fakeBridge{ready: true})
		rec := httptest.NewRecorder()
		svc.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/predict/health", nil))
		assert.NotEqual(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestHistoryEndpoint(t *testing.T) {
	svc := newTestService(t, &fakeBridge{prediction: 80, ready: true})
	token := svc.token(t)

	for i := 0; i < 3; i++ {
		rec := svc.postJSON(t, "/api/predict/single", map[string]any{"finishing": 90}, token)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/predict/history?limit=2", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	svc.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(2), body["count"])
	assert.Len(t, body["history"].([]any), 2)
}

func TestHistoryEmptyForNewUser(t *testing.T) {
	svc := newTestService(t, &fakeBridge{ready: true})

	req := httptest.NewRequest(http.MethodGet, "/api/predict/history", nil)
	req.Header.Set("Authorization", "Bearer "+svc.token(t))
	rec := httptest.NewRecorder()
	svc.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(0), body["count"])
	assert.NotNil(t, body["history"], "history must be an empty list, not null")
}

func TestHomeBanner(t *testing.T) {
	svc := newTestService(t, &fakeBridge{ready: true})
	rec := httptest.NewRecorder()
	svc.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "prediction-api", decodeBody(t, rec)["service"])
}
