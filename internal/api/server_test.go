package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/cardio.report/internal/config"
	"github.com/banshee-data/cardio.report/internal/ecg/ecgsim"
	"github.com/banshee-data/cardio.report/internal/ecg/pipeline"
	"github.com/banshee-data/cardio.report/internal/testutil"
)

func newTestServer(t *testing.T, warm bool) *Server {
	t.Helper()
	p, err := pipeline.New(pipeline.DefaultConfig())
	require.NoError(t, err)
	if warm {
		gen := ecgsim.New(ecgsim.DefaultConfig())
		p.Ingest(gen.Batch(5000))
	}
	return NewServer(p, config.EmptyTuningConfig())
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, path))
	return rec
}

func TestHealthz(t *testing.T) {
	rec := get(t, newTestServer(t, false), "/healthz")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body["status"])
	require.NotEmpty(t, body["session"])
}

func TestWaveformEndpoint(t *testing.T) {
	rec := get(t, newTestServer(t, true), "/api/ecg/waveform")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var body struct {
		SessionID  string    `json:"session_id"`
		SampleRate float64   `json:"sample_rate"`
		Samples    []float64 `json:"samples"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 250.0, body.SampleRate)
	require.Len(t, body.Samples, 1200, "warm pipeline should serve a full ring")
}

func TestBeatsEndpoint(t *testing.T) {
	rec := get(t, newTestServer(t, true), "/api/ecg/beats")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var body struct {
		Peaks  []struct{ Index int }
		Source string `json:"source"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Peaks)
	require.NotEqual(t, "none", body.Source)
}

func TestRateEndpointColdIsNull(t *testing.T) {
	rec := get(t, newTestServer(t, false), "/api/ecg/rate")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var body struct {
		Estimate *struct{ Smoothed float64 } `json:"estimate"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Nil(t, body.Estimate, "cold pipeline must report a null estimate")
}

func TestFeaturesEndpointContract(t *testing.T) {
	rec := get(t, newTestServer(t, true), "/api/ecg/features")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var body struct {
		Version int       `json:"version"`
		Names   []string  `json:"names"`
		Values  []float64 `json:"values"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, pipeline.FeatureVectorVersion, body.Version)
	require.Equal(t, len(body.Names), len(body.Values))
}

func TestResetEndpoint(t *testing.T) {
	s := newTestServer(t, true)

	// GET is rejected.
	rec := get(t, s, "/api/ecg/reset")
	testutil.AssertStatusCode(t, rec.Code, http.StatusMethodNotAllowed)

	rec = httptest.NewRecorder()
	s.ServeMux().ServeHTTP(rec, testutil.NewTestRequest(http.MethodPost, "/api/ecg/reset"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	// After reset the waveform is empty.
	rec = get(t, s, "/api/ecg/waveform")
	var body struct {
		Samples []float64 `json:"samples"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Empty(t, body.Samples)
}

func TestMethodNotAllowedOnDataEndpoints(t *testing.T) {
	s := newTestServer(t, false)
	for _, path := range []string{
		"/api/ecg/waveform",
		"/api/ecg/beats",
		"/api/ecg/intervals",
		"/api/ecg/rate",
		"/api/ecg/hrv",
		"/api/ecg/features",
		"/api/ecg/config",
	} {
		rec := httptest.NewRecorder()
		s.ServeMux().ServeHTTP(rec, testutil.NewTestRequest(http.MethodPost, path))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("POST %s = %d, want 405", path, rec.Code)
		}
	}
}

func TestLoggingMiddleware(t *testing.T) {
	s := newTestServer(t, false)
	handler := LoggingMiddleware(s.ServeMux())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, "/healthz"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
}
