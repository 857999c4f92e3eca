// Package api exposes the pipeline's read-only snapshot surface over HTTP.
// Every data endpoint is pull-based: the UI or reporting collaborator asks
// for current state, nothing is pushed.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/cardio.report/internal/config"
	"github.com/banshee-data/cardio.report/internal/ecg/pipeline"
	"github.com/banshee-data/cardio.report/internal/ecg/rate"
	"github.com/banshee-data/cardio.report/internal/httputil"
	"github.com/banshee-data/cardio.report/internal/monitoring"
	"github.com/banshee-data/cardio.report/internal/version"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server serves snapshots of one pipeline instance.
type Server struct {
	p      *pipeline.Pipeline
	tuning *config.TuningConfig
}

// NewServer wires a pipeline and the tuning config it was built from.
func NewServer(p *pipeline.Pipeline, tuning *config.TuningConfig) *Server {
	return &Server{p: p, tuning: tuning}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	default:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	}
}

// LoggingMiddleware logs method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux returns the route table.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.health)
	mux.HandleFunc("/api/ecg/waveform", s.waveform)
	mux.HandleFunc("/api/ecg/beats", s.beats)
	mux.HandleFunc("/api/ecg/intervals", s.intervals)
	mux.HandleFunc("/api/ecg/rate", s.rate)
	mux.HandleFunc("/api/ecg/hrv", s.hrv)
	mux.HandleFunc("/api/ecg/features", s.features)
	mux.HandleFunc("/api/ecg/config", s.showConfig)
	mux.HandleFunc("/api/ecg/reset", s.reset)
	return mux
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{
		"status":  "ok",
		"version": version.Version,
		"session": s.p.SessionID(),
	})
}

func (s *Server) waveform(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"session_id":  s.p.SessionID(),
		"sample_rate": s.p.SampleRate(),
		"samples":     s.p.Waveform(),
	})
}

func (s *Server) beats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.p.Beats())
}

func (s *Server) intervals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.p.Intervals())
}

type rateResponse struct {
	Estimate *rate.Estimate `json:"estimate"` // null before the first accepted update
}

func (s *Server) rate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, rateResponse{Estimate: s.p.Rate()})
}

func (s *Server) hrv(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.p.HRV())
}

func (s *Server) features(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"version": pipeline.FeatureVectorVersion,
		"names":   pipeline.FeatureNames(),
		"values":  s.p.Features(),
	})
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.tuning)
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	s.p.Reset()
	httputil.WriteJSONOK(w, map[string]string{"status": "reset"})
}
