package main

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"mcastchat/internal/engine"
)

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status    string `json:"status"` // "ok" or "stopped"
	State     string `json:"state"`
	Local     string `json:"local"`
	Group     string `json:"group"`
	Lines     int    `json:"lines"`
	Timestamp string `json:"timestamp"`
}

func newStatusRouter(logger zerolog.Logger, s *Session) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/transcript", s.handleTranscript)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (s *Session) handleHealth(w http.ResponseWriter, r *http.Request) {
	state := s.engine.State()
	resp := HealthResponse{
		Status:    "ok",
		State:     state.String(),
		Local:     s.engine.LocalAddr().String(),
		Group:     s.engine.Destination().String(),
		Lines:     strings.Count(s.transcript.Current(), "\n"),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	code := http.StatusOK
	if state == engine.Stopped {
		resp.Status = "stopped"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(resp)
}

func (s *Session) handleTranscript(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, s.transcript.Current())
}

// requestLogger logs each status request with zerolog.
func requestLogger(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				logger.Debug().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Dur("latency", time.Since(start)).
					Str("request_id", chimw.GetReqID(r.Context())).
					Msg("status request")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
