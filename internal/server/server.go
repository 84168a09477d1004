// Package server exposes the chart-query workflow over HTTP. Every
// workflow terminal is a successful response; HTTP error statuses are
// reserved for payloads the handler cannot accept and for infrastructure
// faults.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clinicops/chartquery/internal/config"
	apperrors "github.com/clinicops/chartquery/internal/errors"
	"github.com/clinicops/chartquery/internal/logging"
	"github.com/clinicops/chartquery/internal/metrics"
	"github.com/clinicops/chartquery/internal/storage"
	"github.com/clinicops/chartquery/internal/workflow"
)

// Asker runs one question to a terminal. *workflow.Engine satisfies it.
type Asker interface {
	Run(ctx context.Context, question string) (*workflow.Result, error)
}

// Server serves the ask endpoint plus health and metrics.
type Server struct {
	engine          Asker
	store           storage.Repository
	httpSrv         *http.Server
	shutdownTimeout time.Duration
}

// New creates a Server from the server config section. The store is
// optional; when present it backs the health check.
func New(cfg *config.ServerConfig, engine Asker, store storage.Repository) (*Server, error) {
	readTimeout, err := time.ParseDuration(cfg.ReadTimeout)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrTypeConfig,
			"invalid read timeout %q", cfg.ReadTimeout)
	}

	writeTimeout, err := time.ParseDuration(cfg.WriteTimeout)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrTypeConfig,
			"invalid write timeout %q", cfg.WriteTimeout)
	}

	shutdownTimeout, err := time.ParseDuration(cfg.ShutdownTimeout)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrTypeConfig,
			"invalid shutdown timeout %q", cfg.ShutdownTimeout)
	}

	s := &Server{
		engine:          engine,
		store:           store,
		shutdownTimeout: shutdownTimeout,
	}

	s.httpSrv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.routes(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(jsonRecoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(requestLog)
	r.Use(metrics.Middleware())

	r.Post("/api/ask", s.handleAsk)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// Run serves until ctx is canceled, then drains in-flight requests
// within the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		logging.Infof("HTTP server listening on %s", s.httpSrv.Addr)

		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return apperrors.Wrap(err, apperrors.ErrTypeInternal, "HTTP server failed")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return apperrors.Wrap(err, apperrors.ErrTypeInternal, "HTTP server shutdown failed")
	}

	logging.Info("HTTP server stopped")

	return nil
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Status    string `json:"status"`
	Answer    string `json:"answer"`
	RequestID string `json:"request_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "question is required"})
		return
	}

	result, err := s.engine.Run(r.Context(), req.Question)
	if err != nil {
		// Only an early context end reaches here; the workflow absorbs
		// everything else into a terminal.
		writeJSON(w, http.StatusServiceUnavailable,
			errorResponse{Error: "request ended before completion"})

		return
	}

	writeJSON(w, http.StatusOK, askResponse{
		Status:    string(result.Terminal),
		Answer:    result.Message,
		RequestID: result.RequestID,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		if _, err := s.store.GetStats(r.Context()); err != nil {
			httpLogger().WithError(err).Warn("health check failed against the store")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})

			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
