package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"cuisine/pkg"
)

// Ranges offered to users of the HTTP shell. The pipeline itself accepts any tree
// count from 1 and any ratio strictly between 0 and 1.
const (
	MinTrees     = 50
	MaxTrees     = 500
	MinTestRatio = 0.1
	MaxTestRatio = 0.4
)

// Server exposes a Pipeline over JSON.
type Server struct {
	router   *mux.Router
	pipeline *pkg.Pipeline
	config   pkg.Config
}

func NewServer(pipeline *pkg.Pipeline, config pkg.Config) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		pipeline: pipeline,
		config:   config,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.errorRecoveryMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/dataset", s.handleDataset).Methods("GET")
	api.HandleFunc("/model", s.handleModel).Methods("GET")
	api.HandleFunc("/predict", s.handlePredict).Methods("POST")
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		log.Info().
			Str("Method", r.Method).
			Str("Path", r.URL.Path).
			Int("Status", recorder.status).
			Dur("Elapsed", time.Since(start)).
			Msg("Request")
	})
}

func (s *Server) errorRecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Str("Path", r.URL.Path).Msgf("Panic serving request: %v", err)
				writeInternalServerErrorResponse(w, "")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// ListenAndServe serves until ctx is done, then shuts down gracefully. The data file
// is watched meanwhile so edits are picked up by the next request.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	watchCtx, stopWatching := context.WithCancel(ctx)
	defer stopWatching()
	go func() {
		if err := s.pipeline.Watch(watchCtx, s.config.DataFile); err != nil {
			log.Warn().Err(err).Str("Path", s.config.DataFile).Msg("Data file not watched")
		}
	}()

	errs := make(chan error, 1)
	go func() {
		log.Info().Str("Addr", s.config.Addr).Msg("Server listening")
		errs <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("error serving on %s: %w", s.config.Addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info().Msg("Shutting down server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	return nil
}
