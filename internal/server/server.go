// Package server provides the HTTP API for uploading resumes, managing job
// descriptions and running matches.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/matching"
	"github.com/spigell/cv-matcher/internal/resume"
	"github.com/spigell/cv-matcher/internal/storage"
)

const (
	DefaultMaxUploadBytes = 16 << 20
	DefaultMatchTimeout   = 10 * time.Minute

	shutdownTimeout = 30 * time.Second
)

type jobStore interface {
	Add(title, description, sourceFile string) (*storage.Job, error)
	List() ([]*storage.Job, error)
	Get(id string) (*storage.Job, error)
	Select(id string) (*storage.Job, error)
	Selected() (*storage.Job, error)
	Delete(id string) error
	DeleteAll() error
}

type resumeStore interface {
	List() ([]*resume.Record, error)
	Get(id string) (*resume.Record, error)
	Delete(id string) error
	DeleteAll() error
}

type ingester interface {
	Ingest(ctx context.Context, filename string, data []byte, lang resume.Language) (*resume.Record, error)
}

type textExtractor interface {
	Text(ctx context.Context, filename string, data []byte) (string, error)
}

type matcher interface {
	Run(ctx context.Context, job *matching.Job, candidates []*resume.Record) (*matching.Report, error)
}

// Deps holds everything the handlers work with.
type Deps struct {
	Jobs      jobStore
	Resumes   resumeStore
	Ingest    ingester
	Extractor textExtractor
	Matcher   matcher
	Logger    *zap.Logger

	DefaultLanguage resume.Language
	MaxUploadBytes  int64
	MatchTimeout    time.Duration
}

// Server represents the HTTP server.
type Server struct {
	httpServer *http.Server
	deps       Deps
	logger     *zap.Logger
	sessions   *sessionStore
	validate   *validator.Validate
}

func New(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if deps.MatchTimeout <= 0 {
		deps.MatchTimeout = DefaultMatchTimeout
	}
	if deps.DefaultLanguage == "" {
		deps.DefaultLanguage = resume.English
	}

	s := &Server{
		deps:     deps,
		logger:   deps.Logger,
		sessions: newSessionStore(sessionTTL),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/resumes", s.handleUploadResume)
	mux.HandleFunc("GET /api/resumes", s.handleListResumes)
	mux.HandleFunc("GET /api/resumes/{id}", s.handleGetResume)
	mux.HandleFunc("DELETE /api/resumes/{id}", s.handleDeleteResume)
	mux.HandleFunc("DELETE /api/resumes", s.handleDeleteAllResumes)

	mux.HandleFunc("POST /api/jobs", s.handleCreateJob)
	mux.HandleFunc("GET /api/jobs", s.handleListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", s.handleGetJob)
	mux.HandleFunc("POST /api/jobs/{id}/select", s.handleSelectJob)
	mux.HandleFunc("DELETE /api/jobs/{id}", s.handleDeleteJob)
	mux.HandleFunc("DELETE /api/jobs", s.handleDeleteAllJobs)

	mux.HandleFunc("POST /api/match", s.handleMatch)
	mux.HandleFunc("GET /api/results", s.handleResults)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.withRecover(s.withLogging(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		// Matching runs call the model once per candidate.
		WriteTimeout: deps.MatchTimeout + time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler exposes the routed handler, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// fail writes err with the status it maps to and logs server-side failures.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	s.errorResponse(w, status, err.Error())
}
