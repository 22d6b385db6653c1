package server

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/matching"
	"github.com/spigell/cv-matcher/internal/storage"
)

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	id := sessionID(w, r)

	job, err := s.deps.Jobs.Selected()
	if errors.Is(err, storage.ErrNotFound) {
		s.fail(w, r, matching.ErrNoJobSelected)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	candidates, err := s.deps.Resumes.List()
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.deps.MatchTimeout)
	defer cancel()

	report, err := s.deps.Matcher.Run(ctx, job.Matching(), candidates)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.sessions.put(id, report)
	s.logger.Info("match results stored",
		zap.String("run_id", report.RunID),
		zap.Int("top", len(report.Top)),
	)
	s.jsonResponse(w, http.StatusOK, report)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		s.errorResponse(w, http.StatusNotFound, "no match results in this session")
		return
	}
	report, ok := s.sessions.get(c.Value)
	if !ok {
		s.errorResponse(w, http.StatusNotFound, "no match results in this session")
		return
	}
	s.jsonResponse(w, http.StatusOK, report)
}
