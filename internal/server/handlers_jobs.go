package server

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"
)

type createJobRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var (
		req        createJobRequest
		sourceFile string
	)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		filename, data, err := s.readUpload(w, r)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		text, err := s.deps.Extractor.Text(r.Context(), filename, data)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		req = createJobRequest{Title: r.FormValue("title"), Description: text}
		sourceFile = filename
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, s.deps.MaxUploadBytes)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.fail(w, r, badRequest("invalid request body"))
			return
		}
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if err := s.validate.Struct(req); err != nil {
		s.fail(w, r, badRequest("title and description are required"))
		return
	}

	job, err := s.deps.Jobs.Add(req.Title, req.Description, sourceFile)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.deps.Jobs.List()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"jobs": jobs, "count": len(jobs)})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.deps.Jobs.Get(r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, job)
}

func (s *Server) handleSelectJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.deps.Jobs.Select(r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, job)
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Jobs.Delete(r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteAllJobs(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Jobs.DeleteAll(); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
