package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/resume"
)

type uploadResumeRequest struct {
	Language string `validate:"omitempty,oneof=en ar"`
}

type upload struct {
	filename string
	data     []byte
}

// uploadError reports a file of a batch that was not stored.
type uploadError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

type uploadResponse struct {
	Parsed   int              `json:"parsed"`
	Rejected int              `json:"rejected"`
	Failed   int              `json:"failed"`
	Resumes  []*resume.Record `json:"resumes"`
	Errors   []uploadError    `json:"errors,omitempty"`
}

// readUploads reads every multipart "file" part, bounded by the upload limit.
func (s *Server) readUploads(w http.ResponseWriter, r *http.Request) ([]upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.deps.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.deps.MaxUploadBytes); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return nil, err
		}
		return nil, badRequest(fmt.Sprintf("invalid multipart form: %v", err))
	}

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		return nil, badRequest("file is required")
	}

	uploads := make([]upload, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, upload{filename: header.Filename, data: data})
	}
	return uploads, nil
}

// readUpload reads a single file upload.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	uploads, err := s.readUploads(w, r)
	if err != nil {
		return "", nil, err
	}
	if len(uploads) > 1 {
		return "", nil, badRequest("a single file is expected")
	}
	return uploads[0].filename, uploads[0].data, nil
}

// handleUploadResume ingests a batch of files. Each file is parsed on its own;
// the response is 201 when at least one resume was stored, otherwise the
// status of the first error.
func (s *Server) handleUploadResume(w http.ResponseWriter, r *http.Request) {
	uploads, err := s.readUploads(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	req := uploadResumeRequest{Language: strings.ToLower(strings.TrimSpace(r.FormValue("language")))}
	if err := s.validate.Struct(req); err != nil {
		s.fail(w, r, badRequest("language must be en or ar"))
		return
	}
	lang := s.deps.DefaultLanguage
	if req.Language != "" {
		lang = resume.Language(req.Language)
	}

	resp := uploadResponse{Resumes: []*resume.Record{}}
	var firstErr error
	for _, u := range uploads {
		if err := r.Context().Err(); err != nil {
			s.fail(w, r, err)
			return
		}

		rec, err := s.deps.Ingest.Ingest(r.Context(), u.filename, u.data, lang)
		if err != nil {
			s.logger.Info("resume upload refused", zap.String("file", u.filename), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			switch httpStatus(err) {
			case http.StatusUnprocessableEntity, http.StatusUnsupportedMediaType:
				resp.Rejected++
			default:
				resp.Failed++
			}
			resp.Errors = append(resp.Errors, uploadError{File: u.filename, Error: err.Error()})
			continue
		}
		resp.Parsed++
		resp.Resumes = append(resp.Resumes, rec)
	}

	s.logger.Info("resume batch processed",
		zap.Int("files", len(uploads)),
		zap.Int("parsed", resp.Parsed),
		zap.Int("rejected", resp.Rejected),
		zap.Int("failed", resp.Failed),
	)

	status := http.StatusCreated
	if resp.Parsed == 0 {
		status = httpStatus(firstErr)
	}
	s.jsonResponse(w, status, resp)
}

func (s *Server) handleListResumes(w http.ResponseWriter, r *http.Request) {
	records, err := s.deps.Resumes.List()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"resumes": records, "count": len(records)})
}

func (s *Server) handleGetResume(w http.ResponseWriter, r *http.Request) {
	rec, err := s.deps.Resumes.Get(r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteResume(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Resumes.Delete(r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteAllResumes(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Resumes.DeleteAll(); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
