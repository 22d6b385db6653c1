package server

import (
	"errors"
	"net/http"

	"github.com/spigell/cv-matcher/internal/classifier"
	"github.com/spigell/cv-matcher/internal/extract"
	"github.com/spigell/cv-matcher/internal/matching"
	"github.com/spigell/cv-matcher/internal/resume"
	"github.com/spigell/cv-matcher/internal/storage"
)

// errBadRequest marks request errors found by the handlers themselves.
type errBadRequest struct {
	msg string
}

func (e *errBadRequest) Error() string { return e.msg }

func badRequest(msg string) error { return &errBadRequest{msg: msg} }

// httpStatus returns the HTTP status code for an error.
func httpStatus(err error) int {
	var (
		maxBytes   *http.MaxBytesError
		validation *storage.ValidationError
		bad        *errBadRequest
	)

	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &validation), errors.As(err, &bad):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, classifier.ErrDocumentRejected),
		errors.Is(err, resume.ErrTextTooShort),
		errors.Is(err, extract.ErrEmpty):
		return http.StatusUnprocessableEntity
	case errors.Is(err, extract.ErrUnsupported):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, matching.ErrNoJobSelected), errors.Is(err, matching.ErrNoResumes):
		return http.StatusConflict
	case errors.Is(err, matching.ErrRequirements):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
