package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/classifier"
	"github.com/spigell/cv-matcher/internal/matching"
	"github.com/spigell/cv-matcher/internal/resume"
	"github.com/spigell/cv-matcher/internal/storage"
)

const jobDescription = "Backend engineer with Go, SQL and 3+ years of experience."

type fakeIngester struct {
	store   *storage.ResumeStore
	err     error
	results map[string]error
	lang    resume.Language
}

func (f *fakeIngester) Ingest(_ context.Context, filename string, data []byte, lang resume.Language) (*resume.Record, error) {
	f.lang = lang
	if f.err != nil {
		return nil, f.err
	}
	if err := f.results[filename]; err != nil {
		return nil, err
	}
	rec := &resume.Record{SourceFile: filename, Name: "Jane Doe", IsValidCV: true, OutputLanguage: lang, ParsedAt: time.Now()}
	if err := f.store.Save(rec, data); err != nil {
		return nil, err
	}
	return rec, nil
}

type fakeExtractor struct{}

func (fakeExtractor) Text(_ context.Context, _ string, data []byte) (string, error) {
	return string(data), nil
}

type fakeMatcher struct {
	err  error
	jobs []*matching.Job
}

func (f *fakeMatcher) Run(_ context.Context, job *matching.Job, candidates []*resume.Record) (*matching.Report, error) {
	f.jobs = append(f.jobs, job)
	if f.err != nil {
		return nil, f.err
	}
	if len(candidates) == 0 {
		return nil, matching.ErrNoResumes
	}
	top := make([]matching.MatchResult, 0, len(candidates))
	for i, c := range candidates {
		top = append(top, matching.MatchResult{ResumeID: c.ID, MatchScore: 90 - i})
	}
	return &matching.Report{RunID: "run-1", JobID: job.ID, JobTitle: job.Title, Top: matching.Top(top), Total: len(candidates), Scored: len(candidates)}, nil
}

type testEnv struct {
	handler  http.Handler
	jobs     *storage.JobStore
	resumes  *storage.ResumeStore
	ingester *fakeIngester
	matcher  *fakeMatcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	env := &testEnv{
		jobs:    storage.NewJobStore(dir),
		resumes: storage.NewResumeStore(dir, nil),
		matcher: &fakeMatcher{},
	}
	env.ingester = &fakeIngester{store: env.resumes}

	srv := New(":0", Deps{
		Jobs:           env.jobs,
		Resumes:        env.resumes,
		Ingest:         env.ingester,
		Extractor:      fakeExtractor{},
		Matcher:        env.matcher,
		Logger:         zap.NewNop(),
		MaxUploadBytes: 1 << 10,
	})
	env.handler = srv.Handler()
	return env
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, path string, fields map[string]string, filename string, content []byte) *http.Request {
	t.Helper()
	var files []testFile
	if filename != "" {
		files = append(files, testFile{name: filename, content: content})
	}
	return multipartFilesRequest(t, path, fields, files...)
}

type testFile struct {
	name    string
	content []byte
}

func multipartFilesRequest(t *testing.T, path string, fields map[string]string, files ...testFile) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile("file", f.name)
		require.NoError(t, err)
		_, err = fw.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestJobsAPI(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	rec := env.do(t, jsonRequest(t, http.MethodPost, "/api/jobs", map[string]string{"title": "Backend", "description": jobDescription}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	job := decode[storage.Job](t, rec)
	assert.Equal(t, "Backend", job.Title)

	rec = env.do(t, jsonRequest(t, http.MethodPost, "/api/jobs", map[string]string{"title": "Backend", "description": "short"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, jsonRequest(t, http.MethodPost, "/api/jobs", map[string]string{"description": jobDescription}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, multipartRequest(t, "/api/jobs", map[string]string{"title": "From file"}, "job.txt", []byte(jobDescription)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	fromFile := decode[storage.Job](t, rec)
	assert.Equal(t, "job.txt", fromFile.SourceFile)
	assert.Equal(t, jobDescription, fromFile.Description)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/jobs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Jobs  []storage.Job `json:"jobs"`
		Count int           `json:"count"`
	}](t, rec)
	assert.Equal(t, 2, list.Count)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/jobs/"+job.ID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodPost, "/api/jobs/"+job.ID+"/select", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[storage.Job](t, rec).Selected)

	rec = env.do(t, httptest.NewRequest(http.MethodPost, "/api/jobs/nope/select", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodDelete, "/api/jobs/"+job.ID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/jobs/"+job.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodDelete, "/api/jobs", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestResumesAPI(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	rec := env.do(t, multipartRequest(t, "/api/resumes", map[string]string{"language": "AR"}, "jane.pdf", []byte("%PDF")))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	batch := decode[uploadResponse](t, rec)
	assert.Equal(t, resume.Arabic, env.ingester.lang)
	assert.Equal(t, 1, batch.Parsed)
	require.Len(t, batch.Resumes, 1)
	created := batch.Resumes[0]
	assert.NotEmpty(t, created.ID)

	rec = env.do(t, multipartRequest(t, "/api/resumes", map[string]string{"language": "fr"}, "jane.pdf", []byte("%PDF")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, multipartRequest(t, "/api/resumes", nil, "", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, multipartRequest(t, "/api/resumes", nil, "big.pdf", bytes.Repeat([]byte("x"), 4<<10)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/resumes/"+created.ID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/resumes", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)

	rec = env.do(t, httptest.NewRequest(http.MethodDelete, "/api/resumes/"+created.ID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, httptest.NewRequest(http.MethodDelete, "/api/resumes/"+created.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodDelete, "/api/resumes", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestUploadRejectedDocument(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.ingester.err = fmt.Errorf("note.pdf: %w: Document too short", classifier.ErrDocumentRejected)

	rec := env.do(t, multipartRequest(t, "/api/resumes", nil, "note.pdf", []byte("x")))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Document too short")

	batch := decode[uploadResponse](t, rec)
	assert.Equal(t, 1, batch.Rejected)
	assert.Zero(t, batch.Parsed)
	assert.Empty(t, batch.Resumes)
}

func TestUploadResumeBatch(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.ingester.results = map[string]error{
		"note.pdf":   fmt.Errorf("note.pdf: %w: Document too short", classifier.ErrDocumentRejected),
		"broken.pdf": errors.New("model unavailable"),
	}

	rec := env.do(t, multipartFilesRequest(t, "/api/resumes", map[string]string{"language": "en"},
		testFile{name: "jane.pdf", content: []byte("%PDF-jane")},
		testFile{name: "note.pdf", content: []byte("%PDF-note")},
		testFile{name: "broken.pdf", content: []byte("%PDF-broken")},
		testFile{name: "john.pdf", content: []byte("%PDF-john")},
	))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	batch := decode[uploadResponse](t, rec)
	assert.Equal(t, 2, batch.Parsed)
	assert.Equal(t, 1, batch.Rejected)
	assert.Equal(t, 1, batch.Failed)
	require.Len(t, batch.Resumes, 2)
	assert.Equal(t, "jane.pdf", batch.Resumes[0].SourceFile)
	assert.Equal(t, "john.pdf", batch.Resumes[1].SourceFile)
	require.Len(t, batch.Errors, 2)
	assert.Equal(t, "note.pdf", batch.Errors[0].File)
	assert.Equal(t, "broken.pdf", batch.Errors[1].File)

	records, err := env.resumes.List()
	require.NoError(t, err)
	assert.Len(t, records, 2)

	rec = env.do(t, multipartFilesRequest(t, "/api/resumes", nil,
		testFile{name: "broken.pdf", content: []byte("x")},
		testFile{name: "note.pdf", content: []byte("y")},
	))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	batch = decode[uploadResponse](t, rec)
	assert.Equal(t, 1, batch.Failed)
	assert.Equal(t, 1, batch.Rejected)
}

func TestMatchFlow(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodPost, "/api/match", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "no job selected")

	job, err := env.jobs.Add("Backend", jobDescription, "")
	require.NoError(t, err)
	_, err = env.jobs.Select(job.ID)
	require.NoError(t, err)

	rec = env.do(t, httptest.NewRequest(http.MethodPost, "/api/match", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "no resumes")

	for i := range 4 {
		require.NoError(t, env.resumes.Save(&resume.Record{SourceFile: fmt.Sprintf("cv%d.pdf", i), IsValidCV: true, ParsedAt: time.Now()}, nil))
	}

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/results", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodPost, "/api/match", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[matching.Report](t, rec)
	assert.Len(t, report.Top, 3)
	assert.Equal(t, job.ID, report.JobID)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "cvm_session", cookies[0].Name)

	req := httptest.NewRequest(http.MethodGet, "/api/results", nil)
	req.AddCookie(cookies[0])
	rec = env.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "run-1", decode[matching.Report](t, rec).RunID)

	other := httptest.NewRequest(http.MethodGet, "/api/results", nil)
	other.AddCookie(&http.Cookie{Name: "cvm_session", Value: "2b0f3f5e-62a4-4d3a-9d43-3d5c1f0e8a11"})
	assert.Equal(t, http.StatusNotFound, env.do(t, other).Code)
}

func TestMatchExtractionFailure(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.matcher.err = &matching.ExtractionError{Cause: errors.New("model unavailable")}

	job, err := env.jobs.Add("Backend", jobDescription, "")
	require.NoError(t, err)
	_, err = env.jobs.Select(job.ID)
	require.NoError(t, err)
	require.NoError(t, env.resumes.Save(&resume.Record{SourceFile: "cv.pdf", IsValidCV: true}, nil))

	rec := env.do(t, httptest.NewRequest(http.MethodPost, "/api/match", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "model unavailable"))
}

func TestRecoverMiddleware(t *testing.T) {
	t.Parallel()

	srv := New(":0", Deps{Logger: zap.NewNop()})
	handler := srv.withRecover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSessionStoreExpires(t *testing.T) {
	t.Parallel()

	store := newSessionStore(time.Hour)
	now := time.Now()
	store.now = func() time.Time { return now }

	store.put("a", &matching.Report{RunID: "r"})
	_, ok := store.get("a")
	assert.True(t, ok)

	now = now.Add(2 * time.Hour)
	_, ok = store.get("a")
	assert.False(t, ok)
}
