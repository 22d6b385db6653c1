package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/classifier"
	"github.com/spigell/cv-matcher/internal/resume"
)

const cvText = "EXPERIENCE: built backend systems for logistics platforms. " +
	"EDUCATION: studied informatics at a regional school. " +
	"SKILLS: Go, PostgreSQL, Kubernetes, observability."

type fakeExtractor struct {
	text string
	err  error
}

func (f fakeExtractor) Text(context.Context, string, []byte) (string, error) {
	return f.text, f.err
}

type fakeParser struct {
	calls int
	err   error
}

func (f *fakeParser) Parse(_ context.Context, text string, lang resume.Language) (*resume.Record, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &resume.Record{Name: "Jane Doe", Skills: []string{"Go"}, OutputLanguage: lang}, nil
}

type fakeStore struct {
	saved    []*resume.Record
	original []byte
}

func (f *fakeStore) Save(rec *resume.Record, original []byte) error {
	rec.ID = "id-1"
	f.saved = append(f.saved, rec)
	f.original = original
	return nil
}

func TestIngestStoresValidCV(t *testing.T) {
	t.Parallel()

	parser := &fakeParser{}
	store := &fakeStore{}
	svc := New(fakeExtractor{text: cvText}, parser, store, zap.NewNop())

	rec, err := svc.Ingest(context.Background(), "/tmp/upload/jane.pdf", []byte("raw"), resume.Arabic)
	require.NoError(t, err)

	assert.Equal(t, "id-1", rec.ID)
	assert.Equal(t, "jane.pdf", rec.SourceFile)
	assert.True(t, rec.IsValidCV)
	assert.Contains(t, rec.ValidationReason, "Valid CV detected")
	assert.Equal(t, resume.Arabic, rec.OutputLanguage)
	assert.Equal(t, []byte("raw"), store.original)
	assert.Equal(t, 1, parser.calls)
}

func TestIngestRejectsNonCV(t *testing.T) {
	t.Parallel()

	parser := &fakeParser{}
	store := &fakeStore{}
	svc := New(fakeExtractor{text: "short note"}, parser, store, nil)

	_, err := svc.Ingest(context.Background(), "note.txt", []byte("short note"), resume.English)
	require.ErrorIs(t, err, classifier.ErrDocumentRejected)
	assert.Contains(t, err.Error(), "Document too short")
	assert.Zero(t, parser.calls)
	assert.Empty(t, store.saved)
}

func TestIngestPropagatesFailures(t *testing.T) {
	t.Parallel()

	_, err := New(fakeExtractor{err: errors.New("broken pdf")}, &fakeParser{}, &fakeStore{}, nil).
		Ingest(context.Background(), "cv.pdf", []byte("x"), resume.English)
	require.ErrorContains(t, err, "broken pdf")

	store := &fakeStore{}
	_, err = New(fakeExtractor{text: cvText}, &fakeParser{err: resume.ErrTextTooShort}, store, nil).
		Ingest(context.Background(), "cv.pdf", []byte("x"), resume.English)
	require.ErrorIs(t, err, resume.ErrTextTooShort)
	assert.Empty(t, store.saved)
}
