package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTranscriber struct {
	text  string
	err   error
	calls int
}

func (f *fakeTranscriber) Transcribe(_ context.Context, data []byte, mimeType string) (string, error) {
	f.calls++
	return f.text, f.err
}

func buildDocx(t *testing.T, body string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			body + `</w:body></w:document>`,
	}
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestTextPlain(t *testing.T) {
	t.Parallel()

	text, err := New(nil, nil).Text(context.Background(), "cv.txt", []byte("  Jane Doe\nGo developer  \n"))
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nGo developer", text)
}

func TestTextDocx(t *testing.T) {
	t.Parallel()

	data := buildDocx(t, `<w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p><w:p><w:r><w:t>Skills: Go &amp; SQL</w:t></w:r></w:p>`)

	text, err := New(nil, nil).Text(context.Background(), "cv.docx", data)
	require.NoError(t, err)
	assert.Contains(t, text, "Jane Doe")
	assert.Contains(t, text, "Skills: Go & SQL")
	assert.NotContains(t, text, "<w:")
}

func TestTextUnreadablePDFUsesTranscriber(t *testing.T) {
	t.Parallel()

	ocr := strings.Repeat("Experienced engineer with Go and Kubernetes. ", 5)
	transcriber := &fakeTranscriber{text: ocr}

	text, err := New(transcriber, nil).Text(context.Background(), "scan.pdf", []byte("%PDF-1.4 not really a pdf"))
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSpace(ocr), text)
	assert.Equal(t, 1, transcriber.calls)
}

func TestTextUnreadablePDFWithoutTranscriber(t *testing.T) {
	t.Parallel()

	_, err := New(nil, nil).Text(context.Background(), "scan.pdf", []byte("%PDF-1.4 not really a pdf"))
	require.Error(t, err)

	transcriber := &fakeTranscriber{err: errors.New("quota")}
	_, err = New(transcriber, nil).Text(context.Background(), "scan.pdf", []byte("%PDF-1.4 not really a pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota")
}

func TestTextRejectsInput(t *testing.T) {
	t.Parallel()

	_, err := New(nil, nil).Text(context.Background(), "cv.txt", nil)
	require.ErrorIs(t, err, ErrEmpty)

	_, err = New(nil, nil).Text(context.Background(), "photo.png", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
	require.ErrorIs(t, err, ErrUnsupported)

	_, err = New(nil, nil).Text(context.Background(), "cv.txt", []byte{0xff, 0xfe, 0xfd})
	require.Error(t, err)
}

func TestDetectType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, MimePDF, DetectType("CV.PDF", nil))
	assert.Equal(t, MimeDOCX, DetectType("cv.docx", nil))
	assert.Equal(t, MimeText, DetectType("notes.md", nil))
	assert.Equal(t, MimePDF, DetectType("upload", []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")))
	assert.Equal(t, MimeText, DetectType("upload", []byte("plain words only")))
}

func TestStripXML(t *testing.T) {
	t.Parallel()

	got := stripXML(`<w:p><w:r><w:t>Name</w:t><w:tab/><w:t>Jane</w:t></w:r></w:p><w:p></w:p><w:p><w:r><w:t>a &lt; b</w:t></w:r></w:p>`)
	assert.Equal(t, "Name Jane\na < b", got)
}
