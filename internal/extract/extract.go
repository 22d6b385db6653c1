// Package extract pulls plain text out of uploaded documents.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/ai"
)

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeText = "text/plain"

	// MinTextLength is the amount of text below which a PDF is treated as
	// scanned and sent to the transcriber.
	MinTextLength = 100
)

var (
	ErrUnsupported = errors.New("unsupported file type")
	ErrEmpty       = errors.New("document is empty")

	xmlTag       = regexp.MustCompile(`<[^>]+>`)
	paragraphEnd = regexp.MustCompile(`</w:p>|<w:br/>`)
)

// Extractor turns PDF, DOCX and text files into plain text.
type Extractor struct {
	transcriber ai.Transcriber
	logger      *zap.Logger
}

// New returns an Extractor. transcriber may be nil, which disables the OCR
// fallback for scanned PDFs.
func New(transcriber ai.Transcriber, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{transcriber: transcriber, logger: logger}
}

// DetectType resolves the MIME type of a document from its name, falling back
// to content sniffing.
func DetectType(filename string, data []byte) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return MimePDF
	case ".docx":
		return MimeDOCX
	case ".txt", ".md":
		return MimeText
	}

	detected := mimetype.Detect(data)
	switch {
	case detected.Is(MimePDF):
		return MimePDF
	case detected.Is(MimeDOCX):
		return MimeDOCX
	case strings.HasPrefix(detected.String(), "text/plain"):
		return MimeText
	}
	return detected.String()
}

// Text extracts the text of the document called filename.
func (e *Extractor) Text(ctx context.Context, filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmpty
	}

	mime := DetectType(filename, data)
	log := e.logger.With(zap.String("file", filename), zap.String("mime", mime))

	var (
		text string
		err  error
	)
	switch mime {
	case MimeText:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%s: text is not valid UTF-8", filename)
		}
		text = string(data)
	case MimePDF:
		text, err = pdfText(data)
		if err != nil {
			log.Warn("pdf text extraction failed", zap.Error(err))
		}
		if utf8.RuneCountInString(strings.TrimSpace(text)) < MinTextLength {
			text, err = e.transcribe(ctx, log, data, text, err)
		}
	case MimeDOCX:
		text, err = docxText(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, mime)
	}
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	log.Debug("extracted text", zap.Int("chars", utf8.RuneCountInString(text)))
	return text, nil
}

func (e *Extractor) transcribe(ctx context.Context, log *zap.Logger, data []byte, text string, extractErr error) (string, error) {
	if e.transcriber == nil {
		if extractErr != nil {
			return "", extractErr
		}
		return text, nil
	}

	log.Info("little text in pdf, using ocr fallback", zap.Int("chars", utf8.RuneCountInString(strings.TrimSpace(text))))
	ocr, err := e.transcriber.Transcribe(ctx, data, MimePDF)
	if err != nil {
		log.Warn("ocr fallback failed", zap.Error(err))
		if extractErr != nil {
			return "", fmt.Errorf("%w (ocr: %v)", extractErr, err)
		}
		return text, nil
	}

	if utf8.RuneCountInString(strings.TrimSpace(ocr)) > utf8.RuneCountInString(strings.TrimSpace(text)) {
		return ocr, nil
	}
	return text, nil
}

func pdfText(data []byte) (text string, err error) {
	// The pdf reader panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("failed to read pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}

	var builder strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		builder.WriteString(content)
		builder.WriteString("\n")
	}
	return builder.String(), nil
}

func docxText(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	return stripXML(doc.Editable().GetContent()), nil
}

// stripXML turns WordprocessingML into text, one line per paragraph.
func stripXML(content string) string {
	content = paragraphEnd.ReplaceAllString(content, "\n")
	content = strings.ReplaceAll(content, "<w:tab/>", " ")
	content = xmlTag.ReplaceAllString(content, "")
	replacer := strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'")
	content = replacer.Replace(content)

	lines := strings.Split(content, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
