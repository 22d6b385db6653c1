package resume

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/ai"
	"github.com/spigell/cv-matcher/internal/classifier"
	"github.com/spigell/cv-matcher/internal/repair"
	"github.com/spigell/cv-matcher/internal/utils"
)

const (
	// LowConfidenceThreshold marks extractions whose average confidence deserves a warning.
	LowConfidenceThreshold = 70
	parseTemperature       = 0.1
	minTextLength          = 50
)

var (
	//go:embed prompts/parse_en.md
	promptEnglish string
	//go:embed prompts/parse_ar.md
	promptArabic string
	//go:embed prompts/system_en.txt
	systemEnglish string
	//go:embed prompts/system_ar.txt
	systemArabic string
)

// arabicKeys maps field names a model may answer with in Arabic mode to the
// canonical record keys.
var arabicKeys = map[string]string{
	"الاسم":             "name",
	"البريد_الالكتروني": "email",
	"البريد":            "email",
	"الهاتف":            "phone",
	"المهارات":          "skills",
	"الخبرة":            "experience",
	"التعليم":           "education",
	"الملخص":            "summary",
	"الثقة":             "confidence",
}

// ErrTextTooShort is returned for texts too short to be worth a model call.
var ErrTextTooShort = errors.New("resume text too short or empty")

type parsedFields struct {
	Name       string         `json:"name"`
	Email      string         `json:"email"`
	Phone      string         `json:"phone"`
	Skills     []string       `json:"skills"`
	Experience string         `json:"experience"`
	Education  string         `json:"education"`
	Summary    string         `json:"summary"`
	Confidence map[string]int `json:"confidence"`
}

// Parser extracts structured fields from CV text with a model.
type Parser struct {
	generator ai.Generator
	logger    *zap.Logger
}

func NewParser(generator ai.Generator, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{generator: generator, logger: logger}
}

// Parse sends text to the model and returns the extracted record. The record
// has no ID or source file yet; the caller assigns them before storing it.
func (p *Parser) Parse(ctx context.Context, text string, lang Language) (*Record, error) {
	text = strings.TrimSpace(text)
	if len([]rune(text)) < minTextLength {
		return nil, ErrTextTooShort
	}
	if lang == "" {
		lang = English
	}

	req := &ai.Request{
		Kind:        "parse_resume",
		System:      systemEnglish,
		Prompt:      strings.ReplaceAll(promptEnglish, "{{RESUME_TEXT}}", text),
		Temperature: parseTemperature,
	}
	if lang == Arabic {
		req.System = systemArabic
		req.Prompt = strings.ReplaceAll(promptArabic, "{{RESUME_TEXT}}", text)
	}

	raw, err := p.generator.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("parse resume: %w", err)
	}

	doc, err := repair.Parse(raw)
	if err != nil {
		return nil, err
	}

	var fields parsedFields
	if err := repair.Decode(canonicalKeys(doc), &fields); err != nil {
		return nil, err
	}

	record := &Record{
		Name:           strings.TrimSpace(fields.Name),
		Email:          strings.TrimSpace(fields.Email),
		Phone:          strings.TrimSpace(fields.Phone),
		Skills:         utils.Dedup(fields.Skills),
		Experience:     strings.TrimSpace(fields.Experience),
		Education:      strings.TrimSpace(fields.Education),
		Summary:        strings.TrimSpace(fields.Summary),
		Confidence:     clampConfidence(fields.Confidence),
		IsValidCV:      true,
		OutputLanguage: lang,
		ParsedAt:       time.Now().UTC(),
	}

	p.checkQuality(record)

	return record, nil
}

func (p *Parser) checkQuality(r *Record) {
	if avg := r.AverageConfidence(); avg >= 0 {
		p.logger.Debug("resume extraction confidence", zap.Float64("average_confidence", avg))
		if avg < LowConfidenceThreshold {
			p.logger.Warn("low confidence extraction, resume may be unclear or OCR quality poor",
				zap.Float64("average_confidence", avg),
			)
		}
	}

	if r.OutputLanguage == English && classifier.ContainsArabic(r.Name) {
		p.logger.Warn("name still contains arabic characters, transliteration incomplete",
			zap.String("name", r.Name),
		)
	}
}

func canonicalKeys(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		if _, arabic := arabicKeys[strings.TrimSpace(k)]; !arabic {
			out[k] = v
		}
	}
	for k, v := range doc {
		canonical, ok := arabicKeys[strings.TrimSpace(k)]
		if !ok {
			continue
		}
		if _, exists := out[canonical]; !exists {
			out[canonical] = v
		}
	}
	if nested, ok := out["confidence"].(map[string]any); ok {
		out["confidence"] = canonicalKeys(nested)
	}
	return out
}

func clampConfidence(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		switch {
		case v < 0:
			v = 0
		case v > 100:
			v = 100
		}
		out[k] = v
	}
	return out
}
