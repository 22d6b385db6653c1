package resume

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/cv-matcher/internal/ai"
	"github.com/spigell/cv-matcher/internal/repair"
)

type stubGenerator struct {
	response string
	err      error
	last     *ai.Request
}

func (s *stubGenerator) Generate(_ context.Context, req *ai.Request) (string, error) {
	s.last = req
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubGenerator) Model() string { return "stub-model" }

var sampleText = strings.Repeat("Senior Go developer with experience in distributed systems. ", 3)

func TestParseEnglish(t *testing.T) {
	stub := &stubGenerator{response: "```json\n" + `{
		"name": "Ahmed Mohammed",
		"email": " ahmed@example.com ",
		"phone": "+962 7 1234 5678",
		"skills": ["Go", " ", "Kubernetes"],
		"experience": "5 years backend",
		"education": "BSc Computer Science",
		"summary": "Backend engineer.",
		"confidence": {"name": 100, "email": 100, "phone": 90, "skills": 95, "experience": 120, "education": -5}
	}` + "\n```"}

	record, err := NewParser(stub, zap.NewNop()).Parse(context.Background(), sampleText, English)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if record.Name != "Ahmed Mohammed" || record.Email != "ahmed@example.com" {
		t.Fatalf("unexpected contact fields: %+v", record)
	}
	if len(record.Skills) != 2 || record.Skills[1] != "Kubernetes" {
		t.Fatalf("expected blank skills to be dropped, got %v", record.Skills)
	}
	if record.Confidence["experience"] != 100 || record.Confidence["education"] != 0 {
		t.Fatalf("expected confidence to be clamped, got %v", record.Confidence)
	}
	if !record.IsValidCV || record.OutputLanguage != English {
		t.Fatalf("unexpected flags: %+v", record)
	}
	if stub.last.Temperature != parseTemperature {
		t.Fatalf("unexpected temperature %v", stub.last.Temperature)
	}
	if !strings.Contains(stub.last.Prompt, sampleText[:40]) {
		t.Fatalf("expected resume text in prompt")
	}
	if !strings.Contains(stub.last.Prompt, "Output language: ENGLISH") {
		t.Fatalf("expected english prompt")
	}
}

func TestParseArabicKeys(t *testing.T) {
	stub := &stubGenerator{response: `{
		"الاسم": "أحمد محمد",
		"المهارات": ["بايثون", "Flutter"],
		"الخبرة": "خمس سنوات",
		"name": "Ahmed",
		"الثقة": {"الاسم": 90, "المهارات": 80}
	}`}

	record, err := NewParser(stub, zap.NewNop()).Parse(context.Background(), sampleText, Arabic)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if record.Name != "Ahmed" {
		t.Fatalf("expected canonical key to win, got %q", record.Name)
	}
	if len(record.Skills) != 2 || record.Experience != "خمس سنوات" {
		t.Fatalf("expected arabic keys to be mapped, got %+v", record)
	}
	if record.Confidence["name"] != 90 || record.Confidence["skills"] != 80 {
		t.Fatalf("expected nested confidence keys to be mapped, got %v", record.Confidence)
	}
	if record.OutputLanguage != Arabic || stub.last.System != systemArabic {
		t.Fatalf("expected arabic mode")
	}
}

func TestParseWarnsOnLowConfidenceAndArabicName(t *testing.T) {
	core, observed := observer.New(zapcore.WarnLevel)
	stub := &stubGenerator{response: `{"name": "أحمد", "confidence": {"name": 50, "skills": 60}}`}

	if _, err := NewParser(stub, zap.New(core)).Parse(context.Background(), sampleText, English); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if observed.FilterMessageSnippet("low confidence").Len() != 1 {
		t.Fatalf("expected low confidence warning, got %v", observed.All())
	}
	if observed.FilterMessageSnippet("transliteration incomplete").Len() != 1 {
		t.Fatalf("expected transliteration warning, got %v", observed.All())
	}
}

func TestParseErrors(t *testing.T) {
	parser := NewParser(&stubGenerator{response: "{}"}, nil)
	if _, err := parser.Parse(context.Background(), "too short", English); !errors.Is(err, ErrTextTooShort) {
		t.Fatalf("expected ErrTextTooShort, got %v", err)
	}

	boom := errors.New("boom")
	parser = NewParser(&stubGenerator{err: boom}, nil)
	if _, err := parser.Parse(context.Background(), sampleText, English); !errors.Is(err, boom) {
		t.Fatalf("expected generator error, got %v", err)
	}

	parser = NewParser(&stubGenerator{response: "I cannot help with that"}, nil)
	_, err := parser.Parse(context.Background(), sampleText, English)
	var perr *repair.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestParseLanguage(t *testing.T) {
	t.Parallel()

	for input, want := range map[string]Language{"": English, "EN": English, " ar ": Arabic} {
		got, err := ParseLanguage(input)
		if err != nil || got != want {
			t.Fatalf("ParseLanguage(%q) = %q, %v", input, got, err)
		}
	}
	if _, err := ParseLanguage("fr"); err == nil {
		t.Fatalf("expected error for unsupported language")
	}
}

func TestRecordHelpers(t *testing.T) {
	t.Parallel()

	r := &Record{ID: "id-1", SourceFile: "cv.pdf"}
	if r.AverageConfidence() != -1 {
		t.Fatalf("expected -1 without confidence")
	}
	if r.DisplayName() != "cv.pdf" {
		t.Fatalf("unexpected display name %q", r.DisplayName())
	}

	r.Confidence = map[string]int{"a": 60, "b": 80}
	if r.AverageConfidence() != 70 {
		t.Fatalf("unexpected average %v", r.AverageConfidence())
	}
}
