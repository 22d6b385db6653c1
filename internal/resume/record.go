// Package resume turns CV text into structured candidate records.
package resume

import (
	"fmt"
	"strings"
	"time"
)

// Language selects the language of the extracted fields.
type Language string

const (
	English Language = "en"
	Arabic  Language = "ar"
)

// ParseLanguage maps user input to a Language. An empty value means English.
func ParseLanguage(s string) (Language, error) {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case "", English:
		return English, nil
	case Arabic:
		return Arabic, nil
	default:
		return "", fmt.Errorf("unsupported output language %q (use en or ar)", s)
	}
}

// Record is the structured data extracted from one CV. Records are written
// once and never changed afterwards.
type Record struct {
	ID               string         `json:"id"`
	SourceFile       string         `json:"source_file"`
	Name             string         `json:"name"`
	Email            string         `json:"email"`
	Phone            string         `json:"phone"`
	Skills           []string       `json:"skills"`
	Experience       string         `json:"experience"`
	Education        string         `json:"education"`
	Summary          string         `json:"summary"`
	Confidence       map[string]int `json:"confidence"`
	IsValidCV        bool           `json:"is_valid_cv"`
	ValidationReason string         `json:"validation_reason,omitempty"`
	OutputLanguage   Language       `json:"output_language"`
	ParsedAt         time.Time      `json:"parsed_at"`
}

// AverageConfidence returns the mean of the per-field confidence values, or
// -1 when none were reported.
func (r *Record) AverageConfidence() float64 {
	if len(r.Confidence) == 0 {
		return -1
	}
	sum := 0
	for _, v := range r.Confidence {
		sum += v
	}
	return float64(sum) / float64(len(r.Confidence))
}

// DisplayName is the candidate name, falling back to the source file name.
func (r *Record) DisplayName() string {
	if name := strings.TrimSpace(r.Name); name != "" {
		return name
	}
	if r.SourceFile != "" {
		return r.SourceFile
	}
	return r.ID
}
