package repair

import (
	"fmt"
	"strings"
)

// SnippetLength bounds how much of an offending response a ParseError keeps.
const SnippetLength = 500

// ParseError reports a model response that could not be read as a JSON object.
type ParseError struct {
	Snippet string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse model response: %v (response starts with %q)", e.Cause, e.Snippet)
	}
	return fmt.Sprintf("parse model response (response starts with %q)", e.Snippet)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

func newParseError(raw string, cause error) *ParseError {
	return &ParseError{Snippet: snippet(raw), Cause: cause}
}

func snippet(raw string) string {
	runes := []rune(raw)
	if len(runes) > SnippetLength {
		runes = runes[:SnippetLength]
	}
	return string(runes)
}

// FieldError describes one schema violation.
type FieldError struct {
	Field   string
	Type    string
	Message string
}

// ValidationError lists the schema violations of a decoded response.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return "response does not match schema: " + strings.Join(parts, "; ")
}

// Missing returns the names of required fields absent from the response.
func (e *ValidationError) Missing() []string {
	var missing []string
	for _, fe := range e.Errors {
		if fe.Type == "required" {
			missing = append(missing, fe.Field)
		}
	}
	return missing
}
