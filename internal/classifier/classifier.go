// Package classifier decides whether extracted document text looks like a CV.
package classifier

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MinLength is the minimum number of characters a CV must contain.
	MinLength = 100
	// MinKeywords is the number of keyword hits required to accept a document.
	MinKeywords = 3
)

// ErrDocumentRejected is returned by callers that refuse a document after classification.
var ErrDocumentRejected = errors.New("document rejected: not a CV")

// Result describes the classification of one document.
type Result struct {
	Valid bool
	// LowConfidence is set when an Arabic document was accepted below the keyword threshold.
	LowConfidence bool
	Reason        string
	EnglishHits   int
	ArabicHits    int
}

// Total is the number of keyword hits in both languages.
func (r Result) Total() int {
	return r.EnglishHits + r.ArabicHits
}

// Classifier holds normalized keyword sets.
type Classifier struct {
	english []string
	arabic  []string
}

// New returns a classifier using the built-in English and Arabic keyword lists.
func New() *Classifier {
	return NewWithKeywords(englishKeywords, arabicKeywords)
}

// NewWithKeywords returns a classifier with custom keyword lists.
func NewWithKeywords(english, arabic []string) *Classifier {
	c := &Classifier{
		english: make([]string, 0, len(english)),
		arabic:  make([]string, 0, len(arabic)),
	}
	for _, kw := range english {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			c.english = append(c.english, kw)
		}
	}
	for _, kw := range arabic {
		if kw = NormalizeArabic(kw); kw != "" {
			c.arabic = append(c.arabic, kw)
		}
	}
	return c
}

var defaultClassifier = New()

// IsValidDocument reports whether text looks like a CV, with a human readable reason.
func IsValidDocument(text string) (bool, string) {
	r := defaultClassifier.Classify(text)
	return r.Valid, r.Reason
}

// Classify scores text against both keyword sets.
func (c *Classifier) Classify(text string) Result {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < MinLength {
		return Result{Reason: fmt.Sprintf("Document too short (less than %d characters)", MinLength)}
	}

	lower := strings.ToLower(trimmed)
	normalized := NormalizeArabic(trimmed)

	var r Result
	for _, kw := range c.english {
		if strings.Contains(lower, kw) {
			r.EnglishHits++
		}
	}
	for _, kw := range c.arabic {
		if strings.Contains(normalized, kw) {
			r.ArabicHits++
		}
	}

	total := r.Total()
	switch {
	case total >= MinKeywords && r.ArabicHits > 0:
		r.Valid = true
		r.Reason = fmt.Sprintf("Valid Arabic CV detected (%d Arabic keywords, %d English keywords)", r.ArabicHits, r.EnglishHits)
	case total >= MinKeywords:
		r.Valid = true
		r.Reason = fmt.Sprintf("Valid CV detected (%d keywords found)", total)
	case ContainsArabic(trimmed) && r.ArabicHits > 0:
		r.Valid = true
		r.LowConfidence = true
		r.Reason = fmt.Sprintf("Arabic CV detected with %d keywords (accepted with warning)", r.ArabicHits)
	default:
		r.Reason = fmt.Sprintf("Does not appear to be a CV (only %d CV keywords found). "+
			"Please upload a document with sections like Skills, Experience, Education.", total)
	}

	return r
}

// ContainsArabic reports whether s has any rune from the Arabic block U+0600–U+06FF.
func ContainsArabic(s string) bool {
	for _, r := range s {
		if isArabic(r) {
			return true
		}
	}
	return false
}

func isArabic(r rune) bool {
	return r >= 0x0600 && r <= 0x06FF
}

func isArabicDiacritic(r rune) bool {
	return (r >= 0x064B && r <= 0x065F) || r == 0x0670
}

// NormalizeArabic strips Arabic diacritics and collapses whitespace runs into
// single spaces.
func NormalizeArabic(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	space := false
	for _, r := range s {
		if isArabicDiacritic(r) {
			continue
		}
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}

	return b.String()
}
