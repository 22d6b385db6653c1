// Package repair turns free-form model answers into JSON documents.
package repair

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
)

const fence = "```"

// Parse strips code-fence markup from raw and decodes the JSON object inside it.
func Parse(raw string) (map[string]any, error) {
	cleaned := StripFence(raw)
	if cleaned == "" {
		return nil, newParseError(raw, errors.New("empty response"))
	}

	if !strings.HasPrefix(cleaned, "{") {
		start := strings.Index(cleaned, "{")
		end := strings.LastIndex(cleaned, "}")
		if start == -1 || end <= start {
			return nil, newParseError(raw, errors.New("no json object found"))
		}
		cleaned = cleaned[start : end+1]
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return nil, newParseError(raw, err)
	}
	if doc == nil {
		return nil, newParseError(raw, errors.New("response is null"))
	}

	return doc, nil
}

// StripFence removes a leading ``` delimiter with its optional language tag and
// the trailing ``` delimiter. Text without a leading fence is only trimmed.
func StripFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, fence) {
		return text
	}

	text = strings.TrimPrefix(text, fence)
	if idx := strings.IndexAny(text, "\n{["); idx >= 0 {
		tag := strings.TrimSpace(text[:idx])
		if !strings.ContainsAny(tag, " \t{}[]\"") {
			text = text[idx:]
		}
	} else if !strings.ContainsAny(text, "{[") {
		return ""
	}

	text = strings.TrimSpace(text)
	if idx := strings.LastIndex(text, fence); idx >= 0 {
		text = text[:idx]
	}

	return strings.TrimSpace(strings.Trim(text, "`"))
}

// Decode copies doc into out, matching fields by their json tags. Numeric
// strings are accepted for numbers and fractional numbers are rounded when the
// target is an integer.
func Decode(doc map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       roundFloatHook,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}

	if err := decoder.Decode(doc); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func roundFloatHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.Float64 {
		return data, nil
	}
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return math.Round(data.(float64)), nil
	default:
		return data, nil
	}
}
