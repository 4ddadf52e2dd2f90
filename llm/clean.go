package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	fencePattern = regexp.MustCompile("(?s)```(?:json|javascript)?\\s*\\n?(.*?)\\n?```")
	jsonPattern  = regexp.MustCompile(`(?s)(\{.*\}|\[.*\])`)
)

// StripFences removes markdown code fences from a model response, keeping
// the fenced content in place, and trims surrounding whitespace.
func StripFences(text string) string {
	return strings.TrimSpace(fencePattern.ReplaceAllString(text, "$1"))
}

// ExtractJSON digs the JSON value out of a noisy model response: fences are
// stripped first, and if the result still does not parse, the widest
// brace- or bracket-delimited span is tried. ok is false when no JSON can
// be recovered; callers then fall back to the raw text.
func ExtractJSON(text string) (json.RawMessage, bool) {
	if text == "" {
		return nil, false
	}

	if raw, ok := parseJSON(StripFences(text)); ok {
		return raw, true
	}

	// The model may have wrapped the JSON in prose. Search the original
	// text so fence markers cannot split the span.
	if match := jsonPattern.FindStringSubmatch(text); match != nil {
		if raw, ok := parseJSON(match[1]); ok {
			return raw, true
		}
	}

	return nil, false
}

func parseJSON(text string) (json.RawMessage, bool) {
	var probe any
	if err := json.Unmarshal([]byte(text), &probe); err != nil {
		return nil, false
	}
	return json.RawMessage(text), true
}
