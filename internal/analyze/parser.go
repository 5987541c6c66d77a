// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/CarbonMon/CLARA/pkg/types"
)

// rawExcerptLimit bounds how much of a malformed response is carried in an
// error record, so one bad reply cannot bloat results or logs.
const rawExcerptLimit = 500

const (
	errNoJSONTitle   = "Error Processing Document"
	errNoJSONMessage = "Could not extract valid JSON from model response"
	errParseTitle    = "Error parsing model response"
)

// fencedPattern matches a JSON object inside a fenced code block,
// optionally tagged "json".
var fencedPattern = regexp.MustCompile("```(?:json)?\\s*(\\{[\\s\\S]*?\\})\\s*```")

// ExtractRecord turns raw model output into a Record. It never fails:
// when no parseable JSON object can be located, it returns a synthetic
// error record instead. Extraction strategy, in order:
//
//  1. a fenced code block tagged as JSON;
//  2. the first balanced brace-delimited span in the text;
//  3. the whole trimmed text, when it is itself brace-delimited;
//  4. otherwise a fixed error record.
//
// A located span that fails JSON parsing yields an error record carrying
// the failure reason and a bounded excerpt of the raw response.
func ExtractRecord(raw string) *types.Record {
	if strings.TrimSpace(raw) == "" {
		return &types.Record{}
	}

	candidate, found := extractJSON(raw)
	if !found {
		return &types.Record{
			Title: errNoJSONTitle,
			Error: errNoJSONMessage,
		}
	}

	dec := json.NewDecoder(strings.NewReader(candidate))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return &types.Record{
			Title:       errParseTitle,
			Error:       fmt.Sprintf("could not parse response as JSON: %v", err),
			RawResponse: excerpt(raw),
		}
	}
	return types.RecordFromMap(m)
}

// extractJSON locates the most plausible JSON object span in text.
func extractJSON(text string) (string, bool) {
	if m := fencedPattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), true
	}

	if span, ok := balancedBraceSpan(text); ok {
		return span, true
	}

	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		return trimmed, true
	}

	return "", false
}

// balancedBraceSpan returns the span from the first '{' to its matching
// '}', tracking brace depth and skipping braces inside JSON strings.
func balancedBraceSpan(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

func excerpt(raw string) string {
	if len(raw) <= rawExcerptLimit {
		return raw
	}
	return raw[:rawExcerptLimit] + "..."
}
