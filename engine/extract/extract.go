// Package extract locates and repairs the JSON object inside a model response.
// Model output is untrusted, possibly-malformed text, never structurally
// guaranteed JSON: Parse is the best-effort tier and the deterministic fallback
// record is the second. Extract never fails.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/medsift/adr-engine/engine/domain"
	"github.com/medsift/adr-engine/pkg/fn"
)

// ErrNoJSON reports a response with no locatable JSON object.
var ErrNoJSON = errors.New("extract: no JSON object in response")

// Parse slices the substring between the first '{' and the last '}' and
// decodes it strictly. The Unparsable outcome is an explicit error result so
// the fallback path stays a first-class, testable branch.
func Parse(raw string) fn.Result[domain.Record] {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start == -1 || end == -1 || end < start {
		return fn.Err[domain.Record](ErrNoJSON)
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return fn.Err[domain.Record](fmt.Errorf("extract: decode: %w", err))
	}

	rec := make(domain.Record, len(parsed))
	for k, v := range parsed {
		rec[k] = coerce(v)
	}
	return fn.Ok(rec)
}

// Extract turns a raw model response into a complete record, reporting
// whether the fallback path produced it. On parse success it fills absent
// required fields with documented defaults, preserving any extra fields the
// model emitted. On parse failure it synthesizes the full fallback record
// from the source text. The record and the fallback signal come from the same
// parse.
func Extract(raw, originalText, normalizedText string) (domain.Record, bool) {
	result := Parse(raw)
	if result.IsErr() {
		return domain.Fallback(originalText, normalizedText), true
	}
	rec, _ := result.Unwrap()
	rec.FillDefaults(originalText, normalizedText)
	return rec, false
}

// coerce renders a decoded JSON value as a string field. String values pass
// through unchanged; everything else re-serializes compactly.
func coerce(v any) string {
	switch tv := v.(type) {
	case string:
		return tv
	case nil:
		return ""
	default:
		b, err := json.Marshal(tv)
		if err != nil {
			return fmt.Sprint(tv)
		}
		return string(b)
	}
}
