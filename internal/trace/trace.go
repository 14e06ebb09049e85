// Package trace models the records returned by a Kudzu hologram and derives
// the two values the compaction pipeline needs from each one: a readable
// content string and a recency score.
package trace

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxFallbackLen caps stringified payloads that had no recognised content field.
const MaxFallbackLen = 200

// contentFields are probed in order on mapping payloads.
var contentFields = []string{"content", "summary", "key_events", "event"}

// Trace is one stored memory record. Hint and Timestamp are left as decoded
// JSON because the store does not guarantee their shape.
type Trace struct {
	ID        string `json:"id,omitempty"`
	Purpose   string `json:"purpose"`
	Hint      any    `json:"reconstruction_hint,omitempty"`
	Timestamp any    `json:"timestamp,omitempty"`
}

// Payload returns the hint as a mapping, or nil when it is not one.
func (t Trace) Payload() map[string]any {
	m, _ := t.Hint.(map[string]any)
	return m
}

// Content extracts the human-readable text of a trace.
//
// Mapping payloads are probed for content, summary, key_events and event in
// that order; the first non-empty string wins and is returned trimmed. Any
// other payload is stringified and capped at MaxFallbackLen characters.
func Content(t Trace) string {
	m, ok := t.Hint.(map[string]any)
	if !ok {
		if !Truthy(t.Hint) {
			return ""
		}
		return truncate(stringify(t.Hint), MaxFallbackLen)
	}

	for _, field := range contentFields {
		if s, ok := m[field].(string); ok && s != "" {
			return strings.TrimSpace(s)
		}
	}

	return truncate(stringify(m), MaxFallbackLen)
}

// Usable reports whether extracted content should enter the pipeline.
func Usable(content string) bool {
	return content != "" && content != "{}"
}

// Recency reduces a vector-clock timestamp to a single score: the largest
// numeric counter across all origins. Anything without numbers scores 0.
func Recency(ts any) int64 {
	m, ok := ts.(map[string]any)
	if !ok {
		return 0
	}

	var best int64
	found := false
	for _, v := range m {
		n, ok := number(v)
		if !ok {
			continue
		}
		if !found || n > best {
			best = n
			found = true
		}
	}
	return best
}

// Truthy mirrors the loose emptiness check the store's producers rely on:
// nil, zero numbers, empty strings and empty collections are all false.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case json.Number:
		f, err := x.Float64()
		return err != nil || f != 0
	case float64:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	case map[string]any:
		return len(x) > 0
	case []any:
		return len(x) > 0
	default:
		return true
	}
}

func number(v any) (int64, bool) {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, true
		}
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return int64(f), true
	case float64:
		return int64(x), true
	case float32:
		return int64(x), true
	case int:
		return int64(x), true
	case int64:
		return x, true
	case int32:
		return int64(x), true
	case bool:
		// Producers written in Python count True as 1.
		if x {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
