package engine

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Tagged optionals for normalized context fields. Absence is explicit and
// distinct from the zero value, so rules can tell "zero dollars received"
// from "amount unknown".

// FloatVal is a numeric context field that may be absent.
type FloatVal struct {
	Value   float64
	Present bool
}

// TimeVal is a timestamp context field that may be absent.
type TimeVal struct {
	Value   time.Time
	Present bool
}

// StringVal is a text context field that may be absent.
type StringVal struct {
	Value   string
	Present bool
}

// lookup returns the first value present under any of the given keys.
// Upstream payloads mix snake_case and camelCase, so normalizers probe both.
func lookup(raw map[string]any, keys ...string) (any, bool) {
	for _, key := range keys {
		if v, ok := raw[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func floatField(raw map[string]any, keys ...string) FloatVal {
	v, ok := lookup(raw, keys...)
	if !ok {
		return FloatVal{}
	}
	f, ok := coerceFloat(v)
	if !ok {
		return FloatVal{}
	}
	return FloatVal{Value: f, Present: true}
}

func timeField(raw map[string]any, keys ...string) TimeVal {
	v, ok := lookup(raw, keys...)
	if !ok {
		return TimeVal{}
	}
	t, ok := coerceTime(v)
	if !ok {
		return TimeVal{}
	}
	return TimeVal{Value: t, Present: true}
}

func stringField(raw map[string]any, keys ...string) StringVal {
	v, ok := lookup(raw, keys...)
	if !ok {
		return StringVal{}
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return StringVal{}
	}
	return StringVal{Value: s, Present: true}
}

func boolField(raw map[string]any, keys ...string) bool {
	v, ok := lookup(raw, keys...)
	if !ok {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return strings.EqualFold(strings.TrimSpace(b), "true")
	case float64:
		return b != 0
	case int:
		return b != 0
	}
	return false
}

func intFieldDefault(raw map[string]any, def int, keys ...string) int {
	fv := floatField(raw, keys...)
	if !fv.Present {
		return def
	}
	return int(fv.Value)
}

// coerceFloat accepts numbers and numeric-looking strings. Anything else
// yields absent; normalization never raises.
func coerceFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(n)
		s = strings.TrimPrefix(s, "$")
		s = strings.ReplaceAll(s, ",", "")
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

// timeLayouts are tried in order for string timestamps.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// coerceTime accepts time values, recognized string layouts, and epoch
// milliseconds. Unparseable values yield absent rather than an error.
func coerceTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true
			}
		}
		return time.Time{}, false
	case float64:
		return time.UnixMilli(int64(t)).UTC(), true
	case int64:
		return time.UnixMilli(t).UTC(), true
	case json.Number:
		ms, err := t.Int64()
		if err != nil {
			return time.Time{}, false
		}
		return time.UnixMilli(ms).UTC(), true
	}
	return time.Time{}, false
}

// containsFold reports whether s contains substr, case-insensitively.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
