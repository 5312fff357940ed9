package tools

import (
	"fmt"
	"strconv"
	"strings"
)

// trimString trims a string field; non-strings are coerced with fmt.Sprint.
func trimString(m map[string]any, key string) {
	v, ok := m[key]
	if !ok {
		return
	}
	switch vv := v.(type) {
	case string:
		m[key] = strings.TrimSpace(vv)
	case nil:
		delete(m, key)
	default:
		m[key] = strings.TrimSpace(fmt.Sprint(v))
	}
	if m[key] == "" {
		delete(m, key)
	}
}

// joinList accepts either a string or a JSON array and stores a ", " joined string.
func joinList(m map[string]any, key string) {
	v, ok := m[key]
	if !ok {
		return
	}
	if arr, isArr := v.([]any); isArr {
		parts := make([]string, 0, len(arr))
		for _, a := range arr {
			if s := strings.TrimSpace(fmt.Sprint(a)); s != "" {
				parts = append(parts, s)
			}
		}
		m[key] = strings.Join(parts, ", ")
	}
	trimString(m, key)
}

// clampNumber keeps a numeric field inside [lo, hi]; unparsable values are dropped.
func clampNumber(m map[string]any, key string, lo, hi int) {
	v, ok := m[key]
	if !ok {
		return
	}
	switch vv := v.(type) {
	case float64:
		// JSON numbers decode as float64
		m[key] = clampInt(int(vv), lo, hi)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(vv)); err == nil {
			m[key] = clampInt(n, lo, hi)
		} else {
			delete(m, key)
		}
	default:
		delete(m, key)
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
