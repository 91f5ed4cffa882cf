package retailer

import (
	"strconv"
	"strings"
)

// lookup walks a decoded JSON value along a dotted path. Numeric segments
// index into arrays.
func lookup(v interface{}, path string) interface{} {
	for _, seg := range strings.Split(path, ".") {
		switch node := v.(type) {
		case map[string]interface{}:
			v = node[seg]
		case []interface{}:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil
			}
			v = node[i]
		default:
			return nil
		}
	}
	return v
}

// pickString returns the first non-empty string found at any of the paths
func pickString(v interface{}, paths ...string) string {
	for _, p := range paths {
		if s, ok := lookup(v, p).(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// pickFloat returns the first positive number found at any of the paths.
// Numeric strings such as "$3.49" are accepted.
func pickFloat(v interface{}, paths ...string) float64 {
	for _, p := range paths {
		switch val := lookup(v, p).(type) {
		case float64:
			if val > 0 {
				return val
			}
		case string:
			if f, ok := ParsePrice(val); ok {
				return f
			}
		}
	}
	return 0
}

// pickStrings returns the first non-empty list of strings found at any of the paths
func pickStrings(v interface{}, paths ...string) []string {
	for _, p := range paths {
		list, ok := lookup(v, p).([]interface{})
		if !ok {
			continue
		}
		var out []string
		for _, item := range list {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}
