package mcp

import "math"

// Parameter decoding for JSON-shaped tool calls. Numbers arrive as float64,
// arrays as []any; these helpers normalize without panicking on bad input.

func paramString(p map[string]any, key, def string) string {
	if v, ok := p[key].(string); ok && v != "" {
		return v
	}
	return def
}

func paramBool(p map[string]any, key string, def bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return def
}

func paramInt(p map[string]any, key string, def int) int {
	switch v := p[key].(type) {
	case float64:
		if v == math.Trunc(v) {
			return int(v)
		}
	case int:
		return v
	case int64:
		return int(v)
	}
	return def
}

func paramInt64(p map[string]any, key string) (int64, bool) {
	switch v := p[key].(type) {
	case float64:
		if v == math.Trunc(v) {
			return int64(v), true
		}
	case int:
		return int64(v), true
	case int64:
		return v, true
	}
	return 0, false
}

func paramStringSlice(p map[string]any, key string) []string {
	switch v := p[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v != "" {
			return []string{v}
		}
	}
	return nil
}

func paramInt64Slice(p map[string]any, key string) []int64 {
	switch v := p[key].(type) {
	case []int64:
		return v
	case []any:
		out := make([]int64, 0, len(v))
		for _, item := range v {
			switch n := item.(type) {
			case float64:
				if n == math.Trunc(n) {
					out = append(out, int64(n))
				}
			case int:
				out = append(out, int64(n))
			case int64:
				out = append(out, n)
			}
		}
		return out
	}
	return nil
}
