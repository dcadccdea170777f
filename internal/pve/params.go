// ABOUTME: Typed accessors for action parameters and decoded pvesh values.
// ABOUTME: Parameters arrive as JSON-decoded maps, so numbers may be float64 or string.

package pve

import (
	"fmt"
	"strconv"
)

// intParam reads a parameter as an integer, accepting JSON numbers, Go ints,
// and digit strings. Returns 0, false when absent or unparseable.
func intParam(params map[string]any, key string) (int, bool) {
	v, ok := params[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, false
		}
		return i, true
	}
	return 0, false
}

// intParamOr reads an integer parameter with a default.
func intParamOr(params map[string]any, key string, def int) int {
	if n, ok := intParam(params, key); ok {
		return n
	}
	return def
}

// strParam reads a parameter as a string, stringifying numbers.
// Returns "", false when absent or empty.
func strParam(params map[string]any, key string) (string, bool) {
	v, ok := params[key]
	if !ok || v == nil {
		return "", false
	}
	switch s := v.(type) {
	case string:
		if s == "" {
			return "", false
		}
		return s, true
	case float64:
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10), true
		}
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case int:
		return strconv.Itoa(s), true
	case bool:
		return strconv.FormatBool(s), true
	}
	return fmt.Sprintf("%v", v), true
}

// strParamOr reads a string parameter with a default.
func strParamOr(params map[string]any, key, def string) string {
	if s, ok := strParam(params, key); ok {
		return s
	}
	return def
}

// boolParam reads a parameter as a boolean, accepting bools, numbers, and
// the strings "true"/"1".
func boolParam(params map[string]any, key string) bool {
	v, ok := params[key]
	if !ok || v == nil {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case float64:
		return b != 0
	case int:
		return b != 0
	case string:
		return b == "true" || b == "1"
	}
	return false
}

// asMap coerces a decoded pvesh value to an object.
func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// asSlice coerces a decoded pvesh value to an array.
func asSlice(v any) ([]any, bool) {
	s, ok := v.([]any)
	return s, ok
}

// num reads a numeric field from a decoded object.
func num(m map[string]any, key string) float64 {
	switch n := m[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	}
	return 0
}

// str reads a string field from a decoded object.
func str(m map[string]any, key string) string {
	switch s := m[key].(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return ""
}
