package judge

import (
	"encoding/json"
	"math"
	"strings"
)

const floatTolerance = 1e-9

// CoerceValue parses stringified JSON back into its intended type, so that
// "[1,2,3]" and [1,2,3] grade as the same value
func CoerceValue(v interface{}) interface{} {
	s, ok := v.(string)
	if !ok {
		return v
	}

	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return v
	}

	first := trimmed[0]
	if first != '[' && first != '{' && first != '"' && first != '-' && first != 't' &&
		first != 'f' && first != 'n' && (first < '0' || first > '9') {
		return v
	}

	var parsed interface{}
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
		return parsed
	}
	return v
}

// Equal compares an expected test value against an actual result.
// Numbers match within a 1e-9 tolerance, boolean-like strings are
// case-insensitive, and lists ignore order only when the caller asks.
func Equal(expected, actual interface{}, orderInsensitive bool) bool {
	return equalValue(CoerceValue(expected), CoerceValue(actual), orderInsensitive)
}

func equalValue(a, b interface{}, orderInsensitive bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if af, aok := toFloat(a); aok {
		bf, bok := toFloat(b)
		return bok && math.Abs(af-bf) <= floatTolerance
	}

	switch av := a.(type) {
	case bool:
		switch bv := b.(type) {
		case bool:
			return av == bv
		case string:
			return isBoolLike(bv) && av == (strings.ToLower(bv) == "true")
		}
		return false
	case string:
		switch bv := b.(type) {
		case string:
			if isBoolLike(av) && isBoolLike(bv) {
				return strings.EqualFold(av, bv)
			}
			return av == bv
		case bool:
			return isBoolLike(av) && bv == (strings.ToLower(av) == "true")
		}
		return false
	case []interface{}:
		bv, ok := b.([]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		if orderInsensitive {
			return multisetEqual(av, bv)
		}
		for i := range av {
			if !equalValue(av[i], bv[i], orderInsensitive) {
				return false
			}
		}
		return true
	case map[string]interface{}:
		bv, ok := b.(map[string]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for key, aval := range av {
			bval, exists := bv[key]
			if !exists || !equalValue(aval, bval, orderInsensitive) {
				return false
			}
		}
		return true
	}

	return a == b
}

func multisetEqual(a, b []interface{}) bool {
	used := make([]bool, len(b))
	for _, av := range a {
		found := false
		for i, bv := range b {
			if used[i] {
				continue
			}
			if equalValue(av, bv, true) {
				used[i] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func toFloat(v interface{}) (float64, bool) {
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
	}
	return 0, false
}

func isBoolLike(s string) bool {
	lower := strings.ToLower(s)
	return lower == "true" || lower == "false"
}
