// Package value implements the uniform dynamically-typed value used
// throughout stepflow: null | bool | number | string | list | map,
// representable as JSON. Keeping a single shared representation (rather
// than generics) is what lets the expression evaluator, matrix expander,
// and step registry all speak the same language without type parameters,
// per spec.md §9 "Value model".
package value

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Value is a JSON-compatible dynamic value: nil, bool, float64, string,
// []any, or map[string]any.
type Value = any

// Equal reports structural equality, the same notion used by the
// expression evaluator's == and != operators.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case float64, int:
		af, aok := toFloat(a)
		bf, bok := toFloat(b)
		return aok && bok && af == bf
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bvv, ok := bv[k]
			if !ok || !Equal(v, bvv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func toFloat(v Value) (float64, bool) {
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
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// ToFloat coerces a value to float64 for the ordering comparisons
// (>, <, >=, <=); the second return is false when coercion fails, in
// which case spec.md says the comparison must yield false rather than
// error.
func ToFloat(v Value) (float64, bool) { return toFloat(v) }

// Contains implements the `contains` operator's asymmetric semantics
// (spec.md §4.B): object superset, array superset/membership, and
// substring containment.
func Contains(haystack, needle Value) bool {
	switch h := haystack.(type) {
	case string:
		n, ok := needle.(string)
		return ok && containsSubstring(h, n)
	case []any:
		if needleArr, ok := needle.([]any); ok {
			// array ⊇ array: every needle element must be contained in h.
			for _, n := range needleArr {
				if !containsAny(h, n) {
					return false
				}
			}
			return true
		}
		// array ⊇ scalar/object: any element equals or recursively contains needle.
		return containsAny(h, needle)
	case map[string]any:
		n, ok := needle.(map[string]any)
		if !ok {
			return false
		}
		for k, nv := range n {
			hv, ok := h[k]
			if !ok {
				return false
			}
			if !Equal(hv, nv) && !containsRecursive(hv, nv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func containsAny(haystack []any, needle Value) bool {
	for _, el := range haystack {
		if Equal(el, needle) || containsRecursive(el, needle) {
			return true
		}
	}
	return false
}

func containsRecursive(haystack, needle Value) bool {
	switch haystack.(type) {
	case map[string]any, []any:
		return Contains(haystack, needle)
	default:
		return false
	}
}

func containsSubstring(haystack, needle string) bool {
	return len(needle) == 0 || indexOf(haystack, needle) >= 0
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

// FormatScalar renders v using the canonical interpolation form from
// spec.md §4.B: numbers in decimal form, booleans as true/false, null as
// "null", and objects/arrays as JSON.
func FormatScalar(v Value) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case bool:
		if t {
			return "true"
		}
		return "false"
	case string:
		return t
	case float64:
		return formatFloat(t)
	case int:
		return strconv.Itoa(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}

func formatFloat(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// ToMap converts a struct-like result into a map[string]any by round
// tripping through JSON, the same JSON-compatible-serialization
// adapter contract spec.md §4.E describes for IntoOutputs.
func ToMap(v any) (map[string]any, error) {
	if v == nil {
		return map[string]any{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// SortedKeys returns m's keys in ascending order, for callers that need
// a deterministic iteration order over a value map.
func SortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
