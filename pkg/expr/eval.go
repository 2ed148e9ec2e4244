package expr

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/stepflow/stepflow/pkg/errs"
	"github.com/stepflow/stepflow/pkg/value"
)

// operatorPriority is the exact scan order spec.md §4.B mandates:
// "contains, ==, !=, >=, <=, >, <". The evaluator tries each in turn and
// splits on the first one found (at depth zero, outside quotes).
var operatorPriority = []string{"contains", "==", "!=", ">=", "<=", ">", "<"}

// Evaluate substitutes every ${{ … }} occurrence in s, returning s
// unchanged if it contains none (spec.md invariant 5).
func Evaluate(s string, ctx *Context) (string, error) {
	var sb strings.Builder
	i := 0
	for {
		idx := strings.Index(s[i:], "${{")
		if idx < 0 {
			sb.WriteString(s[i:])
			break
		}
		start := i + idx
		sb.WriteString(s[i:start])

		end, ok := findClosingDelim(s, start+3)
		if !ok {
			return "", errs.Expression(s[start:])
		}
		inner := s[start+3 : end]
		v, err := evalExprString(inner, ctx)
		if err != nil {
			return "", err
		}
		sb.WriteString(value.FormatScalar(v))
		i = end + 2
	}
	return sb.String(), nil
}

// EvaluateValue walks v recursively, applying EvaluateTyped to every
// string leaf (so a leaf that is wholly one ${{ … }} form keeps its
// result's real type rather than being stringified) and leaving every
// other leaf unchanged (spec.md invariant 6).
func EvaluateValue(v any, ctx *Context) (any, error) {
	switch t := v.(type) {
	case string:
		out, err := EvaluateTyped(t, ctx)
		if err != nil {
			return nil, err
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			r, err := EvaluateValue(vv, ctx)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			r, err := EvaluateValue(vv, ctx)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	default:
		return v, nil
	}
}

// EvaluateTyped evaluates s the same way Evaluate does, except that when
// s is, once trimmed, a single ${{ … }} form with nothing else around
// it, the expression's raw typed result is returned instead of its
// stringified form. Job and reusable-workflow outputs use this form so
// a numeric or structured step output survives being passed along
// (spec.md §3's outputs propagation), rather than losing its type the
// way a substituted-into-a-larger-string value must.
func EvaluateTyped(s string, ctx *Context) (any, error) {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "${{") {
		if end, ok := findClosingDelim(trimmed, 3); ok && strings.TrimSpace(trimmed[end+2:]) == "" {
			return evalExprString(trimmed[3:end], ctx)
		}
	}
	return Evaluate(s, ctx)
}

// EvaluateAssertion requires s to be, once trimmed, a single ${{ … }}
// form spanning the whole string, and that it evaluates to a bool
// (spec.md §4.B).
func EvaluateAssertion(s string, ctx *Context) (bool, error) {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "${{") {
		return false, errs.Expression(s)
	}
	end, ok := findClosingDelim(trimmed, 3)
	if !ok {
		return false, errs.Expression(s)
	}
	if strings.TrimSpace(trimmed[end+2:]) != "" {
		return false, errs.Expression(s)
	}
	inner := trimmed[3:end]
	v, err := evalExprString(inner, ctx)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, errs.Expression(s)
	}
	return b, nil
}

// findClosingDelim scans s starting at start for the "}}" that closes a
// "${{" opened just before start, skipping over balanced {}/[] nesting
// and quoted substrings (spec.md §4.B "Operator scan" rules apply here
// too, since a literal object/array inside the expression must not
// confuse delimiter matching). It returns the index of the first '}' of
// the closing pair.
func findClosingDelim(s string, start int) (int, bool) {
	depth := 0
	var inQuote byte
	for i := start; i < len(s); i++ {
		c := s[i]
		if inQuote != 0 {
			if c == '\\' && i+1 < len(s) {
				i++
				continue
			}
			if c == inQuote {
				inQuote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			inQuote = c
		case '{', '[':
			depth++
		case '}', ']':
			if depth > 0 {
				depth--
			} else if c == '}' && i+1 < len(s) && s[i+1] == '}' {
				return i, true
			}
		}
	}
	return -1, false
}

// evalExprString evaluates the content of one ${{ … }} form: either a
// single operand or a LEFT OP RIGHT boolean comparison.
func evalExprString(expr string, ctx *Context) (any, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return nil, errs.Expression(expr)
	}

	for _, op := range operatorPriority {
		if idx := findOperatorAtDepth0(trimmed, op); idx >= 0 {
			left := trimmed[:idx]
			right := trimmed[idx+len(op):]
			return evalBinary(left, op, right, ctx)
		}
	}

	return evalOperand(trimmed, ctx)
}

func evalBinary(leftStr, op, rightStr string, ctx *Context) (any, error) {
	left, err := evalOperand(strings.TrimSpace(leftStr), ctx)
	if err != nil {
		return nil, err
	}
	right, err := evalOperand(strings.TrimSpace(rightStr), ctx)
	if err != nil {
		return nil, err
	}

	switch op {
	case "==":
		return value.Equal(left, right), nil
	case "!=":
		return !value.Equal(left, right), nil
	case "contains":
		return value.Contains(left, right), nil
	case ">", "<", ">=", "<=":
		lf, lok := value.ToFloat(left)
		rf, rok := value.ToFloat(right)
		if !lok || !rok {
			return false, nil
		}
		switch op {
		case ">":
			return lf > rf, nil
		case "<":
			return lf < rf, nil
		case ">=":
			return lf >= rf, nil
		default:
			return lf <= rf, nil
		}
	default:
		return nil, errs.Expression(op)
	}
}

// findOperatorAtDepth0 returns the index of the first occurrence of op
// in s that sits outside any {}/[] nesting and outside any quoted
// substring. `contains` additionally requires word boundaries so it
// doesn't fire inside an identifier.
func findOperatorAtDepth0(s, op string) int {
	depth := 0
	var inQuote byte
	wordOp := op == "contains"

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inQuote != 0 {
			if c == '\\' && i+1 < len(s) {
				i++
				continue
			}
			if c == inQuote {
				inQuote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			inQuote = c
			continue
		case '{', '[':
			depth++
			continue
		case '}', ']':
			if depth > 0 {
				depth--
			}
			continue
		}
		if depth != 0 {
			continue
		}
		if i+len(op) > len(s) || s[i:i+len(op)] != op {
			continue
		}
		if wordOp {
			before := i == 0 || s[i-1] == ' ' || s[i-1] == '\t'
			afterIdx := i + len(op)
			after := afterIdx == len(s) || s[afterIdx] == ' ' || s[afterIdx] == '\t'
			if !before || !after {
				continue
			}
		}
		return i
	}
	return -1
}

// evalOperand parses a single literal or path operand (spec.md §4.B
// "Literal operand forms").
func evalOperand(s string, ctx *Context) (any, error) {
	if s == "" {
		return nil, errs.Expression(s)
	}

	switch {
	case s[0] == '{' || s[0] == '[':
		var v any
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return nil, errs.Expression(s)
		}
		return v, nil
	case s[0] == '"':
		return unquote(s, '"')
	case s[0] == '\'':
		return unquote(s, '\'')
	case s == "true":
		return true, nil
	case s == "false":
		return false, nil
	case s == "null":
		return nil, nil
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return float64(n), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, nil
	}

	return evalPath(s, ctx)
}

func unquote(s string, quote byte) (string, error) {
	if len(s) < 2 || s[len(s)-1] != quote {
		return "", errs.Expression(s)
	}
	inner := s[1 : len(s)-1]
	var sb strings.Builder
	for i := 0; i < len(inner); i++ {
		if inner[i] == '\\' && i+1 < len(inner) {
			i++
			sb.WriteByte(inner[i])
			continue
		}
		sb.WriteByte(inner[i])
	}
	return sb.String(), nil
}
