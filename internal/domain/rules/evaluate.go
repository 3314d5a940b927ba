package rules

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"

	"github.com/bryanwahyu/riskrules/internal/domain/analysis"
)

// EqualityMode selects how equals, notEquals and in compare values.
type EqualityMode int

const (
	// LooseEquality treats numeric strings and numbers as equal ("5" == 5)
	// and booleans as 0/1. Rules stored so far rely on it.
	LooseEquality EqualityMode = iota
	// StrictEquality requires both operands to share a kind.
	StrictEquality
)

// Evaluator evaluates criteria against an analysis. The zero value uses
// LooseEquality. It holds no state and is safe for concurrent use.
type Evaluator struct {
	Equality EqualityMode
}

// ConditionOutcome explains the verdict of one condition.
type ConditionOutcome struct {
	Condition Condition `json:"condition"`
	Resolved  any       `json:"resolved,omitempty"`
	Defined   bool      `json:"defined"`
	Matched   bool      `json:"matched"`
}

// EvaluateRule reports whether rule matches a.
func (e Evaluator) EvaluateRule(rule *CustomRule, a *analysis.Analysis) bool {
	if rule == nil {
		return false
	}
	return e.EvaluateCriteria(rule.Criteria, a)
}

// EvaluateCriteria combines every condition with the criteria operator. No
// conditions never match; an absent operator means AND.
func (e Evaluator) EvaluateCriteria(c Criteria, a *analysis.Analysis) bool {
	if len(c.Conditions) == 0 {
		return false
	}
	results := make([]bool, len(c.Conditions))
	for i, cond := range c.Conditions {
		results[i] = e.EvaluateCondition(cond, a)
	}
	return combine(c.Operator, results)
}

// Trace evaluates each condition and reports how it resolved.
func (e Evaluator) Trace(c Criteria, a *analysis.Analysis) []ConditionOutcome {
	out := make([]ConditionOutcome, 0, len(c.Conditions))
	for _, cond := range c.Conditions {
		v, ok := Resolve(cond.Field, a)
		out = append(out, ConditionOutcome{
			Condition: cond,
			Resolved:  v,
			Defined:   ok,
			Matched:   ok && e.compare(cond.Operator, v, cond.Value),
		})
	}
	return out
}

// EvaluateCondition tests one condition. A field that does not resolve never
// matches, whatever the operator.
func (e Evaluator) EvaluateCondition(c Condition, a *analysis.Analysis) bool {
	v, ok := Resolve(c.Field, a)
	if !ok {
		return false
	}
	return e.compare(c.Operator, v, c.Value)
}

func combine(op LogicalOperator, results []bool) bool {
	switch op {
	case LogicalAnd, "":
		for _, r := range results {
			if !r {
				return false
			}
		}
		return true
	case LogicalOr:
		for _, r := range results {
			if r {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func (e Evaluator) compare(op Operator, actual, expected any) bool {
	switch op {
	case OpEquals:
		return e.equal(actual, expected)
	case OpNotEquals:
		return !e.equal(actual, expected)
	case OpGreaterThan, OpLessThan, OpGreaterThanEqual, OpLessThanEqual:
		x, okX := toNumber(actual)
		y, okY := toNumber(expected)
		if !okX || !okY {
			return false
		}
		switch op {
		case OpGreaterThan:
			return x > y
		case OpLessThan:
			return x < y
		case OpGreaterThanEqual:
			return x >= y
		default:
			return x <= y
		}
	case OpContains:
		found, applicable := e.contains(actual, expected)
		return applicable && found
	case OpNotContains:
		// Values that are neither text nor a list never contain anything.
		found, applicable := e.contains(actual, expected)
		return !applicable || !found
	case OpIn:
		items, ok := toSlice(expected)
		if !ok {
			return false
		}
		for _, it := range items {
			if e.equal(actual, it) {
				return true
			}
		}
		return false
	}
	return false
}

// contains reports membership and whether actual supports it at all.
func (e Evaluator) contains(actual, expected any) (found, applicable bool) {
	if s, ok := actual.(string); ok {
		needle, ok := toText(expected)
		if !ok {
			return false, true
		}
		return strings.Contains(s, needle), true
	}
	items, ok := toSlice(actual)
	if !ok {
		return false, false
	}
	for _, it := range items {
		if e.equal(it, expected) {
			return true, true
		}
	}
	return false, true
}

func (e Evaluator) equal(a, b any) bool {
	if e.Equality == StrictEquality {
		return strictEqual(a, b)
	}
	return looseEqual(a, b)
}

func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	sa, aIsStr := a.(string)
	sb, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return sa == sb
	}
	ba, aIsBool := a.(bool)
	bb, bIsBool := b.(bool)
	if aIsBool && bIsBool {
		return ba == bb
	}
	if aIsBool {
		a = boolNumber(ba)
	}
	if bIsBool {
		b = boolNumber(bb)
	}
	x, okX := toNumber(a)
	y, okY := toNumber(b)
	return okX && okY && x == y
}

func strictEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if isNumeric(a) && isNumeric(b) {
		x, _ := toNumber(a)
		y, _ := toNumber(b)
		return x == y
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return false
}

func boolNumber(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func isNumeric(v any) bool {
	switch v.(type) {
	case float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		return true
	}
	return false
}

// toNumber converts numbers and numeric strings.
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

func toText(v any) (string, bool) {
	if s, ok := v.(string); ok {
		return s, true
	}
	if f, ok := toNumber(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	if b, ok := v.(bool); ok {
		return strconv.FormatBool(b), true
	}
	return "", false
}

func toSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
