package rules

import (
	"encoding/json"
)

// ParseCriteria decodes and validates criteria exactly as supplied by a
// caller. Checks short-circuit on the first failure and conditions are
// numbered from 1 in messages. The returned criteria always carry an
// explicit logical operator.
func ParseCriteria(raw []byte) (Criteria, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Criteria{}, invalidf("criteria must be a JSON object")
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return Criteria{}, invalidf("criteria must be a JSON object")
	}
	items, ok := obj["conditions"].([]any)
	if !ok || len(items) == 0 {
		return Criteria{}, invalidf("criteria must include a non-empty conditions array")
	}
	op, err := parseLogical(obj["operator"])
	if err != nil {
		return Criteria{}, err
	}

	out := Criteria{Operator: op, Conditions: make([]Condition, 0, len(items))}
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return Criteria{}, invalidf("condition %d must be an object", i+1)
		}
		field, _ := m["field"].(string)
		name, _ := m["operator"].(string)
		cond := Condition{Field: field, Operator: Operator(name), Value: m["value"]}
		if err := validateCondition(i+1, cond); err != nil {
			return Criteria{}, err
		}
		out.Conditions = append(out.Conditions, cond)
	}
	return out, nil
}

// NormalizeCriteria validates already typed criteria and returns a copy with
// the logical operator defaulted to AND. c is not modified.
func NormalizeCriteria(c Criteria) (Criteria, error) {
	if len(c.Conditions) == 0 {
		return Criteria{}, invalidf("criteria must include a non-empty conditions array")
	}
	op, err := parseLogical(string(c.Operator))
	if err != nil {
		return Criteria{}, err
	}
	out := Criteria{Operator: op, Conditions: make([]Condition, len(c.Conditions))}
	copy(out.Conditions, c.Conditions)
	for i, cond := range out.Conditions {
		if err := validateCondition(i+1, cond); err != nil {
			return Criteria{}, err
		}
	}
	return out, nil
}

func parseLogical(v any) (LogicalOperator, error) {
	if v == nil {
		return LogicalAnd, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", invalidf(`criteria operator must be "AND" or "OR"`)
	}
	switch LogicalOperator(s) {
	case "":
		return LogicalAnd, nil
	case LogicalAnd, LogicalOr:
		return LogicalOperator(s), nil
	}
	return "", invalidf(`criteria operator must be "AND" or "OR", got %q`, s)
}

func validateCondition(n int, c Condition) error {
	if c.Field == "" {
		return invalidf("condition %d: field must be a non-empty string", n)
	}
	if c.Operator == "" {
		return invalidf("condition %d: operator must be a non-empty string", n)
	}
	if !c.Operator.Known() {
		return invalidf("condition %d: unsupported operator %q", n, c.Operator)
	}
	if c.Value == nil {
		return invalidf("condition %d: value is required for operator %q", n, c.Operator)
	}
	if c.Operator.Ordinal() {
		if _, ok := toNumber(c.Value); !ok {
			return invalidf("condition %d: operator %q requires a numeric value", n, c.Operator)
		}
		if p, ok := ParseFieldPath(c.Field).(ScalarPath); ok && p.Name == FieldSecurityLevel {
			return invalidf("condition %d: operator %q cannot be applied to %s", n, c.Operator, FieldSecurityLevel)
		}
	}
	if c.Operator == OpIn {
		if _, ok := toSlice(c.Value); !ok {
			return invalidf(`condition %d: operator "in" requires an array value`, n)
		}
	}
	return nil
}
