package rules

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/riskrules/internal/domain/apperr"
)

func TestParseCriteria_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		reason string
	}{
		{"empty object", `{}`, "non-empty conditions array"},
		{"null", `null`, "must be a JSON object"},
		{"array", `[]`, "must be a JSON object"},
		{"not json", `{`, "must be a JSON object"},
		{"empty conditions", `{"conditions": []}`, "non-empty conditions array"},
		{"conditions not array", `{"conditions": {"field": "x"}}`, "non-empty conditions array"},
		{"bad logical operator", `{"operator": "XOR", "conditions": [{"field":"x","operator":"equals","value":1}]}`, `"AND" or "OR"`},
		{"logical operator not string", `{"operator": 1, "conditions": [{"field":"x","operator":"equals","value":1}]}`, `"AND" or "OR"`},
		{"condition not object", `{"conditions": ["x"]}`, "condition 1 must be an object"},
		{"missing field", `{"conditions": [{"operator":"equals","value":1}]}`, "condition 1: field"},
		{"field not string", `{"conditions": [{"field":3,"operator":"equals","value":1}]}`, "condition 1: field"},
		{"missing operator", `{"conditions": [{"field":"x","value":1}]}`, "condition 1: operator must be"},
		{"bogus operator", `{"conditions": [{"field":"x","operator":"bogus","value":1}]}`, `unsupported operator "bogus"`},
		{"null value", `{"conditions": [{"field":"x","operator":"equals","value":null}]}`, "condition 1: value is required"},
		{"missing value second", `{"conditions": [{"field":"x","operator":"equals","value":1},{"field":"y","operator":"contains"}]}`, "condition 2: value is required"},
		{"ordinal non numeric", `{"conditions": [{"field":"riskScore","operator":"lessThan","value":"low"}]}`, "requires a numeric value"},
		{"ordinal on security level", `{"conditions": [{"field":"securityLevel","operator":"greaterThan","value":2}]}`, "cannot be applied to securityLevel"},
		{"in non array", `{"conditions": [{"field":"securityLevel","operator":"in","value":"High Risk"}]}`, "requires an array value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCriteria([]byte(tt.raw))
			require.Error(t, err)

			var ice *InvalidCriteriaError
			require.True(t, errors.As(err, &ice))
			assert.Contains(t, ice.Reason, tt.reason)
			assert.True(t, errors.Is(err, apperr.ErrValidation))
		})
	}
}

func TestParseCriteria_Accepts(t *testing.T) {
	c, err := ParseCriteria([]byte(`{"conditions":[{"field":"x","operator":"equals","value":0}]}`))
	require.NoError(t, err)
	assert.Equal(t, LogicalAnd, c.Operator)
	require.Len(t, c.Conditions, 1)
	assert.Equal(t, 0.0, c.Conditions[0].Value)

	c, err = ParseCriteria([]byte(`{"operator":"OR","conditions":[
		{"field":"areaScores.Access Control","operator":"lessThan","value":6},
		{"field":"riskScore","operator":"lessThanEqual","value":"4"},
		{"field":"securityLevel","operator":"in","value":["High Risk","Medium Risk"]},
		{"field":"securityLevel","operator":"equals","value":false}
	]}`))
	require.NoError(t, err)
	assert.Equal(t, LogicalOr, c.Operator)
	assert.Len(t, c.Conditions, 4)
}

func TestNormalizeCriteria_DoesNotMutateInput(t *testing.T) {
	in := Criteria{Conditions: []Condition{cond("riskScore", OpLessThan, 4)}}

	out, err := NormalizeCriteria(in)
	require.NoError(t, err)
	assert.Equal(t, LogicalAnd, out.Operator)
	assert.Equal(t, LogicalOperator(""), in.Operator)

	out.Conditions[0].Field = "changed"
	assert.Equal(t, "riskScore", in.Conditions[0].Field)
}

func TestNormalizeCriteria_Rejects(t *testing.T) {
	_, err := NormalizeCriteria(Criteria{})
	assert.ErrorContains(t, err, "non-empty conditions array")

	_, err = NormalizeCriteria(Criteria{Operator: "NOR", Conditions: []Condition{cond("x", OpEquals, 1)}})
	assert.ErrorContains(t, err, `"AND" or "OR"`)

	_, err = NormalizeCriteria(Criteria{Conditions: []Condition{cond("x", OpEquals, nil)}})
	assert.ErrorContains(t, err, "condition 1: value is required")
}
