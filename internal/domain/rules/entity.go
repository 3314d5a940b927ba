package rules

import (
	"time"

	"github.com/bryanwahyu/riskrules/internal/domain/analysis"
)

// RuleID identifier type
type RuleID string

// Operator enum for a single condition
type Operator string

const (
	OpEquals           Operator = "equals"
	OpNotEquals        Operator = "notEquals"
	OpGreaterThan      Operator = "greaterThan"
	OpLessThan         Operator = "lessThan"
	OpGreaterThanEqual Operator = "greaterThanEqual"
	OpLessThanEqual    Operator = "lessThanEqual"
	OpContains         Operator = "contains"
	OpNotContains      Operator = "notContains"
	OpIn               Operator = "in"
)

// Operators lists every recognised condition operator.
var Operators = []Operator{
	OpEquals, OpNotEquals,
	OpGreaterThan, OpLessThan, OpGreaterThanEqual, OpLessThanEqual,
	OpContains, OpNotContains, OpIn,
}

// Known reports whether op is a recognised condition operator.
func (op Operator) Known() bool {
	for _, o := range Operators {
		if o == op {
			return true
		}
	}
	return false
}

// Ordinal reports whether op compares magnitudes.
func (op Operator) Ordinal() bool {
	switch op {
	case OpGreaterThan, OpLessThan, OpGreaterThanEqual, OpLessThanEqual:
		return true
	}
	return false
}

// LogicalOperator combines condition outcomes.
type LogicalOperator string

const (
	LogicalAnd LogicalOperator = "AND"
	LogicalOr  LogicalOperator = "OR"
)

// Condition is one {field, operator, value} test against an analysis.
type Condition struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

// Criteria is the stored boolean definition of a rule.
type Criteria struct {
	Operator   LogicalOperator `json:"operator"`
	Conditions []Condition     `json:"conditions"`
}

// Aggregate Root: CustomRule
type CustomRule struct {
	ID          RuleID    `json:"id"`
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category"`
	Severity    int       `json:"severity"`
	Criteria    Criteria  `json:"criteria"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// RuleResult is the persisted verdict of one rule for one analysis. Only the
// latest evaluation generation of an analysis exists.
type RuleResult struct {
	ID         string              `json:"id"`
	AnalysisID analysis.AnalysisID `json:"analysisId"`
	RuleID     RuleID              `json:"ruleId"`
	Matched    bool                `json:"matched"`
	CreatedAt  time.Time           `json:"createdAt"`
	UpdatedAt  time.Time           `json:"updatedAt"`

	// Rule is populated by reads that join the owning rule.
	Rule *CustomRule `json:"rule,omitempty"`
}

// DecoratedRuleResult carries display-only rule metadata next to a result.
type DecoratedRuleResult struct {
	RuleResult
	RuleName     string `json:"ruleName"`
	RuleCategory string `json:"ruleCategory"`
	RuleSeverity int    `json:"ruleSeverity"`
}

// Decorate copies rule metadata onto res.
func Decorate(res RuleResult, rule *CustomRule) DecoratedRuleResult {
	return DecoratedRuleResult{
		RuleResult:   res,
		RuleName:     rule.Name,
		RuleCategory: rule.Category,
		RuleSeverity: rule.Severity,
	}
}
