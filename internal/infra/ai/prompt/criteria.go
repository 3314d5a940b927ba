package prompt

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/riskrules/internal/domain/rules"
)

// GetSystemPrompt provides strict directions and schema for the criteria JSON.
func GetSystemPrompt() string {
	ops := make([]string, 0, len(rules.Operators))
	for _, op := range rules.Operators {
		ops = append(ops, string(op))
	}

	return `You translate a security analyst's description into rule criteria. You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.

Fields you may reference:
- riskScore (number 0-10, higher is safer)
- securityLevel (one of "High Risk", "Medium Risk", "Low Risk", "Minimal Risk")
- areaScores.<area name> (number 0-10)
- recommendations (number of recommendations)
- recommendations.<category> (number of recommendations in a category)
- benchmarkComparisons.<area name>.score, benchmarkComparisons.<area name>.benchmarkScore, benchmarkComparisons.<area name>.percentile

Requirements:
- "operator" is "AND" or "OR".
- "conditions" is a non-empty array.
- Each condition operator is one of: ` + strings.Join(ops, ", ") + `.
- greaterThan, lessThan, greaterThanEqual and lessThanEqual need a numeric value and never apply to securityLevel.
- "in" needs an array value.

Schema (example):
{
  "operator": "AND",
  "conditions": [
    {"field": "riskScore", "operator": "lessThan", "value": 5},
    {"field": "areaScores.Access Control", "operator": "lessThan", "value": 4}
  ]
}`
}

// GetUserPrompt wraps the analyst's description.
func GetUserPrompt(description string) string {
	return fmt.Sprintf("Write criteria for this rule and respond with the JSON per schema. Rule: %s", strings.TrimSpace(description))
}
