package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bryanwahyu/riskrules/internal/domain/rules"
)

func TestGetSystemPromptListsEveryOperator(t *testing.T) {
	p := GetSystemPrompt()
	for _, op := range rules.Operators {
		assert.Contains(t, p, string(op))
	}
	assert.Contains(t, p, "benchmarkComparisons.<area name>.percentile")
}

func TestGetUserPrompt(t *testing.T) {
	assert.Equal(t,
		"Write criteria for this rule and respond with the JSON per schema. Rule: weak access control",
		GetUserPrompt("  weak access control \n"))
}
