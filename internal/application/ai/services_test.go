package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domai "github.com/bryanwahyu/riskrules/internal/domain/ai"
	"github.com/bryanwahyu/riskrules/internal/domain/apperr"
	"github.com/bryanwahyu/riskrules/internal/domain/rules"
)

type fakeClient struct {
	answer string
	err    error
	asked  string
}

func (f *fakeClient) DraftCriteria(_ context.Context, description string) (string, error) {
	f.asked = description
	return f.answer, f.err
}

func TestDraftCriteria(t *testing.T) {
	client := &fakeClient{answer: "```json\n{\"operator\":\"OR\",\"conditions\":[{\"field\":\"riskScore\",\"operator\":\"lessThan\",\"value\":4}]}\n```"}
	svc := NewService(client)

	c, err := svc.DraftCriteria(context.Background(), "  flag weak overall posture ")
	require.NoError(t, err)
	assert.Equal(t, "flag weak overall posture", client.asked)
	assert.Equal(t, rules.LogicalOr, c.Operator)
	require.Len(t, c.Conditions, 1)
	assert.Equal(t, rules.OpLessThan, c.Conditions[0].Operator)
}

func TestDraftCriteria_RejectsInvalidModelOutput(t *testing.T) {
	svc := NewService(&fakeClient{answer: `{"conditions":[{"field":"riskScore","operator":"approximately","value":4}]}`})

	_, err := svc.DraftCriteria(context.Background(), "anything")
	var ice *rules.InvalidCriteriaError
	assert.True(t, errors.As(err, &ice))
}

func TestDraftCriteria_Errors(t *testing.T) {
	_, err := NewService(nil).DraftCriteria(context.Background(), "x")
	assert.ErrorIs(t, err, domai.ErrDisabled)

	_, err = NewService(&fakeClient{}).DraftCriteria(context.Background(), "   ")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = NewService(&fakeClient{err: domai.ErrQuotaExceeded}).DraftCriteria(context.Background(), "x")
	assert.ErrorIs(t, err, domai.ErrQuotaExceeded)
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSON(`{"a":1}`))
	assert.Equal(t, `{"a":1}`, extractJSON("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, extractJSON("```json {\"a\":1} ```"))
}
