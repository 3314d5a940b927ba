package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/bryanwahyu/riskrules/internal/domain/ai"
	"github.com/bryanwahyu/riskrules/internal/domain/apperr"
	"github.com/bryanwahyu/riskrules/internal/domain/rules"
)

// Service drafts rule criteria with an LLM. Drafts are never persisted; the
// caller reviews them and submits them through rule creation.
type Service struct {
	client ai.Client
}

func NewService(client ai.Client) *Service {
	return &Service{client: client}
}

// DraftCriteria asks the model for criteria matching description and runs
// the answer through the criteria validator.
func (s *Service) DraftCriteria(ctx context.Context, description string) (rules.Criteria, error) {
	if s == nil || s.client == nil {
		return rules.Criteria{}, ai.ErrDisabled
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return rules.Criteria{}, fmt.Errorf("description is required: %w", apperr.ErrValidation)
	}
	raw, err := s.client.DraftCriteria(ctx, description)
	if err != nil {
		return rules.Criteria{}, err
	}
	return rules.ParseCriteria([]byte(extractJSON(raw)))
}

// extractJSON strips a markdown code fence some models wrap around JSON.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
