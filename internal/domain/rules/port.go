package rules

import (
	"context"

	"github.com/bryanwahyu/riskrules/internal/domain/analysis"
)

// Repository port for custom rules
type Repository interface {
	Create(ctx context.Context, r *CustomRule) error
	Update(ctx context.Context, r *CustomRule) error
	// Delete removes the rule and every RuleResult that references it.
	Delete(ctx context.Context, id RuleID) error
	// Get returns an error wrapping apperr.ErrNotFound when id is unknown.
	Get(ctx context.Context, id RuleID) (*CustomRule, error)
	// ListByUser orders by creation time then id so output is stable.
	ListByUser(ctx context.Context, userID string, activeOnly bool) ([]*CustomRule, error)
}

// ResultRepository port for rule results
type ResultRepository interface {
	// ReplaceForAnalysis atomically deletes every result of the analysis and
	// inserts results.
	ReplaceForAnalysis(ctx context.Context, analysisID analysis.AnalysisID, results []*RuleResult) error
	// ListByAnalysis returns results with Rule populated, newest first.
	ListByAnalysis(ctx context.Context, analysisID analysis.AnalysisID) ([]*RuleResult, error)
}

// ResultArchive port (penyimpanan snapshot hasil evaluasi)
type ResultArchive interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
}
