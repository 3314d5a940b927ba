package analysis

import (
	"context"
	"time"
)

// Repository port (interface untuk persistence)
type Repository interface {
	// Save inserts the aggregate with its area scores, recommendations and
	// benchmark comparisons.
	Save(ctx context.Context, a *Analysis) error
	// Get returns an error wrapping apperr.ErrNotFound when id is unknown.
	Get(ctx context.Context, id AnalysisID) (*Analysis, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*Analysis, error)
	// ReplaceBenchmarkComparisons deletes every comparison of the analysis and
	// inserts cs in a single transaction.
	ReplaceBenchmarkComparisons(ctx context.Context, id AnalysisID, cs []BenchmarkComparison, at time.Time) error
}
