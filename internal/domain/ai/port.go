package ai

import "context"

// Client drafts rule criteria from a natural-language description. The
// returned string is the model's raw JSON answer.
type Client interface {
	DraftCriteria(ctx context.Context, description string) (string, error)
}
