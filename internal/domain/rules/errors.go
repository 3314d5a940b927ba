package rules

import (
	"fmt"

	"github.com/bryanwahyu/riskrules/internal/domain/apperr"
)

// InvalidCriteriaError reports why a rule's criteria were rejected.
type InvalidCriteriaError struct {
	Reason string
}

func (e *InvalidCriteriaError) Error() string {
	return "invalid criteria: " + e.Reason
}

// Is lets errors.Is(err, apperr.ErrValidation) match criteria failures.
func (e *InvalidCriteriaError) Is(target error) bool {
	return target == apperr.ErrValidation
}

func invalidf(format string, args ...any) error {
	return &InvalidCriteriaError{Reason: fmt.Sprintf(format, args...)}
}
