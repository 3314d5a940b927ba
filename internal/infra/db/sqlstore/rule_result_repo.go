package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bryanwahyu/riskrules/internal/domain/analysis"
	"github.com/bryanwahyu/riskrules/internal/domain/apperr"
	domain "github.com/bryanwahyu/riskrules/internal/domain/rules"
)

type RuleResultRepository struct {
	db *sql.DB
	d  Dialect
}

func NewRuleResultRepository(db *sql.DB, d Dialect) *RuleResultRepository {
	return &RuleResultRepository{db: db, d: d}
}

// ReplaceForAnalysis swaps the stored generation for results atomically.
// On MySQL and Postgres the analysis row is locked first, so replaces from
// other processes for the same analysis wait for this one to commit.
func (r *RuleResultRepository) ReplaceForAnalysis(ctx context.Context, analysisID analysis.AnalysisID, results []*domain.RuleResult) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if lock := r.d.lockAnalysisQuery(); lock != "" {
			var locked string
			if err := tx.QueryRowContext(ctx, lock, analysisID).Scan(&locked); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("analysis %s: %w", analysisID, apperr.ErrNotFound)
				}
				return fmt.Errorf("lock analysis: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx, r.d.Rebind(`DELETE FROM rule_results WHERE analysis_id = ?`), analysisID); err != nil {
			return fmt.Errorf("delete rule results: %w", err)
		}
		q := r.d.Rebind(`INSERT INTO rule_results (id, analysis_id, rule_id, matched, created_at, updated_at) VALUES (?,?,?,?,?,?)`)
		for _, res := range results {
			if _, err := tx.ExecContext(ctx, q,
				res.ID, analysisID, res.RuleID, res.Matched, res.CreatedAt.UTC(), res.UpdatedAt.UTC(),
			); err != nil {
				return fmt.Errorf("insert rule result for rule %s: %w", res.RuleID, err)
			}
		}
		return nil
	})
}

// ListByAnalysis returns the stored generation with each rule embedded
func (r *RuleResultRepository) ListByAnalysis(ctx context.Context, analysisID analysis.AnalysisID) ([]*domain.RuleResult, error) {
	q := r.d.Rebind(`
SELECT rr.id, rr.analysis_id, rr.rule_id, rr.matched, rr.created_at, rr.updated_at,
       cr.id, cr.user_id, cr.name, cr.description, cr.category, cr.severity,
       cr.criteria, cr.active, cr.created_at, cr.updated_at
FROM rule_results rr
JOIN custom_rules cr ON cr.id = rr.rule_id
WHERE rr.analysis_id = ?
ORDER BY rr.created_at DESC, rr.id DESC`)
	rows, err := r.db.QueryContext(ctx, q, analysisID)
	if err != nil {
		return nil, fmt.Errorf("querying rule results: %w", err)
	}
	defer rows.Close()

	out := []*domain.RuleResult{}
	for rows.Next() {
		var res domain.RuleResult
		var rule domain.CustomRule
		var criteria []byte
		if err := rows.Scan(
			&res.ID, &res.AnalysisID, &res.RuleID, &res.Matched, &res.CreatedAt, &res.UpdatedAt,
			&rule.ID, &rule.UserID, &rule.Name, &rule.Description, &rule.Category, &rule.Severity,
			&criteria, &rule.Active, &rule.CreatedAt, &rule.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning rule result: %w", err)
		}
		if err := json.Unmarshal(criteria, &rule.Criteria); err != nil {
			return nil, fmt.Errorf("decode criteria of rule %s: %w", rule.ID, err)
		}
		res.CreatedAt = res.CreatedAt.UTC()
		res.UpdatedAt = res.UpdatedAt.UTC()
		rule.CreatedAt = rule.CreatedAt.UTC()
		rule.UpdatedAt = rule.UpdatedAt.UTC()
		res.Rule = &rule
		out = append(out, &res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rule results: %w", err)
	}
	return out, nil
}
