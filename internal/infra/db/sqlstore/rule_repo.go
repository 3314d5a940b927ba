package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bryanwahyu/riskrules/internal/domain/apperr"
	domain "github.com/bryanwahyu/riskrules/internal/domain/rules"
)

type RuleRepository struct {
	db *sql.DB
	d  Dialect
}

func NewRuleRepository(db *sql.DB, d Dialect) *RuleRepository {
	return &RuleRepository{db: db, d: d}
}

const ruleColumns = `id, user_id, name, description, category, severity, criteria, active, created_at, updated_at`

// Create inserts a new rule
func (r *RuleRepository) Create(ctx context.Context, rule *domain.CustomRule) error {
	criteria, err := json.Marshal(rule.Criteria)
	if err != nil {
		return fmt.Errorf("encode criteria: %w", err)
	}
	q := r.d.Rebind(`INSERT INTO custom_rules (` + ruleColumns + `) VALUES (?,?,?,?,?,?,?,?,?,?)`)
	_, err = r.db.ExecContext(ctx, q,
		rule.ID, rule.UserID, rule.Name, rule.Description, rule.Category, rule.Severity,
		string(criteria), rule.Active, rule.CreatedAt.UTC(), rule.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert rule: %w", err)
	}
	return nil
}

// Update overwrites every mutable column of the rule
func (r *RuleRepository) Update(ctx context.Context, rule *domain.CustomRule) error {
	criteria, err := json.Marshal(rule.Criteria)
	if err != nil {
		return fmt.Errorf("encode criteria: %w", err)
	}
	q := r.d.Rebind(`
UPDATE custom_rules
SET name = ?, description = ?, category = ?, severity = ?, criteria = ?, active = ?, updated_at = ?
WHERE id = ?`)
	_, err = r.db.ExecContext(ctx, q,
		rule.Name, rule.Description, rule.Category, rule.Severity,
		string(criteria), rule.Active, rule.UpdatedAt.UTC(),
		rule.ID,
	)
	if err != nil {
		return fmt.Errorf("update rule: %w", err)
	}
	return nil
}

// Delete removes the rule and its results. The explicit delete mirrors the
// ON DELETE CASCADE so engines without enforced foreign keys behave the same.
func (r *RuleRepository) Delete(ctx context.Context, id domain.RuleID) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, r.d.Rebind(`DELETE FROM rule_results WHERE rule_id = ?`), id); err != nil {
			return fmt.Errorf("delete rule results: %w", err)
		}
		res, err := tx.ExecContext(ctx, r.d.Rebind(`DELETE FROM custom_rules WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete rule: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("rule %s: %w", id, apperr.ErrNotFound)
		}
		return nil
	})
}

// Get by ID
func (r *RuleRepository) Get(ctx context.Context, id domain.RuleID) (*domain.CustomRule, error) {
	q := r.d.Rebind(`SELECT ` + ruleColumns + ` FROM custom_rules WHERE id = ?`)
	rule, err := scanRule(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rule %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get rule: %w", err)
	}
	return rule, nil
}

// ListByUser returns a user's rules in creation order
func (r *RuleRepository) ListByUser(ctx context.Context, userID string, activeOnly bool) ([]*domain.CustomRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM custom_rules WHERE user_id = ?`
	args := []any{userID}
	if activeOnly {
		query += ` AND active = ?`
		args = append(args, true)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, r.d.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying rules: %w", err)
	}
	defer rows.Close()

	out := []*domain.CustomRule{}
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning rule: %w", err)
		}
		out = append(out, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rules: %w", err)
	}
	return out, nil
}

func scanRule(s scanner) (*domain.CustomRule, error) {
	var rule domain.CustomRule
	var criteria []byte
	if err := s.Scan(
		&rule.ID, &rule.UserID, &rule.Name, &rule.Description, &rule.Category, &rule.Severity,
		&criteria, &rule.Active, &rule.CreatedAt, &rule.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(criteria, &rule.Criteria); err != nil {
		return nil, fmt.Errorf("decode criteria of rule %s: %w", rule.ID, err)
	}
	rule.CreatedAt = rule.CreatedAt.UTC()
	rule.UpdatedAt = rule.UpdatedAt.UTC()
	return &rule, nil
}
