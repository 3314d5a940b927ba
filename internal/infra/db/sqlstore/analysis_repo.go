package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domain "github.com/bryanwahyu/riskrules/internal/domain/analysis"
	"github.com/bryanwahyu/riskrules/internal/domain/apperr"
)

type AnalysisRepository struct {
	db *sql.DB
	d  Dialect
}

func NewAnalysisRepository(db *sql.DB, d Dialect) *AnalysisRepository {
	return &AnalysisRepository{db: db, d: d}
}

const analysisColumns = `id, user_id, framework, risk_score, security_level, created_at, updated_at`

// Save inserts the analysis aggregate in one transaction
func (r *AnalysisRepository) Save(ctx context.Context, a *domain.Analysis) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		q := r.d.Rebind(`INSERT INTO analyses (` + analysisColumns + `) VALUES (?,?,?,?,?,?,?)`)
		if _, err := tx.ExecContext(ctx, q,
			a.ID, a.UserID, a.Framework, a.RiskScore, a.SecurityLevel, a.CreatedAt.UTC(), a.UpdatedAt.UTC(),
		); err != nil {
			return fmt.Errorf("insert analysis: %w", err)
		}

		qa := r.d.Rebind(`INSERT INTO area_scores (analysis_id, seq, area, score) VALUES (?,?,?,?)`)
		for i, s := range a.AreaScores {
			if _, err := tx.ExecContext(ctx, qa, a.ID, i, s.Area, s.Score); err != nil {
				return fmt.Errorf("insert area score %q: %w", s.Area, err)
			}
		}

		qr := r.d.Rebind(`INSERT INTO recommendations (analysis_id, seq, description, category, priority) VALUES (?,?,?,?,?)`)
		for i, rec := range a.Recommendations {
			if _, err := tx.ExecContext(ctx, qr, a.ID, i, rec.Description, rec.Category, rec.Priority); err != nil {
				return fmt.Errorf("insert recommendation %d: %w", i+1, err)
			}
		}

		return r.insertBenchmarks(ctx, tx, a.ID, a.BenchmarkComparisons, a.CreatedAt)
	})
}

// Get by ID, with area scores, recommendations and benchmark comparisons
func (r *AnalysisRepository) Get(ctx context.Context, id domain.AnalysisID) (*domain.Analysis, error) {
	q := r.d.Rebind(`SELECT ` + analysisColumns + ` FROM analyses WHERE id = ?`)
	a, err := scanAnalysis(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("analysis %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	if err := r.loadChildren(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// ListByUser returns the latest analyses of a user, newest first
func (r *AnalysisRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Analysis, error) {
	q := r.d.Rebind(`SELECT ` + analysisColumns + ` FROM analyses WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`)
	rows, err := r.db.QueryContext(ctx, q, userID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying analyses: %w", err)
	}
	var out []*domain.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning analysis: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating analyses: %w", err)
	}
	rows.Close()

	// children are loaded after the cursor is closed; SQLite runs on one connection
	for _, a := range out {
		if err := r.loadChildren(ctx, a); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ReplaceBenchmarkComparisons delete-then-recreate dalam satu transaksi
func (r *AnalysisRepository) ReplaceBenchmarkComparisons(ctx context.Context, id domain.AnalysisID, cs []domain.BenchmarkComparison, at time.Time) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if lock := r.d.lockAnalysisQuery(); lock != "" {
			var locked string
			if err := tx.QueryRowContext(ctx, lock, id).Scan(&locked); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("analysis %s: %w", id, apperr.ErrNotFound)
				}
				return fmt.Errorf("lock analysis: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx, r.d.Rebind(`DELETE FROM benchmark_comparisons WHERE analysis_id = ?`), id); err != nil {
			return fmt.Errorf("delete benchmark comparisons: %w", err)
		}
		if err := r.insertBenchmarks(ctx, tx, id, cs, at); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, r.d.Rebind(`UPDATE analyses SET updated_at = ? WHERE id = ?`), at.UTC(), id); err != nil {
			return fmt.Errorf("touch analysis: %w", err)
		}
		return nil
	})
}

func (r *AnalysisRepository) insertBenchmarks(ctx context.Context, tx *sql.Tx, id domain.AnalysisID, cs []domain.BenchmarkComparison, at time.Time) error {
	q := r.d.Rebind(`INSERT INTO benchmark_comparisons (analysis_id, area, score, benchmark_score, percentile, created_at) VALUES (?,?,?,?,?,?)`)
	for _, c := range cs {
		if _, err := tx.ExecContext(ctx, q, id, c.Area, c.Score, c.BenchmarkScore, c.Percentile, at.UTC()); err != nil {
			return fmt.Errorf("insert benchmark comparison %q: %w", c.Area, err)
		}
	}
	return nil
}

func (r *AnalysisRepository) loadChildren(ctx context.Context, a *domain.Analysis) error {
	a.AreaScores = []domain.AreaScore{}
	rows, err := r.db.QueryContext(ctx, r.d.Rebind(`SELECT area, score FROM area_scores WHERE analysis_id = ? ORDER BY seq`), a.ID)
	if err != nil {
		return fmt.Errorf("querying area scores: %w", err)
	}
	for rows.Next() {
		var s domain.AreaScore
		if err := rows.Scan(&s.Area, &s.Score); err != nil {
			rows.Close()
			return fmt.Errorf("scanning area score: %w", err)
		}
		a.AreaScores = append(a.AreaScores, s)
	}
	if err := closeRows(rows); err != nil {
		return fmt.Errorf("iterating area scores: %w", err)
	}

	a.Recommendations = []domain.Recommendation{}
	rows, err = r.db.QueryContext(ctx, r.d.Rebind(`SELECT description, category, priority FROM recommendations WHERE analysis_id = ? ORDER BY seq`), a.ID)
	if err != nil {
		return fmt.Errorf("querying recommendations: %w", err)
	}
	for rows.Next() {
		var rec domain.Recommendation
		if err := rows.Scan(&rec.Description, &rec.Category, &rec.Priority); err != nil {
			rows.Close()
			return fmt.Errorf("scanning recommendation: %w", err)
		}
		a.Recommendations = append(a.Recommendations, rec)
	}
	if err := closeRows(rows); err != nil {
		return fmt.Errorf("iterating recommendations: %w", err)
	}

	a.BenchmarkComparisons = []domain.BenchmarkComparison{}
	rows, err = r.db.QueryContext(ctx, r.d.Rebind(`SELECT area, score, benchmark_score, percentile FROM benchmark_comparisons WHERE analysis_id = ? ORDER BY area`), a.ID)
	if err != nil {
		return fmt.Errorf("querying benchmark comparisons: %w", err)
	}
	for rows.Next() {
		var b domain.BenchmarkComparison
		if err := rows.Scan(&b.Area, &b.Score, &b.BenchmarkScore, &b.Percentile); err != nil {
			rows.Close()
			return fmt.Errorf("scanning benchmark comparison: %w", err)
		}
		a.BenchmarkComparisons = append(a.BenchmarkComparisons, b)
	}
	if err := closeRows(rows); err != nil {
		return fmt.Errorf("iterating benchmark comparisons: %w", err)
	}
	return nil
}

func scanAnalysis(s scanner) (*domain.Analysis, error) {
	var a domain.Analysis
	if err := s.Scan(&a.ID, &a.UserID, &a.Framework, &a.RiskScore, &a.SecurityLevel, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return &a, nil
}

func closeRows(rows *sql.Rows) error {
	err := rows.Err()
	rows.Close()
	return err
}
