package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/riskrules/internal/application"
	domain "github.com/bryanwahyu/riskrules/internal/domain/analysis"
	"github.com/bryanwahyu/riskrules/internal/domain/apperr"
)

// Service implements use-cases untuk Analysis
type Service struct {
	Repo   domain.Repository
	Clock  application.Clock
	Logger *zap.SugaredLogger
}

// AnalysisDraft is a completed questionnaire ready to be scored.
type AnalysisDraft struct {
	UserID          string
	Framework       domain.Framework
	Areas           []AreaInput
	Recommendations []domain.Recommendation
}

// CreateAnalysis scores the draft and stores the resulting analysis.
func (s *Service) CreateAnalysis(ctx context.Context, d AnalysisDraft) (*domain.Analysis, error) {
	if err := validateDraft(d); err != nil {
		return nil, err
	}

	risk, scores := CalculateRiskScores(d.Areas)
	recs := make([]domain.Recommendation, len(d.Recommendations))
	copy(recs, d.Recommendations)
	now := s.now()
	a := &domain.Analysis{
		ID:                   domain.AnalysisID(uuid.New().String()),
		UserID:               d.UserID,
		Framework:            d.Framework,
		RiskScore:            risk,
		SecurityLevel:        SecurityLevelFor(risk),
		AreaScores:           scores,
		Recommendations:      recs,
		BenchmarkComparisons: []domain.BenchmarkComparison{},
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.Repo.Save(ctx, a); err != nil {
		return nil, fmt.Errorf("save analysis: %w", err)
	}
	s.log().Infow("analysis created",
		"analysis_id", a.ID,
		"user_id", a.UserID,
		"framework", a.Framework,
		"risk_score", a.RiskScore,
	)
	return a, nil
}

// GetAnalysis returns an analysis owned by userID.
func (s *Service) GetAnalysis(ctx context.Context, id domain.AnalysisID, userID string) (*domain.Analysis, error) {
	a, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, fmt.Errorf("analysis %s: %w", id, apperr.ErrUnauthorized)
	}
	return a, nil
}

// ListAnalyses ambil N analysis terakhir milik user
func (s *Service) ListAnalyses(ctx context.Context, userID string, limit int) ([]*domain.Analysis, error) {
	return s.Repo.ListByUser(ctx, userID, limit)
}

// CompareBenchmarks runs a benchmark comparison and replaces the comparisons
// stored for the analysis.
func (s *Service) CompareBenchmarks(ctx context.Context, id domain.AnalysisID, userID string, benchmarks []Benchmark) ([]domain.BenchmarkComparison, error) {
	if len(benchmarks) == 0 {
		return nil, fmt.Errorf("at least one benchmark is required: %w", apperr.ErrValidation)
	}
	a, err := s.GetAnalysis(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	comps := CompareToBenchmarks(a.AreaScores, benchmarks)
	if err := s.Repo.ReplaceBenchmarkComparisons(ctx, id, comps, s.now()); err != nil {
		return nil, fmt.Errorf("replace benchmark comparisons: %w", err)
	}
	s.log().Infow("benchmarks compared", "analysis_id", id, "areas", len(comps))
	return comps, nil
}

func validateDraft(d AnalysisDraft) error {
	if strings.TrimSpace(d.UserID) == "" {
		return fmt.Errorf("user id is required: %w", apperr.ErrValidation)
	}
	if !d.Framework.Valid() {
		return fmt.Errorf("unsupported framework %q: %w", d.Framework, apperr.ErrValidation)
	}
	if len(d.Areas) == 0 {
		return fmt.Errorf("at least one area score is required: %w", apperr.ErrValidation)
	}
	seen := make(map[string]bool, len(d.Areas))
	for _, a := range d.Areas {
		if strings.TrimSpace(a.Area) == "" {
			return fmt.Errorf("area name is required: %w", apperr.ErrValidation)
		}
		if seen[a.Area] {
			return fmt.Errorf("duplicate area %q: %w", a.Area, apperr.ErrValidation)
		}
		seen[a.Area] = true
		if a.Score < 0 || a.Score > 10 {
			return fmt.Errorf("area %q score must be between 0 and 10: %w", a.Area, apperr.ErrValidation)
		}
		if a.Weight < 0 {
			return fmt.Errorf("area %q weight must not be negative: %w", a.Area, apperr.ErrValidation)
		}
	}
	for i, r := range d.Recommendations {
		if r.Priority < 1 || r.Priority > 5 {
			return fmt.Errorf("recommendation %d priority must be between 1 and 5: %w", i+1, apperr.ErrValidation)
		}
	}
	return nil
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

func (s *Service) log() *zap.SugaredLogger {
	if s.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return s.Logger
}
