package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/riskrules/internal/application"
	"github.com/bryanwahyu/riskrules/internal/domain/analysis"
	"github.com/bryanwahyu/riskrules/internal/domain/apperr"
	domain "github.com/bryanwahyu/riskrules/internal/domain/rules"
)

// Metrics receives evaluation session measurements. Optional.
type Metrics interface {
	ObserveSession(rules, matched int, d time.Duration)
}

// Service implements use-cases untuk custom rules and rule evaluation.
// Service is safe for concurrent use; it must not be copied after first use.
type Service struct {
	Analyses  analysis.Repository
	Rules     domain.Repository
	Results   domain.ResultRepository
	Archive   domain.ResultArchive
	Evaluator domain.Evaluator
	Clock     application.Clock
	Logger    *zap.SugaredLogger
	Metrics   Metrics

	locks keyLock
}

//
// ==== COMMANDS ====
//

// RuleDraft is the input of CreateRule. Criteria is the raw JSON document.
type RuleDraft struct {
	UserID      string
	Name        string
	Description string
	Category    string
	Severity    int
	Criteria    json.RawMessage
	Active      *bool
}

// RulePatch is the input of UpdateRule. Nil fields keep their stored value.
type RulePatch struct {
	UserID      string
	Name        *string
	Description *string
	Category    *string
	Severity    *int
	Criteria    json.RawMessage
	Active      *bool
}

// RuleTestResult is the outcome of a dry run.
type RuleTestResult struct {
	Matched    bool                      `json:"matched"`
	Criteria   domain.Criteria           `json:"criteria"`
	Conditions []domain.ConditionOutcome `json:"conditions"`
}

// CreateRule validates the draft and persists a new active-by-default rule.
func (s *Service) CreateRule(ctx context.Context, d RuleDraft) (*domain.CustomRule, error) {
	if strings.TrimSpace(d.UserID) == "" {
		return nil, fmt.Errorf("user id is required: %w", apperr.ErrValidation)
	}
	if err := validateMeta(d.Name, d.Category, d.Severity); err != nil {
		return nil, err
	}
	criteria, err := domain.ParseCriteria(d.Criteria)
	if err != nil {
		return nil, err
	}

	now := s.now()
	r := &domain.CustomRule{
		ID:          domain.RuleID(uuid.New().String()),
		UserID:      d.UserID,
		Name:        strings.TrimSpace(d.Name),
		Description: strings.TrimSpace(d.Description),
		Category:    strings.TrimSpace(d.Category),
		Severity:    d.Severity,
		Criteria:    criteria,
		Active:      d.Active == nil || *d.Active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Rules.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("create rule: %w", err)
	}
	s.log().Infow("rule created", "rule_id", r.ID, "user_id", r.UserID, "conditions", len(criteria.Conditions))
	return r, nil
}

// UpdateRule applies a partial update. Only the owner may update a rule.
func (s *Service) UpdateRule(ctx context.Context, id domain.RuleID, p RulePatch) (*domain.CustomRule, error) {
	existing, err := s.ownedRule(ctx, id, p.UserID)
	if err != nil {
		return nil, err
	}

	updated := *existing
	if p.Name != nil {
		updated.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		updated.Description = strings.TrimSpace(*p.Description)
	}
	if p.Category != nil {
		updated.Category = strings.TrimSpace(*p.Category)
	}
	if p.Severity != nil {
		updated.Severity = *p.Severity
	}
	if p.Active != nil {
		updated.Active = *p.Active
	}
	if err := validateMeta(updated.Name, updated.Category, updated.Severity); err != nil {
		return nil, err
	}
	if p.Criteria != nil {
		criteria, err := domain.ParseCriteria(p.Criteria)
		if err != nil {
			return nil, err
		}
		updated.Criteria = criteria
	}
	updated.UpdatedAt = s.now()

	if err := s.Rules.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("update rule: %w", err)
	}
	return &updated, nil
}

// DeleteRule removes the rule and its results and returns the deleted rule.
func (s *Service) DeleteRule(ctx context.Context, id domain.RuleID, userID string) (*domain.CustomRule, error) {
	existing, err := s.ownedRule(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if err := s.Rules.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("delete rule: %w", err)
	}
	s.log().Infow("rule deleted", "rule_id", id, "user_id", userID)
	return existing, nil
}

//
// ==== QUERIES ====
//

// GetRule returns one rule owned by userID.
func (s *Service) GetRule(ctx context.Context, id domain.RuleID, userID string) (*domain.CustomRule, error) {
	return s.ownedRule(ctx, id, userID)
}

// ListRules returns the user's rules, optionally only active ones.
func (s *Service) ListRules(ctx context.Context, userID string, activeOnly bool) ([]*domain.CustomRule, error) {
	return s.Rules.ListByUser(ctx, userID, activeOnly)
}

// GetRuleResultsForAnalysis returns the latest evaluation generation of an
// analysis owned by userID, newest first, with the rule embedded.
func (s *Service) GetRuleResultsForAnalysis(ctx context.Context, analysisID analysis.AnalysisID, userID string) ([]*domain.RuleResult, error) {
	if _, err := s.ownedAnalysis(ctx, analysisID, userID); err != nil {
		return nil, err
	}
	return s.Results.ListByAnalysis(ctx, analysisID)
}

//
// ==== EVALUATION ====
//

// EvaluateRulesForAnalysis evaluates every active rule of userID against the
// analysis, replaces the stored results with the new generation and returns
// them decorated with rule metadata. Sessions for the same analysis run one
// at a time; the replace itself is a single transaction.
func (s *Service) EvaluateRulesForAnalysis(ctx context.Context, analysisID analysis.AnalysisID, userID string) ([]domain.DecoratedRuleResult, error) {
	start := time.Now()

	a, err := s.ownedAnalysis(ctx, analysisID, userID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(string(analysisID))
	defer unlock()

	active, err := s.Rules.ListByUser(ctx, userID, true)
	if err != nil {
		return nil, fmt.Errorf("load active rules: %w", err)
	}

	now := s.now()
	results := make([]*domain.RuleResult, 0, len(active))
	out := make([]domain.DecoratedRuleResult, 0, len(active))
	matched := 0
	for _, rule := range active {
		res := &domain.RuleResult{
			ID:         uuid.New().String(),
			AnalysisID: analysisID,
			RuleID:     rule.ID,
			Matched:    s.Evaluator.EvaluateRule(rule, a),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if res.Matched {
			matched++
		}
		results = append(results, res)
		out = append(out, domain.Decorate(*res, rule))
	}

	if err := s.Results.ReplaceForAnalysis(ctx, analysisID, results); err != nil {
		return nil, fmt.Errorf("replace rule results: %w", err)
	}

	elapsed := time.Since(start)
	if s.Metrics != nil {
		s.Metrics.ObserveSession(len(active), matched, elapsed)
	}
	s.log().Infow("rules evaluated",
		"analysis_id", analysisID,
		"user_id", userID,
		"rules", len(active),
		"matched", matched,
		"duration", elapsed,
	)
	s.archive(ctx, a, now, out)
	return out, nil
}

// TestRule evaluates unsaved criteria against an analysis without persisting
// anything, reporting how each condition resolved.
func (s *Service) TestRule(ctx context.Context, analysisID analysis.AnalysisID, userID string, raw json.RawMessage) (*RuleTestResult, error) {
	criteria, err := domain.ParseCriteria(raw)
	if err != nil {
		return nil, err
	}
	a, err := s.ownedAnalysis(ctx, analysisID, userID)
	if err != nil {
		return nil, err
	}
	return &RuleTestResult{
		Matched:    s.Evaluator.EvaluateCriteria(criteria, a),
		Criteria:   criteria,
		Conditions: s.Evaluator.Trace(criteria, a),
	}, nil
}

// archive writes the generation snapshot when an archive store is configured.
// Failures are logged only; the results are already committed.
func (s *Service) archive(ctx context.Context, a *analysis.Analysis, at time.Time, out []domain.DecoratedRuleResult) {
	if s.Archive == nil {
		return
	}
	doc, err := json.Marshal(map[string]any{
		"analysisId":  a.ID,
		"userId":      a.UserID,
		"riskScore":   a.RiskScore,
		"evaluatedAt": at,
		"results":     out,
	})
	if err != nil {
		s.log().Warnw("archive encode failed", "analysis_id", a.ID, "error", err)
		return
	}
	key := fmt.Sprintf("%s/%s/%s.json", a.UserID, a.ID, at.UTC().Format("20060102T150405.000000000Z"))
	url, err := s.Archive.Put(ctx, key, doc)
	if err != nil {
		s.log().Warnw("archive upload failed", "analysis_id", a.ID, "key", key, "error", err)
		return
	}
	s.log().Debugw("rule results archived", "analysis_id", a.ID, "url", url)
}

// helper
func (s *Service) ownedRule(ctx context.Context, id domain.RuleID, userID string) (*domain.CustomRule, error) {
	r, err := s.Rules.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.UserID != userID {
		return nil, fmt.Errorf("rule %s: %w", id, apperr.ErrUnauthorized)
	}
	return r, nil
}

func (s *Service) ownedAnalysis(ctx context.Context, id analysis.AnalysisID, userID string) (*analysis.Analysis, error) {
	a, err := s.Analyses.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, fmt.Errorf("analysis %s: %w", id, apperr.ErrUnauthorized)
	}
	return a, nil
}

func validateMeta(name, category string, severity int) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("rule name is required: %w", apperr.ErrValidation)
	}
	if strings.TrimSpace(category) == "" {
		return fmt.Errorf("rule category is required: %w", apperr.ErrValidation)
	}
	if severity < 1 || severity > 5 {
		return fmt.Errorf("rule severity must be between 1 and 5, got %d: %w", severity, apperr.ErrValidation)
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
