package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	appai "github.com/bryanwahyu/riskrules/internal/application/ai"
	appanalysis "github.com/bryanwahyu/riskrules/internal/application/analysis"
	apprules "github.com/bryanwahyu/riskrules/internal/application/rules"
	domai "github.com/bryanwahyu/riskrules/internal/domain/ai"
	"github.com/bryanwahyu/riskrules/internal/domain/analysis"
	"github.com/bryanwahyu/riskrules/internal/domain/apperr"
	"github.com/bryanwahyu/riskrules/internal/domain/rules"
	"github.com/bryanwahyu/riskrules/internal/middleware"
)

const maxBodyBytes = 1 << 20

var errUnauthenticated = errors.New("unauthenticated")

// Deps wires the router. AI, RateLimiter and Checkers are optional.
type Deps struct {
	Analyses    *appanalysis.Service
	Rules       *apprules.Service
	AI          *appai.Service
	Logger      *zap.SugaredLogger
	APIKeys     map[string]string
	RateLimiter *middleware.RateLimiter
	CORSOrigins []string
	Checkers    map[string]middleware.HealthChecker
}

type Router struct {
	analyses *appanalysis.Service
	rules    *apprules.Service
	ai       *appai.Service
	log      *zap.SugaredLogger
}

func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	r := &Router{analyses: d.Analyses, rules: d.Rules, ai: d.AI, log: logger}

	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.LoggingMiddleware(logger))
	mux.Use(middleware.APIKeyAuth(d.APIKeys))
	if d.RateLimiter != nil {
		mux.Use(middleware.RateLimitMiddleware(d.RateLimiter))
	}

	mux.Get("/health", middleware.LivenessHandler)
	mux.Get("/healthz", middleware.LivenessHandler)
	mux.Get("/readyz", middleware.HealthHandler(d.Checkers))
	mux.Method(http.MethodGet, "/metrics", middleware.MetricsHandler())

	mux.Route("/v1", func(rt chi.Router) {
		rt.Route("/analyses", func(rt chi.Router) {
			rt.Post("/", r.wrap(r.handleCreateAnalysis))
			rt.Get("/", r.wrap(r.handleListAnalyses))
			rt.Get("/{id}", r.wrap(r.handleGetAnalysis))
			rt.Post("/{id}/benchmarks", r.wrap(r.handleCompareBenchmarks))
			rt.Post("/{id}/evaluate", r.wrap(r.handleEvaluate))
			rt.Get("/{id}/rule-results", r.wrap(r.handleRuleResults))
			rt.Post("/{id}/rules/test", r.wrap(r.handleTestRule))
		})
		rt.Route("/rules", func(rt chi.Router) {
			rt.Post("/", r.wrap(r.handleCreateRule))
			rt.Get("/", r.wrap(r.handleListRules))
			rt.Post("/draft", r.wrap(r.handleDraftCriteria))
			rt.Get("/{id}", r.wrap(r.handleGetRule))
			rt.Patch("/{id}", r.wrap(r.handleUpdateRule))
			rt.Delete("/{id}", r.wrap(r.handleDeleteRule))
		})
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		var invalid *rules.InvalidCriteriaError
		switch {
		case errors.Is(err, errUnauthenticated):
			writeError(w, http.StatusUnauthorized, "unauthenticated")
		case errors.Is(err, apperr.ErrNotFound):
			writeError(w, http.StatusNotFound, "not found")
		case errors.Is(err, apperr.ErrUnauthorized):
			writeError(w, http.StatusForbidden, "forbidden")
		case errors.As(err, &invalid):
			writeError(w, http.StatusBadRequest, invalid.Error())
		case errors.Is(err, apperr.ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domai.ErrDisabled):
			writeError(w, http.StatusServiceUnavailable, "ai drafting is not configured")
		case errors.Is(err, domai.ErrQuotaExceeded):
			writeError(w, http.StatusTooManyRequests, "ai quota exceeded")
		default:
			r.log.Errorw("request failed",
				"method", req.Method,
				"path", req.URL.Path,
				"request_id", chimw.GetReqID(req.Context()),
				"error", err,
			)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	_ = writeJSON(w, status, map[string]string{"error": msg})
}

// decode reads a JSON body into dst and runs its validate tags.
func decode(w http.ResponseWriter, req *http.Request, dst any) error {
	body := http.MaxBytesReader(w, req.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is required: %w", apperr.ErrValidation)
		}
		return fmt.Errorf("invalid JSON body: %v: %w", err, apperr.ErrValidation)
	}
	if err := middleware.ValidateStruct(dst); err != nil {
		return fmt.Errorf("%v: %w", err, apperr.ErrValidation)
	}
	return nil
}

func userFrom(req *http.Request) (string, error) {
	user := middleware.GetUserFromContext(req.Context())
	if user == "" {
		return "", errUnauthenticated
	}
	return user, nil
}

//
// ==== ANALYSES ====
//

type areaRequest struct {
	Area   string  `json:"area" validate:"required,max=191"`
	Score  float64 `json:"score" validate:"gte=0,lte=10"`
	Weight float64 `json:"weight" validate:"gte=0"`
}

type recommendationRequest struct {
	Description string `json:"description" validate:"required"`
	Category    string `json:"category" validate:"required,max=191"`
	Priority    int    `json:"priority" validate:"min=1,max=5"`
}

type createAnalysisRequest struct {
	Framework       string                  `json:"framework" validate:"required,oneof=ISO27001 SOC2 HIPAA PCI-DSS NIST"`
	Areas           []areaRequest           `json:"areas" validate:"required,min=1,dive"`
	Recommendations []recommendationRequest `json:"recommendations" validate:"dive"`
}

// POST /v1/analyses
func (r *Router) handleCreateAnalysis(w http.ResponseWriter, req *http.Request) error {
	user, err := userFrom(req)
	if err != nil {
		return err
	}
	var body createAnalysisRequest
	if err := decode(w, req, &body); err != nil {
		return err
	}

	d := appanalysis.AnalysisDraft{UserID: user, Framework: analysis.Framework(body.Framework)}
	for _, a := range body.Areas {
		d.Areas = append(d.Areas, appanalysis.AreaInput{
			Area:   middleware.SanitizeString(a.Area),
			Score:  a.Score,
			Weight: a.Weight,
		})
	}
	for _, rec := range body.Recommendations {
		d.Recommendations = append(d.Recommendations, analysis.Recommendation{
			Description: middleware.SanitizeString(rec.Description),
			Category:    middleware.SanitizeString(rec.Category),
			Priority:    rec.Priority,
		})
	}

	a, err := r.analyses.CreateAnalysis(req.Context(), d)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, a)
}

// GET /v1/analyses?limit=
func (r *Router) handleListAnalyses(w http.ResponseWriter, req *http.Request) error {
	user, err := userFrom(req)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.analyses.ListAnalyses(req.Context(), user, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	if list == nil {
		list = []*analysis.Analysis{}
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/analyses/{id}
func (r *Router) handleGetAnalysis(w http.ResponseWriter, req *http.Request) error {
	user, err := userFrom(req)
	if err != nil {
		return err
	}
	a, err := r.analyses.GetAnalysis(req.Context(), analysis.AnalysisID(chi.URLParam(req, "id")), user)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, a)
}

type compareBenchmarksRequest struct {
	Benchmarks []struct {
		Area   string  `json:"area" validate:"required"`
		Mean   float64 `json:"mean" validate:"gte=0,lte=10"`
		StdDev float64 `json:"stdDev" validate:"gte=0"`
	} `json:"benchmarks" validate:"required,min=1,dive"`
}

// POST /v1/analyses/{id}/benchmarks
func (r *Router) handleCompareBenchmarks(w http.ResponseWriter, req *http.Request) error {
	user, err := userFrom(req)
	if err != nil {
		return err
	}
	var body compareBenchmarksRequest
	if err := decode(w, req, &body); err != nil {
		return err
	}
	benchmarks := make([]appanalysis.Benchmark, 0, len(body.Benchmarks))
	for _, b := range body.Benchmarks {
		benchmarks = append(benchmarks, appanalysis.Benchmark{Area: b.Area, Mean: b.Mean, StdDev: b.StdDev})
	}

	comps, err := r.analyses.CompareBenchmarks(req.Context(), analysis.AnalysisID(chi.URLParam(req, "id")), user, benchmarks)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, comps)
}

// POST /v1/analyses/{id}/evaluate
func (r *Router) handleEvaluate(w http.ResponseWriter, req *http.Request) error {
	user, err := userFrom(req)
	if err != nil {
		return err
	}
	out, err := r.rules.EvaluateRulesForAnalysis(req.Context(), analysis.AnalysisID(chi.URLParam(req, "id")), user)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, out)
}

// GET /v1/analyses/{id}/rule-results
func (r *Router) handleRuleResults(w http.ResponseWriter, req *http.Request) error {
	user, err := userFrom(req)
	if err != nil {
		return err
	}
	out, err := r.rules.GetRuleResultsForAnalysis(req.Context(), analysis.AnalysisID(chi.URLParam(req, "id")), user)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, out)
}

type testRuleRequest struct {
	Criteria json.RawMessage `json:"criteria" validate:"required"`
}

// POST /v1/analyses/{id}/rules/test
func (r *Router) handleTestRule(w http.ResponseWriter, req *http.Request) error {
	user, err := userFrom(req)
	if err != nil {
		return err
	}
	var body testRuleRequest
	if err := decode(w, req, &body); err != nil {
		return err
	}
	res, err := r.rules.TestRule(req.Context(), analysis.AnalysisID(chi.URLParam(req, "id")), user, body.Criteria)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, res)
}

//
// ==== RULES ====
//

type createRuleRequest struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description" validate:"max=2000"`
	Category    string          `json:"category" validate:"required,max=100"`
	Severity    int             `json:"severity" validate:"min=1,max=5"`
	Criteria    json.RawMessage `json:"criteria" validate:"required"`
	Active      *bool           `json:"active"`
}

// POST /v1/rules
func (r *Router) handleCreateRule(w http.ResponseWriter, req *http.Request) error {
	user, err := userFrom(req)
	if err != nil {
		return err
	}
	var body createRuleRequest
	if err := decode(w, req, &body); err != nil {
		return err
	}
	rule, err := r.rules.CreateRule(req.Context(), apprules.RuleDraft{
		UserID:      user,
		Name:        middleware.SanitizeString(body.Name),
		Description: middleware.SanitizeString(body.Description),
		Category:    middleware.SanitizeString(body.Category),
		Severity:    body.Severity,
		Criteria:    body.Criteria,
		Active:      body.Active,
	})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, rule)
}

// GET /v1/rules?active=true
func (r *Router) handleListRules(w http.ResponseWriter, req *http.Request) error {
	user, err := userFrom(req)
	if err != nil {
		return err
	}
	activeOnly, _ := strconv.ParseBool(req.URL.Query().Get("active"))
	list, err := r.rules.ListRules(req.Context(), user, activeOnly)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/rules/{id}
func (r *Router) handleGetRule(w http.ResponseWriter, req *http.Request) error {
	user, err := userFrom(req)
	if err != nil {
		return err
	}
	rule, err := r.rules.GetRule(req.Context(), rules.RuleID(chi.URLParam(req, "id")), user)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rule)
}

type updateRuleRequest struct {
	Name        *string         `json:"name" validate:"omitempty,max=200"`
	Description *string         `json:"description" validate:"omitempty,max=2000"`
	Category    *string         `json:"category" validate:"omitempty,max=100"`
	Severity    *int            `json:"severity" validate:"omitempty,min=1,max=5"`
	Criteria    json.RawMessage `json:"criteria"`
	Active      *bool           `json:"active"`
}

// PATCH /v1/rules/{id}
func (r *Router) handleUpdateRule(w http.ResponseWriter, req *http.Request) error {
	user, err := userFrom(req)
	if err != nil {
		return err
	}
	var body updateRuleRequest
	if err := decode(w, req, &body); err != nil {
		return err
	}
	rule, err := r.rules.UpdateRule(req.Context(), rules.RuleID(chi.URLParam(req, "id")), apprules.RulePatch{
		UserID:      user,
		Name:        sanitizePtr(body.Name),
		Description: sanitizePtr(body.Description),
		Category:    sanitizePtr(body.Category),
		Severity:    body.Severity,
		Criteria:    body.Criteria,
		Active:      body.Active,
	})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rule)
}

// DELETE /v1/rules/{id}
func (r *Router) handleDeleteRule(w http.ResponseWriter, req *http.Request) error {
	user, err := userFrom(req)
	if err != nil {
		return err
	}
	rule, err := r.rules.DeleteRule(req.Context(), rules.RuleID(chi.URLParam(req, "id")), user)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rule)
}

type draftCriteriaRequest struct {
	Description string `json:"description" validate:"required,max=2000"`
}

// POST /v1/rules/draft
func (r *Router) handleDraftCriteria(w http.ResponseWriter, req *http.Request) error {
	if _, err := userFrom(req); err != nil {
		return err
	}
	if r.ai == nil {
		return domai.ErrDisabled
	}
	var body draftCriteriaRequest
	if err := decode(w, req, &body); err != nil {
		return err
	}
	criteria, err := r.ai.DraftCriteria(req.Context(), middleware.SanitizeString(body.Description))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"criteria": criteria})
}

func sanitizePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := middleware.SanitizeString(*s)
	return &v
}
