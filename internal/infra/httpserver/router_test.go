package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	appai "github.com/bryanwahyu/riskrules/internal/application/ai"
	appanalysis "github.com/bryanwahyu/riskrules/internal/application/analysis"
	apprules "github.com/bryanwahyu/riskrules/internal/application/rules"
	domai "github.com/bryanwahyu/riskrules/internal/domain/ai"
	"github.com/bryanwahyu/riskrules/internal/infra/db/sqlite"
	"github.com/bryanwahyu/riskrules/internal/infra/db/sqlstore"
)

type fakeAI struct {
	answer string
	err    error
}

func (f fakeAI) DraftCriteria(context.Context, string) (string, error) { return f.answer, f.err }

var keys = map[string]string{"user-1": "key-one", "user-2": "key-two"}

func newTestServer(t *testing.T, ai domai.Client) http.Handler {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlstore.Migrate(ctx, db, sqlstore.SQLite))

	logger := zaptest.NewLogger(t).Sugar()
	analyses := sqlstore.NewAnalysisRepository(db, sqlstore.SQLite)

	d := Deps{
		Analyses: &appanalysis.Service{Repo: analyses, Logger: logger},
		Rules: &apprules.Service{
			Analyses: analyses,
			Rules:    sqlstore.NewRuleRepository(db, sqlstore.SQLite),
			Results:  sqlstore.NewRuleResultRepository(db, sqlstore.SQLite),
			Logger:   logger,
		},
		Logger:  logger,
		APIKeys: keys,
	}
	if ai != nil {
		d.AI = appai.NewService(ai)
	}
	return NewRouter(d)
}

func call(t *testing.T, h http.Handler, method, path, key string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

const analysisBody = `{
  "framework": "ISO27001",
  "areas": [
    {"area": "Access Control", "score": 3},
    {"area": "Network Security", "score": 4}
  ],
  "recommendations": [
    {"description": "Enforce MFA", "category": "Access Control", "priority": 1}
  ]
}`

func createAnalysis(t *testing.T, h http.Handler, key string) string {
	t.Helper()
	rec := call(t, h, http.MethodPost, "/v1/analyses", key, analysisBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[map[string]any](t, rec)["id"].(string)
}

func createRule(t *testing.T, h http.Handler, key, name, criteria string) string {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"category":"Access Control","severity":4,"criteria":%s}`, name, criteria)
	rec := call(t, h, http.MethodPost, "/v1/rules", key, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[map[string]any](t, rec)["id"].(string)
}

func TestHealthAndAuth(t *testing.T) {
	h := newTestServer(t, nil)

	assert.Equal(t, http.StatusOK, call(t, h, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, call(t, h, http.MethodGet, "/healthz", "", nil).Code)
	assert.Equal(t, http.StatusOK, call(t, h, http.MethodGet, "/readyz", "", nil).Code)
	assert.Equal(t, http.StatusOK, call(t, h, http.MethodGet, "/metrics", "", nil).Code)

	assert.Equal(t, http.StatusUnauthorized, call(t, h, http.MethodGet, "/v1/rules", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, call(t, h, http.MethodGet, "/v1/rules", "wrong", nil).Code)
	assert.Equal(t, http.StatusOK, call(t, h, http.MethodGet, "/v1/rules", "key-one", nil).Code)
}

func TestEvaluateFlow(t *testing.T) {
	h := newTestServer(t, nil)
	id := createAnalysis(t, h, "key-one")

	low := createRule(t, h, "key-one", "Low overall", `{"operator":"AND","conditions":[{"field":"riskScore","operator":"lessThan","value":5}]}`)
	createRule(t, h, "key-one", "Strong access", `{"conditions":[{"field":"areaScores.Access Control","operator":"greaterThan","value":8}]}`)

	rec := call(t, h, http.MethodPost, "/v1/analyses/"+id+"/evaluate", "key-one", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decodeBody[[]map[string]any](t, rec)
	require.Len(t, out, 2)
	for _, res := range out {
		assert.Equal(t, res["ruleId"] == low, res["matched"])
		assert.NotEmpty(t, res["ruleName"])
	}

	rec = call(t, h, http.MethodGet, "/v1/analyses/"+id+"/rule-results", "key-one", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stored := decodeBody[[]map[string]any](t, rec)
	require.Len(t, stored, 2)
	assert.NotNil(t, stored[0]["rule"])

	// deactivate one rule, the next session replaces the whole generation
	rec = call(t, h, http.MethodPatch, "/v1/rules/"+low, "key-one", `{"active":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = call(t, h, http.MethodPost, "/v1/analyses/"+id+"/evaluate", "key-one", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = call(t, h, http.MethodGet, "/v1/analyses/"+id+"/rule-results", "key-one", nil)
	assert.Len(t, decodeBody[[]map[string]any](t, rec), 1)
}

func TestOwnershipAndNotFound(t *testing.T) {
	h := newTestServer(t, nil)
	id := createAnalysis(t, h, "key-one")
	ruleID := createRule(t, h, "key-one", "Low overall", `{"conditions":[{"field":"riskScore","operator":"lessThan","value":5}]}`)

	assert.Equal(t, http.StatusForbidden, call(t, h, http.MethodGet, "/v1/analyses/"+id, "key-two", nil).Code)
	assert.Equal(t, http.StatusForbidden, call(t, h, http.MethodPost, "/v1/analyses/"+id+"/evaluate", "key-two", nil).Code)
	assert.Equal(t, http.StatusForbidden, call(t, h, http.MethodGet, "/v1/analyses/"+id+"/rule-results", "key-two", nil).Code)
	assert.Equal(t, http.StatusForbidden, call(t, h, http.MethodPatch, "/v1/rules/"+ruleID, "key-two", `{"name":"x"}`).Code)
	assert.Equal(t, http.StatusForbidden, call(t, h, http.MethodDelete, "/v1/rules/"+ruleID, "key-two", nil).Code)

	rec := call(t, h, http.MethodGet, "/v1/analyses/missing", "key-one", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", decodeBody[map[string]string](t, rec)["error"])
	assert.Equal(t, http.StatusNotFound, call(t, h, http.MethodDelete, "/v1/rules/missing", "key-one", nil).Code)

	rec = call(t, h, http.MethodDelete, "/v1/rules/"+ruleID, "key-one", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ruleID, decodeBody[map[string]any](t, rec)["id"])
	assert.Equal(t, http.StatusNotFound, call(t, h, http.MethodGet, "/v1/rules/"+ruleID, "key-one", nil).Code)
}

func TestValidationErrors(t *testing.T) {
	h := newTestServer(t, nil)
	id := createAnalysis(t, h, "key-one")

	tests := []struct {
		name string
		path string
		body string
		want string
	}{
		{"empty conditions", "/v1/rules", `{"name":"x","category":"c","severity":3,"criteria":{"operator":"AND","conditions":[]}}`, "invalid criteria"},
		{"unknown operator", "/v1/rules", `{"name":"x","category":"c","severity":3,"criteria":{"conditions":[{"field":"riskScore","operator":"like","value":1}]}}`, "unsupported operator"},
		{"missing name", "/v1/rules", `{"category":"c","severity":3,"criteria":{"conditions":[{"field":"riskScore","operator":"equals","value":1}]}}`, "name is required"},
		{"severity range", "/v1/rules", `{"name":"x","category":"c","severity":9,"criteria":{"conditions":[{"field":"riskScore","operator":"equals","value":1}]}}`, "severity must be at most 5"},
		{"broken json", "/v1/rules", `{"name":`, "invalid JSON body"},
		{"empty body", "/v1/rules", ``, "request body is required"},
		{"bad framework", "/v1/analyses", `{"framework":"GDPR","areas":[{"area":"a","score":1}]}`, "framework must be one of"},
		{"no benchmarks", "/v1/analyses/" + id + "/benchmarks", `{"benchmarks":[]}`, "benchmarks must be at least 1"},
		{"test rule", "/v1/analyses/" + id + "/rules/test", `{"criteria":{"operator":"NOR","conditions":[{"field":"riskScore","operator":"equals","value":1}]}}`, "criteria operator"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := call(t, h, http.MethodPost, tt.path, "key-one", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decodeBody[map[string]string](t, rec)["error"], tt.want)
		})
	}
}

func TestBenchmarksAndTestRule(t *testing.T) {
	h := newTestServer(t, nil)
	id := createAnalysis(t, h, "key-one")

	rec := call(t, h, http.MethodPost, "/v1/analyses/"+id+"/benchmarks", "key-one",
		`{"benchmarks":[{"area":"Network Security","mean":4,"stdDev":1}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	comps := decodeBody[[]map[string]any](t, rec)
	require.Len(t, comps, 1)
	assert.Equal(t, 50.0, comps[0]["percentile"])

	rec = call(t, h, http.MethodPost, "/v1/analyses/"+id+"/rules/test", "key-one",
		`{"criteria":{"conditions":[{"field":"benchmarkComparisons.Network Security.percentile","operator":"greaterThanEqual","value":50}]}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decodeBody[map[string]any](t, rec)
	assert.Equal(t, true, res["matched"])

	rec = call(t, h, http.MethodGet, "/v1/analyses", "key-one", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]map[string]any](t, rec), 1)

	rec = call(t, h, http.MethodGet, "/v1/analyses", "key-two", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[[]map[string]any](t, rec))
}

func TestDraftCriteria(t *testing.T) {
	h := newTestServer(t, nil)
	rec := call(t, h, http.MethodPost, "/v1/rules/draft", "key-one", `{"description":"weak access control"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	h = newTestServer(t, fakeAI{answer: `{"operator":"OR","conditions":[{"field":"areaScores.Access Control","operator":"lessThan","value":4}]}`})
	rec = call(t, h, http.MethodPost, "/v1/rules/draft", "key-one", `{"description":"weak access control"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody[map[string]map[string]any](t, rec)
	assert.Equal(t, "OR", body["criteria"]["operator"])

	h = newTestServer(t, fakeAI{err: fmt.Errorf("draft: %w", domai.ErrQuotaExceeded)})
	rec = call(t, h, http.MethodPost, "/v1/rules/draft", "key-one", `{"description":"weak access control"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	h = newTestServer(t, fakeAI{answer: `{"conditions":[]}`})
	rec = call(t, h, http.MethodPost, "/v1/rules/draft", "key-one", `{"description":"weak access control"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
