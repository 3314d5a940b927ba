package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bryanwahyu/riskrules/internal/domain/analysis"
)

func sampleAnalysis() *analysis.Analysis {
	return &analysis.Analysis{
		ID:            "an-1",
		UserID:        "user-1",
		RiskScore:     3.5,
		SecurityLevel: analysis.LevelMediumRisk,
		AreaScores: []analysis.AreaScore{
			{Area: "Access Control", Score: 5.2},
			{Area: "Network Security", Score: 7.8},
		},
		Recommendations: []analysis.Recommendation{
			{Description: "Enforce MFA", Category: "Access Control", Priority: 1},
			{Description: "Segment VLANs", Category: "Network Security", Priority: 2},
			{Description: "Review admin roles", Category: "Access Control", Priority: 3},
		},
		BenchmarkComparisons: []analysis.BenchmarkComparison{
			{Area: "Network Security", Score: 7.8, BenchmarkScore: 6.1, Percentile: 81},
		},
	}
}

func TestParseFieldPath(t *testing.T) {
	tests := []struct {
		field string
		want  FieldPath
	}{
		{"riskScore", ScalarPath{Name: FieldRiskScore}},
		{"riskScore.extra.parts", ScalarPath{Name: FieldRiskScore}},
		{"securityLevel", ScalarPath{Name: FieldSecurityLevel}},
		{"areaScores.Access Control", AreaScorePath{Area: "Access Control"}},
		{"areaScores", UnknownPath{Raw: "areaScores"}},
		{"areaScores.", UnknownPath{Raw: "areaScores."}},
		{"recommendations", RecommendationCountPath{All: true}},
		{"recommendations.Access Control", RecommendationCountPath{Category: "Access Control"}},
		{"benchmarkComparisons.Network Security.percentile", BenchmarkFieldPath{Area: "Network Security", SubField: SubFieldPercentile}},
		{"benchmarkComparisons.Network Security.benchmarkScore", BenchmarkFieldPath{Area: "Network Security", SubField: SubFieldBenchmarkScore}},
		{"benchmarkComparisons.Network Security.median", UnknownPath{Raw: "benchmarkComparisons.Network Security.median"}},
		{"benchmarkComparisons.percentile", UnknownPath{Raw: "benchmarkComparisons.percentile"}},
		{"complianceScore", UnknownPath{Raw: "complianceScore"}},
		{"", UnknownPath{Raw: ""}},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseFieldPath(tt.field))
		})
	}
}

func TestResolve(t *testing.T) {
	a := sampleAnalysis()

	tests := []struct {
		field   string
		want    any
		defined bool
	}{
		{"riskScore", 3.5, true},
		{"securityLevel", "Medium Risk", true},
		{"areaScores.Access Control", 5.2, true},
		{"areaScores.Physical Security", nil, false},
		{"recommendations", 3.0, true},
		{"recommendations.Access Control", 2.0, true},
		{"recommendations.Cryptography", 0.0, true},
		{"benchmarkComparisons.Network Security.percentile", 81.0, true},
		{"benchmarkComparisons.Network Security.score", 7.8, true},
		{"benchmarkComparisons.Network Security.benchmarkScore", 6.1, true},
		{"benchmarkComparisons.NonexistentArea.percentile", nil, false},
		{"unknownFacet", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			got, ok := Resolve(tt.field, a)
			assert.Equal(t, tt.defined, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveNilAnalysis(t *testing.T) {
	_, ok := Resolve("riskScore", nil)
	assert.False(t, ok)
}
