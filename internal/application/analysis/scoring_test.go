package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	domain "github.com/bryanwahyu/riskrules/internal/domain/analysis"
)

func TestCalculateRiskScores(t *testing.T) {
	tests := []struct {
		name  string
		areas []AreaInput
		risk  float64
	}{
		{"plain average", []AreaInput{{Area: "A", Score: 5.2}, {Area: "B", Score: 7.8}}, 6.5},
		{"weighted", []AreaInput{{Area: "A", Score: 4, Weight: 3}, {Area: "B", Score: 8, Weight: 1}}, 5},
		{"clamped", []AreaInput{{Area: "A", Score: 12}}, 10},
		{"rounded", []AreaInput{{Area: "A", Score: 3.33}, {Area: "B", Score: 3.33}, {Area: "C", Score: 3.34}}, 3.3},
		{"empty", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			risk, scores := CalculateRiskScores(tt.areas)
			assert.InDelta(t, tt.risk, risk, 1e-9)
			assert.Len(t, scores, len(tt.areas))
		})
	}
}

func TestCalculateRiskScores_KeepsAreaOrder(t *testing.T) {
	_, scores := CalculateRiskScores([]AreaInput{{Area: "Network Security", Score: 7.84}, {Area: "Access Control", Score: 5.2}})
	assert.Equal(t, []domain.AreaScore{
		{Area: "Network Security", Score: 7.8},
		{Area: "Access Control", Score: 5.2},
	}, scores)
}

func TestSecurityLevelFor(t *testing.T) {
	assert.Equal(t, domain.LevelMinimalRisk, SecurityLevelFor(8))
	assert.Equal(t, domain.LevelLowRisk, SecurityLevelFor(7.9))
	assert.Equal(t, domain.LevelLowRisk, SecurityLevelFor(6))
	assert.Equal(t, domain.LevelMediumRisk, SecurityLevelFor(4))
	assert.Equal(t, domain.LevelHighRisk, SecurityLevelFor(3.9))
	assert.Equal(t, domain.LevelHighRisk, SecurityLevelFor(0))
}

func TestCompareToBenchmarks(t *testing.T) {
	scores := []domain.AreaScore{
		{Area: "Access Control", Score: 5},
		{Area: "Network Security", Score: 7},
		{Area: "Physical", Score: 3},
	}
	out := CompareToBenchmarks(scores, []Benchmark{
		{Area: "Access Control", Mean: 5, StdDev: 1},
		{Area: "Network Security", Mean: 6, StdDev: 1},
		{Area: "Unused", Mean: 1, StdDev: 1},
	})

	assert.Equal(t, []domain.BenchmarkComparison{
		{Area: "Access Control", Score: 5, BenchmarkScore: 5, Percentile: 50},
		{Area: "Network Security", Score: 7, BenchmarkScore: 6, Percentile: 84},
	}, out)
}

func TestPercentileWithoutSpread(t *testing.T) {
	assert.Equal(t, 100.0, percentile(6, 5, 0))
	assert.Equal(t, 0.0, percentile(4, 5, 0))
	assert.Equal(t, 50.0, percentile(5, 5, -1))
}
