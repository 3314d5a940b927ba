package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalysisLookups(t *testing.T) {
	a := &Analysis{
		AreaScores: []AreaScore{{Area: "Access Control", Score: 5.2}, {Area: "Network Security", Score: 7}},
		Recommendations: []Recommendation{
			{Description: "Enable MFA", Category: "Access Control", Priority: 1},
			{Description: "Rotate keys", Category: "Cryptography", Priority: 2},
			{Description: "Review roles", Category: "Access Control", Priority: 3},
		},
		BenchmarkComparisons: []BenchmarkComparison{{Area: "Network Security", Score: 7, BenchmarkScore: 6.5, Percentile: 62}},
	}

	s, ok := a.AreaScore("Access Control")
	assert.True(t, ok)
	assert.Equal(t, 5.2, s.Score)

	_, ok = a.AreaScore("Physical Security")
	assert.False(t, ok)

	b, ok := a.Benchmark("Network Security")
	assert.True(t, ok)
	assert.Equal(t, 62.0, b.Percentile)

	assert.Equal(t, 3, a.CountRecommendations(""))
	assert.Equal(t, 2, a.CountRecommendations("Access Control"))
	assert.Equal(t, 0, a.CountRecommendations("Physical"))
}

func TestFrameworkValid(t *testing.T) {
	assert.True(t, FrameworkPCIDSS.Valid())
	assert.True(t, Framework("SOC2").Valid())
	assert.False(t, Framework("GDPR").Valid())
	assert.False(t, Framework("").Valid())
}
