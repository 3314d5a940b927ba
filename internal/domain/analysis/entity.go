package analysis

import "time"

// AnalysisID identifier type
type AnalysisID string

// Framework enum
type Framework string

const (
	FrameworkISO27001 Framework = "ISO27001"
	FrameworkSOC2     Framework = "SOC2"
	FrameworkHIPAA    Framework = "HIPAA"
	FrameworkPCIDSS   Framework = "PCI-DSS"
	FrameworkNIST     Framework = "NIST"
)

// Valid reports whether f is one of the supported questionnaire frameworks.
func (f Framework) Valid() bool {
	switch f {
	case FrameworkISO27001, FrameworkSOC2, FrameworkHIPAA, FrameworkPCIDSS, FrameworkNIST:
		return true
	}
	return false
}

// SecurityLevel enum
type SecurityLevel string

const (
	LevelHighRisk    SecurityLevel = "High Risk"
	LevelMediumRisk  SecurityLevel = "Medium Risk"
	LevelLowRisk     SecurityLevel = "Low Risk"
	LevelMinimalRisk SecurityLevel = "Minimal Risk"
)

// AreaScore value object
type AreaScore struct {
	Area  string  `json:"area"`
	Score float64 `json:"score"`
}

// Recommendation value object
type Recommendation struct {
	Description string `json:"description"`
	Category    string `json:"category"`
	Priority    int    `json:"priority"`
}

// BenchmarkComparison value object
type BenchmarkComparison struct {
	Area           string  `json:"area"`
	Score          float64 `json:"score"`
	BenchmarkScore float64 `json:"benchmarkScore"`
	Percentile     float64 `json:"percentile"`
}

// Aggregate Root: Analysis
//
// An analysis is immutable once created, except for BenchmarkComparisons
// which a benchmark comparison run replaces wholesale.
type Analysis struct {
	ID                   AnalysisID            `json:"id"`
	UserID               string                `json:"userId"`
	Framework            Framework             `json:"framework"`
	RiskScore            float64               `json:"riskScore"`
	SecurityLevel        SecurityLevel         `json:"securityLevel"`
	AreaScores           []AreaScore           `json:"areaScores"`
	Recommendations      []Recommendation      `json:"recommendations"`
	BenchmarkComparisons []BenchmarkComparison `json:"benchmarkComparisons"`
	CreatedAt            time.Time             `json:"createdAt"`
	UpdatedAt            time.Time             `json:"updatedAt"`
}

// AreaScore looks up the score entry for area.
func (a *Analysis) AreaScore(area string) (AreaScore, bool) {
	for _, s := range a.AreaScores {
		if s.Area == area {
			return s, true
		}
	}
	return AreaScore{}, false
}

// Benchmark looks up the benchmark comparison for area.
func (a *Analysis) Benchmark(area string) (BenchmarkComparison, bool) {
	for _, b := range a.BenchmarkComparisons {
		if b.Area == area {
			return b, true
		}
	}
	return BenchmarkComparison{}, false
}

// CountRecommendations counts recommendations in category, or all of them
// when category is empty.
func (a *Analysis) CountRecommendations(category string) int {
	if category == "" {
		return len(a.Recommendations)
	}
	n := 0
	for _, r := range a.Recommendations {
		if r.Category == category {
			n++
		}
	}
	return n
}
