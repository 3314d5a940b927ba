package analysis

import (
	"math"

	domain "github.com/bryanwahyu/riskrules/internal/domain/analysis"
)

// AreaInput is one questionnaire area with its compliance score (0-10,
// higher is better) and relative weight. A zero weight counts as 1.
type AreaInput struct {
	Area   string  `json:"area"`
	Score  float64 `json:"score"`
	Weight float64 `json:"weight,omitempty"`
}

// Benchmark is an industry reference distribution for one area.
type Benchmark struct {
	Area   string  `json:"area"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
}

// CalculateRiskScores returns the weighted average of the area scores rounded
// to one decimal and clamped to 0-10, plus the per-area scores in input order.
func CalculateRiskScores(areas []AreaInput) (float64, []domain.AreaScore) {
	scores := make([]domain.AreaScore, 0, len(areas))
	var sum, weights float64
	for _, a := range areas {
		w := a.Weight
		if w == 0 {
			w = 1
		}
		s := clamp(round1(a.Score))
		scores = append(scores, domain.AreaScore{Area: a.Area, Score: s})
		sum += s * w
		weights += w
	}
	if weights == 0 {
		return 0, scores
	}
	return clamp(round1(sum / weights)), scores
}

// SecurityLevelFor maps a risk score to its display level.
func SecurityLevelFor(score float64) domain.SecurityLevel {
	switch {
	case score >= 8:
		return domain.LevelMinimalRisk
	case score >= 6:
		return domain.LevelLowRisk
	case score >= 4:
		return domain.LevelMediumRisk
	default:
		return domain.LevelHighRisk
	}
}

// CompareToBenchmarks builds one comparison per area that has a benchmark.
// The percentile assumes scores are normally distributed around the mean.
func CompareToBenchmarks(scores []domain.AreaScore, benchmarks []Benchmark) []domain.BenchmarkComparison {
	byArea := make(map[string]Benchmark, len(benchmarks))
	for _, b := range benchmarks {
		byArea[b.Area] = b
	}
	out := make([]domain.BenchmarkComparison, 0, len(scores))
	for _, s := range scores {
		b, ok := byArea[s.Area]
		if !ok {
			continue
		}
		out = append(out, domain.BenchmarkComparison{
			Area:           s.Area,
			Score:          s.Score,
			BenchmarkScore: round1(b.Mean),
			Percentile:     percentile(s.Score, b.Mean, b.StdDev),
		})
	}
	return out
}

func percentile(score, mean, stddev float64) float64 {
	if stddev <= 0 {
		switch {
		case score > mean:
			return 100
		case score < mean:
			return 0
		default:
			return 50
		}
	}
	z := (score - mean) / stddev
	return math.Round(50 * (1 + math.Erf(z/math.Sqrt2)))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(10, v))
}
