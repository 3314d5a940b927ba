package rules

import (
	"strings"

	"github.com/bryanwahyu/riskrules/internal/domain/analysis"
)

// Top-level facets of an analysis addressable from a condition field.
const (
	FieldRiskScore            = "riskScore"
	FieldSecurityLevel        = "securityLevel"
	FieldAreaScores           = "areaScores"
	FieldRecommendations      = "recommendations"
	FieldBenchmarkComparisons = "benchmarkComparisons"
)

// BenchmarkSubField names a numeric column of a benchmark comparison.
type BenchmarkSubField string

const (
	SubFieldPercentile     BenchmarkSubField = "percentile"
	SubFieldScore          BenchmarkSubField = "score"
	SubFieldBenchmarkScore BenchmarkSubField = "benchmarkScore"
)

// FieldPath is the parsed form of a dotted condition field. The concrete
// types below are the only implementations.
type FieldPath interface {
	fieldPath()
}

// ScalarPath addresses riskScore or securityLevel. Trailing segments are ignored.
type ScalarPath struct{ Name string }

// AreaScorePath addresses areaScores.<area>.
type AreaScorePath struct{ Area string }

// RecommendationCountPath addresses recommendations (All) or
// recommendations.<category>.
type RecommendationCountPath struct {
	Category string
	All      bool
}

// BenchmarkFieldPath addresses benchmarkComparisons.<area>.<subField>.
type BenchmarkFieldPath struct {
	Area     string
	SubField BenchmarkSubField
}

// UnknownPath is anything else; it never resolves.
type UnknownPath struct{ Raw string }

func (ScalarPath) fieldPath()              {}
func (AreaScorePath) fieldPath()           {}
func (RecommendationCountPath) fieldPath() {}
func (BenchmarkFieldPath) fieldPath()      {}
func (UnknownPath) fieldPath()             {}

// ParseFieldPath splits field on dots. Area names may contain spaces and, for
// areaScores, dots; the benchmark sub field is always the last segment.
func ParseFieldPath(field string) FieldPath {
	head, rest, hasRest := strings.Cut(field, ".")
	switch head {
	case FieldRiskScore, FieldSecurityLevel:
		return ScalarPath{Name: head}
	case FieldAreaScores:
		if !hasRest || rest == "" {
			break
		}
		return AreaScorePath{Area: rest}
	case FieldRecommendations:
		if !hasRest {
			return RecommendationCountPath{All: true}
		}
		if rest == "" {
			break
		}
		return RecommendationCountPath{Category: rest}
	case FieldBenchmarkComparisons:
		i := strings.LastIndex(rest, ".")
		if !hasRest || i <= 0 {
			break
		}
		switch sub := BenchmarkSubField(rest[i+1:]); sub {
		case SubFieldPercentile, SubFieldScore, SubFieldBenchmarkScore:
			return BenchmarkFieldPath{Area: rest[:i], SubField: sub}
		}
	}
	return UnknownPath{Raw: field}
}

// Resolve reads the value field addresses in a. The boolean is false when the
// field is unknown or the referenced entry does not exist.
func Resolve(field string, a *analysis.Analysis) (any, bool) {
	return ResolvePath(ParseFieldPath(field), a)
}

// ResolvePath is Resolve for an already parsed path. Numbers resolve as float64.
func ResolvePath(p FieldPath, a *analysis.Analysis) (any, bool) {
	if a == nil {
		return nil, false
	}
	switch p := p.(type) {
	case ScalarPath:
		if p.Name == FieldRiskScore {
			return a.RiskScore, true
		}
		return string(a.SecurityLevel), true
	case AreaScorePath:
		s, ok := a.AreaScore(p.Area)
		if !ok {
			return nil, false
		}
		return s.Score, true
	case RecommendationCountPath:
		return float64(a.CountRecommendations(p.Category)), true
	case BenchmarkFieldPath:
		b, ok := a.Benchmark(p.Area)
		if !ok {
			return nil, false
		}
		switch p.SubField {
		case SubFieldPercentile:
			return b.Percentile, true
		case SubFieldScore:
			return b.Score, true
		case SubFieldBenchmarkScore:
			return b.BenchmarkScore, true
		}
	}
	return nil, false
}
