package quality

import (
	"math"
	"strings"

	"github.com/tapestry-analytics/tapestry/pkg/common"
	"github.com/tapestry-analytics/tapestry/pkg/dedupe"
)

// HighConfidenceThreshold marks a consolidated record as high confidence
// for the corpus score's high-confidence ratio.
const HighConfidenceThreshold = 0.7

// DocumentInput holds the ingredients of a document-level quality score.
type DocumentInput struct {
	ThemeCount       int
	AvgConfidence    float64
	MatchedKeywords  int
	TotalKeywords    int
	SpecificityRatio float64
}

// DocumentScore computes the deterministic document-level extraction
// quality score:
//
//	min(themes/30, 1)*25 + avgConfidence*30 + keywordCoverage*25 + specificity*20
//
// clamped to [0,100] and rounded.
func DocumentScore(in DocumentInput) int {
	themePortion := math.Min(float64(in.ThemeCount)/30.0, 1) * 25

	confidencePortion := in.AvgConfidence * 30

	keywordPortion := 0.0
	if in.TotalKeywords > 0 {
		keywordPortion = float64(in.MatchedKeywords) / float64(in.TotalKeywords) * 25
	}

	specificityPortion := in.SpecificityRatio * 20

	return clamp(themePortion + confidencePortion + keywordPortion + specificityPortion)
}

// CorpusInput holds the ingredients of a corpus-level quality score.
type CorpusInput struct {
	AvgConfidence       float64
	HighConfidenceRatio float64
	CategoryCount       int
	ModelCount          int
}

// CorpusScore computes the deterministic corpus-level score: confidence
// is worth 40 points, the high-confidence ratio 30, category diversity
// min(categories/8, 1)*20, and model diversity 10 (one contributing
// model scores 5, two to four score 10, anything else 0).
func CorpusScore(in CorpusInput) int {
	confidencePortion := in.AvgConfidence * 40
	highConfidencePortion := in.HighConfidenceRatio * 30
	categoryPortion := math.Min(float64(in.CategoryCount)/8.0, 1) * 20

	modelPortion := 0.0
	switch {
	case in.ModelCount == 1:
		modelPortion = 5
	case in.ModelCount >= 2 && in.ModelCount <= 4:
		modelPortion = 10
	}

	return clamp(confidencePortion + highConfidencePortion + categoryPortion + modelPortion)
}

func clamp(score float64) int {
	rounded := int(math.Round(score))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}

// BuildDocumentInput derives a DocumentInput from a document's
// consolidated entities and its expected keyword list. A keyword matches
// when it appears, case-insensitively, in any entity name.
func BuildDocumentInput(entities []common.ConsolidatedEntity, expectedKeywords []string) DocumentInput {
	var themeNames []string
	confidenceSum := 0.0
	for _, e := range entities {
		confidenceSum += e.Confidence
		if e.Type == common.EntityTheme {
			themeNames = append(themeNames, e.Name)
		}
	}

	avgConfidence := 0.0
	if len(entities) > 0 {
		avgConfidence = confidenceSum / float64(len(entities))
	}

	matched := 0
	for _, keyword := range expectedKeywords {
		needle := strings.ToLower(strings.TrimSpace(keyword))
		if needle == "" {
			continue
		}
		for _, e := range entities {
			if strings.Contains(strings.ToLower(e.Name), needle) {
				matched++
				break
			}
		}
	}

	return DocumentInput{
		ThemeCount:       len(themeNames),
		AvgConfidence:    avgConfidence,
		MatchedKeywords:  matched,
		TotalKeywords:    len(expectedKeywords),
		SpecificityRatio: dedupe.SpecificityRatio(themeNames),
	}
}

// BuildCorpusInput derives a CorpusInput from corpus-level consolidated
// entities and the distinct extraction models that contributed.
func BuildCorpusInput(entities []common.ConsolidatedEntity, models []string) CorpusInput {
	confidenceSum := 0.0
	high := 0
	categories := make(map[string]struct{})
	for _, e := range entities {
		confidenceSum += e.Confidence
		if e.Confidence >= HighConfidenceThreshold {
			high++
		}
		if c := strings.TrimSpace(e.Category); c != "" {
			categories[strings.ToLower(c)] = struct{}{}
		}
	}

	avgConfidence := 0.0
	highRatio := 0.0
	if len(entities) > 0 {
		avgConfidence = confidenceSum / float64(len(entities))
		highRatio = float64(high) / float64(len(entities))
	}

	distinctModels := make(map[string]struct{})
	for _, m := range models {
		if m = strings.TrimSpace(m); m != "" {
			distinctModels[m] = struct{}{}
		}
	}

	return CorpusInput{
		AvgConfidence:       avgConfidence,
		HighConfidenceRatio: highRatio,
		CategoryCount:       len(categories),
		ModelCount:          len(distinctModels),
	}
}
