package dedupe

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tapestry-analytics/tapestry/pkg/common"
)

// SimilarityThreshold is the minimum similarity for a pair of entity
// names to be reported as duplicate candidates.
const SimilarityThreshold = 0.7

// MaxPairwiseEntities caps the O(n²) pairwise pass. Documents with more
// entities than this get a truncated pass and a warning; a cheaper
// pre-filter for large extractions remains an open scaling limit.
const MaxPairwiseEntities = 512

// Similarity scores how alike two entity names are, in [0,1]. Comparison
// is case-insensitive edit distance normalized by the longer name, with
// adjacent transpositions ("centre"/"center") counting as one edit.
// Symmetric: Similarity(a,b) == Similarity(b,a).
func Similarity(a, b string) float64 {
	la := []rune(strings.ToLower(a))
	lb := []rune(strings.ToLower(b))

	maxLen := max(len(la), len(lb))
	if maxLen == 0 {
		return 1
	}

	dist := editDistance(la, lb)
	return float64(maxLen-dist) / float64(maxLen)
}

// editDistance is the optimal string alignment distance: Levenshtein
// extended with adjacent transpositions, computed over three rolling rows.
func editDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev2 := make([]int, len(b)+1)
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
			if i > 1 && j > 1 && a[i-1] == b[j-2] && a[i-2] == b[j-1] {
				curr[j] = min(curr[j], prev2[j-2]+1)
			}
		}
		prev2, prev, curr = prev, curr, prev2
	}

	return prev[len(b)]
}

// FindCandidates compares every unordered pair of entities within one
// document and reports pairs above the similarity threshold, each with a
// recommended action that keeps the higher-confidence entity. Entity
// counts beyond MaxPairwiseEntities are truncated with a warning.
func FindCandidates(entities []common.ConsolidatedEntity) ([]common.DuplicateCandidate, []string) {
	var warnings []string

	if len(entities) > MaxPairwiseEntities {
		warnings = append(warnings, fmt.Sprintf(
			"duplicate detection truncated to the first %d of %d entities",
			MaxPairwiseEntities, len(entities),
		))
		entities = entities[:MaxPairwiseEntities]
	}

	var candidates []common.DuplicateCandidate
	for i := 0; i < len(entities); i++ {
		for j := i + 1; j < len(entities); j++ {
			sim := Similarity(entities[i].Name, entities[j].Name)
			if sim <= SimilarityThreshold {
				continue
			}
			candidates = append(candidates, common.DuplicateCandidate{
				EntityA:    entities[i].Name,
				EntityB:    entities[j].Name,
				Similarity: sim,
				Action:     recommendAction(entities[i], entities[j]),
			})
		}
	}

	return candidates, warnings
}

func recommendAction(a, b common.ConsolidatedEntity) string {
	keep, review := a, b
	if b.Confidence > a.Confidence {
		keep, review = b, a
	}
	return fmt.Sprintf("keep %q (higher confidence), review %q", keep.Name, review.Name)
}

// genericWords flags entity names that describe nothing in particular.
var genericWords = []string{"general", "various", "multiple", "other", "misc"}

// IsGenericName reports whether a name is too short or too vague to be a
// useful entity. Feeds the specificity ratio of the quality score.
func IsGenericName(name string) bool {
	trimmed := strings.TrimSpace(name)
	if utf8.RuneCountInString(trimmed) < 4 {
		return true
	}
	lower := strings.ToLower(trimmed)
	for _, word := range genericWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

// SpecificityRatio is (total − generic) / max(total, 1) over the given
// entity names.
func SpecificityRatio(names []string) float64 {
	generic := 0
	for _, name := range names {
		if IsGenericName(name) {
			generic++
		}
	}
	return float64(len(names)-generic) / float64(max(len(names), 1))
}
