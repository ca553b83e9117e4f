package consolidate

import (
	"sort"

	"github.com/tapestry-analytics/tapestry/pkg/common"
)

// CorpusEntities merges per-document entity records into corpus-level
// canonical records keyed by exact name. Confidence is averaged over all
// contributing occurrences rather than maxed: repeated appearance across
// independent documents is population evidence, not noisy re-measurement
// of one fact. Document-id sets are unioned. Output order is
// deterministic (by name).
func CorpusEntities(records []common.ConsolidatedEntity) []common.ConsolidatedEntity {
	index := make(map[string]int, len(records))
	merged := make([]common.ConsolidatedEntity, 0, len(records))

	for _, record := range records {
		i, ok := index[record.Name]
		if !ok {
			index[record.Name] = len(merged)
			merged = append(merged, record)
			continue
		}
		merged[i] = mergeEntityPair(merged[i], record)
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].Name < merged[j].Name })
	return merged
}

// CorpusRelationships merges per-document relationship records into
// corpus-level records keyed by (fromName, type, toName). Confidence is
// averaged, evidence concatenated, document sets unioned, and strength
// escalated to the strongest observation; it never downgrades.
func CorpusRelationships(records []common.ConsolidatedRelationship) []common.ConsolidatedRelationship {
	type key struct {
		From string
		Type common.RelationType
		To   string
	}

	index := make(map[key]int, len(records))
	merged := make([]common.ConsolidatedRelationship, 0, len(records))

	for _, record := range records {
		k := key{From: record.FromName, Type: record.Type, To: record.ToName}
		i, ok := index[k]
		if !ok {
			index[k] = len(merged)
			merged = append(merged, record)
			continue
		}
		merged[i] = mergeRelationshipPair(merged[i], record)
	}

	sort.Slice(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.FromName != b.FromName {
			return a.FromName < b.FromName
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.ToName < b.ToName
	})
	return merged
}

func mergeEntityPair(a, b common.ConsolidatedEntity) common.ConsolidatedEntity {
	occurrences := a.Occurrences + b.Occurrences
	a.Confidence = weightedAverage(a.Confidence, a.Occurrences, b.Confidence, b.Occurrences)
	a.Occurrences = occurrences
	a.DocumentIDs = common.MergeDocumentIDs(a.DocumentIDs, b.DocumentIDs)
	if a.Category == "" {
		a.Category = b.Category
	}
	if len(b.Description) > len(a.Description) {
		a.Description = b.Description
	}
	return a
}

func mergeRelationshipPair(a, b common.ConsolidatedRelationship) common.ConsolidatedRelationship {
	occurrences := a.Occurrences + b.Occurrences
	a.Confidence = weightedAverage(a.Confidence, a.Occurrences, b.Confidence, b.Occurrences)
	a.Occurrences = occurrences
	a.DocumentIDs = common.MergeDocumentIDs(a.DocumentIDs, b.DocumentIDs)
	a.Evidence = concatEvidence(a.Evidence, b.Evidence)
	if b.Strength.Rank() > a.Strength.Rank() {
		a.Strength = b.Strength
	}
	return a
}

func weightedAverage(aValue float64, aCount int, bValue float64, bCount int) float64 {
	total := aCount + bCount
	if total == 0 {
		return 0
	}
	return (aValue*float64(aCount) + bValue*float64(bCount)) / float64(total)
}
