package consolidate

import (
	"strings"

	"github.com/tapestry-analytics/tapestry/pkg/common"
)

// NoSystemsData is the outcome reported when a consolidation pass yields
// zero entities and relationships. It is a valid result, not an error.
const NoSystemsData = "no systems data extracted"

type relationKey struct {
	From string
	Type common.RelationType
	To   string
}

// MergeEntities folds incoming chunk-level entity observations into
// existing ones. Identity is the exact name; when two observations share
// a name, the higher confidence wins and ties keep the first seen.
// Within one document repeated chunk observations re-measure the same
// fact, so max is the right combiner here (averaging belongs to the
// cross-document pass).
func MergeEntities(existing, incoming []common.ExtractedEntity) []common.ExtractedEntity {
	index := make(map[string]int, len(existing))
	for i := range existing {
		index[existing[i].Name] = i
	}

	for _, entity := range incoming {
		i, ok := index[entity.Name]
		if !ok {
			index[entity.Name] = len(existing)
			existing = append(existing, entity)
			continue
		}
		if entity.Confidence > existing[i].Confidence {
			existing[i] = entity
		}
	}
	return existing
}

// MergeRelationships folds incoming relationship observations into
// existing ones. Identity is the (fromName, type, toName) triple; higher
// confidence wins, and on an exact confidence tie the evidence strings
// are concatenated so provenance is not discarded.
func MergeRelationships(existing, incoming []common.ExtractedRelationship) []common.ExtractedRelationship {
	index := make(map[relationKey]int, len(existing))
	for i := range existing {
		index[keyOf(existing[i])] = i
	}

	for _, rel := range incoming {
		key := keyOf(rel)
		i, ok := index[key]
		if !ok {
			index[key] = len(existing)
			existing = append(existing, rel)
			continue
		}
		switch {
		case rel.Confidence > existing[i].Confidence:
			existing[i] = rel
		case rel.Confidence == existing[i].Confidence:
			existing[i].Evidence = concatEvidence(existing[i].Evidence, rel.Evidence)
		}
	}
	return existing
}

// Document runs a full per-document consolidation pass over raw
// chunk-level extractions.
func Document(
	entities []common.ExtractedEntity,
	relationships []common.ExtractedRelationship,
) ([]common.ExtractedEntity, []common.ExtractedRelationship) {
	mergedEntities := MergeEntities(nil, entities)
	mergedRelationships := MergeRelationships(nil, relationships)
	return mergedEntities, mergedRelationships
}

// FromDocument converts one document's consolidated pass into canonical
// records, each carrying the contributing document id and a single
// occurrence for later corpus-level averaging.
func FromDocument(
	documentID string,
	entities []common.ExtractedEntity,
	relationships []common.ExtractedRelationship,
) ([]common.ConsolidatedEntity, []common.ConsolidatedRelationship) {
	consolidatedEntities := make([]common.ConsolidatedEntity, 0, len(entities))
	for _, e := range entities {
		consolidatedEntities = append(consolidatedEntities, common.ConsolidatedEntity{
			Name:        e.Name,
			Type:        e.Type,
			Category:    e.Category,
			Description: e.Description,
			Confidence:  e.Confidence,
			Occurrences: 1,
			DocumentIDs: []string{documentID},
		})
	}

	consolidatedRelationships := make([]common.ConsolidatedRelationship, 0, len(relationships))
	for _, r := range relationships {
		consolidatedRelationships = append(consolidatedRelationships, common.ConsolidatedRelationship{
			FromName:    r.FromName,
			ToName:      r.ToName,
			Type:        r.Type,
			Strength:    r.Strength,
			Confidence:  r.Confidence,
			Evidence:    r.Evidence,
			Occurrences: 1,
			DocumentIDs: []string{documentID},
		})
	}

	return consolidatedEntities, consolidatedRelationships
}

func keyOf(r common.ExtractedRelationship) relationKey {
	return relationKey{From: r.FromName, Type: r.Type, To: r.ToName}
}

func concatEvidence(a, b string) string {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + "\n\n" + b
}
