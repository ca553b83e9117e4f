package graphmap

import (
	"sort"
	"strings"

	"github.com/tapestry-analytics/tapestry/pkg/common"
)

// Filters narrows which consolidated records contribute to a systems map.
// A zero value keeps everything.
type Filters struct {
	EntityType    common.EntityType
	MinConfidence float64
}

// Map is a renderable node/edge projection of consolidated records for a
// requested document set. It is recomputed on every request.
type Map struct {
	Nodes []common.GraphNode `json:"nodes"`
	Edges []common.GraphEdge `json:"edges"`
}

// Slug derives a stable node id from an entity name by lower-casing it
// and collapsing every run of non-alphanumeric characters to a hyphen.
func Slug(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	b.Grow(len(lower))
	pendingHyphen := false
	for _, r := range lower {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isAlnum {
			pendingHyphen = b.Len() > 0
			continue
		}
		if pendingHyphen {
			b.WriteByte('-')
			pendingHyphen = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Build assembles a systems map from consolidated records. Entities are
// filtered, grouped by name into nodes (document sets unioned, confidence
// averaged across occurrences); relationships are grouped by
// (slugFrom, type, slugTo) with descriptions concatenated, confidence
// averaged, and strength escalated to the strongest observation. Edges
// whose endpoints were filtered out are dropped.
func Build(
	entities []common.ConsolidatedEntity,
	relationships []common.ConsolidatedRelationship,
	filters Filters,
) *Map {
	type nodeAccum struct {
		node          common.GraphNode
		confidenceSum float64
		occurrences   int
	}

	nodes := make(map[string]*nodeAccum)
	for _, entity := range entities {
		if filters.EntityType != "" && entity.Type != filters.EntityType {
			continue
		}
		if entity.Confidence < filters.MinConfidence {
			continue
		}

		id := Slug(entity.Name)
		if id == "" {
			continue
		}
		occurrences := max(entity.Occurrences, 1)

		accum, ok := nodes[id]
		if !ok {
			nodes[id] = &nodeAccum{
				node: common.GraphNode{
					ID:          id,
					Name:        entity.Name,
					Type:        entity.Type,
					DocumentIDs: append([]string(nil), entity.DocumentIDs...),
				},
				confidenceSum: entity.Confidence * float64(occurrences),
				occurrences:   occurrences,
			}
			continue
		}
		accum.confidenceSum += entity.Confidence * float64(occurrences)
		accum.occurrences += occurrences
		accum.node.DocumentIDs = common.MergeDocumentIDs(accum.node.DocumentIDs, entity.DocumentIDs)
	}

	type edgeKey struct {
		From string
		Type common.RelationType
		To   string
	}
	type edgeAccum struct {
		edge          common.GraphEdge
		confidenceSum float64
		occurrences   int
	}

	edges := make(map[edgeKey]*edgeAccum)
	for _, rel := range relationships {
		key := edgeKey{From: Slug(rel.FromName), Type: rel.Type, To: Slug(rel.ToName)}
		if nodes[key.From] == nil || nodes[key.To] == nil {
			continue
		}
		occurrences := max(rel.Occurrences, 1)

		accum, ok := edges[key]
		if !ok {
			edges[key] = &edgeAccum{
				edge: common.GraphEdge{
					From:        key.From,
					To:          key.To,
					Type:        rel.Type,
					Strength:    rel.Strength,
					Description: rel.Evidence,
					DocumentIDs: append([]string(nil), rel.DocumentIDs...),
				},
				confidenceSum: rel.Confidence * float64(occurrences),
				occurrences:   occurrences,
			}
			continue
		}
		accum.confidenceSum += rel.Confidence * float64(occurrences)
		accum.occurrences += occurrences
		accum.edge.DocumentIDs = common.MergeDocumentIDs(accum.edge.DocumentIDs, rel.DocumentIDs)
		accum.edge.Description = concat(accum.edge.Description, rel.Evidence)
		// Escalation is monotonic: a weaker later observation never downgrades.
		if rel.Strength.Rank() > accum.edge.Strength.Rank() {
			accum.edge.Strength = rel.Strength
		}
	}

	result := &Map{
		Nodes: make([]common.GraphNode, 0, len(nodes)),
		Edges: make([]common.GraphEdge, 0, len(edges)),
	}
	for _, accum := range nodes {
		accum.node.Confidence = accum.confidenceSum / float64(accum.occurrences)
		result.Nodes = append(result.Nodes, accum.node)
	}
	for _, accum := range edges {
		accum.edge.Confidence = accum.confidenceSum / float64(accum.occurrences)
		result.Edges = append(result.Edges, accum.edge)
	}

	sort.Slice(result.Nodes, func(i, j int) bool { return result.Nodes[i].ID < result.Nodes[j].ID })
	sort.Slice(result.Edges, func(i, j int) bool {
		a, b := result.Edges[i], result.Edges[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.To < b.To
	})
	return result
}

func concat(a, b string) string {
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
