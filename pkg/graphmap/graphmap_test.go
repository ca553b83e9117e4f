package graphmap

import (
	"reflect"
	"testing"

	"github.com/tapestry-analytics/tapestry/pkg/common"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Youth Hub", "youth-hub"},
		{"  Community & Family Services  ", "community-family-services"},
		{"Access to Services", "access-to-services"},
		{"A---B", "a-b"},
		{"2024 Strategy", "2024-strategy"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		if got := Slug(tt.name); got != tt.want {
			t.Errorf("Slug(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestBuildGroupsNodesByName(t *testing.T) {
	entities := []common.ConsolidatedEntity{
		{Name: "Youth Hub", Type: common.EntityService, Confidence: 0.9, Occurrences: 2, DocumentIDs: []string{"doc-1"}},
		{Name: "Youth Hub", Type: common.EntityService, Confidence: 0.6, Occurrences: 1, DocumentIDs: []string{"doc-2"}},
	}

	m := Build(entities, nil, Filters{})

	if len(m.Nodes) != 1 {
		t.Fatalf("expected one node, got %d", len(m.Nodes))
	}
	node := m.Nodes[0]
	if node.ID != "youth-hub" {
		t.Errorf("node id = %q, want %q", node.ID, "youth-hub")
	}
	want := (0.9*2 + 0.6*1) / 3
	if node.Confidence != want {
		t.Errorf("node confidence = %v, want %v", node.Confidence, want)
	}
	if !reflect.DeepEqual(node.DocumentIDs, []string{"doc-1", "doc-2"}) {
		t.Errorf("node documents = %v, want [doc-1 doc-2]", node.DocumentIDs)
	}
}

func TestBuildDropsEdgesWithMissingEndpoints(t *testing.T) {
	entities := []common.ConsolidatedEntity{
		{Name: "Youth Hub", Type: common.EntityService, Confidence: 0.9, Occurrences: 1},
	}
	relationships := []common.ConsolidatedRelationship{
		{FromName: "Youth Hub", ToName: "Community Wellbeing", Type: common.RelationSupports, Confidence: 0.8, Occurrences: 1},
	}

	m := Build(entities, relationships, Filters{})

	if len(m.Edges) != 0 {
		t.Fatalf("expected dangling edge to be dropped, got %d edges", len(m.Edges))
	}
}

func TestBuildMergesParallelEdges(t *testing.T) {
	entities := []common.ConsolidatedEntity{
		{Name: "Youth Hub", Type: common.EntityService, Confidence: 0.9, Occurrences: 1, DocumentIDs: []string{"doc-1"}},
		{Name: "Community Wellbeing", Type: common.EntityOutcome, Confidence: 0.8, Occurrences: 1, DocumentIDs: []string{"doc-1"}},
	}
	relationships := []common.ConsolidatedRelationship{
		{
			FromName: "Youth Hub", ToName: "Community Wellbeing",
			Type: common.RelationSupports, Strength: common.StrengthWeak,
			Confidence: 0.6, Occurrences: 1,
			Evidence: "annual report", DocumentIDs: []string{"doc-1"},
		},
		{
			FromName: "Youth Hub", ToName: "Community Wellbeing",
			Type: common.RelationSupports, Strength: common.StrengthStrong,
			Confidence: 0.8, Occurrences: 1,
			Evidence: "survey results", DocumentIDs: []string{"doc-2"},
		},
	}

	m := Build(entities, relationships, Filters{})

	if len(m.Edges) != 1 {
		t.Fatalf("expected one merged edge, got %d", len(m.Edges))
	}
	edge := m.Edges[0]
	if edge.Strength != common.StrengthStrong {
		t.Errorf("strength = %q, want strong", edge.Strength)
	}
	if edge.Confidence != 0.7 {
		t.Errorf("confidence = %v, want 0.7", edge.Confidence)
	}
	if edge.Description != "annual report\n\nsurvey results" {
		t.Errorf("description = %q", edge.Description)
	}
	if !reflect.DeepEqual(edge.DocumentIDs, []string{"doc-1", "doc-2"}) {
		t.Errorf("edge documents = %v", edge.DocumentIDs)
	}
}

func TestBuildStrengthNeverDowngrades(t *testing.T) {
	entities := []common.ConsolidatedEntity{
		{Name: "A", Type: common.EntityFactor, Confidence: 0.5, Occurrences: 1},
		{Name: "B", Type: common.EntityFactor, Confidence: 0.5, Occurrences: 1},
	}
	relationships := []common.ConsolidatedRelationship{
		{FromName: "A", ToName: "B", Type: common.RelationBlocks, Strength: common.StrengthStrong, Confidence: 0.5, Occurrences: 1},
		{FromName: "A", ToName: "B", Type: common.RelationBlocks, Strength: common.StrengthWeak, Confidence: 0.5, Occurrences: 1},
	}

	m := Build(entities, relationships, Filters{})

	if m.Edges[0].Strength != common.StrengthStrong {
		t.Errorf("strength = %q, want strong after weak observation", m.Edges[0].Strength)
	}
}

func TestBuildFilters(t *testing.T) {
	entities := []common.ConsolidatedEntity{
		{Name: "Youth Hub", Type: common.EntityService, Confidence: 0.9, Occurrences: 1},
		{Name: "Funding Cuts", Type: common.EntityFactor, Confidence: 0.9, Occurrences: 1},
		{Name: "Rumour", Type: common.EntityService, Confidence: 0.2, Occurrences: 1},
	}
	relationships := []common.ConsolidatedRelationship{
		{FromName: "Funding Cuts", ToName: "Youth Hub", Type: common.RelationBlocks, Confidence: 0.8, Occurrences: 1},
	}

	m := Build(entities, relationships, Filters{EntityType: common.EntityService, MinConfidence: 0.5})

	if len(m.Nodes) != 1 || m.Nodes[0].ID != "youth-hub" {
		t.Fatalf("nodes = %+v, want only youth-hub", m.Nodes)
	}
	// The factor endpoint was filtered out, so its edge goes too.
	if len(m.Edges) != 0 {
		t.Errorf("expected no edges after filtering, got %d", len(m.Edges))
	}
}

func TestBuildDeterministicOrdering(t *testing.T) {
	entities := []common.ConsolidatedEntity{
		{Name: "Zeta", Type: common.EntityTheme, Confidence: 0.5, Occurrences: 1},
		{Name: "Alpha", Type: common.EntityTheme, Confidence: 0.5, Occurrences: 1},
		{Name: "Mid", Type: common.EntityTheme, Confidence: 0.5, Occurrences: 1},
	}

	first := Build(entities, nil, Filters{})
	second := Build([]common.ConsolidatedEntity{entities[2], entities[0], entities[1]}, nil, Filters{})

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("map output depends on input order:\n%+v\n%+v", first, second)
	}
	if first.Nodes[0].ID != "alpha" || first.Nodes[2].ID != "zeta" {
		t.Errorf("nodes not sorted by id: %+v", first.Nodes)
	}
}
