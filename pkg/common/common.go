package common

import (
	"fmt"
	"strings"
)

// EntityType classifies a system element identified in text.
type EntityType string

const (
	EntityService EntityType = "service"
	EntityTheme   EntityType = "theme"
	EntityOutcome EntityType = "outcome"
	EntityFactor  EntityType = "factor"
)

// ParseEntityType validates and normalizes an entity type string.
func ParseEntityType(value string) (EntityType, error) {
	switch EntityType(strings.ToLower(strings.TrimSpace(value))) {
	case EntityService:
		return EntityService, nil
	case EntityTheme:
		return EntityTheme, nil
	case EntityOutcome:
		return EntityOutcome, nil
	case EntityFactor:
		return EntityFactor, nil
	}
	return "", fmt.Errorf("unknown entity type %q", value)
}

// RelationType classifies a directed connection between two entities.
type RelationType string

const (
	RelationSupports   RelationType = "supports"
	RelationBlocks     RelationType = "blocks"
	RelationEnables    RelationType = "enables"
	RelationInfluences RelationType = "influences"
	RelationRequires   RelationType = "requires"
)

// ParseRelationType validates and normalizes a relationship type string.
func ParseRelationType(value string) (RelationType, error) {
	switch RelationType(strings.ToLower(strings.TrimSpace(value))) {
	case RelationSupports:
		return RelationSupports, nil
	case RelationBlocks:
		return RelationBlocks, nil
	case RelationEnables:
		return RelationEnables, nil
	case RelationInfluences:
		return RelationInfluences, nil
	case RelationRequires:
		return RelationRequires, nil
	}
	return "", fmt.Errorf("unknown relationship type %q", value)
}

// Strength grades how firmly a relationship is asserted by its evidence.
type Strength string

const (
	StrengthWeak   Strength = "weak"
	StrengthMedium Strength = "medium"
	StrengthStrong Strength = "strong"
)

// ParseStrength validates and normalizes a strength string.
func ParseStrength(value string) (Strength, error) {
	switch Strength(strings.ToLower(strings.TrimSpace(value))) {
	case StrengthWeak:
		return StrengthWeak, nil
	case StrengthMedium:
		return StrengthMedium, nil
	case StrengthStrong:
		return StrengthStrong, nil
	}
	return "", fmt.Errorf("unknown strength %q", value)
}

// Rank orders strengths so aggregation can escalate but never downgrade.
// Unknown values rank below weak.
func (s Strength) Rank() int {
	switch s {
	case StrengthWeak:
		return 1
	case StrengthMedium:
		return 2
	case StrengthStrong:
		return 3
	}
	return 0
}

// Chunk is a bounded slice of a document's extracted text submitted as one
// extraction unit. Index is the chunk's position in source order.
type Chunk struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// ExtractedEntity is a single chunk-level entity observation. Extracted
// records are ephemeral: they are produced per chunk and consumed
// immediately by consolidation.
type ExtractedEntity struct {
	Name        string     `json:"name"`
	Type        EntityType `json:"type"`
	Category    string     `json:"category,omitempty"`
	Description string     `json:"description,omitempty"`
	Confidence  float64    `json:"confidence"`
	Evidence    string     `json:"evidence"`
	ChunkIndex  int        `json:"chunk_index"`
}

// ExtractedRelationship is a single chunk-level relationship observation.
type ExtractedRelationship struct {
	FromName   string       `json:"from_name"`
	ToName     string       `json:"to_name"`
	Type       RelationType `json:"type"`
	Strength   Strength     `json:"strength"`
	Confidence float64      `json:"confidence"`
	Evidence   string       `json:"evidence"`
	ChunkIndex int          `json:"chunk_index"`
}

// ConsolidatedEntity is a canonical entity record. Within one document the
// confidence is the best observation; across documents it is the average,
// with Occurrences tracking how many merged observations contributed.
type ConsolidatedEntity struct {
	Name        string     `json:"name"`
	Type        EntityType `json:"type"`
	Category    string     `json:"category,omitempty"`
	Description string     `json:"description,omitempty"`
	Confidence  float64    `json:"confidence"`
	Occurrences int        `json:"occurrences"`
	DocumentIDs []string   `json:"document_ids"`
}

// ConsolidatedRelationship is a canonical relationship record keyed by
// (FromName, Type, ToName).
type ConsolidatedRelationship struct {
	FromName    string       `json:"from_name"`
	ToName      string       `json:"to_name"`
	Type        RelationType `json:"type"`
	Strength    Strength     `json:"strength"`
	Confidence  float64      `json:"confidence"`
	Evidence    string       `json:"evidence"`
	Occurrences int          `json:"occurrences"`
	DocumentIDs []string     `json:"document_ids"`
}

// GraphNode is a read-only projection of consolidated entities for a
// requested document set. Nodes are recomputed on every aggregation
// request and never independently mutated.
type GraphNode struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Type        EntityType `json:"type"`
	Confidence  float64    `json:"confidence"`
	DocumentIDs []string   `json:"document_ids"`
}

// GraphEdge is a read-only projection of consolidated relationships.
type GraphEdge struct {
	From        string       `json:"from"`
	To          string       `json:"to"`
	Type        RelationType `json:"type"`
	Strength    Strength     `json:"strength"`
	Confidence  float64      `json:"confidence"`
	Description string       `json:"description,omitempty"`
	DocumentIDs []string     `json:"document_ids"`
}

// DuplicateCandidate flags two entity names within one document as likely
// duplicates, with a recommended review action.
type DuplicateCandidate struct {
	EntityA    string  `json:"entity_a"`
	EntityB    string  `json:"entity_b"`
	Similarity float64 `json:"similarity"`
	Action     string  `json:"action"`
}

// ClampConfidence forces a confidence value into [0,1]. Out-of-range
// values show up in loosely formatted AI payloads.
func ClampConfidence(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}

// MergeDocumentIDs unions two sorted document-id sets, preserving order
// and dropping duplicates.
func MergeDocumentIDs(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	merged := make([]string, 0, len(a)+len(b))
	for _, ids := range [][]string{a, b} {
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			merged = append(merged, id)
		}
	}
	return merged
}
