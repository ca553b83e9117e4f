package dedupe

import (
	"math"
	"strings"
	"testing"

	"github.com/tapestry-analytics/tapestry/pkg/common"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "Youth Hub", "Youth Hub", 1},
		{"case insensitive", "YOUTH HUB", "youth hub", 1},
		{"both empty", "", "", 1},
		{"one empty", "abcd", "", 0},
		{"completely different same length", "aaaa", "bbbb", 0},
		{"single substitution", "abcde", "abcdX", 0.8},
		{"transposition counts once", "centre", "center", 1 - 1.0/6.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Similarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("Similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSimilarityIsSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"Youth Centre Program", "Youth Center Program"},
		{"alpha", "beta"},
		{"", "nonempty"},
		{"Kite", "kites"},
		{"sentença", "sentenca"},
	}
	for _, p := range pairs {
		ab := Similarity(p[0], p[1])
		ba := Similarity(p[1], p[0])
		if ab != ba {
			t.Fatalf("Similarity(%q,%q)=%v but reversed=%v", p[0], p[1], ab, ba)
		}
	}
}

func TestYouthCentreProgramIsReported(t *testing.T) {
	entities := []common.ConsolidatedEntity{
		{Name: "Youth Centre Program", Type: common.EntityService, Confidence: 0.9},
		{Name: "Youth Center Program", Type: common.EntityService, Confidence: 0.6},
	}

	candidates, warnings := FindCandidates(entities)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}

	c := candidates[0]
	if math.Abs(c.Similarity-0.95) > 1e-9 {
		t.Fatalf("expected similarity 0.95, got %v", c.Similarity)
	}
	if !strings.Contains(c.Action, `keep "Youth Centre Program"`) {
		t.Fatalf("expected action to keep the higher-confidence entity, got %q", c.Action)
	}
	if !strings.Contains(c.Action, "review") {
		t.Fatalf("expected a review recommendation, got %q", c.Action)
	}
}

func TestDissimilarPairsNotReported(t *testing.T) {
	entities := []common.ConsolidatedEntity{
		{Name: "Housing Support", Confidence: 0.8},
		{Name: "Food Security", Confidence: 0.7},
	}
	candidates, _ := FindCandidates(entities)
	if len(candidates) != 0 {
		t.Fatalf("expected no candidates, got %v", candidates)
	}
}

func TestFindCandidatesTruncatesLargeInputs(t *testing.T) {
	entities := make([]common.ConsolidatedEntity, MaxPairwiseEntities+10)
	for i := range entities {
		entities[i] = common.ConsolidatedEntity{Name: strings.Repeat("x", 20+i%7)}
	}

	_, warnings := FindCandidates(entities)
	if len(warnings) != 1 {
		t.Fatalf("expected a truncation warning, got %v", warnings)
	}
}

func TestIsGenericName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Hub", true},                  // too short
		{"general support", true},      // generic word
		{"Various programs", true},     // generic word
		{"Multiple services", true},    // generic word
		{"Youth Employment", false},    //
		{"Community Transport", false}, //
	}
	for _, tt := range tests {
		if got := IsGenericName(tt.name); got != tt.want {
			t.Fatalf("IsGenericName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSpecificityRatio(t *testing.T) {
	names := []string{"Youth Employment", "general support", "Community Transport", "misc"}
	got := SpecificityRatio(names)
	if got != 0.5 {
		t.Fatalf("SpecificityRatio = %v, want 0.5", got)
	}

	if got := SpecificityRatio(nil); got != 0 {
		t.Fatalf("SpecificityRatio(nil) = %v, want 0", got)
	}
}
