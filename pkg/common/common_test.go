package common

import (
	"reflect"
	"testing"
)

func TestParseEntityType(t *testing.T) {
	tests := []struct {
		in      string
		want    EntityType
		wantErr bool
	}{
		{"service", EntityService, false},
		{"Theme", EntityTheme, false},
		{"  OUTCOME  ", EntityOutcome, false},
		{"factor", EntityFactor, false},
		{"organisation", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseEntityType(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseEntityType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseEntityType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseRelationType(t *testing.T) {
	for _, valid := range []string{"supports", "blocks", "enables", "influences", "requires"} {
		if _, err := ParseRelationType(valid); err != nil {
			t.Fatalf("ParseRelationType(%q) unexpected error: %v", valid, err)
		}
	}
	if _, err := ParseRelationType("correlates"); err == nil {
		t.Fatal("expected error for unknown relationship type")
	}
}

func TestStrengthRank(t *testing.T) {
	if !(StrengthWeak.Rank() < StrengthMedium.Rank() && StrengthMedium.Rank() < StrengthStrong.Rank()) {
		t.Fatal("strength ranks must order weak < medium < strong")
	}
	if Strength("bogus").Rank() >= StrengthWeak.Rank() {
		t.Fatal("unknown strength must rank below weak")
	}
}

func TestClampConfidence(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.73, 0.73},
		{1, 1},
		{17.2, 1},
	}
	for _, tt := range tests {
		if got := ClampConfidence(tt.in); got != tt.want {
			t.Fatalf("ClampConfidence(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMergeDocumentIDs(t *testing.T) {
	got := MergeDocumentIDs([]string{"a", "b"}, []string{"b", "c", "a"})
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("MergeDocumentIDs = %v, want %v", got, want)
	}
}
