package quality

import (
	"testing"

	"github.com/tapestry-analytics/tapestry/pkg/common"
)

func TestDocumentScoreExactFormula(t *testing.T) {
	tests := []struct {
		name string
		in   DocumentInput
		want int
	}{
		{
			name: "zero input",
			in:   DocumentInput{},
			want: 0,
		},
		{
			name: "perfect input",
			in: DocumentInput{
				ThemeCount:       30,
				AvgConfidence:    1,
				MatchedKeywords:  5,
				TotalKeywords:    5,
				SpecificityRatio: 1,
			},
			want: 100,
		},
		{
			// min(15/30,1)*25 + 0.8*30 + (3/4)*25 + 0.5*20 = 12.5+24+18.75+10 = 65.25 → 65
			name: "mixed input",
			in: DocumentInput{
				ThemeCount:       15,
				AvgConfidence:    0.8,
				MatchedKeywords:  3,
				TotalKeywords:    4,
				SpecificityRatio: 0.5,
			},
			want: 65,
		},
		{
			// theme portion saturates at 25
			name: "theme count above cap",
			in:   DocumentInput{ThemeCount: 300},
			want: 25,
		},
		{
			name: "no expected keywords contributes zero",
			in:   DocumentInput{AvgConfidence: 1, TotalKeywords: 0, MatchedKeywords: 0},
			want: 30,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DocumentScore(tt.in); got != tt.want {
				t.Fatalf("DocumentScore = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDocumentScoreClampedForArbitraryInputs(t *testing.T) {
	inputs := []DocumentInput{
		{ThemeCount: 1 << 20, AvgConfidence: 40, MatchedKeywords: 900, TotalKeywords: 1, SpecificityRatio: 7},
		{ThemeCount: 0, AvgConfidence: 0, MatchedKeywords: 0, TotalKeywords: 0, SpecificityRatio: 0},
		{ThemeCount: 3, AvgConfidence: 1.5, MatchedKeywords: 10, TotalKeywords: 2, SpecificityRatio: 1},
	}
	for _, in := range inputs {
		got := DocumentScore(in)
		if got < 0 || got > 100 {
			t.Fatalf("DocumentScore(%+v) = %d, outside [0,100]", in, got)
		}
	}
}

func TestCorpusScoreExactFormula(t *testing.T) {
	tests := []struct {
		name string
		in   CorpusInput
		want int
	}{
		{
			name: "zero input",
			in:   CorpusInput{},
			want: 0,
		},
		{
			// 0.9*40 + 0.5*30 + min(4/8,1)*20 + 10 = 36+15+10+10 = 71
			name: "two models",
			in:   CorpusInput{AvgConfidence: 0.9, HighConfidenceRatio: 0.5, CategoryCount: 4, ModelCount: 2},
			want: 71,
		},
		{
			// single model scores 5 diversity points
			name: "single model",
			in:   CorpusInput{AvgConfidence: 1, HighConfidenceRatio: 1, CategoryCount: 8, ModelCount: 1},
			want: 95,
		},
		{
			name: "four models",
			in:   CorpusInput{AvgConfidence: 1, HighConfidenceRatio: 1, CategoryCount: 8, ModelCount: 4},
			want: 100,
		},
		{
			// five or more models score zero diversity points
			name: "five models",
			in:   CorpusInput{AvgConfidence: 1, HighConfidenceRatio: 1, CategoryCount: 8, ModelCount: 5},
			want: 90,
		},
		{
			// category diversity saturates at 20
			name: "category count above cap",
			in:   CorpusInput{CategoryCount: 100},
			want: 20,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CorpusScore(tt.in); got != tt.want {
				t.Fatalf("CorpusScore = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBuildDocumentInput(t *testing.T) {
	entities := []common.ConsolidatedEntity{
		{Name: "Youth Employment", Type: common.EntityTheme, Confidence: 0.9},
		{Name: "general support", Type: common.EntityTheme, Confidence: 0.5},
		{Name: "Youth Hub", Type: common.EntityService, Confidence: 0.7},
	}

	in := BuildDocumentInput(entities, []string{"employment", "transport"})

	if in.ThemeCount != 2 {
		t.Fatalf("ThemeCount = %d, want 2", in.ThemeCount)
	}
	if in.MatchedKeywords != 1 || in.TotalKeywords != 2 {
		t.Fatalf("keywords = %d/%d, want 1/2", in.MatchedKeywords, in.TotalKeywords)
	}
	wantAvg := (0.9 + 0.5 + 0.7) / 3
	if diff := in.AvgConfidence - wantAvg; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("AvgConfidence = %v, want %v", in.AvgConfidence, wantAvg)
	}
	if in.SpecificityRatio != 0.5 {
		t.Fatalf("SpecificityRatio = %v, want 0.5", in.SpecificityRatio)
	}
}

func TestBuildCorpusInput(t *testing.T) {
	entities := []common.ConsolidatedEntity{
		{Name: "A", Confidence: 0.9, Category: "Health"},
		{Name: "B", Confidence: 0.4, Category: "health"},
		{Name: "C", Confidence: 0.7, Category: "Transport"},
		{Name: "D", Confidence: 0.2},
	}

	in := BuildCorpusInput(entities, []string{"gpt-4o-mini", "gpt-4o-mini", "llama3", " "})

	if in.CategoryCount != 2 {
		t.Fatalf("CategoryCount = %d, want 2", in.CategoryCount)
	}
	if in.ModelCount != 2 {
		t.Fatalf("ModelCount = %d, want 2", in.ModelCount)
	}
	if in.HighConfidenceRatio != 0.5 {
		t.Fatalf("HighConfidenceRatio = %v, want 0.5", in.HighConfidenceRatio)
	}
	wantAvg := (0.9 + 0.4 + 0.7 + 0.2) / 4
	if diff := in.AvgConfidence - wantAvg; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("AvgConfidence = %v, want %v", in.AvgConfidence, wantAvg)
	}
}
