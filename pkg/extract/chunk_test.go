package extract

import (
	"strings"
	"testing"
)

func TestChunkTextEmpty(t *testing.T) {
	chunks, err := ChunkText("   \n\n  ", DefaultEncoder, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
}

func TestChunkTextSingleChunk(t *testing.T) {
	text := "The Youth Hub opened in 2019. It serves around 200 young people."
	chunks, err := ChunkText(text, DefaultEncoder, 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected one chunk, got %d", len(chunks))
	}
	if chunks[0].Index != 0 {
		t.Errorf("chunk index = %d, want 0", chunks[0].Index)
	}
	if chunks[0].Text != text {
		t.Errorf("chunk text = %q", chunks[0].Text)
	}
}

func TestChunkTextSplitsOnSentences(t *testing.T) {
	var sb strings.Builder
	for range 20 {
		sb.WriteString("Community services depend on stable long-term funding arrangements. ")
	}
	chunks, err := ChunkText(sb.String(), DefaultEncoder, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if chunk.Index != i {
			t.Errorf("chunk %d has index %d", i, chunk.Index)
		}
		// no sentence is ever cut mid-way
		if !strings.HasSuffix(chunk.Text, ".") {
			t.Errorf("chunk %d ends mid-sentence: %q", i, chunk.Text)
		}
	}
}

func TestChunkTextOversizedSentenceKeptWhole(t *testing.T) {
	long := "This single sentence keeps going with many clauses about services and funding and partnerships and outcomes without ever reaching a full stop until here."
	chunks, err := ChunkText(long, DefaultEncoder, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected oversized sentence as one chunk, got %d", len(chunks))
	}
	if chunks[0].Text != long {
		t.Errorf("sentence was altered: %q", chunks[0].Text)
	}
}

func TestSplitLineIntoSentencesNumericListing(t *testing.T) {
	got := splitLineIntoSentences("Priorities: 1. housing 2. youth services. Both matter.")
	if len(got) != 2 {
		t.Fatalf("got %d sentences: %v", len(got), got)
	}
}
