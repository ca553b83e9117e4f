package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tapestry-analytics/tapestry/pkg/ai"
	"github.com/tapestry-analytics/tapestry/pkg/cache"
	"github.com/tapestry-analytics/tapestry/pkg/common"
)

type fakeModel struct {
	mu        sync.Mutex
	calls     int
	respond   func(prompt string, out *extractResponse) error
	summarize func(prompt string) (string, error)
}

func (f *fakeModel) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.summarize == nil {
		return "", errors.New("not implemented")
	}
	return f.summarize(prompt)
}

func (f *fakeModel) GenerateCompletionWithFormat(
	ctx context.Context,
	name string,
	description string,
	prompt string,
	out any,
	opts ...ai.GenerateOption,
) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.respond(prompt, out.(*extractResponse))
}

func (f *fakeModel) ExtractionModel() string     { return "fake-extractor-v1" }
func (f *fakeModel) ResetMetrics()               {}
func (f *fakeModel) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

func (f *fakeModel) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestExtractDocumentConvertsResponse(t *testing.T) {
	model := &fakeModel{
		respond: func(prompt string, out *extractResponse) error {
			out.Entities = []extractEntity{
				{Name: "Youth Hub", Type: "service", Category: "youth", Confidence: 0.9, Evidence: "the hub"},
				{Name: "School Attendance", Type: "outcome", Confidence: 1.7},
				{Name: "Mystery", Type: "building", Confidence: 0.5},
			}
			out.Relationships = []extractRelationship{
				{From: "Youth Hub", To: "School Attendance", Type: "supports", Strength: "strong", Confidence: 0.8},
				{From: "Youth Hub", To: "Missing Entity", Type: "supports", Strength: "weak", Confidence: 0.4},
			}
			return nil
		},
	}
	extractor := NewExtractor(NewExtractorParams{Model: model})

	result, err := extractor.ExtractDocument(context.Background(), "The Youth Hub supports attendance.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Model != "fake-extractor-v1" {
		t.Errorf("model = %q", result.Model)
	}
	if result.ChunkCount != 1 {
		t.Errorf("chunk count = %d, want 1", result.ChunkCount)
	}
	if len(result.Entities) != 2 {
		t.Fatalf("entities = %+v, want 2", result.Entities)
	}
	if result.Entities[0].Type != common.EntityService || result.Entities[0].ChunkIndex != 0 {
		t.Errorf("entity = %+v", result.Entities[0])
	}
	// out-of-range confidence is clamped
	if result.Entities[1].Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", result.Entities[1].Confidence)
	}
	// relationship to an unextracted entity is dropped
	if len(result.Relationships) != 1 {
		t.Fatalf("relationships = %+v, want 1", result.Relationships)
	}
	// unknown entity type is skipped with a warning
	foundWarning := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "Mystery") {
			foundWarning = true
		}
	}
	if !foundWarning {
		t.Errorf("expected warning about skipped entity, got %v", result.Warnings)
	}
}

func TestExtractDocumentEmptyText(t *testing.T) {
	model := &fakeModel{
		respond: func(string, *extractResponse) error {
			t.Error("model should not be called for empty text")
			return nil
		},
	}
	extractor := NewExtractor(NewExtractorParams{Model: model})

	result, err := extractor.ExtractDocument(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ChunkCount != 0 || len(result.Entities) != 0 {
		t.Errorf("result = %+v, want empty", result)
	}
}

func TestExtractDocumentFailedChunkYieldsWarning(t *testing.T) {
	model := &fakeModel{
		respond: func(prompt string, out *extractResponse) error {
			if strings.Contains(prompt, "failing") {
				return errors.New("model unavailable")
			}
			out.Entities = []extractEntity{{Name: "Housing First", Type: "service", Confidence: 0.7}}
			return nil
		},
	}
	extractor := NewExtractor(NewExtractorParams{Model: model, MaxRetries: 2, MaxChunkTokens: 10})

	text := "This failing chunk breaks the model every time it is sent across.\n\nHousing First keeps people housed and supported through winter months."
	result, err := extractor.ExtractDocument(context.Background(), text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.ChunkCount != 2 {
		t.Fatalf("chunk count = %d, want 2", result.ChunkCount)
	}
	if len(result.Entities) != 1 || result.Entities[0].Name != "Housing First" {
		t.Errorf("entities = %+v", result.Entities)
	}
	foundWarning := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "extraction failed") {
			foundWarning = true
		}
	}
	if !foundWarning {
		t.Errorf("expected failure warning, got %v", result.Warnings)
	}
}

func TestSummarize(t *testing.T) {
	model := &fakeModel{
		summarize: func(prompt string) (string, error) {
			if !strings.Contains(prompt, "Youth Hub") || !strings.Contains(prompt, "supports") {
				t.Errorf("summary prompt missing extraction data, got %q", prompt)
			}
			return "The Youth Hub\nsupports school attendance.\n", nil
		},
	}
	extractor := NewExtractor(NewExtractorParams{Model: model, MaxRetries: 1})

	entities := []common.ExtractedEntity{
		{Name: "Youth Hub", Type: common.EntityService},
		{Name: "School Attendance", Type: common.EntityOutcome},
	}
	relationships := []common.ExtractedRelationship{
		{FromName: "Youth Hub", ToName: "School Attendance", Type: common.RelationSupports},
	}

	summary, err := extractor.Summarize(context.Background(), entities, relationships)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if summary != "The Youth Hub supports school attendance." {
		t.Errorf("summary = %q, want normalized model output", summary)
	}
}

func TestSummarizeEmptyInputSkipsModel(t *testing.T) {
	model := &fakeModel{summarize: func(_ string) (string, error) {
		return "should not be called", nil
	}}
	extractor := NewExtractor(NewExtractorParams{Model: model, MaxRetries: 1})

	summary, err := extractor.Summarize(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if summary != "" {
		t.Errorf("summary = %q, want empty for empty input", summary)
	}
	if model.callCount() != 0 {
		t.Errorf("model called %d times, want 0", model.callCount())
	}
}

func TestExtractChunksAwaitsEachBatch(t *testing.T) {
	started := make(chan struct{}, 5)
	release := make(chan struct{})
	model := &fakeModel{
		respond: func(prompt string, out *extractResponse) error {
			started <- struct{}{}
			<-release
			return nil
		},
	}
	extractor := NewExtractor(NewExtractorParams{Model: model, ParallelMax: 3, MaxRetries: 1})

	chunks := make([]common.Chunk, 5)
	for i := range chunks {
		chunks[i] = common.Chunk{Index: i, Text: fmt.Sprintf("chunk number %d", i)}
	}

	done := make(chan error, 1)
	go func() {
		_, err := extractor.ExtractChunks(context.Background(), chunks)
		done <- err
	}()

	for range 3 {
		<-started
	}
	// the second batch must not start while the first is still in flight
	time.Sleep(20 * time.Millisecond)
	select {
	case <-started:
		t.Fatal("next chunk started before the first batch was fully awaited")
	default:
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model.callCount() != 5 {
		t.Errorf("model called %d times, want 5", model.callCount())
	}
}

func TestExtractDocumentUsesCache(t *testing.T) {
	model := &fakeModel{
		respond: func(prompt string, out *extractResponse) error {
			out.Entities = []extractEntity{{Name: "Food Bank", Type: "service", Confidence: 0.8}}
			return nil
		},
	}
	chunkCache := cache.New(1 << 20)
	extractor := NewExtractor(NewExtractorParams{Model: model, Cache: chunkCache})

	text := "The food bank fed four hundred families last year."
	if _, err := extractor.ExtractDocument(context.Background(), text); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result, err := extractor.ExtractDocument(context.Background(), text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if model.callCount() != 1 {
		t.Errorf("model called %d times, want 1 (second pass cached)", model.callCount())
	}
	if len(result.Entities) != 1 || result.Entities[0].Name != "Food Bank" {
		t.Errorf("cached entities = %+v", result.Entities)
	}
}
