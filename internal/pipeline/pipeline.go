package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tapestry-analytics/tapestry/pkg/ai"
	"github.com/tapestry-analytics/tapestry/pkg/common"
	"github.com/tapestry-analytics/tapestry/pkg/consolidate"
	"github.com/tapestry-analytics/tapestry/pkg/dedupe"
	"github.com/tapestry-analytics/tapestry/pkg/extract"
	"github.com/tapestry-analytics/tapestry/pkg/graphmap"
	"github.com/tapestry-analytics/tapestry/pkg/logger"
	"github.com/tapestry-analytics/tapestry/pkg/quality"
	"github.com/tapestry-analytics/tapestry/pkg/scheduler"
	"github.com/tapestry-analytics/tapestry/pkg/store"
)

// TextSource provides the plain-text rendition of an ingested document.
type TextSource interface {
	GetText(ctx context.Context, documentID string) (string, int, error)
}

// DefaultExpectedKeywords are the coverage keywords checked by the document
// quality score when no custom set is configured.
var DefaultExpectedKeywords = []string{
	"service", "community", "youth", "funding", "housing",
	"health", "education", "outcome", "support", "program",
}

// Pipeline orchestrates the extraction, consolidation, persistence, and
// read-side aggregation passes on top of the collaborator interfaces.
type Pipeline struct {
	store     store.SystemsStorage
	texts     TextSource
	extractor *extract.Extractor
	keywords  []string
}

// NewPipelineParams wires a Pipeline. Store, Texts, and Extractor are
// required; ExpectedKeywords falls back to DefaultExpectedKeywords.
type NewPipelineParams struct {
	Store            store.SystemsStorage
	Texts            TextSource
	Extractor        *extract.Extractor
	ExpectedKeywords []string
}

// NewPipeline creates a Pipeline from the provided parameters.
func NewPipeline(params NewPipelineParams) *Pipeline {
	keywords := params.ExpectedKeywords
	if len(keywords) == 0 {
		keywords = DefaultExpectedKeywords
	}
	return &Pipeline{
		store:     params.Store,
		texts:     params.Texts,
		extractor: params.Extractor,
		keywords:  keywords,
	}
}

// ProcessExtractionJob is the scheduler handler for extraction jobs: fetch
// text, extract per chunk, consolidate per document, persist. Writes are
// at-least-once; a persistence failure surfaces as the job's failed status
// without rolling back earlier writes.
func (p *Pipeline) ProcessExtractionJob(ctx context.Context, job scheduler.Job) error {
	documentID := job.DocumentID
	if _, err := p.store.FindDocument(ctx, documentID); err != nil {
		return fmt.Errorf("document lookup failed: %w", err)
	}
	if err := p.store.UpdateDocumentStatus(ctx, documentID, store.DocumentStatusProcessing, ""); err != nil {
		return fmt.Errorf("failed to mark document processing: %w", err)
	}

	defer p.flushAIMetrics(documentID)

	text, pageCount, err := p.texts.GetText(ctx, documentID)
	if err != nil {
		p.markFailed(ctx, documentID, fmt.Sprintf("document text unavailable: %v", err))
		return fmt.Errorf("failed to fetch document text: %w", err)
	}

	result, err := p.extractor.ExtractDocument(ctx, text)
	if err != nil {
		p.markFailed(ctx, documentID, fmt.Sprintf("extraction failed: %v", err))
		return fmt.Errorf("extraction failed: %w", err)
	}

	entities, relationships := consolidate.Document(result.Entities, result.Relationships)
	records, relationRecords := consolidate.FromDocument(documentID, entities, relationships)

	if err := p.store.ReplaceDocumentRecords(ctx, documentID, result.Model, records, relationRecords); err != nil {
		p.markFailed(ctx, documentID, fmt.Sprintf("failed to persist extraction results: %v", err))
		return fmt.Errorf("failed to persist extraction results: %w", err)
	}

	message := fmt.Sprintf(
		"extracted %d entities and %d relationships from %d chunks (%d pages)",
		len(records), len(relationRecords), result.ChunkCount, pageCount,
	)
	if len(records) == 0 && len(relationRecords) == 0 {
		message = consolidate.NoSystemsData
	}
	if len(result.Warnings) > 0 {
		message = fmt.Sprintf("%s; %d warnings", message, len(result.Warnings))
		logger.Warn("[Pipeline] extraction finished with warnings",
			"document", documentID, "warnings", strings.Join(result.Warnings, "; "))
	}

	if err := p.store.UpdateDocumentStatus(ctx, documentID, store.DocumentStatusCompleted, message); err != nil {
		return fmt.Errorf("failed to mark document completed: %w", err)
	}

	logger.Info("[Pipeline] extraction completed",
		"document", documentID, "entities", len(records), "relationships", len(relationRecords), "chunks", result.ChunkCount)
	return nil
}

// ProcessAnalysisJob is the scheduler handler for analysis jobs: it re-reads
// a document's persisted records and refreshes its duplicate-candidate and
// quality summary.
func (p *Pipeline) ProcessAnalysisJob(ctx context.Context, job scheduler.Job) error {
	documentID := job.DocumentID
	if _, err := p.store.FindDocument(ctx, documentID); err != nil {
		return fmt.Errorf("document lookup failed: %w", err)
	}

	entities, err := p.store.GetConsolidatedEntities(ctx, []string{documentID})
	if err != nil {
		p.markFailed(ctx, documentID, fmt.Sprintf("failed to load consolidated records: %v", err))
		return fmt.Errorf("failed to load consolidated records: %w", err)
	}

	candidates, warnings := dedupe.FindCandidates(entities)
	score := quality.DocumentScore(quality.BuildDocumentInput(entities, p.keywords))

	message := fmt.Sprintf("analysis completed: quality %d, %d duplicate candidates", score, len(candidates))
	if len(entities) == 0 {
		message = consolidate.NoSystemsData
	}
	if len(warnings) > 0 {
		logger.Warn("[Pipeline] analysis finished with warnings",
			"document", documentID, "warnings", strings.Join(warnings, "; "))
	}

	if err := p.store.UpdateDocumentStatus(ctx, documentID, store.DocumentStatusCompleted, message); err != nil {
		return fmt.Errorf("failed to record analysis result: %w", err)
	}

	logger.Info("[Pipeline] analysis completed", "document", documentID, "quality", score, "candidates", len(candidates))
	return nil
}

// Preview is the result of a synchronous, non-persisting extraction pass
// over caller-provided chunks.
type Preview struct {
	Entities      []common.ExtractedEntity       `json:"entities"`
	Relationships []common.ExtractedRelationship `json:"relationships"`
	Summary       string                         `json:"summary,omitempty"`
	Warnings      []string                       `json:"warnings,omitempty"`
	Message       string                         `json:"message,omitempty"`
	Metrics       *ai.ModelMetrics               `json:"metrics,omitempty"`
}

// ExtractSystems runs extraction and per-document consolidation over the
// given chunks without persisting anything. Used for interactive previews.
func (p *Pipeline) ExtractSystems(ctx context.Context, documentID string, chunkTexts []string) (*Preview, error) {
	if _, err := p.store.FindDocument(ctx, documentID); err != nil {
		return nil, err
	}

	chunks := make([]common.Chunk, 0, len(chunkTexts))
	for i, text := range chunkTexts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		chunks = append(chunks, common.Chunk{Index: i, Text: text})
	}

	result, err := p.extractor.ExtractChunks(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}

	entities, relationships := consolidate.Document(result.Entities, result.Relationships)
	preview := &Preview{
		Entities:      entities,
		Relationships: relationships,
		Warnings:      result.Warnings,
	}
	if len(entities) == 0 && len(relationships) == 0 {
		preview.Message = consolidate.NoSystemsData
	}

	summary, err := p.extractor.Summarize(ctx, entities, relationships)
	if err != nil {
		// a preview without a summary is still a usable preview
		preview.Warnings = append(preview.Warnings, fmt.Sprintf("summary generation failed: %v", err))
	} else {
		preview.Summary = summary
	}

	metrics := p.extractor.Metrics()
	preview.Metrics = &metrics
	return preview, nil
}

// ClearDocumentRecords removes a document's persisted consolidated records
// and returns its status to pending so a later extraction pass starts clean.
func (p *Pipeline) ClearDocumentRecords(ctx context.Context, documentID string) error {
	if _, err := p.store.FindDocument(ctx, documentID); err != nil {
		return err
	}
	if err := p.store.DeleteDocumentRecords(ctx, documentID); err != nil {
		return fmt.Errorf("failed to delete consolidated records: %w", err)
	}
	if err := p.store.UpdateDocumentStatus(ctx, documentID, store.DocumentStatusPending, ""); err != nil {
		return fmt.Errorf("failed to reset document status: %w", err)
	}
	logger.Info("[Pipeline] document records cleared", "document", documentID)
	return nil
}

// SystemsMap aggregates consolidated records across the requested documents
// into a renderable graph, applying corpus-level merge rules first.
func (p *Pipeline) SystemsMap(ctx context.Context, documentIDs []string, filters graphmap.Filters) (*graphmap.Map, error) {
	entities, err := p.store.GetConsolidatedEntities(ctx, documentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load entities: %w", err)
	}
	relationships, err := p.store.GetConsolidatedRelationships(ctx, documentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load relationships: %w", err)
	}

	corpusEntities := consolidate.CorpusEntities(entities)
	corpusRelationships := consolidate.CorpusRelationships(relationships)
	return graphmap.Build(corpusEntities, corpusRelationships, filters), nil
}

// DuplicateCandidates reports near-duplicate entity names within one
// document, with truncation warnings when the pairwise cap is hit.
func (p *Pipeline) DuplicateCandidates(ctx context.Context, documentID string) ([]common.DuplicateCandidate, []string, error) {
	if _, err := p.store.FindDocument(ctx, documentID); err != nil {
		return nil, nil, err
	}
	entities, err := p.store.GetConsolidatedEntities(ctx, []string{documentID})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load entities: %w", err)
	}
	candidates, warnings := dedupe.FindCandidates(entities)
	return candidates, warnings, nil
}

// QualityScore computes the document-level extraction quality score.
func (p *Pipeline) QualityScore(ctx context.Context, documentID string) (int, error) {
	if _, err := p.store.FindDocument(ctx, documentID); err != nil {
		return 0, err
	}
	entities, err := p.store.GetConsolidatedEntities(ctx, []string{documentID})
	if err != nil {
		return 0, fmt.Errorf("failed to load entities: %w", err)
	}
	return quality.DocumentScore(quality.BuildDocumentInput(entities, p.keywords)), nil
}

// CorpusQualityScore computes the corpus-level score across the requested
// documents, using corpus-merged records and the set of contributing models.
func (p *Pipeline) CorpusQualityScore(ctx context.Context, documentIDs []string) (int, error) {
	entities, err := p.store.GetConsolidatedEntities(ctx, documentIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to load entities: %w", err)
	}
	models, err := p.store.GetExtractionModels(ctx, documentIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to load models: %w", err)
	}
	corpusEntities := consolidate.CorpusEntities(entities)
	return quality.CorpusScore(quality.BuildCorpusInput(corpusEntities, models)), nil
}

// flushAIMetrics logs the token usage a job accumulated and resets the
// counters so the next job starts from zero.
func (p *Pipeline) flushAIMetrics(documentID string) {
	metrics := p.extractor.Metrics()
	aiDuration := time.Duration(metrics.DurationMs) * time.Millisecond
	aiHours := int(aiDuration.Hours())
	aiMinutes := int(aiDuration.Minutes()) % 60
	aiSeconds := int(aiDuration.Seconds()) % 60
	logger.Info(
		"AI Metrics",
		"document", documentID,
		"input_tokens", metrics.InputTokens,
		"output_tokens", metrics.OutputTokens,
		"total_tokens", metrics.TotalTokens,
		"duration", fmt.Sprintf("%02d:%02d:%02d", aiHours, aiMinutes, aiSeconds),
	)
	p.extractor.ResetMetrics()
}

func (p *Pipeline) markFailed(ctx context.Context, documentID string, message string) {
	if err := p.store.UpdateDocumentStatus(ctx, documentID, store.DocumentStatusFailed, message); err != nil {
		logger.Warn("[Pipeline] failed to record failure status", "document", documentID, "err", err)
	}
}
