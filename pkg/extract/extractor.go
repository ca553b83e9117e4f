package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tapestry-analytics/tapestry/internal/util"
	"github.com/tapestry-analytics/tapestry/pkg/ai"
	"github.com/tapestry-analytics/tapestry/pkg/cache"
	"github.com/tapestry-analytics/tapestry/pkg/common"
	"github.com/tapestry-analytics/tapestry/pkg/logger"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultEncoder is the tiktoken encoding used to size chunks.
	DefaultEncoder = "o200k_base"
	// DefaultMaxChunkTokens bounds a single extraction request.
	DefaultMaxChunkTokens = 1200
	// DefaultParallelMax is how many chunks are extracted concurrently.
	DefaultParallelMax = 3
	// DefaultMaxRetries bounds attempts per chunk before it is skipped.
	DefaultMaxRetries = 3
	// DefaultCacheTTL is how long per-chunk extraction results stay reusable.
	DefaultCacheTTL = time.Hour
)

type extractEntity struct {
	Name        string  `json:"name" jsonschema_description:"Name of the entity as used in the document"`
	Type        string  `json:"type" jsonschema:"enum=service,enum=theme,enum=outcome,enum=factor" jsonschema_description:"Entity type"`
	Category    string  `json:"category" jsonschema_description:"Free-form category such as youth, housing, health"`
	Description string  `json:"description" jsonschema_description:"What the document says about this entity"`
	Confidence  float64 `json:"confidence" jsonschema_description:"Confidence between 0.0 and 1.0"`
	Evidence    string  `json:"evidence" jsonschema_description:"Short quote from the excerpt supporting this entity"`
}

type extractRelationship struct {
	From       string  `json:"from" jsonschema_description:"Name of the source entity, as identified above"`
	To         string  `json:"to" jsonschema_description:"Name of the target entity, as identified above"`
	Type       string  `json:"type" jsonschema:"enum=supports,enum=blocks,enum=enables,enum=influences,enum=requires" jsonschema_description:"Relationship type"`
	Strength   string  `json:"strength" jsonschema:"enum=weak,enum=medium,enum=strong" jsonschema_description:"Relationship strength"`
	Confidence float64 `json:"confidence" jsonschema_description:"Confidence between 0.0 and 1.0"`
	Evidence   string  `json:"evidence" jsonschema_description:"Short quote from the excerpt supporting this relationship"`
}

type extractResponse struct {
	Entities      []extractEntity       `json:"entities" jsonschema_description:"Entities identified in the excerpt"`
	Relationships []extractRelationship `json:"relationships" jsonschema_description:"Relationships identified in the excerpt"`
}

// Extractor runs chunked AI extraction over document text. Chunk results are
// cached by content hash so re-extracting an unchanged document does not
// repeat model calls.
type Extractor struct {
	model ai.TextModel
	cache *cache.Cache

	encoder        string
	maxChunkTokens int
	parallelMax    int
	maxRetries     int
	cacheTTL       time.Duration
}

// NewExtractorParams configures a new Extractor. Model is required; Cache may
// be nil to disable chunk result caching. Zero values fall back to the
// package defaults.
type NewExtractorParams struct {
	Model ai.TextModel
	Cache *cache.Cache

	Encoder        string
	MaxChunkTokens int
	ParallelMax    int
	MaxRetries     int
	CacheTTL       time.Duration
}

// NewExtractor creates an Extractor from the provided parameters.
func NewExtractor(params NewExtractorParams) *Extractor {
	e := &Extractor{
		model: params.Model,
		cache: params.Cache,

		encoder:        params.Encoder,
		maxChunkTokens: params.MaxChunkTokens,
		parallelMax:    params.ParallelMax,
		maxRetries:     params.MaxRetries,
		cacheTTL:       params.CacheTTL,
	}
	if e.encoder == "" {
		e.encoder = DefaultEncoder
	}
	if e.maxChunkTokens <= 0 {
		e.maxChunkTokens = DefaultMaxChunkTokens
	}
	if e.parallelMax <= 0 {
		e.parallelMax = DefaultParallelMax
	}
	if e.maxRetries <= 0 {
		e.maxRetries = DefaultMaxRetries
	}
	if e.cacheTTL <= 0 {
		e.cacheTTL = DefaultCacheTTL
	}
	return e
}

// Result holds the raw extraction output for one document before
// consolidation.
type Result struct {
	Entities      []common.ExtractedEntity
	Relationships []common.ExtractedRelationship
	Model         string
	ChunkCount    int
	Warnings      []string
}

// ExtractDocument chunks the text and extracts entities and relationships
// from every chunk. A chunk that still fails after retries contributes
// nothing but a warning; the remaining chunks are unaffected. An error is
// returned only when the whole pass cannot proceed.
func (e *Extractor) ExtractDocument(ctx context.Context, text string) (*Result, error) {
	chunks, err := ChunkText(text, e.encoder, e.maxChunkTokens)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk document text: %w", err)
	}
	return e.ExtractChunks(ctx, chunks)
}

// ExtractChunks extracts entities and relationships from already-chunked
// text, preserving per-chunk failure isolation.
func (e *Extractor) ExtractChunks(ctx context.Context, chunks []common.Chunk) (*Result, error) {
	result := &Result{
		Model:      e.model.ExtractionModel(),
		ChunkCount: len(chunks),
	}
	if len(chunks) == 0 {
		return result, nil
	}

	type chunkOutcome struct {
		response extractResponse
		warning  string
	}
	outcomes := make([]chunkOutcome, len(chunks))

	// chunks go out in fixed batches; each batch is awaited fully before
	// the next one starts
	for start := 0; start < len(chunks); start += e.parallelMax {
		batch := chunks[start:min(start+e.parallelMax, len(chunks))]
		g, gCtx := errgroup.WithContext(ctx)
		for offset, chunk := range batch {
			i := start + offset
			g.Go(func() error {
				select {
				case <-gCtx.Done():
					return gCtx.Err()
				default:
				}

				response, err := e.extractChunk(gCtx, chunk)
				if err != nil {
					if gCtx.Err() != nil {
						return gCtx.Err()
					}
					logger.Warn("[Extract] chunk extraction failed", "chunk", chunk.Index, "err", err)
					outcomes[i] = chunkOutcome{
						warning: fmt.Sprintf("chunk %d extraction failed after %d attempts: %v", chunk.Index, e.maxRetries, err),
					}
					return nil
				}
				outcomes[i] = chunkOutcome{response: *response}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	for i, outcome := range outcomes {
		if outcome.warning != "" {
			result.Warnings = append(result.Warnings, outcome.warning)
			continue
		}
		entities, relationships, warnings := convertResponse(outcome.response, chunks[i].Index)
		result.Entities = append(result.Entities, entities...)
		result.Relationships = append(result.Relationships, relationships...)
		result.Warnings = append(result.Warnings, warnings...)
	}

	return result, nil
}

// Summarize produces a short prose summary of one document's extracted
// entities and relationships. Empty input yields an empty summary without a
// model call.
func (e *Extractor) Summarize(
	ctx context.Context,
	entities []common.ExtractedEntity,
	relationships []common.ExtractedRelationship,
) (string, error) {
	if len(entities) == 0 && len(relationships) == 0 {
		return "", nil
	}

	entityLines := make([]string, 0, len(entities))
	for _, entity := range entities {
		entityLines = append(entityLines, fmt.Sprintf("- %s (%s)", entity.Name, entity.Type))
	}
	relationshipLines := make([]string, 0, len(relationships))
	for _, rel := range relationships {
		relationshipLines = append(relationshipLines, fmt.Sprintf("- %s %s %s", rel.FromName, rel.Type, rel.ToName))
	}
	if len(relationshipLines) == 0 {
		relationshipLines = append(relationshipLines, "- none")
	}

	prompt := fmt.Sprintf(ai.SummaryPrompt, strings.Join(entityLines, "\n"), strings.Join(relationshipLines, "\n"))
	summary, err := util.RetryWithContext(ctx, e.maxRetries, func(ctx context.Context) (string, error) {
		return e.model.GenerateCompletion(ctx, prompt)
	})
	if err != nil {
		return "", fmt.Errorf("summary generation failed: %w", err)
	}
	return strings.Join(strings.Fields(summary), " "), nil
}

// Metrics reports the token usage and timing accumulated by the underlying
// model since the last reset.
func (e *Extractor) Metrics() ai.ModelMetrics {
	return e.model.GetMetrics()
}

// ResetMetrics clears the underlying model's accumulated usage counters.
func (e *Extractor) ResetMetrics() {
	e.model.ResetMetrics()
}

func (e *Extractor) extractChunk(ctx context.Context, chunk common.Chunk) (*extractResponse, error) {
	key := e.cacheKey(chunk.Text)
	if e.cache != nil {
		if raw, ok := e.cache.Get(key); ok {
			var cached extractResponse
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
			// unreadable cache entries are replaced on the way out
			e.cache.Delete(key)
		}
	}

	prompt := fmt.Sprintf(ai.ExtractionPrompt, chunk.Text)
	response, err := util.RetryWithContext(ctx, e.maxRetries, func(ctx context.Context) (*extractResponse, error) {
		var res extractResponse
		err := e.model.GenerateCompletionWithFormat(
			ctx,
			"extract_systems",
			"Extract services, themes, outcomes, factors and their relationships from a document excerpt.",
			prompt,
			&res,
		)
		if err != nil {
			return nil, err
		}
		return &res, nil
	})
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if raw, err := json.Marshal(response); err == nil {
			if err := e.cache.Set(key, raw, int64(len(raw)), e.cacheTTL); err != nil {
				logger.Debug("[Extract] chunk result not cached", "err", err)
			}
		}
	}

	return response, nil
}

func (e *Extractor) cacheKey(chunkText string) string {
	h := sha256.New()
	h.Write([]byte(e.model.ExtractionModel()))
	h.Write([]byte{0})
	h.Write([]byte(chunkText))
	return "extract:" + hex.EncodeToString(h.Sum(nil))
}

func convertResponse(
	response extractResponse,
	chunkIndex int,
) ([]common.ExtractedEntity, []common.ExtractedRelationship, []string) {
	var warnings []string

	names := make(map[string]struct{}, len(response.Entities))
	entities := make([]common.ExtractedEntity, 0, len(response.Entities))
	for _, entity := range response.Entities {
		if entity.Name == "" {
			continue
		}
		entityType, err := common.ParseEntityType(entity.Type)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("chunk %d: entity %q skipped: %v", chunkIndex, entity.Name, err))
			continue
		}
		names[entity.Name] = struct{}{}
		entities = append(entities, common.ExtractedEntity{
			Name:        entity.Name,
			Type:        entityType,
			Category:    entity.Category,
			Description: entity.Description,
			Confidence:  common.ClampConfidence(entity.Confidence),
			Evidence:    entity.Evidence,
			ChunkIndex:  chunkIndex,
		})
	}

	relationships := make([]common.ExtractedRelationship, 0, len(response.Relationships))
	for _, rel := range response.Relationships {
		relType, err := common.ParseRelationType(rel.Type)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("chunk %d: relationship %q -> %q skipped: %v", chunkIndex, rel.From, rel.To, err))
			continue
		}
		strength, err := common.ParseStrength(rel.Strength)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("chunk %d: relationship %q -> %q skipped: %v", chunkIndex, rel.From, rel.To, err))
			continue
		}
		// relationships must reference entities extracted from the same chunk
		if _, ok := names[rel.From]; !ok {
			continue
		}
		if _, ok := names[rel.To]; !ok {
			continue
		}
		relationships = append(relationships, common.ExtractedRelationship{
			FromName:   rel.From,
			ToName:     rel.To,
			Type:       relType,
			Strength:   strength,
			Confidence: common.ClampConfidence(rel.Confidence),
			Evidence:   rel.Evidence,
			ChunkIndex: chunkIndex,
		})
	}

	return entities, relationships, warnings
}
