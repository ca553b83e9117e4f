package store

import (
	"context"
	"errors"
	"time"

	"github.com/tapestry-analytics/tapestry/pkg/common"
)

// ErrDocumentNotFound is returned when a document id has no record.
var ErrDocumentNotFound = errors.New("document not found")

// Document is the persistence collaborator's view of an ingested document.
type Document struct {
	ID            string
	Title         string
	Status        string
	StatusMessage string
	PageCount     int
	UpdatedAt     time.Time
}

// Document processing statuses written back by the pipeline.
const (
	DocumentStatusPending    = "pending"
	DocumentStatusProcessing = "processing"
	DocumentStatusCompleted  = "completed"
	DocumentStatusFailed     = "failed"
)

// SystemsStorage is the persistence collaborator for consolidated systems
// records. Writes are at-least-once: a failed pass may leave earlier writes
// in place and is reported through the job status instead of rolled back.
type SystemsStorage interface {
	FindDocument(ctx context.Context, id string) (*Document, error)
	UpdateDocumentStatus(ctx context.Context, id string, status string, message string) error

	// ReplaceDocumentRecords deletes the document's prior consolidated
	// records and bulk-inserts the new pass's output under the given
	// extraction model identifier.
	ReplaceDocumentRecords(
		ctx context.Context,
		documentID string,
		model string,
		entities []common.ConsolidatedEntity,
		relationships []common.ConsolidatedRelationship,
	) error
	DeleteDocumentRecords(ctx context.Context, documentID string) error

	GetConsolidatedEntities(ctx context.Context, documentIDs []string) ([]common.ConsolidatedEntity, error)
	GetConsolidatedRelationships(ctx context.Context, documentIDs []string) ([]common.ConsolidatedRelationship, error)
	GetExtractionModels(ctx context.Context, documentIDs []string) ([]string, error)
}
