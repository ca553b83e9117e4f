package pgx

import (
	"context"
	"errors"
	"fmt"

	"github.com/tapestry-analytics/tapestry/pkg/common"
	"github.com/tapestry-analytics/tapestry/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const insertChunkSize = 500

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// SystemsDBStorage implements store.SystemsStorage on PostgreSQL. Bulk
// inserts go through the COPY protocol in bounded chunks.
type SystemsDBStorage struct {
	conn pgxIConn
}

// NewSystemsDBStorage creates a SystemsDBStorage using an existing database
// connection or pool.
func NewSystemsDBStorage(conn pgxIConn) *SystemsDBStorage {
	return &SystemsDBStorage{conn: conn}
}

// FindDocument loads a document record by id.
func (s *SystemsDBStorage) FindDocument(ctx context.Context, id string) (*store.Document, error) {
	row := s.conn.QueryRow(ctx, `
		SELECT id, title, status, COALESCE(status_message, ''), page_count, updated_at
		FROM documents
		WHERE id = $1`,
		id,
	)

	var doc store.Document
	err := row.Scan(&doc.ID, &doc.Title, &doc.Status, &doc.StatusMessage, &doc.PageCount, &doc.UpdatedAt)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, store.ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document %s: %w", id, err)
	}
	return &doc, nil
}

// UpdateDocumentStatus writes the document's processing status and message.
func (s *SystemsDBStorage) UpdateDocumentStatus(ctx context.Context, id string, status string, message string) error {
	tag, err := s.conn.Exec(ctx, `
		UPDATE documents
		SET status = $2, status_message = $3, updated_at = now()
		WHERE id = $1`,
		id, status, message,
	)
	if err != nil {
		return fmt.Errorf("failed to update document %s status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrDocumentNotFound
	}
	return nil
}

// ReplaceDocumentRecords swaps the document's consolidated records for a new
// pass's output inside one transaction.
func (s *SystemsDBStorage) ReplaceDocumentRecords(
	ctx context.Context,
	documentID string,
	model string,
	entities []common.ConsolidatedEntity,
	relationships []common.ConsolidatedRelationship,
) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM systems_entities WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("failed to clear prior entities: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM systems_relationships WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("failed to clear prior relationships: %w", err)
	}

	err = store.ChunkRange(len(entities), insertChunkSize, func(start, end int) error {
		batch := entities[start:end]
		_, err := tx.CopyFrom(
			ctx,
			pgxv5.Identifier{"systems_entities"},
			[]string{"document_id", "name", "type", "category", "description", "confidence", "occurrences", "model"},
			pgxv5.CopyFromSlice(len(batch), func(i int) ([]any, error) {
				e := batch[i]
				return []any{documentID, e.Name, string(e.Type), e.Category, e.Description, e.Confidence, e.Occurrences, model}, nil
			}),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to insert entities: %w", err)
	}

	err = store.ChunkRange(len(relationships), insertChunkSize, func(start, end int) error {
		batch := relationships[start:end]
		_, err := tx.CopyFrom(
			ctx,
			pgxv5.Identifier{"systems_relationships"},
			[]string{"document_id", "from_name", "to_name", "type", "strength", "confidence", "evidence", "occurrences"},
			pgxv5.CopyFromSlice(len(batch), func(i int) ([]any, error) {
				r := batch[i]
				return []any{documentID, r.FromName, r.ToName, string(r.Type), string(r.Strength), r.Confidence, r.Evidence, r.Occurrences}, nil
			}),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to insert relationships: %w", err)
	}

	return tx.Commit(ctx)
}

// DeleteDocumentRecords removes all consolidated records for a document.
func (s *SystemsDBStorage) DeleteDocumentRecords(ctx context.Context, documentID string) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM systems_entities WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("failed to delete entities: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM systems_relationships WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("failed to delete relationships: %w", err)
	}
	return tx.Commit(ctx)
}

// GetConsolidatedEntities loads per-document consolidated entities for the
// given documents, ordered deterministically.
func (s *SystemsDBStorage) GetConsolidatedEntities(ctx context.Context, documentIDs []string) ([]common.ConsolidatedEntity, error) {
	documentIDs = store.DedupeStrings(documentIDs)
	if len(documentIDs) == 0 {
		return nil, nil
	}

	rows, err := s.conn.Query(ctx, `
		SELECT document_id, name, type, category, description, confidence, occurrences
		FROM systems_entities
		WHERE document_id = ANY($1)
		ORDER BY document_id, name`,
		documentIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer rows.Close()

	var entities []common.ConsolidatedEntity
	for rows.Next() {
		var (
			docID      string
			entity     common.ConsolidatedEntity
			entityType string
		)
		if err := rows.Scan(&docID, &entity.Name, &entityType, &entity.Category, &entity.Description, &entity.Confidence, &entity.Occurrences); err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		entity.Type = common.EntityType(entityType)
		entity.DocumentIDs = []string{docID}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

// GetConsolidatedRelationships loads per-document consolidated relationships
// for the given documents, ordered deterministically.
func (s *SystemsDBStorage) GetConsolidatedRelationships(ctx context.Context, documentIDs []string) ([]common.ConsolidatedRelationship, error) {
	documentIDs = store.DedupeStrings(documentIDs)
	if len(documentIDs) == 0 {
		return nil, nil
	}

	rows, err := s.conn.Query(ctx, `
		SELECT document_id, from_name, to_name, type, strength, confidence, evidence, occurrences
		FROM systems_relationships
		WHERE document_id = ANY($1)
		ORDER BY document_id, from_name, type, to_name`,
		documentIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query relationships: %w", err)
	}
	defer rows.Close()

	var relationships []common.ConsolidatedRelationship
	for rows.Next() {
		var (
			docID    string
			rel      common.ConsolidatedRelationship
			relType  string
			strength string
		)
		if err := rows.Scan(&docID, &rel.FromName, &rel.ToName, &relType, &strength, &rel.Confidence, &rel.Evidence, &rel.Occurrences); err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		rel.Type = common.RelationType(relType)
		rel.Strength = common.Strength(strength)
		rel.DocumentIDs = []string{docID}
		relationships = append(relationships, rel)
	}
	return relationships, rows.Err()
}

// GetExtractionModels reports the distinct model identifiers that produced
// the stored records for the given documents.
func (s *SystemsDBStorage) GetExtractionModels(ctx context.Context, documentIDs []string) ([]string, error) {
	documentIDs = store.DedupeStrings(documentIDs)
	if len(documentIDs) == 0 {
		return nil, nil
	}

	rows, err := s.conn.Query(ctx, `
		SELECT DISTINCT model
		FROM systems_entities
		WHERE document_id = ANY($1) AND model <> ''
		ORDER BY model`,
		documentIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query models: %w", err)
	}
	defer rows.Close()

	var models []string
	for rows.Next() {
		var model string
		if err := rows.Scan(&model); err != nil {
			return nil, fmt.Errorf("failed to scan model: %w", err)
		}
		models = append(models, model)
	}
	return models, rows.Err()
}
