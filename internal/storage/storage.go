// Package storage defines the persistence interface for candidate documents
// and their chunks.
package storage

import (
	"context"

	"github.com/hyperjump/rirekisho/internal/models"
)

// Storage defines document and chunk persistence operations.
//
// Documents are immutable: PublishDocument writes a document together with all
// of its chunks in one transaction, and re-ingestion is modeled as delete plus
// publish. There is no partial-write path.
type Storage interface {
	// Document operations
	PublishDocument(ctx context.Context, doc *models.Document, chunks []*models.Chunk) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)
	ListDocumentIDs(ctx context.Context) ([]string, error)

	// Chunk operations
	GetChunk(ctx context.Context, id string) (*models.Chunk, error)
	GetChunksByIDs(ctx context.Context, ids []string) ([]*models.Chunk, error)
	GetChunksByDocumentID(ctx context.Context, docID string) ([]*models.Chunk, error)

	// Stats
	CountDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}
