// Package keyword provides keyword (BM25) indexing and search over CV chunks.
package keyword

import (
	"context"

	"github.com/hyperjump/rirekisho/internal/models"
)

// KeywordIndex defines keyword search operations. IDs are chunk IDs.
type KeywordIndex interface {
	Index(ctx context.Context, chunk *models.Chunk) error
	IndexBatch(ctx context.Context, chunks []*models.Chunk) error
	Search(ctx context.Context, query string, limit int) ([]*KeywordResult, error)
	Delete(ctx context.Context, ids []string) error
	DocCount() (uint64, error)
	Close() error
}

// KeywordResult is a single keyword search hit.
type KeywordResult struct {
	ID    string
	Score float64
}
