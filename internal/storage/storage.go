// Package storage defines the persistence interface for the corpus registry.
package storage

import (
	"context"

	"github.com/hyperjump/kotae/internal/models"
)

// Storage records which document currently backs the vector index. The
// registry mirrors the index's wholesale-replace semantics: each successful
// ingestion replaces the previous document and chunks. Embedding vectors are
// never persisted; after a restart the index is rebuilt by re-embedding the
// registered chunks.
type Storage interface {
	// ReplaceCorpus atomically replaces the registry contents with doc and its chunks.
	ReplaceCorpus(ctx context.Context, doc *models.Document, chunks []models.Chunk) error

	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context) ([]*models.Document, error)
	GetChunks(ctx context.Context, docID string) ([]models.Chunk, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}
