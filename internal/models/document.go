// Package models defines core data structures for documents, chunks, and answers.
package models

import "time"

// Document represents the currently loaded corpus document.
type Document struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	SourcePath string    `json:"source_path,omitempty"`
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// Chunk is a contiguous window of document text, the unit of retrieval.
// Index is the 0-based position of the window in the source document.
// Chunks do not carry their embeddings; the vector index owns those.
type Chunk struct {
	DocumentID string `json:"document_id"`
	Index      int    `json:"index"`
	Text       string `json:"text"`
}

// RetrievedChunk pairs a chunk with its cosine similarity to a query.
// Score is in [-1, 1] since both vectors are L2-normalized.
type RetrievedChunk struct {
	Score float64 `json:"score"`
	Chunk Chunk   `json:"chunk"`
}
