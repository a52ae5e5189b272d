// Package ingest provides document chunking and the ingestion pipeline.
package ingest

import (
	"fmt"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// Chunker splits text into overlapping character windows. Sizes are in runes
// so multi-byte text chunks the same way regardless of encoding width.
type Chunker struct {
	chunkSize int
	overlap   int
}

// NewChunker creates a chunker with the given window size and overlap.
// Invalid parameters are rejected here, before any text is processed,
// because a non-positive stride would loop forever.
func NewChunker(chunkSize, overlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("overlap must be in [0, chunk size), got %d with chunk size %d", overlap, chunkSize)
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// Chunk slides a window of chunkSize runes with stride chunkSize-overlap over
// text and returns the non-blank windows in order. The final window may be
// shorter than chunkSize; windows that are empty after trimming whitespace are
// dropped. Chunk indices count emitted windows, not window offsets.
func (c *Chunker) Chunk(docID, text string) []models.Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	stride := c.chunkSize - c.overlap
	var chunks []models.Chunk
	for offset := 0; offset < len(runes); offset += stride {
		end := offset + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		window := string(runes[offset:end])
		if strings.TrimSpace(window) == "" {
			continue
		}
		chunks = append(chunks, models.Chunk{
			DocumentID: docID,
			Index:      len(chunks),
			Text:       window,
		})
	}
	return chunks
}
