package rag

import (
	"fmt"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// FormatCitations renders retrieved chunks as one evidence line per chunk:
//
//	[1] score=0.812 | "quoted chunk text..."
//
// At most limit results are rendered, in the order given (callers pass results
// already ranked descending). Each quote is collapsed to a single line and
// truncated to quoteLen runes. Empty input yields an empty string.
func FormatCitations(results []models.RetrievedChunk, limit, quoteLen int) string {
	if len(results) == 0 {
		return ""
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	lines := make([]string, 0, len(results))
	for i, r := range results {
		quote := utils.Truncate(utils.CollapseWhitespace(r.Chunk.Text), quoteLen)
		lines = append(lines, fmt.Sprintf("[%d] score=%.3f | \"%s\"", i+1, r.Score, quote))
	}
	return strings.Join(lines, "\n")
}
