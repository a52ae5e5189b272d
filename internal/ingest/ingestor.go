package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/fileid"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/pkg/utils"
)

// Status strings returned for empty ingestions. These are normal outcomes
// reported to the caller, not errors.
const (
	StatusNoText    = "No text could be extracted from the file."
	StatusNoChunks  = "Chunking produced 0 chunks."
	statusLoadedFmt = "Loaded %d chunks."
)

// Ingestor runs the ingestion pipeline: extract text, chunk it, embed every
// chunk, normalize the vectors, and replace the vector index and corpus
// registry wholesale. The new corpus is built completely off to the side; the
// swap is the index's atomic Replace, so queries never observe a partial build.
type Ingestor struct {
	extractor *extract.Extractor
	chunker   *Chunker
	embedder  llm.Embedder
	index     *vector.Index
	store     storage.Storage
	logger    *zap.Logger // optional; when set, logs debug events
}

// IngestorOption configures an Ingestor.
type IngestorOption func(*Ingestor)

// WithLogger sets a logger for debug output (file ingested, chunk counts, etc.).
func WithLogger(l *zap.Logger) IngestorOption {
	return func(ing *Ingestor) { ing.logger = l }
}

// NewIngestor creates an ingestor with the given dependencies.
// store may be nil; when nil, ingestion skips the corpus registry.
func NewIngestor(
	extractor *extract.Extractor,
	chunker *Chunker,
	embedder llm.Embedder,
	index *vector.Index,
	store storage.Storage,
	opts ...IngestorOption,
) *Ingestor {
	ing := &Ingestor{
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		index:     index,
		store:     store,
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// IngestFile extracts text from the file at path and ingests it, replacing the
// current corpus. Returns a status summary string ("Loaded N chunks." or a
// diagnostic reason for an empty ingestion). Extraction and embedding failures
// are returned as errors; empty content is a status, not an error.
func (ing *Ingestor) IngestFile(ctx context.Context, path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("absolute path: %w", err)
	}
	text, err := ing.extractor.Extract(absPath)
	if err != nil {
		return "", fmt.Errorf("extract content: %w", err)
	}
	doc := &models.Document{
		ID:         fileid.FileDocID(absPath),
		Title:      filepath.Base(absPath),
		SourcePath: absPath,
	}
	status, err := ing.ingest(ctx, doc, text)
	if err != nil {
		return "", err
	}
	if ing.logger != nil {
		ing.logger.Debug("file ingested",
			zap.String("path", absPath),
			zap.String("doc_id", doc.ID),
			zap.String("status", status))
	}
	return status, nil
}

// IngestText ingests raw text under the given document ID and title.
func (ing *Ingestor) IngestText(ctx context.Context, id, title, text string) (string, error) {
	doc := &models.Document{ID: id, Title: title}
	return ing.ingest(ctx, doc, text)
}

func (ing *Ingestor) ingest(ctx context.Context, doc *models.Document, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return StatusNoText, nil
	}
	chunks := ing.chunker.Chunk(doc.ID, text)
	if len(chunks) == 0 {
		return StatusNoChunks, nil
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vectors, err := ing.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return "", fmt.Errorf("embed chunks: %w", err)
	}
	for _, vec := range vectors {
		utils.NormalizeL2(vec)
	}

	if err := ing.index.Replace(chunks, vectors); err != nil {
		return "", fmt.Errorf("replace index: %w", err)
	}
	if ing.store != nil {
		if err := ing.store.ReplaceCorpus(ctx, doc, chunks); err != nil {
			return "", fmt.Errorf("record corpus: %w", err)
		}
	}
	return fmt.Sprintf(statusLoadedFmt, len(chunks)), nil
}

// RebuildFromStore re-embeds the chunks persisted in the corpus registry and
// republishes the vector index. Called on startup so a process restart keeps
// the previously loaded corpus. A missing registry or empty corpus is a no-op.
func (ing *Ingestor) RebuildFromStore(ctx context.Context) error {
	if ing.store == nil {
		return nil
	}
	docs, err := ing.store.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}
	if len(docs) == 0 {
		return nil
	}
	chunks, err := ing.store.GetChunks(ctx, docs[0].ID)
	if err != nil {
		return fmt.Errorf("load chunks: %w", err)
	}
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vectors, err := ing.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	for _, vec := range vectors {
		utils.NormalizeL2(vec)
	}
	if err := ing.index.Replace(chunks, vectors); err != nil {
		return fmt.Errorf("replace index: %w", err)
	}
	if ing.logger != nil {
		ing.logger.Info("vector index rebuilt from registry",
			zap.String("doc_id", docs[0].ID),
			zap.Int("chunks", len(chunks)))
	}
	return nil
}
