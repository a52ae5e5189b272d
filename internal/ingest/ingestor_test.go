package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
)

func newTestIngestor(t *testing.T) (*Ingestor, *vector.Index, storage.Storage) {
	t.Helper()
	chunker, err := NewChunker(800, 150)
	if err != nil {
		t.Fatal(err)
	}
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "corpus.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	idx := vector.NewIndex()
	ing := NewIngestor(extract.NewExtractor(), chunker, llm.NewMockEmbedder(32), idx, store)
	return ing, idx, store
}

func TestIngestFile_shortDocumentSingleChunk(t *testing.T) {
	ing, idx, store := newTestIngestor(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "short.txt")
	if err := os.WriteFile(path, []byte("0123456789"), 0600); err != nil {
		t.Fatal(err)
	}

	status, err := ing.IngestFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if status != "Loaded 1 chunks." {
		t.Errorf("status = %q", status)
	}
	if idx.Size() != 1 {
		t.Errorf("index size = %d", idx.Size())
	}
	docs, err := store.ListDocuments(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].Title != "short.txt" || docs[0].ChunkCount != 1 {
		t.Errorf("registry = %+v", docs)
	}
}

func TestIngestFile_emptyFile(t *testing.T) {
	ing, idx, _ := newTestIngestor(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(path, []byte("   \n\t  "), 0600); err != nil {
		t.Fatal(err)
	}

	status, err := ing.IngestFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if status != StatusNoText {
		t.Errorf("status = %q", status)
	}
	if idx.Size() != 0 {
		t.Error("empty ingestion should not touch the index")
	}
}

func TestIngestFile_unreadable(t *testing.T) {
	ing, _, _ := newTestIngestor(t)
	if _, err := ing.IngestFile(context.Background(), "/nonexistent/file.txt"); err == nil {
		t.Error("expected error for unreadable file")
	}
}

func TestIngestText_replacesCorpus(t *testing.T) {
	ing, idx, store := newTestIngestor(t)
	ctx := context.Background()

	if _, err := ing.IngestText(ctx, "doc-a", "a", "first corpus text"); err != nil {
		t.Fatal(err)
	}
	if _, err := ing.IngestText(ctx, "doc-b", "b", "second corpus text"); err != nil {
		t.Fatal(err)
	}

	docs, err := store.ListDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].ID != "doc-b" {
		t.Errorf("registry after replace = %+v", docs)
	}
	if idx.Size() != 1 {
		t.Errorf("index size = %d", idx.Size())
	}
}

func TestIngestText_idempotentChunkCount(t *testing.T) {
	ing, idx, _ := newTestIngestor(t)
	ctx := context.Background()
	text := "The sky is blue. The grass is green. The sun is bright."

	s1, err := ing.IngestText(ctx, "doc", "t", text)
	if err != nil {
		t.Fatal(err)
	}
	size1 := idx.Size()
	s2, err := ing.IngestText(ctx, "doc", "t", text)
	if err != nil {
		t.Fatal(err)
	}
	if s1 != s2 {
		t.Errorf("statuses differ: %q vs %q", s1, s2)
	}
	if idx.Size() != size1 {
		t.Errorf("sizes differ: %d vs %d", size1, idx.Size())
	}
}

func TestRebuildFromStore(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "corpus.db")
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	chunker, _ := NewChunker(800, 150)
	embedder := llm.NewMockEmbedder(32)

	first := NewIngestor(extract.NewExtractor(), chunker, embedder, vector.NewIndex(), store)
	if _, err := first.IngestText(ctx, "doc", "t", "persisted corpus text"); err != nil {
		t.Fatal(err)
	}

	// A fresh index simulates a process restart; the registry repopulates it.
	idx := vector.NewIndex()
	second := NewIngestor(extract.NewExtractor(), chunker, embedder, idx, store)
	if err := second.RebuildFromStore(ctx); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 1 {
		t.Errorf("rebuilt index size = %d, want 1", idx.Size())
	}
}

func TestRebuildFromStore_emptyRegistryIsNoop(t *testing.T) {
	ing, idx, _ := newTestIngestor(t)
	if err := ing.RebuildFromStore(context.Background()); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 0 {
		t.Errorf("index size = %d", idx.Size())
	}
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, &llm.EmbeddingError{Err: errors.New("connection refused")}
}

func (failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, &llm.EmbeddingError{Err: errors.New("connection refused")}
}

func (failingEmbedder) Close() error { return nil }

func TestIngestText_embeddingFailurePropagates(t *testing.T) {
	chunker, _ := NewChunker(800, 150)
	idx := vector.NewIndex()
	ing := NewIngestor(extract.NewExtractor(), chunker, failingEmbedder{}, idx, nil)

	_, err := ing.IngestText(context.Background(), "doc", "t", "some text")
	if err == nil {
		t.Fatal("expected error")
	}
	var embErr *llm.EmbeddingError
	if !errors.As(err, &embErr) {
		t.Errorf("error should wrap *EmbeddingError, got %v", err)
	}
	if idx.Size() != 0 {
		t.Error("failed ingestion must not corrupt the index")
	}
}
