// Package llm provides clients for the external embedding and generation services.
package llm

import "context"

// Embedder produces vector embeddings for text. One service call is made per
// text; the embedding dimension is whatever the external model returns and
// must stay consistent across calls within one index lifetime.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Close() error
}

// Generator produces free-form text from a prompt. model overrides the
// client's default generation model when non-empty.
type Generator interface {
	Generate(ctx context.Context, prompt, model string) (string, error)
	Close() error
}

// EmbeddingError wraps a failure of the embedding service: transport error,
// timeout, non-2xx status, or a response missing the embedding field.
// Callers detect it with errors.As.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string { return "embedding service: " + e.Err.Error() }
func (e *EmbeddingError) Unwrap() error { return e.Err }

// GenerationError wraps a failure of the generation service.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return "generation service: " + e.Err.Error() }
func (e *GenerationError) Unwrap() error { return e.Err }
