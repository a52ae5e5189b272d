// Package rag implements the question-answering pipeline: embed the query,
// search the vector index, gate on retrieval confidence, and synthesize a
// grounded answer with citations.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/pkg/utils"
)

// Sentinel answers returned without calling the generation service.
const (
	AnswerNoDocuments   = "I don't know (no documents loaded)."
	AnswerWeakRetrieval = "I don't know (retrieval seems weak)."
)

const groundedPromptFmt = `
You are a helpful assistant.
Answer ONLY using the context.
If the answer is not in the context, say "I don't know".

Context:
%s

Question: %s
`

// Engine answers questions against the currently loaded corpus.
type Engine struct {
	embedder  llm.Embedder
	generator llm.Generator
	index     *vector.Index

	confidenceThreshold float64
	citationLimit       int
	citationQuoteLen    int

	logger *zap.Logger // optional
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a logger for debug output (retrieval scores, gating decisions).
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithConfidenceThreshold overrides the minimum best-result similarity below
// which the engine declines to answer.
func WithConfidenceThreshold(t float64) EngineOption {
	return func(e *Engine) { e.confidenceThreshold = t }
}

// WithCitationFormat overrides how many citations are rendered and how long
// each quote may be.
func WithCitationFormat(limit, quoteLen int) EngineOption {
	return func(e *Engine) {
		e.citationLimit = limit
		e.citationQuoteLen = quoteLen
	}
}

// NewEngine creates an answer engine over the given index and LLM services.
func NewEngine(embedder llm.Embedder, generator llm.Generator, index *vector.Index, opts ...EngineOption) *Engine {
	e := &Engine{
		embedder:            embedder,
		generator:           generator,
		index:               index,
		confidenceThreshold: 0.2,
		citationLimit:       5,
		citationQuoteLen:    220,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Retrieve embeds the query, normalizes it, and returns the topK most similar
// chunks ranked descending by cosine similarity. An unbuilt or empty index
// yields an empty result, not an error.
func (e *Engine) Retrieve(ctx context.Context, query string, topK int) ([]models.RetrievedChunk, error) {
	qv, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	utils.NormalizeL2(qv)

	hits, err := e.index.Search(qv, topK)
	if err != nil {
		if errors.Is(err, vector.ErrNotReady) {
			return nil, nil
		}
		return nil, fmt.Errorf("index search failed: %w", err)
	}

	results := make([]models.RetrievedChunk, 0, len(hits))
	for _, h := range hits {
		results = append(results, models.RetrievedChunk{Score: h.Score, Chunk: h.Chunk})
	}
	return results, nil
}

// AnswerQuestion runs the full pipeline: retrieve, gate on confidence, build a
// grounded prompt, and call the generation service. It returns the answer text
// and a citation block. When no documents are loaded, or when the best match
// scores below the confidence threshold, a sentinel answer is returned without
// calling the generator.
func (e *Engine) AnswerQuestion(ctx context.Context, question string, topK int, model string) (string, string, error) {
	results, err := e.Retrieve(ctx, question, topK)
	if err != nil {
		return "", "", err
	}

	if len(results) == 0 {
		return AnswerNoDocuments, "", nil
	}

	citations := FormatCitations(results, e.citationLimit, e.citationQuoteLen)

	best := results[0].Score
	if best < e.confidenceThreshold {
		if e.logger != nil {
			e.logger.Debug("retrieval below confidence threshold",
				zap.Float64("best_score", best),
				zap.Float64("threshold", e.confidenceThreshold))
		}
		return AnswerWeakRetrieval, citations, nil
	}

	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s", i+1, r.Chunk.Text)
	}
	prompt := fmt.Sprintf(groundedPromptFmt, b.String(), question)

	answer, err := e.generator.Generate(ctx, prompt, model)
	if err != nil {
		return "", "", err
	}
	if e.logger != nil {
		e.logger.Debug("answered question",
			zap.Float64("best_score", best),
			zap.Int("results", len(results)))
	}
	return answer, citations, nil
}
