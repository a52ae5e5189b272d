package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
)

// fixedEmbedder returns a preset vector for every query.
type fixedEmbedder struct {
	vec []float32
}

func (e *fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out := make([]float32, len(e.vec))
	copy(out, e.vec)
	return out, nil
}

func (e *fixedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i], _ = e.Embed(ctx, texts[i])
	}
	return out, nil
}

func (e *fixedEmbedder) Close() error { return nil }

// recordingGenerator captures the prompt it was asked to complete.
type recordingGenerator struct {
	prompt string
	model  string
	answer string
	err    error
}

func (g *recordingGenerator) Generate(ctx context.Context, prompt, model string) (string, error) {
	g.prompt = prompt
	g.model = model
	return g.answer, g.err
}

func (g *recordingGenerator) Close() error { return nil }

func buildIndex(t *testing.T, texts []string, vectors [][]float32) *vector.Index {
	t.Helper()
	chunks := make([]models.Chunk, len(texts))
	for i, txt := range texts {
		chunks[i] = models.Chunk{DocumentID: "doc", Index: i, Text: txt}
	}
	idx := vector.NewIndex()
	if err := idx.Replace(chunks, vectors); err != nil {
		t.Fatal(err)
	}
	return idx
}

func TestAnswerQuestion_noDocumentsLoaded(t *testing.T) {
	gen := &recordingGenerator{answer: "should not be called"}
	e := NewEngine(&fixedEmbedder{vec: []float32{1, 0}}, gen, vector.NewIndex())

	answer, citations, err := e.AnswerQuestion(context.Background(), "anything?", 5, "")
	if err != nil {
		t.Fatal(err)
	}
	if answer != AnswerNoDocuments {
		t.Errorf("answer = %q", answer)
	}
	if citations != "" {
		t.Errorf("citations = %q, want empty", citations)
	}
	if gen.prompt != "" {
		t.Error("generator must not be called before any ingestion")
	}
}

func TestAnswerQuestion_weakRetrieval(t *testing.T) {
	idx := buildIndex(t, []string{"The sky is blue."}, [][]float32{{1, 0}})
	gen := &recordingGenerator{answer: "should not be called"}
	// Query nearly orthogonal to the only chunk: similarity 0.1 < 0.2.
	e := NewEngine(&fixedEmbedder{vec: []float32{0.1, 0.99498743}}, gen, idx)

	answer, citations, err := e.AnswerQuestion(context.Background(), "what?", 5, "")
	if err != nil {
		t.Fatal(err)
	}
	if answer != AnswerWeakRetrieval {
		t.Errorf("answer = %q", answer)
	}
	if !strings.Contains(citations, "[1] score=0.100") {
		t.Errorf("weak answers still carry citations, got %q", citations)
	}
	if gen.prompt != "" {
		t.Error("generator must not be called when retrieval is gated")
	}
}

func TestAnswerQuestion_groundedAnswer(t *testing.T) {
	idx := buildIndex(t,
		[]string{"The sky is blue.", "Grass is green."},
		[][]float32{{1, 0}, {0, 1}})
	gen := &recordingGenerator{answer: "The sky is blue."}
	e := NewEngine(&fixedEmbedder{vec: []float32{1, 0}}, gen, idx)

	answer, citations, err := e.AnswerQuestion(context.Background(), "What color is the sky?", 5, "test-model")
	if err != nil {
		t.Fatal(err)
	}
	if answer != "The sky is blue." {
		t.Errorf("answer = %q", answer)
	}
	if !strings.Contains(gen.prompt, "[1] The sky is blue.") {
		t.Errorf("prompt context missing best chunk:\n%s", gen.prompt)
	}
	if !strings.Contains(gen.prompt, "Question: What color is the sky?") {
		t.Errorf("prompt missing question:\n%s", gen.prompt)
	}
	if !strings.Contains(gen.prompt, "Answer ONLY using the context.") {
		t.Errorf("prompt missing grounding instruction:\n%s", gen.prompt)
	}
	if gen.model != "test-model" {
		t.Errorf("model = %q", gen.model)
	}
	if !strings.HasPrefix(citations, "[1] score=1.000 | \"The sky is blue.\"") {
		t.Errorf("citations = %q", citations)
	}
}

func TestAnswerQuestion_citationsCoverAllResults(t *testing.T) {
	idx := buildIndex(t,
		[]string{"alpha", "beta", "gamma"},
		[][]float32{{1, 0}, {0.8, 0.6}, {0.6, 0.8}})
	gen := &recordingGenerator{answer: "ok"}
	e := NewEngine(&fixedEmbedder{vec: []float32{1, 0}}, gen, idx)

	_, citations, err := e.AnswerQuestion(context.Background(), "q", 3, "")
	if err != nil {
		t.Fatal(err)
	}
	if n := len(strings.Split(citations, "\n")); n != 3 {
		t.Errorf("citation lines = %d, want 3", n)
	}
}

func TestAnswerQuestion_generationErrorPropagates(t *testing.T) {
	idx := buildIndex(t, []string{"text"}, [][]float32{{1, 0}})
	gen := &recordingGenerator{err: &llm.GenerationError{Err: errors.New("boom")}}
	e := NewEngine(&fixedEmbedder{vec: []float32{1, 0}}, gen, idx)

	_, _, err := e.AnswerQuestion(context.Background(), "q", 5, "")
	var genErr *llm.GenerationError
	if !errors.As(err, &genErr) {
		t.Errorf("error should wrap *GenerationError, got %v", err)
	}
}

func TestRetrieve_emptyIndexIsNotAnError(t *testing.T) {
	e := NewEngine(&fixedEmbedder{vec: []float32{1, 0}}, &recordingGenerator{}, vector.NewIndex())
	results, err := e.Retrieve(context.Background(), "q", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("results = %v, want empty", results)
	}
}

func TestRetrieve_ranksDescending(t *testing.T) {
	idx := buildIndex(t,
		[]string{"far", "near"},
		[][]float32{{0, 1}, {1, 0}})
	e := NewEngine(&fixedEmbedder{vec: []float32{1, 0}}, &recordingGenerator{}, idx)

	results, err := e.Retrieve(context.Background(), "q", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].Chunk.Text != "near" || results[1].Chunk.Text != "far" {
		t.Errorf("results = %+v", results)
	}
}
