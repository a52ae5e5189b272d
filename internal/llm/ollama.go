package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaConfig configures the Ollama HTTP client.
type OllamaConfig struct {
	BaseURL         string
	EmbeddingModel  string
	GenerationModel string
	EmbedTimeout    time.Duration
	GenerateTimeout time.Duration
}

// OllamaClient talks to a local Ollama instance over HTTP. It implements both
// Embedder and Generator. Embedding and generation use separate HTTP clients
// because the external SLAs differ (~120s vs ~180s per call).
type OllamaClient struct {
	cfg       OllamaConfig
	embedHTTP *http.Client
	chatHTTP  *http.Client
}

// NewOllamaClient creates a client with the given configuration. Zero timeouts
// default to 120s for embedding and 180s for generation.
func NewOllamaClient(cfg OllamaConfig) *OllamaClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.EmbedTimeout == 0 {
		cfg.EmbedTimeout = 120 * time.Second
	}
	if cfg.GenerateTimeout == 0 {
		cfg.GenerateTimeout = 180 * time.Second
	}
	return &OllamaClient{
		cfg:       cfg,
		embedHTTP: &http.Client{Timeout: cfg.EmbedTimeout},
		chatHTTP:  &http.Client{Timeout: cfg.GenerateTimeout},
	}
}

type embeddingsRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingsResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed returns the embedding vector for a single text.
// Failures are wrapped in *EmbeddingError.
func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := embeddingsRequest{
		Model:  strings.TrimSpace(c.cfg.EmbeddingModel),
		Prompt: text,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &EmbeddingError{Err: fmt.Errorf("marshal request: %w", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, &EmbeddingError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.embedHTTP.Do(req)
	if err != nil {
		return nil, &EmbeddingError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, &EmbeddingError{Err: fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))}
	}
	var out embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &EmbeddingError{Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(out.Embedding) == 0 {
		return nil, &EmbeddingError{Err: fmt.Errorf("response missing embedding field")}
	}
	return out.Embedding, nil
}

// EmbedBatch embeds each text with an independent service call, preserving
// order. The first failure aborts the batch; partial vectors are never
// returned since a partially embedded corpus would corrupt the index.
func (c *OllamaClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := c.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

// Generate sends the prompt as a single user message to the chat API and
// returns the generated content. Failures are wrapped in *GenerationError.
func (c *OllamaClient) Generate(ctx context.Context, prompt, model string) (string, error) {
	if model == "" {
		model = c.cfg.GenerationModel
	}
	reqBody := chatRequest{
		Model:    strings.TrimSpace(model),
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Stream:   false,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", &GenerationError{Err: fmt.Errorf("marshal request: %w", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", &GenerationError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.chatHTTP.Do(req)
	if err != nil {
		return "", &GenerationError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", &GenerationError{Err: fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))}
	}
	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &GenerationError{Err: fmt.Errorf("decode response: %w", err)}
	}
	return out.Message.Content, nil
}

// Close is a no-op; the underlying HTTP clients have no resources to release.
func (c *OllamaClient) Close() error {
	return nil
}
