package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/pgvector/pgvector-go"
)

// embeddingBatchSize caps how many inputs go into a single provider call.
const embeddingBatchSize = 100

// EmbeddingService turns text into fixed-length vectors through an
// OpenAI-compatible embeddings endpoint. It fails soft: callers get an empty
// result instead of an error when the provider is unavailable, which signals
// the retriever to fall back to keyword search.
type EmbeddingService struct {
	apiKey     string
	baseURL    string
	model      string
	dimensions int
	httpClient *http.Client
}

func NewEmbeddingService(apiKey, baseURL, model string, dimensions int) *EmbeddingService {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	if dimensions == 0 {
		dimensions = 1536
	}
	return &EmbeddingService{
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
		dimensions: dimensions,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type embeddingRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns one vector per input text, in input order. Inputs are split
// into provider-sized batches. Any failure yields an empty slice.
func (s *EmbeddingService) Embed(ctx context.Context, texts []string) []pgvector.Vector {
	if len(texts) == 0 {
		return nil
	}

	all := make([]pgvector.Vector, 0, len(texts))
	for start := 0; start < len(texts); start += embeddingBatchSize {
		end := start + embeddingBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := s.embedBatch(ctx, texts[start:end])
		if err != nil {
			log.Printf("embedding request failed, treating embeddings as unavailable: %v", err)
			return nil
		}
		all = append(all, batch...)
	}
	return all
}

// EmbedOne embeds a single text. The second return is false when embeddings
// are unavailable.
func (s *EmbeddingService) EmbedOne(ctx context.Context, text string) (pgvector.Vector, bool) {
	vectors := s.Embed(ctx, []string{text})
	if len(vectors) == 0 {
		return pgvector.Vector{}, false
	}
	return vectors[0], true
}

func (s *EmbeddingService) embedBatch(ctx context.Context, texts []string) ([]pgvector.Vector, error) {
	reqBody := embeddingRequest{
		Input: texts,
		Model: s.model,
	}
	if s.dimensions > 0 {
		reqBody.Dimensions = s.dimensions
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/embeddings", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(embResp.Data) != len(texts) {
		return nil, fmt.Errorf("provider returned %d embeddings for %d inputs", len(embResp.Data), len(texts))
	}

	vectors := make([]pgvector.Vector, len(embResp.Data))
	for _, item := range embResp.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, fmt.Errorf("provider returned out-of-range index %d", item.Index)
		}
		vectors[item.Index] = pgvector.NewVector(item.Embedding)
	}
	return vectors, nil
}

func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}
