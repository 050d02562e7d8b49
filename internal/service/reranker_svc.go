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
)

// RerankerService reorders retrieved candidates with a Cohere-compatible
// rerank endpoint. Reranking is a quality enhancement, never a hard
// dependency: any provider failure returns the candidates unmodified.
type RerankerService struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewRerankerService(apiKey, baseURL, model string) *RerankerService {
	if baseURL == "" {
		baseURL = "https://api.cohere.ai"
	}
	if model == "" {
		model = "rerank-english-v3.0"
	}
	return &RerankerService{
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Rerank returns candidates ordered by descending provider relevance and
// truncated to topN. On failure the input comes back untouched with
// StageDegraded so the pipeline keeps the retrieval ordering.
func (s *RerankerService) Rerank(ctx context.Context, query string, candidates []Candidate, topN int) ([]Candidate, StageStatus) {
	if len(candidates) == 0 {
		return nil, StageSucceeded
	}
	if topN <= 0 {
		topN = len(candidates)
	}
	if s.apiKey == "" {
		return candidates, StageDegraded
	}

	docs := make([]string, len(candidates))
	for i, c := range candidates {
		docs[i] = c.Content
	}

	resp, err := s.callRerank(ctx, rerankRequest{
		Model:     s.model,
		Query:     query,
		Documents: docs,
		TopN:      topN,
	})
	if err != nil {
		log.Printf("rerank failed, keeping retrieval order: %v", err)
		return candidates, StageDegraded
	}

	reranked := make([]Candidate, 0, len(resp.Results))
	for _, result := range resp.Results {
		if result.Index < 0 || result.Index >= len(candidates) {
			log.Printf("rerank returned out-of-range index %d, keeping retrieval order", result.Index)
			return candidates, StageDegraded
		}
		c := candidates[result.Index]
		c.Score = result.RelevanceScore
		reranked = append(reranked, c)
	}
	if len(reranked) > topN {
		reranked = reranked[:topN]
	}
	return reranked, StageSucceeded
}

func (s *RerankerService) callRerank(ctx context.Context, reqBody rerankRequest) (*rerankResponse, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/rerank", bytes.NewReader(jsonBody))
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

	var rr rerankResponse
	if err := json.Unmarshal(body, &rr); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &rr, nil
}
