package service

import (
	"context"
	"log"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/aswithabukka/LLM-AI-Teaching-Assistant-RAG/internal/repository"
)

// Candidate is a chunk scored against a specific query. Candidates live only
// for the duration of one question and carry their document id end-to-end so
// citations never have to be re-resolved by name.
type Candidate struct {
	Content    string
	PageNumber *int
	Source     string
	Score      float64
	DocumentID uuid.UUID
}

// Embedder is the query-side embedding contract. A false/empty result means
// embeddings are unavailable, never an error.
type Embedder interface {
	Embed(ctx context.Context, texts []string) []pgvector.Vector
	EmbedOne(ctx context.Context, text string) (pgvector.Vector, bool)
}

// ChunkSource loads persisted chunks for fallback keyword retrieval.
type ChunkSource interface {
	ChunksByCourse(ctx context.Context, courseID uuid.UUID) ([]repository.CourseChunk, error)
}

// Retriever returns ranked candidate chunks for a query within a course
// scope. Vector search is the primary path; when it is unavailable or empty
// the retriever silently falls back to deterministic keyword scoring over the
// persisted chunks, so questions keep working while the vector backend is
// down.
type Retriever struct {
	embedder Embedder
	index    VectorIndex
	chunks   ChunkSource
	topK     int
}

func NewRetriever(embedder Embedder, index VectorIndex, chunks ChunkSource, topK int) *Retriever {
	if topK <= 0 {
		topK = 5
	}
	return &Retriever{embedder: embedder, index: index, chunks: chunks, topK: topK}
}

// Retrieve never returns an error: on total failure the candidate list is
// empty and the synthesizer reports insufficient information. StageDegraded
// marks answers served from the keyword fallback.
func (r *Retriever) Retrieve(ctx context.Context, query string, courseID uuid.UUID, topK int) ([]Candidate, StageStatus) {
	if topK <= 0 {
		topK = r.topK
	}

	if candidates := r.vectorSearch(ctx, query, courseID, topK); len(candidates) > 0 {
		return candidates, StageSucceeded
	}

	candidates, err := r.fallbackTextSearch(ctx, query, courseID, topK)
	if err != nil {
		log.Printf("fallback text search failed for course %s: %v", courseID, err)
		return nil, StageFailed
	}
	return candidates, StageDegraded
}

func (r *Retriever) vectorSearch(ctx context.Context, query string, courseID uuid.UUID, topK int) []Candidate {
	queryVector, ok := r.embedder.EmbedOne(ctx, query)
	if !ok {
		log.Printf("query embedding unavailable, using fallback text search")
		return nil
	}

	if err := r.index.EnsureReady(ctx); err != nil {
		log.Printf("vector index unavailable, using fallback text search: %v", err)
		return nil
	}

	hits, err := r.index.Query(ctx, queryVector, topK, VectorFilter{CourseID: &courseID})
	if err != nil {
		log.Printf("vector search failed, using fallback text search: %v", err)
		return nil
	}

	candidates := make([]Candidate, 0, len(hits))
	for _, hit := range hits {
		candidates = append(candidates, Candidate{
			Content:    hit.Content,
			PageNumber: hit.PageNumber,
			Source:     hit.Source,
			Score:      hit.Score,
			DocumentID: hit.DocumentID,
		})
	}
	return candidates
}

// fallbackTextSearch scores chunks by summed keyword occurrence counts. It is
// deterministic: identical chunks and query always produce the same ordering.
func (r *Retriever) fallbackTextSearch(ctx context.Context, query string, courseID uuid.UUID, topK int) ([]Candidate, error) {
	chunks, err := r.chunks.ChunksByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	words := queryKeywords(query)
	if len(words) == 0 {
		return nil, nil
	}

	var scored []Candidate
	for _, chunk := range chunks {
		content := strings.ToLower(chunk.Content)
		score := 0
		for _, word := range words {
			score += strings.Count(content, word)
		}
		if score == 0 {
			continue
		}
		scored = append(scored, Candidate{
			Content:    chunk.Content,
			PageNumber: chunk.PageNumber,
			Source:     chunk.Source,
			Score:      float64(score),
			DocumentID: chunk.DocumentID,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// queryKeywords lowercases the query and keeps words longer than two
// characters.
func queryKeywords(query string) []string {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if utf8.RuneCountInString(w) > 2 {
			words = append(words, w)
		}
	}
	return words
}
