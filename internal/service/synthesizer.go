package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
)

const (
	noContextAnswer = "I couldn't find any relevant information in the course materials to answer your question."
	apologyAnswer   = "I'm sorry, but I couldn't generate an answer at this time."

	insufficientInfoPhrase = "I don't have enough information to answer this question based on the provided course materials."

	// Fallback keyword scores are occurrence counts; anything above this is
	// squashed into [0, 1] during confidence scoring.
	rawScoreDivisor = 5.0

	maxQuoteLength = 150

	confidenceFloor   = 0.1
	confidenceCeiling = 0.95
)

// noInfoMarkers classify a raw model answer as "the context did not support
// an answer". Matching is case-insensitive substring.
var noInfoMarkers = []string{
	"i don't have enough information",
	"i do not have enough information",
	"couldn't find any relevant information",
	"could not find any relevant information",
	"no relevant information",
}

// ChatTurn is one prior conversation turn rendered into the prompt.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CitationDraft identifies the passage an answer was grounded on, before the
// document reference has been validated against storage.
type CitationDraft struct {
	DocumentID     uuid.UUID `json:"document_id"`
	Source         string    `json:"source"`
	PageNumber     *int      `json:"page_number,omitempty"`
	Quote          string    `json:"quote"`
	RelevanceScore float64   `json:"relevance_score"`
}

// AnswerResult is the structured outcome of answer synthesis. It is always
// well formed: degraded and failed syntheses still carry an answer text.
type AnswerResult struct {
	Answer     string          `json:"answer"`
	Confidence float64         `json:"confidence"`
	Citations  []CitationDraft `json:"citations"`
	Status     StageStatus     `json:"-"`
}

// AnswerSynthesizer builds a grounded prompt from ranked context and chat
// history, invokes the generative model, and post-processes the raw answer
// into an AnswerResult with a single best citation and a confidence score.
type AnswerSynthesizer struct {
	llm Completer
}

func NewAnswerSynthesizer(llm Completer) *AnswerSynthesizer {
	return &AnswerSynthesizer{llm: llm}
}

// Synthesize never calls the model when there is no context, and never
// returns an error: provider failure degrades to a fixed apology.
func (s *AnswerSynthesizer) Synthesize(ctx context.Context, question string, candidates []Candidate, history []ChatTurn) AnswerResult {
	if len(candidates) == 0 {
		return AnswerResult{
			Answer:     noContextAnswer,
			Confidence: 0.0,
			Citations:  []CitationDraft{},
			Status:     StageSucceeded,
		}
	}

	prompt := buildAnswerPrompt(question, candidates, history)

	raw, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		log.Printf("answer generation failed: %v", err)
		return AnswerResult{
			Answer:     apologyAnswer,
			Confidence: 0.0,
			Citations:  []CitationDraft{},
			Status:     StageFailed,
		}
	}

	answer := strings.TrimSpace(raw)
	hasNoInfo := containsNoInfoMarker(answer)

	result := AnswerResult{
		Answer:    answer,
		Citations: []CitationDraft{},
		Status:    StageSucceeded,
	}

	if hasNoInfo {
		// The model's own uncertainty overrides retrieval-score optimism.
		result.Confidence = confidenceFloor
		return result
	}

	best := candidates[0]
	result.Citations = append(result.Citations, CitationDraft{
		DocumentID:     best.DocumentID,
		Source:         best.Source,
		PageNumber:     best.PageNumber,
		Quote:          truncateWithEllipsis(best.Content, maxQuoteLength),
		RelevanceScore: normalizeScore(best.Score),
	})
	result.Confidence = computeConfidence(candidates)
	return result
}

func buildAnswerPrompt(question string, candidates []Candidate, history []ChatTurn) string {
	var b strings.Builder

	b.WriteString("You are a helpful AI assistant that answers questions based on provided course notes and educational materials.\n\n")
	b.WriteString("CONTEXT:\n")
	for i, c := range candidates {
		page := "Unknown"
		if c.PageNumber != nil {
			page = fmt.Sprintf("%d", *c.PageNumber)
		}
		source := c.Source
		if source == "" {
			source = "Unknown"
		}
		fmt.Fprintf(&b, "[%d] Source: %s, Page: %s\n%s\n\n", i+1, source, page, c.Content)
	}

	if len(history) > 0 {
		for _, turn := range history {
			switch turn.Role {
			case "user":
				fmt.Fprintf(&b, "User: %s\n", turn.Content)
			case "assistant":
				fmt.Fprintf(&b, "Assistant: %s\n", turn.Content)
			}
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "QUESTION: %s\n\n", question)
	b.WriteString("INSTRUCTIONS:\n")
	b.WriteString("Answer the question based ONLY on the information in the CONTEXT. If the answer is not in the context, say \"")
	b.WriteString(insufficientInfoPhrase)
	b.WriteString("\"\n\nANSWER:")

	return b.String()
}

func containsNoInfoMarker(answer string) bool {
	lower := strings.ToLower(answer)
	for _, marker := range noInfoMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// normalizeScore maps raw retrieval scores into [0, 1]. Vector similarities
// are already in range; fallback occurrence counts above 1 are divided down
// and clamped.
func normalizeScore(raw float64) float64 {
	if raw <= 1.0 {
		if raw < 0 {
			return 0
		}
		return raw
	}
	normalized := raw / rawScoreDivisor
	if normalized > 1.0 {
		return 1.0
	}
	return normalized
}

// computeConfidence blends average relevance, candidate count, and the best
// match into a bounded confidence value.
func computeConfidence(candidates []Candidate) float64 {
	sum := 0.0
	for _, c := range candidates {
		sum += normalizeScore(c.Score)
	}
	avgRelevance := sum / float64(len(candidates))

	chunkCountFactor := float64(len(candidates)) / 5.0
	if chunkCountFactor > 1.0 {
		chunkCountFactor = 1.0
	}

	bestMatch := normalizeScore(candidates[0].Score)

	confidence := 0.5*avgRelevance + 0.3*chunkCountFactor + 0.2*bestMatch
	if confidence < confidenceFloor {
		return confidenceFloor
	}
	if confidence > confidenceCeiling {
		return confidenceCeiling
	}
	return confidence
}

// truncateWithEllipsis shortens s to at most limit characters, appending an
// ellipsis when anything was cut. Rune-safe.
func truncateWithEllipsis(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
