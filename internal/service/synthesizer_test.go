package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

type fakeCompleter struct {
	answer string
	err    error
	calls  int
	prompt string
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func synthCandidates(scores ...float64) []Candidate {
	page := 3
	out := make([]Candidate, len(scores))
	for i, s := range scores {
		out[i] = Candidate{
			Content:    "X is defined as Y on page 3.",
			PageNumber: &page,
			Source:     "notes.pdf",
			Score:      s,
			DocumentID: uuid.New(),
		}
	}
	return out
}

func TestSynthesizeEmptyContextShortCircuits(t *testing.T) {
	t.Parallel()
	llm := &fakeCompleter{answer: "should never run"}
	s := NewAnswerSynthesizer(llm)

	got := s.Synthesize(context.Background(), "What is X?", nil, nil)
	if llm.calls != 0 {
		t.Fatalf("expected zero model calls, got %d", llm.calls)
	}
	if got.Answer != noContextAnswer {
		t.Errorf("unexpected answer: %q", got.Answer)
	}
	if got.Confidence != 0.0 {
		t.Errorf("expected confidence 0.0, got %v", got.Confidence)
	}
	if len(got.Citations) != 0 {
		t.Errorf("expected no citations, got %d", len(got.Citations))
	}
}

func TestSynthesizeFailureReturnsApology(t *testing.T) {
	t.Parallel()
	llm := &fakeCompleter{err: errors.New("timeout")}
	s := NewAnswerSynthesizer(llm)

	got := s.Synthesize(context.Background(), "What is X?", synthCandidates(0.9), nil)
	if got.Answer != apologyAnswer {
		t.Errorf("unexpected answer: %q", got.Answer)
	}
	if got.Confidence != 0.0 || len(got.Citations) != 0 {
		t.Errorf("failed synthesis must carry no confidence or citations: %+v", got)
	}
	if got.Status != StageFailed {
		t.Errorf("expected StageFailed, got %s", got.Status)
	}
}

func TestSynthesizePromptContainsContextHistoryAndQuestion(t *testing.T) {
	t.Parallel()
	llm := &fakeCompleter{answer: "X is Y."}
	s := NewAnswerSynthesizer(llm)

	history := []ChatTurn{
		{Role: "user", Content: "Hi there"},
		{Role: "assistant", Content: "Hello!"},
	}
	s.Synthesize(context.Background(), "What is X?", synthCandidates(0.9), history)

	for _, want := range []string{
		"[1] Source: notes.pdf, Page: 3",
		"X is defined as Y on page 3.",
		"User: Hi there",
		"Assistant: Hello!",
		"QUESTION: What is X?",
		"based ONLY on the information in the CONTEXT",
		insufficientInfoPhrase,
	} {
		if !strings.Contains(llm.prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestSynthesizeNoInfoAnswer(t *testing.T) {
	t.Parallel()
	llm := &fakeCompleter{answer: "I don't have enough information to answer this question based on the provided course materials."}
	s := NewAnswerSynthesizer(llm)

	got := s.Synthesize(context.Background(), "What is Z?", synthCandidates(4, 3, 2), nil)
	if got.Confidence != 0.1 {
		t.Errorf("expected pinned confidence 0.1, got %v", got.Confidence)
	}
	if len(got.Citations) != 0 {
		t.Errorf("no-info answers must not cite, got %d citations", len(got.Citations))
	}
}

func TestSynthesizeSingleCitationFromBestCandidate(t *testing.T) {
	t.Parallel()
	llm := &fakeCompleter{answer: "X is Y."}
	s := NewAnswerSynthesizer(llm)

	cands := synthCandidates(0.9, 0.8, 0.7)
	got := s.Synthesize(context.Background(), "What is X?", cands, nil)

	if len(got.Citations) != 1 {
		t.Fatalf("expected exactly one citation, got %d", len(got.Citations))
	}
	c := got.Citations[0]
	if c.DocumentID != cands[0].DocumentID {
		t.Errorf("citation must come from the top candidate")
	}
	if c.PageNumber == nil || *c.PageNumber != 3 {
		t.Errorf("expected page 3, got %v", c.PageNumber)
	}
	if c.RelevanceScore != 0.9 {
		t.Errorf("vector scores pass through unchanged, got %v", c.RelevanceScore)
	}
}

func TestSynthesizeQuoteTruncation(t *testing.T) {
	t.Parallel()
	llm := &fakeCompleter{answer: "Long answer."}
	s := NewAnswerSynthesizer(llm)

	long := strings.Repeat("a", 400)
	page := 1
	cands := []Candidate{{Content: long, PageNumber: &page, Source: "notes.pdf", Score: 0.5, DocumentID: uuid.New()}}
	got := s.Synthesize(context.Background(), "q", cands, nil)

	quote := got.Citations[0].Quote
	if quote != strings.Repeat("a", 150)+"..." {
		t.Errorf("expected 150-char ellipsized quote, got %d chars", len(quote))
	}
}

func TestNormalizeScore(t *testing.T) {
	t.Parallel()
	cases := []struct {
		raw  float64
		want float64
	}{
		{0.0, 0.0},
		{0.42, 0.42},
		{1.0, 1.0},
		{2.0, 0.4},
		{5.0, 1.0},
		{12.0, 1.0},
	}
	for _, tc := range cases {
		if got := normalizeScore(tc.raw); got != tc.want {
			t.Errorf("normalizeScore(%v) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestConfidenceBounds(t *testing.T) {
	t.Parallel()
	llm := &fakeCompleter{answer: "A real answer."}
	s := NewAnswerSynthesizer(llm)

	cases := [][]float64{
		{0.01},
		{0.9, 0.8, 0.7, 0.6, 0.5},
		{12, 9, 7},
		{1.0, 1.0, 1.0, 1.0, 1.0, 1.0},
	}
	for _, scores := range cases {
		got := s.Synthesize(context.Background(), "q", synthCandidates(scores...), nil)
		if got.Confidence < 0.1 || got.Confidence > 0.95 {
			t.Errorf("confidence %v out of bounds for scores %v", got.Confidence, scores)
		}
	}
}

func TestConfidenceFormula(t *testing.T) {
	t.Parallel()
	llm := &fakeCompleter{answer: "A real answer."}
	s := NewAnswerSynthesizer(llm)

	// Two candidates at similarity 0.8 and 0.6:
	// avg = 0.7, count factor = 2/5, best = 0.8
	// 0.5*0.7 + 0.3*0.4 + 0.2*0.8 = 0.63
	got := s.Synthesize(context.Background(), "q", synthCandidates(0.8, 0.6), nil)
	if diff := got.Confidence - 0.63; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected confidence 0.63, got %v", got.Confidence)
	}
}
