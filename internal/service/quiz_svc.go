package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/aswithabukka/LLM-AI-Teaching-Assistant-RAG/internal/model"
)

const (
	quizMaxChunks       = 10
	quizMaxContextChars = 4000
)

var ErrNoQuizContent = errors.New("document has no content to quiz on")

const (
	QuestionTypeMCQ       = "mcq"
	QuestionTypeTrueFalse = "true_false"
)

type QuizQuestion struct {
	ID            int      `json:"id"`
	Type          string   `json:"type"`
	Question      string   `json:"question"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation,omitempty"`
}

type Quiz struct {
	DocumentID uuid.UUID      `json:"document_id"`
	Questions  []QuizQuestion `json:"questions"`
}

// ChunkFinder loads a document's stored chunks in chunk-index order.
type ChunkFinder interface {
	FindChunksByDocumentID(ctx context.Context, documentID uuid.UUID, limit int) ([]model.DocumentChunk, error)
}

// QuizService generates practice questions from a document's chunks. Model
// output that cannot be parsed falls back to a deterministic quiz built from
// the chunk text itself, so generation never fails once content exists.
type QuizService struct {
	chunks ChunkFinder
	llm    Completer
}

func NewQuizService(chunks ChunkFinder, llm Completer) *QuizService {
	return &QuizService{chunks: chunks, llm: llm}
}

func (s *QuizService) Generate(ctx context.Context, documentID uuid.UUID, numQuestions int, types []string) (*Quiz, error) {
	if numQuestions <= 0 {
		numQuestions = 5
	}
	if len(types) == 0 {
		types = []string{QuestionTypeMCQ, QuestionTypeTrueFalse}
	}

	chunks, err := s.chunks.FindChunksByDocumentID(ctx, documentID, quizMaxChunks)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	if len(chunks) == 0 {
		return nil, ErrNoQuizContent
	}

	content := quizContext(chunks)
	questions := s.generateWithModel(ctx, content, numQuestions, types)
	if len(questions) == 0 {
		questions = fallbackQuiz(chunks, numQuestions)
	}
	if len(questions) > numQuestions {
		questions = questions[:numQuestions]
	}
	for i := range questions {
		questions[i].ID = i + 1
	}

	return &Quiz{DocumentID: documentID, Questions: questions}, nil
}

// quizContext caps the prompt context at quizMaxContextChars characters,
// truncating on a character boundary.
func quizContext(chunks []model.DocumentChunk) string {
	var b strings.Builder
	total := 0
	for _, c := range chunks {
		runes := []rune(c.Content)
		if total+len(runes) > quizMaxContextChars {
			remaining := quizMaxContextChars - total
			if remaining > 0 {
				b.WriteString(string(runes[:remaining]))
			}
			break
		}
		b.WriteString(c.Content)
		b.WriteString("\n\n")
		total += len(runes) + 2
	}
	return b.String()
}

func (s *QuizService) generateWithModel(ctx context.Context, content string, numQuestions int, types []string) []QuizQuestion {
	prompt := buildQuizPrompt(content, numQuestions, types)
	raw, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		log.Printf("quiz generation failed, using fallback: %v", err)
		return nil
	}
	parsed, err := parseQuizResponse(raw)
	if err != nil {
		log.Printf("quiz response unparseable, using fallback: %v", err)
		return nil
	}
	return validateQuestions(parsed)
}

func buildQuizPrompt(content string, numQuestions int, types []string) string {
	var b strings.Builder
	b.WriteString("You are a quiz generator for course materials.\n\n")
	fmt.Fprintf(&b, "CONTENT:\n%s\n\n", content)
	fmt.Fprintf(&b, "Generate exactly %d questions of types: %s.\n", numQuestions, strings.Join(types, ", "))
	b.WriteString("Respond with ONLY a JSON object in this exact format, no other text:\n")
	b.WriteString(`{"questions": [{"id": 1, "type": "mcq", "question": "...", "options": ["...", "..."], "correct_answer": "...", "explanation": "..."}]}`)
	b.WriteString("\nFor true_false questions omit options and answer \"true\" or \"false\".\n")
	return b.String()
}

// parseQuizResponse extracts the outermost JSON object from the model output.
// Models often wrap JSON in prose or code fences despite instructions.
func parseQuizResponse(raw string) ([]QuizQuestion, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, errors.New("no JSON object in response")
	}
	var payload struct {
		Questions []QuizQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &payload); err != nil {
		return nil, err
	}
	return payload.Questions, nil
}

func validateQuestions(questions []QuizQuestion) []QuizQuestion {
	var valid []QuizQuestion
	for _, q := range questions {
		q.Question = strings.TrimSpace(q.Question)
		if q.Question == "" || q.CorrectAnswer == "" {
			continue
		}
		switch strings.ToLower(q.Type) {
		case QuestionTypeMCQ, "multiple_choice":
			q.Type = QuestionTypeMCQ
			if len(q.Options) < 2 || !containsOption(q.Options, q.CorrectAnswer) {
				continue
			}
		case QuestionTypeTrueFalse, "truefalse", "boolean":
			q.Type = QuestionTypeTrueFalse
			answer := strings.ToLower(q.CorrectAnswer)
			if answer != "true" && answer != "false" {
				continue
			}
			q.CorrectAnswer = answer
			q.Options = nil
		default:
			continue
		}
		valid = append(valid, q)
	}
	return valid
}

func containsOption(options []string, answer string) bool {
	for _, o := range options {
		if strings.EqualFold(strings.TrimSpace(o), strings.TrimSpace(answer)) {
			return true
		}
	}
	return false
}

// fallbackQuiz builds true/false questions directly from chunk sentences so a
// quiz is always available even without a working model.
func fallbackQuiz(chunks []model.DocumentChunk, numQuestions int) []QuizQuestion {
	var questions []QuizQuestion
	for _, c := range chunks {
		if len(questions) >= numQuestions {
			break
		}
		sentence := firstSentence(c.Content)
		if sentence == "" {
			continue
		}
		questions = append(questions, QuizQuestion{
			Type:          QuestionTypeTrueFalse,
			Question:      fmt.Sprintf("True or false: %s", sentence),
			CorrectAnswer: "true",
			Explanation:   "Stated directly in the course materials.",
		})
	}
	return questions
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			return strings.TrimSpace(text[:i+1])
		}
	}
	if len(text) > 120 {
		return strings.TrimSpace(text[:120])
	}
	return text
}
