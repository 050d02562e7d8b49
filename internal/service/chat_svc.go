package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aswithabukka/LLM-AI-Teaching-Assistant-RAG/internal/model"
)

var ErrSessionNotFound = errors.New("chat session not found")

const sessionTitleLimit = 50

// ChatStore is the slice of the chat repository the orchestrator needs.
type ChatStore interface {
	CreateSession(ctx context.Context, session *model.ChatSession) error
	GetSessionForUser(ctx context.Context, id, userID uuid.UUID) (*model.ChatSession, error)
	AppendMessage(ctx context.Context, msg *model.ChatMessage) error
	ListMessages(ctx context.Context, sessionID uuid.UUID) ([]model.ChatMessage, error)
	AppendCitation(ctx context.Context, citation *model.Citation) error
}

// DocumentResolver validates citations against stored documents and pages.
type DocumentResolver interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Document, error)
	PageExists(ctx context.Context, documentID uuid.UUID, pageNumber int) (bool, error)
}

type CandidateRetriever interface {
	Retrieve(ctx context.Context, query string, courseID uuid.UUID, topK int) ([]Candidate, StageStatus)
}

type CandidateReranker interface {
	Rerank(ctx context.Context, query string, candidates []Candidate, topN int) ([]Candidate, StageStatus)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, question string, candidates []Candidate, history []ChatTurn) AnswerResult
}

// ChatService runs a question through session resolution, history load,
// retrieval, reranking, synthesis and persistence. Pipeline stages degrade
// rather than fail; only persistence errors propagate to the caller.
type ChatService struct {
	store       ChatStore
	docs        DocumentResolver
	retriever   CandidateRetriever
	reranker    CandidateReranker
	synthesizer Synthesizer
	cache       *HistoryCache
	topK        int
	topN        int
}

func NewChatService(
	store ChatStore,
	docs DocumentResolver,
	retriever CandidateRetriever,
	reranker CandidateReranker,
	synthesizer Synthesizer,
	cache *HistoryCache,
	topK, topN int,
) *ChatService {
	if topK <= 0 {
		topK = 5
	}
	if topN <= 0 {
		topN = 5
	}
	return &ChatService{
		store:       store,
		docs:        docs,
		retriever:   retriever,
		reranker:    reranker,
		synthesizer: synthesizer,
		cache:       cache,
		topK:        topK,
		topN:        topN,
	}
}

type AskRequest struct {
	UserID    uuid.UUID
	CourseID  uuid.UUID
	SessionID *uuid.UUID
	Question  string
}

type AskResponse struct {
	SessionID  uuid.UUID        `json:"session_id"`
	MessageID  uuid.UUID        `json:"message_id"`
	Answer     string           `json:"answer"`
	Confidence float64          `json:"confidence"`
	Citations  []model.Citation `json:"citations"`
	Retrieval  StageStatus      `json:"retrieval_status"`
	Rerank     StageStatus      `json:"rerank_status"`
	Synthesis  StageStatus      `json:"synthesis_status"`
}

// Ask answers a question within a chat session, creating the session when no
// id is supplied. The returned response is always well formed; degraded
// provider stages are reflected in the status fields, not in the error.
func (s *ChatService) Ask(ctx context.Context, req AskRequest) (*AskResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, errors.New("question must not be empty")
	}

	session, err := s.resolveSession(ctx, req, question)
	if err != nil {
		return nil, err
	}

	history, err := s.loadHistory(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}

	candidates, retrievalStatus := s.retriever.Retrieve(ctx, question, session.CourseID, s.topK)
	candidates, rerankStatus := s.reranker.Rerank(ctx, question, candidates, s.topN)
	result := s.synthesizer.Synthesize(ctx, question, candidates, history)

	userMsg := &model.ChatMessage{
		ChatSessionID: session.ID,
		Role:          model.RoleUser,
		Content:       question,
	}
	if err := s.store.AppendMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("persist user message: %w", err)
	}

	assistantMsg := &model.ChatMessage{
		ChatSessionID: session.ID,
		Role:          model.RoleAssistant,
		Content:       result.Answer,
	}
	if err := s.store.AppendMessage(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("persist assistant message: %w", err)
	}

	citations := s.persistCitations(ctx, session.CourseID, assistantMsg.ID, result.Citations)

	s.cache.Invalidate(ctx, session.ID)

	return &AskResponse{
		SessionID:  session.ID,
		MessageID:  assistantMsg.ID,
		Answer:     result.Answer,
		Confidence: result.Confidence,
		Citations:  citations,
		Retrieval:  retrievalStatus,
		Rerank:     rerankStatus,
		Synthesis:  result.Status,
	}, nil
}

func (s *ChatService) resolveSession(ctx context.Context, req AskRequest, question string) (*model.ChatSession, error) {
	if req.SessionID != nil {
		session, err := s.store.GetSessionForUser(ctx, *req.SessionID, req.UserID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("resolve chat session: %w", err)
		}
		return session, nil
	}

	session := &model.ChatSession{
		Title:    sessionTitle(question),
		UserID:   req.UserID,
		CourseID: req.CourseID,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create chat session: %w", err)
	}
	return session, nil
}

func (s *ChatService) loadHistory(ctx context.Context, sessionID uuid.UUID) ([]ChatTurn, error) {
	if turns, ok := s.cache.Get(ctx, sessionID); ok {
		return turns, nil
	}
	msgs, err := s.store.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	turns := make([]ChatTurn, 0, len(msgs))
	for _, m := range msgs {
		turns = append(turns, ChatTurn{Role: string(m.Role), Content: m.Content})
	}
	s.cache.Put(ctx, sessionID, turns)
	return turns, nil
}

// persistCitations writes the answer's citations after validating that each
// cited document belongs to the session's course and that a cited page number
// exists. Invalid or unwritable citations are dropped, never surfaced.
func (s *ChatService) persistCitations(ctx context.Context, courseID, messageID uuid.UUID, drafts []CitationDraft) []model.Citation {
	var persisted []model.Citation
	for _, d := range drafts {
		doc, err := s.docs.FindByID(ctx, d.DocumentID)
		if err != nil {
			log.Printf("dropping citation: document %s not found: %v", d.DocumentID, err)
			continue
		}
		if doc.CourseID != courseID {
			log.Printf("dropping citation: document %s belongs to another course", d.DocumentID)
			continue
		}
		if d.PageNumber != nil {
			exists, err := s.docs.PageExists(ctx, d.DocumentID, *d.PageNumber)
			if err != nil || !exists {
				log.Printf("dropping citation: page %d not stored for document %s", *d.PageNumber, d.DocumentID)
				continue
			}
		}
		citation := model.Citation{
			MessageID:      messageID,
			DocumentID:     d.DocumentID,
			PageNumber:     d.PageNumber,
			Quote:          d.Quote,
			RelevanceScore: d.RelevanceScore,
		}
		if err := s.store.AppendCitation(ctx, &citation); err != nil {
			log.Printf("dropping citation for message %s: %v", messageID, err)
			continue
		}
		persisted = append(persisted, citation)
	}
	return persisted
}

func sessionTitle(question string) string {
	runes := []rune(question)
	if len(runes) <= sessionTitleLimit {
		return question
	}
	return string(runes[:sessionTitleLimit]) + "..."
}
