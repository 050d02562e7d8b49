package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aswithabukka/LLM-AI-Teaching-Assistant-RAG/internal/service"
)

type QuizHandler struct {
	svc *service.QuizService
}

func NewQuizHandler(svc *service.QuizService) *QuizHandler {
	return &QuizHandler{svc: svc}
}

type quizRequest struct {
	DocumentID   uuid.UUID `json:"document_id" binding:"required"`
	NumQuestions int       `json:"num_questions"`
	Types        []string  `json:"types"`
}

func (h *QuizHandler) Generate(c *gin.Context) {
	var req quizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quiz, err := h.svc.Generate(c.Request.Context(), req.DocumentID, req.NumQuestions, req.Types)
	if errors.Is(err, service.ErrNoQuizContent) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "document has no processed content"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, quiz)
}
