package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aswithabukka/LLM-AI-Teaching-Assistant-RAG/internal/service"
)

type QuestionHandler struct {
	svc *service.ChatService
}

func NewQuestionHandler(svc *service.ChatService) *QuestionHandler {
	return &QuestionHandler{svc: svc}
}

type askRequest struct {
	Question  string     `json:"question" binding:"required"`
	CourseID  uuid.UUID  `json:"course_id" binding:"required"`
	SessionID *uuid.UUID `json:"session_id"`
}

func (h *QuestionHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.svc.Ask(c.Request.Context(), service.AskRequest{
		UserID:    currentUserID(c),
		CourseID:  req.CourseID,
		SessionID: req.SessionID,
		Question:  req.Question,
	})
	if errors.Is(err, service.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat session not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}
