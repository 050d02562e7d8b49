package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aswithabukka/LLM-AI-Teaching-Assistant-RAG/internal/repository"
)

type ChatHandler struct {
	repo *repository.ChatRepository
}

func NewChatHandler(repo *repository.ChatRepository) *ChatHandler {
	return &ChatHandler{repo: repo}
}

func (h *ChatHandler) ListSessions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	sessions, total, err := h.repo.FindSessionsByUser(c.Request.Context(), currentUserID(c), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": sessions,
		"pagination": gin.H{
			"total":  total,
			"limit":  limit,
			"offset": offset,
		},
	})
}

func (h *ChatHandler) ListMessages(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}
	if _, err := h.repo.GetSessionForUser(c.Request.Context(), sessionID, currentUserID(c)); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat session not found"})
		return
	}

	msgs, err := h.repo.ListMessages(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	// Attach citations so clients can render sources inline.
	for i := range msgs {
		citations, err := h.repo.ListCitations(c.Request.Context(), msgs[i].ID)
		if err == nil {
			msgs[i].Citations = citations
		}
	}

	c.JSON(http.StatusOK, gin.H{"data": msgs})
}

func (h *ChatHandler) DeleteSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}
	if _, err := h.repo.GetSessionForUser(c.Request.Context(), sessionID, currentUserID(c)); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat session not found"})
		return
	}

	if err := h.repo.DeleteSession(c.Request.Context(), sessionID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
