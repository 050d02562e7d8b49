package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aswithabukka/LLM-AI-Teaching-Assistant-RAG/internal/repository"
	"github.com/aswithabukka/LLM-AI-Teaching-Assistant-RAG/internal/service"
)

type DocumentHandler struct {
	svc           *service.DocumentService
	docs          *repository.DocumentRepository
	courses       *repository.CourseRepository
	maxUploadSize int64
}

func NewDocumentHandler(
	svc *service.DocumentService,
	docs *repository.DocumentRepository,
	courses *repository.CourseRepository,
	maxUploadSize int64,
) *DocumentHandler {
	return &DocumentHandler{svc: svc, docs: docs, courses: courses, maxUploadSize: maxUploadSize}
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid course id"})
		return
	}
	if _, err := h.courses.FindByIDForOwner(c.Request.Context(), courseID, currentUserID(c)); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "course not found"})
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if header.Size > h.maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds upload limit"})
		return
	}

	doc, err := h.svc.Upload(c.Request.Context(), courseID, header)
	if errors.Is(err, service.ErrUnsupportedFileType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (h *DocumentHandler) ListByCourse(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid course id"})
		return
	}
	if _, err := h.courses.FindByIDForOwner(c.Request.Context(), courseID, currentUserID(c)); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "course not found"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	docs, total, err := h.docs.FindByCourseID(c.Request.Context(), courseID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": docs,
		"pagination": gin.H{
			"total":  total,
			"limit":  limit,
			"offset": offset,
		},
	})
}

// resolveOwnedDocument loads a document and checks that its course belongs to
// the caller.
func (h *DocumentHandler) resolveOwnedDocument(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
		return uuid.Nil, false
	}
	doc, err := h.docs.FindByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return uuid.Nil, false
	}
	if _, err := h.courses.FindByIDForOwner(c.Request.Context(), doc.CourseID, currentUserID(c)); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *DocumentHandler) Get(c *gin.Context) {
	id, ok := h.resolveOwnedDocument(c)
	if !ok {
		return
	}
	doc, err := h.docs.FindByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *DocumentHandler) GetPages(c *gin.Context) {
	id, ok := h.resolveOwnedDocument(c)
	if !ok {
		return
	}
	pages, err := h.docs.GetPages(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": pages})
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	id, ok := h.resolveOwnedDocument(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *DocumentHandler) Reprocess(c *gin.Context) {
	id, ok := h.resolveOwnedDocument(c)
	if !ok {
		return
	}
	if err := h.svc.Reprocess(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "processing"})
}
