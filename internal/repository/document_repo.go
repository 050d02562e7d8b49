package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aswithabukka/LLM-AI-Teaching-Assistant-RAG/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *model.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *DocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	var doc model.Document
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepository) FindByCourseID(ctx context.Context, courseID uuid.UUID, limit, offset int) ([]model.Document, int64, error) {
	var docs []model.Document
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Document{}).
		Where("course_id = ?", courseID)

	query.Count(&total)
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&docs).Error
	return docs, total, err
}

func (r *DocumentRepository) Update(ctx context.Context, doc *model.Document) error {
	return r.db.WithContext(ctx).Save(doc).Error
}

// UpdateStatus transitions a document's processing state and records the
// failure string when there is one.
func (r *DocumentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.DocumentStatus, errorMsg string) error {
	updates := map[string]interface{}{
		"status":           status,
		"processing_error": errorMsg,
	}
	if status == model.DocumentStatusCompleted {
		now := time.Now()
		updates["processed_at"] = &now
	}
	return r.db.WithContext(ctx).Model(&model.Document{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *DocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Document{}).Error
}

// --- pages ---

func (r *DocumentRepository) SavePages(ctx context.Context, pages []model.DocumentPage) error {
	if len(pages) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&pages).Error
}

func (r *DocumentRepository) GetPages(ctx context.Context, documentID uuid.UUID) ([]model.DocumentPage, error) {
	var pages []model.DocumentPage
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("page_number ASC").
		Find(&pages).Error
	return pages, err
}

func (r *DocumentRepository) DeletePages(ctx context.Context, documentID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("document_id = ?", documentID).Delete(&model.DocumentPage{}).Error
}

// PageExists reports whether the document has a page with the given number.
func (r *DocumentRepository) PageExists(ctx context.Context, documentID uuid.UUID, pageNumber int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.DocumentPage{}).
		Where("document_id = ? AND page_number = ?", documentID, pageNumber).
		Count(&count).Error
	return count > 0, err
}

// --- chunks ---

func (r *DocumentRepository) SaveChunks(ctx context.Context, chunks []model.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&chunks).Error
}

func (r *DocumentRepository) DeleteChunks(ctx context.Context, documentID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("document_id = ?", documentID).Delete(&model.DocumentChunk{}).Error
}

func (r *DocumentRepository) FindChunksByDocumentID(ctx context.Context, documentID uuid.UUID, limit int) ([]model.DocumentChunk, error) {
	var chunks []model.DocumentChunk
	query := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("chunk_index ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&chunks).Error
	return chunks, err
}

// CourseChunk is a chunk row joined with the name of its owning document,
// loaded for fallback keyword retrieval.
type CourseChunk struct {
	DocumentID uuid.UUID
	Source     string
	ChunkIndex int
	Content    string
	PageNumber *int
}

// ChunksByCourse loads every chunk belonging to the course's documents in a
// stable order, which keeps fallback scoring deterministic.
func (r *DocumentRepository) ChunksByCourse(ctx context.Context, courseID uuid.UUID) ([]CourseChunk, error) {
	var rows []CourseChunk
	err := r.db.WithContext(ctx).
		Table("document_chunks").
		Select("document_chunks.document_id, documents.original_file_name AS source, document_chunks.chunk_index, document_chunks.content, document_chunks.page_number").
		Joins("JOIN documents ON documents.id = document_chunks.document_id AND documents.deleted_at IS NULL").
		Where("documents.course_id = ? AND document_chunks.deleted_at IS NULL", courseID).
		Order("document_chunks.document_id ASC, document_chunks.chunk_index ASC").
		Scan(&rows).Error
	return rows, err
}
