package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// VectorRecord is a row in the pgvector-backed vector index. The VectorID is
// derived from the owning document and chunk position, which makes re-indexing
// idempotent: an upsert of an existing id is a no-op.
type VectorRecord struct {
	VectorID   string          `gorm:"primaryKey;size:100" json:"vector_id"`
	CourseID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"course_id"`
	DocumentID uuid.UUID       `gorm:"type:uuid;not null;index" json:"document_id"`
	ChunkIndex int             `gorm:"default:0" json:"chunk_index"`
	PageNumber *int            `json:"page_number,omitempty"`
	Content    string          `gorm:"type:text" json:"content"`
	Source     string          `gorm:"size:500" json:"source"`
	Embedding  pgvector.Vector `gorm:"type:vector(1536)" json:"-"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (VectorRecord) TableName() string {
	return "vector_records"
}
