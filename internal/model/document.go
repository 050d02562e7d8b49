package model

import (
	"time"

	"github.com/google/uuid"
)

type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusCompleted  DocumentStatus = "completed"
	DocumentStatusFailed     DocumentStatus = "failed"
)

type Document struct {
	BaseModel
	CourseID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"course_id"`
	FileName         string         `gorm:"size:500;not null" json:"file_name"`
	OriginalFileName string         `gorm:"size:500" json:"original_file_name"`
	StoragePath      string         `gorm:"size:1000" json:"-"`
	FileType         string         `gorm:"size:50" json:"file_type"`
	FileSize         int64          `gorm:"not null" json:"file_size"`
	PageCount        int            `gorm:"default:0" json:"page_count"`
	Status           DocumentStatus `gorm:"size:50;default:'pending'" json:"status"`
	IsProcessed      bool           `gorm:"default:false" json:"is_processed"`
	IsIndexed        bool           `gorm:"default:false" json:"is_indexed"`
	ProcessingError  string         `gorm:"type:text" json:"processing_error,omitempty"`
	ProcessedAt      *time.Time     `json:"processed_at,omitempty"`
	Metadata         JSONMap        `gorm:"type:jsonb" json:"metadata"`

	// Relations
	Course *Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

func (Document) TableName() string {
	return "documents"
}

// DocumentPage holds the extracted text of a single page. Pages are written
// once at extraction time and re-read whenever the document is reprocessed.
type DocumentPage struct {
	BaseModel
	DocumentID uuid.UUID `gorm:"type:uuid;not null;index" json:"document_id"`
	PageNumber int       `gorm:"not null" json:"page_number"`
	Text       string    `gorm:"type:text" json:"text"`
}

func (DocumentPage) TableName() string {
	return "document_pages"
}

// DocumentChunk is the unit of retrieval. Chunks are immutable once created;
// reprocessing purges the old set before writing a new one.
type DocumentChunk struct {
	BaseModel
	DocumentID uuid.UUID `gorm:"type:uuid;not null;index" json:"document_id"`
	ChunkIndex int       `gorm:"not null" json:"chunk_index"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	PageNumber *int      `json:"page_number,omitempty"`
	VectorID   string    `gorm:"size:100;index" json:"vector_id"`

	// Relations
	Document *Document `gorm:"foreignKey:DocumentID" json:"document,omitempty"`
}

func (DocumentChunk) TableName() string {
	return "document_chunks"
}
