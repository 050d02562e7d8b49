package model

import (
	"github.com/google/uuid"
)

// Course groups related documents and is the retrieval scope for questions.
type Course struct {
	BaseModel
	Title       string      `gorm:"size:255;not null;index" json:"title"`
	Description string      `gorm:"type:text" json:"description"`
	OwnerID     uuid.UUID   `gorm:"type:uuid;not null;index" json:"owner_id"`
	Tags        StringArray `gorm:"type:jsonb" json:"tags"`

	// Stats (computed)
	DocumentCount int `gorm:"-" json:"document_count,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}
