package model

import (
	"github.com/google/uuid"
)

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// ChatSession groups an ordered conversation scoped to one course and user.
// Sessions are created lazily on the first question and only ever extended.
type ChatSession struct {
	BaseModel
	Title    string    `gorm:"size:255" json:"title"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	CourseID uuid.UUID `gorm:"type:uuid;not null;index" json:"course_id"`

	// Relations
	Course   *Course       `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	Messages []ChatMessage `gorm:"foreignKey:ChatSessionID" json:"messages,omitempty"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}

type ChatMessage struct {
	BaseModel
	ChatSessionID uuid.UUID   `gorm:"type:uuid;not null;index" json:"chat_session_id"`
	Role          MessageRole `gorm:"size:50;not null" json:"role"`
	Content       string      `gorm:"type:text;not null" json:"content"`

	// Relations
	Citations []Citation `gorm:"foreignKey:MessageID" json:"citations,omitempty"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}

// Citation links an assistant message to the document passage it was grounded
// on. The pipeline produces at most one citation per answer.
type Citation struct {
	BaseModel
	MessageID      uuid.UUID `gorm:"type:uuid;not null;index" json:"message_id"`
	DocumentID     uuid.UUID `gorm:"type:uuid;not null;index" json:"document_id"`
	PageNumber     *int      `json:"page_number,omitempty"`
	Quote          string    `gorm:"type:text" json:"quote"`
	RelevanceScore float64   `json:"relevance_score"`

	// Relations
	Document *Document `gorm:"foreignKey:DocumentID" json:"document,omitempty"`
}

func (Citation) TableName() string {
	return "citations"
}
