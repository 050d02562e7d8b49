package model

// User anchors course and chat-session ownership. Authentication itself is
// handled by the upstream gateway; this service only trusts the resolved id.
type User struct {
	BaseModel
	Email    string `gorm:"size:255;index" json:"email"`
	IsActive bool   `gorm:"default:true" json:"is_active"`
	IsAdmin  bool   `gorm:"default:false" json:"is_admin"`
}

func (User) TableName() string {
	return "users"
}
