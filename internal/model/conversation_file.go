package model

import "time"

// Lifecycle states for uploaded files.
const (
	FileStatusUploaded   = "uploaded"
	FileStatusProcessing = "processing"
	FileStatusParsed     = "parsed"
	FileStatusFailed     = "failed"
)

type ConversationFile struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"not null;index" json:"conversation_id"`
	UserID         uint      `gorm:"not null;index" json:"user_id"`
	FileName       string    `gorm:"size:255;not null" json:"file_name"`
	FileType       string    `gorm:"size:20;not null" json:"file_type"`
	FileSize       int64     `gorm:"not null" json:"file_size"`
	StoragePath    string    `gorm:"size:500;not null" json:"-"`
	Status         string    `gorm:"size:20;not null;default:'uploaded'" json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}
