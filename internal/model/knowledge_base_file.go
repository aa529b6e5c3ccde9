package model

import "time"

// KnowledgeBaseFile records one uploaded file belonging to a knowledge base.
// Status reuses the conversation file lifecycle.
type KnowledgeBaseFile struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	KnowledgeBaseID uint      `gorm:"not null;index" json:"knowledge_base_id"`
	UserID          uint      `gorm:"not null;index" json:"user_id"`
	FileName        string    `gorm:"size:255;not null" json:"file_name"`
	FileType        string    `gorm:"size:20" json:"file_type"`
	FileSize        int64     `json:"file_size"`
	StoragePath     string    `gorm:"size:512" json:"-"`
	Status          string    `gorm:"size:20;not null;default:'uploaded'" json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}
