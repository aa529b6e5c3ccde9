package model

import (
	"encoding/json"
	"time"
)

// Knowledge base ingestion states. There is no dedicated error state:
// a failed ingestion falls back to UPLOADING.
const (
	KnowledgeBaseStatusUploading = "UPLOADING"
	KnowledgeBaseStatusChunking  = "CHUNKING"
	KnowledgeBaseStatusPublished = "PUBLISHED"
)

// KnowledgeBaseFileRef is one entry of the denormalized file list.
type KnowledgeBaseFileRef struct {
	FileID   uint   `json:"file_id"`
	FileName string `json:"file_name"`
}

// KnowledgeBase owns a set of files whose chunks live in the vector index.
// FileList is stored as JSON text and refreshed after each ingestion run.
type KnowledgeBase struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	Status      string    `gorm:"size:20;not null;default:'UPLOADING'" json:"status"`
	FileList    string    `gorm:"type:text" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FileRefs returns the parsed file list; empty on parse error.
func (k *KnowledgeBase) FileRefs() []KnowledgeBaseFileRef {
	if k.FileList == "" {
		return nil
	}
	var refs []KnowledgeBaseFileRef
	_ = json.Unmarshal([]byte(k.FileList), &refs)
	return refs
}

// SetFileRefs stores the file list as JSON.
func (k *KnowledgeBase) SetFileRefs(refs []KnowledgeBaseFileRef) {
	if len(refs) == 0 {
		k.FileList = "[]"
		return
	}
	b, _ := json.Marshal(refs)
	k.FileList = string(b)
}
