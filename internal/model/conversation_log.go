package model

import "time"

// ConversationLogSession aggregates the audit trail of one conversation.
type ConversationLogSession struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"not null;uniqueIndex" json:"conversation_id"`
	UserID         uint      `gorm:"not null;index" json:"user_id"`
	TotalRounds    int       `gorm:"not null;default:0" json:"total_rounds"`
	HasErrors      bool      `gorm:"not null;default:false" json:"has_errors"`
	LastActivityAt time.Time `json:"last_activity_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// ConversationLogRound is one question/answer exchange as observed by the
// audit pipeline. FilesResult and RAGResults carry the raw event payloads
// as JSON text.
type ConversationLogRound struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	SessionID        uint      `gorm:"not null;index" json:"session_id"`
	RoundNumber      int       `gorm:"not null" json:"round_number"`
	UserMessage      string    `gorm:"type:text" json:"user_message"`
	AssistantMessage string    `gorm:"type:text" json:"assistant_message"`
	FilesResult      string    `gorm:"type:text" json:"files_result,omitempty"`
	RAGResults       string    `gorm:"type:text" json:"rag_results,omitempty"`
	Error            string    `gorm:"type:text" json:"error,omitempty"`
	SaveError        string    `gorm:"type:text" json:"save_error,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
