package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"ragchat/internal/model"
)

type ConversationLogRepository struct {
	db *gorm.DB
}

func NewConversationLogRepository(db *gorm.DB) *ConversationLogRepository {
	return &ConversationLogRepository{db: db}
}

// GetOrCreateSession returns the audit session for a conversation, creating
// it on first use.
func (r *ConversationLogRepository) GetOrCreateSession(conversationID, userID uint) (*model.ConversationLogSession, error) {
	var session model.ConversationLogSession
	err := r.db.Where("conversation_id = ?", conversationID).First(&session).Error
	if err == nil {
		return &session, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("get log session failed: %w", err)
	}

	session = model.ConversationLogSession{
		ConversationID: conversationID,
		UserID:         userID,
		LastActivityAt: time.Now(),
	}
	if err := r.db.Create(&session).Error; err != nil {
		return nil, fmt.Errorf("create log session failed: %w", err)
	}
	return &session, nil
}

func (r *ConversationLogRepository) CreateRound(round *model.ConversationLogRound) error {
	if err := r.db.Create(round).Error; err != nil {
		return fmt.Errorf("create log round failed: %w", err)
	}
	return nil
}

// UpdateSessionStats bumps the round counter and error flag after a round
// has been recorded.
func (r *ConversationLogRepository) UpdateSessionStats(sessionID uint, totalRounds int, hasErrors bool) error {
	updates := map[string]any{
		"total_rounds":     totalRounds,
		"last_activity_at": time.Now(),
	}
	if hasErrors {
		updates["has_errors"] = true
	}
	if err := r.db.Model(&model.ConversationLogSession{}).Where("id = ?", sessionID).Updates(updates).Error; err != nil {
		return fmt.Errorf("update log session stats failed: %w", err)
	}
	return nil
}

func (r *ConversationLogRepository) GetSessionByConversationID(conversationID, userID uint) (*model.ConversationLogSession, error) {
	var session model.ConversationLogSession
	err := r.db.Where("conversation_id = ? AND user_id = ?", conversationID, userID).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get log session failed: %w", err)
	}
	return &session, nil
}

func (r *ConversationLogRepository) ListRounds(sessionID uint) ([]model.ConversationLogRound, error) {
	var rounds []model.ConversationLogRound
	err := r.db.Where("session_id = ?", sessionID).Order("round_number ASC").Find(&rounds).Error
	if err != nil {
		return nil, fmt.Errorf("list log rounds failed: %w", err)
	}
	return rounds, nil
}
