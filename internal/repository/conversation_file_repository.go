package repository

import (
	"fmt"

	"gorm.io/gorm"

	"ragchat/internal/model"
)

type ConversationFileRepository struct {
	db *gorm.DB
}

func NewConversationFileRepository(db *gorm.DB) *ConversationFileRepository {
	return &ConversationFileRepository{db: db}
}

func (r *ConversationFileRepository) Create(file *model.ConversationFile) error {
	if err := r.db.Create(file).Error; err != nil {
		return fmt.Errorf("create conversation file failed: %w", err)
	}
	return nil
}

func (r *ConversationFileRepository) UpdateStatus(fileID uint, status string) error {
	if err := r.db.Model(&model.ConversationFile{}).Where("id = ?", fileID).Update("status", status).Error; err != nil {
		return fmt.Errorf("update conversation file status failed: %w", err)
	}
	return nil
}

func (r *ConversationFileRepository) ListByConversationID(conversationID uint) ([]model.ConversationFile, error) {
	var files []model.ConversationFile
	err := r.db.Where("conversation_id = ?", conversationID).Order("id ASC").Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("list conversation files failed: %w", err)
	}
	return files, nil
}

func (r *ConversationFileRepository) DeleteByConversationID(conversationID uint) error {
	if err := r.db.Where("conversation_id = ?", conversationID).Delete(&model.ConversationFile{}).Error; err != nil {
		return fmt.Errorf("delete conversation files failed: %w", err)
	}
	return nil
}
