package repository

import (
	"fmt"

	"gorm.io/gorm"

	"ragchat/internal/model"
)

type KnowledgeBaseFileRepository struct {
	db *gorm.DB
}

func NewKnowledgeBaseFileRepository(db *gorm.DB) *KnowledgeBaseFileRepository {
	return &KnowledgeBaseFileRepository{db: db}
}

func (r *KnowledgeBaseFileRepository) Create(file *model.KnowledgeBaseFile) error {
	if err := r.db.Create(file).Error; err != nil {
		return fmt.Errorf("create knowledge base file failed: %w", err)
	}
	return nil
}

func (r *KnowledgeBaseFileRepository) UpdateStatus(fileID uint, status string) error {
	if err := r.db.Model(&model.KnowledgeBaseFile{}).Where("id = ?", fileID).Update("status", status).Error; err != nil {
		return fmt.Errorf("update knowledge base file status failed: %w", err)
	}
	return nil
}

func (r *KnowledgeBaseFileRepository) ListByKnowledgeBaseID(kbID uint) ([]model.KnowledgeBaseFile, error) {
	var files []model.KnowledgeBaseFile
	err := r.db.Where("knowledge_base_id = ?", kbID).Order("id ASC").Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("list knowledge base files failed: %w", err)
	}
	return files, nil
}

func (r *KnowledgeBaseFileRepository) DeleteByKnowledgeBaseID(kbID uint) error {
	if err := r.db.Where("knowledge_base_id = ?", kbID).Delete(&model.KnowledgeBaseFile{}).Error; err != nil {
		return fmt.Errorf("delete knowledge base files failed: %w", err)
	}
	return nil
}
