package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"ragchat/internal/model"
)

type KnowledgeBaseRepository struct {
	db *gorm.DB
}

func NewKnowledgeBaseRepository(db *gorm.DB) *KnowledgeBaseRepository {
	return &KnowledgeBaseRepository{db: db}
}

func (r *KnowledgeBaseRepository) Create(kb *model.KnowledgeBase) error {
	if err := r.db.Create(kb).Error; err != nil {
		return fmt.Errorf("create knowledge base failed: %w", err)
	}
	return nil
}

func (r *KnowledgeBaseRepository) ListByUserID(userID uint) ([]model.KnowledgeBase, error) {
	var kbs []model.KnowledgeBase
	if err := r.db.Where("user_id = ?", userID).Order("updated_at DESC").Find(&kbs).Error; err != nil {
		return nil, fmt.Errorf("list knowledge bases failed: %w", err)
	}
	return kbs, nil
}

func (r *KnowledgeBaseRepository) GetByIDAndUserID(kbID, userID uint) (*model.KnowledgeBase, error) {
	var kb model.KnowledgeBase
	if err := r.db.Where("id = ? AND user_id = ?", kbID, userID).First(&kb).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get knowledge base failed: %w", err)
	}
	return &kb, nil
}

// ListPublishedByIDs keeps only bases that belong to the user and have
// finished ingestion.
func (r *KnowledgeBaseRepository) ListPublishedByIDs(userID uint, ids []uint) ([]model.KnowledgeBase, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var kbs []model.KnowledgeBase
	err := r.db.Where("user_id = ? AND id IN ? AND status = ?", userID, ids, model.KnowledgeBaseStatusPublished).
		Find(&kbs).Error
	if err != nil {
		return nil, fmt.Errorf("list published knowledge bases failed: %w", err)
	}
	return kbs, nil
}

func (r *KnowledgeBaseRepository) UpdateStatus(kbID uint, status string) error {
	if err := r.db.Model(&model.KnowledgeBase{}).Where("id = ?", kbID).Update("status", status).Error; err != nil {
		return fmt.Errorf("update knowledge base status failed: %w", err)
	}
	return nil
}

func (r *KnowledgeBaseRepository) UpdateFileList(kbID uint, fileList string) error {
	if err := r.db.Model(&model.KnowledgeBase{}).Where("id = ?", kbID).Update("file_list", fileList).Error; err != nil {
		return fmt.Errorf("update knowledge base file list failed: %w", err)
	}
	return nil
}

func (r *KnowledgeBaseRepository) DeleteByID(kbID uint) error {
	if err := r.db.Delete(&model.KnowledgeBase{}, kbID).Error; err != nil {
		return fmt.Errorf("delete knowledge base failed: %w", err)
	}
	return nil
}
