package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ragchat/internal/model"
)

type ModelConfigRepository struct {
	db *gorm.DB
}

func NewModelConfigRepository(db *gorm.DB) *ModelConfigRepository {
	return &ModelConfigRepository{db: db}
}

func (r *ModelConfigRepository) GetByUserID(userID uint) (*model.ModelConfig, error) {
	var cfg model.ModelConfig
	if err := r.db.Where("user_id = ?", userID).First(&cfg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get model config failed: %w", err)
	}
	return &cfg, nil
}

// Upsert creates or replaces the user's config. One row per user.
func (r *ModelConfigRepository) Upsert(cfg *model.ModelConfig) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"model_name", "base_url", "api_key", "temperature", "updated_at"}),
	}).Create(cfg).Error
	if err != nil {
		return fmt.Errorf("upsert model config failed: %w", err)
	}
	return nil
}

func (r *ModelConfigRepository) DeleteByUserID(userID uint) error {
	if err := r.db.Where("user_id = ?", userID).Delete(&model.ModelConfig{}).Error; err != nil {
		return fmt.Errorf("delete model config failed: %w", err)
	}
	return nil
}
