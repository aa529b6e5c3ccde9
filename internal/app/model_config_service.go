package app

import (
	"strings"

	"ragchat/internal/model"
)

// ModelConfigStore persists per-user model settings.
type ModelConfigStore interface {
	GetByUserID(userID uint) (*model.ModelConfig, error)
	Upsert(cfg *model.ModelConfig) error
	DeleteByUserID(userID uint) error
}

// ModelConfigService lets users override the default chat model.
type ModelConfigService struct {
	repo ModelConfigStore
}

func NewModelConfigService(repo ModelConfigStore) *ModelConfigService {
	return &ModelConfigService{repo: repo}
}

type ModelConfigInput struct {
	UserID      uint
	ModelName   string
	BaseURL     string
	APIKey      string
	Temperature float64
}

func (s *ModelConfigService) Get(userID uint) (*model.ModelConfig, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.repo.GetByUserID(userID)
}

func (s *ModelConfigService) Set(input ModelConfigInput) (*model.ModelConfig, error) {
	if input.UserID == 0 || strings.TrimSpace(input.ModelName) == "" {
		return nil, ErrInvalidInput
	}
	if input.Temperature < 0 || input.Temperature > 2 {
		return nil, ErrInvalidInput
	}
	cfg := &model.ModelConfig{
		UserID:      input.UserID,
		ModelName:   strings.TrimSpace(input.ModelName),
		BaseURL:     strings.TrimSpace(input.BaseURL),
		APIKey:      strings.TrimSpace(input.APIKey),
		Temperature: input.Temperature,
	}
	if err := s.repo.Upsert(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *ModelConfigService) Delete(userID uint) error {
	if userID == 0 {
		return ErrInvalidInput
	}
	return s.repo.DeleteByUserID(userID)
}
