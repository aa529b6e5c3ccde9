package model

import "time"

// ModelConfig holds a user's preferred chat model settings. When absent the
// server defaults apply.
type ModelConfig struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	ModelName   string    `gorm:"size:100;not null" json:"model_name"`
	BaseURL     string    `gorm:"size:255" json:"base_url,omitempty"`
	APIKey      string    `gorm:"size:255" json:"-"`
	Temperature float64   `gorm:"default:0.7" json:"temperature"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
