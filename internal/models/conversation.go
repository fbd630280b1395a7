package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation is a chat thread. Token and cost totals are rolled up from
// its messages in the same transaction that inserts each message.
type Conversation struct {
	ID           string `gorm:"type:text;primaryKey" json:"id"`
	Title        string `gorm:"not null;default:'New Conversation'" json:"title"`
	ModelID      string `gorm:"not null" json:"model_id"`
	SystemPrompt string `gorm:"not null;default:''" json:"system_prompt"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	TotalInputTokens  int64   `gorm:"not null;default:0" json:"total_input_tokens"`
	TotalOutputTokens int64   `gorm:"not null;default:0" json:"total_output_tokens"`
	TotalCostUSD      float64 `gorm:"column:total_cost_usd;not null;default:0" json:"total_cost_usd"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
