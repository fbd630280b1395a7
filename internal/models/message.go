package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// Message is one turn in a conversation. Rows are immutable after insert
// and removed only via their parent conversation.
type Message struct {
	ID             string      `gorm:"type:text;primaryKey" json:"id"`
	ConversationID string      `gorm:"not null;index:idx_messages_conversation" json:"conversation_id"`
	Role           MessageRole `gorm:"not null;check:role IN ('user', 'assistant', 'system')" json:"role"`
	Content        string      `gorm:"not null" json:"content"`

	// ModelID is set on assistant rows only.
	ModelID      *string `json:"model_id"`
	InputTokens  int     `gorm:"default:0" json:"input_tokens"`
	OutputTokens int     `gorm:"default:0" json:"output_tokens"`
	CostUSD      float64 `gorm:"column:cost_usd;default:0" json:"cost_usd"`

	// UsedDocs records whether document context was consulted for this turn.
	UsedDocs bool `gorm:"default:false" json:"used_docs"`

	CreatedAt time.Time `json:"created_at"`

	Conversation *Conversation `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
