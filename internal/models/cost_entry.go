package models

import "time"

type Operation string

const (
	OperationChat      Operation = "chat"
	OperationEmbedding Operation = "embedding"
	OperationSTT       Operation = "stt"
	OperationTTS       Operation = "tts"
)

// CostEntry is one append-only billing record. The ledger is the sole
// source of truth for the daily budget gate.
type CostEntry struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID *string   `gorm:"index:idx_cost_log_conversation" json:"conversation_id"`
	MessageID      *string   `json:"message_id"`
	ModelID        string    `gorm:"not null" json:"model_id"`
	Operation      Operation `gorm:"not null;check:operation IN ('chat', 'embedding', 'stt', 'tts')" json:"operation"`

	InputTokens   int     `gorm:"default:0" json:"input_tokens"`
	OutputTokens  int     `gorm:"default:0" json:"output_tokens"`
	AudioMinutes  float64 `gorm:"default:0" json:"audio_minutes"`
	TTSCharacters int     `gorm:"column:tts_characters;default:0" json:"tts_characters"`
	CostUSD       float64 `gorm:"column:cost_usd;not null;default:0" json:"cost_usd"`

	CreatedAt time.Time `json:"created_at"`

	Conversation *Conversation `gorm:"foreignKey:ConversationID;constraint:OnDelete:SET NULL" json:"-"`
}

func (CostEntry) TableName() string {
	return "cost_log"
}
