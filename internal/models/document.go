package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Document is an uploaded file that was chunked and embedded for retrieval.
// A document optionally belongs to one conversation; without one it is
// visible to every conversation.
type Document struct {
	ID         string `gorm:"type:text;primaryKey" json:"id"`
	Filename   string `gorm:"not null" json:"filename"`
	FileType   string `gorm:"not null" json:"file_type"`
	FileSize   int64  `gorm:"default:0" json:"file_size"`
	ChunkCount int    `gorm:"not null;default:0" json:"chunk_count"`

	ConversationID *string   `gorm:"index:idx_documents_conversation" json:"conversation_id"`
	UploadedAt     time.Time `json:"uploaded_at"`

	Conversation *Conversation `gorm:"foreignKey:ConversationID;constraint:OnDelete:SET NULL" json:"-"`
}

func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.UploadedAt.IsZero() {
		d.UploadedAt = time.Now().UTC()
	}
	return nil
}
