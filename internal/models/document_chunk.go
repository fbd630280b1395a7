package models

import "time"

// DocumentChunk is one embedded slice of an uploaded document. The
// embedding is stored as packed little-endian float32 values; similarity
// search scans candidate rows and ranks them in process.
type DocumentChunk struct {
	ID         string `gorm:"type:text;primaryKey" json:"id"`
	DocumentID string `gorm:"not null;index:idx_document_chunks_document" json:"document_id"`
	Filename   string `gorm:"not null" json:"filename"`
	ChunkIndex int    `gorm:"not null" json:"chunk_index"`

	// ConversationID scopes the chunk to one conversation; empty means the
	// chunk is globally retrievable.
	ConversationID string `gorm:"index:idx_document_chunks_conversation" json:"conversation_id"`

	Content   string    `gorm:"not null" json:"content"`
	Embedding []byte    `gorm:"not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

func (DocumentChunk) TableName() string {
	return "document_chunks"
}
