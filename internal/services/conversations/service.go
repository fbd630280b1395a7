// Package conversations implements the conversation store: CRUD over
// conversations and their messages, with per-conversation token and
// cost rollups maintained transactionally on every append.
package conversations

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jijnasa-ai/jijnasa/internal/models"
)

// DefaultTitle is the placeholder a conversation carries until the
// auto-titler replaces it.
const DefaultTitle = "New Conversation"

// Summary is one row of the conversation list: the conversation plus
// its message count.
type Summary struct {
	models.Conversation
	MessageCount int64 `json:"message_count"`
}

// MessageParams carries one message append.
type MessageParams struct {
	ConversationID string
	Role           models.MessageRole
	Content        string
	ModelID        *string
	InputTokens    int
	OutputTokens   int
	CostUSD        float64
	UsedDocs       bool
}

type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Create inserts a conversation bound to modelID. An empty title falls
// back to DefaultTitle.
func (s *Service) Create(ctx context.Context, modelID, title, systemPrompt string) (*models.Conversation, error) {
	if title == "" {
		title = DefaultTitle
	}
	conv := &models.Conversation{
		Title:        title,
		ModelID:      modelID,
		SystemPrompt: systemPrompt,
	}
	if err := s.db.WithContext(ctx).Create(conv).Error; err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	s.logger.Info("Created conversation",
		zap.String("conversation_id", conv.ID),
		zap.String("model_id", modelID))
	return conv, nil
}

// Get loads one conversation. The returned error wraps
// gorm.ErrRecordNotFound when no row matches.
func (s *Service) Get(ctx context.Context, conversationID string) (*models.Conversation, error) {
	var conv models.Conversation
	if err := s.db.WithContext(ctx).First(&conv, "id = ?", conversationID).Error; err != nil {
		return nil, fmt.Errorf("failed to load conversation %s: %w", conversationID, err)
	}
	return &conv, nil
}

// List returns every conversation with its message count, most
// recently updated first.
func (s *Service) List(ctx context.Context) ([]Summary, error) {
	summaries := []Summary{}
	err := s.db.WithContext(ctx).Model(&models.Conversation{}).
		Select("conversations.*, COUNT(messages.id) AS message_count").
		Joins("LEFT JOIN messages ON messages.conversation_id = conversations.id").
		Group("conversations.id").
		Order("conversations.updated_at DESC").
		Scan(&summaries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return summaries, nil
}

// Messages returns the conversation's messages in insert order.
func (s *Service) Messages(ctx context.Context, conversationID string) ([]models.Message, error) {
	messages := []models.Message{}
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load messages for conversation %s: %w", conversationID, err)
	}
	return messages, nil
}

// MessageCount reports how many messages the conversation holds.
func (s *Service) MessageCount(ctx context.Context, conversationID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ?", conversationID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count messages for conversation %s: %w", conversationID, err)
	}
	return count, nil
}

// AddMessage inserts a message and folds its tokens and cost into the
// parent conversation's running totals. Both writes commit in a single
// transaction so the rollup never drifts from the message rows.
func (s *Service) AddMessage(ctx context.Context, params MessageParams) (*models.Message, error) {
	msg := &models.Message{
		ConversationID: params.ConversationID,
		Role:           params.Role,
		Content:        params.Content,
		ModelID:        params.ModelID,
		InputTokens:    params.InputTokens,
		OutputTokens:   params.OutputTokens,
		CostUSD:        params.CostUSD,
		UsedDocs:       params.UsedDocs,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).
			Where("id = ?", params.ConversationID).
			Updates(map[string]any{
				"total_input_tokens":  gorm.Expr("total_input_tokens + ?", params.InputTokens),
				"total_output_tokens": gorm.Expr("total_output_tokens + ?", params.OutputTokens),
				"total_cost_usd":      gorm.Expr("total_cost_usd + ?", params.CostUSD),
			}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append message to conversation %s: %w", params.ConversationID, err)
	}
	return msg, nil
}

// UpdateTitle renames the conversation.
func (s *Service) UpdateTitle(ctx context.Context, conversationID, title string) error {
	err := s.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Update("title", title).Error
	if err != nil {
		return fmt.Errorf("failed to update title for conversation %s: %w", conversationID, err)
	}
	return nil
}

// UpdateSystemPrompt replaces the conversation's custom system prompt.
func (s *Service) UpdateSystemPrompt(ctx context.Context, conversationID, systemPrompt string) error {
	err := s.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Update("system_prompt", systemPrompt).Error
	if err != nil {
		return fmt.Errorf("failed to update system prompt for conversation %s: %w", conversationID, err)
	}
	return nil
}

// Delete removes the conversation together with its messages and
// ledger entries.
func (s *Service) Delete(ctx context.Context, conversationID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", conversationID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", conversationID).Delete(&models.CostEntry{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", conversationID).Delete(&models.Conversation{}).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete conversation %s: %w", conversationID, err)
	}
	s.logger.Info("Deleted conversation", zap.String("conversation_id", conversationID))
	return nil
}

// Count reports the total number of conversations, for health checks.
func (s *Service) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Conversation{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count conversations: %w", err)
	}
	return count, nil
}
