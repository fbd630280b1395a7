// Package analytics records feature usage events and aggregates the
// admin dashboard summary from the relational store.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jijnasa-ai/jijnasa/internal/models"
)

type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// RecordEvent appends one feature usage event. Callers treat it as
// fire-and-forget; the error exists for logging.
func (s *Service) RecordEvent(ctx context.Context, eventType string, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode event data: %w", err)
	}
	event := &models.AnalyticsEvent{EventType: eventType, EventData: string(payload)}
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("record analytics event: %w", err)
	}
	return nil
}

type DayCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type DaySpend struct {
	Date string  `json:"date"`
	Cost float64 `json:"cost"`
}

type ModelUsage struct {
	ModelID string `json:"model_id"`
	Count   int64  `json:"count"`
}

type ModelCost struct {
	ModelID           string  `json:"model_id"`
	TotalCost         float64 `json:"total_cost"`
	TotalInputTokens  int64   `json:"total_input_tokens"`
	TotalOutputTokens int64   `json:"total_output_tokens"`
	CallCount         int64   `json:"call_count"`
}

type OperationStat struct {
	Operation string  `json:"operation"`
	Count     int64   `json:"count"`
	Cost      float64 `json:"cost"`
}

type FeatureEvent struct {
	EventType string `json:"event_type"`
	Count     int64  `json:"count"`
}

type Totals struct {
	Conversations     int64   `json:"conversations"`
	Messages          int64   `json:"messages"`
	CostUSD           float64 `json:"cost_usd"`
	DocumentsUploaded int64   `json:"documents_uploaded"`
	RAGMessages       int64   `json:"rag_messages"`
	ActiveDays        int64   `json:"active_days"`
}

// Summary is the dashboard aggregate over a trailing window.
type Summary struct {
	PeriodDays          int             `json:"period_days"`
	CutoffDate          string          `json:"cutoff_date"`
	Totals              Totals          `json:"totals"`
	ConversationsPerDay []DayCount      `json:"conversations_per_day"`
	MessagesPerDay      []DayCount      `json:"messages_per_day"`
	DailySpend          []DaySpend      `json:"daily_spend"`
	ModelUsage          []ModelUsage    `json:"model_usage"`
	ModelCosts          []ModelCost     `json:"model_costs"`
	Operations          []OperationStat `json:"operations"`
	FeatureEvents       []FeatureEvent  `json:"feature_events"`
}

// Summary aggregates the dashboard metrics over the trailing window.
// Range validation happens at the HTTP boundary. Message counts exclude
// system messages, which are product framing rather than user activity.
func (s *Service) Summary(ctx context.Context, days int) (*Summary, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format("2006-01-02")
	db := s.db.WithContext(ctx)
	summary := &Summary{PeriodDays: days, CutoffDate: cutoff}

	if err := db.Model(&models.Conversation{}).
		Where("created_at >= ?", cutoff).
		Count(&summary.Totals.Conversations).Error; err != nil {
		return nil, fmt.Errorf("count conversations: %w", err)
	}
	if err := db.Model(&models.Message{}).
		Where("created_at >= ? AND role != 'system'", cutoff).
		Count(&summary.Totals.Messages).Error; err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}
	if err := db.Model(&models.CostEntry{}).
		Select("COALESCE(SUM(cost_usd), 0)").
		Where("created_at >= ?", cutoff).
		Scan(&summary.Totals.CostUSD).Error; err != nil {
		return nil, fmt.Errorf("sum cost: %w", err)
	}
	if err := db.Model(&models.Document{}).
		Where("uploaded_at >= ?", cutoff).
		Count(&summary.Totals.DocumentsUploaded).Error; err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	if err := db.Model(&models.Message{}).
		Where("created_at >= ? AND used_docs = ?", cutoff, true).
		Count(&summary.Totals.RAGMessages).Error; err != nil {
		return nil, fmt.Errorf("count rag messages: %w", err)
	}
	if err := db.Model(&models.Message{}).
		Select("COUNT(DISTINCT date(created_at))").
		Where("created_at >= ?", cutoff).
		Scan(&summary.Totals.ActiveDays).Error; err != nil {
		return nil, fmt.Errorf("count active days: %w", err)
	}

	summary.ConversationsPerDay = []DayCount{}
	if err := db.Model(&models.Conversation{}).
		Select("date(created_at) AS date, COUNT(*) AS count").
		Where("created_at >= ?", cutoff).
		Group("date(created_at)").
		Order("date(created_at)").
		Scan(&summary.ConversationsPerDay).Error; err != nil {
		return nil, fmt.Errorf("conversations per day: %w", err)
	}

	summary.MessagesPerDay = []DayCount{}
	if err := db.Model(&models.Message{}).
		Select("date(created_at) AS date, COUNT(*) AS count").
		Where("created_at >= ? AND role != 'system'", cutoff).
		Group("date(created_at)").
		Order("date(created_at)").
		Scan(&summary.MessagesPerDay).Error; err != nil {
		return nil, fmt.Errorf("messages per day: %w", err)
	}

	summary.DailySpend = []DaySpend{}
	if err := db.Model(&models.CostEntry{}).
		Select("date(created_at) AS date, COALESCE(SUM(cost_usd), 0) AS cost").
		Where("created_at >= ?", cutoff).
		Group("date(created_at)").
		Order("date(created_at)").
		Scan(&summary.DailySpend).Error; err != nil {
		return nil, fmt.Errorf("daily spend: %w", err)
	}

	summary.ModelUsage = []ModelUsage{}
	if err := db.Model(&models.CostEntry{}).
		Select("model_id, COUNT(*) AS count").
		Where("created_at >= ? AND operation = ?", cutoff, models.OperationChat).
		Group("model_id").
		Order("count DESC").
		Scan(&summary.ModelUsage).Error; err != nil {
		return nil, fmt.Errorf("model usage: %w", err)
	}

	summary.ModelCosts = []ModelCost{}
	if err := db.Model(&models.CostEntry{}).
		Select("model_id, COALESCE(SUM(cost_usd), 0) AS total_cost, " +
			"COALESCE(SUM(input_tokens), 0) AS total_input_tokens, " +
			"COALESCE(SUM(output_tokens), 0) AS total_output_tokens, " +
			"COUNT(*) AS call_count").
		Where("created_at >= ?", cutoff).
		Group("model_id").
		Order("total_cost DESC").
		Scan(&summary.ModelCosts).Error; err != nil {
		return nil, fmt.Errorf("model costs: %w", err)
	}

	summary.Operations = []OperationStat{}
	if err := db.Model(&models.CostEntry{}).
		Select("operation, COUNT(*) AS count, COALESCE(SUM(cost_usd), 0) AS cost").
		Where("created_at >= ?", cutoff).
		Group("operation").
		Order("cost DESC").
		Scan(&summary.Operations).Error; err != nil {
		return nil, fmt.Errorf("operations: %w", err)
	}

	summary.FeatureEvents = []FeatureEvent{}
	if err := db.Model(&models.AnalyticsEvent{}).
		Select("event_type, COUNT(*) AS count").
		Where("created_at >= ?", cutoff).
		Group("event_type").
		Order("count DESC").
		Scan(&summary.FeatureEvents).Error; err != nil {
		return nil, fmt.Errorf("feature events: %w", err)
	}

	return summary, nil
}
