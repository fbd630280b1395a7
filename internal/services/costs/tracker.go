// Package costs maintains the append-only spend ledger backed by the
// cost_log table and answers budget and summary queries over it.
package costs

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jijnasa-ai/jijnasa/internal/models"
)

// BudgetExceededError reports that today's spend has reached the
// configured daily cap.
type BudgetExceededError struct {
	CapUSD   float64
	SpentUSD float64
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("Daily budget of $%.2f reached ($%.2f spent today). Try again tomorrow.", e.CapUSD, e.SpentUSD)
}

// BreakdownRow aggregates ledger entries for one operation/model pair.
type BreakdownRow struct {
	Operation    string  `json:"operation"`
	ModelID      string  `json:"model_id"`
	Cost         float64 `json:"cost"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
}

// Summary is the ledger rollup returned by the costs endpoints.
// ConversationID is nil for the global summary.
type Summary struct {
	ConversationID    *string        `json:"conversation_id"`
	TotalCostUSD      float64        `json:"total_cost_usd"`
	TotalInputTokens  int64          `json:"total_input_tokens"`
	TotalOutputTokens int64          `json:"total_output_tokens"`
	Breakdown         []BreakdownRow `json:"breakdown"`
}

type Tracker struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewTracker(db *gorm.DB, logger *zap.Logger) *Tracker {
	return &Tracker{db: db, logger: logger}
}

// Record appends a ledger entry. Ledger writes are best effort: a
// failure is logged and swallowed so the operation that incurred the
// cost still completes.
func (t *Tracker) Record(ctx context.Context, entry *models.CostEntry) {
	if err := t.db.WithContext(ctx).Create(entry).Error; err != nil {
		t.logger.Warn("Failed to record cost entry",
			zap.String("operation", string(entry.Operation)),
			zap.String("model_id", entry.ModelID),
			zap.Float64("cost_usd", entry.CostUSD),
			zap.Error(err))
	}
}

// Summary aggregates the ledger, filtered to one conversation when
// conversationID is non-empty.
func (t *Tracker) Summary(ctx context.Context, conversationID string) (*Summary, error) {
	var totals struct {
		TotalCostUSD      float64
		TotalInputTokens  int64
		TotalOutputTokens int64
	}

	totalsQuery := t.db.WithContext(ctx).Model(&models.CostEntry{}).
		Select("COALESCE(SUM(cost_usd), 0) AS total_cost_usd, " +
			"COALESCE(SUM(input_tokens), 0) AS total_input_tokens, " +
			"COALESCE(SUM(output_tokens), 0) AS total_output_tokens")
	if conversationID != "" {
		totalsQuery = totalsQuery.Where("conversation_id = ?", conversationID)
	}
	if err := totalsQuery.Scan(&totals).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate costs: %w", err)
	}

	breakdown := []BreakdownRow{}
	breakdownQuery := t.db.WithContext(ctx).Model(&models.CostEntry{}).
		Select("operation, model_id, " +
			"COALESCE(SUM(cost_usd), 0) AS cost, " +
			"COALESCE(SUM(input_tokens), 0) AS input_tokens, " +
			"COALESCE(SUM(output_tokens), 0) AS output_tokens").
		Group("operation, model_id").
		Order("operation, model_id")
	if conversationID != "" {
		breakdownQuery = breakdownQuery.Where("conversation_id = ?", conversationID)
	}
	if err := breakdownQuery.Scan(&breakdown).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate cost breakdown: %w", err)
	}

	summary := &Summary{
		TotalCostUSD:      totals.TotalCostUSD,
		TotalInputTokens:  totals.TotalInputTokens,
		TotalOutputTokens: totals.TotalOutputTokens,
		Breakdown:         breakdown,
	}
	if conversationID != "" {
		summary.ConversationID = &conversationID
	}
	return summary, nil
}

// SpentToday sums ledger entries recorded since UTC midnight. Rows are
// stored with UTC timestamps, so the text comparison against
// date('now') selects exactly today's entries.
func (t *Tracker) SpentToday(ctx context.Context) (float64, error) {
	var spent float64
	err := t.db.WithContext(ctx).Model(&models.CostEntry{}).
		Select("COALESCE(SUM(cost_usd), 0)").
		Where("created_at >= date('now')").
		Scan(&spent).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum today's spend: %w", err)
	}
	return spent, nil
}

// CheckDailyBudget returns a BudgetExceededError when today's spend has
// reached capUSD. A cap of zero or less disables the check.
func (t *Tracker) CheckDailyBudget(ctx context.Context, capUSD float64) error {
	if capUSD <= 0 {
		return nil
	}
	spent, err := t.SpentToday(ctx)
	if err != nil {
		return err
	}
	if spent >= capUSD {
		return &BudgetExceededError{CapUSD: capUSD, SpentUSD: spent}
	}
	return nil
}
