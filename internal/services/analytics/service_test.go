package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jijnasa-ai/jijnasa/internal/models"
	"github.com/jijnasa-ai/jijnasa/internal/testutil"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, cleanup := testutil.NewTestDB(t)
	t.Cleanup(cleanup)
	return NewService(db, zap.NewNop()), db
}

var testBase = time.Now().UTC()

func day(offset int) time.Time {
	return testBase.AddDate(0, 0, offset).Truncate(time.Hour)
}

func dateString(offset int) string {
	return day(offset).Format("2006-01-02")
}

func seedConversation(t *testing.T, db *gorm.DB, createdAt time.Time) *models.Conversation {
	t.Helper()
	conv := &models.Conversation{
		Title:     "Seeded",
		ModelID:   "gpt-4o",
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	require.NoError(t, db.Create(conv).Error)
	return conv
}

func seedMessage(t *testing.T, db *gorm.DB, conv *models.Conversation, role models.MessageRole, usedDocs bool, createdAt time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&models.Message{
		ConversationID: conv.ID,
		Role:           role,
		Content:        "seeded",
		UsedDocs:       usedDocs,
		CreatedAt:      createdAt,
	}).Error)
}

func seedCost(t *testing.T, db *gorm.DB, modelID string, op models.Operation, in, out int, cost float64, createdAt time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&models.CostEntry{
		ModelID:      modelID,
		Operation:    op,
		InputTokens:  in,
		OutputTokens: out,
		CostUSD:      cost,
		CreatedAt:    createdAt,
	}).Error)
}

func TestRecordEvent(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.RecordEvent(ctx, "comparison_mode", map[string]any{
		"models": []string{"gpt-4o", "sonar"},
	}))
	require.NoError(t, svc.RecordEvent(ctx, "rag_query", nil))

	var events []models.AnalyticsEvent
	require.NoError(t, db.Order("id ASC").Find(&events).Error)
	require.Len(t, events, 2)
	assert.Equal(t, "comparison_mode", events[0].EventType)
	assert.JSONEq(t, `{"models": ["gpt-4o", "sonar"]}`, events[0].EventData)
	assert.Equal(t, "rag_query", events[1].EventType)
	assert.JSONEq(t, `{}`, events[1].EventData, "nil data stores an empty object")
}

func TestSummaryEmptyDatabase(t *testing.T) {
	svc, _ := newTestService(t)

	summary, err := svc.Summary(context.Background(), 30)
	require.NoError(t, err)

	assert.Equal(t, 30, summary.PeriodDays)
	assert.Equal(t, dateString(-30), summary.CutoffDate)
	assert.Equal(t, Totals{}, summary.Totals)
	assert.Empty(t, summary.ConversationsPerDay)
	assert.NotNil(t, summary.ConversationsPerDay, "empty window still serialises as an array")
	assert.NotNil(t, summary.ModelCosts)
	assert.NotNil(t, summary.FeatureEvents)
}

func TestSummaryTotalsAndBreakdowns(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	yesterday := day(-1)
	twoDaysAgo := day(-2)

	conv := seedConversation(t, db, twoDaysAgo)
	seedConversation(t, db, yesterday)

	// System messages are excluded from counts; used_docs marks RAG.
	seedMessage(t, db, conv, models.RoleSystem, false, twoDaysAgo)
	seedMessage(t, db, conv, models.RoleUser, true, twoDaysAgo)
	seedMessage(t, db, conv, models.RoleAssistant, true, twoDaysAgo)
	seedMessage(t, db, conv, models.RoleUser, false, yesterday)

	seedCost(t, db, "gpt-4o", models.OperationChat, 1000, 500, 0.0075, twoDaysAgo)
	seedCost(t, db, "gpt-4o", models.OperationChat, 2000, 1000, 0.0150, yesterday)
	seedCost(t, db, "sonar", models.OperationChat, 400, 200, 0.0010, yesterday)
	seedCost(t, db, "text-embedding-3-small", models.OperationEmbedding, 1200, 0, 0.000024, yesterday)

	require.NoError(t, db.Create(&models.Document{
		Filename:   "notes.txt",
		FileType:   ".txt",
		FileSize:   64,
		ChunkCount: 2,
		UploadedAt: yesterday,
	}).Error)

	require.NoError(t, svc.RecordEvent(ctx, "comparison_mode", nil))
	require.NoError(t, svc.RecordEvent(ctx, "comparison_mode", nil))
	require.NoError(t, svc.RecordEvent(ctx, "voice_input", nil))

	summary, err := svc.Summary(ctx, 30)
	require.NoError(t, err)

	assert.Equal(t, Totals{
		Conversations:     2,
		Messages:          3,
		CostUSD:           0.023524,
		DocumentsUploaded: 1,
		RAGMessages:       2,
		ActiveDays:        2,
	}, roundTotals(summary.Totals))

	require.Len(t, summary.ConversationsPerDay, 2)
	assert.Equal(t, DayCount{Date: dateString(-2), Count: 1}, summary.ConversationsPerDay[0])
	assert.Equal(t, DayCount{Date: dateString(-1), Count: 1}, summary.ConversationsPerDay[1])

	require.Len(t, summary.MessagesPerDay, 2)
	assert.Equal(t, int64(2), summary.MessagesPerDay[0].Count, "system message excluded")
	assert.Equal(t, int64(1), summary.MessagesPerDay[1].Count)

	require.Len(t, summary.DailySpend, 2)
	assert.Equal(t, dateString(-2), summary.DailySpend[0].Date)
	assert.InDelta(t, 0.0075, summary.DailySpend[0].Cost, 1e-9)
	assert.InDelta(t, 0.016024, summary.DailySpend[1].Cost, 1e-9)

	// Usage counts chat operations only; embedding entries stay out.
	require.Len(t, summary.ModelUsage, 2)
	assert.Equal(t, ModelUsage{ModelID: "gpt-4o", Count: 2}, summary.ModelUsage[0])
	assert.Equal(t, ModelUsage{ModelID: "sonar", Count: 1}, summary.ModelUsage[1])

	// Cost breakdown covers every operation, ordered by spend.
	require.Len(t, summary.ModelCosts, 3)
	assert.Equal(t, "gpt-4o", summary.ModelCosts[0].ModelID)
	assert.InDelta(t, 0.0225, summary.ModelCosts[0].TotalCost, 1e-9)
	assert.Equal(t, int64(3000), summary.ModelCosts[0].TotalInputTokens)
	assert.Equal(t, int64(1500), summary.ModelCosts[0].TotalOutputTokens)
	assert.Equal(t, int64(2), summary.ModelCosts[0].CallCount)
	assert.Equal(t, "sonar", summary.ModelCosts[1].ModelID)
	assert.Equal(t, "text-embedding-3-small", summary.ModelCosts[2].ModelID)

	require.Len(t, summary.Operations, 2)
	assert.Equal(t, "chat", summary.Operations[0].Operation)
	assert.Equal(t, int64(3), summary.Operations[0].Count)
	assert.InDelta(t, 0.0235, summary.Operations[0].Cost, 1e-9)
	assert.Equal(t, "embedding", summary.Operations[1].Operation)

	require.Len(t, summary.FeatureEvents, 2)
	assert.Equal(t, FeatureEvent{EventType: "comparison_mode", Count: 2}, summary.FeatureEvents[0])
	assert.Equal(t, FeatureEvent{EventType: "voice_input", Count: 1}, summary.FeatureEvents[1])
}

func TestSummaryWindowExcludesOldRows(t *testing.T) {
	svc, db := newTestService(t)

	recent := day(-1)
	ancient := day(-45)

	conv := seedConversation(t, db, recent)
	seedConversation(t, db, ancient)
	seedMessage(t, db, conv, models.RoleUser, false, ancient)
	seedCost(t, db, "gpt-4o", models.OperationChat, 10, 5, 1.00, ancient)

	summary, err := svc.Summary(context.Background(), 30)
	require.NoError(t, err)

	assert.Equal(t, int64(1), summary.Totals.Conversations)
	assert.Zero(t, summary.Totals.Messages)
	assert.Zero(t, summary.Totals.CostUSD)
	assert.Empty(t, summary.DailySpend)
	assert.Empty(t, summary.ModelUsage)
}

// roundTotals normalises the float sum for exact comparison.
func roundTotals(tot Totals) Totals {
	tot.CostUSD = float64(int64(tot.CostUSD*1e6+0.5)) / 1e6
	return tot
}
