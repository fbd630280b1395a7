package main

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/jijnasa-ai/jijnasa/internal/config"
	"github.com/jijnasa-ai/jijnasa/internal/database"
	"github.com/jijnasa-ai/jijnasa/internal/models"
)

// Seeds a demo conversation so a fresh install has something to show.
// Run from the repo root: go run ./scripts
func main() {
	// Load .env file
	_ = godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	dbConfig := &database.Config{
		Path:         cfg.Database.Path,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		BusyTimeout:  cfg.Database.BusyTimeout,
	}
	if err := database.Initialize(dbConfig); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer database.Close()

	db := database.GetDB()

	conversation := &models.Conversation{
		Title:   "Welcome to JijnasaAI",
		ModelID: cfg.Models.Default,
	}
	if err := db.Create(conversation).Error; err != nil {
		log.Fatal("Failed to create conversation:", err)
	}
	fmt.Println("Created conversation:", conversation.ID)

	modelID := cfg.Models.Default
	now := time.Now().UTC()
	messages := []models.Message{
		{
			ConversationID: conversation.ID,
			Role:           models.RoleUser,
			Content:        "What can you do?",
			CreatedAt:      now.Add(-2 * time.Minute),
		},
		{
			ConversationID: conversation.ID,
			Role:           models.RoleAssistant,
			Content:        "I can answer questions across several AI models, compare their answers side by side, search your uploaded documents, and speak answers out loud.",
			ModelID:        &modelID,
			InputTokens:    12,
			OutputTokens:   34,
			CostUSD:        0.00037,
			CreatedAt:      now.Add(-1 * time.Minute),
		},
	}
	for i := range messages {
		if err := db.Create(&messages[i]).Error; err != nil {
			log.Fatal("Failed to create message:", err)
		}
	}
	fmt.Printf("Created %d messages\n", len(messages))

	conversation.TotalInputTokens = 12
	conversation.TotalOutputTokens = 34
	conversation.TotalCostUSD = 0.00037
	if err := db.Save(conversation).Error; err != nil {
		log.Fatal("Failed to update conversation totals:", err)
	}

	entry := &models.CostEntry{
		ConversationID: &conversation.ID,
		MessageID:      &messages[1].ID,
		ModelID:        modelID,
		Operation:      models.OperationChat,
		InputTokens:    12,
		OutputTokens:   34,
		CostUSD:        0.00037,
	}
	if err := db.Create(entry).Error; err != nil {
		log.Fatal("Failed to create cost entry:", err)
	}
	fmt.Println("Created cost entry")

	event := &models.AnalyticsEvent{
		EventType: "seed_demo_data",
		EventData: `{"source": "scripts/seed_data.go"}`,
	}
	if err := db.Create(event).Error; err != nil {
		log.Fatal("Failed to create analytics event:", err)
	}

	fmt.Println("Seeding complete")
}
