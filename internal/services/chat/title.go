package chat

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/jijnasa-ai/jijnasa/internal/services/providers"
)

const titleSystemPrompt = "Generate a short title (max 6 words) for a conversation that starts " +
	"with the following message. Reply with ONLY the title, no quotes or punctuation."

const (
	titleSeedLimit   = 500
	titleMaxTokens   = 20
	titleTemperature = 0.3
	titleLengthLimit = 50
)

// autoTitle asks the model for a short conversation title and stores
// it. Errors are non-critical; every failure path leaves the existing
// title in place.
func (o *Orchestrator) autoTitle(ctx context.Context, conversationID, userMessage, modelID string) {
	seed := userMessage
	if len(seed) > titleSeedLimit {
		seed = seed[:titleSeedLimit]
	}

	events, err := o.streamer.StreamChat(ctx, &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: titleSystemPrompt},
			{Role: providers.RoleUser, Content: seed},
		},
		Model:       modelID,
		Temperature: titleTemperature,
		MaxTokens:   titleMaxTokens,
	})
	if err != nil {
		return
	}

	var b strings.Builder
	failed := false
	for ev := range events {
		if ev.Text != "" {
			b.WriteString(ev.Text)
		}
		// An upstream failure streams its message as visible text;
		// that must not become the title.
		if ev.FinishReason == providers.FinishError {
			failed = true
		}
	}
	if failed {
		return
	}

	title := strings.TrimSpace(b.String())
	if len(title) > titleLengthLimit {
		title = title[:titleLengthLimit]
	}
	if title == "" {
		return
	}

	if err := o.conversations.UpdateTitle(ctx, conversationID, title); err != nil {
		o.logger.Warn("Failed to store auto-generated title",
			zap.String("conversation_id", conversationID),
			zap.Error(err))
	}
}
