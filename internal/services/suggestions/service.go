// Package suggestions produces the landing page's suggested prompts,
// personalised from recent conversation topics when enough history
// exists. Every failure path degrades to a static fallback list; the
// landing page must never hang or error.
package suggestions

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jijnasa-ai/jijnasa/internal/services/conversations"
	"github.com/jijnasa-ai/jijnasa/internal/services/providers"
)

const (
	// suggestionModel is the cheapest cataloged model; quality barely
	// matters for six short questions.
	suggestionModel   = "gpt-4o-mini"
	suggestionTimeout = 3 * time.Second
	numSuggestions    = 6
	// recentConversations caps how much history feeds the prompt.
	recentConversations = 5
)

const systemPromptFormat = "You generate short, engaging suggested questions for an AI chat app. " +
	"Given the user's recent conversation topics, produce exactly %[1]d diverse " +
	"follow-up questions they might want to explore next. " +
	"Mix their past interests with fresh angles. Keep each question under 60 characters. " +
	"Return ONLY a JSON array of %[1]d strings, no markdown, no explanation."

var fallbackPrompts = []string{
	"What are the biggest tech stories this week?",
	"Write a Python function to merge two sorted lists",
	"Summarize my uploaded PDF document",
	"Compare the latest iPhone vs Samsung Galaxy",
	"Help me write a professional email",
	"Explain quantum computing in simple terms",
}

// ModelStreamer resolves a model id and streams its completion.
type ModelStreamer interface {
	StreamChat(ctx context.Context, req *providers.ChatRequest) (<-chan providers.StreamEvent, error)
}

// Result is the suggestions payload. Source is "llm" when the list was
// generated from history, "fallback" otherwise.
type Result struct {
	Suggestions []string `json:"suggestions"`
	Source      string   `json:"source"`
}

type Service struct {
	conversations *conversations.Service
	streamer      ModelStreamer
	timeout       time.Duration
	logger        *zap.Logger
}

func NewService(convs *conversations.Service, streamer ModelStreamer, logger *zap.Logger) *Service {
	return &Service{
		conversations: convs,
		streamer:      streamer,
		timeout:       suggestionTimeout,
		logger:        logger,
	}
}

// Suggest returns exactly six prompts. It never fails: thin history, a
// slow model, or an unparseable response all fall back to the static
// list.
func (s *Service) Suggest(ctx context.Context) *Result {
	summaries, err := s.conversations.List(ctx)
	if err != nil {
		s.logger.Debug("Could not fetch conversations for suggestions", zap.Error(err))
		return fallback()
	}
	if len(summaries) > recentConversations {
		summaries = summaries[:recentConversations]
	}
	if len(summaries) < 2 {
		return fallback()
	}

	topicLines := make([]string, 0, len(summaries))
	for _, c := range summaries {
		title := c.Title
		if title == "" {
			title = "Untitled"
		}
		if len(title) > 80 {
			title = title[:80]
		}
		topicLines = append(topicLines, fmt.Sprintf("- %s (model: %s)", title, c.ModelID))
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	events, err := s.streamer.StreamChat(ctx, &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: fmt.Sprintf(systemPromptFormat, numSuggestions)},
			{Role: providers.RoleUser, Content: fmt.Sprintf(
				"My recent conversations:\n%s\n\nGenerate %d suggested questions.",
				strings.Join(topicLines, "\n"), numSuggestions)},
		},
		Model:       suggestionModel,
		Temperature: 0.9,
		MaxTokens:   300,
	})
	if err != nil {
		s.logger.Warn("Suggestions generation failed", zap.Error(err))
		return fallback()
	}

	var b strings.Builder
	for ev := range events {
		if ev.Text != "" {
			b.WriteString(ev.Text)
		}
	}
	if ctx.Err() != nil {
		s.logger.Info("Suggestions call timed out", zap.Duration("timeout", s.timeout))
		return fallback()
	}

	raw := strings.TrimSpace(b.String())
	if strings.HasPrefix(raw, "```") {
		// Models love fencing JSON despite instructions.
		if _, rest, ok := strings.Cut(raw, "\n"); ok {
			raw = rest
		}
		if idx := strings.LastIndex(raw, "```"); idx >= 0 {
			raw = raw[:idx]
		}
		raw = strings.TrimSpace(raw)
	}

	var suggestions []string
	if err := json.Unmarshal([]byte(raw), &suggestions); err != nil || len(suggestions) < numSuggestions {
		snippet := raw
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		s.logger.Warn("Suggestions response had unexpected format", zap.String("response", snippet))
		return fallback()
	}

	return &Result{Suggestions: suggestions[:numSuggestions], Source: "llm"}
}

func fallback() *Result {
	return &Result{Suggestions: fallbackPrompts, Source: "fallback"}
}
