// Package chat runs the single-turn pipeline: budget gate, conversation
// resolution, optional document retrieval, provider streaming, cost
// booking, and auto-titling, emitting the client event stream along the
// way.
package chat

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jijnasa-ai/jijnasa/internal/config"
	"github.com/jijnasa-ai/jijnasa/internal/models"
	"github.com/jijnasa-ai/jijnasa/internal/services/conversations"
	"github.com/jijnasa-ai/jijnasa/internal/services/costs"
	"github.com/jijnasa-ai/jijnasa/internal/services/pricing"
	"github.com/jijnasa-ai/jijnasa/internal/services/providers"
	"github.com/jijnasa-ai/jijnasa/internal/services/rag"
)

// DefaultSystemPrompt frames every turn that has no custom prompt and
// no document context. Comparison slots use it too, so a fan-out run
// behaves like N ordinary turns.
const DefaultSystemPrompt = "You are a helpful, accurate, and concise AI assistant. " +
	"When provided with context from documents, base your answers on that context " +
	"and cite the source documents. If you are unsure, say so."

const ragSystemPromptFormat = "You are an assistant answering questions using ONLY the following documents as context. " +
	"If the answer is not found in the documents, say so clearly. " +
	"Cite the source document and chunk when referencing information.\n\n" +
	"--- DOCUMENT CONTEXT ---\n%s\n--- END CONTEXT ---"

// Request is one chat turn submitted by the client. Validation happens
// at the HTTP boundary; the pipeline assumes well-formed input.
type Request struct {
	ConversationID string  `json:"conversation_id"`
	Message        string  `json:"message"`
	ModelID        string  `json:"model_id"`
	UseRAG         bool    `json:"use_rag"`
	Temperature    float64 `json:"temperature"`
}

// EventSink receives the ordered client events of one streaming
// response. Send failures mean the client is gone; the pipeline keeps
// persisting regardless.
type EventSink interface {
	Send(event string, data any) error
}

// ModelStreamer resolves a model id and streams the completion. The
// provider router satisfies this.
type ModelStreamer interface {
	StreamChat(ctx context.Context, req *providers.ChatRequest) (<-chan providers.StreamEvent, error)
}

// Client event payloads.
type ConversationEvent struct {
	ConversationID string `json:"conversation_id"`
}

type TokenEvent struct {
	Text string `json:"text"`
}

type UsageEvent struct {
	InputTokens    int     `json:"input_tokens"`
	OutputTokens   int     `json:"output_tokens"`
	CostUSD        float64 `json:"cost_usd"`
	ModelID        string  `json:"model_id"`
	ConversationID string  `json:"conversation_id"`
}

type DoneEvent struct {
	Status string `json:"status"`
}

type ErrorEvent struct {
	Error string `json:"error"`
}

// Orchestrator owns the single-turn pipeline. One instance serves all
// conversations; per-turn state lives on the stack.
type Orchestrator struct {
	cfg           *config.Config
	conversations *conversations.Service
	streamer      ModelStreamer
	retriever     rag.Retriever
	tracker       *costs.Tracker
	book          *pricing.Book
	logger        *zap.Logger
}

func NewOrchestrator(
	cfg *config.Config,
	convs *conversations.Service,
	streamer ModelStreamer,
	retriever rag.Retriever,
	tracker *costs.Tracker,
	book *pricing.Book,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:           cfg,
		conversations: convs,
		streamer:      streamer,
		retriever:     retriever,
		tracker:       tracker,
		book:          book,
		logger:        logger,
	}
}

// Run executes one turn. Any failure is surfaced to the client as a
// single error event; nothing else follows it.
func (o *Orchestrator) Run(ctx context.Context, req *Request, sink EventSink) {
	if err := o.run(ctx, req, sink); err != nil {
		o.logger.Error("Chat turn failed",
			zap.String("model_id", req.ModelID),
			zap.Error(err))
		_ = sink.Send("error", ErrorEvent{Error: err.Error()})
	}
}

func (o *Orchestrator) run(ctx context.Context, req *Request, sink EventSink) error {
	// Budget gate. Nothing is persisted before this passes.
	if err := o.tracker.CheckDailyBudget(ctx, o.cfg.Budget.MaxDailySpendUSD); err != nil {
		return err
	}

	// Resolve or create the conversation.
	conversationID := req.ConversationID
	isNew := false
	systemPrompt := ""
	if conversationID == "" {
		conv, err := o.conversations.Create(ctx, req.ModelID, "", "")
		if err != nil {
			return err
		}
		conversationID = conv.ID
		isNew = true
		_ = sink.Send("conversation", ConversationEvent{ConversationID: conversationID})
	} else {
		conv, err := o.conversations.Get(ctx, conversationID)
		if err != nil {
			return err
		}
		systemPrompt = conv.SystemPrompt
	}
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}

	// The user turn is recorded before retrieval so the history query
	// below already includes it.
	if _, err := o.conversations.AddMessage(ctx, conversations.MessageParams{
		ConversationID: conversationID,
		Role:           models.RoleUser,
		Content:        req.Message,
		UsedDocs:       req.UseRAG,
	}); err != nil {
		return err
	}

	var sources []rag.Source
	if req.UseRAG {
		contextText, retrieved, err := o.retriever.Retrieve(ctx, req.Message, conversationID)
		if err != nil {
			return err
		}
		sources = retrieved
		if contextText != "" {
			systemPrompt = fmt.Sprintf(ragSystemPromptFormat, contextText)
		}
		if len(sources) > 0 {
			_ = sink.Send("sources", sources)
		}
	}

	// Assemble the transcript: system prompt, then the stored
	// user/assistant history in insert order, ending with the fresh
	// user turn.
	messages := []providers.Message{{Role: providers.RoleSystem, Content: systemPrompt}}
	history, err := o.conversations.Messages(ctx, conversationID)
	if err != nil {
		return err
	}
	for _, msg := range history {
		if msg.Role == models.RoleUser || msg.Role == models.RoleAssistant {
			messages = append(messages, providers.Message{
				Role:    string(msg.Role),
				Content: msg.Content,
			})
		}
	}

	events, err := o.streamer.StreamChat(ctx, &providers.ChatRequest{
		Messages:    messages,
		Model:       req.ModelID,
		Temperature: req.Temperature,
		MaxTokens:   o.cfg.MaxTokensFor(req.ModelID),
	})
	if err != nil {
		return err
	}

	var response strings.Builder
	inputTokens, outputTokens := 0, 0
	var citations []providers.Citation
	for ev := range events {
		if ev.Text != "" {
			response.WriteString(ev.Text)
			_ = sink.Send("token", TokenEvent{Text: ev.Text})
		}
		if len(ev.Citations) > 0 {
			citations = append(citations, ev.Citations...)
		}
		if ev.Final {
			inputTokens = ev.InputTokens
			outputTokens = ev.OutputTokens
		}
	}

	if webSources := providers.DedupeCitations(citations); len(webSources) > 0 {
		_ = sink.Send("web_sources", webSources)
	}

	// Persistence survives a client disconnect: whatever tokens
	// accumulated before the abort are still billed and stored.
	persistCtx := context.WithoutCancel(ctx)

	cost := o.book.ChatCost(req.ModelID, inputTokens, outputTokens)
	assistantMsg, err := o.conversations.AddMessage(persistCtx, conversations.MessageParams{
		ConversationID: conversationID,
		Role:           models.RoleAssistant,
		Content:        response.String(),
		ModelID:        &req.ModelID,
		InputTokens:    inputTokens,
		OutputTokens:   outputTokens,
		CostUSD:        cost,
		UsedDocs:       req.UseRAG && len(sources) > 0,
	})
	if err != nil {
		return err
	}

	o.tracker.Record(persistCtx, &models.CostEntry{
		ConversationID: &conversationID,
		MessageID:      &assistantMsg.ID,
		ModelID:        req.ModelID,
		Operation:      models.OperationChat,
		InputTokens:    inputTokens,
		OutputTokens:   outputTokens,
		CostUSD:        cost,
	})

	shouldTitle := isNew
	if !shouldTitle {
		if count, err := o.conversations.MessageCount(persistCtx, conversationID); err == nil && count <= 2 {
			shouldTitle = true
		}
	}
	if shouldTitle {
		o.autoTitle(ctx, conversationID, req.Message, req.ModelID)
	}

	_ = sink.Send("usage", UsageEvent{
		InputTokens:    inputTokens,
		OutputTokens:   outputTokens,
		CostUSD:        cost,
		ModelID:        req.ModelID,
		ConversationID: conversationID,
	})
	_ = sink.Send("done", DoneEvent{Status: "complete"})
	return nil
}
