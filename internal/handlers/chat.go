package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/jijnasa-ai/jijnasa/internal/config"
	"github.com/jijnasa-ai/jijnasa/internal/services/chat"
	"github.com/jijnasa-ai/jijnasa/internal/services/comparison"
)

const (
	maxMessageChars    = 50000
	minComparisonSlots = 2
	maxComparisonSlots = 3
	defaultTemperature = 0.7
)

// ChatRunner executes one chat turn against an event sink. The chat
// orchestrator satisfies this.
type ChatRunner interface {
	Run(ctx context.Context, req *chat.Request, sink chat.EventSink)
}

// ComparisonRunner fans one prompt out to several models.
type ComparisonRunner interface {
	Run(ctx context.Context, prompt string, modelIDs []string, temperature float64, sink comparison.EventSink)
}

type ChatHandler struct {
	logger       *zap.Logger
	runner       ChatRunner
	comparison   ComparisonRunner
	defaultModel string
}

func NewChatHandler(logger *zap.Logger, cfg *config.Config, runner ChatRunner, comparison ComparisonRunner) *ChatHandler {
	return &ChatHandler{
		logger:       logger,
		runner:       runner,
		comparison:   comparison,
		defaultModel: cfg.Models.Default,
	}
}

type ChatCompletionRequest struct {
	ConversationID string   `json:"conversation_id"`
	Message        string   `json:"message"`
	ModelID        string   `json:"model_id"`
	UseRAG         bool     `json:"use_rag"`
	Temperature    *float64 `json:"temperature"`
}

type ComparisonRequest struct {
	Message     string   `json:"message"`
	ModelIDs    []string `json:"model_ids"`
	Temperature *float64 `json:"temperature"`
}

// ChatCompletions streams one chat turn
// @Summary Stream a chat completion
// @Description Runs one conversation turn and streams conversation, token, sources, usage, and done events over SSE
// @Tags Chat
// @Accept json
// @Produce text/event-stream
// @Param request body ChatCompletionRequest true "Chat turn"
// @Success 200 {string} string "SSE stream"
// @Failure 400 {object} ErrorResponse
// @Router /chat/completions [post]
func (h *ChatHandler) ChatCompletions(w http.ResponseWriter, r *http.Request) {
	var request ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		sendError(h.logger, w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	message, temperature, ok := h.validateTurn(w, request.Message, request.Temperature)
	if !ok {
		return
	}
	modelID := request.ModelID
	if modelID == "" {
		modelID = h.defaultModel
	}

	sink, err := startSSE(w)
	if err != nil {
		sendError(h.logger, w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	h.runner.Run(r.Context(), &chat.Request{
		ConversationID: request.ConversationID,
		Message:        message,
		ModelID:        modelID,
		UseRAG:         request.UseRAG,
		Temperature:    temperature,
	}, sink)
}

// CompareModels streams one prompt across several models
// @Summary Compare models side by side
// @Description Streams the same prompt through 2-3 models at once, emitting per-slot token, web_sources, usage, and error events over SSE. Nothing is persisted.
// @Tags Chat
// @Accept json
// @Produce text/event-stream
// @Param request body ComparisonRequest true "Comparison prompt"
// @Success 200 {string} string "SSE stream"
// @Failure 400 {object} ErrorResponse
// @Router /chat/comparison [post]
func (h *ChatHandler) CompareModels(w http.ResponseWriter, r *http.Request) {
	var request ComparisonRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		sendError(h.logger, w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	message, temperature, ok := h.validateTurn(w, request.Message, request.Temperature)
	if !ok {
		return
	}
	if len(request.ModelIDs) < minComparisonSlots || len(request.ModelIDs) > maxComparisonSlots {
		sendError(h.logger, w, http.StatusBadRequest, fmt.Sprintf(
			"Comparison requires between %d and %d model ids", minComparisonSlots, maxComparisonSlots))
		return
	}

	sink, err := startSSE(w)
	if err != nil {
		sendError(h.logger, w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	h.comparison.Run(r.Context(), message, request.ModelIDs, temperature, sink)
}

// validateTurn applies the shared message and temperature bounds. A
// false return means a 400 was already written.
func (h *ChatHandler) validateTurn(w http.ResponseWriter, message string, temperature *float64) (string, float64, bool) {
	if n := utf8.RuneCountInString(message); n < 1 || n > maxMessageChars {
		sendError(h.logger, w, http.StatusBadRequest, fmt.Sprintf(
			"Message must be between 1 and %d characters", maxMessageChars))
		return "", 0, false
	}

	temp := defaultTemperature
	if temperature != nil {
		temp = *temperature
		if temp < 0.0 || temp > 2.0 {
			sendError(h.logger, w, http.StatusBadRequest, "Temperature must be between 0.0 and 2.0")
			return "", 0, false
		}
	}
	return message, temp, true
}
