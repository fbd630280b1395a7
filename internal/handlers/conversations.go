package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jijnasa-ai/jijnasa/internal/services/conversations"
)

type ConversationsHandler struct {
	logger  *zap.Logger
	service *conversations.Service
}

func NewConversationsHandler(logger *zap.Logger, service *conversations.Service) *ConversationsHandler {
	return &ConversationsHandler{logger: logger, service: service}
}

type CreateConversationRequest struct {
	ModelID      string `json:"model_id"`
	Title        string `json:"title"`
	SystemPrompt string `json:"system_prompt"`
}

type UpdateSystemPromptRequest struct {
	SystemPrompt string `json:"system_prompt"`
}

type ConversationListResponse struct {
	Conversations []conversations.Summary `json:"conversations"`
}

// List returns all conversations
// @Summary List conversations
// @Description Returns every conversation, newest activity first, with message counts
// @Tags Conversations
// @Produce json
// @Success 200 {object} ConversationListResponse
// @Failure 500 {object} ErrorResponse
// @Router /conversations [get]
func (h *ConversationsHandler) List(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list conversations", zap.Error(err))
		sendError(h.logger, w, http.StatusInternalServerError, "Failed to list conversations")
		return
	}
	sendJSON(h.logger, w, http.StatusOK, ConversationListResponse{Conversations: summaries})
}

// Create starts a new conversation
// @Summary Create a conversation
// @Description Creates a conversation. All fields are optional; an empty body works.
// @Tags Conversations
// @Accept json
// @Produce json
// @Param request body CreateConversationRequest false "Conversation settings"
// @Success 200 {object} models.Conversation
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /conversations [post]
func (h *ConversationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	// An empty body means all defaults.
	var request CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil && !errors.Is(err, io.EOF) {
		sendError(h.logger, w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	conversation, err := h.service.Create(r.Context(), request.ModelID, request.Title, request.SystemPrompt)
	if err != nil {
		h.logger.Error("Failed to create conversation", zap.Error(err))
		sendError(h.logger, w, http.StatusInternalServerError, "Failed to create conversation")
		return
	}
	sendJSON(h.logger, w, http.StatusOK, conversation)
}

// Get returns one conversation
// @Summary Get a conversation
// @Tags Conversations
// @Produce json
// @Param id path string true "Conversation ID"
// @Success 200 {object} models.Conversation
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /conversations/{id} [get]
func (h *ConversationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	conversation, err := h.service.Get(r.Context(), conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			sendError(h.logger, w, http.StatusNotFound, "Conversation not found")
			return
		}
		h.logger.Error("Failed to get conversation", zap.String("conversation_id", conversationID), zap.Error(err))
		sendError(h.logger, w, http.StatusInternalServerError, "Failed to get conversation")
		return
	}
	sendJSON(h.logger, w, http.StatusOK, conversation)
}

// Messages returns a conversation's messages
// @Summary List messages
// @Description Returns the conversation's messages oldest first
// @Tags Conversations
// @Produce json
// @Param id path string true "Conversation ID"
// @Success 200 {array} models.Message
// @Failure 500 {object} ErrorResponse
// @Router /conversations/{id}/messages [get]
func (h *ConversationsHandler) Messages(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	messages, err := h.service.Messages(r.Context(), conversationID)
	if err != nil {
		h.logger.Error("Failed to list messages", zap.String("conversation_id", conversationID), zap.Error(err))
		sendError(h.logger, w, http.StatusInternalServerError, "Failed to list messages")
		return
	}
	sendJSON(h.logger, w, http.StatusOK, messages)
}

// UpdateSystemPrompt replaces a conversation's system prompt
// @Summary Update the system prompt
// @Description Sets the conversation's system prompt. An empty value falls back to the default prompt on the next turn.
// @Tags Conversations
// @Accept json
// @Produce json
// @Param id path string true "Conversation ID"
// @Param request body UpdateSystemPromptRequest true "New system prompt"
// @Success 200 {object} StatusResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /conversations/{id}/system-prompt [put]
func (h *ConversationsHandler) UpdateSystemPrompt(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	var request UpdateSystemPromptRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil && !errors.Is(err, io.EOF) {
		sendError(h.logger, w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := h.service.UpdateSystemPrompt(r.Context(), conversationID, request.SystemPrompt); err != nil {
		h.logger.Error("Failed to update system prompt", zap.String("conversation_id", conversationID), zap.Error(err))
		sendError(h.logger, w, http.StatusInternalServerError, "Failed to update system prompt")
		return
	}
	sendJSON(h.logger, w, http.StatusOK, StatusResponse{Status: "updated"})
}

// Delete removes a conversation
// @Summary Delete a conversation
// @Description Deletes the conversation and everything tied to it. Deleting an unknown ID still succeeds.
// @Tags Conversations
// @Produce json
// @Param id path string true "Conversation ID"
// @Success 200 {object} StatusResponse
// @Failure 500 {object} ErrorResponse
// @Router /conversations/{id} [delete]
func (h *ConversationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), conversationID); err != nil {
		h.logger.Error("Failed to delete conversation", zap.String("conversation_id", conversationID), zap.Error(err))
		sendError(h.logger, w, http.StatusInternalServerError, "Failed to delete conversation")
		return
	}
	sendJSON(h.logger, w, http.StatusOK, StatusResponse{Status: "deleted"})
}
