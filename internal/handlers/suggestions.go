package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/jijnasa-ai/jijnasa/internal/services/suggestions"
)

// Suggester produces starter prompts. Never fails; it degrades to a
// static set instead.
type Suggester interface {
	Suggest(ctx context.Context) *suggestions.Result
}

type SuggestionsHandler struct {
	logger  *zap.Logger
	service Suggester
}

func NewSuggestionsHandler(logger *zap.Logger, service Suggester) *SuggestionsHandler {
	return &SuggestionsHandler{logger: logger, service: service}
}

// Suggest returns starter prompts
// @Summary Suggested prompts
// @Description Returns a few starter prompts, personalized from recent conversation titles when possible
// @Tags Suggestions
// @Produce json
// @Success 200 {object} suggestions.Result
// @Router /suggestions [get]
func (h *SuggestionsHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	sendJSON(h.logger, w, http.StatusOK, h.service.Suggest(r.Context()))
}
