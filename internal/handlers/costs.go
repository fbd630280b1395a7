package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/jijnasa-ai/jijnasa/internal/services/costs"
)

type CostsHandler struct {
	logger  *zap.Logger
	tracker *costs.Tracker
}

func NewCostsHandler(logger *zap.Logger, tracker *costs.Tracker) *CostsHandler {
	return &CostsHandler{logger: logger, tracker: tracker}
}

// Summary returns spend totals
// @Summary Cost summary
// @Description Returns total spend, token counts, and a per-model breakdown. Pass conversation_id to scope to one conversation.
// @Tags Costs
// @Produce json
// @Param conversation_id query string false "Scope to one conversation"
// @Success 200 {object} costs.Summary
// @Failure 500 {object} ErrorResponse
// @Router /costs/summary [get]
func (h *CostsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	conversationID := r.URL.Query().Get("conversation_id")
	summary, err := h.tracker.Summary(r.Context(), conversationID)
	if err != nil {
		h.logger.Error("Failed to build cost summary", zap.Error(err))
		sendError(h.logger, w, http.StatusInternalServerError, "Failed to build cost summary")
		return
	}
	sendJSON(h.logger, w, http.StatusOK, summary)
}
