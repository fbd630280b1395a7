package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/jijnasa-ai/jijnasa/internal/config"
	"github.com/jijnasa-ai/jijnasa/internal/services/providers"
)

type ModelsHandler struct {
	logger       *zap.Logger
	router       *providers.Router
	defaultModel string
}

func NewModelsHandler(logger *zap.Logger, cfg *config.Config, router *providers.Router) *ModelsHandler {
	return &ModelsHandler{
		logger:       logger,
		router:       router,
		defaultModel: cfg.Models.Default,
	}
}

type ModelInfo struct {
	ID        string `json:"id"`
	Provider  string `json:"provider"`
	Name      string `json:"name"`
	MaxTokens int    `json:"max_tokens"`
}

type ModelListResponse struct {
	Models       []ModelInfo `json:"models"`
	DefaultModel string      `json:"default_model"`
}

// ListModels lists usable models
// @Summary List available models
// @Description Lists catalog models whose provider has a credential configured
// @Tags Models
// @Produce json
// @Success 200 {object} ModelListResponse
// @Router /models [get]
func (h *ModelsHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	available := h.router.AvailableModels()
	infos := make([]ModelInfo, 0, len(available))
	for _, model := range available {
		infos = append(infos, ModelInfo{
			ID:        model.ID,
			Provider:  model.Provider,
			Name:      model.Name,
			MaxTokens: model.MaxTokens,
		})
	}
	sendJSON(h.logger, w, http.StatusOK, ModelListResponse{
		Models:       infos,
		DefaultModel: h.defaultModel,
	})
}
