package handlers

import (
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jijnasa-ai/jijnasa/internal/models"
)

// Version is the API version reported by the health endpoint.
const Version = "0.1.0"

type HealthHandler struct {
	logger *zap.Logger
	db     *gorm.DB
}

func NewHealthHandler(logger *zap.Logger, db *gorm.DB) *HealthHandler {
	return &HealthHandler{logger: logger, db: db}
}

type HealthResponse struct {
	Status            string `json:"status"`
	Version           string `json:"version"`
	DocumentCount     int64  `json:"document_count"`
	ConversationCount int64  `json:"conversation_count"`
}

type RootResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Docs    string `json:"docs"`
}

// Health reports service status
// @Summary Health check
// @Description Reports service health with stored document and conversation counts. Answers 200 even while the database is still coming up, with status "starting".
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{Status: "healthy", Version: Version}

	if h.db == nil {
		response.Status = "starting"
		sendJSON(h.logger, w, http.StatusOK, response)
		return
	}

	db := h.db.WithContext(r.Context())
	if err := db.Model(&models.Document{}).Count(&response.DocumentCount).Error; err != nil {
		h.logger.Warn("Health count failed", zap.Error(err))
		response = HealthResponse{Status: "starting", Version: Version}
		sendJSON(h.logger, w, http.StatusOK, response)
		return
	}
	if err := db.Model(&models.Conversation{}).Count(&response.ConversationCount).Error; err != nil {
		h.logger.Warn("Health count failed", zap.Error(err))
		response = HealthResponse{Status: "starting", Version: Version}
		sendJSON(h.logger, w, http.StatusOK, response)
		return
	}

	sendJSON(h.logger, w, http.StatusOK, response)
}

// Root confirms the API is reachable
// @Summary API root
// @Tags Health
// @Produce json
// @Success 200 {object} RootResponse
// @Router / [get]
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	sendJSON(h.logger, w, http.StatusOK, RootResponse{
		Status:  "ok",
		Message: "JijnasaAI backend is running",
		Docs:    "/swagger",
	})
}
