package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/jijnasa-ai/jijnasa/internal/services/analytics"
)

const (
	defaultSummaryDays = 30
	maxSummaryDays     = 365
)

type AnalyticsHandler struct {
	logger  *zap.Logger
	service *analytics.Service
}

func NewAnalyticsHandler(logger *zap.Logger, service *analytics.Service) *AnalyticsHandler {
	return &AnalyticsHandler{logger: logger, service: service}
}

type AnalyticsEventRequest struct {
	EventType string         `json:"event_type"`
	EventData map[string]any `json:"event_data"`
}

// RecordEvent stores a usage event
// @Summary Record an analytics event
// @Description Stores one usage event with an optional free-form payload
// @Tags Analytics
// @Accept json
// @Produce json
// @Param request body AnalyticsEventRequest true "Event"
// @Success 200 {object} StatusResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /analytics/event [post]
func (h *AnalyticsHandler) RecordEvent(w http.ResponseWriter, r *http.Request) {
	var request AnalyticsEventRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		sendError(h.logger, w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if request.EventType == "" {
		sendError(h.logger, w, http.StatusBadRequest, "event_type is required")
		return
	}

	if err := h.service.RecordEvent(r.Context(), request.EventType, request.EventData); err != nil {
		h.logger.Error("Failed to record analytics event", zap.String("event_type", request.EventType), zap.Error(err))
		sendError(h.logger, w, http.StatusInternalServerError, "Failed to record event")
		return
	}
	sendJSON(h.logger, w, http.StatusOK, StatusResponse{Status: "ok"})
}

// Summary returns usage rollups
// @Summary Usage summary
// @Description Returns event counts, daily activity, and model usage over a trailing window
// @Tags Analytics
// @Produce json
// @Param days query int false "Window in days, 1-365" default(30)
// @Success 200 {object} analytics.Summary
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /analytics/summary [get]
func (h *AnalyticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	days := defaultSummaryDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxSummaryDays {
			sendError(h.logger, w, http.StatusBadRequest, "Days must be between 1 and 365")
			return
		}
		days = parsed
	}

	summary, err := h.service.Summary(r.Context(), days)
	if err != nil {
		h.logger.Error("Failed to build analytics summary", zap.Error(err))
		sendError(h.logger, w, http.StatusInternalServerError, "Failed to build analytics summary")
		return
	}
	sendJSON(h.logger, w, http.StatusOK, summary)
}
