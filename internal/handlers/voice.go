package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/jijnasa-ai/jijnasa/internal/services/providers"
	"github.com/jijnasa-ai/jijnasa/internal/services/voice"
)

const maxSynthesisChars = 4096

// SpeechService turns audio into text and text into audio. The voice
// service satisfies this.
type SpeechService interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (*voice.TranscriptionResult, error)
	Synthesize(ctx context.Context, text, voiceName string) ([]byte, error)
	ContentType() string
}

type VoiceHandler struct {
	logger  *zap.Logger
	service SpeechService
}

func NewVoiceHandler(logger *zap.Logger, service SpeechService) *VoiceHandler {
	return &VoiceHandler{logger: logger, service: service}
}

type SynthesisRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

// Transcribe converts speech to text
// @Summary Transcribe audio
// @Description Transcribes an uploaded audio file and returns the text with the spoken duration
// @Tags Voice
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Audio file"
// @Success 200 {object} voice.TranscriptionResult
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /voice/transcribe [post]
func (h *VoiceHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		sendError(h.logger, w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		sendError(h.logger, w, http.StatusBadRequest, "Audio file is required")
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			h.logger.Warn("Failed to close uploaded file", zap.Error(err))
		}
	}()

	audio, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("Failed to read audio file", zap.Error(err))
		sendError(h.logger, w, http.StatusInternalServerError, "Failed to read audio file")
		return
	}

	result, err := h.service.Transcribe(r.Context(), audio, header.Filename)
	if err != nil {
		h.speechError(w, err, "Transcription failed")
		return
	}
	sendJSON(h.logger, w, http.StatusOK, result)
}

// Synthesize converts text to speech
// @Summary Synthesize speech
// @Description Renders text as spoken audio and returns the raw bytes
// @Tags Voice
// @Accept json
// @Produce audio/mpeg
// @Param request body SynthesisRequest true "Text to speak"
// @Success 200 {string} binary "Audio bytes"
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /voice/synthesize [post]
func (h *VoiceHandler) Synthesize(w http.ResponseWriter, r *http.Request) {
	var request SynthesisRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		sendError(h.logger, w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if n := utf8.RuneCountInString(request.Text); n < 1 || n > maxSynthesisChars {
		sendError(h.logger, w, http.StatusBadRequest, "Text must be between 1 and 4096 characters")
		return
	}

	audio, err := h.service.Synthesize(r.Context(), request.Text, request.Voice)
	if err != nil {
		h.speechError(w, err, "Synthesis failed")
		return
	}

	w.Header().Set("Content-Type", h.service.ContentType())
	w.Header().Set("Content-Disposition", "inline; filename=speech.mp3")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(audio); err != nil {
		h.logger.Warn("Failed to write audio response", zap.Error(err))
	}
}

// speechError maps a missing provider credential to a client error;
// everything else is on us.
func (h *VoiceHandler) speechError(w http.ResponseWriter, err error, fallback string) {
	var notConfigured *providers.ProviderNotConfiguredError
	if errors.As(err, &notConfigured) {
		sendError(h.logger, w, http.StatusBadRequest, err.Error())
		return
	}
	h.logger.Error(fallback, zap.Error(err))
	sendError(h.logger, w, http.StatusInternalServerError, fallback)
}
