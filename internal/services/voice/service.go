// Package voice wraps the upstream speech endpoints: Whisper
// transcription in and TTS synthesis out. Both operations book their
// cost against the ledger as they complete.
package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/jijnasa-ai/jijnasa/internal/config"
	"github.com/jijnasa-ai/jijnasa/internal/models"
	"github.com/jijnasa-ai/jijnasa/internal/services/costs"
	"github.com/jijnasa-ai/jijnasa/internal/services/pricing"
	"github.com/jijnasa-ai/jijnasa/internal/services/providers"
)

const defaultBaseURL = "https://api.openai.com/v1"

// TranscriptionResult is the verbose transcription payload trimmed to
// what clients need.
type TranscriptionResult struct {
	Text                 string  `json:"text"`
	AudioDurationSeconds float64 `json:"audio_duration_seconds"`
}

type Service struct {
	client  *http.Client
	baseURL string
	apiKey  string
	voice   config.VoiceConfig
	tracker *costs.Tracker
	book    *pricing.Book
	logger  *zap.Logger
}

func NewService(cfg *config.Config, tracker *costs.Tracker, book *pricing.Book, logger *zap.Logger) *Service {
	return &Service{
		client:  &http.Client{Timeout: 120 * time.Second},
		baseURL: defaultBaseURL,
		apiKey:  cfg.ProviderKey("openai"),
		voice:   cfg.Voice,
		tracker: tracker,
		book:    book,
		logger:  logger,
	}
}

// Transcribe sends audio through the speech-to-text model and books the
// duration-based cost. The filename only labels the multipart field;
// "audio.wav" stands in when the upload had none.
func (s *Service) Transcribe(ctx context.Context, audio []byte, filename string) (*TranscriptionResult, error) {
	if s.apiKey == "" {
		return nil, &providers.ProviderNotConfiguredError{Provider: "openai"}
	}
	if filename == "" {
		filename = "audio.wav"
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	fileWriter, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := fileWriter.Write(audio); err != nil {
		return nil, fmt.Errorf("failed to write audio: %w", err)
	}
	if err := writer.WriteField("model", s.voice.STTModel); err != nil {
		return nil, fmt.Errorf("failed to write model field: %w", err)
	}
	// verbose_json is the only response format that reports duration,
	// which the cost entry needs.
	if err := writer.WriteField("response_format", "verbose_json"); err != nil {
		return nil, fmt.Errorf("failed to write response_format field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, upstreamError(resp.StatusCode, body)
	}

	var verbose struct {
		Text     string  `json:"text"`
		Duration float64 `json:"duration"`
	}
	if err := json.Unmarshal(body, &verbose); err != nil {
		return nil, fmt.Errorf("failed to parse transcription: %w", err)
	}

	minutes := verbose.Duration / 60
	s.tracker.Record(ctx, &models.CostEntry{
		ModelID:      s.voice.STTModel,
		Operation:    models.OperationSTT,
		AudioMinutes: minutes,
		CostUSD:      s.book.STTCost(s.voice.STTModel, minutes),
	})
	s.logger.Info("Transcribed audio",
		zap.String("filename", filename),
		zap.Float64("duration_seconds", verbose.Duration))

	return &TranscriptionResult{Text: verbose.Text, AudioDurationSeconds: verbose.Duration}, nil
}

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format,omitempty"`
}

// Synthesize converts text to audio in the configured format and books
// the character-based cost. An empty voice selects the configured
// default.
func (s *Service) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if s.apiKey == "" {
		return nil, &providers.ProviderNotConfiguredError{Provider: "openai"}
	}
	if voice == "" {
		voice = s.voice.TTSVoice
	}

	reqBody, err := json.Marshal(speechRequest{
		Model:          s.voice.TTSModel,
		Input:          text,
		Voice:          voice,
		ResponseFormat: s.voice.TTSResponseFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/audio/speech", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, upstreamError(resp.StatusCode, body)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}

	characters := utf8.RuneCountInString(text)
	s.tracker.Record(ctx, &models.CostEntry{
		ModelID:       s.voice.TTSModel,
		Operation:     models.OperationTTS,
		TTSCharacters: characters,
		CostUSD:       s.book.TTSCost(s.voice.TTSModel, characters),
	})
	s.logger.Info("Synthesized speech",
		zap.String("voice", voice),
		zap.Int("characters", characters))

	return audio, nil
}

// ContentType names the MIME type of Synthesize output.
func (s *Service) ContentType() string {
	switch s.voice.TTSResponseFormat {
	case "wav":
		return "audio/wav"
	case "flac":
		return "audio/flac"
	case "opus":
		return "audio/ogg"
	default:
		return "audio/mpeg"
	}
}

func upstreamError(status int, body []byte) error {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
		return fmt.Errorf("request failed with status %d: %s", status, body)
	}
	return fmt.Errorf("OpenAI API error: %s", errResp.Error.Message)
}
