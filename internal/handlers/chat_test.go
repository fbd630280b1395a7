package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jijnasa-ai/jijnasa/internal/config"
	"github.com/jijnasa-ai/jijnasa/internal/services/chat"
	"github.com/jijnasa-ai/jijnasa/internal/services/comparison"
)

type fakeChatRunner struct {
	lastRequest *chat.Request
}

func (f *fakeChatRunner) Run(ctx context.Context, req *chat.Request, sink chat.EventSink) {
	f.lastRequest = req
	_ = sink.Send("token", map[string]string{"text": "Hello"})
	_ = sink.Send("done", "finished")
}

type fakeComparisonRunner struct {
	prompt      string
	modelIDs    []string
	temperature float64
	called      bool
}

func (f *fakeComparisonRunner) Run(ctx context.Context, prompt string, modelIDs []string, temperature float64, sink comparison.EventSink) {
	f.called = true
	f.prompt = prompt
	f.modelIDs = modelIDs
	f.temperature = temperature
	_ = sink.Send("done", map[string]string{"model_id": modelIDs[0]})
}

func newTestChatHandler(runner ChatRunner, comp ComparisonRunner) *ChatHandler {
	cfg := &config.Config{Models: config.ModelsConfig{Default: "gpt-4o"}}
	return NewChatHandler(zap.NewNop(), cfg, runner, comp)
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var response ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response.Error.Message
}

func TestChatCompletionsValidation(t *testing.T) {
	tests := []struct {
		name           string
		body           map[string]any
		expectedStatus int
		errorMessage   string
	}{
		{
			name:           "Empty message",
			body:           map[string]any{"message": ""},
			expectedStatus: http.StatusBadRequest,
			errorMessage:   "Message must be between 1 and 50000 characters",
		},
		{
			name:           "Single character message",
			body:           map[string]any{"message": "x"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Message at limit",
			body:           map[string]any{"message": strings.Repeat("a", 50000)},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Message over limit",
			body:           map[string]any{"message": strings.Repeat("a", 50001)},
			expectedStatus: http.StatusBadRequest,
			errorMessage:   "Message must be between 1 and 50000 characters",
		},
		{
			name:           "Multibyte message counted in characters not bytes",
			body:           map[string]any{"message": strings.Repeat("é", 50000)},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Temperature below zero",
			body:           map[string]any{"message": "hi", "temperature": -0.01},
			expectedStatus: http.StatusBadRequest,
			errorMessage:   "Temperature must be between 0.0 and 2.0",
		},
		{
			name:           "Temperature zero",
			body:           map[string]any{"message": "hi", "temperature": 0.0},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Temperature at upper bound",
			body:           map[string]any{"message": "hi", "temperature": 2.0},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Temperature over upper bound",
			body:           map[string]any{"message": "hi", "temperature": 2.01},
			expectedStatus: http.StatusBadRequest,
			errorMessage:   "Temperature must be between 0.0 and 2.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeChatRunner{}
			handler := newTestChatHandler(runner, &fakeComparisonRunner{})

			w := postJSON(t, handler.ChatCompletions, "/chat/completions", tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.errorMessage != "" {
				assert.Contains(t, errorMessage(t, w), tt.errorMessage)
				assert.Nil(t, runner.lastRequest, "rejected request must not reach the orchestrator")
			}
		})
	}
}

func TestChatCompletionsInvalidBody(t *testing.T) {
	handler := newTestChatHandler(&fakeChatRunner{}, &fakeComparisonRunner{})

	req := httptest.NewRequest(http.MethodPost, "/chat/completions", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	handler.ChatCompletions(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorMessage(t, w), "Invalid request body")
}

func TestChatCompletionsDefaults(t *testing.T) {
	runner := &fakeChatRunner{}
	handler := newTestChatHandler(runner, &fakeComparisonRunner{})

	w := postJSON(t, handler.ChatCompletions, "/chat/completions", map[string]any{"message": "hi"})

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, runner.lastRequest)
	assert.Equal(t, "gpt-4o", runner.lastRequest.ModelID)
	assert.InDelta(t, 0.7, runner.lastRequest.Temperature, 1e-9)
	assert.False(t, runner.lastRequest.UseRAG)
}

func TestChatCompletionsExplicitZeroTemperature(t *testing.T) {
	runner := &fakeChatRunner{}
	handler := newTestChatHandler(runner, &fakeComparisonRunner{})

	w := postJSON(t, handler.ChatCompletions, "/chat/completions", map[string]any{
		"message":     "hi",
		"model_id":    "claude-sonnet-4-5-20250929",
		"temperature": 0.0,
		"use_rag":     true,
	})

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, runner.lastRequest)
	assert.Equal(t, "claude-sonnet-4-5-20250929", runner.lastRequest.ModelID)
	assert.Zero(t, runner.lastRequest.Temperature)
	assert.True(t, runner.lastRequest.UseRAG)
}

func TestChatCompletionsStreamFraming(t *testing.T) {
	handler := newTestChatHandler(&fakeChatRunner{}, &fakeComparisonRunner{})

	w := postJSON(t, handler.ChatCompletions, "/chat/completions", map[string]any{"message": "hi"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	assert.Equal(t, "no", w.Header().Get("X-Accel-Buffering"))
	assert.True(t, w.Flushed)

	body := w.Body.String()
	assert.Contains(t, body, "event: token\ndata: {\"text\":\"Hello\"}\n\n")
	assert.Contains(t, body, "event: done\ndata: \"finished\"\n\n")
}

func TestCompareModelsValidation(t *testing.T) {
	tests := []struct {
		name           string
		body           map[string]any
		expectedStatus int
		errorMessage   string
	}{
		{
			name:           "One model",
			body:           map[string]any{"message": "hi", "model_ids": []string{"gpt-4o"}},
			expectedStatus: http.StatusBadRequest,
			errorMessage:   "Comparison requires between 2 and 3 model ids",
		},
		{
			name:           "Two models",
			body:           map[string]any{"message": "hi", "model_ids": []string{"gpt-4o", "sonar"}},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Three models",
			body:           map[string]any{"message": "hi", "model_ids": []string{"gpt-4o", "sonar", "gemini-2.0-flash"}},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Four models",
			body:           map[string]any{"message": "hi", "model_ids": []string{"a", "b", "c", "d"}},
			expectedStatus: http.StatusBadRequest,
			errorMessage:   "Comparison requires between 2 and 3 model ids",
		},
		{
			name:           "Empty message",
			body:           map[string]any{"message": "", "model_ids": []string{"gpt-4o", "sonar"}},
			expectedStatus: http.StatusBadRequest,
			errorMessage:   "Message must be between 1 and 50000 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comp := &fakeComparisonRunner{}
			handler := newTestChatHandler(&fakeChatRunner{}, comp)

			w := postJSON(t, handler.CompareModels, "/chat/comparison", tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.errorMessage != "" {
				assert.Contains(t, errorMessage(t, w), tt.errorMessage)
				assert.False(t, comp.called)
			}
		})
	}
}

func TestCompareModelsPassesArguments(t *testing.T) {
	comp := &fakeComparisonRunner{}
	handler := newTestChatHandler(&fakeChatRunner{}, comp)

	w := postJSON(t, handler.CompareModels, "/chat/comparison", map[string]any{
		"message":     "compare this",
		"model_ids":   []string{"gpt-4o", "claude-sonnet-4-5-20250929"},
		"temperature": 1.5,
	})

	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, comp.called)
	assert.Equal(t, "compare this", comp.prompt)
	assert.Equal(t, []string{"gpt-4o", "claude-sonnet-4-5-20250929"}, comp.modelIDs)
	assert.InDelta(t, 1.5, comp.temperature, 1e-9)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
}
