package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func jsonServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestPerplexityAdapterFullResponse(t *testing.T) {
	server := jsonServer(t, http.StatusOK, `{
		"id": "resp-1",
		"model": "sonar",
		"object": "chat.completion",
		"choices": [{"index": 0, "finish_reason": "stop",
			"message": {"role": "assistant", "content": "Answer with sources."}}],
		"usage": {"prompt_tokens": 12, "completion_tokens": 34, "total_tokens": 46},
		"citations": ["https://a.example", "https://a.example",
			{"url": "https://b.example", "title": "B Site"}]
	}`)

	adapter := NewPerplexityAdapter("test-key", zap.NewNop(), option.WithBaseURL(server.URL))
	events := collectEvents(t, adapter.StreamChat(context.Background(), &ChatRequest{
		Model:       "sonar",
		Messages:    []Message{{Role: RoleUser, Content: "question"}},
		Temperature: 0.7,
		MaxTokens:   4096,
	}))

	require.Len(t, events, 2)
	assert.Equal(t, "Answer with sources.", events[0].Text)

	final := requireSingleFinal(t, events)
	assert.Equal(t, FinishStop, final.FinishReason)
	assert.Equal(t, 12, final.InputTokens)
	assert.Equal(t, 34, final.OutputTokens)
	require.Len(t, final.Citations, 2)
	assert.Equal(t, "https://a.example", final.Citations[0].URL)
	assert.Equal(t, "Source 1", final.Citations[0].Title)
	assert.Equal(t, "B Site", final.Citations[1].Title)
	assert.Equal(t, SourcePerplexity, final.Citations[1].Source)
}

func TestPerplexityAdapterEmptyResponse(t *testing.T) {
	// Usage and citations on an empty answer must not leak into the
	// final event; the turn is billed at zero.
	server := jsonServer(t, http.StatusOK, `{
		"id": "resp-2",
		"model": "sonar",
		"object": "chat.completion",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": ""}}],
		"usage": {"prompt_tokens": 9, "completion_tokens": 0, "total_tokens": 9},
		"citations": ["https://a.example"]
	}`)

	adapter := NewPerplexityAdapter("test-key", zap.NewNop(), option.WithBaseURL(server.URL))
	events := collectEvents(t, adapter.StreamChat(context.Background(), &ChatRequest{
		Model:    "sonar",
		Messages: []Message{{Role: RoleUser, Content: "question"}},
	}))

	require.Len(t, events, 2)
	assert.Equal(t, "No response received from Perplexity. Please try again.", events[0].Text)

	final := requireSingleFinal(t, events)
	assert.Zero(t, final.InputTokens)
	assert.Zero(t, final.OutputTokens)
	assert.Empty(t, final.Citations)
}

func TestPerplexityAdapterUpstreamError(t *testing.T) {
	server := jsonServer(t, http.StatusInternalServerError, `{"error": {"message": "boom"}}`)

	adapter := NewPerplexityAdapter("test-key", zap.NewNop(),
		option.WithBaseURL(server.URL), option.WithMaxRetries(0))
	events := collectEvents(t, adapter.StreamChat(context.Background(), &ChatRequest{
		Model:    "sonar",
		Messages: []Message{{Role: RoleUser, Content: "question"}},
	}))

	require.Len(t, events, 2)
	assert.Contains(t, events[0].Text, "Error from Perplexity:")

	final := requireSingleFinal(t, events)
	assert.Equal(t, FinishError, final.FinishReason)
	assert.Zero(t, final.InputTokens)
	assert.Zero(t, final.OutputTokens)
}

func TestParsePerplexityCitations(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected []Citation
	}{
		{
			name:     "no citations field",
			body:     `{"id": "r", "choices": []}`,
			expected: nil,
		},
		{
			name:     "citations not a list",
			body:     `{"id": "r", "citations": {"url": "https://a.example"}}`,
			expected: nil,
		},
		{
			name: "string urls numbered by raw position",
			body: `{"id": "r", "citations": ["https://a.example", "https://a.example", "https://b.example"]}`,
			expected: []Citation{
				{URL: "https://a.example", Title: "Source 1", Source: SourcePerplexity},
				{URL: "https://b.example", Title: "Source 3", Source: SourcePerplexity},
			},
		},
		{
			name: "objects with and without titles",
			body: `{"id": "r", "citations": [{"url": "https://a.example", "title": "Alpha"}, {"url": ""}, {"url": "https://c.example"}]}`,
			expected: []Citation{
				{URL: "https://a.example", Title: "Alpha", Source: SourcePerplexity},
				{URL: "https://c.example", Title: "Source 3", Source: SourcePerplexity},
			},
		},
		{
			name: "explicit empty title preserved",
			body: `{"id": "r", "citations": [{"url": "https://a.example", "title": ""}]}`,
			expected: []Citation{
				{URL: "https://a.example", Title: "", Source: SourcePerplexity},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp oai.ChatCompletion
			require.NoError(t, json.Unmarshal([]byte(tt.body), &resp))
			assert.Equal(t, tt.expected, parsePerplexityCitations(&resp))
		})
	}
}
