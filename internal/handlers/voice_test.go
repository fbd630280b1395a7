package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jijnasa-ai/jijnasa/internal/services/providers"
	"github.com/jijnasa-ai/jijnasa/internal/services/voice"
)

type fakeSpeech struct {
	transcription *voice.TranscriptionResult
	audioOut      []byte
	err           error

	audioIn   []byte
	filename  string
	text      string
	voiceName string
}

func (f *fakeSpeech) Transcribe(ctx context.Context, audio []byte, filename string) (*voice.TranscriptionResult, error) {
	f.audioIn = audio
	f.filename = filename
	if f.err != nil {
		return nil, f.err
	}
	return f.transcription, nil
}

func (f *fakeSpeech) Synthesize(ctx context.Context, text, voiceName string) ([]byte, error) {
	f.text = text
	f.voiceName = voiceName
	if f.err != nil {
		return nil, f.err
	}
	return f.audioOut, nil
}

func (f *fakeSpeech) ContentType() string { return "audio/mpeg" }

func transcribeRequest(t *testing.T, filename string, audio []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(audio)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/voice/transcribe", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestTranscribe(t *testing.T) {
	speech := &fakeSpeech{transcription: &voice.TranscriptionResult{
		Text:                 "hello world",
		AudioDurationSeconds: 2.5,
	}}
	handler := NewVoiceHandler(zap.NewNop(), speech)

	w := httptest.NewRecorder()
	handler.Transcribe(w, transcribeRequest(t, "clip.wav", []byte("RIFF")))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "clip.wav", speech.filename)
	assert.Equal(t, []byte("RIFF"), speech.audioIn)

	var result voice.TranscriptionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "hello world", result.Text)
	assert.InDelta(t, 2.5, result.AudioDurationSeconds, 1e-9)
}

func TestTranscribeMissingFile(t *testing.T) {
	handler := NewVoiceHandler(zap.NewNop(), &fakeSpeech{})

	w := httptest.NewRecorder()
	handler.Transcribe(w, transcribeRequest(t, "", nil))

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorMessage(t, w), "Audio file is required")
}

func TestTranscribeProviderNotConfigured(t *testing.T) {
	speech := &fakeSpeech{err: &providers.ProviderNotConfiguredError{Provider: "openai"}}
	handler := NewVoiceHandler(zap.NewNop(), speech)

	w := httptest.NewRecorder()
	handler.Transcribe(w, transcribeRequest(t, "clip.wav", []byte("RIFF")))

	// Missing credentials surface as a client error naming the provider.
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorMessage(t, w), "Provider 'openai' not configured")
}

func TestSynthesize(t *testing.T) {
	speech := &fakeSpeech{audioOut: []byte("ID3 audio bytes")}
	handler := NewVoiceHandler(zap.NewNop(), speech)

	w := postJSON(t, handler.Synthesize, "/voice/synthesize", map[string]any{
		"text":  "Read this aloud",
		"voice": "nova",
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Read this aloud", speech.text)
	assert.Equal(t, "nova", speech.voiceName)
	assert.Equal(t, "audio/mpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, "inline; filename=speech.mp3", w.Header().Get("Content-Disposition"))
	assert.Equal(t, []byte("ID3 audio bytes"), w.Body.Bytes())
}

func TestSynthesizeTextBounds(t *testing.T) {
	tests := []struct {
		name           string
		text           string
		expectedStatus int
	}{
		{name: "Empty text", text: "", expectedStatus: http.StatusBadRequest},
		{name: "Single character", text: "x", expectedStatus: http.StatusOK},
		{name: "At limit", text: strings.Repeat("a", 4096), expectedStatus: http.StatusOK},
		{name: "Over limit", text: strings.Repeat("a", 4097), expectedStatus: http.StatusBadRequest},
		{name: "Multibyte at limit", text: strings.Repeat("ü", 4096), expectedStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewVoiceHandler(zap.NewNop(), &fakeSpeech{audioOut: []byte("mp3")})

			w := postJSON(t, handler.Synthesize, "/voice/synthesize", map[string]any{"text": tt.text})

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusBadRequest {
				assert.Contains(t, errorMessage(t, w), "Text must be between 1 and 4096 characters")
			}
		})
	}
}

func TestSynthesizeProviderNotConfigured(t *testing.T) {
	speech := &fakeSpeech{err: &providers.ProviderNotConfiguredError{Provider: "openai"}}
	handler := NewVoiceHandler(zap.NewNop(), speech)

	w := postJSON(t, handler.Synthesize, "/voice/synthesize", map[string]any{"text": "hello"})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorMessage(t, w), "Provider 'openai' not configured")
}
