package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jijnasa-ai/jijnasa/internal/models"
	"github.com/jijnasa-ai/jijnasa/internal/services/rag"
)

type fakeIngester struct {
	filename       string
	content        []byte
	conversationID string
	result         *rag.IngestResult
	err            error
	documents      []models.Document
}

func (f *fakeIngester) Ingest(ctx context.Context, filename string, content []byte, conversationID string) (*rag.IngestResult, error) {
	f.filename = filename
	f.content = content
	f.conversationID = conversationID
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeIngester) Documents(ctx context.Context, conversationID string) ([]models.Document, error) {
	f.conversationID = conversationID
	return f.documents, nil
}

func uploadRequest(t *testing.T, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if filename != "" || content != nil {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/documents/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestUploadDocument(t *testing.T) {
	ingester := &fakeIngester{result: &rag.IngestResult{
		ID:         "doc-1",
		Filename:   "notes.txt",
		ChunkCount: 3,
		FileSize:   42,
	}}
	handler := NewDocumentsHandler(zap.NewNop(), ingester)

	req := uploadRequest(t, "notes.txt", []byte("some notes"), map[string]string{"conversation_id": "conv-1"})
	w := httptest.NewRecorder()
	handler.Upload(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "notes.txt", ingester.filename)
	assert.Equal(t, []byte("some notes"), ingester.content)
	assert.Equal(t, "conv-1", ingester.conversationID)

	var result rag.IngestResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "doc-1", result.ID)
	assert.Equal(t, 3, result.ChunkCount)
}

func TestUploadDocumentMissingFile(t *testing.T) {
	handler := NewDocumentsHandler(zap.NewNop(), &fakeIngester{})

	req := uploadRequest(t, "", nil, map[string]string{"conversation_id": "conv-1"})
	w := httptest.NewRecorder()
	handler.Upload(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorMessage(t, w), "Document file is required")
}

func TestUploadDocumentRejections(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		errorMessage string
	}{
		{
			name:         "Unsupported file type",
			err:          &rag.UnsupportedFileError{Extension: ".pdf"},
			errorMessage: "Unsupported file type: .pdf",
		},
		{
			name:         "No usable text",
			err:          rag.ErrNoContent,
			errorMessage: "No text content found in file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewDocumentsHandler(zap.NewNop(), &fakeIngester{err: tt.err})

			req := uploadRequest(t, "report.pdf", []byte("%PDF"), nil)
			w := httptest.NewRecorder()
			handler.Upload(w, req)

			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, errorMessage(t, w), tt.errorMessage)
		})
	}
}

func TestListDocuments(t *testing.T) {
	ingester := &fakeIngester{documents: []models.Document{
		{ID: "doc-1", Filename: "notes.txt", FileType: ".txt", ChunkCount: 3},
	}}
	handler := NewDocumentsHandler(zap.NewNop(), ingester)

	req := httptest.NewRequest(http.MethodGet, "/documents?conversation_id=conv-9", nil)
	w := httptest.NewRecorder()
	handler.List(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "conv-9", ingester.conversationID)

	var response DocumentListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Documents, 1)
	assert.Equal(t, "notes.txt", response.Documents[0].Filename)
}
