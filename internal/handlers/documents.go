package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/jijnasa-ai/jijnasa/internal/models"
	"github.com/jijnasa-ai/jijnasa/internal/services/rag"
)

const maxUploadMemory = 32 << 20

// DocumentIngester stores uploaded files and lists what has been
// stored. The RAG engine satisfies this.
type DocumentIngester interface {
	Ingest(ctx context.Context, filename string, content []byte, conversationID string) (*rag.IngestResult, error)
	Documents(ctx context.Context, conversationID string) ([]models.Document, error)
}

type DocumentsHandler struct {
	logger   *zap.Logger
	ingester DocumentIngester
}

func NewDocumentsHandler(logger *zap.Logger, ingester DocumentIngester) *DocumentsHandler {
	return &DocumentsHandler{logger: logger, ingester: ingester}
}

type DocumentListResponse struct {
	Documents []models.Document `json:"documents"`
}

// Upload ingests a document for retrieval
// @Summary Upload a document
// @Description Chunks and embeds a text file so chat turns with use_rag can cite it. Pass conversation_id to scope the document to one conversation.
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Document file (.txt or .md)"
// @Param conversation_id formData string false "Scope to one conversation"
// @Success 200 {object} rag.IngestResult
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /documents/upload [post]
func (h *DocumentsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		sendError(h.logger, w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		sendError(h.logger, w, http.StatusBadRequest, "Document file is required")
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			h.logger.Warn("Failed to close uploaded file", zap.Error(err))
		}
	}()

	if header.Filename == "" {
		sendError(h.logger, w, http.StatusBadRequest, "No filename provided")
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("Failed to read uploaded file", zap.Error(err))
		sendError(h.logger, w, http.StatusInternalServerError, "Failed to read uploaded file")
		return
	}

	result, err := h.ingester.Ingest(r.Context(), header.Filename, content, r.FormValue("conversation_id"))
	if err != nil {
		var unsupported *rag.UnsupportedFileError
		if errors.As(err, &unsupported) || errors.Is(err, rag.ErrNoContent) {
			sendError(h.logger, w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Failed to ingest document", zap.String("filename", header.Filename), zap.Error(err))
		sendError(h.logger, w, http.StatusInternalServerError, "Failed to ingest document")
		return
	}

	h.logger.Info("Document ingested",
		zap.String("document_id", result.ID),
		zap.String("filename", result.Filename),
		zap.Int("chunks", result.ChunkCount))
	sendJSON(h.logger, w, http.StatusOK, result)
}

// List returns stored documents
// @Summary List documents
// @Description Returns stored documents, newest first. Pass conversation_id to scope to one conversation.
// @Tags Documents
// @Produce json
// @Param conversation_id query string false "Scope to one conversation"
// @Success 200 {object} DocumentListResponse
// @Failure 500 {object} ErrorResponse
// @Router /documents [get]
func (h *DocumentsHandler) List(w http.ResponseWriter, r *http.Request) {
	documents, err := h.ingester.Documents(r.Context(), r.URL.Query().Get("conversation_id"))
	if err != nil {
		h.logger.Error("Failed to list documents", zap.Error(err))
		sendError(h.logger, w, http.StatusInternalServerError, "Failed to list documents")
		return
	}
	sendJSON(h.logger, w, http.StatusOK, DocumentListResponse{Documents: documents})
}
