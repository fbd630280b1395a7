// Package rag implements document ingestion and retrieval: decode,
// chunk, embed, persist, and cosine-similarity search used to ground
// chat turns in uploaded documents.
package rag

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jijnasa-ai/jijnasa/internal/config"
	"github.com/jijnasa-ai/jijnasa/internal/models"
	"github.com/jijnasa-ai/jijnasa/internal/services/costs"
	"github.com/jijnasa-ai/jijnasa/internal/services/pricing"
)

// Source describes one retrieved chunk surfaced to the client.
type Source struct {
	Filename       string  `json:"filename"`
	ChunkIndex     int     `json:"chunk_index"`
	ContentPreview string  `json:"content_preview"`
	Similarity     float64 `json:"similarity"`
}

// Retriever is the retrieval boundary the chat pipeline depends on.
type Retriever interface {
	Retrieve(ctx context.Context, query, conversationID string) (string, []Source, error)
}

// IngestResult summarises a completed ingestion.
type IngestResult struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
	FileSize   int64  `json:"file_size"`
}

// UnsupportedFileError rejects files the ingester cannot decode.
type UnsupportedFileError struct {
	Extension string
}

func (e *UnsupportedFileError) Error() string {
	return fmt.Sprintf("Unsupported file type: %s. Supported: .txt, .md", e.Extension)
}

// ErrNoContent is returned when a file yields no usable text.
var ErrNoContent = errors.New("No text content found in file")

var _ Retriever = (*Engine)(nil)

// Engine is the full ingestion and retrieval pipeline. One instance is
// shared process-wide.
type Engine struct {
	db       *gorm.DB
	store    *VectorStore
	embedder *Embedder
	chunker  Chunker

	tracker *costs.Tracker
	book    *pricing.Book

	embeddingModel string
	retrievalK     int
	threshold      float64

	logger *zap.Logger
}

func NewEngine(db *gorm.DB, cfg *config.Config, tracker *costs.Tracker, book *pricing.Book, logger *zap.Logger, opts ...option.RequestOption) *Engine {
	return &Engine{
		db:       db,
		store:    NewVectorStore(db),
		embedder: NewEmbedder(cfg.Providers.OpenAIAPIKey, cfg.Embedding.Model, opts...),
		chunker: Chunker{
			Size:    cfg.RAG.ChunkSize,
			Overlap: cfg.RAG.ChunkOverlap,
		},
		tracker:        tracker,
		book:           book,
		embeddingModel: cfg.Embedding.Model,
		retrievalK:     cfg.RAG.RetrievalK,
		threshold:      cfg.RAG.SimilarityThreshold,
		logger:         logger,
	}
}

// Ingest runs the full pipeline for one uploaded file: decode, chunk,
// embed, persist chunks and the documents row, and book the embedding
// cost. An empty conversationID makes the document globally retrievable.
func (e *Engine) Ingest(ctx context.Context, filename string, content []byte, conversationID string) (*IngestResult, error) {
	text, err := decodeText(filename, content)
	if err != nil {
		return nil, err
	}

	chunks := e.chunker.Split(text)
	if len(chunks) == 0 {
		return nil, ErrNoContent
	}

	vectors, tokens, err := e.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("failed to embed %s: %w", filename, err)
	}

	doc := &models.Document{
		Filename:   filename,
		FileType:   strings.ToLower(filepath.Ext(filename)),
		FileSize:   int64(len(content)),
		ChunkCount: len(chunks),
	}
	if conversationID != "" {
		doc.ConversationID = &conversationID
	}

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(doc).Error; err != nil {
			return err
		}
		rows := make([]models.DocumentChunk, len(chunks))
		for i, chunk := range chunks {
			rows[i] = models.DocumentChunk{
				ID:             fmt.Sprintf("%s_chunk_%d", doc.ID, i),
				DocumentID:     doc.ID,
				Filename:       filename,
				ChunkIndex:     i,
				ConversationID: conversationID,
				Content:        chunk,
				Embedding:      packEmbedding(vectors[i]),
			}
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist document %s: %w", filename, err)
	}

	entry := &models.CostEntry{
		ModelID:     e.embeddingModel,
		Operation:   models.OperationEmbedding,
		InputTokens: tokens,
		CostUSD:     e.book.EmbeddingCost(e.embeddingModel, tokens),
	}
	if conversationID != "" {
		entry.ConversationID = &conversationID
	}
	e.tracker.Record(ctx, entry)

	e.logger.Info("Ingested document",
		zap.String("document_id", doc.ID),
		zap.String("filename", filename),
		zap.Int("chunks", len(chunks)),
		zap.Int("embedding_tokens", tokens))

	return &IngestResult{
		ID:         doc.ID,
		Filename:   filename,
		ChunkCount: len(chunks),
		FileSize:   doc.FileSize,
	}, nil
}

// Retrieve embeds the query, searches conversation-scoped chunks first
// (falling back to the whole corpus when the scope is empty), filters by
// the similarity threshold, and assembles the context block plus source
// descriptors.
func (e *Engine) Retrieve(ctx context.Context, query, conversationID string) (string, []Source, error) {
	queryVec, err := e.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return "", nil, fmt.Errorf("failed to embed query: %w", err)
	}

	matches, err := e.store.Search(ctx, queryVec, e.retrievalK, conversationID)
	if err != nil {
		return "", nil, err
	}
	if len(matches) == 0 && conversationID != "" {
		matches, err = e.store.Search(ctx, queryVec, e.retrievalK, "")
		if err != nil {
			return "", nil, err
		}
	}

	var contextParts []string
	var sources []Source
	for _, match := range matches {
		if match.Similarity < e.threshold {
			continue
		}
		contextParts = append(contextParts, fmt.Sprintf("[Source: %s, Chunk %d]\n%s",
			match.Chunk.Filename, match.Chunk.ChunkIndex, match.Chunk.Content))

		preview := match.Chunk.Content
		if len(preview) > 200 {
			preview = preview[:200]
		}
		sources = append(sources, Source{
			Filename:       match.Chunk.Filename,
			ChunkIndex:     match.Chunk.ChunkIndex,
			ContentPreview: preview,
			Similarity:     math.Round(match.Similarity*1000) / 1000,
		})
	}

	return strings.Join(contextParts, "\n\n---\n\n"), sources, nil
}

// Documents lists ingested documents, newest first, optionally filtered
// to one conversation.
func (e *Engine) Documents(ctx context.Context, conversationID string) ([]models.Document, error) {
	docs := []models.Document{}
	q := e.db.WithContext(ctx).Order("uploaded_at DESC")
	if conversationID != "" {
		q = q.Where("conversation_id = ?", conversationID)
	}
	if err := q.Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

// DocumentCount reports the number of ingested documents, for health
// checks.
func (e *Engine) DocumentCount(ctx context.Context) (int64, error) {
	var count int64
	if err := e.db.WithContext(ctx).Model(&models.Document{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

func decodeText(filename string, content []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt", ".md":
		return string(content), nil
	default:
		return "", &UnsupportedFileError{Extension: ext}
	}
}
