package rag

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"gorm.io/gorm"

	"github.com/jijnasa-ai/jijnasa/internal/models"
)

// VectorStore persists embedded chunks in the document_chunks table and
// answers nearest-neighbour queries by scoring candidates in process.
// Per-user document sets stay small enough that a linear scan is faster
// than keeping an external index in sync.
type VectorStore struct {
	db *gorm.DB
}

func NewVectorStore(db *gorm.DB) *VectorStore {
	return &VectorStore{db: db}
}

// Match is one scored search hit.
type Match struct {
	Chunk      models.DocumentChunk
	Similarity float64
}

// Add persists a batch of chunks.
func (v *VectorStore) Add(ctx context.Context, chunks []models.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := v.db.WithContext(ctx).Create(&chunks).Error; err != nil {
		return fmt.Errorf("failed to store document chunks: %w", err)
	}
	return nil
}

// Search returns the k most similar chunks to the query vector, highest
// similarity first. A non-empty conversationID restricts candidates to
// chunks scoped to that conversation.
func (v *VectorStore) Search(ctx context.Context, query []float32, k int, conversationID string) ([]Match, error) {
	var chunks []models.DocumentChunk
	q := v.db.WithContext(ctx)
	if conversationID != "" {
		q = q.Where("conversation_id = ?", conversationID)
	}
	if err := q.Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("failed to load document chunks: %w", err)
	}

	matches := make([]Match, 0, len(chunks))
	for _, chunk := range chunks {
		matches = append(matches, Match{
			Chunk:      chunk,
			Similarity: cosineSimilarity(query, unpackEmbedding(chunk.Embedding)),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// ChunkCount reports the number of stored chunks.
func (v *VectorStore) ChunkCount(ctx context.Context) (int64, error) {
	var count int64
	if err := v.db.WithContext(ctx).Model(&models.DocumentChunk{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count document chunks: %w", err)
	}
	return count, nil
}

// packEmbedding serialises a vector as little-endian float32 values.
func packEmbedding(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func unpackEmbedding(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}

// cosineSimilarity is 1 for identical directions, 0 for orthogonal or
// degenerate inputs.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
