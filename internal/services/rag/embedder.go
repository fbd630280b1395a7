package rag

import (
	"context"
	"fmt"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/jijnasa-ai/jijnasa/internal/services/retry"
)

// embedBatchSize keeps each embeddings request under the API's input
// limit.
const embedBatchSize = 100

// Embedder turns text into vectors through the OpenAI embeddings API.
// Transient API failures are retried per batch.
type Embedder struct {
	client oai.Client
	model  string
	policy *retry.Policy
}

func NewEmbedder(apiKey, model string, opts ...option.RequestOption) *Embedder {
	clientOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Embedder{
		client: oai.NewClient(clientOpts...),
		model:  model,
		policy: retry.DefaultPolicy(),
	}
}

// EmbedBatch embeds texts in API-sized batches. It returns one vector
// per input in input order, plus the billed prompt tokens summed across
// batches.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, int, error) {
	if len(texts) == 0 {
		return nil, 0, nil
	}

	vectors := make([][]float32, len(texts))
	tokens := 0
	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		var resp *oai.CreateEmbeddingResponse
		err := retry.Do(ctx, e.policy, func(ctx context.Context) error {
			var reqErr error
			resp, reqErr = e.client.Embeddings.New(ctx, oai.EmbeddingNewParams{
				Model: e.model,
				Input: oai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: batch},
			})
			return reqErr
		})
		if err != nil {
			return nil, 0, fmt.Errorf("embedding request failed: %w", err)
		}
		if len(resp.Data) != len(batch) {
			return nil, 0, fmt.Errorf("expected %d embeddings, got %d", len(batch), len(resp.Data))
		}
		for _, item := range resp.Data {
			idx := start + int(item.Index)
			if idx < 0 || idx >= len(vectors) {
				return nil, 0, fmt.Errorf("embedding response index %d out of range", item.Index)
			}
			vec := make([]float32, len(item.Embedding))
			for i, v := range item.Embedding {
				vec[i] = float32(v)
			}
			vectors[idx] = vec
		}
		tokens += int(resp.Usage.PromptTokens)
	}
	return vectors, tokens, nil
}

// EmbedQuery embeds a single query string.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, _, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
