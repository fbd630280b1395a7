package providers

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiAdapter streams chat completions from the Gemini API with the
// built-in Google Search tool enabled, so answers can carry web
// grounding citations.
type GeminiAdapter struct {
	client *genai.Client
	logger *zap.Logger
}

func NewGeminiAdapter(ctx context.Context, apiKey string, logger *zap.Logger) (*GeminiAdapter, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiAdapter{client: client, logger: logger}, nil
}

func (a *GeminiAdapter) ProviderName() string {
	return "google"
}

func (a *GeminiAdapter) StreamChat(ctx context.Context, req *ChatRequest) <-chan StreamEvent {
	events := make(chan StreamEvent, streamBuffer)
	go func() {
		defer close(events)
		a.stream(ctx, req, events)
	}()
	return events
}

func (a *GeminiAdapter) stream(ctx context.Context, req *ChatRequest, events chan<- StreamEvent) {
	system, contents := toGeminiContents(req.Messages)
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
		Tools:       []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	var inputTokens, outputTokens int
	citations := newCitationSet()
	finishReason := FinishStop

	for resp, err := range a.client.Models.GenerateContentStream(ctx, req.Model, contents, config) {
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			a.logger.Error("Gemini stream failed",
				zap.String("model", req.Model),
				zap.Error(err))
			sendFailure(ctx, events, fmt.Sprintf("Error from Gemini: %v", err), citations.list()...)
			return
		}

		// Usage metadata repeats across chunks; keep the last non-zero
		// counts since intermediate chunks may omit them.
		if resp.UsageMetadata != nil {
			if resp.UsageMetadata.PromptTokenCount > 0 {
				inputTokens = int(resp.UsageMetadata.PromptTokenCount)
			}
			if resp.UsageMetadata.CandidatesTokenCount > 0 {
				outputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
			}
		}

		if len(resp.Candidates) == 0 {
			continue
		}
		candidate := resp.Candidates[0]

		collectGroundingCitations(citations, candidate.GroundingMetadata)

		if candidate.FinishReason != "" {
			finishReason = normalizeGeminiFinishReason(candidate.FinishReason)
		}

		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Text == "" {
				continue
			}
			if !send(ctx, events, StreamEvent{Text: part.Text}) {
				return
			}
		}
	}

	sendFinal(ctx, events, StreamEvent{
		Final:        true,
		FinishReason: finishReason,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Citations:    citations.list(),
	})
}

// toGeminiContents converts the transcript to Gemini contents, mapping
// assistant to the "model" role and collapsing system messages into a
// single system instruction.
func toGeminiContents(messages []Message) (string, []*genai.Content) {
	var systemParts []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			systemParts = append(systemParts, m.Content)
		case RoleAssistant:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{{Text: m.Content}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: m.Content}},
			})
		}
	}
	return strings.Join(systemParts, "\n"), contents
}

func collectGroundingCitations(set *citationSet, metadata *genai.GroundingMetadata) {
	if metadata == nil {
		return
	}
	for _, chunk := range metadata.GroundingChunks {
		if chunk == nil || chunk.Web == nil {
			continue
		}
		set.add(Citation{
			URL:    chunk.Web.URI,
			Title:  chunk.Web.Title,
			Source: SourceGoogleSearch,
		})
	}
}

func normalizeGeminiFinishReason(reason genai.FinishReason) string {
	switch reason {
	case genai.FinishReasonStop:
		return FinishStop
	case genai.FinishReasonMaxTokens:
		return FinishLength
	default:
		return strings.ToLower(string(reason))
	}
}
