package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
	"go.uber.org/zap"
)

const (
	perplexityBaseURL = "https://api.perplexity.ai"

	// Perplexity runs a web search before answering, so allow
	// generous time before giving up.
	perplexityTimeout = 60 * time.Second
)

// PerplexityAdapter calls the Perplexity Sonar models through their
// OpenAI-compatible API.
//
// It deliberately uses the non-streaming mode: Perplexity's streaming
// responses deviate from the OpenAI spec (deltas are often empty while
// the text lands in message.content, and citations only reliably
// appear in non-streaming responses). The full answer is re-emitted as
// a single text event.
type PerplexityAdapter struct {
	client oai.Client
	logger *zap.Logger
}

func NewPerplexityAdapter(apiKey string, logger *zap.Logger, opts ...option.RequestOption) *PerplexityAdapter {
	reqOpts := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(perplexityBaseURL),
	}, opts...)
	return &PerplexityAdapter{
		client: oai.NewClient(reqOpts...),
		logger: logger,
	}
}

func (a *PerplexityAdapter) ProviderName() string {
	return "perplexity"
}

func (a *PerplexityAdapter) StreamChat(ctx context.Context, req *ChatRequest) <-chan StreamEvent {
	events := make(chan StreamEvent, streamBuffer)
	go func() {
		defer close(events)
		a.complete(ctx, req, events)
	}()
	return events
}

func (a *PerplexityAdapter) complete(ctx context.Context, req *ChatRequest, events chan<- StreamEvent) {
	callCtx, cancel := context.WithTimeout(ctx, perplexityTimeout)
	defer cancel()

	params := oai.ChatCompletionNewParams{
		Model:       shared.ChatModel(req.Model),
		Messages:    toOpenAIMessages(req.Messages),
		Temperature: param.NewOpt(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = param.NewOpt(int64(req.MaxTokens))
	}

	resp, err := a.client.Chat.Completions.New(callCtx, params)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() == context.DeadlineExceeded {
			a.logger.Error("Perplexity request timed out",
				zap.String("model", req.Model),
				zap.Duration("timeout", perplexityTimeout))
			sendFailure(ctx, events, "Request to Perplexity timed out. Please try again.")
			return
		}
		a.logger.Error("Perplexity request failed",
			zap.String("model", req.Model),
			zap.Error(err))
		sendFailure(ctx, events, fmt.Sprintf("Error from Perplexity: %v", err))
		return
	}

	var text string
	finishReason := FinishStop
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
		if resp.Choices[0].FinishReason != "" {
			finishReason = resp.Choices[0].FinishReason
		}
	}

	// An empty answer is replaced by a visible fallback and billed at
	// zero, with no citations attached.
	if text == "" {
		a.logger.Warn("Perplexity returned empty text",
			zap.String("model", req.Model),
			zap.Int("choices", len(resp.Choices)))
		if !send(ctx, events, StreamEvent{Text: "No response received from Perplexity. Please try again."}) {
			return
		}
		sendFinal(ctx, events, StreamEvent{Final: true, FinishReason: finishReason})
		return
	}

	if !send(ctx, events, StreamEvent{Text: text}) {
		return
	}
	sendFinal(ctx, events, StreamEvent{
		Final:        true,
		FinishReason: finishReason,
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
		Citations:    parsePerplexityCitations(resp),
	})
}

// parsePerplexityCitations reads the non-standard top-level citations
// field. Entries are either bare URL strings, which get a synthetic
// "Source N" title from their position, or {url, title} objects.
func parsePerplexityCitations(resp *oai.ChatCompletion) []Citation {
	field := resp.JSON.ExtraFields["citations"]
	if !field.Valid() {
		return nil
	}

	var items []any
	if err := json.Unmarshal([]byte(field.Raw()), &items); err != nil {
		return nil
	}

	set := newCitationSet()
	for i, item := range items {
		switch v := item.(type) {
		case string:
			set.add(Citation{
				URL:    v,
				Title:  fmt.Sprintf("Source %d", i+1),
				Source: SourcePerplexity,
			})
		case map[string]any:
			url, _ := v["url"].(string)
			title, ok := v["title"].(string)
			if !ok {
				title = fmt.Sprintf("Source %d", i+1)
			}
			set.add(Citation{
				URL:    url,
				Title:  title,
				Source: SourcePerplexity,
			})
		}
	}
	return set.list()
}
