package providers

import (
	"context"
	"fmt"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
	"go.uber.org/zap"
)

// OpenAIAdapter streams chat completions from the OpenAI API.
type OpenAIAdapter struct {
	client oai.Client
	logger *zap.Logger
}

func NewOpenAIAdapter(apiKey string, logger *zap.Logger, opts ...option.RequestOption) *OpenAIAdapter {
	reqOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAIAdapter{
		client: oai.NewClient(reqOpts...),
		logger: logger,
	}
}

func (a *OpenAIAdapter) ProviderName() string {
	return "openai"
}

func (a *OpenAIAdapter) StreamChat(ctx context.Context, req *ChatRequest) <-chan StreamEvent {
	events := make(chan StreamEvent, streamBuffer)
	go func() {
		defer close(events)
		a.stream(ctx, req, events)
	}()
	return events
}

func (a *OpenAIAdapter) stream(ctx context.Context, req *ChatRequest, events chan<- StreamEvent) {
	params := oai.ChatCompletionNewParams{
		Model:       shared.ChatModel(req.Model),
		Messages:    toOpenAIMessages(req.Messages),
		Temperature: param.NewOpt(req.Temperature),
		StreamOptions: oai.ChatCompletionStreamOptionsParam{
			IncludeUsage: oai.Bool(true),
		},
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(req.MaxTokens))
	}

	stream := a.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	var inputTokens, outputTokens int
	finishReason := FinishStop

	for stream.Next() {
		chunk := stream.Current()

		// The usage chunk arrives last with an empty choice list.
		if len(chunk.Choices) == 0 {
			if chunk.JSON.Usage.Valid() && chunk.JSON.Usage.Raw() != "null" {
				inputTokens = int(chunk.Usage.PromptTokens)
				outputTokens = int(chunk.Usage.CompletionTokens)
			}
			continue
		}

		choice := chunk.Choices[0]
		if choice.Delta.Content != "" {
			if !send(ctx, events, StreamEvent{Text: choice.Delta.Content}) {
				return
			}
		}
		if choice.FinishReason != "" {
			finishReason = choice.FinishReason
		}
	}

	if err := stream.Err(); err != nil {
		if ctx.Err() != nil {
			return
		}
		a.logger.Error("OpenAI stream failed",
			zap.String("model", req.Model),
			zap.Error(err))
		sendFailure(ctx, events, fmt.Sprintf("Error from OpenAI: %v", err))
		return
	}

	sendFinal(ctx, events, StreamEvent{
		Final:        true,
		FinishReason: finishReason,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
	})
}

// toOpenAIMessages converts the normalized transcript to SDK params.
// Unknown roles are sent as user messages rather than dropped.
func toOpenAIMessages(messages []Message) []oai.ChatCompletionMessageParamUnion {
	out := make([]oai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, oai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, oai.AssistantMessage(m.Content))
		default:
			out = append(out, oai.UserMessage(m.Content))
		}
	}
	return out
}
