package providers

import (
	"context"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

// anthropicDefaultMaxTokens applies when the request does not carry a
// limit. The Anthropic API requires max_tokens on every call.
const anthropicDefaultMaxTokens = 8192

// AnthropicAdapter streams chat completions from the Anthropic
// Messages API.
type AnthropicAdapter struct {
	client sdk.Client
	logger *zap.Logger
}

func NewAnthropicAdapter(apiKey string, logger *zap.Logger, opts ...option.RequestOption) *AnthropicAdapter {
	reqOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &AnthropicAdapter{
		client: sdk.NewClient(reqOpts...),
		logger: logger,
	}
}

func (a *AnthropicAdapter) ProviderName() string {
	return "anthropic"
}

func (a *AnthropicAdapter) StreamChat(ctx context.Context, req *ChatRequest) <-chan StreamEvent {
	events := make(chan StreamEvent, streamBuffer)
	go func() {
		defer close(events)
		a.stream(ctx, req, events)
	}()
	return events
}

func (a *AnthropicAdapter) stream(ctx context.Context, req *ChatRequest, events chan<- StreamEvent) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	system, chatMessages := splitSystemMessages(req.Messages)
	params := sdk.MessageNewParams{
		Model:       sdk.Model(req.Model),
		MaxTokens:   int64(maxTokens),
		Temperature: sdk.Float(req.Temperature),
		Messages:    chatMessages,
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}

	stream := a.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	var inputTokens, outputTokens int
	finishReason := FinishStop

	for stream.Next() {
		switch ev := stream.Current().AsAny().(type) {
		case sdk.MessageStartEvent:
			inputTokens = int(ev.Message.Usage.InputTokens)
			outputTokens = int(ev.Message.Usage.OutputTokens)
		case sdk.ContentBlockDeltaEvent:
			if delta, ok := ev.Delta.AsAny().(sdk.TextDelta); ok && delta.Text != "" {
				if !send(ctx, events, StreamEvent{Text: delta.Text}) {
					return
				}
			}
		case sdk.MessageDeltaEvent:
			// The final delta carries authoritative usage totals.
			if ev.Usage.InputTokens > 0 {
				inputTokens = int(ev.Usage.InputTokens)
			}
			if ev.Usage.OutputTokens > 0 {
				outputTokens = int(ev.Usage.OutputTokens)
			}
			if ev.Delta.StopReason != "" {
				finishReason = normalizeStopReason(string(ev.Delta.StopReason))
			}
		}
	}

	if err := stream.Err(); err != nil {
		if ctx.Err() != nil {
			return
		}
		a.logger.Error("Anthropic stream failed",
			zap.String("model", req.Model),
			zap.Error(err))
		sendFailure(ctx, events, fmt.Sprintf("Error from Anthropic: %v", err))
		return
	}

	sendFinal(ctx, events, StreamEvent{
		Final:        true,
		FinishReason: finishReason,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
	})
}

// splitSystemMessages extracts system content into a single prompt,
// since the Messages API takes it separately from the transcript.
// Multiple system messages are joined with newlines.
func splitSystemMessages(messages []Message) (string, []sdk.MessageParam) {
	var systemParts []string
	chat := make([]sdk.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			systemParts = append(systemParts, m.Content)
		case RoleAssistant:
			chat = append(chat, sdk.NewAssistantMessage(sdk.NewTextBlock(m.Content)))
		default:
			chat = append(chat, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		}
	}
	return strings.TrimSpace(strings.Join(systemParts, "\n")), chat
}

func normalizeStopReason(reason string) string {
	switch reason {
	case string(sdk.StopReasonEndTurn):
		return FinishStop
	case string(sdk.StopReasonMaxTokens):
		return FinishLength
	default:
		return reason
	}
}
