// Package comparison fans one prompt out to several models at once so
// their answers can be judged side by side. Slots run concurrently with
// independent lifetimes; nothing is written to the conversation store
// or the cost ledger.
package comparison

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jijnasa-ai/jijnasa/internal/config"
	"github.com/jijnasa-ai/jijnasa/internal/services/chat"
	"github.com/jijnasa-ai/jijnasa/internal/services/providers"
)

// EventSink receives the slot-tagged client events.
type EventSink interface {
	Send(event string, data any) error
}

// ModelStreamer resolves a model id and streams its completion.
type ModelStreamer interface {
	StreamChat(ctx context.Context, req *providers.ChatRequest) (<-chan providers.StreamEvent, error)
}

// EventRecorder books product telemetry. A nil recorder disables it.
type EventRecorder interface {
	RecordEvent(ctx context.Context, eventType string, data map[string]any) error
}

// SlotToken is one text delta from one slot.
type SlotToken struct {
	Slot    int    `json:"slot"`
	ModelID string `json:"model_id"`
	Text    string `json:"text"`
}

// SlotWebSources carries one slot's deduplicated citations.
type SlotWebSources struct {
	Slot    int                  `json:"slot"`
	ModelID string               `json:"model_id"`
	Sources []providers.Citation `json:"sources"`
}

// SlotUsage reports one slot's final token counts. Comparison runs are
// not billed, so there is no cost field.
type SlotUsage struct {
	Slot         int    `json:"slot"`
	ModelID      string `json:"model_id"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// SlotError reports one slot's failure. The peers keep streaming.
type SlotError struct {
	Slot    int    `json:"slot"`
	ModelID string `json:"model_id"`
	Error   string `json:"error"`
}

type DoneEvent struct {
	Status string `json:"status"`
}

type Service struct {
	cfg      *config.Config
	streamer ModelStreamer
	recorder EventRecorder
	logger   *zap.Logger
}

func NewService(cfg *config.Config, streamer ModelStreamer, recorder EventRecorder, logger *zap.Logger) *Service {
	return &Service{cfg: cfg, streamer: streamer, recorder: recorder, logger: logger}
}

// Run streams every slot concurrently over sink and returns once all
// slots have terminated, after a single trailing done event. Events
// from one slot keep their order; slots interleave freely. The sink
// must tolerate concurrent Send calls.
func (s *Service) Run(ctx context.Context, prompt string, modelIDs []string, temperature float64, sink EventSink) {
	var g errgroup.Group
	for slot, modelID := range modelIDs {
		g.Go(func() error {
			s.runSlot(ctx, slot, modelID, prompt, temperature, sink)
			return nil
		})
	}
	_ = g.Wait()

	_ = sink.Send("done", DoneEvent{Status: "complete"})

	if s.recorder != nil {
		recordCtx := context.WithoutCancel(ctx)
		if err := s.recorder.RecordEvent(recordCtx, "comparison_mode", map[string]any{"models": modelIDs}); err != nil {
			s.logger.Warn("Failed to record comparison event", zap.Error(err))
		}
	}
}

// runSlot drives one model from request to terminal event. A failure,
// whether from routing or upstream, ends the slot with an error event
// in place of usage.
func (s *Service) runSlot(ctx context.Context, slot int, modelID, prompt string, temperature float64, sink EventSink) {
	events, err := s.streamer.StreamChat(ctx, &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: chat.DefaultSystemPrompt},
			{Role: providers.RoleUser, Content: prompt},
		},
		Model:       modelID,
		Temperature: temperature,
		MaxTokens:   s.cfg.MaxTokensFor(modelID),
	})
	if err != nil {
		_ = sink.Send("error", SlotError{Slot: slot, ModelID: modelID, Error: err.Error()})
		return
	}

	var text strings.Builder
	var citations []providers.Citation
	inputTokens, outputTokens := 0, 0
	failed := false
	for ev := range events {
		if ev.Text != "" {
			text.WriteString(ev.Text)
			_ = sink.Send("token", SlotToken{Slot: slot, ModelID: modelID, Text: ev.Text})
		}
		if len(ev.Citations) > 0 {
			citations = append(citations, ev.Citations...)
		}
		if ev.Final {
			inputTokens = ev.InputTokens
			outputTokens = ev.OutputTokens
			failed = ev.FinishReason == providers.FinishError
		}
	}

	if failed {
		// The stream's text is the adapter's own error sentence.
		message := strings.TrimSpace(text.String())
		if message == "" {
			message = "stream ended with an error"
		}
		_ = sink.Send("error", SlotError{Slot: slot, ModelID: modelID, Error: message})
		return
	}

	if sources := providers.DedupeCitations(citations); len(sources) > 0 {
		_ = sink.Send("web_sources", SlotWebSources{Slot: slot, ModelID: modelID, Sources: sources})
	}
	_ = sink.Send("usage", SlotUsage{
		Slot:         slot,
		ModelID:      modelID,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
	})
}
