package comparison

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jijnasa-ai/jijnasa/internal/config"
	"github.com/jijnasa-ai/jijnasa/internal/services/chat"
	"github.com/jijnasa-ai/jijnasa/internal/services/providers"
)

type sinkEvent struct {
	event string
	data  any
}

// concurrentSink records events from all slots; Run requires Send to be
// safe for concurrent use.
type concurrentSink struct {
	mu     sync.Mutex
	events []sinkEvent
}

func (s *concurrentSink) Send(event string, data any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, sinkEvent{event: event, data: data})
	return nil
}

func (s *concurrentSink) all() []sinkEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sinkEvent(nil), s.events...)
}

// slot filters the recorded events down to one slot, in arrival order.
func (s *concurrentSink) slot(n int) []sinkEvent {
	var out []sinkEvent
	for _, ev := range s.all() {
		var slot int
		switch data := ev.data.(type) {
		case SlotToken:
			slot = data.Slot
		case SlotWebSources:
			slot = data.Slot
		case SlotUsage:
			slot = data.Slot
		case SlotError:
			slot = data.Slot
		default:
			continue
		}
		if slot == n {
			out = append(out, ev)
		}
	}
	return out
}

func names(events []sinkEvent) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.event
	}
	return out
}

type fakeStreamer struct {
	mu       sync.Mutex
	requests []*providers.ChatRequest
	respond  map[string][]providers.StreamEvent
	errs     map[string]error
}

func (f *fakeStreamer) StreamChat(ctx context.Context, req *providers.ChatRequest) (<-chan providers.StreamEvent, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if err := f.errs[req.Model]; err != nil {
		return nil, err
	}
	ch := make(chan providers.StreamEvent, 16)
	go func() {
		defer close(ch)
		for _, ev := range f.respond[req.Model] {
			ch <- ev
		}
	}()
	return ch, nil
}

func (f *fakeStreamer) request(modelID string) *providers.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, req := range f.requests {
		if req.Model == modelID {
			return req
		}
	}
	return nil
}

type recordedEvent struct {
	eventType string
	data      map[string]any
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *fakeRecorder) RecordEvent(ctx context.Context, eventType string, data map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{eventType: eventType, data: data})
	return nil
}

func newTestService(streamer ModelStreamer, recorder EventRecorder) *Service {
	cfg := &config.Config{}
	cfg.Models.Available = config.DefaultCatalog()
	return NewService(cfg, streamer, recorder, zap.NewNop())
}

func okStream(texts []string, in, out int) []providers.StreamEvent {
	events := make([]providers.StreamEvent, 0, len(texts)+1)
	for _, text := range texts {
		events = append(events, providers.StreamEvent{Text: text})
	}
	return append(events, providers.StreamEvent{
		Final:        true,
		FinishReason: providers.FinishStop,
		InputTokens:  in,
		OutputTokens: out,
	})
}

func TestRunStreamsEverySlot(t *testing.T) {
	streamer := &fakeStreamer{respond: map[string][]providers.StreamEvent{
		"gpt-4o":                     okStream([]string{"left ", "answer"}, 12, 7),
		"claude-sonnet-4-5-20250929": okStream([]string{"right answer"}, 15, 4),
	}}
	svc := newTestService(streamer, nil)
	sink := &concurrentSink{}

	svc.Run(context.Background(), "Which is better?", []string{"gpt-4o", "claude-sonnet-4-5-20250929"}, 0.7, sink)

	// Each slot keeps its own order even though the slots interleave.
	left := sink.slot(0)
	require.Equal(t, []string{"token", "token", "usage"}, names(left))
	assert.Equal(t, SlotToken{Slot: 0, ModelID: "gpt-4o", Text: "left "}, left[0].data)
	assert.Equal(t, SlotUsage{Slot: 0, ModelID: "gpt-4o", InputTokens: 12, OutputTokens: 7}, left[2].data)

	right := sink.slot(1)
	require.Equal(t, []string{"token", "usage"}, names(right))
	assert.Equal(t, SlotToken{Slot: 1, ModelID: "claude-sonnet-4-5-20250929", Text: "right answer"}, right[0].data)
	assert.Equal(t, SlotUsage{Slot: 1, ModelID: "claude-sonnet-4-5-20250929", InputTokens: 15, OutputTokens: 4}, right[1].data)

	// One done event, strictly after everything else.
	all := sink.all()
	assert.Equal(t, "done", all[len(all)-1].event)
	assert.Equal(t, DoneEvent{Status: "complete"}, all[len(all)-1].data)
	doneCount := 0
	for _, ev := range all {
		if ev.event == "done" {
			doneCount++
		}
	}
	assert.Equal(t, 1, doneCount)

	// Slots share the default system prompt and get their own token cap.
	gptReq := streamer.request("gpt-4o")
	require.NotNil(t, gptReq)
	require.Len(t, gptReq.Messages, 2)
	assert.Equal(t, chat.DefaultSystemPrompt, gptReq.Messages[0].Content)
	assert.Equal(t, "Which is better?", gptReq.Messages[1].Content)
	assert.InDelta(t, 0.7, gptReq.Temperature, 1e-9)
	assert.Equal(t, 16384, gptReq.MaxTokens)

	claudeReq := streamer.request("claude-sonnet-4-5-20250929")
	require.NotNil(t, claudeReq)
	assert.Equal(t, 8192, claudeReq.MaxTokens)
}

func TestRunIsolatesRoutingFailure(t *testing.T) {
	streamer := &fakeStreamer{
		respond: map[string][]providers.StreamEvent{
			"gpt-4o": okStream([]string{"still here"}, 5, 3),
		},
		errs: map[string]error{
			"claude-sonnet-4-5-20250929": &providers.ProviderNotConfiguredError{Provider: "anthropic"},
		},
	}
	svc := newTestService(streamer, nil)
	sink := &concurrentSink{}

	svc.Run(context.Background(), "hello", []string{"gpt-4o", "claude-sonnet-4-5-20250929"}, 0.7, sink)

	healthy := sink.slot(0)
	require.Equal(t, []string{"token", "usage"}, names(healthy))

	failing := sink.slot(1)
	require.Equal(t, []string{"error"}, names(failing))
	slotErr := failing[0].data.(SlotError)
	assert.Equal(t, 1, slotErr.Slot)
	assert.Equal(t, "claude-sonnet-4-5-20250929", slotErr.ModelID)
	assert.Equal(t, "Provider 'anthropic' not configured. Set the API key in .env for this provider.", slotErr.Error)

	all := sink.all()
	assert.Equal(t, "done", all[len(all)-1].event)
}

func TestRunIsolatesUpstreamFailure(t *testing.T) {
	streamer := &fakeStreamer{respond: map[string][]providers.StreamEvent{
		"gpt-4o": okStream([]string{"fine"}, 5, 2),
		"sonar": {
			{Text: "Error from Perplexity: overloaded"},
			{Final: true, FinishReason: providers.FinishError},
		},
	}}
	svc := newTestService(streamer, nil)
	sink := &concurrentSink{}

	svc.Run(context.Background(), "hello", []string{"gpt-4o", "sonar"}, 0.7, sink)

	// The failing slot streams the adapter's fallback text, then closes
	// with an error instead of usage.
	failing := sink.slot(1)
	require.Equal(t, []string{"token", "error"}, names(failing))
	assert.Equal(t, "Error from Perplexity: overloaded", failing[1].data.(SlotError).Error)

	healthy := sink.slot(0)
	require.Equal(t, []string{"token", "usage"}, names(healthy))
}

func TestRunDedupesCitationsPerSlot(t *testing.T) {
	streamer := &fakeStreamer{respond: map[string][]providers.StreamEvent{
		"sonar": {
			{Text: "cited", Citations: []providers.Citation{
				{URL: "https://a.example", Title: "A", Source: providers.SourcePerplexity},
			}},
			{Final: true, FinishReason: providers.FinishStop, InputTokens: 9, OutputTokens: 3, Citations: []providers.Citation{
				{URL: "https://a.example", Title: "A again", Source: providers.SourcePerplexity},
				{URL: "https://b.example", Title: "B", Source: providers.SourcePerplexity},
			}},
		},
		"gpt-4o": okStream([]string{"plain"}, 4, 2),
	}}
	svc := newTestService(streamer, nil)
	sink := &concurrentSink{}

	svc.Run(context.Background(), "cite me", []string{"sonar", "gpt-4o"}, 0.7, sink)

	cited := sink.slot(0)
	require.Equal(t, []string{"token", "web_sources", "usage"}, names(cited))
	sources := cited[1].data.(SlotWebSources).Sources
	require.Len(t, sources, 2)
	assert.Equal(t, "https://a.example", sources[0].URL)
	assert.Equal(t, "A", sources[0].Title)
	assert.Equal(t, "https://b.example", sources[1].URL)

	// The slot without citations emits no web_sources.
	plain := sink.slot(1)
	assert.Equal(t, []string{"token", "usage"}, names(plain))
}

func TestRunRecordsComparisonEvent(t *testing.T) {
	streamer := &fakeStreamer{respond: map[string][]providers.StreamEvent{
		"gpt-4o":      okStream([]string{"a"}, 1, 1),
		"gpt-4o-mini": okStream([]string{"b"}, 1, 1),
	}}
	recorder := &fakeRecorder{}
	svc := newTestService(streamer, recorder)
	sink := &concurrentSink{}

	models := []string{"gpt-4o", "gpt-4o-mini"}
	svc.Run(context.Background(), "hello", models, 0.7, sink)

	require.Len(t, recorder.events, 1)
	assert.Equal(t, "comparison_mode", recorder.events[0].eventType)
	assert.Equal(t, map[string]any{"models": models}, recorder.events[0].data)
}

func TestRunThreeSlots(t *testing.T) {
	streamer := &fakeStreamer{respond: map[string][]providers.StreamEvent{
		"gpt-4o":           okStream([]string{"one"}, 1, 1),
		"gemini-2.0-flash": okStream([]string{"two"}, 2, 2),
		"sonar":            okStream([]string{"three"}, 3, 3),
	}}
	svc := newTestService(streamer, nil)
	sink := &concurrentSink{}

	svc.Run(context.Background(), "hello", []string{"gpt-4o", "gemini-2.0-flash", "sonar"}, 0.7, sink)

	for slot := 0; slot < 3; slot++ {
		assert.Equal(t, []string{"token", "usage"}, names(sink.slot(slot)), "slot %d", slot)
	}
	all := sink.all()
	assert.Len(t, all, 7)
	assert.Equal(t, "done", all[len(all)-1].event)
}
