// Package providers adapts the upstream LLM APIs (OpenAI, Anthropic,
// Google Gemini, Perplexity) to one normalized streaming contract.
//
// Adapters never return errors. Upstream failures surface inside the
// stream as a human-readable text event followed by a terminal event
// with FinishReason "error", so consumers handle every outcome through
// the same channel.
package providers

import "context"

// Roles accepted in a chat transcript.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Normalized finish reasons. Provider-specific reasons outside this set
// are passed through verbatim.
const (
	FinishStop   = "stop"
	FinishLength = "length"
	FinishError  = "error"
)

// Citation sources for web-grounded answers.
const (
	SourcePerplexity   = "perplexity"
	SourceGoogleSearch = "google_search"
)

// streamBuffer sizes every adapter's event channel so producers rarely
// block on slow consumers.
const streamBuffer = 100

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the provider-independent completion request.
type ChatRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// Citation points at a web source consulted by a search-grounded model.
type Citation struct {
	URL    string `json:"url"`
	Title  string `json:"title"`
	Source string `json:"source"`
}

// StreamEvent is one normalized event from a provider stream. Exactly
// one event per invocation has Final set; it carries the accumulated
// usage and citations. Events before it carry text deltas.
type StreamEvent struct {
	Text         string
	FinishReason string
	Final        bool
	InputTokens  int
	OutputTokens int
	Citations    []Citation
}

// Adapter streams chat completions from one upstream provider.
//
// StreamChat returns immediately; events arrive on the channel, which
// is closed after the final event. When ctx is cancelled mid-stream the
// adapter stops without a final event, since the consumer initiated the
// shutdown.
type Adapter interface {
	ProviderName() string
	StreamChat(ctx context.Context, req *ChatRequest) <-chan StreamEvent
}

// send delivers ev unless ctx is done first. A false return means the
// consumer is gone and the producer should stop.
func send(ctx context.Context, ch chan<- StreamEvent, ev StreamEvent) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// sendFinal emits the terminal event unless the consumer has already
// gone away, in which case there is nothing left to finalize.
func sendFinal(ctx context.Context, ch chan<- StreamEvent, ev StreamEvent) {
	if ctx.Err() != nil {
		return
	}
	send(ctx, ch, ev)
}

// sendFailure emits the visible error text followed by the terminal
// event. Usage stays zero because nothing was billed reliably.
func sendFailure(ctx context.Context, ch chan<- StreamEvent, text string, citations ...Citation) {
	if !send(ctx, ch, StreamEvent{Text: text}) {
		return
	}
	sendFinal(ctx, ch, StreamEvent{
		Final:        true,
		FinishReason: FinishError,
		Citations:    citations,
	})
}

// citationSet accumulates citations deduplicated by URL, preserving
// first-seen order. Citations without a URL are dropped.
type citationSet struct {
	seen  map[string]struct{}
	items []Citation
}

func newCitationSet() *citationSet {
	return &citationSet{seen: map[string]struct{}{}}
}

func (s *citationSet) add(c Citation) {
	if c.URL == "" {
		return
	}
	if _, ok := s.seen[c.URL]; ok {
		return
	}
	s.seen[c.URL] = struct{}{}
	s.items = append(s.items, c)
}

func (s *citationSet) list() []Citation {
	if len(s.items) == 0 {
		return nil
	}
	out := make([]Citation, len(s.items))
	copy(out, s.items)
	return out
}

// DedupeCitations collapses a stream's citations to one per URL,
// preserving first-seen order.
func DedupeCitations(citations []Citation) []Citation {
	set := newCitationSet()
	for _, c := range citations {
		set.add(c)
	}
	return set.list()
}
