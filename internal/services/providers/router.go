package providers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jijnasa-ai/jijnasa/internal/config"
	"github.com/jijnasa-ai/jijnasa/internal/middleware"
)

// UnknownModelError reports a model id absent from the catalog.
type UnknownModelError struct {
	ModelID string
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("Unknown model: %s", e.ModelID)
}

// ProviderNotConfiguredError reports a cataloged model whose provider
// has no credential.
type ProviderNotConfiguredError struct {
	Provider string
}

func (e *ProviderNotConfiguredError) Error() string {
	return fmt.Sprintf("Provider '%s' not configured. Set the API key in .env for this provider.", e.Provider)
}

// Router resolves model ids to provider adapters. It is built once at
// startup: one adapter per provider with a configured credential, plus
// the model catalog for lookups.
type Router struct {
	adapters map[string]Adapter
	catalog  []config.ModelConfig
	byModel  map[string]config.ModelConfig
	logger   *zap.Logger
}

func NewRouter(ctx context.Context, cfg *config.Config, logger *zap.Logger) *Router {
	r := &Router{
		adapters: map[string]Adapter{},
		catalog:  cfg.Models.Available,
		byModel:  map[string]config.ModelConfig{},
		logger:   logger,
	}

	if key := cfg.ProviderKey("openai"); key != "" {
		r.adapters["openai"] = NewOpenAIAdapter(key, logger)
	}
	if key := cfg.ProviderKey("anthropic"); key != "" {
		r.adapters["anthropic"] = NewAnthropicAdapter(key, logger)
	}
	if key := cfg.ProviderKey("google"); key != "" {
		adapter, err := NewGeminiAdapter(ctx, key, logger)
		if err != nil {
			logger.Error("Failed to initialize Gemini adapter", zap.Error(err))
		} else {
			r.adapters["google"] = adapter
		}
	}
	if key := cfg.ProviderKey("perplexity"); key != "" {
		r.adapters["perplexity"] = NewPerplexityAdapter(key, logger)
	}

	for _, m := range cfg.Models.Available {
		r.byModel[m.ID] = m
	}

	logger.Info("Provider router initialized",
		zap.Int("providers", len(r.adapters)),
		zap.Int("models", len(r.catalog)))
	return r
}

// Route resolves a model id to its provider's adapter.
func (r *Router) Route(modelID string) (Adapter, error) {
	model, ok := r.byModel[modelID]
	if !ok {
		return nil, &UnknownModelError{ModelID: modelID}
	}
	adapter, ok := r.adapters[model.Provider]
	if !ok {
		return nil, &ProviderNotConfiguredError{Provider: model.Provider}
	}
	return adapter, nil
}

// StreamChat routes the request and starts the stream. The returned
// error covers routing only; upstream failures arrive on the channel.
func (r *Router) StreamChat(ctx context.Context, req *ChatRequest) (<-chan StreamEvent, error) {
	adapter, err := r.Route(req.Model)
	if err != nil {
		return nil, err
	}
	r.logger.Info("Routing chat request",
		zap.String("provider", adapter.ProviderName()),
		zap.String("model", req.Model))
	return r.instrument(ctx, adapter.StreamChat(ctx, req), req.Model, adapter.ProviderName()), nil
}

// instrument forwards adapter events while recording call metrics off the
// terminal event. A source that closes without one means the context was
// cancelled mid-stream.
func (r *Router) instrument(ctx context.Context, events <-chan StreamEvent, model, provider string) <-chan StreamEvent {
	out := make(chan StreamEvent, streamBuffer)
	start := time.Now()
	go func() {
		defer close(out)
		sawFinal := false
		defer func() {
			if !sawFinal {
				middleware.RecordLLMRequest(model, provider, time.Since(start).Seconds(), "cancelled")
			}
		}()
		for event := range events {
			if event.Final {
				sawFinal = true
				status := "success"
				if event.FinishReason == FinishError {
					status = "error"
				}
				middleware.RecordLLMRequest(model, provider, time.Since(start).Seconds(), status)
				if event.InputTokens > 0 || event.OutputTokens > 0 {
					middleware.RecordLLMTokens(model, provider, event.InputTokens, event.OutputTokens)
				}
			}
			select {
			case out <- event:
			case <-ctx.Done():
				// The adapter stops on the same context; drain so its
				// goroutine can close the source.
				for range events {
				}
				return
			}
		}
	}()
	return out
}

// ProviderName reports the catalog provider for a model id, or
// "unknown" for models outside the catalog.
func (r *Router) ProviderName(modelID string) string {
	if m, ok := r.byModel[modelID]; ok {
		return m.Provider
	}
	return "unknown"
}

// AvailableModels returns catalog entries whose provider has a
// credential, preserving catalog order.
func (r *Router) AvailableModels() []config.ModelConfig {
	available := make([]config.ModelConfig, 0, len(r.catalog))
	for _, m := range r.catalog {
		if _, ok := r.adapters[m.Provider]; ok {
			available = append(available, m)
		}
	}
	return available
}
