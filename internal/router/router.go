package router

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jijnasa-ai/jijnasa/internal/config"
	"github.com/jijnasa-ai/jijnasa/internal/handlers"
	"github.com/jijnasa-ai/jijnasa/internal/middleware"
	"github.com/jijnasa-ai/jijnasa/internal/services/analytics"
	"github.com/jijnasa-ai/jijnasa/internal/services/chat"
	"github.com/jijnasa-ai/jijnasa/internal/services/comparison"
	"github.com/jijnasa-ai/jijnasa/internal/services/conversations"
	"github.com/jijnasa-ai/jijnasa/internal/services/costs"
	"github.com/jijnasa-ai/jijnasa/internal/services/pricing"
	"github.com/jijnasa-ai/jijnasa/internal/services/providers"
	"github.com/jijnasa-ai/jijnasa/internal/services/rag"
	"github.com/jijnasa-ai/jijnasa/internal/services/suggestions"
	"github.com/jijnasa-ai/jijnasa/internal/services/voice"
)

// NewRouter wires every service and handler into the HTTP surface.
// The database handle may be nil while SQLite is still initializing;
// the health endpoint reports that instead of failing.
func NewRouter(cfg *config.Config, logger *zap.Logger, db *gorm.DB) http.Handler {
	r := chi.NewRouter()

	providerRouter := providers.NewRouter(context.Background(), cfg, logger)
	book := pricing.NewBook(cfg.Pricing)
	tracker := costs.NewTracker(db, logger)
	conversationService := conversations.NewService(db, logger)
	analyticsService := analytics.NewService(db, logger)
	ragEngine := rag.NewEngine(db, cfg, tracker, book, logger)
	orchestrator := chat.NewOrchestrator(cfg, conversationService, providerRouter, ragEngine, tracker, book, logger)
	comparisonService := comparison.NewService(cfg, providerRouter, analyticsService, logger)
	suggestionService := suggestions.NewService(conversationService, providerRouter, logger)
	voiceService := voice.NewService(cfg, tracker, book, logger)

	chatHandler := handlers.NewChatHandler(logger, cfg, orchestrator, comparisonService)
	conversationsHandler := handlers.NewConversationsHandler(logger, conversationService)
	costsHandler := handlers.NewCostsHandler(logger, tracker)
	documentsHandler := handlers.NewDocumentsHandler(logger, ragEngine)
	voiceHandler := handlers.NewVoiceHandler(logger, voiceService)
	suggestionsHandler := handlers.NewSuggestionsHandler(logger, suggestionService)
	analyticsHandler := handlers.NewAnalyticsHandler(logger, analyticsService)
	modelsHandler := handlers.NewModelsHandler(logger, cfg, providerRouter)
	healthHandler := handlers.NewHealthHandler(logger, db)

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics(logger))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	r.Get("/", healthHandler.Root)
	r.Get("/health", healthHandler.Health)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	r.Post("/chat/completions", chatHandler.ChatCompletions)
	r.Post("/chat/comparison", chatHandler.CompareModels)

	r.Route("/conversations", func(r chi.Router) {
		r.Get("/", conversationsHandler.List)
		r.Post("/", conversationsHandler.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", conversationsHandler.Get)
			r.Delete("/", conversationsHandler.Delete)
			r.Get("/messages", conversationsHandler.Messages)
			r.Put("/system-prompt", conversationsHandler.UpdateSystemPrompt)
		})
	})

	r.Get("/costs/summary", costsHandler.Summary)

	r.Get("/documents", documentsHandler.List)
	r.Post("/documents/upload", documentsHandler.Upload)

	r.Post("/voice/transcribe", voiceHandler.Transcribe)
	r.Post("/voice/synthesize", voiceHandler.Synthesize)

	r.Get("/suggestions", suggestionsHandler.Suggest)

	r.Post("/analytics/event", analyticsHandler.RecordEvent)
	r.Get("/analytics/summary", analyticsHandler.Summary)

	r.Get("/models", modelsHandler.ListModels)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		if _, err := w.Write([]byte(`{"error": {"message": "Not found", "type": "not_found_error"}}`)); err != nil {
			logger.Error("Failed to write 404 response", zap.Error(err))
		}
	})

	return r
}
