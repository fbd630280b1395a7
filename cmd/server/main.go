package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jijnasa-ai/jijnasa/internal/config"
	"github.com/jijnasa-ai/jijnasa/internal/database"
	"github.com/jijnasa-ai/jijnasa/internal/logger"
	"github.com/jijnasa-ai/jijnasa/internal/router"

	_ "github.com/jijnasa-ai/jijnasa/internal/handlers/swagger"
)

// @title JijnasaAI API
// @version 0.1.0
// @description Multi-model AI chat with RAG, voice & cost tracking

// @host localhost:8000
// @BasePath /

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.Initialize(cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	// The gateway runs without a database if SQLite cannot open: chat
	// endpoints fail per request and /health reports "starting" until
	// the path is fixed.
	var db *gorm.DB
	dbConfig := &database.Config{
		Path:         cfg.Database.Path,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		BusyTimeout:  cfg.Database.BusyTimeout,
	}
	if err := database.Initialize(dbConfig); err != nil {
		log.Warn("Failed to initialize database, continuing degraded", zap.Error(err))
	} else {
		db = database.GetDB()
		defer func() { _ = database.Close() }()
	}

	configured := configuredProviders(cfg)
	if len(configured) == 0 {
		log.Warn("No provider API keys configured; every chat request will fail until one is set")
	} else {
		log.Info("Providers configured", zap.Strings("providers", configured))
	}

	handler := router.NewRouter(cfg, log, db)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("Jijnasa gateway starting",
			zap.String("address", srv.Addr),
			zap.String("database", cfg.Database.Path),
			zap.String("default_model", cfg.Models.Default))

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server shutdown complete")
}

// configuredProviders lists the providers whose credentials are set,
// for the startup log only. Key values never leave the process.
func configuredProviders(cfg *config.Config) []string {
	var names []string
	for _, provider := range []string{"openai", "anthropic", "google", "perplexity"} {
		if cfg.ProviderKey(provider) != "" {
			names = append(names, provider)
		}
	}
	return names
}
