package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jijnasa-ai/jijnasa/internal/models"
)

var DB *gorm.DB

type Config struct {
	Path         string
	MaxOpenConns int
	BusyTimeout  int
	LogLevel     logger.LogLevel
}

// DSN appends the pragmas every connection needs: WAL so readers run
// alongside the single writer, foreign-key enforcement, and a busy
// timeout so concurrent turns queue instead of failing.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)",
		c.Path, c.BusyTimeout,
	)
}

func Initialize(cfg *Config) error {
	if cfg.Path == "" {
		cfg.Path = os.Getenv("DATABASE_PATH")
	}
	if cfg.Path == "" {
		return fmt.Errorf("database path is required")
	}

	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 4
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5000
	}
	if cfg.LogLevel == 0 {
		cfg.LogLevel = logger.Warn
	}

	if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  cfg.LogLevel,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  true,
		},
	)

	// Timestamps are stored in UTC so the ledger's calendar-day window
	// lines up with SQLite's date('now').
	db, err := gorm.Open(sqlite.Open(cfg.DSN()), &gorm.Config{
		Logger:  newLogger,
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxOpenConns)

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	DB = db

	if err := Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func Migrate() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	if err := DB.AutoMigrate(
		&models.Conversation{},
		&models.Message{},
		&models.Document{},
		&models.CostEntry{},
		&models.AnalyticsEvent{},
		&models.DocumentChunk{},
	); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}

	if err := createIndexes(); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

func createIndexes() error {
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_documents_conversation ON documents(conversation_id)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_cost_log_conversation ON cost_log(conversation_id)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_analytics_events_type ON analytics_events(event_type)")

	// Ledger day-window and chunk lookups
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_cost_log_created_at ON cost_log(created_at)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_document_chunks_document ON document_chunks(document_id)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_document_chunks_conversation ON document_chunks(conversation_id)")

	return nil
}

func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

func GetDB() *gorm.DB {
	return DB
}

func IsHealthy() bool {
	if DB == nil {
		return false
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return false
	}

	if err := sqlDB.Ping(); err != nil {
		return false
	}

	return true
}

// TestConnection opens and pings a database without installing the global
// handle. Used by the CLI to verify a path before the server starts.
func TestConnection(ctx context.Context, cfg *Config) error {
	if cfg.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5000
	}

	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(cfg.DSN()), &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database: %w", err)
	}
	defer func() { _ = sqlDB.Close() }()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}
