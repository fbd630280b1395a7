package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jijnasa-ai/jijnasa/internal/models"
)

// NewTestDB opens an isolated temp-file database with the full schema
// migrated and the same pragmas the server uses. The file lives under
// t.TempDir, so the test framework removes it; the cleanup function
// closes the handle.
func NewTestDB(t *testing.T) (*gorm.DB, func()) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err, "Failed to open test database")

	err = db.AutoMigrate(
		&models.Conversation{},
		&models.Message{},
		&models.Document{},
		&models.CostEntry{},
		&models.AnalyticsEvent{},
		&models.DocumentChunk{},
	)
	require.NoError(t, err, "Failed to migrate test database")

	cleanup := func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	}

	return db, cleanup
}
