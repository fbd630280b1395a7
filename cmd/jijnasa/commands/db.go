package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jijnasa-ai/jijnasa/internal/database"
)

// NewDBCommand creates database maintenance commands
func NewDBCommand(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance",
		Long:  "Commands for creating and inspecting the local SQLite database.",
	}

	cmd.AddCommand(newDBInitCommand())
	cmd.AddCommand(newDBPathCommand(ctx))

	return cmd
}

func newDBInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database file and run migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("configuration not loaded")
			}

			dbCfg := &database.Config{
				Path:         cfg.Database.Path,
				MaxOpenConns: cfg.Database.MaxOpenConns,
				BusyTimeout:  cfg.Database.BusyTimeout,
			}
			if err := database.Initialize(dbCfg); err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer func() { _ = database.Close() }()

			fmt.Printf("Database ready at %s\n", cfg.Database.Path)
			return nil
		},
	}

	return cmd
}

func newDBPathCommand(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Show the resolved database path and whether it is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("configuration not loaded")
			}

			status := "missing"
			var sizeBytes int64
			if info, err := os.Stat(cfg.Database.Path); err == nil {
				sizeBytes = info.Size()
				dbCfg := &database.Config{
					Path:         cfg.Database.Path,
					MaxOpenConns: cfg.Database.MaxOpenConns,
					BusyTimeout:  cfg.Database.BusyTimeout,
				}
				if err := database.TestConnection(ctx, dbCfg); err != nil {
					status = fmt.Sprintf("unreachable: %v", err)
				} else {
					status = "ok"
				}
			}

			if outputJSON {
				OutputJSON(map[string]interface{}{
					"path":       cfg.Database.Path,
					"status":     status,
					"size_bytes": sizeBytes,
				})
				return nil
			}

			fmt.Printf("Path:   %s\n", cfg.Database.Path)
			fmt.Printf("Status: %s\n", status)
			if sizeBytes > 0 {
				fmt.Printf("Size:   %d bytes\n", sizeBytes)
			}

			return nil
		},
	}

	return cmd
}
