package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jijnasa-ai/jijnasa/cmd/jijnasa/commands"
	"github.com/jijnasa-ai/jijnasa/internal/config"
)

var (
	cfgFile    string
	dbPath     string
	outputJSON bool
	verbose    bool
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "jijnasa",
		Short: "JijnasaAI management CLI",
		Long: `A CLI tool for managing a JijnasaAI installation: inspect the model
catalog, recorded spend, and stored conversations, and maintain the local
SQLite database.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "verbose output")

	// Add subcommands
	ctx := context.Background()
	rootCmd.AddCommand(commands.NewModelsCommand())
	rootCmd.AddCommand(commands.NewCostsCommand(ctx))
	rootCmd.AddCommand(commands.NewConversationsCommand(ctx))
	rootCmd.AddCommand(commands.NewDBCommand(ctx))

	return rootCmd
}

func initConfig() error {
	// Pick up provider keys from .env the same way the server does
	_ = godotenv.Load()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if dbPath != "" {
		cfg.Database.Path = dbPath
	}

	commands.SetConfig(cfg)
	commands.SetOutputJSON(outputJSON)
	commands.SetVerbose(verbose)

	return nil
}
