package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewModelsCommand creates the model catalog command
func NewModelsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the model catalog",
		Long:  "Lists every model in the catalog, which provider serves it, and whether that provider has an API key configured.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listModels()
		},
	}

	return cmd
}

func listModels() error {
	if cfg == nil {
		return fmt.Errorf("configuration not loaded")
	}

	if outputJSON {
		type modelEntry struct {
			ID         string `json:"id"`
			Provider   string `json:"provider"`
			Name       string `json:"name"`
			MaxTokens  int    `json:"max_tokens"`
			Configured bool   `json:"configured"`
			Default    bool   `json:"default"`
		}

		entries := make([]modelEntry, 0, len(cfg.Models.Available))
		for _, m := range cfg.Models.Available {
			entries = append(entries, modelEntry{
				ID:         m.ID,
				Provider:   m.Provider,
				Name:       m.Name,
				MaxTokens:  m.MaxTokens,
				Configured: cfg.ProviderKey(m.Provider) != "",
				Default:    m.ID == cfg.Models.Default,
			})
		}
		OutputJSON(entries)
		return nil
	}

	headers := []string{"ID", "PROVIDER", "NAME", "MAX TOKENS", "CONFIGURED", "DEFAULT"}
	rows := make([][]string, 0, len(cfg.Models.Available))
	for _, m := range cfg.Models.Available {
		configured := "no"
		if cfg.ProviderKey(m.Provider) != "" {
			configured = "yes"
		}
		isDefault := ""
		if m.ID == cfg.Models.Default {
			isDefault = "*"
		}
		rows = append(rows, []string{
			m.ID,
			m.Provider,
			m.Name,
			fmt.Sprintf("%d", m.MaxTokens),
			configured,
			isDefault,
		})
	}
	OutputTable(headers, rows)

	return nil
}
