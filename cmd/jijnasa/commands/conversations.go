package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jijnasa-ai/jijnasa/internal/services/conversations"
)

// NewConversationsCommand creates conversation management commands
func NewConversationsCommand(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conversations",
		Short: "Manage stored conversations",
		Long:  "Commands for listing and deleting conversations in the local database.",
	}

	cmd.AddCommand(newConversationsListCommand(ctx))
	cmd.AddCommand(newConversationsDeleteCommand(ctx))

	return cmd
}

func newConversationsListCommand(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversations, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			gdb, err := Database()
			if err != nil {
				return err
			}

			service := conversations.NewService(gdb, zap.NewNop())
			summaries, err := service.List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list conversations: %w", err)
			}

			if outputJSON {
				OutputJSON(summaries)
				return nil
			}

			if len(summaries) == 0 {
				fmt.Println("No conversations yet")
				return nil
			}

			headers := []string{"ID", "TITLE", "MODEL", "MESSAGES", "COST", "UPDATED"}
			rows := make([][]string, 0, len(summaries))
			for _, s := range summaries {
				rows = append(rows, []string{
					s.ID,
					truncateString(s.Title, 40),
					s.ModelID,
					fmt.Sprintf("%d", s.MessageCount),
					fmt.Sprintf("$%.4f", s.TotalCostUSD),
					s.UpdatedAt.Format("2006-01-02 15:04"),
				})
			}
			OutputTable(headers, rows)

			return nil
		},
	}

	return cmd
}

func newConversationsDeleteCommand(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <conversation-id>",
		Short: "Delete a conversation and everything attached to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gdb, err := Database()
			if err != nil {
				return err
			}

			service := conversations.NewService(gdb, zap.NewNop())
			if err := service.Delete(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to delete conversation: %w", err)
			}

			fmt.Printf("Deleted conversation %s\n", args[0])
			return nil
		},
	}

	return cmd
}

func truncateString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
