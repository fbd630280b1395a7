package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jijnasa-ai/jijnasa/internal/services/costs"
)

// NewCostsCommand creates cost reporting commands
func NewCostsCommand(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "costs",
		Short: "Inspect recorded spend",
		Long:  "Commands for inspecting the cost log the server writes for every billable operation.",
	}

	cmd.AddCommand(newCostsSummaryCommand(ctx))
	cmd.AddCommand(newCostsTodayCommand(ctx))

	return cmd
}

func newCostsSummaryCommand(ctx context.Context) *cobra.Command {
	var conversationID string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show total spend with a per-operation breakdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			gdb, err := Database()
			if err != nil {
				return err
			}

			tracker := costs.NewTracker(gdb, zap.NewNop())
			summary, err := tracker.Summary(ctx, conversationID)
			if err != nil {
				return fmt.Errorf("failed to build cost summary: %w", err)
			}

			if outputJSON {
				OutputJSON(summary)
				return nil
			}

			if conversationID != "" {
				fmt.Printf("Conversation: %s\n", conversationID)
			}
			fmt.Printf("Total spend:   $%.4f\n", summary.TotalCostUSD)
			fmt.Printf("Input tokens:  %d\n", summary.TotalInputTokens)
			fmt.Printf("Output tokens: %d\n", summary.TotalOutputTokens)

			if len(summary.Breakdown) == 0 {
				fmt.Println("\nNo cost entries recorded yet")
				return nil
			}

			fmt.Println()
			headers := []string{"OPERATION", "MODEL", "COST", "INPUT", "OUTPUT"}
			rows := make([][]string, 0, len(summary.Breakdown))
			for _, row := range summary.Breakdown {
				rows = append(rows, []string{
					row.Operation,
					row.ModelID,
					fmt.Sprintf("$%.4f", row.Cost),
					fmt.Sprintf("%d", row.InputTokens),
					fmt.Sprintf("%d", row.OutputTokens),
				})
			}
			OutputTable(headers, rows)

			return nil
		},
	}

	cmd.Flags().StringVar(&conversationID, "conversation", "", "Limit the summary to one conversation ID")

	return cmd
}

func newCostsTodayCommand(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "today",
		Short: "Show spend recorded today (UTC)",
		RunE: func(cmd *cobra.Command, args []string) error {
			gdb, err := Database()
			if err != nil {
				return err
			}

			tracker := costs.NewTracker(gdb, zap.NewNop())
			spent, err := tracker.SpentToday(ctx)
			if err != nil {
				return fmt.Errorf("failed to query today's spend: %w", err)
			}

			if outputJSON {
				OutputJSON(map[string]float64{"spent_today_usd": spent})
				return nil
			}

			fmt.Printf("Spent today: $%.4f\n", spent)
			if cfg != nil && cfg.Budget.MaxDailySpendUSD > 0 {
				fmt.Printf("Daily cap:   $%.2f\n", cfg.Budget.MaxDailySpendUSD)
			}

			return nil
		},
	}

	return cmd
}
