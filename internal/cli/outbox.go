package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	outboxFailed bool
	outboxLimit  int
)

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Inspect queued emails and plan events",
}

var outboxListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending outbox entries, or failed ones with --failed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if outboxLimit < 1 || outboxLimit > 100 {
			return fmt.Errorf("--limit must be between 1 and 100")
		}
		return withStores(cmd, func(ctx context.Context, e *env) error {
			list := e.outbox.ListPending
			if outboxFailed {
				list = e.outbox.ListFailed
			}
			entries, err := list(ctx, outboxLimit)
			if err != nil {
				return err
			}
			for _, en := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%d/%d\t%s\t%s\n",
					en.ID, en.ActionType, en.Status, en.Attempts, en.MaxAttempts, formatTime(en.LastAttemptedAt), en.ErrorMessage)
			}
			return nil
		})
	},
}

func init() {
	outboxListCmd.Flags().BoolVar(&outboxFailed, "failed", false, "List entries that ran out of attempts")
	outboxListCmd.Flags().IntVar(&outboxLimit, "limit", 50, "Maximum entries to list (1-100)")

	outboxCmd.AddCommand(outboxListCmd)
	rootCmd.AddCommand(outboxCmd)
}
