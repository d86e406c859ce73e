package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"kinesis/internal/application/orchestrators"
)

var seedDemoCmd = &cobra.Command{
	Use:   "seed-demo",
	Short: "Add demo clients and a sample plan for local development",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStores(cmd, func(ctx context.Context, e *env) error {
			if e.cfg.IsProduction() {
				return fmt.Errorf("refusing to seed demo data in production")
			}
			if err := orchestrators.ExecuteSeedDemo(ctx, orchestrators.SeedDemoDeps{
				AccountStore: e.accounts,
				PlanStore:    e.plans,
				GenerateID:   generateID,
				Now:          time.Now,
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Demo data ready (client password %q)\n", orchestrators.DemoPassword)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(seedDemoCmd)
}
