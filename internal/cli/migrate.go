package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"kinesis/internal/adapters/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStores(cmd, func(ctx context.Context, e *env) error {
			v, err := storage.SchemaVersion(e.db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database ready (%s, schema=%d)\n", e.dialect, v)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
