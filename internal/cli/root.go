// Package cli implements kinesisctl, the trainer's maintenance tool. It runs
// the same orchestrators as the HTTP service directly against the database.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"kinesis/internal/adapters/storage"
	accountStore "kinesis/internal/adapters/storage/account"
	assignmentStore "kinesis/internal/adapters/storage/assignment"
	outboxStore "kinesis/internal/adapters/storage/outbox"
	planStore "kinesis/internal/adapters/storage/plan"
	"kinesis/internal/config"
)

// actorID identifies changes made from the command line in logs and in the
// created_by column.
const actorID = "kinesisctl"

var (
	configPath string
	dbDriver   string
	dbDSN      string
)

var rootCmd = &cobra.Command{
	Use:           "kinesisctl",
	Short:         "kinesisctl manages workout plans, clients and assignments",
	Long:          "kinesisctl runs migrations and manages plans, client accounts and plan assignments directly against the Kinesis database.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to kinesis.yaml")
	rootCmd.PersistentFlags().StringVar(&dbDriver, "driver", "", "Database driver (sqlite or postgres), overrides config")
	rootCmd.PersistentFlags().StringVar(&dbDSN, "dsn", "", "Database DSN or SQLite file, overrides config")
}

// env is what a command runs against.
type env struct {
	cfg         config.Config
	dialect     storage.Dialect
	db          *sql.DB
	accounts    accountStore.Store
	plans       planStore.Store
	assignments assignmentStore.Store
	outbox      outboxStore.Store
}

func (e *env) publishEvents() bool {
	return len(e.cfg.Kafka.Brokers) > 0
}

func generateID() string {
	return uuid.New().String()
}

// withStores loads configuration, opens and migrates the database, and runs
// fn with the stores.
func withStores(cmd *cobra.Command, fn func(ctx context.Context, e *env) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if dbDriver != "" {
		cfg.Database.Driver = dbDriver
	}
	if dbDSN != "" {
		cfg.Database.DSN = dbDSN
	}
	dialect, err := storage.ParseDialect(cfg.Database.Driver)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := storage.Open(ctx, dialect, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := storage.MigrateDB(db, dialect); err != nil {
		return err
	}

	timed := storage.NewTimedDB(db, dialect, cfg.Database.SlowQuery)
	return fn(ctx, &env{
		cfg:         cfg,
		dialect:     dialect,
		db:          db,
		accounts:    accountStore.NewSQLStore(timed),
		plans:       planStore.NewSQLStore(timed),
		assignments: assignmentStore.NewSQLStore(timed),
		outbox:      outboxStore.NewSQLStore(timed),
	})
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
