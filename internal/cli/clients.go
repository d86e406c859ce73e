package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"kinesis/internal/adapters/identity"
	"kinesis/internal/application/orchestrators"
	"kinesis/internal/application/projections"
	"kinesis/internal/domain/account"
)

var (
	clientName     string
	clientPassword string
	clientEmail    string
)

var clientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "Manage client accounts",
}

var clientsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List client accounts by username",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStores(cmd, func(ctx context.Context, e *env) error {
			clients, err := projections.QueryGetClientList(ctx, projections.GetClientListDeps{AccountStore: e.accounts})
			if err != nil {
				return err
			}
			for _, c := range clients {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", c.Username, c.Name, c.Email)
			}
			return nil
		})
	},
}

var clientsCreateCmd = &cobra.Command{
	Use:   "create <username>",
	Short: "Create a client account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStores(cmd, func(ctx context.Context, e *env) error {
			var provisioner identity.Provisioner = identity.NoopProvisioner{}
			if e.cfg.Auth.ProvisionURL != "" {
				provisioner = identity.NewHTTPProvisioner(e.cfg.Auth.ProvisionURL, e.cfg.Auth.ProvisionKey)
			}
			acct, err := orchestrators.ExecuteCreateClientAccount(ctx, orchestrators.CreateClientAccountInput{
				Username: args[0],
				Name:     clientName,
				Password: clientPassword,
				Email:    clientEmail,
			}, orchestrators.CreateClientAccountDeps{
				AccountStore: e.accounts,
				Provisioner:  provisioner,
				EmailDomain:  e.cfg.Auth.EmailDomain,
				GenerateID:   generateID,
				Now:          time.Now,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created client %s\n", acct.Username)
			return nil
		})
	},
}

var clientsDeleteCmd = &cobra.Command{
	Use:   "delete <username>",
	Short: "Delete a client account and its assignments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStores(cmd, func(ctx context.Context, e *env) error {
			n, err := orchestrators.ExecuteDeleteClientAccount(ctx, args[0], orchestrators.DeleteClientAccountDeps{
				AccountStore:    e.accounts,
				AssignmentStore: e.assignments,
			})
			if err != nil {
				return fmt.Errorf("client %q: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted client %s (%d assignments removed)\n", account.NormalizeUsername(args[0]), n)
			return nil
		})
	},
}

var clientPlansCmd = &cobra.Command{
	Use:   "client-plans <username>",
	Short: "List the plans assigned to a client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStores(cmd, func(ctx context.Context, e *env) error {
			plans, err := projections.QueryGetClientPlans(ctx, account.NormalizeUsername(args[0]), projections.GetClientPlansDeps{
				AssignmentStore: e.assignments,
				PlanStore:       e.plans,
			})
			if err != nil {
				return err
			}
			for _, p := range plans {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d days\n", p.ID, p.Name, p.Days.Count())
			}
			return nil
		})
	},
}

var assignCmd = &cobra.Command{
	Use:   "assign <username> <plan-id>",
	Short: "Assign a plan to a client",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStores(cmd, func(ctx context.Context, e *env) error {
			a, err := orchestrators.ExecuteAssignPlan(ctx, orchestrators.AssignPlanInput{
				ClientUsername: args[0],
				WorkoutID:      args[1],
				ActorID:        actorID,
			}, orchestrators.AssignPlanDeps{
				AccountStore:    e.accounts,
				PlanStore:       e.plans,
				AssignmentStore: e.assignments,
				OutboxStore:     e.outbox,
				NotifyByEmail:   true,
				PublishEvents:   e.publishEvents(),
				GenerateID:      generateID,
				Now:             time.Now,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Assigned plan %s to %s (%s)\n", a.WorkoutID, a.ClientUsername, a.ID)
			return nil
		})
	},
}

func init() {
	clientsCreateCmd.Flags().StringVar(&clientName, "name", "", "Display name")
	clientsCreateCmd.Flags().StringVar(&clientPassword, "password", "", "Initial password")
	clientsCreateCmd.Flags().StringVar(&clientEmail, "email", "", "Contact email for assignment notices")
	_ = clientsCreateCmd.MarkFlagRequired("password")

	clientsCmd.AddCommand(clientsListCmd, clientsCreateCmd, clientsDeleteCmd)
	rootCmd.AddCommand(clientsCmd, clientPlansCmd, assignCmd)
}
