package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"kinesis/internal/application/orchestrators"
	"kinesis/internal/application/projections"
	domainPlan "kinesis/internal/domain/plan"
)

// planFile is the JSON shape written by plans show --json.
type planFile struct {
	Name string                     `json:"name"`
	Days map[int][]domainPlan.Entry `json:"days"`
}

// importFile is the JSON shape accepted by plans import. Absent rests and
// images take their defaults.
type importFile struct {
	Name string               `json:"name"`
	Days domainPlan.DaysInput `json:"days"`
}

var planShowJSON bool

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "List, inspect, import and delete workout plans",
}

var plansListCmd = &cobra.Command{
	Use:   "list",
	Short: "List plans, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStores(cmd, func(ctx context.Context, e *env) error {
			res, err := projections.QueryGetPlanList(ctx, projections.GetPlanListDeps{PlanStore: e.plans})
			if err != nil {
				return err
			}
			for _, s := range res.Summaries() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d days\t%d exercises\t%s\n",
					s.ID, s.Name, s.DayCount, s.EntryCount, formatTime(s.CreatedAt))
			}
			return nil
		})
	},
}

var plansShowCmd = &cobra.Command{
	Use:   "show <plan-id>",
	Short: "Print one plan day by day",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStores(cmd, func(ctx context.Context, e *env) error {
			p, err := projections.QueryGetPlan(ctx, args[0], projections.GetPlanDeps{PlanStore: e.plans})
			if err != nil {
				return fmt.Errorf("plan %q: %w", args[0], err)
			}
			out := cmd.OutOrStdout()
			if planShowJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(planFile{Name: p.Name, Days: p.Days})
			}

			fmt.Fprintf(out, "%s (%s)\n", p.Name, p.ID)
			days := make([]int, 0, len(p.Days))
			for d := range p.Days {
				days = append(days, d)
			}
			sort.Ints(days)
			for _, d := range days {
				fmt.Fprintf(out, "Day %d\n", d)
				for _, en := range p.Days[d] {
					fmt.Fprintf(out, "  %s\t%s\trest %ds\t%s\n", en.Name, prescription(en), en.Rest, en.Notes)
				}
			}
			return nil
		})
	},
}

var plansImportCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Create a plan from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var f importFile
		if err := json.Unmarshal(raw, &f); err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}
		days := f.Days.Days()

		return withStores(cmd, func(ctx context.Context, e *env) error {
			id, err := orchestrators.ExecuteCreatePlan(ctx, orchestrators.SavePlanInput{
				Content: domainPlan.Content{Name: f.Name, Days: days},
				ActorID: actorID,
			}, orchestrators.SavePlanDeps{
				PlanStore:  e.plans,
				GenerateID: generateID,
				Now:        time.Now,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created plan %s\n", id)
			return nil
		})
	},
}

var plansDeleteCmd = &cobra.Command{
	Use:   "delete <plan-id>",
	Short: "Delete a plan; its assignments are kept",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStores(cmd, func(ctx context.Context, e *env) error {
			err := orchestrators.ExecuteDeletePlan(ctx, orchestrators.DeletePlanInput{
				PlanID:  args[0],
				ActorID: actorID,
			}, orchestrators.DeletePlanDeps{
				PlanStore:     e.plans,
				OutboxStore:   e.outbox,
				PublishEvents: e.publishEvents(),
				GenerateID:    generateID,
				Now:           time.Now,
			})
			if err != nil {
				return fmt.Errorf("plan %q: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted plan %s\n", args[0])
			return nil
		})
	},
}

func prescription(en domainPlan.Entry) string {
	s := "-"
	switch {
	case en.Sets > 0 && en.Reps > 0:
		s = fmt.Sprintf("%dx%d", en.Sets, en.Reps)
	case en.Sets > 0:
		s = fmt.Sprintf("%d sets", en.Sets)
	case en.Reps > 0:
		s = fmt.Sprintf("%d reps", en.Reps)
	}
	if en.Weight > 0 {
		s += fmt.Sprintf(" @ %gkg", en.Weight)
	}
	return s
}

func init() {
	plansShowCmd.Flags().BoolVar(&planShowJSON, "json", false, "Print the plan in the import file format")

	plansCmd.AddCommand(plansListCmd, plansShowCmd, plansImportCmd, plansDeleteCmd)
	rootCmd.AddCommand(plansCmd)
}
