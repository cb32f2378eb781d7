package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// runsCmd provides subcommands for inspecting tuning runs
func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect tuning runs",
		Long: `Inspect tuning runs stored in the database.

Subcommands:
  list    List tuning runs
  show    Show details of a specific run`,
	}

	cmd.AddCommand(
		runsListCmd(),
		runsShowCmd(),
	)

	return cmd
}

// runsListCmd lists tuning runs
func runsListCmd() *cobra.Command {
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tuning runs",
		Long:  `List tuning runs with optional filtering by status.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			pool, err := initDB(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			stack := buildTuningStack(pool, nil)

			runs, total, err := stack.tuningService.ListRuns(ctx, status, limit, 0)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			if len(runs) == 0 {
				fmt.Println("No tuning runs found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tITERATIONS\tLAST SCORE\tTARGET\tCREATED\tCOMPLETED")
			fmt.Fprintln(w, "--\t------\t----------\t----------\t------\t-------\t---------")

			for _, run := range runs {
				lastScore := "N/A"
				if it := run.LatestIteration(); it != nil {
					lastScore = fmt.Sprintf("%.2f", it.WeightedScore)
				}
				completedStr := "N/A"
				if run.CompletedAt != nil {
					completedStr = run.CompletedAt.Format("2006-01-02 15:04")
				}

				fmt.Fprintf(w, "%s\t%s\t%d/%d\t%s\t%.1f\t%s\t%s\n",
					run.ID,
					run.Status,
					len(run.Iterations),
					run.Config.MaxIterations,
					lastScore,
					run.Config.TargetScore,
					run.CreatedAt.Format("2006-01-02 15:04"),
					completedStr,
				)
			}

			w.Flush()
			fmt.Printf("\n%d of %d runs\n", len(runs), total)
			return nil
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "", "Filter by status (PENDING, RUNNING, COMPLETED, FAILED)")
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of runs to list")

	return cmd
}

// runsShowCmd shows details of a specific tuning run
func runsShowCmd() *cobra.Command {
	var showJSON bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show tuning run details",
		Long:  `Show detailed information about a specific tuning run.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			runID := args[0]

			pool, err := initDB(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			stack := buildTuningStack(pool, nil)

			run, err := stack.tuningService.GetRun(ctx, runID)
			if err != nil {
				return fmt.Errorf("failed to load run: %w", err)
			}

			if showJSON {
				data, err := json.MarshalIndent(run, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to encode run: %w", err)
				}
				fmt.Println(string(data))
				return nil
			}

			fmt.Printf("Run:            %s\n", run.ID)
			fmt.Printf("Status:         %s\n", run.Status)
			fmt.Printf("Initial prompt: %s\n", run.Config.InitialPromptID)
			fmt.Printf("Target score:   %.1f\n", run.Config.TargetScore)
			fmt.Printf("Max iterations: %d\n", run.Config.MaxIterations)
			fmt.Println("Scenarios:")
			for _, sw := range run.Config.Scenarios {
				fmt.Printf("  %s (weight %d)\n", sw.ScenarioID, sw.Weight)
			}

			if len(run.Iterations) > 0 {
				fmt.Println("Iterations:")
				for _, it := range run.Iterations {
					fmt.Printf("  %d: prompt %s, weighted score %.2f, %d evaluations\n",
						it.Sequence, it.PromptID, it.WeightedScore, len(it.EvaluationIDs))
				}
			}

			if run.FinalPromptID != "" {
				fmt.Printf("Final prompt:   %s\n", run.FinalPromptID)
			}
			if run.ErrorMessage != "" {
				fmt.Printf("Error:          %s\n", run.ErrorMessage)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showJSON, "json", false, "Output as JSON")

	return cmd
}
