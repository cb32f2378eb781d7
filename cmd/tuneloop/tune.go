package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/finvox/tuneloop/internal/domain/models"
	"github.com/finvox/tuneloop/internal/ports"
)

// tuneCmd starts a tuning run from the CLI and follows its progress
func tuneCmd() *cobra.Command {
	var (
		promptID      string
		targetScore   float64
		maxIterations int
		scenarioSpecs []string
	)

	cmd := &cobra.Command{
		Use:   "tune",
		Short: "Run the tuning loop against a prompt",
		Long: `Start a tuning run and follow its progress until it completes.

Scenarios are given as id=weight pairs, for example:

  tuneloop tune --prompt tp_abc123 --target 85 --max-iterations 5 \
    --scenario tsc_deferral=5 --scenario tsc_dispute=3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			scenarios, err := parseScenarioSpecs(scenarioSpecs)
			if err != nil {
				return err
			}

			pool, err := initDB(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			stack := buildTuningStack(pool, nil)

			output, err := stack.runTuning.Execute(ctx, &ports.RunTuningInput{
				InitialPromptID: promptID,
				TargetScore:     targetScore,
				MaxIterations:   maxIterations,
				Scenarios:       scenarios,
			})
			if err != nil {
				return fmt.Errorf("failed to start tuning run: %w", err)
			}

			run := output.Run
			fmt.Printf("Tuning run %s started (target %.1f, max %d iterations)\n",
				run.ID, run.Config.TargetScore, run.Config.MaxIterations)

			events := stack.publisher.Subscribe(run.ID)
			defer stack.publisher.Unsubscribe(run.ID, events)

			return followRun(ctx, stack.tuningService, run.ID, events)
		},
	}

	cmd.Flags().StringVarP(&promptID, "prompt", "p", "", "Initial prompt version ID (required)")
	cmd.Flags().Float64VarP(&targetScore, "target", "t", 85, "Target weighted score (0-100)")
	cmd.Flags().IntVarP(&maxIterations, "max-iterations", "m", 5, "Maximum loop iterations (1-10)")
	cmd.Flags().StringArrayVarP(&scenarioSpecs, "scenario", "s", nil, "Scenario as id=weight (repeatable, required)")
	cmd.MarkFlagRequired("prompt")
	cmd.MarkFlagRequired("scenario")

	return cmd
}

// parseScenarioSpecs parses id=weight pairs into scenario inputs
func parseScenarioSpecs(specs []string) ([]ports.ScenarioWeightInput, error) {
	scenarios := make([]ports.ScenarioWeightInput, 0, len(specs))
	for _, spec := range specs {
		id, weightStr, found := strings.Cut(spec, "=")
		if !found {
			return nil, fmt.Errorf("invalid scenario spec %q, expected id=weight", spec)
		}
		weight, err := strconv.Atoi(weightStr)
		if err != nil {
			return nil, fmt.Errorf("invalid weight in scenario spec %q: %w", spec, err)
		}
		scenarios = append(scenarios, ports.ScenarioWeightInput{
			ScenarioID: strings.TrimSpace(id),
			Weight:     weight,
		})
	}
	return scenarios, nil
}

// followRun prints progress events until the run reaches a terminal state.
// Polling backs up the event stream in case the loop outpaces the
// subscription.
func followRun(ctx context.Context, tuningService ports.TuningService, runID string, events <-chan ports.TuningProgressEvent) error {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return printRunSummary(ctx, tuningService, runID)
			}
			printProgressEvent(event)
		case <-ticker.C:
			run, err := tuningService.GetRun(ctx, runID)
			if err != nil {
				return fmt.Errorf("failed to poll run: %w", err)
			}
			if run.IsTerminal() {
				return printRunSummary(ctx, tuningService, runID)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func printProgressEvent(event ports.TuningProgressEvent) {
	switch event.Type {
	case ports.TuningEventIteration:
		fmt.Printf("  iteration %d/%d: weighted score %.2f (target %.1f)\n",
			event.Iteration, event.MaxIterations, event.WeightedScore, event.TargetScore)
	case ports.TuningEventRevision:
		fmt.Printf("  iteration %d: %s\n", event.Iteration, event.Message)
	case ports.TuningEventCompleted:
		fmt.Printf("  run completed with score %.2f\n", event.WeightedScore)
	case ports.TuningEventFailed:
		fmt.Printf("  run failed: %s\n", event.Message)
	}
}

func printRunSummary(ctx context.Context, tuningService ports.TuningService, runID string) error {
	run, err := tuningService.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load run: %w", err)
	}

	fmt.Println()
	fmt.Printf("Run:    %s\n", run.ID)
	fmt.Printf("Status: %s\n", run.Status)
	for _, it := range run.Iterations {
		fmt.Printf("  iteration %d: prompt %s, weighted score %.2f\n",
			it.Sequence, it.PromptID, it.WeightedScore)
	}
	switch run.Status {
	case models.TuningStatusCompleted:
		fmt.Printf("Final prompt: %s\n", run.FinalPromptID)
	case models.TuningStatusFailed:
		fmt.Printf("Error: %s\n", run.ErrorMessage)
	}
	return nil
}
