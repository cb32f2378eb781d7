package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/finvox/tuneloop/internal/domain/models"
)

// evaluateCmd runs a single simulate-then-judge evaluation from the CLI
func evaluateCmd() *cobra.Command {
	var (
		promptID   string
		scenarioID string
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a prompt against a single scenario",
		Long: `Simulate one conversation between the prompt under test and the
scenario's debtor persona, then print the judged transcript.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			pool, err := initDB(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			stack := buildTuningStack(pool, nil)

			created, err := stack.evaluationService.CreateEvaluation(ctx, promptID, scenarioID, "")
			if err != nil {
				return fmt.Errorf("failed to create evaluation: %w", err)
			}

			fmt.Printf("Evaluation %s: simulating conversation...\n\n", created.ID)

			evaluation, err := stack.evaluationService.PerformEvaluation(ctx, created.ID)
			if err != nil {
				return fmt.Errorf("failed to perform evaluation: %w", err)
			}

			for _, msg := range evaluation.Transcript {
				fmt.Printf("%s: %s\n", strings.ToUpper(string(msg.Speaker)), msg.Message)
			}
			fmt.Println()

			if evaluation.Status == models.EvaluationStatusFailed {
				fmt.Printf("Evaluation failed: %s\n", evaluation.ErrorMessage)
				return nil
			}

			fmt.Printf("Task Completion:         %d\n", evaluation.Scores.TaskCompletion)
			fmt.Printf("Conversation Efficiency: %d\n", evaluation.Scores.ConversationEfficiency)
			fmt.Printf("Composite:               %.1f\n", evaluation.Scores.Composite())
			fmt.Println()
			fmt.Printf("Analysis: %s\n", evaluation.EvaluatorAnalysis)
			return nil
		},
	}

	cmd.Flags().StringVarP(&promptID, "prompt", "p", "", "Prompt version ID (required)")
	cmd.Flags().StringVarP(&scenarioID, "scenario", "s", "", "Scenario ID (required)")
	cmd.MarkFlagRequired("prompt")
	cmd.MarkFlagRequired("scenario")

	return cmd
}
