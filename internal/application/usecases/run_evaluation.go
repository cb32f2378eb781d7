package usecases

import (
	"context"
	"log/slog"

	"github.com/finvox/tuneloop/internal/ports"
)

// RunEvaluation starts a standalone simulate-then-judge evaluation outside
// any tuning run. Like the tuning loop, the pipeline continues on a detached
// context after Execute returns; poll the evaluation for its verdict.
type RunEvaluation struct {
	evaluationService ports.EvaluationService
}

// Compile-time interface check
var _ ports.RunEvaluationUseCase = (*RunEvaluation)(nil)

func NewRunEvaluation(evaluationService ports.EvaluationService) *RunEvaluation {
	return &RunEvaluation{evaluationService: evaluationService}
}

// Execute persists a PENDING evaluation and schedules the pipeline.
func (uc *RunEvaluation) Execute(ctx context.Context, input *ports.RunEvaluationInput) (*ports.RunEvaluationOutput, error) {
	evaluation, err := uc.evaluationService.CreateEvaluation(ctx, input.PromptID, input.ScenarioID, "")
	if err != nil {
		return nil, err
	}

	go func() {
		if _, err := uc.evaluationService.PerformEvaluation(context.Background(), evaluation.ID); err != nil {
			slog.Error("standalone evaluation failed to persist", "evaluation_id", evaluation.ID, "error", err)
		}
	}()

	return &ports.RunEvaluationOutput{Evaluation: evaluation}, nil
}
