package services

import (
	"context"
	"strings"

	"github.com/finvox/tuneloop/internal/domain"
	"github.com/finvox/tuneloop/internal/domain/models"
	"github.com/finvox/tuneloop/internal/ports"
)

// TuningService owns tuning run lifecycle persistence. The orchestrating use
// case funnels every state change through here; status guards live in the
// repository so terminal runs can never be resurrected.
type TuningService struct {
	runRepo     ports.TuningRunRepository
	promptRepo  ports.PromptVersionRepository
	idGenerator ports.IDGenerator
}

func NewTuningService(
	runRepo ports.TuningRunRepository,
	promptRepo ports.PromptVersionRepository,
	idGenerator ports.IDGenerator,
) *TuningService {
	return &TuningService{
		runRepo:     runRepo,
		promptRepo:  promptRepo,
		idGenerator: idGenerator,
	}
}

// CreateRun validates the configuration and persists a PENDING run. The
// configuration is stored verbatim and never modified afterwards.
func (s *TuningService) CreateRun(ctx context.Context, config models.TuningConfiguration) (*models.TuningRun, error) {
	if err := ValidateTuningConfiguration(config); err != nil {
		return nil, err
	}

	run := models.NewTuningRun(s.idGenerator.GenerateTuningRunID(), config)

	if err := s.runRepo.Create(ctx, run); err != nil {
		return nil, domain.NewDomainError(err, "failed to create tuning run")
	}

	return run, nil
}

// GetRun retrieves a tuning run by ID
func (s *TuningService) GetRun(ctx context.Context, id string) (*models.TuningRun, error) {
	if err := ValidateID(id, "tuning run"); err != nil {
		return nil, err
	}
	return s.runRepo.GetByID(ctx, id)
}

// ListRuns returns runs newest-first with the total count, optionally
// filtered by status.
func (s *TuningService) ListRuns(ctx context.Context, status string, limit, offset int) ([]*models.TuningRun, int, error) {
	runs, err := s.runRepo.List(ctx, status, limit, offset)
	if err != nil {
		return nil, 0, domain.NewDomainError(err, "failed to list tuning runs")
	}

	total, err := s.runRepo.Count(ctx, status)
	if err != nil {
		return nil, 0, domain.NewDomainError(err, "failed to count tuning runs")
	}

	return runs, total, nil
}

// MarkRunning transitions a PENDING run to RUNNING
func (s *TuningService) MarkRunning(ctx context.Context, id string) error {
	return s.runRepo.MarkRunning(ctx, id)
}

// RecordIteration appends a completed iteration to a RUNNING run
func (s *TuningService) RecordIteration(ctx context.Context, runID string, iteration models.Iteration) error {
	return s.runRepo.AppendIteration(ctx, runID, iteration)
}

// CompleteRun transitions a RUNNING run to COMPLETED with its final prompt
func (s *TuningService) CompleteRun(ctx context.Context, runID, finalPromptID string) error {
	return s.runRepo.Complete(ctx, runID, finalPromptID)
}

// FailRun transitions a non-terminal run to FAILED
func (s *TuningService) FailRun(ctx context.Context, runID, message string) error {
	return s.runRepo.Fail(ctx, runID, message)
}

// SaveTunedPrompt appends the revised prompt produced by an iteration to the
// prompt library, named after the run and iteration that produced it.
func (s *TuningService) SaveTunedPrompt(ctx context.Context, runID string, iteration int, text string) (*models.PromptVersion, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.NewDomainError(domain.ErrEmptyPromptText, "tuned prompt text")
	}

	prompt := models.NewTunedPromptVersion(s.idGenerator.GeneratePromptVersionID(), runID, iteration, text)

	if err := s.promptRepo.Create(ctx, prompt); err != nil {
		return nil, domain.NewDomainError(err, "failed to save tuned prompt")
	}

	return prompt, nil
}

// ValidateTuningConfiguration enforces the submission bounds: target score in
// [0,100], iterations in [1,10], at least one scenario, weights in [1,5] and
// no scenario listed twice.
func ValidateTuningConfiguration(config models.TuningConfiguration) error {
	if err := ValidateID(config.InitialPromptID, "initial prompt"); err != nil {
		return err
	}
	if err := ValidateFloatRange(config.TargetScore, "target score", models.MinTargetScore, models.MaxTargetScore); err != nil {
		return err
	}
	if err := ValidateRange(config.MaxIterations, "max iterations", models.MinIterations, models.MaxIterationsCap); err != nil {
		return err
	}
	if len(config.Scenarios) == 0 {
		return domain.NewDomainError(domain.ErrInvalidInput, "at least one scenario is required")
	}

	seen := make(map[string]struct{}, len(config.Scenarios))
	for _, sw := range config.Scenarios {
		if err := ValidateID(sw.ScenarioID, "scenario"); err != nil {
			return err
		}
		if err := ValidateRange(sw.Weight, "scenario weight", models.MinScenarioWeight, models.MaxScenarioWeight); err != nil {
			return err
		}
		if _, dup := seen[sw.ScenarioID]; dup {
			return domain.NewDomainError(domain.ErrDuplicateScenario, "scenario "+sw.ScenarioID)
		}
		seen[sw.ScenarioID] = struct{}{}
	}

	return nil
}
