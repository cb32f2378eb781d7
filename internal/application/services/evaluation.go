package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/finvox/tuneloop/internal/adapters/metrics"
	"github.com/finvox/tuneloop/internal/domain"
	"github.com/finvox/tuneloop/internal/domain/models"
	"github.com/finvox/tuneloop/internal/ports"
)

// EvaluationService runs the simulate-then-judge pipeline for one
// (prompt, scenario) pair and records the outcome on the evaluation row.
type EvaluationService struct {
	evaluationRepo  ports.EvaluationRepository
	promptRepo      ports.PromptVersionRepository
	scenarioRepo    ports.ScenarioRepository
	personalityRepo ports.PersonalityRepository
	simulator       ports.ConversationSimulator
	judge           ports.TranscriptJudge
	idGenerator     ports.IDGenerator
}

func NewEvaluationService(
	evaluationRepo ports.EvaluationRepository,
	promptRepo ports.PromptVersionRepository,
	scenarioRepo ports.ScenarioRepository,
	personalityRepo ports.PersonalityRepository,
	simulator ports.ConversationSimulator,
	judge ports.TranscriptJudge,
	idGenerator ports.IDGenerator,
) *EvaluationService {
	return &EvaluationService{
		evaluationRepo:  evaluationRepo,
		promptRepo:      promptRepo,
		scenarioRepo:    scenarioRepo,
		personalityRepo: personalityRepo,
		simulator:       simulator,
		judge:           judge,
		idGenerator:     idGenerator,
	}
}

// CreateEvaluation validates the references and persists a PENDING record.
// runID is empty for standalone evaluations.
func (s *EvaluationService) CreateEvaluation(ctx context.Context, promptID, scenarioID, runID string) (*models.Evaluation, error) {
	if err := ValidateID(promptID, "prompt"); err != nil {
		return nil, err
	}
	if err := ValidateID(scenarioID, "scenario"); err != nil {
		return nil, err
	}

	if _, err := s.promptRepo.GetByID(ctx, promptID); err != nil {
		return nil, domain.NewDomainError(domain.ErrPromptNotFound, "prompt "+promptID)
	}
	if _, err := s.scenarioRepo.GetByID(ctx, scenarioID); err != nil {
		return nil, domain.NewDomainError(domain.ErrScenarioNotFound, "scenario "+scenarioID)
	}

	evaluation := models.NewRunEvaluation(s.idGenerator.GenerateEvaluationID(), promptID, scenarioID, runID)

	if err := s.evaluationRepo.Create(ctx, evaluation); err != nil {
		return nil, domain.NewDomainError(err, "failed to create evaluation")
	}

	return evaluation, nil
}

// PerformEvaluation executes the pipeline for an existing record: simulate
// the conversation, judge the transcript, persist the verdict. Pipeline
// failures are recorded on the row and returned as a FAILED evaluation, not
// as an error; only persistence failures surface as errors.
func (s *EvaluationService) PerformEvaluation(ctx context.Context, evaluationID string) (*models.Evaluation, error) {
	evaluation, err := s.evaluationRepo.GetByID(ctx, evaluationID)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	evaluation.MarkRunning()
	if err := s.evaluationRepo.Update(ctx, evaluation); err != nil {
		return nil, domain.NewDomainError(err, "failed to mark evaluation running")
	}

	transcript, scores, analysis, pipelineErr := s.runPipeline(ctx, evaluation)

	metrics.EvaluationDuration.Observe(time.Since(start).Seconds())

	if pipelineErr != nil {
		slog.Error("evaluation pipeline failed",
			"evaluation_id", evaluation.ID,
			"scenario_id", evaluation.ScenarioID,
			"error", pipelineErr)
		evaluation.MarkFailed(pipelineErr.Error())
		metrics.EvaluationsTotal.WithLabelValues(string(models.EvaluationStatusFailed)).Inc()
	} else {
		evaluation.MarkCompleted(transcript, scores, analysis)
		metrics.EvaluationsTotal.WithLabelValues(string(models.EvaluationStatusCompleted)).Inc()
	}

	if err := s.evaluationRepo.Update(ctx, evaluation); err != nil {
		return nil, domain.NewDomainError(err, "failed to persist evaluation result")
	}

	return evaluation, nil
}

func (s *EvaluationService) runPipeline(ctx context.Context, evaluation *models.Evaluation) ([]models.TranscriptMessage, models.EvaluationScores, string, error) {
	var zero models.EvaluationScores

	prompt, err := s.promptRepo.GetByID(ctx, evaluation.PromptID)
	if err != nil {
		return nil, zero, "", err
	}
	scenario, err := s.scenarioRepo.GetByID(ctx, evaluation.ScenarioID)
	if err != nil {
		return nil, zero, "", err
	}
	personality, err := s.personalityRepo.GetByID(ctx, scenario.PersonalityID)
	if err != nil {
		return nil, zero, "", err
	}

	transcript, err := s.simulator.Simulate(ctx, prompt.Text, scenario, personality)
	if err != nil {
		return nil, zero, "", domain.NewDomainError(domain.ErrEvaluationFailed, "simulation: "+err.Error())
	}

	scores, analysis, err := s.judge.Judge(ctx, transcript, scenario.Objective)
	if err != nil {
		return nil, zero, "", domain.NewDomainError(domain.ErrEvaluationFailed, "judging: "+err.Error())
	}

	return transcript, scores, analysis, nil
}

// GetEvaluation retrieves an evaluation by ID
func (s *EvaluationService) GetEvaluation(ctx context.Context, id string) (*models.Evaluation, error) {
	if err := ValidateID(id, "evaluation"); err != nil {
		return nil, err
	}
	return s.evaluationRepo.GetByID(ctx, id)
}

// ListEvaluations returns evaluations newest-first with the total count
func (s *EvaluationService) ListEvaluations(ctx context.Context, limit, offset int) ([]*models.Evaluation, int, error) {
	evaluations, err := s.evaluationRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, domain.NewDomainError(err, "failed to list evaluations")
	}

	total, err := s.evaluationRepo.Count(ctx)
	if err != nil {
		return nil, 0, domain.NewDomainError(err, "failed to count evaluations")
	}

	return evaluations, total, nil
}
