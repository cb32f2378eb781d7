package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/finvox/tuneloop/internal/adapters/metrics"
	"github.com/finvox/tuneloop/internal/domain"
	"github.com/finvox/tuneloop/internal/domain/models"
	"github.com/finvox/tuneloop/internal/ports"
	"github.com/finvox/tuneloop/internal/scoring"
)

// RunTuning orchestrates the automated tuning loop. Execute persists a
// PENDING run and schedules the loop on a detached context; the loop then
// alternates evaluation sweeps with Writer-Critique revisions until the
// target is met, the iteration budget runs out, or a hard failure occurs.
type RunTuning struct {
	tuningService     ports.TuningService
	evaluationService ports.EvaluationService
	reviser           ports.PromptRevisionService
	promptRepo        ports.PromptVersionRepository
	scenarioRepo      ports.ScenarioRepository
	progressPublisher ports.TuningProgressPublisher
}

// Compile-time interface check
var _ ports.RunTuningUseCase = (*RunTuning)(nil)

func NewRunTuning(
	tuningService ports.TuningService,
	evaluationService ports.EvaluationService,
	reviser ports.PromptRevisionService,
	promptRepo ports.PromptVersionRepository,
	scenarioRepo ports.ScenarioRepository,
	progressPublisher ports.TuningProgressPublisher,
) *RunTuning {
	return &RunTuning{
		tuningService:     tuningService,
		evaluationService: evaluationService,
		reviser:           reviser,
		promptRepo:        promptRepo,
		scenarioRepo:      scenarioRepo,
		progressPublisher: progressPublisher,
	}
}

// Execute validates the configuration, persists a PENDING run and schedules
// the background loop. It returns as soon as the run is durable; caller
// disconnects never cancel the loop.
func (uc *RunTuning) Execute(ctx context.Context, input *ports.RunTuningInput) (*ports.RunTuningOutput, error) {
	config := models.TuningConfiguration{
		InitialPromptID: input.InitialPromptID,
		TargetScore:     input.TargetScore,
		MaxIterations:   input.MaxIterations,
	}
	for _, sw := range input.Scenarios {
		config.Scenarios = append(config.Scenarios, models.ScenarioWeight{
			ScenarioID: sw.ScenarioID,
			Weight:     sw.Weight,
		})
	}

	if _, err := uc.promptRepo.GetByID(ctx, config.InitialPromptID); err != nil {
		return nil, domain.NewDomainError(domain.ErrPromptNotFound, "initial prompt "+config.InitialPromptID)
	}
	scenarios, err := uc.loadScenarios(ctx, config)
	if err != nil {
		return nil, err
	}

	run, err := uc.tuningService.CreateRun(ctx, config)
	if err != nil {
		return nil, err
	}

	uc.publish(ports.TuningProgressEvent{
		Type:          ports.TuningEventStarted,
		RunID:         run.ID,
		MaxIterations: config.MaxIterations,
		TargetScore:   config.TargetScore,
		PromptID:      config.InitialPromptID,
		Status:        string(models.TuningStatusPending),
		Message:       "Tuning run accepted",
		Timestamp:     time.Now().UnixMilli(),
	})

	// Detached context: the loop owns its own lifetime once the run is durable.
	go uc.runTuningLoop(context.Background(), run, scenarios)

	return &ports.RunTuningOutput{Run: run}, nil
}

// loadScenarios fetches every configured scenario and verifies none are
// missing before the run is accepted.
func (uc *RunTuning) loadScenarios(ctx context.Context, config models.TuningConfiguration) (map[string]*models.Scenario, error) {
	ids := make([]string, 0, len(config.Scenarios))
	for _, sw := range config.Scenarios {
		ids = append(ids, sw.ScenarioID)
	}

	scenarios, err := uc.scenarioRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load scenarios: %w", err)
	}

	byID := make(map[string]*models.Scenario, len(scenarios))
	for _, scenario := range scenarios {
		byID[scenario.ID] = scenario
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, domain.NewDomainError(domain.ErrScenarioNotFound, "scenario "+id)
		}
	}
	return byID, nil
}

// runTuningLoop is the background worker driving the whole loop. It is the
// run's only writer after creation.
func (uc *RunTuning) runTuningLoop(ctx context.Context, run *models.TuningRun, scenarios map[string]*models.Scenario) {
	metrics.TuningRunsActive.Inc()
	defer metrics.TuningRunsActive.Dec()

	defer func() {
		if uc.progressPublisher != nil {
			uc.progressPublisher.Close(run.ID)
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			reason := fmt.Sprintf("tuning loop panicked: %v", r)
			slog.Error("tuning loop panic", "run_id", run.ID, "panic", r)
			uc.failRun(ctx, run, reason)
		}
	}()

	if err := uc.tuningService.MarkRunning(ctx, run.ID); err != nil {
		slog.Error("failed to mark run running", "run_id", run.ID, "error", err)
		uc.failRun(ctx, run, "failed to start run: "+err.Error())
		return
	}

	config := run.Config
	currentPromptID := config.InitialPromptID

	currentPrompt, err := uc.promptRepo.GetByID(ctx, currentPromptID)
	if err != nil {
		uc.failRun(ctx, run, "failed to load initial prompt: "+err.Error())
		return
	}
	currentText := currentPrompt.Text

	for iteration := 1; iteration <= config.MaxIterations; iteration++ {
		select {
		case <-ctx.Done():
			uc.failRun(ctx, run, "tuning loop cancelled")
			return
		default:
		}

		results := uc.evaluateScenarios(ctx, run.ID, currentPromptID, config, scenarios)

		pairs := make([]scoring.Weighted, 0, len(results))
		evaluationIDs := make([]string, 0, len(results))
		for _, r := range results {
			pairs = append(pairs, scoring.Weighted{Score: r.composite, Weight: r.weight})
			if r.evaluation != nil {
				evaluationIDs = append(evaluationIDs, r.evaluation.ID)
			}
		}

		weightedScore, err := scoring.WeightedAverage(pairs)
		if err != nil {
			uc.failRun(ctx, run, "failed to aggregate scores: "+err.Error())
			return
		}

		iterationRecord := models.NewIteration(iteration, currentPromptID, evaluationIDs, weightedScore)
		if err := uc.tuningService.RecordIteration(ctx, run.ID, iterationRecord); err != nil {
			slog.Error("failed to record iteration", "run_id", run.ID, "iteration", iteration, "error", err)
			uc.failRun(ctx, run, "failed to record iteration: "+err.Error())
			return
		}
		metrics.TuningIterationsTotal.Inc()

		slog.Info("tuning iteration recorded",
			"run_id", run.ID,
			"iteration", iteration,
			"weighted_score", weightedScore,
			"target_score", config.TargetScore)

		uc.publish(ports.TuningProgressEvent{
			Type:          ports.TuningEventIteration,
			RunID:         run.ID,
			Iteration:     iteration,
			MaxIterations: config.MaxIterations,
			WeightedScore: weightedScore,
			TargetScore:   config.TargetScore,
			PromptID:      currentPromptID,
			Status:        string(models.TuningStatusRunning),
			Timestamp:     time.Now().UnixMilli(),
		})

		if weightedScore >= config.TargetScore || iteration == config.MaxIterations {
			uc.completeRun(ctx, run, iteration, weightedScore, currentPromptID)
			return
		}

		revised, err := uc.revisePrompt(ctx, currentText, config.TargetScore, results)
		if err != nil {
			uc.failRun(ctx, run, "prompt revision failed: "+err.Error())
			return
		}

		tuned, err := uc.tuningService.SaveTunedPrompt(ctx, run.ID, iteration, revised)
		if err != nil {
			uc.failRun(ctx, run, "failed to save tuned prompt: "+err.Error())
			return
		}
		currentPromptID = tuned.ID
		currentText = tuned.Text

		uc.publish(ports.TuningProgressEvent{
			Type:          ports.TuningEventRevision,
			RunID:         run.ID,
			Iteration:     iteration,
			MaxIterations: config.MaxIterations,
			WeightedScore: weightedScore,
			TargetScore:   config.TargetScore,
			PromptID:      tuned.ID,
			Status:        string(models.TuningStatusRunning),
			Message:       "Revised prompt saved as " + tuned.Name,
			Timestamp:     time.Now().UnixMilli(),
		})
	}
}

// scenarioResult is the outcome of one scenario's evaluation within a sweep.
// A failed evaluation contributes a zero composite rather than aborting the
// iteration.
type scenarioResult struct {
	scenario   *models.Scenario
	weight     int
	evaluation *models.Evaluation
	composite  float64
}

// evaluateScenarios runs all configured scenarios against the current prompt
// concurrently and collects their composites in configuration order.
func (uc *RunTuning) evaluateScenarios(
	ctx context.Context,
	runID, promptID string,
	config models.TuningConfiguration,
	scenarios map[string]*models.Scenario,
) []scenarioResult {
	results := make([]scenarioResult, len(config.Scenarios))

	p := pool.New().WithMaxGoroutines(len(config.Scenarios))
	for i, sw := range config.Scenarios {
		p.Go(func() {
			results[i] = uc.evaluateScenario(ctx, runID, promptID, sw, scenarios[sw.ScenarioID])
		})
	}
	p.Wait()

	return results
}

func (uc *RunTuning) evaluateScenario(
	ctx context.Context,
	runID, promptID string,
	sw models.ScenarioWeight,
	scenario *models.Scenario,
) scenarioResult {
	result := scenarioResult{scenario: scenario, weight: sw.Weight}

	evaluation, err := uc.evaluationService.CreateEvaluation(ctx, promptID, sw.ScenarioID, runID)
	if err != nil {
		slog.Warn("failed to create evaluation, scoring scenario as zero",
			"run_id", runID, "scenario_id", sw.ScenarioID, "error", err)
		return result
	}
	result.evaluation = evaluation

	performed, err := uc.evaluationService.PerformEvaluation(ctx, evaluation.ID)
	if err != nil {
		slog.Warn("failed to perform evaluation, scoring scenario as zero",
			"run_id", runID, "evaluation_id", evaluation.ID, "error", err)
		return result
	}
	result.evaluation = performed

	if performed.Status == models.EvaluationStatusCompleted && performed.Scores != nil {
		result.composite = performed.Scores.Composite()
	}
	return result
}

// revisePrompt packages the failure context and runs the Writer-Critique
// cycle. Below-target evaluations drive the revision; when every scenario met
// the target individually but the weighted aggregate still fell short, the
// full set is used.
func (uc *RunTuning) revisePrompt(ctx context.Context, currentText string, targetScore float64, results []scenarioResult) (string, error) {
	failures := make([]ports.FailureExample, 0, len(results))
	for _, r := range results {
		if r.composite < targetScore {
			failures = append(failures, failureExample(r))
		}
	}
	if len(failures) == 0 {
		for _, r := range results {
			failures = append(failures, failureExample(r))
		}
	}

	return uc.reviser.Revise(ctx, ports.RevisionContext{
		CurrentPrompt: currentText,
		TargetScore:   targetScore,
		Failures:      failures,
	})
}

func failureExample(r scenarioResult) ports.FailureExample {
	example := ports.FailureExample{}
	if r.scenario != nil {
		example.ScenarioTitle = r.scenario.Title
		example.ScenarioObjective = r.scenario.Objective
	}
	if r.evaluation != nil {
		example.EvaluatorAnalysis = r.evaluation.EvaluatorAnalysis
		example.Transcript = r.evaluation.Transcript
		if r.evaluation.Scores != nil {
			example.Scores = *r.evaluation.Scores
		}
	}
	return example
}

func (uc *RunTuning) completeRun(ctx context.Context, run *models.TuningRun, iteration int, weightedScore float64, finalPromptID string) {
	if err := uc.tuningService.CompleteRun(ctx, run.ID, finalPromptID); err != nil {
		slog.Error("failed to complete run", "run_id", run.ID, "error", err)
		uc.failRun(ctx, run, "failed to complete run: "+err.Error())
		return
	}
	metrics.TuningRunsTotal.WithLabelValues(string(models.TuningStatusCompleted)).Inc()

	slog.Info("tuning run completed",
		"run_id", run.ID,
		"iterations", iteration,
		"final_score", weightedScore,
		"final_prompt_id", finalPromptID)

	uc.publish(ports.TuningProgressEvent{
		Type:          ports.TuningEventCompleted,
		RunID:         run.ID,
		Iteration:     iteration,
		MaxIterations: run.Config.MaxIterations,
		WeightedScore: weightedScore,
		TargetScore:   run.Config.TargetScore,
		PromptID:      finalPromptID,
		Status:        string(models.TuningStatusCompleted),
		Message:       "Tuning run completed",
		Timestamp:     time.Now().UnixMilli(),
	})
}

func (uc *RunTuning) failRun(ctx context.Context, run *models.TuningRun, reason string) {
	if err := uc.tuningService.FailRun(ctx, run.ID, reason); err != nil {
		slog.Error("failed to mark run failed", "run_id", run.ID, "error", err)
	}
	metrics.TuningRunsTotal.WithLabelValues(string(models.TuningStatusFailed)).Inc()

	uc.publish(ports.TuningProgressEvent{
		Type:          ports.TuningEventFailed,
		RunID:         run.ID,
		MaxIterations: run.Config.MaxIterations,
		TargetScore:   run.Config.TargetScore,
		Status:        string(models.TuningStatusFailed),
		Message:       reason,
		Timestamp:     time.Now().UnixMilli(),
	})
}

func (uc *RunTuning) publish(event ports.TuningProgressEvent) {
	if uc.progressPublisher != nil {
		uc.progressPublisher.Publish(event)
	}
}
