package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/finvox/tuneloop/internal/domain"
	"github.com/finvox/tuneloop/internal/domain/models"
)

func validConfig() models.TuningConfiguration {
	return models.TuningConfiguration{
		InitialPromptID: "tp_1",
		TargetScore:     85,
		MaxIterations:   5,
		Scenarios: []models.ScenarioWeight{
			{ScenarioID: "tsc_1", Weight: 5},
			{ScenarioID: "tsc_2", Weight: 3},
		},
	}
}

func newTuningService() (*TuningService, *mockTuningRunRepo, *mockPromptRepo) {
	runs := newMockTuningRunRepo()
	prompts := newMockPromptRepo()
	return NewTuningService(runs, prompts, newMockIDGenerator()), runs, prompts
}

func TestCreateRun(t *testing.T) {
	service, _, _ := newTuningService()

	run, err := service.CreateRun(context.Background(), validConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if run.Status != models.TuningStatusPending {
		t.Errorf("expected PENDING, got %s", run.Status)
	}
	if !strings.HasPrefix(run.ID, "tr_") {
		t.Errorf("expected tr_ prefix, got %q", run.ID)
	}
	if len(run.Iterations) != 0 {
		t.Errorf("expected no iterations, got %d", len(run.Iterations))
	}
}

func TestValidateTuningConfiguration(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.TuningConfiguration)
	}{
		{"missing prompt", func(c *models.TuningConfiguration) { c.InitialPromptID = "" }},
		{"target too high", func(c *models.TuningConfiguration) { c.TargetScore = 101 }},
		{"target negative", func(c *models.TuningConfiguration) { c.TargetScore = -1 }},
		{"zero iterations", func(c *models.TuningConfiguration) { c.MaxIterations = 0 }},
		{"too many iterations", func(c *models.TuningConfiguration) { c.MaxIterations = 11 }},
		{"no scenarios", func(c *models.TuningConfiguration) { c.Scenarios = nil }},
		{"weight too low", func(c *models.TuningConfiguration) { c.Scenarios[0].Weight = 0 }},
		{"weight too high", func(c *models.TuningConfiguration) { c.Scenarios[0].Weight = 6 }},
		{"empty scenario id", func(c *models.TuningConfiguration) { c.Scenarios[1].ScenarioID = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(&config)
			if err := ValidateTuningConfiguration(config); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}

	if err := ValidateTuningConfiguration(validConfig()); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}

func TestCreateRunDuplicateScenario(t *testing.T) {
	service, runs, _ := newTuningService()

	config := validConfig()
	config.Scenarios[1].ScenarioID = "tsc_1"

	_, err := service.CreateRun(context.Background(), config)
	if !errors.Is(err, domain.ErrDuplicateScenario) {
		t.Fatalf("expected ErrDuplicateScenario, got %v", err)
	}

	count, _ := runs.Count(context.Background(), "")
	if count != 0 {
		t.Errorf("expected no run persisted, got %d", count)
	}
}

func TestRunLifecycle(t *testing.T) {
	service, _, _ := newTuningService()
	ctx := context.Background()

	run, err := service.CreateRun(ctx, validConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := service.MarkRunning(ctx, run.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	iteration := models.NewIteration(1, "tp_1", []string{"te_1", "te_2"}, 74.5)
	if err := service.RecordIteration(ctx, run.ID, iteration); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := service.CompleteRun(ctx, run.ID, "tp_2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, err := service.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.Status != models.TuningStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", stored.Status)
	}
	if stored.FinalPromptID != "tp_2" {
		t.Errorf("expected final prompt tp_2, got %q", stored.FinalPromptID)
	}
	if len(stored.Iterations) != 1 || stored.Iterations[0].WeightedScore != 74.5 {
		t.Errorf("unexpected iterations: %+v", stored.Iterations)
	}
}

func TestCompleteRunAlreadyTerminal(t *testing.T) {
	service, _, _ := newTuningService()
	ctx := context.Background()

	run, _ := service.CreateRun(ctx, validConfig())
	if err := service.MarkRunning(ctx, run.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := service.FailRun(ctx, run.ID, "llm down"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := service.CompleteRun(ctx, run.ID, "tp_2"); !errors.Is(err, domain.ErrRunAlreadyTerminal) {
		t.Fatalf("expected ErrRunAlreadyTerminal, got %v", err)
	}
}

func TestRecordIterationRequiresRunning(t *testing.T) {
	service, _, _ := newTuningService()
	ctx := context.Background()

	run, _ := service.CreateRun(ctx, validConfig())
	iteration := models.NewIteration(1, "tp_1", nil, 50)

	if err := service.RecordIteration(ctx, run.ID, iteration); !errors.Is(err, domain.ErrRunNotRunning) {
		t.Fatalf("expected ErrRunNotRunning, got %v", err)
	}
}

func TestSaveTunedPrompt(t *testing.T) {
	service, _, prompts := newTuningService()
	ctx := context.Background()

	prompt, err := service.SaveTunedPrompt(ctx, "tr_abcdef123456", 2, "You are a better collection agent now.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if prompt.Name != "Tuned-AI-Iter2-tr_abcde" {
		t.Errorf("unexpected name: %q", prompt.Name)
	}
	if prompt.Version != "Auto-generated from tuning loop iteration 2" {
		t.Errorf("unexpected version label: %q", prompt.Version)
	}

	if _, err := prompts.GetByID(ctx, prompt.ID); err != nil {
		t.Errorf("expected prompt persisted: %v", err)
	}
}

func TestSaveTunedPromptEmptyText(t *testing.T) {
	service, _, _ := newTuningService()

	_, err := service.SaveTunedPrompt(context.Background(), "tr_1", 1, "   ")
	if !errors.Is(err, domain.ErrEmptyPromptText) {
		t.Fatalf("expected ErrEmptyPromptText, got %v", err)
	}
}

func TestListRunsFiltersByStatus(t *testing.T) {
	service, _, _ := newTuningService()
	ctx := context.Background()

	first, _ := service.CreateRun(ctx, validConfig())
	if _, err := service.CreateRun(ctx, validConfig()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := service.MarkRunning(ctx, first.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	running, total, err := service.ListRuns(ctx, string(models.TuningStatusRunning), 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(running) != 1 {
		t.Fatalf("expected 1 running run, got total=%d len=%d", total, len(running))
	}
	if running[0].ID != first.ID {
		t.Errorf("expected %s, got %s", first.ID, running[0].ID)
	}
}
