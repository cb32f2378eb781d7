package usecases

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/finvox/tuneloop/internal/application/services"
	"github.com/finvox/tuneloop/internal/domain"
	"github.com/finvox/tuneloop/internal/domain/models"
	"github.com/finvox/tuneloop/internal/ports"
)

type fakePromptRepo struct {
	mu      sync.RWMutex
	prompts map[string]*models.PromptVersion
}

func newFakePromptRepo() *fakePromptRepo {
	return &fakePromptRepo{prompts: make(map[string]*models.PromptVersion)}
}

func (r *fakePromptRepo) Create(ctx context.Context, prompt *models.PromptVersion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *prompt
	r.prompts[prompt.ID] = &cp
	return nil
}

func (r *fakePromptRepo) GetByID(ctx context.Context, id string) (*models.PromptVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	prompt, ok := r.prompts[id]
	if !ok {
		return nil, domain.ErrPromptNotFound
	}
	cp := *prompt
	return &cp, nil
}

func (r *fakePromptRepo) List(ctx context.Context, limit, offset int) ([]*models.PromptVersion, error) {
	return nil, nil
}

func (r *fakePromptRepo) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.prompts), nil
}

type fakeScenarioRepo struct {
	mu        sync.RWMutex
	scenarios map[string]*models.Scenario
}

func newFakeScenarioRepo() *fakeScenarioRepo {
	return &fakeScenarioRepo{scenarios: make(map[string]*models.Scenario)}
}

func (r *fakeScenarioRepo) Create(ctx context.Context, scenario *models.Scenario) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *scenario
	r.scenarios[scenario.ID] = &cp
	return nil
}

func (r *fakeScenarioRepo) GetByID(ctx context.Context, id string) (*models.Scenario, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	scenario, ok := r.scenarios[id]
	if !ok {
		return nil, domain.ErrScenarioNotFound
	}
	cp := *scenario
	return &cp, nil
}

func (r *fakeScenarioRepo) GetByIDs(ctx context.Context, ids []string) ([]*models.Scenario, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Scenario, 0, len(ids))
	for _, id := range ids {
		if scenario, ok := r.scenarios[id]; ok {
			cp := *scenario
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeScenarioRepo) List(ctx context.Context, limit, offset int) ([]*models.Scenario, error) {
	return nil, nil
}

func (r *fakeScenarioRepo) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.scenarios), nil
}

// fakeTuningService keeps runs in memory with the same status guards the
// real repository enforces.
type fakeTuningService struct {
	mu         sync.RWMutex
	runs       map[string]*models.TuningRun
	promptRepo *fakePromptRepo
	runSeq     int
	promptSeq  int
}

func newFakeTuningService(promptRepo *fakePromptRepo) *fakeTuningService {
	return &fakeTuningService{
		runs:       make(map[string]*models.TuningRun),
		promptRepo: promptRepo,
	}
}

func copyRun(r *models.TuningRun) *models.TuningRun {
	cp := *r
	cp.Iterations = append([]models.Iteration(nil), r.Iterations...)
	cp.Config.Scenarios = append([]models.ScenarioWeight(nil), r.Config.Scenarios...)
	return &cp
}

func (s *fakeTuningService) CreateRun(ctx context.Context, config models.TuningConfiguration) (*models.TuningRun, error) {
	if err := services.ValidateTuningConfiguration(config); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runSeq++
	run := models.NewTuningRun(fmt.Sprintf("tr_test%d", s.runSeq), config)
	s.runs[run.ID] = copyRun(run)
	return run, nil
}

func (s *fakeTuningService) GetRun(ctx context.Context, id string) (*models.TuningRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, domain.ErrTuningRunNotFound
	}
	return copyRun(run), nil
}

func (s *fakeTuningService) ListRuns(ctx context.Context, status string, limit, offset int) ([]*models.TuningRun, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.TuningRun
	for _, run := range s.runs {
		if status == "" || string(run.Status) == status {
			out = append(out, copyRun(run))
		}
	}
	return out, len(out), nil
}

func (s *fakeTuningService) MarkRunning(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return domain.ErrTuningRunNotFound
	}
	if run.Status != models.TuningStatusPending {
		return domain.ErrRunNotRunning
	}
	run.MarkRunning()
	return nil
}

func (s *fakeTuningService) RecordIteration(ctx context.Context, runID string, iteration models.Iteration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return domain.ErrTuningRunNotFound
	}
	if run.Status != models.TuningStatusRunning {
		return domain.ErrRunNotRunning
	}
	run.AppendIteration(iteration)
	return nil
}

func (s *fakeTuningService) CompleteRun(ctx context.Context, runID, finalPromptID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return domain.ErrTuningRunNotFound
	}
	if run.IsTerminal() {
		return domain.ErrRunAlreadyTerminal
	}
	run.MarkCompleted(finalPromptID)
	return nil
}

func (s *fakeTuningService) FailRun(ctx context.Context, runID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return domain.ErrTuningRunNotFound
	}
	if run.IsTerminal() {
		return domain.ErrRunAlreadyTerminal
	}
	run.MarkFailed(message)
	return nil
}

func (s *fakeTuningService) SaveTunedPrompt(ctx context.Context, runID string, iteration int, text string) (*models.PromptVersion, error) {
	s.mu.Lock()
	s.promptSeq++
	id := fmt.Sprintf("tp_tuned%d", s.promptSeq)
	s.mu.Unlock()

	prompt := models.NewTunedPromptVersion(id, runID, iteration, text)
	if err := s.promptRepo.Create(ctx, prompt); err != nil {
		return nil, err
	}
	return prompt, nil
}

// fakeEvaluationService scores each (prompt, scenario) pair through the
// scoreFn hook instead of running the pipeline.
type fakeEvaluationService struct {
	mu          sync.RWMutex
	evaluations map[string]*models.Evaluation
	seq         int
	createErr   error

	scoreFn func(promptID, scenarioID string) (models.EvaluationScores, error)
}

func newFakeEvaluationService(scoreFn func(promptID, scenarioID string) (models.EvaluationScores, error)) *fakeEvaluationService {
	return &fakeEvaluationService{
		evaluations: make(map[string]*models.Evaluation),
		scoreFn:     scoreFn,
	}
}

func (s *fakeEvaluationService) CreateEvaluation(ctx context.Context, promptID, scenarioID, runID string) (*models.Evaluation, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	evaluation := models.NewRunEvaluation(fmt.Sprintf("te_test%d", s.seq), promptID, scenarioID, runID)
	s.evaluations[evaluation.ID] = evaluation
	return evaluation, nil
}

func (s *fakeEvaluationService) PerformEvaluation(ctx context.Context, evaluationID string) (*models.Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	evaluation, ok := s.evaluations[evaluationID]
	if !ok {
		return nil, domain.ErrEvaluationNotFound
	}

	scores, err := s.scoreFn(evaluation.PromptID, evaluation.ScenarioID)
	if err != nil {
		evaluation.MarkFailed(err.Error())
	} else {
		transcript := []models.TranscriptMessage{
			{Speaker: models.SpeakerAgent, Message: "Hello."},
			{Speaker: models.SpeakerDebtor, Message: "Not now."},
		}
		evaluation.MarkCompleted(transcript, scores, "scripted analysis")
	}
	cp := *evaluation
	return &cp, nil
}

func (s *fakeEvaluationService) GetEvaluation(ctx context.Context, id string) (*models.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	evaluation, ok := s.evaluations[id]
	if !ok {
		return nil, domain.ErrEvaluationNotFound
	}
	cp := *evaluation
	return &cp, nil
}

func (s *fakeEvaluationService) ListEvaluations(ctx context.Context, limit, offset int) ([]*models.Evaluation, int, error) {
	return nil, 0, nil
}

// fakeReviser returns numbered revisions and records the contexts it saw.
type fakeReviser struct {
	mu    sync.Mutex
	calls []ports.RevisionContext
	err   error
}

func (r *fakeReviser) Revise(ctx context.Context, rc ports.RevisionContext) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	r.calls = append(r.calls, rc)
	return fmt.Sprintf("Improved collection agent prompt, revision %d.", len(r.calls)), nil
}

func (r *fakeReviser) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// waitForTerminal polls until the run reaches a terminal status.
func waitForTerminal(t *testing.T, svc *fakeTuningService, runID string) *models.TuningRun {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("run %s never reached a terminal state", runID)
		case <-time.After(5 * time.Millisecond):
		}
		run, err := svc.GetRun(context.Background(), runID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if run.IsTerminal() {
			return run
		}
	}
}

func seedPrompt(t *testing.T, repo *fakePromptRepo, id string) {
	t.Helper()
	prompt := models.NewPromptVersion(id, "Collection Agent v1", "You are a polite debt collection agent.", "v1")
	if err := repo.Create(context.Background(), prompt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func seedScenario(t *testing.T, repo *fakeScenarioRepo, id string) {
	t.Helper()
	scenario := models.NewScenario(id, "tpe_1", "Payment deferral", "Debtor stalls",
		"Lost his job last month and is dodging calls.", "Avoid committing to a date", 3)
	if err := repo.Create(context.Background(), scenario); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
