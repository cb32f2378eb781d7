package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/finvox/tuneloop/internal/domain"
	"github.com/finvox/tuneloop/internal/domain/models"
	"github.com/finvox/tuneloop/internal/ports"
)

// mockLLM replays scripted responses in order. Calls beyond the script fail.
type mockLLM struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     []llmCall
}

type llmCall struct {
	messages []ports.LLMMessage
	opts     ports.ChatOptions
}

func (m *mockLLM) Chat(ctx context.Context, messages []ports.LLMMessage) (*ports.LLMResponse, error) {
	return m.ChatWithOptions(ctx, messages, ports.ChatOptions{})
}

func (m *mockLLM) ChatWithOptions(ctx context.Context, messages []ports.LLMMessage, opts ports.ChatOptions) (*ports.LLMResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, llmCall{messages: messages, opts: opts})
	if m.err != nil {
		return nil, m.err
	}
	if len(m.calls) > len(m.responses) {
		return nil, fmt.Errorf("mockLLM: no response scripted for call %d", len(m.calls))
	}
	return &ports.LLMResponse{Content: m.responses[len(m.calls)-1], FinishReason: "stop"}, nil
}

func (m *mockLLM) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type mockIDGenerator struct {
	mu       sync.Mutex
	counters map[string]int
}

func newMockIDGenerator() *mockIDGenerator {
	return &mockIDGenerator{counters: make(map[string]int)}
}

func (g *mockIDGenerator) next(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counters[prefix]++
	return fmt.Sprintf("%s_test%d", prefix, g.counters[prefix])
}

func (g *mockIDGenerator) GenerateTuningRunID() string     { return g.next("tr") }
func (g *mockIDGenerator) GeneratePromptVersionID() string { return g.next("tp") }
func (g *mockIDGenerator) GenerateScenarioID() string      { return g.next("tsc") }
func (g *mockIDGenerator) GeneratePersonalityID() string   { return g.next("tpe") }
func (g *mockIDGenerator) GenerateEvaluationID() string    { return g.next("te") }

type mockPromptRepo struct {
	mu      sync.RWMutex
	prompts map[string]*models.PromptVersion
	order   []string
}

func newMockPromptRepo() *mockPromptRepo {
	return &mockPromptRepo{prompts: make(map[string]*models.PromptVersion)}
}

func (r *mockPromptRepo) Create(ctx context.Context, prompt *models.PromptVersion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *prompt
	r.prompts[prompt.ID] = &cp
	r.order = append(r.order, prompt.ID)
	return nil
}

func (r *mockPromptRepo) GetByID(ctx context.Context, id string) (*models.PromptVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	prompt, ok := r.prompts[id]
	if !ok {
		return nil, domain.ErrPromptNotFound
	}
	cp := *prompt
	return &cp, nil
}

func (r *mockPromptRepo) List(ctx context.Context, limit, offset int) ([]*models.PromptVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.PromptVersion
	for i := len(r.order) - 1; i >= 0; i-- {
		cp := *r.prompts[r.order[i]]
		out = append(out, &cp)
	}
	return paginate(out, limit, offset), nil
}

func (r *mockPromptRepo) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.prompts), nil
}

type mockScenarioRepo struct {
	mu        sync.RWMutex
	scenarios map[string]*models.Scenario
	order     []string
}

func newMockScenarioRepo() *mockScenarioRepo {
	return &mockScenarioRepo{scenarios: make(map[string]*models.Scenario)}
}

func (r *mockScenarioRepo) Create(ctx context.Context, scenario *models.Scenario) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *scenario
	r.scenarios[scenario.ID] = &cp
	r.order = append(r.order, scenario.ID)
	return nil
}

func (r *mockScenarioRepo) GetByID(ctx context.Context, id string) (*models.Scenario, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	scenario, ok := r.scenarios[id]
	if !ok {
		return nil, domain.ErrScenarioNotFound
	}
	cp := *scenario
	return &cp, nil
}

func (r *mockScenarioRepo) GetByIDs(ctx context.Context, ids []string) ([]*models.Scenario, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Scenario, 0, len(ids))
	for _, id := range ids {
		scenario, ok := r.scenarios[id]
		if !ok {
			continue
		}
		cp := *scenario
		out = append(out, &cp)
	}
	return out, nil
}

func (r *mockScenarioRepo) List(ctx context.Context, limit, offset int) ([]*models.Scenario, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.Scenario
	for i := len(r.order) - 1; i >= 0; i-- {
		cp := *r.scenarios[r.order[i]]
		out = append(out, &cp)
	}
	return paginate(out, limit, offset), nil
}

func (r *mockScenarioRepo) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.scenarios), nil
}

type mockPersonalityRepo struct {
	mu            sync.RWMutex
	personalities map[string]*models.Personality
	order         []string
}

func newMockPersonalityRepo() *mockPersonalityRepo {
	return &mockPersonalityRepo{personalities: make(map[string]*models.Personality)}
}

func (r *mockPersonalityRepo) Create(ctx context.Context, personality *models.Personality) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *personality
	r.personalities[personality.ID] = &cp
	r.order = append(r.order, personality.ID)
	return nil
}

func (r *mockPersonalityRepo) GetByID(ctx context.Context, id string) (*models.Personality, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	personality, ok := r.personalities[id]
	if !ok {
		return nil, domain.ErrPersonalityNotFound
	}
	cp := *personality
	return &cp, nil
}

func (r *mockPersonalityRepo) List(ctx context.Context, limit, offset int) ([]*models.Personality, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.Personality
	for i := len(r.order) - 1; i >= 0; i-- {
		cp := *r.personalities[r.order[i]]
		out = append(out, &cp)
	}
	return paginate(out, limit, offset), nil
}

func (r *mockPersonalityRepo) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.personalities), nil
}

type mockEvaluationRepo struct {
	mu          sync.RWMutex
	evaluations map[string]*models.Evaluation
	order       []string
}

func newMockEvaluationRepo() *mockEvaluationRepo {
	return &mockEvaluationRepo{evaluations: make(map[string]*models.Evaluation)}
}

func copyEvaluation(e *models.Evaluation) *models.Evaluation {
	cp := *e
	if e.Transcript != nil {
		cp.Transcript = append([]models.TranscriptMessage(nil), e.Transcript...)
	}
	if e.Scores != nil {
		scores := *e.Scores
		cp.Scores = &scores
	}
	return &cp
}

func (r *mockEvaluationRepo) Create(ctx context.Context, evaluation *models.Evaluation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evaluations[evaluation.ID] = copyEvaluation(evaluation)
	r.order = append(r.order, evaluation.ID)
	return nil
}

func (r *mockEvaluationRepo) GetByID(ctx context.Context, id string) (*models.Evaluation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	evaluation, ok := r.evaluations[id]
	if !ok {
		return nil, domain.ErrEvaluationNotFound
	}
	return copyEvaluation(evaluation), nil
}

func (r *mockEvaluationRepo) GetByIDs(ctx context.Context, ids []string) ([]*models.Evaluation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Evaluation, 0, len(ids))
	for _, id := range ids {
		if evaluation, ok := r.evaluations[id]; ok {
			out = append(out, copyEvaluation(evaluation))
		}
	}
	return out, nil
}

func (r *mockEvaluationRepo) Update(ctx context.Context, evaluation *models.Evaluation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.evaluations[evaluation.ID]; !ok {
		return domain.ErrEvaluationNotFound
	}
	r.evaluations[evaluation.ID] = copyEvaluation(evaluation)
	return nil
}

func (r *mockEvaluationRepo) ListByRun(ctx context.Context, runID string) ([]*models.Evaluation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.Evaluation
	for _, id := range r.order {
		if r.evaluations[id].RunID == runID {
			out = append(out, copyEvaluation(r.evaluations[id]))
		}
	}
	return out, nil
}

func (r *mockEvaluationRepo) List(ctx context.Context, limit, offset int) ([]*models.Evaluation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.Evaluation
	for i := len(r.order) - 1; i >= 0; i-- {
		out = append(out, copyEvaluation(r.evaluations[r.order[i]]))
	}
	return paginate(out, limit, offset), nil
}

func (r *mockEvaluationRepo) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.evaluations), nil
}

type mockTuningRunRepo struct {
	mu    sync.RWMutex
	runs  map[string]*models.TuningRun
	order []string
}

func newMockTuningRunRepo() *mockTuningRunRepo {
	return &mockTuningRunRepo{runs: make(map[string]*models.TuningRun)}
}

func copyRun(r *models.TuningRun) *models.TuningRun {
	cp := *r
	cp.Iterations = append([]models.Iteration(nil), r.Iterations...)
	cp.Config.Scenarios = append([]models.ScenarioWeight(nil), r.Config.Scenarios...)
	return &cp
}

func (r *mockTuningRunRepo) Create(ctx context.Context, run *models.TuningRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = copyRun(run)
	r.order = append(r.order, run.ID)
	return nil
}

func (r *mockTuningRunRepo) GetByID(ctx context.Context, id string) (*models.TuningRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, domain.ErrTuningRunNotFound
	}
	return copyRun(run), nil
}

func (r *mockTuningRunRepo) List(ctx context.Context, status string, limit, offset int) ([]*models.TuningRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.TuningRun
	for i := len(r.order) - 1; i >= 0; i-- {
		run := r.runs[r.order[i]]
		if status != "" && string(run.Status) != status {
			continue
		}
		out = append(out, copyRun(run))
	}
	return paginate(out, limit, offset), nil
}

func (r *mockTuningRunRepo) Count(ctx context.Context, status string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, run := range r.runs {
		if status == "" || string(run.Status) == status {
			count++
		}
	}
	return count, nil
}

func (r *mockTuningRunRepo) MarkRunning(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return domain.ErrTuningRunNotFound
	}
	if run.Status != models.TuningStatusPending {
		return domain.ErrRunNotRunning
	}
	run.MarkRunning()
	return nil
}

func (r *mockTuningRunRepo) AppendIteration(ctx context.Context, id string, iteration models.Iteration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return domain.ErrTuningRunNotFound
	}
	if run.Status != models.TuningStatusRunning {
		return domain.ErrRunNotRunning
	}
	run.AppendIteration(iteration)
	return nil
}

func (r *mockTuningRunRepo) Complete(ctx context.Context, id, finalPromptID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return domain.ErrTuningRunNotFound
	}
	if run.IsTerminal() {
		return domain.ErrRunAlreadyTerminal
	}
	run.MarkCompleted(finalPromptID)
	return nil
}

func (r *mockTuningRunRepo) Fail(ctx context.Context, id, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return domain.ErrTuningRunNotFound
	}
	if run.IsTerminal() {
		return domain.ErrRunAlreadyTerminal
	}
	run.MarkFailed(message)
	return nil
}

// mockSimulator returns a fixed transcript or error.
type mockSimulator struct {
	transcript []models.TranscriptMessage
	err        error
}

func (m *mockSimulator) Simulate(ctx context.Context, agentPrompt string, scenario *models.Scenario, personality *models.Personality) ([]models.TranscriptMessage, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.transcript, nil
}

// mockJudge returns a fixed verdict or error.
type mockJudge struct {
	scores   models.EvaluationScores
	analysis string
	err      error
}

func (m *mockJudge) Judge(ctx context.Context, transcript []models.TranscriptMessage, objective string) (models.EvaluationScores, string, error) {
	if m.err != nil {
		return models.EvaluationScores{}, "", m.err
	}
	return m.scores, m.analysis, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func floatPtr(v float64) *float64 { return &v }

func testPersonality(id string) *models.Personality {
	return models.NewPersonality(id, "Rajesh Kumar", "Evasive debtor", "You are {name}, you owe {amount}.", nil, floatPtr(15000))
}

func testScenario(id, personalityID string) *models.Scenario {
	return models.NewScenario(id, personalityID, "Payment deferral", "Debtor stalls",
		"Lost his job last month and is dodging collection calls.",
		"Avoid committing to a payment date", 3)
}

func testPrompt(id string) *models.PromptVersion {
	return models.NewPromptVersion(id, "Collection Agent v1", "You are a polite debt collection agent for a consumer lender.", "v1")
}
