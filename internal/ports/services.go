package ports

import (
	"context"

	"github.com/finvox/tuneloop/internal/domain/models"
)

// LLMMessage represents a message in the LLM conversation context
type LLMMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLMResponse represents a response from the LLM
type LLMResponse struct {
	Content      string `json:"content,omitempty"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// ChatOptions tunes a single LLM call. The zero value means provider
// defaults; JSONMode constrains the model to emit a single JSON object.
type ChatOptions struct {
	Temperature float32
	MaxTokens   int
	JSONMode    bool
}

// LLMService defines the interface for LLM interactions
type LLMService interface {
	Chat(ctx context.Context, messages []LLMMessage) (*LLMResponse, error)
	ChatWithOptions(ctx context.Context, messages []LLMMessage, opts ChatOptions) (*LLMResponse, error)
}

// ConversationSimulator drives a turn-by-turn simulated call between the
// agent under test and a role-played debtor, returning the full transcript.
type ConversationSimulator interface {
	Simulate(ctx context.Context, agentPrompt string, scenario *models.Scenario, personality *models.Personality) ([]models.TranscriptMessage, error)
}

// TranscriptJudge scores a finished transcript against the scenario's
// objective and returns the two-dimension verdict plus qualitative analysis.
type TranscriptJudge interface {
	Judge(ctx context.Context, transcript []models.TranscriptMessage, objective string) (models.EvaluationScores, string, error)
}

// EvaluationService runs the full simulate-then-judge pipeline for one
// (prompt, scenario) pair and persists the outcome on the evaluation record.
type EvaluationService interface {
	// CreateEvaluation validates the references and persists a PENDING record.
	CreateEvaluation(ctx context.Context, promptID, scenarioID, runID string) (*models.Evaluation, error)
	// PerformEvaluation executes the pipeline for an existing record. The
	// returned evaluation reflects the terminal state (COMPLETED or FAILED).
	PerformEvaluation(ctx context.Context, evaluationID string) (*models.Evaluation, error)
	GetEvaluation(ctx context.Context, id string) (*models.Evaluation, error)
	ListEvaluations(ctx context.Context, limit, offset int) ([]*models.Evaluation, int, error)
}

// FailureExample is one below-target evaluation packaged for the revision
// engine: the judge's verdict plus a transcript excerpt.
type FailureExample struct {
	ScenarioTitle     string
	ScenarioObjective string
	Scores            models.EvaluationScores
	EvaluatorAnalysis string
	Transcript        []models.TranscriptMessage
}

// RevisionContext carries everything the Writer needs to draft a better
// prompt. When no evaluation fell below target the full set is included.
type RevisionContext struct {
	CurrentPrompt string
	TargetScore   float64
	Failures      []FailureExample
}

// PromptRevisionService runs the Writer-Critique cycle and returns the
// improved prompt text.
type PromptRevisionService interface {
	Revise(ctx context.Context, rc RevisionContext) (string, error)
}

// PromptService manages the append-only prompt library
type PromptService interface {
	CreatePrompt(ctx context.Context, name, text, version string) (*models.PromptVersion, error)
	GetPrompt(ctx context.Context, id string) (*models.PromptVersion, error)
	ListPrompts(ctx context.Context, limit, offset int) ([]*models.PromptVersion, int, error)
}

// ScenarioService manages test scenarios
type ScenarioService interface {
	CreateScenario(ctx context.Context, personalityID, title, brief, backstory, objective string, weight int) (*models.Scenario, error)
	GetScenario(ctx context.Context, id string) (*models.Scenario, error)
	ListScenarios(ctx context.Context, limit, offset int) ([]*models.Scenario, int, error)
}

// PersonalityService manages debtor personas
type PersonalityService interface {
	CreatePersonality(ctx context.Context, name, description, systemPrompt string, coreTraits map[string]string, amount *float64) (*models.Personality, error)
	GetPersonality(ctx context.Context, id string) (*models.Personality, error)
	ListPersonalities(ctx context.Context, limit, offset int) ([]*models.Personality, int, error)
}

// TuningService handles tuning run lifecycle persistence. The orchestrator
// use case funnels every state change through here.
type TuningService interface {
	CreateRun(ctx context.Context, config models.TuningConfiguration) (*models.TuningRun, error)
	GetRun(ctx context.Context, id string) (*models.TuningRun, error)
	ListRuns(ctx context.Context, status string, limit, offset int) ([]*models.TuningRun, int, error)
	MarkRunning(ctx context.Context, id string) error
	RecordIteration(ctx context.Context, runID string, iteration models.Iteration) error
	CompleteRun(ctx context.Context, runID, finalPromptID string) error
	FailRun(ctx context.Context, runID, message string) error
	// SaveTunedPrompt appends the revised prompt produced by an iteration.
	SaveTunedPrompt(ctx context.Context, runID string, iteration int, text string) (*models.PromptVersion, error)
}
