package ports

import (
	"context"

	"github.com/finvox/tuneloop/internal/domain/models"
)

// TuningRunRepository defines operations for tuning run persistence.
// State transitions are status-guarded at the storage layer so that the
// single background writer can never resurrect a terminal run.
type TuningRunRepository interface {
	Create(ctx context.Context, run *models.TuningRun) error
	GetByID(ctx context.Context, id string) (*models.TuningRun, error)
	List(ctx context.Context, status string, limit, offset int) ([]*models.TuningRun, error)
	Count(ctx context.Context, status string) (int, error)

	// MarkRunning transitions PENDING -> RUNNING.
	MarkRunning(ctx context.Context, id string) error
	// AppendIteration records a completed iteration; only RUNNING runs accept appends.
	AppendIteration(ctx context.Context, id string, iteration models.Iteration) error
	// Complete transitions RUNNING -> COMPLETED and sets the final prompt.
	Complete(ctx context.Context, id, finalPromptID string) error
	// Fail transitions a non-terminal run to FAILED with the given message.
	Fail(ctx context.Context, id, message string) error
}

// PromptVersionRepository defines operations for the append-only prompt log
type PromptVersionRepository interface {
	Create(ctx context.Context, prompt *models.PromptVersion) error
	GetByID(ctx context.Context, id string) (*models.PromptVersion, error)
	List(ctx context.Context, limit, offset int) ([]*models.PromptVersion, error)
	Count(ctx context.Context) (int, error)
}

// ScenarioRepository defines operations for scenario persistence
type ScenarioRepository interface {
	Create(ctx context.Context, scenario *models.Scenario) error
	GetByID(ctx context.Context, id string) (*models.Scenario, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.Scenario, error)
	List(ctx context.Context, limit, offset int) ([]*models.Scenario, error)
	Count(ctx context.Context) (int, error)
}

// PersonalityRepository defines operations for personality persistence
type PersonalityRepository interface {
	Create(ctx context.Context, personality *models.Personality) error
	GetByID(ctx context.Context, id string) (*models.Personality, error)
	List(ctx context.Context, limit, offset int) ([]*models.Personality, error)
	Count(ctx context.Context) (int, error)
}

// EvaluationRepository defines operations for evaluation persistence
type EvaluationRepository interface {
	Create(ctx context.Context, evaluation *models.Evaluation) error
	GetByID(ctx context.Context, id string) (*models.Evaluation, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.Evaluation, error)
	Update(ctx context.Context, evaluation *models.Evaluation) error
	ListByRun(ctx context.Context, runID string) ([]*models.Evaluation, error)
	List(ctx context.Context, limit, offset int) ([]*models.Evaluation, error)
	Count(ctx context.Context) (int, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	// WithTransaction executes a function within a database transaction
	// If the function returns an error, the transaction is rolled back
	// Otherwise, the transaction is committed
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// IDGenerator generates unique IDs for entities
type IDGenerator interface {
	// GenerateTuningRunID generates a new tuning run ID (tr_xxx)
	GenerateTuningRunID() string

	// GeneratePromptVersionID generates a new prompt version ID (tp_xxx)
	GeneratePromptVersionID() string

	// GenerateScenarioID generates a new scenario ID (tsc_xxx)
	GenerateScenarioID() string

	// GeneratePersonalityID generates a new personality ID (tpe_xxx)
	GeneratePersonalityID() string

	// GenerateEvaluationID generates a new evaluation ID (te_xxx)
	GenerateEvaluationID() string
}
